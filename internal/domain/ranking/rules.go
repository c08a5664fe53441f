package ranking

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ttbw/rangliste/internal/domain/player"
	"github.com/ttbw/rangliste/internal/domain/tournament"
)

var (
	ErrInvalidRules      = errors.New("invalid ranking rules")
	ErrUnknownTournament = errors.New("unknown tournament")
)

const fallbackAgeClass = 11

// District maps a district name onto its ranking region.
type District struct {
	Name      string `yaml:"-"`
	Region    int    `yaml:"region"`
	ShortName string `yaml:"short_name"`
}

// Tournament carries the point value and age limit of one tournament.
type Tournament struct {
	Key          string `yaml:"-"`
	ID           int    `yaml:"tournament_id"`
	Points       int    `yaml:"points"`
	MinBirthYear int    `yaml:"min_birth_year"`
}

// UnmarshalYAML accepts both the short form `"4711": 10` and the full mapping.
func (t *Tournament) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&t.Points)
	}
	type plain Tournament
	var out plain
	if err := node.Decode(&out); err != nil {
		return err
	}
	*t = Tournament(out)
	return nil
}

// Rules is the season configuration consulted for derived player fields,
// age eligibility and scoring.
type Rules struct {
	DefaultBirthYear int                   `yaml:"default_birth_year"`
	Federation       string                `yaml:"federation"`
	AgeClasses       map[int]int           `yaml:"age_classes"`
	Districts        map[string]District   `yaml:"districts"`
	Tournaments      map[string]Tournament `yaml:"tournaments"`
}

func DefaultRules() Rules {
	return Rules{
		DefaultBirthYear: 2014,
		Federation:       "TTBW",
		AgeClasses: map[int]int{
			2006: 19, 2007: 19, 2008: 19, 2009: 19,
			2010: 15, 2011: 15,
			2012: 13, 2013: 13,
			2014: 11,
		},
		Districts: map[string]District{
			"Hochschwarzwald": {Name: "Hochschwarzwald", Region: 1, ShortName: "HS"},
			"Ulm":             {Name: "Ulm", Region: 2, ShortName: "UL"},
			"Donau":           {Name: "Donau", Region: 3, ShortName: "DO"},
			"Ludwigsburg":     {Name: "Ludwigsburg", Region: 4, ShortName: "LB"},
			"Stuttgart":       {Name: "Stuttgart", Region: 5, ShortName: "ST"},
		},
		Tournaments: map[string]Tournament{},
	}
}

// LoadRules reads a YAML rules file. Keys absent from the file keep their
// DefaultRules value.
func LoadRules(path string) (Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(raw)
}

func ParseRules(raw []byte) (Rules, error) {
	rules := DefaultRules()
	var parsed Rules
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return Rules{}, fmt.Errorf("%w: parse yaml: %v", ErrInvalidRules, err)
	}

	if parsed.DefaultBirthYear != 0 {
		rules.DefaultBirthYear = parsed.DefaultBirthYear
	}
	if strings.TrimSpace(parsed.Federation) != "" {
		rules.Federation = strings.TrimSpace(parsed.Federation)
	}
	if len(parsed.AgeClasses) > 0 {
		rules.AgeClasses = parsed.AgeClasses
	}
	if len(parsed.Districts) > 0 {
		rules.Districts = make(map[string]District, len(parsed.Districts))
		for name, d := range parsed.Districts {
			d.Name = name
			rules.Districts[name] = d
		}
	}
	if len(parsed.Tournaments) > 0 {
		rules.Tournaments = make(map[string]Tournament, len(parsed.Tournaments))
		for key, t := range parsed.Tournaments {
			t.Key = key
			if t.ID == 0 {
				if id, convErr := strconv.Atoi(key); convErr == nil {
					t.ID = id
				}
			}
			rules.Tournaments[key] = t
		}
	}

	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

func (r Rules) Validate() error {
	if r.DefaultBirthYear <= 0 {
		return fmt.Errorf("%w: default_birth_year must be > 0", ErrInvalidRules)
	}
	if len(r.AgeClasses) == 0 {
		return fmt.Errorf("%w: age_classes must not be empty", ErrInvalidRules)
	}
	for year, class := range r.AgeClasses {
		if class <= 0 {
			return fmt.Errorf("%w: age class for %d must be > 0", ErrInvalidRules, year)
		}
	}
	for name, d := range r.Districts {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: district name must not be empty", ErrInvalidRules)
		}
		if d.Region <= 0 {
			return fmt.Errorf("%w: district %s region must be > 0", ErrInvalidRules, name)
		}
	}
	for key, t := range r.Tournaments {
		if t.Points < 0 {
			return fmt.Errorf("%w: tournament %s points must be >= 0", ErrInvalidRules, key)
		}
	}
	return nil
}

// AgeClassFor returns the age class of a birth year, falling back to the
// class of the default birth year.
func (r Rules) AgeClassFor(birthYear int) int {
	if class, ok := r.AgeClasses[birthYear]; ok {
		return class
	}
	if class, ok := r.AgeClasses[r.DefaultBirthYear]; ok {
		return class
	}
	return fallbackAgeClass
}

// OldestEligibleBirthYear is the smallest birth year in the age class table,
// or zero when the table is empty.
func (r Rules) OldestEligibleBirthYear() int {
	oldest := 0
	for year := range r.AgeClasses {
		if oldest == 0 || year < oldest {
			oldest = year
		}
	}
	return oldest
}

func (r Rules) IsAgeEligible(birthYear int) bool {
	oldest := r.OldestEligibleBirthYear()
	return oldest == 0 || birthYear >= oldest
}

// DistrictFor resolves a district name case-insensitively. An exact match wins
// over a partial one; partial matches accept containment in either direction
// and are tried in name order.
func (r Rules) DistrictFor(name string) (District, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return District{}, false
	}

	names := r.districtNames()
	for _, n := range names {
		if strings.ToLower(n) == needle {
			return r.district(n), true
		}
	}
	for _, n := range names {
		hay := strings.ToLower(n)
		if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
			return r.district(n), true
		}
	}
	return District{}, false
}

// RegionFor returns the region of a district, 0 when it is not tracked.
func (r Rules) RegionFor(district string) int {
	d, ok := r.DistrictFor(district)
	if !ok {
		return 0
	}
	return d.Region
}

// Classify returns a copy of p whose region and age class are derived from
// its district and birth year under r. Stored values are ignored.
func (r Rules) Classify(p player.Player) player.Player {
	out := p.Clone()
	out.Region = r.RegionFor(p.District)
	out.AgeClass = r.AgeClassFor(p.BirthYear)
	return out
}

func (r Rules) IsTrackedDistrict(district string) bool {
	return r.RegionFor(district) != 0
}

// Regions lists the configured regions in ascending order.
func (r Rules) Regions() []int {
	seen := make(map[int]struct{}, len(r.Districts))
	out := make([]int, 0, len(r.Districts))
	for _, d := range r.Districts {
		if _, ok := seen[d.Region]; ok {
			continue
		}
		seen[d.Region] = struct{}{}
		out = append(out, d.Region)
	}
	sort.Ints(out)
	return out
}

// Competition builds the competition rule for a result of the given
// tournament. Tournaments without an explicit age limit use the oldest
// eligible birth year.
func (r Rules) Competition(tournamentKey, name string) (tournament.Competition, error) {
	key := strings.TrimSpace(tournamentKey)
	t, ok := r.Tournaments[key]
	if !ok {
		return tournament.Competition{}, fmt.Errorf("%w: %s", ErrUnknownTournament, key)
	}
	minYear := t.MinBirthYear
	if minYear == 0 {
		minYear = r.OldestEligibleBirthYear()
	}
	return tournament.Competition{
		TournamentKey: key,
		TournamentID:  t.ID,
		Name:          strings.TrimSpace(name),
		Points:        t.Points,
		MinBirthYear:  minYear,
	}, nil
}

func (r Rules) districtNames() []string {
	names := make([]string, 0, len(r.Districts))
	for name := range r.Districts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r Rules) district(name string) District {
	d := r.Districts[name]
	if d.Name == "" {
		d.Name = name
	}
	return d
}
