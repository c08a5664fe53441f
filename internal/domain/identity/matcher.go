package identity

import (
	"sort"
	"strings"
	"time"

	"github.com/ttbw/rangliste/internal/domain/player"
	"github.com/ttbw/rangliste/internal/domain/ranking"
	"github.com/ttbw/rangliste/internal/domain/tournament"
)

// Input is everything a rule may consult for one row.
type Input struct {
	Row      tournament.ResultRow
	Keys     RowKeys
	Snapshot *player.Snapshot
	Rules    ranking.Rules
	Variants *VariantTable
	// ClubAuthoritative is false when the row's club lies outside the tracked
	// districts and therefore cannot veto a name match.
	ClubAuthoritative bool
}

// Candidate is a player proposed by a rule.
type Candidate struct {
	Player      player.Player
	NameVia     Via
	ClubMatch   bool
	StrictMatch bool
	// Recency is the UpdatedAt of the current record, also for historical
	// candidates.
	Recency time.Time
}

// Rule is one matching tier. Rules are pure and are evaluated in order; the
// first rule that yields candidates decides the outcome.
type Rule struct {
	Name string
	Kind Kind
	Via  Via
	Find func(in Input) []Candidate
}

// DefaultRules returns the matching tiers in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "exact_current", Kind: KindExactCurrent, Via: ViaExact, Find: findExactCurrent},
		{Name: "fuzzy_same_club", Kind: KindFuzzyCurrent, Find: findFuzzySameClub},
		{Name: "fuzzy_club_exempt", Kind: KindFuzzyCurrent, Via: ViaClubExempt, Find: findFuzzyClubExempt},
		{Name: "historical", Kind: KindHistorical, Via: ViaHistory, Find: findHistorical},
	}
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithVariants replaces the first-name variant table. A nil table is ignored.
func WithVariants(v *VariantTable) Option {
	return func(m *Matcher) {
		if v != nil {
			m.variants = v
		}
	}
}

// WithRules replaces the matching tiers. An empty list keeps the defaults.
func WithRules(rules ...Rule) Option {
	return func(m *Matcher) {
		if len(rules) > 0 {
			m.rules = append([]Rule(nil), rules...)
		}
	}
}

// Matcher resolves result rows against a store snapshot. It never mutates
// the snapshot and is safe for concurrent use.
type Matcher struct {
	rules    []Rule
	variants *VariantTable
}

// NewMatcher returns a Matcher using DefaultRules and DefaultVariants unless
// overridden by opts.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		rules:    DefaultRules(),
		variants: DefaultVariants(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Matcher) Match(row tournament.ResultRow, snap *player.Snapshot, rules ranking.Rules) Outcome {
	keys := KeysFor(row)
	out := Outcome{Row: row, Keys: keys, Kind: KindNoMatch}
	if keys.First.Loose == "" || keys.Last.Loose == "" || snap == nil {
		out.Reason = ReasonInvalidRow
		return out
	}

	in := Input{
		Row:      row,
		Keys:     keys,
		Snapshot: snap,
		Rules:    rules,
		Variants: m.variants,
	}
	in.ClubAuthoritative = clubAuthoritative(in)

	for _, rule := range m.rules {
		candidates := rule.Find(in)
		if len(candidates) == 0 {
			continue
		}

		out.Rule = rule.Name
		winner, tied, ok := selectCandidate(candidates)
		if !ok {
			out.Reason = ReasonAmbiguous
			out.Candidates = tied
			return out
		}

		out.PlayerID = winner.Player.ID
		out.Player = winner.Player
		out.MatchedVia = rule.Via
		if out.MatchedVia == "" {
			out.MatchedVia = winner.NameVia
		}
		if !eligible(row, rules, winner.Player.BirthYear) {
			out.Reason = ReasonRowTooOld
			return out
		}
		out.Kind = rule.Kind
		return out
	}

	if !in.ClubAuthoritative {
		out.Reason = ReasonClubOutOfRegion
	} else {
		out.Reason = ReasonNameNotFound
	}
	return out
}

func eligible(row tournament.ResultRow, rules ranking.Rules, birthYear int) bool {
	if row.Competition.MinBirthYear != 0 {
		return row.Competition.Eligible(birthYear)
	}
	return rules.IsAgeEligible(birthYear)
}

func clubAuthoritative(in Input) bool {
	if strings.TrimSpace(in.Row.District) != "" && !in.Rules.IsTrackedDistrict(in.Row.District) {
		return false
	}
	for _, p := range in.Snapshot.FindCurrentByClub(in.Keys.Club.Loose) {
		if in.Rules.IsTrackedDistrict(p.District) {
			return true
		}
	}
	return false
}

// clubExempt reports whether a club mismatch against a candidate whose
// district is candidateDistrict may be ignored.
func clubExempt(in Input, candidateDistrict string) bool {
	return !in.ClubAuthoritative || !in.Rules.IsTrackedDistrict(candidateDistrict)
}

func firstNameVia(in Input, candidateFirst string) (Via, bool) {
	if candidateFirst == in.Keys.First.Loose {
		return ViaLooseKey, true
	}
	if in.Variants.Equivalent(in.Keys.First.Loose, candidateFirst) {
		return ViaNameVariant, true
	}
	return "", false
}

func newCandidate(in Input, p player.Player, state player.Player, via Via) Candidate {
	return Candidate{
		Player:      p,
		NameVia:     via,
		ClubMatch:   state.ClubKey() == in.Keys.Club.Loose,
		StrictMatch: state.StrictNameEqual(in.Row.FirstName, in.Row.LastName),
		Recency:     p.UpdatedAt,
	}
}

func findExactCurrent(in Input) []Candidate {
	found := in.Snapshot.FindCurrent(in.Keys.NameKey(), in.Keys.Club.Loose)
	out := make([]Candidate, 0, len(found))
	for _, p := range found {
		out = append(out, newCandidate(in, p, p, ViaLooseKey))
	}
	return out
}

func findFuzzySameClub(in Input) []Candidate {
	var out []Candidate
	for _, p := range in.Snapshot.FindCurrentByLastName(in.Keys.Last.Loose) {
		if p.ClubKey() != in.Keys.Club.Loose {
			continue
		}
		via, ok := firstNameVia(in, p.NameKey().First)
		if !ok {
			continue
		}
		out = append(out, newCandidate(in, p, p, via))
	}
	return out
}

func findFuzzyClubExempt(in Input) []Candidate {
	var out []Candidate
	for _, p := range in.Snapshot.FindCurrentByLastName(in.Keys.Last.Loose) {
		if p.ClubKey() == in.Keys.Club.Loose || !clubExempt(in, p.District) {
			continue
		}
		via, ok := firstNameVia(in, p.NameKey().First)
		if !ok {
			continue
		}
		out = append(out, newCandidate(in, p, p, via))
	}
	return out
}

func findHistorical(in Input) []Candidate {
	var out []Candidate
	for _, entry := range in.Snapshot.FindHistoryByLastName(in.Keys.Last.Loose) {
		state := entry.State
		if state.ClubKey() != in.Keys.Club.Loose && !clubExempt(in, state.District) {
			continue
		}
		via, ok := firstNameVia(in, state.NameKey().First)
		if !ok {
			continue
		}
		current, live := in.Snapshot.GetCurrent(entry.PlayerID)
		if !live {
			continue
		}
		out = append(out, newCandidate(in, current, state, via))
	}
	return out
}

// selectCandidate applies the tie-break chain: club match, then strict name
// equality when every remaining candidate matched by loose key, then the most
// recently updated current record. It returns the sorted tied IDs when no
// single winner remains.
func selectCandidate(candidates []Candidate) (Candidate, []string, bool) {
	pool := dedupeCandidates(candidates)

	if anyCandidate(pool, func(c Candidate) bool { return c.ClubMatch }) {
		pool = filterCandidates(pool, func(c Candidate) bool { return c.ClubMatch })
	}

	allLoose := !anyCandidate(pool, func(c Candidate) bool { return c.NameVia != ViaLooseKey })
	if len(pool) > 1 && allLoose && anyCandidate(pool, func(c Candidate) bool { return c.StrictMatch }) {
		pool = filterCandidates(pool, func(c Candidate) bool { return c.StrictMatch })
	}

	if len(pool) > 1 {
		latest := pool[0].Recency
		for _, c := range pool[1:] {
			if c.Recency.After(latest) {
				latest = c.Recency
			}
		}
		pool = filterCandidates(pool, func(c Candidate) bool { return c.Recency.Equal(latest) })
	}

	if len(pool) == 1 {
		return pool[0], nil, true
	}
	ids := make([]string, len(pool))
	for i, c := range pool {
		ids[i] = c.Player.ID
	}
	return Candidate{}, ids, false
}

// dedupeCandidates keeps the strongest candidate per player and returns them
// sorted by player ID.
func dedupeCandidates(candidates []Candidate) []Candidate {
	best := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		prev, ok := best[c.Player.ID]
		if !ok || stronger(c, prev) {
			best[c.Player.ID] = c
		}
	}
	out := make([]Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Player.ID < out[j].Player.ID })
	return out
}

func stronger(a, b Candidate) bool {
	if a.ClubMatch != b.ClubMatch {
		return a.ClubMatch
	}
	if (a.NameVia == ViaLooseKey) != (b.NameVia == ViaLooseKey) {
		return a.NameVia == ViaLooseKey
	}
	if a.StrictMatch != b.StrictMatch {
		return a.StrictMatch
	}
	return a.Recency.After(b.Recency)
}

func anyCandidate(pool []Candidate, pred func(Candidate) bool) bool {
	for _, c := range pool {
		if pred(c) {
			return true
		}
	}
	return false
}

func filterCandidates(pool []Candidate, pred func(Candidate) bool) []Candidate {
	out := pool[:0:0]
	for _, c := range pool {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out
}
