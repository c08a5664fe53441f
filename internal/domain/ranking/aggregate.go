package ranking

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ttbw/rangliste/internal/domain/player"
	"github.com/ttbw/rangliste/internal/domain/tournament"
)

// Score is one placement of a resolved player.
type Score struct {
	Player      player.Player
	Competition tournament.Competition
	Position    int
}

// Result is the best placement of a player in one competition.
type Result struct {
	TournamentKey string
	Competition   string
	Position      int
	Points        float64
}

// Entry is one player's line in a ranking group.
type Entry struct {
	Player  player.Player
	Points  float64
	Results []Result
}

// Group ranks the players of one region and competition class.
type Group struct {
	Region  int
	Class   string
	Entries []Entry
}

// Table is the full ranking, grouped by region then class.
type Table struct {
	Groups  []Group
	players map[string]Entry
}

// ClassKey is the competition class of a player: gender and age class.
func ClassKey(p player.Player) string {
	return strings.TrimSpace(string(p.Gender) + " " + strconv.Itoa(p.AgeClass))
}

// ResultPoints scores one placement. The rating bonus is added per result.
func ResultPoints(position, tournamentPoints int, rating *int) float64 {
	points := float64((100 - position) * tournamentPoints)
	if rating != nil && *rating > 0 {
		points += float64(*rating) / 1000
	}
	return points
}

// Aggregate builds the ranking table. Region and age class come from the
// rules, not from the stored record. Players outside the current age window
// are skipped. A player placed more than once in the same competition scores
// for the best placement only.
func Aggregate(scores []Score, rules Rules) Table {
	type key struct{ tournament, competition string }
	type acc struct {
		player  player.Player
		results map[key]Result
	}

	byPlayer := make(map[string]*acc)
	for _, s := range scores {
		if s.Player.ID == "" || s.Position <= 0 {
			continue
		}
		if !rules.IsAgeEligible(s.Player.BirthYear) {
			continue
		}
		entry, ok := byPlayer[s.Player.ID]
		if !ok {
			entry = &acc{player: rules.Classify(s.Player), results: make(map[key]Result)}
			byPlayer[s.Player.ID] = entry
		}
		k := key{tournament: s.Competition.TournamentKey, competition: s.Competition.Name}
		if prev, seen := entry.results[k]; seen && prev.Position <= s.Position {
			continue
		}
		entry.results[k] = Result{
			TournamentKey: k.tournament,
			Competition:   k.competition,
			Position:      s.Position,
			Points:        ResultPoints(s.Position, s.Competition.Points, s.Player.Rating),
		}
	}

	type groupKey struct {
		region int
		class  string
	}
	groups := make(map[groupKey][]Entry)
	table := Table{players: make(map[string]Entry, len(byPlayer))}
	for id, a := range byPlayer {
		e := Entry{Player: a.player, Results: make([]Result, 0, len(a.results))}
		for _, r := range a.results {
			e.Results = append(e.Results, r)
		}
		sort.Slice(e.Results, func(i, j int) bool {
			if e.Results[i].TournamentKey != e.Results[j].TournamentKey {
				return e.Results[i].TournamentKey < e.Results[j].TournamentKey
			}
			return e.Results[i].Competition < e.Results[j].Competition
		})
		// Summing in result order keeps float totals stable across runs.
		for _, r := range e.Results {
			e.Points += r.Points
		}
		table.players[id] = e
		gk := groupKey{region: a.player.Region, class: ClassKey(a.player)}
		groups[gk] = append(groups[gk], e)
	}

	for gk, entries := range groups {
		sortEntries(entries)
		table.Groups = append(table.Groups, Group{Region: gk.region, Class: gk.class, Entries: entries})
	}
	sort.Slice(table.Groups, func(i, j int) bool {
		if table.Groups[i].Region != table.Groups[j].Region {
			return table.Groups[i].Region < table.Groups[j].Region
		}
		return table.Groups[i].Class < table.Groups[j].Class
	})
	return table
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Player.LastName != b.Player.LastName {
			return a.Player.LastName < b.Player.LastName
		}
		if a.Player.FirstName != b.Player.FirstName {
			return a.Player.FirstName < b.Player.FirstName
		}
		return a.Player.ID < b.Player.ID
	})
}

// Entry returns the ranking line of a player.
func (t Table) Entry(playerID string) (Entry, bool) {
	e, ok := t.players[playerID]
	return e, ok
}

// Region returns the groups of one region in class order.
func (t Table) Region(region int) []Group {
	var out []Group
	for _, g := range t.Groups {
		if g.Region == region {
			out = append(out, g)
		}
	}
	return out
}

// Regions lists the regions present in the table.
func (t Table) Regions() []int {
	var out []int
	for _, g := range t.Groups {
		if len(out) == 0 || out[len(out)-1] != g.Region {
			out = append(out, g.Region)
		}
	}
	return out
}

// Players counts ranked players.
func (t Table) Players() int {
	return len(t.players)
}
