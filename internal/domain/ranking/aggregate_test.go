package ranking

import (
	"math"
	"testing"

	"github.com/ttbw/rangliste/internal/domain/player"
	"github.com/ttbw/rangliste/internal/domain/tournament"
)

var districtOfRegion = map[int]string{1: "Hochschwarzwald", 2: "Ulm", 3: "Donau", 4: "Ludwigsburg", 5: "Stuttgart"}

func rankedPlayer(id, first, last string, region, birthYear int, gender player.Gender, rating *int) player.Player {
	rules := DefaultRules()
	return player.Player{
		ID:        id,
		FirstName: first,
		LastName:  last,
		District:  districtOfRegion[region],
		Region:    region,
		BirthYear: birthYear,
		AgeClass:  rules.AgeClassFor(birthYear),
		Gender:    gender,
		Rating:    rating,
	}
}

func intPtr(v int) *int { return &v }

func TestResultPoints(t *testing.T) {
	if got := ResultPoints(3, 10, nil); got != 970 {
		t.Fatalf("expected 970, got %v", got)
	}
	if got := ResultPoints(3, 10, intPtr(1500)); got != 971.5 {
		t.Fatalf("expected 971.5, got %v", got)
	}
}

func TestAggregate_GroupsAndOrdersEntries(t *testing.T) {
	rules := DefaultRules()
	top := tournament.Competition{TournamentKey: "4711", Name: "Jungen 13", Points: 10}
	regional := tournament.Competition{TournamentKey: "4712", Name: "Jungen 13", Points: 2}

	anna := rankedPlayer("p1", "Anna", "Berg", 2, 2012, player.GenderFemale, nil)
	ben := rankedPlayer("p2", "Ben", "Adler", 2, 2012, player.GenderMale, intPtr(1200))
	carl := rankedPlayer("p3", "Carl", "Adler", 2, 2012, player.GenderMale, intPtr(1200))
	dora := rankedPlayer("p4", "Dora", "Weit", 5, 2010, player.GenderFemale, nil)
	old := rankedPlayer("p5", "Olaf", "Alt", 2, 2001, player.GenderMale, nil)

	table := Aggregate([]Score{
		{Player: anna, Competition: top, Position: 1},
		{Player: ben, Competition: top, Position: 2},
		{Player: carl, Competition: top, Position: 2},
		{Player: ben, Competition: regional, Position: 1},
		{Player: ben, Competition: regional, Position: 4},
		{Player: dora, Competition: top, Position: 5},
		{Player: old, Competition: top, Position: 1},
	}, rules)

	if table.Players() != 4 {
		t.Fatalf("expected 4 ranked players, got %d", table.Players())
	}
	if _, ok := table.Entry("p5"); ok {
		t.Fatalf("expected too-old player to be skipped")
	}
	if got := table.Regions(); len(got) != 2 || got[0] != 2 || got[1] != 5 {
		t.Fatalf("unexpected regions: %v", got)
	}

	groups := table.Region(2)
	if len(groups) != 2 || groups[0].Class != "F 13" || groups[1].Class != "M 13" {
		t.Fatalf("unexpected groups for region 2: %+v", groups)
	}

	boys := groups[1].Entries
	if len(boys) != 2 || boys[0].Player.ID != "p2" || boys[1].Player.ID != "p3" {
		t.Fatalf("unexpected boys order: %+v", boys)
	}
	// 98*10 + 1.2 for the top event, 99*2 + 1.2 for the best regional placement.
	if math.Abs(boys[0].Points-1180.4) > 1e-9 {
		t.Fatalf("unexpected points for p2: %v", boys[0].Points)
	}
	if len(boys[0].Results) != 2 || boys[0].Results[1].Position != 1 {
		t.Fatalf("expected best regional placement kept, got %+v", boys[0].Results)
	}
}

func TestAggregate_TiesBreakByName(t *testing.T) {
	comp := tournament.Competition{TournamentKey: "4711", Name: "Mädchen 15", Points: 5}
	a := rankedPlayer("p9", "Lena", "Zorn", 1, 2010, player.GenderFemale, nil)
	b := rankedPlayer("p1", "Mia", "Zorn", 1, 2010, player.GenderFemale, nil)
	c := rankedPlayer("p5", "Ida", "Amsel", 1, 2010, player.GenderFemale, nil)

	table := Aggregate([]Score{
		{Player: a, Competition: comp, Position: 3},
		{Player: b, Competition: comp, Position: 3},
		{Player: c, Competition: comp, Position: 3},
	}, DefaultRules())

	entries := table.Groups[0].Entries
	got := []string{entries[0].Player.ID, entries[1].Player.ID, entries[2].Player.ID}
	want := []string{"p5", "p9", "p1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected tie order: got %v want %v", got, want)
		}
	}
}

func TestAggregate_DerivesRegionAndClassFromRules(t *testing.T) {
	comp := tournament.Competition{TournamentKey: "4711", Name: "Mädchen 13", Points: 10}
	stale := player.Player{
		ID:        "p1",
		FirstName: "Anna",
		LastName:  "Löwe",
		District:  "Ulm",
		Region:    7,
		BirthYear: 2012,
		AgeClass:  12,
		Gender:    player.GenderFemale,
	}

	table := Aggregate([]Score{{Player: stale, Competition: comp, Position: 1}}, DefaultRules())

	if len(table.Groups) != 1 {
		t.Fatalf("expected one group, got %+v", table.Groups)
	}
	g := table.Groups[0]
	if g.Region != 2 || g.Class != "F 13" {
		t.Fatalf("expected group region 2 class F 13, got region %d class %q", g.Region, g.Class)
	}
	if len(table.Region(7)) != 0 {
		t.Fatalf("expected no group for the stored region")
	}
	entry, ok := table.Entry("p1")
	if !ok || entry.Player.Region != 2 || entry.Player.AgeClass != 13 {
		t.Fatalf("expected entry with derived region and class, got %+v", entry.Player)
	}
	if stale.Region != 7 {
		t.Fatalf("expected input score to stay untouched")
	}
}

func TestAggregate_PointsSumInResultOrder(t *testing.T) {
	rules := DefaultRules()
	p := rankedPlayer("p1", "Anna", "Berg", 2, 2012, player.GenderFemale, intPtr(1234))

	var scores []Score
	var want float64
	for i, key := range []string{"4701", "4702", "4703", "4704", "4705", "4706", "4707", "4708"} {
		comp := tournament.Competition{TournamentKey: key, Name: "Mädchen 13", Points: i + 1}
		scores = append(scores, Score{Player: p, Competition: comp, Position: i + 3})
		want += ResultPoints(i+3, i+1, p.Rating)
	}

	for run := 0; run < 20; run++ {
		entry, ok := Aggregate(scores, rules).Entry("p1")
		if !ok {
			t.Fatalf("expected ranked entry")
		}
		if entry.Points != want {
			t.Fatalf("run %d: expected %v, got %v", run, want, entry.Points)
		}
	}
}
