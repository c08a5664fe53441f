package report

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/ttbw/rangliste/internal/domain/identity"
	"github.com/ttbw/rangliste/internal/domain/player"
	"github.com/ttbw/rangliste/internal/domain/ranking"
	"github.com/ttbw/rangliste/internal/domain/tournament"
	"github.com/ttbw/rangliste/internal/platform/logging"
	"github.com/ttbw/rangliste/internal/usecase"
)

func sampleInput() Input {
	rules := ranking.DefaultRules()
	rules.Tournaments = map[string]ranking.Tournament{
		"4711": {Key: "4711", ID: 4711, Points: 10},
		"4712": {Key: "4712", ID: 4712, Points: 2},
	}
	rating := 1234
	anna := player.Player{ID: "p1", FirstName: "Anna", LastName: "Löwe", Club: "TTC Ulm", District: "Ulm", Region: 2, BirthYear: 2012, AgeClass: 13, Gender: player.GenderFemale, Rating: &rating}
	olga := player.Player{ID: "p2", FirstName: "Olga", LastName: "Alt", Club: "TTC Ulm", District: "Ulm", Region: 2, BirthYear: 2001, AgeClass: 11, Gender: player.GenderFemale}

	comp := tournament.Competition{TournamentKey: "4711", Name: "Mädchen 13", Points: 10, MinBirthYear: 2006}
	annaRow := tournament.ResultRow{Line: 2, FirstName: "Anna", LastName: "Loewe", Club: "TTC Ulm", Position: 1, Competition: comp}
	olgaRow := tournament.ResultRow{Line: 3, FirstName: "Olga", LastName: "Alt", Club: "TTC Ulm", Position: 2, Competition: comp}
	outcomes := []identity.Outcome{
		{Row: annaRow, Keys: identity.KeysFor(annaRow), Kind: identity.KindFuzzyCurrent, Rule: "fuzzy_same_club", MatchedVia: identity.ViaLooseKey, PlayerID: "p1", Player: anna},
		{Row: olgaRow, Keys: identity.KeysFor(olgaRow), Kind: identity.KindNoMatch, Reason: identity.ReasonRowTooOld, PlayerID: "p2", Player: olga},
	}

	table := ranking.Aggregate([]ranking.Score{{Player: anna, Competition: comp, Position: 1}}, rules)
	stats := &usecase.StoreStats{
		Stats: player.Stats{
			CurrentPlayers: 2,
			HistoryEntries: 3,
			ByChangeType:   map[player.ChangeType]int{player.ChangeInsert: 2, player.ChangeUpdate: 1},
		},
		Eligible: 1,
		TooOld:   1,
		ByRegion: map[int]int{2: 2},
	}
	return Input{Outcomes: outcomes, Table: table, Players: []player.Player{olga, anna}, Rules: rules, Stats: stats}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimSpace(string(raw)), "\n")
}

func TestWriter_WritesEveryReport(t *testing.T) {
	dir := t.TempDir()
	paths, err := NewWriter(dir, ';', logging.NewNop()).Write(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("write reports: %v", err)
	}

	want := []string{FileAllPlayers, FileClubs, FileDistricts, FileFuzzy, FileOutcomes, FileStatistics, FileUnmatched, RegionFile(2)}
	if len(paths) != len(want) {
		t.Fatalf("expected %d files, got %v", len(want), paths)
	}
	for _, name := range want {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	region, err := os.ReadFile(filepath.Join(dir, RegionFile(2)))
	if err != nil {
		t.Fatalf("read region report: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(region)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one entry, got %q", region)
	}
	if lines[0] != "Altersklasse;Nachname;Vorname;Verein;Jahrgang;Bezirk;4711;4712;Punkte;QTTR" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "F 13;Löwe;Anna;TTC Ulm;2012;Ulm;1. Mädchen 13;-;991.23;1234" {
		t.Fatalf("unexpected entry %q", lines[1])
	}

	all, err := os.ReadFile(filepath.Join(dir, FileAllPlayers))
	if err != nil {
		t.Fatalf("read all players: %v", err)
	}
	if !strings.Contains(string(all), "2;11*;Alt;Olga") {
		t.Fatalf("expected too-old marker in all players report, got %q", all)
	}
}

func TestWriter_OutcomesAreJSONLines(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewWriter(dir, ';', logging.NewNop()).Write(context.Background(), sampleInput()); err != nil {
		t.Fatalf("write reports: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, FileOutcomes))
	if err != nil {
		t.Fatalf("read outcomes: %v", err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	var records []outcomeRecord
	for scanner.Scan() {
		var rec outcomeRecord
		if err := sonic.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode line %q: %v", scanner.Text(), err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Kind != "FUZZY_CURRENT" || records[0].LastKey != "loewe" || records[0].PlayerID != "p1" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].Reason != "ROW_TOO_OLD" {
		t.Fatalf("unexpected second record: %+v", records[1])
	}
}

func TestWriter_StatisticsNeedStats(t *testing.T) {
	dir := t.TempDir()
	in := sampleInput()
	in.Stats = nil
	if _, err := NewWriter(dir, ';', logging.NewNop()).Write(context.Background(), in); err != nil {
		t.Fatalf("write reports: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileStatistics)); !os.IsNotExist(err) {
		t.Fatalf("expected no statistics report without stats, got %v", err)
	}
}

func TestWriter_ClubAndDistrictReports(t *testing.T) {
	dir := t.TempDir()
	in := sampleInput()
	in.Players = append(in.Players, player.Player{
		ID: "p3", FirstName: "Carl", LastName: "Berg", Club: "SV Donau", District: "Donau",
		BirthYear: 2010, Gender: player.GenderMale, LicenseNumber: "L3",
	})
	if _, err := NewWriter(dir, ';', logging.NewNop()).Write(context.Background(), in); err != nil {
		t.Fatalf("write reports: %v", err)
	}

	clubs := readLines(t, filepath.Join(dir, FileClubs))
	wantClubs := []string{
		"Verein;Nachname;Vorname;Geschlecht;Bezirk;Jahrgang;Altersklasse;Region;QTTR;Lizenz;Punkte",
		"SV Donau;Berg;Carl;M;Donau;2010;15;3;?;L3;0.00",
		"TTC Ulm;Alt;Olga;F;Ulm;2001;11*;2;?;;0.00",
		"TTC Ulm;Löwe;Anna;F;Ulm;2012;13;2;1234;;991.23",
	}
	if strings.Join(clubs, "\n") != strings.Join(wantClubs, "\n") {
		t.Fatalf("unexpected club report:\n%s", strings.Join(clubs, "\n"))
	}

	districts := readLines(t, filepath.Join(dir, FileDistricts))
	wantDistricts := []string{
		"Bezirk;Region;Verein;Nachname;Vorname;Geschlecht;Jahrgang;Altersklasse;QTTR;Lizenz;Punkte",
		"Donau;3;SV Donau;Berg;Carl;M;2010;15;?;L3;0.00",
		"Ulm;2;TTC Ulm;Alt;Olga;F;2001;11*;?;;0.00",
		"Ulm;2;TTC Ulm;Löwe;Anna;F;2012;13;1234;;991.23",
	}
	if strings.Join(districts, "\n") != strings.Join(wantDistricts, "\n") {
		t.Fatalf("unexpected district report:\n%s", strings.Join(districts, "\n"))
	}
}

func TestWriter_StatisticsReport(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewWriter(dir, ';', logging.NewNop()).Write(context.Background(), sampleInput()); err != nil {
		t.Fatalf("write reports: %v", err)
	}

	got := readLines(t, filepath.Join(dir, FileStatistics))
	want := []string{
		"Kategorie;Wert;Anzahl;Anteil",
		"Gesamt;Spieler;2;100.0%",
		"Gesamt;Wertbar;1;50.0%",
		"Gesamt;Zu alt;1;50.0%",
		"Region;2;2;100.0%",
		"Altersklasse;11;1;50.0%",
		"Altersklasse;13;1;50.0%",
		"Geschlecht;F;2;100.0%",
		"Bezirk;Ulm;2;100.0%",
		"Historie;Eintraege;3;-",
		"Historie;INSERT;2;-",
		"Historie;UPDATE;1;-",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected statistics report:\n%s", strings.Join(got, "\n"))
	}
}

func TestWriter_GroupsByRulesNotStoredFields(t *testing.T) {
	dir := t.TempDir()
	in := sampleInput()
	stale := in.Players[1]
	stale.Region = 7
	stale.AgeClass = 12
	in.Players[1] = stale
	comp := in.Outcomes[0].Row.Competition
	in.Table = ranking.Aggregate([]ranking.Score{{Player: stale, Competition: comp, Position: 1}}, in.Rules)

	paths, err := NewWriter(dir, ';', logging.NewNop()).Write(context.Background(), in)
	if err != nil {
		t.Fatalf("write reports: %v", err)
	}
	for _, path := range paths {
		if filepath.Base(path) == RegionFile(7) {
			t.Fatalf("expected no report for the stored region, got %v", paths)
		}
	}

	region := readLines(t, filepath.Join(dir, RegionFile(2)))
	if len(region) != 2 || !strings.HasPrefix(region[1], "F 13;Löwe;Anna;") {
		t.Fatalf("expected derived class in region report, got %q", region)
	}
	all := readLines(t, filepath.Join(dir, FileAllPlayers))
	if len(all) != 3 || !strings.HasPrefix(all[2], "2;13;Löwe;Anna;") {
		t.Fatalf("expected derived region and class in all players report, got %q", all)
	}
}
