package report

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/valyala/bytebufferpool"

	"github.com/ttbw/rangliste/internal/domain/identity"
	"github.com/ttbw/rangliste/internal/domain/player"
	"github.com/ttbw/rangliste/internal/domain/ranking"
)

const missingCell = "-"

func tournamentKeys(rules ranking.Rules) []string {
	keys := make([]string, 0, len(rules.Tournaments))
	for key := range rules.Tournaments {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func ratingCell(rating *int) string {
	if rating == nil {
		return "?"
	}
	return strconv.Itoa(*rating)
}

func pointsCell(points float64) string {
	return strconv.FormatFloat(points, 'f', 2, 64)
}

func renderRegion(w *csv.Writer, in Input, region int) error {
	keys := tournamentKeys(in.Rules)
	header := []string{"Altersklasse", "Nachname", "Vorname", "Verein", "Jahrgang", "Bezirk"}
	header = append(header, keys...)
	header = append(header, "Punkte", "QTTR")
	if err := w.Write(header); err != nil {
		return err
	}

	for _, group := range in.Table.Region(region) {
		for _, entry := range group.Entries {
			p := entry.Player
			row := []string{group.Class, p.LastName, p.FirstName, p.Club, strconv.Itoa(p.BirthYear), p.District}
			row = append(row, resultCells(entry, keys)...)
			row = append(row, pointsCell(entry.Points), ratingCell(p.Rating))
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// resultCells renders "<position>. <competition>" per tournament column.
func resultCells(entry ranking.Entry, keys []string) []string {
	cells := make([]string, len(keys))
	for i, key := range keys {
		var parts []string
		for _, r := range entry.Results {
			if r.TournamentKey == key {
				parts = append(parts, strconv.Itoa(r.Position)+". "+r.Competition)
			}
		}
		if len(parts) == 0 {
			cells[i] = missingCell
			continue
		}
		cells[i] = strings.Join(parts, ", ")
	}
	return cells
}

// classifiedPlayers returns the roster with region and age class derived
// from the rules.
func classifiedPlayers(in Input) []player.Player {
	out := make([]player.Player, len(in.Players))
	for i, p := range in.Players {
		out[i] = in.Rules.Classify(p)
	}
	return out
}

func byName(a, b player.Player) bool {
	if a.LastName != b.LastName {
		return a.LastName < b.LastName
	}
	if a.FirstName != b.FirstName {
		return a.FirstName < b.FirstName
	}
	return a.ID < b.ID
}

func ageClassCell(in Input, p player.Player) string {
	cell := strconv.Itoa(p.AgeClass)
	if !in.Rules.IsAgeEligible(p.BirthYear) {
		cell += "*"
	}
	return cell
}

func renderAllPlayers(w *csv.Writer, in Input) error {
	if err := w.Write([]string{
		"Region", "Altersklasse", "Nachname", "Vorname", "Verein", "Jahrgang", "Bezirk",
		"Geschlecht", "QTTR", "Turniere", "Punkte",
	}); err != nil {
		return err
	}

	players := classifiedPlayers(in)
	sort.Slice(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		return byName(a, b)
	})

	for _, p := range players {
		var tournaments int
		var points float64
		if entry, ok := in.Table.Entry(p.ID); ok {
			tournaments = countTournaments(entry)
			points = entry.Points
		}
		if err := w.Write([]string{
			strconv.Itoa(p.Region), ageClassCell(in, p), p.LastName, p.FirstName, p.Club,
			strconv.Itoa(p.BirthYear), p.District, string(p.Gender), ratingCell(p.Rating),
			strconv.Itoa(tournaments), pointsCell(points),
		}); err != nil {
			return err
		}
	}
	return nil
}

func tablePoints(in Input, playerID string) string {
	entry, ok := in.Table.Entry(playerID)
	if !ok {
		return pointsCell(0)
	}
	return pointsCell(entry.Points)
}

// renderClubs lists the roster club by club. Clubs compare case-insensitively.
func renderClubs(w *csv.Writer, in Input) error {
	if err := w.Write([]string{
		"Verein", "Nachname", "Vorname", "Geschlecht", "Bezirk", "Jahrgang",
		"Altersklasse", "Region", "QTTR", "Lizenz", "Punkte",
	}); err != nil {
		return err
	}

	players := classifiedPlayers(in)
	sort.Slice(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if ca, cb := strings.ToLower(a.Club), strings.ToLower(b.Club); ca != cb {
			return ca < cb
		}
		return byName(a, b)
	})

	for _, p := range players {
		if err := w.Write([]string{
			p.Club, p.LastName, p.FirstName, string(p.Gender), p.District, strconv.Itoa(p.BirthYear),
			ageClassCell(in, p), strconv.Itoa(p.Region), ratingCell(p.Rating), p.LicenseNumber,
			tablePoints(in, p.ID),
		}); err != nil {
			return err
		}
	}
	return nil
}

// renderDistricts lists the roster district by district, then club.
func renderDistricts(w *csv.Writer, in Input) error {
	if err := w.Write([]string{
		"Bezirk", "Region", "Verein", "Nachname", "Vorname", "Geschlecht", "Jahrgang",
		"Altersklasse", "QTTR", "Lizenz", "Punkte",
	}); err != nil {
		return err
	}

	players := classifiedPlayers(in)
	sort.Slice(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if da, db := strings.ToLower(a.District), strings.ToLower(b.District); da != db {
			return da < db
		}
		if ca, cb := strings.ToLower(a.Club), strings.ToLower(b.Club); ca != cb {
			return ca < cb
		}
		return byName(a, b)
	})

	for _, p := range players {
		if err := w.Write([]string{
			p.District, strconv.Itoa(p.Region), p.Club, p.LastName, p.FirstName, string(p.Gender),
			strconv.Itoa(p.BirthYear), ageClassCell(in, p), ratingCell(p.Rating), p.LicenseNumber,
			tablePoints(in, p.ID),
		}); err != nil {
			return err
		}
	}
	return nil
}

func shareCell(count, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return strconv.FormatFloat(float64(count)*100/float64(total), 'f', 1, 64) + "%"
}

// renderStatistics writes store counters and roster breakdowns. Counts by
// age class, gender and district come from the roster; region counts come
// from the store stats.
func renderStatistics(w *csv.Writer, in Input) error {
	if err := w.Write([]string{"Kategorie", "Wert", "Anzahl", "Anteil"}); err != nil {
		return err
	}
	stats := in.Stats
	if stats == nil {
		return nil
	}
	total := stats.CurrentPlayers

	rows := [][]string{
		{"Gesamt", "Spieler", strconv.Itoa(total), shareCell(total, total)},
		{"Gesamt", "Wertbar", strconv.Itoa(stats.Eligible), shareCell(stats.Eligible, total)},
		{"Gesamt", "Zu alt", strconv.Itoa(stats.TooOld), shareCell(stats.TooOld, total)},
	}

	regions := make([]int, 0, len(stats.ByRegion))
	for r := range stats.ByRegion {
		regions = append(regions, r)
	}
	sort.Ints(regions)
	for _, r := range regions {
		rows = append(rows, []string{"Region", strconv.Itoa(r), strconv.Itoa(stats.ByRegion[r]), shareCell(stats.ByRegion[r], total)})
	}

	ageClasses := make(map[string]int)
	genders := make(map[string]int)
	districts := make(map[string]int)
	for _, p := range classifiedPlayers(in) {
		ageClasses[strconv.Itoa(p.AgeClass)]++
		genders[string(p.Gender)]++
		districts[p.District]++
	}
	rows = appendCounts(rows, "Altersklasse", ageClasses, total)
	rows = appendCounts(rows, "Geschlecht", genders, total)
	rows = appendCounts(rows, "Bezirk", districts, total)

	rows = append(rows, []string{"Historie", "Eintraege", strconv.Itoa(stats.HistoryEntries), missingCell})
	changeTypes := make([]string, 0, len(stats.ByChangeType))
	for ct := range stats.ByChangeType {
		changeTypes = append(changeTypes, string(ct))
	}
	sort.Strings(changeTypes)
	for _, ct := range changeTypes {
		rows = append(rows, []string{"Historie", ct, strconv.Itoa(stats.ByChangeType[player.ChangeType(ct)]), missingCell})
	}

	return w.WriteAll(rows)
}

func appendCounts(rows [][]string, category string, counts map[string]int, total int) [][]string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		label := k
		if label == "" {
			label = missingCell
		}
		rows = append(rows, []string{category, label, strconv.Itoa(counts[k]), shareCell(counts[k], total)})
	}
	return rows
}

func countTournaments(entry ranking.Entry) int {
	seen := make(map[string]struct{}, len(entry.Results))
	for _, r := range entry.Results {
		seen[r.TournamentKey] = struct{}{}
	}
	return len(seen)
}

func renderUnmatched(w *csv.Writer, in Input) error {
	if err := w.Write([]string{
		"Zeile", "Turnier", "Konkurrenz", "Platz", "Nachname", "Vorname", "Verein",
		"Bezirk", "Grund", "Spieler", "Kandidaten",
	}); err != nil {
		return err
	}
	for _, o := range in.Outcomes {
		if o.Kind != identity.KindNoMatch {
			continue
		}
		if err := w.Write([]string{
			strconv.Itoa(o.Row.Line), o.Row.Competition.TournamentKey, o.Row.Competition.Name,
			strconv.Itoa(o.Row.Position), o.Row.LastName, o.Row.FirstName, o.Row.Club,
			o.Row.District, string(o.Reason), o.PlayerID, strings.Join(o.Candidates, ","),
		}); err != nil {
			return err
		}
	}
	return nil
}

func renderFuzzy(w *csv.Writer, in Input) error {
	if err := w.Write([]string{
		"Zeile", "Art", "Regel", "Weg", "Nachname", "Vorname", "Verein",
		"Spieler", "Spieler_Nachname", "Spieler_Vorname", "Spieler_Verein",
	}); err != nil {
		return err
	}
	for _, o := range in.Outcomes {
		if !o.Fuzzy() {
			continue
		}
		if err := w.Write([]string{
			strconv.Itoa(o.Row.Line), string(o.Kind), o.Rule, string(o.MatchedVia),
			o.Row.LastName, o.Row.FirstName, o.Row.Club,
			o.PlayerID, o.Player.LastName, o.Player.FirstName, o.Player.Club,
		}); err != nil {
			return err
		}
	}
	return nil
}

type outcomeRecord struct {
	Line        int      `json:"line"`
	Tournament  string   `json:"tournament"`
	Competition string   `json:"competition"`
	Position    int      `json:"position"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Club        string   `json:"club"`
	FirstKey    string   `json:"first_key"`
	LastKey     string   `json:"last_key"`
	ClubKey     string   `json:"club_key"`
	Kind        string   `json:"kind"`
	Rule        string   `json:"rule,omitempty"`
	MatchedVia  string   `json:"matched_via,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	PlayerID    string   `json:"player_id,omitempty"`
	Candidates  []string `json:"candidates,omitempty"`
}

func renderOutcomes(outcomes []identity.Outcome) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for _, o := range outcomes {
		encoded, err := sonic.Marshal(outcomeRecord{
			Line:        o.Row.Line,
			Tournament:  o.Row.Competition.TournamentKey,
			Competition: o.Row.Competition.Name,
			Position:    o.Row.Position,
			FirstName:   o.Row.FirstName,
			LastName:    o.Row.LastName,
			Club:        o.Row.Club,
			FirstKey:    o.Keys.First.Strict,
			LastKey:     o.Keys.Last.Strict,
			ClubKey:     o.Keys.Club.Strict,
			Kind:        string(o.Kind),
			Rule:        o.Rule,
			MatchedVia:  string(o.MatchedVia),
			Reason:      string(o.Reason),
			PlayerID:    o.PlayerID,
			Candidates:  o.Candidates,
		})
		if err != nil {
			return nil, err
		}
		_, _ = buf.Write(encoded)
		_ = buf.WriteByte('\n')
	}
	return append([]byte(nil), buf.B...), nil
}

// WriteOutcomes streams outcomes as JSON lines.
func WriteOutcomes(w io.Writer, outcomes []identity.Outcome) error {
	content, err := renderOutcomes(outcomes)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}
