package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ttbw/rangliste/internal/domain/player"
	"github.com/ttbw/rangliste/internal/domain/ranking"
	"github.com/ttbw/rangliste/internal/domain/roster"
	"github.com/ttbw/rangliste/internal/infrastructure/repository/memory"
	"github.com/ttbw/rangliste/internal/platform/logging"
)

var rosterBaseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type sequenceIDs struct {
	next   int
	failAt int
}

func (g *sequenceIDs) NewID() (string, error) {
	g.next++
	if g.failAt > 0 && g.next == g.failAt {
		return "", errors.New("id source exhausted")
	}
	return fmt.Sprintf("p%03d", g.next), nil
}

func newTestRosterService(repo player.Repository, ids *sequenceIDs, at *time.Time) *RosterService {
	svc := NewRosterService(repo, ids, logging.NewNop())
	svc.now = func() time.Time { return *at }
	return svc
}

func rosterRow(first, last, club, district string, birthYear int) roster.Row {
	return roster.Row{
		FirstName: first,
		LastName:  last,
		Club:      club,
		District:  district,
		BirthYear: birthYear,
		Gender:    player.GenderFemale,
	}
}

func intPtr(v int) *int { return &v }

func TestRosterService_IngestRoster_IsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewPlayerRepository()
	at := rosterBaseTime
	svc := newTestRosterService(repo, &sequenceIDs{}, &at)
	rules := ranking.DefaultRules()
	rows := []roster.Row{
		rosterRow("Anna", "Löwe", "TTC Ulm", "Ulm", 2012),
		rosterRow("Ben", "D'Elia", "SV Blau", "Stuttgart", 2010),
	}

	first, err := svc.IngestRoster(ctx, rows, rules)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.Inserted != 2 || first.HistoryWritten != 2 || first.Updated != 0 {
		t.Fatalf("unexpected first summary: %+v", first)
	}

	at = rosterBaseTime.Add(24 * time.Hour)
	second, err := svc.IngestRoster(ctx, rows, rules)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.Unchanged != 2 || second.HistoryWritten != 0 || second.Inserted != 0 || second.Rederived != 0 {
		t.Fatalf("expected unchanged re-ingest, got %+v", second)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.CurrentPlayers != 2 || stats.HistoryEntries != 2 {
		t.Fatalf("unexpected store stats: %+v", stats)
	}
}

func TestRosterService_IngestRoster_ClubChangeIsTracked(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewPlayerRepository()
	at := rosterBaseTime
	svc := newTestRosterService(repo, &sequenceIDs{}, &at)
	rules := ranking.DefaultRules()

	if _, err := svc.IngestRoster(ctx, []roster.Row{rosterRow("Anna", "Löwe", "TTC Ulm", "Ulm", 2012)}, rules); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	at = rosterBaseTime.Add(48 * time.Hour)
	summary, err := svc.IngestRoster(ctx, []roster.Row{rosterRow("Anna", "Loewe", "TSV Neu", "Stuttgart", 2012)}, rules)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if summary.Updated != 1 || summary.HistoryWritten != 1 || summary.Inserted != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	history, err := svc.History(ctx, "p001")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	update := history[1]
	if update.ChangeType != player.ChangeUpdate || update.PreviousClub != "TTC Ulm" || update.PreviousDistrict != "Ulm" {
		t.Fatalf("unexpected update entry: %+v", update)
	}
	if !update.ChangedAt.Equal(at) {
		t.Fatalf("expected change at %s, got %s", at, update.ChangedAt)
	}

	replayed, deleted, err := player.Replay(history)
	if err != nil || deleted {
		t.Fatalf("replay: deleted=%v err=%v", deleted, err)
	}
	snap, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	got, _ := snap.GetCurrent("p001")
	if !player.TrackedEqual(replayed, got) {
		t.Fatalf("replay %+v differs from current %+v", replayed, got)
	}
	if got.Region != 5 {
		t.Fatalf("expected region to follow the new district, got %d", got.Region)
	}
}

func TestRosterService_IngestRoster_RederivesWithoutHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewPlayerRepository()
	at := rosterBaseTime
	svc := newTestRosterService(repo, &sequenceIDs{}, &at)
	rows := []roster.Row{rosterRow("Anna", "Löwe", "TTC Ulm", "Ulm", 2012)}

	if _, err := svc.IngestRoster(ctx, rows, ranking.DefaultRules()); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	nextSeason := ranking.DefaultRules()
	nextSeason.AgeClasses = map[int]int{2008: 19, 2010: 15, 2011: 15, 2012: 15, 2013: 13, 2014: 13, 2015: 11}
	at = rosterBaseTime.Add(365 * 24 * time.Hour)

	summary, err := svc.IngestRoster(ctx, rows, nextSeason)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if summary.Rederived != 1 || summary.HistoryWritten != 0 || summary.Unchanged != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	snap, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	got, _ := snap.GetCurrent("p001")
	if got.AgeClass != 15 {
		t.Fatalf("expected age class 15, got %d", got.AgeClass)
	}
	if !got.UpdatedAt.Equal(rosterBaseTime) {
		t.Fatalf("rederive must keep updated_at, got %s", got.UpdatedAt)
	}
}

func TestRosterService_IngestRoster_SkipsInvalidRows(t *testing.T) {
	t.Parallel()

	repo := memory.NewPlayerRepository()
	at := rosterBaseTime
	svc := newTestRosterService(repo, &sequenceIDs{}, &at)

	summary, err := svc.IngestRoster(context.Background(), []roster.Row{
		rosterRow("Anna", "Löwe", "TTC Ulm", "Ulm", 2012),
		rosterRow("Ben", "   ", "TTC Ulm", "Ulm", 2012),
		{FirstName: "Cleo", LastName: "Kurz", Gender: player.Gender("X")},
	}, ranking.DefaultRules())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if summary.Rows != 3 || summary.Inserted != 1 || summary.Skipped != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Defects) != 2 || summary.Defects[0].Line != 2 || summary.Defects[1].Line != 3 {
		t.Fatalf("unexpected defects: %+v", summary.Defects)
	}
}

func TestRosterService_IngestRoster_BlankBirthYearUsesDefault(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewPlayerRepository()
	at := rosterBaseTime
	svc := newTestRosterService(repo, &sequenceIDs{}, &at)
	rules := ranking.DefaultRules()

	if _, err := svc.IngestRoster(ctx, []roster.Row{rosterRow("Anna", "Löwe", "TTC Ulm", "Ulm", 0)}, rules); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	snap, _ := repo.Snapshot(ctx)
	got, _ := snap.GetCurrent("p001")
	if got.BirthYear != rules.DefaultBirthYear || got.AgeClass != 11 || got.Federation != "TTBW" {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestRosterService_IngestRoster_SameBatchRowsCollapse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewPlayerRepository()
	at := rosterBaseTime
	svc := newTestRosterService(repo, &sequenceIDs{}, &at)

	rated := rosterRow("Anna", "Löwe", "TTC Ulm", "Ulm", 2012)
	rated.Rating = intPtr(1320)
	summary, err := svc.IngestRoster(ctx, []roster.Row{
		rosterRow("Anna", "Löwe", "TTC Ulm", "Ulm", 2012),
		rated,
		rosterRow("Max", "Müller", "TTC A", "Ulm", 2011),
		rosterRow("Max", "Müller", "TTC B", "Ulm", 2011),
	}, ranking.DefaultRules())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if summary.Inserted != 3 || summary.Updated != 1 || summary.HistoryWritten != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	history, err := svc.History(ctx, "p001")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].ChangeType != player.ChangeInsert {
		t.Fatalf("expected a single insert entry, got %+v", history)
	}
	if history[0].State.Rating == nil || *history[0].State.Rating != 1320 {
		t.Fatalf("expected insert entry to carry the final batch state, got %+v", history[0].State)
	}
}

func TestRosterService_IngestRoster_RoundTripInBatchWritesNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewPlayerRepository()
	at := rosterBaseTime
	svc := newTestRosterService(repo, &sequenceIDs{}, &at)
	rules := ranking.DefaultRules()

	base := rosterRow("Anna", "Löwe", "TTC Ulm", "Ulm", 2012)
	base.LicenseNumber = "L-1"
	if _, err := svc.IngestRoster(ctx, []roster.Row{base}, rules); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	moved := base
	moved.Club = "TSV Neu"
	at = rosterBaseTime.Add(time.Hour)
	summary, err := svc.IngestRoster(ctx, []roster.Row{moved, base}, rules)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if summary.HistoryWritten != 0 {
		t.Fatalf("expected no history for a net-zero batch, got %+v", summary)
	}
}

func TestRosterService_IngestRoster_LicenseNumberWinsOverName(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewPlayerRepository()
	at := rosterBaseTime
	svc := newTestRosterService(repo, &sequenceIDs{}, &at)
	rules := ranking.DefaultRules()

	before := rosterRow("Anna", "Löwe", "TTC Ulm", "Ulm", 2012)
	before.LicenseNumber = "L-77"
	if _, err := svc.IngestRoster(ctx, []roster.Row{before}, rules); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	after := rosterRow("Anna", "Richter", "TSV Neu", "Donau", 2012)
	after.LicenseNumber = "L-77"
	at = rosterBaseTime.Add(time.Hour)
	summary, err := svc.IngestRoster(ctx, []roster.Row{after}, rules)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if summary.Updated != 1 || summary.Inserted != 0 {
		t.Fatalf("expected license match to update, got %+v", summary)
	}
}

func TestRosterService_IngestRoster_DistinctLicensesStaySeparate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewPlayerRepository()
	at := rosterBaseTime
	svc := newTestRosterService(repo, &sequenceIDs{}, &at)
	rules := ranking.DefaultRules()

	father := rosterRow("Michael", "Bauer", "TTC Ulm", "Ulm", 2010)
	father.LicenseNumber = "L1"
	son := rosterRow("Michael", "Bauer", "TTC Ulm", "Ulm", 2014)
	son.LicenseNumber = "L2"
	rows := []roster.Row{father, son}

	first, err := svc.IngestRoster(ctx, rows, rules)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.Inserted != 2 || first.Updated != 0 {
		t.Fatalf("expected two inserts, got %+v", first)
	}

	at = rosterBaseTime.Add(time.Hour)
	second, err := svc.IngestRoster(ctx, rows, rules)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.Unchanged != 2 || second.HistoryWritten != 0 {
		t.Fatalf("expected idempotent re-ingest, got %+v", second)
	}

	snap, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	byLicense := map[string]int{}
	for _, p := range snap.Players() {
		byLicense[p.LicenseNumber] = p.BirthYear
	}
	if len(byLicense) != 2 || byLicense["L1"] != 2010 || byLicense["L2"] != 2014 {
		t.Fatalf("unexpected players by license: %v", byLicense)
	}
}

func TestRosterService_IngestRoster_IDFailureLeavesStoreUnchanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewPlayerRepository()
	at := rosterBaseTime
	svc := newTestRosterService(repo, &sequenceIDs{failAt: 2}, &at)

	_, err := svc.IngestRoster(ctx, []roster.Row{
		rosterRow("Anna", "Löwe", "TTC Ulm", "Ulm", 2012),
		rosterRow("Ben", "Kurz", "TTC Ulm", "Ulm", 2012),
	}, ranking.DefaultRules())
	if err == nil {
		t.Fatalf("expected ingest to fail")
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.CurrentPlayers != 0 || stats.HistoryEntries != 0 {
		t.Fatalf("expected empty store after failed batch, got %+v", stats)
	}
}

func TestRosterService_RemovePlayers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewPlayerRepository()
	at := rosterBaseTime
	svc := newTestRosterService(repo, &sequenceIDs{}, &at)
	if _, err := svc.IngestRoster(ctx, []roster.Row{rosterRow("Anna", "Löwe", "TTC Ulm", "Ulm", 2012)}, ranking.DefaultRules()); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if _, err := svc.RemovePlayers(ctx, []string{" ", ""}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.RemovePlayers(ctx, []string{"missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	at = rosterBaseTime.Add(time.Hour)
	removed, err := svc.RemovePlayers(ctx, []string{"p001", "p001"})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(removed) != 1 || removed[0].ChangeType != player.ChangeDelete {
		t.Fatalf("unexpected removal: %+v", removed)
	}

	history, err := svc.History(ctx, "p001")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if _, deleted, err := player.Replay(history); err != nil || !deleted {
		t.Fatalf("expected deleted replay, deleted=%v err=%v", deleted, err)
	}
}

func TestRosterService_StatsAndRecentChanges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewPlayerRepository()
	at := rosterBaseTime
	svc := newTestRosterService(repo, &sequenceIDs{}, &at)
	rules := ranking.DefaultRules()
	if _, err := svc.IngestRoster(ctx, []roster.Row{
		rosterRow("Anna", "Löwe", "TTC Ulm", "Ulm", 2012),
		rosterRow("Olga", "Alt", "TTC Ulm", "Ulm", 2001),
		rosterRow("Ida", "Fern", "TTC Fremd", "Irgendwo", 2012),
	}, rules); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	stats, err := svc.Stats(ctx, rules)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.CurrentPlayers != 3 || stats.Eligible != 2 || stats.TooOld != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.ByRegion[2] != 2 || stats.ByRegion[0] != 1 {
		t.Fatalf("unexpected region counts: %+v", stats.ByRegion)
	}

	recent, err := svc.RecentChanges(ctx, 0)
	if err != nil {
		t.Fatalf("recent changes: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 recent changes, got %d", len(recent))
	}
	if _, err := svc.RecentChanges(ctx, maxRecentChanges+1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for oversized limit, got %v", err)
	}
}
