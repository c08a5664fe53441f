package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/ttbw/rangliste/internal/domain/player"
	"github.com/ttbw/rangliste/internal/domain/ranking"
	"github.com/ttbw/rangliste/internal/domain/roster"
	"github.com/ttbw/rangliste/internal/domain/tournament"
	playermock "github.com/ttbw/rangliste/internal/mocks/domain/player"
	"github.com/ttbw/rangliste/internal/platform/logging"
)

func TestRosterService_IngestRoster_StoreFailureUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := playermock.NewRepository(t)
	storeErr := errors.New("connection reset")
	at := rosterBaseTime
	svc := newTestRosterService(repo, &sequenceIDs{}, &at)

	repo.
		On("Ingest", mock.MatchedBy(func(v context.Context) bool { return v == ctx }), mock.AnythingOfType("player.Planner")).
		Return(storeErr).
		Once()

	_, err := svc.IngestRoster(ctx, []roster.Row{rosterRow("Anna", "Löwe", "TTC Ulm", "Ulm", 2012)}, ranking.DefaultRules())
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestRosterService_IngestRoster_PlansAgainstCurrentUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := playermock.NewRepository(t)
	at := rosterBaseTime.Add(time.Hour)
	svc := newTestRosterService(repo, &sequenceIDs{}, &at)

	existing := player.Player{
		ID:        "p-old",
		FirstName: "Anna",
		LastName:  "Löwe",
		Club:      "TTC Ulm",
		District:  "Ulm",
		Region:    2,
		BirthYear: 2012,
		AgeClass:  13,
		Gender:     player.GenderFemale,
		Federation: "TTBW",
		CreatedAt:  rosterBaseTime,
		// Stored change time is ahead of the clock.
		UpdatedAt: rosterBaseTime.Add(2 * time.Hour),
	}

	var planned player.ChangeSet
	repo.
		On("Ingest", mock.Anything, mock.AnythingOfType("player.Planner")).
		Run(func(args mock.Arguments) {
			plan := args.Get(1).(player.Planner)
			changes, err := plan([]player.Player{existing})
			if err != nil {
				t.Errorf("plan: %v", err)
			}
			planned = changes
		}).
		Return(nil).
		Once()

	moved := rosterRow("Anna", "Löwe", "TSV Neu", "Ulm", 2012)
	summary, err := svc.IngestRoster(ctx, []roster.Row{moved}, ranking.DefaultRules())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if summary.Updated != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(planned.Updates) != 1 || len(planned.History) != 1 {
		t.Fatalf("unexpected change set: %+v", planned)
	}
	if !planned.History[0].ChangedAt.Equal(existing.UpdatedAt) {
		t.Fatalf("expected change time clamped to %s, got %s", existing.UpdatedAt, planned.History[0].ChangedAt)
	}
}

func TestRosterService_RemovePlayers_NothingRemovedUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := playermock.NewRepository(t)
	svc := NewRosterService(repo, &sequenceIDs{}, logging.NewNop())

	repo.
		On("Remove", mock.Anything, []string{"p1"}, mock.AnythingOfType("time.Time")).
		Return([]player.HistoryEntry{}, nil).
		Once()

	_, err := svc.RemovePlayers(ctx, []string{" p1 "})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMatchingService_SnapshotFailureUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := playermock.NewRepository(t)
	storeErr := errors.New("database is locked")
	svc := NewMatchingService(repo, nil, 2, logging.NewNop())

	repo.
		On("Snapshot", mock.Anything).
		Return(nil, storeErr).
		Once()

	_, err := svc.MatchResults(ctx, []tournament.ResultRow{{FirstName: "Anna", LastName: "Löwe", Position: 1}}, ranking.DefaultRules())
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected snapshot error, got %v", err)
	}
}
