package usecase

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/ttbw/rangliste/internal/domain/identity"
	"github.com/ttbw/rangliste/internal/domain/player"
	"github.com/ttbw/rangliste/internal/domain/ranking"
	"github.com/ttbw/rangliste/internal/domain/tournament"
	"github.com/ttbw/rangliste/internal/platform/logging"
)

// MatchSummary counts outcomes of one batch.
type MatchSummary struct {
	Rows     int
	Scoring  int
	ByKind   map[identity.Kind]int
	ByReason map[identity.Reason]int
}

// MatchReport holds one outcome per input row, in input order.
type MatchReport struct {
	Outcomes []identity.Outcome
	Summary  MatchSummary
}

type MatchingService struct {
	repo    player.Repository
	matcher *identity.Matcher
	workers int
	logger  *logging.Logger
}

func NewMatchingService(repo player.Repository, matcher *identity.Matcher, workers int, logger *logging.Logger) *MatchingService {
	if matcher == nil {
		matcher = identity.NewMatcher()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchingService{
		repo:    repo,
		matcher: matcher,
		workers: workers,
		logger:  logger,
	}
}

// MatchResults resolves every result row against one consistent snapshot of
// the store. Matching never writes to the store.
func (s *MatchingService) MatchResults(ctx context.Context, rows []tournament.ResultRow, rules ranking.Rules) (MatchReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchingService.MatchResults")
	defer span.End()

	if s.repo == nil {
		return MatchReport{}, fmt.Errorf("%w: player store is not configured", ErrDependencyUnavailable)
	}
	if err := rules.Validate(); err != nil {
		return MatchReport{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return MatchReport{}, fmt.Errorf("load player snapshot: %w", err)
	}

	outcomes, err := s.matchAll(ctx, rows, snap, rules)
	if err != nil {
		return MatchReport{}, err
	}

	report := MatchReport{Outcomes: outcomes, Summary: summarizeOutcomes(outcomes)}
	for _, o := range outcomes {
		if o.Reason == identity.ReasonAmbiguous {
			s.logger.WarnContext(ctx, "ambiguous result row",
				"line", o.Row.Line,
				"first_name", o.Row.FirstName,
				"last_name", o.Row.LastName,
				"club", o.Row.Club,
				"candidates", o.Candidates,
			)
		}
	}
	s.logger.InfoContext(ctx, "result rows matched",
		"rows", report.Summary.Rows,
		"scoring", report.Summary.Scoring,
		"exact", report.Summary.ByKind[identity.KindExactCurrent],
		"fuzzy", report.Summary.ByKind[identity.KindFuzzyCurrent],
		"historical", report.Summary.ByKind[identity.KindHistorical],
		"no_match", report.Summary.ByKind[identity.KindNoMatch],
	)
	return report, nil
}

func (s *MatchingService) matchAll(ctx context.Context, rows []tournament.ResultRow, snap *player.Snapshot, rules ranking.Rules) ([]identity.Outcome, error) {
	outcomes := make([]identity.Outcome, len(rows))
	if len(rows) == 0 {
		return outcomes, nil
	}

	pool, err := ants.NewPool(min(s.workers, len(rows)))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for i := range rows {
		if err := ctx.Err(); err != nil {
			workers.Wait()
			return nil, err
		}

		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			outcomes[i] = s.matchRow(ctx, rows[i], snap, rules)
		}); err != nil {
			workers.Done()
			workers.Wait()
			return nil, fmt.Errorf("submit task to worker pool: %w", err)
		}
	}
	workers.Wait()
	return outcomes, nil
}

func (s *MatchingService) matchRow(ctx context.Context, row tournament.ResultRow, snap *player.Snapshot, rules ranking.Rules) identity.Outcome {
	if err := row.Validate(); err != nil {
		s.logger.WarnContext(ctx, "skip result row", "line", row.Line, "error", err)
		return identity.Outcome{
			Row:    row,
			Keys:   identity.KeysFor(row),
			Kind:   identity.KindNoMatch,
			Reason: identity.ReasonInvalidRow,
		}
	}
	return s.matcher.Match(row, snap, rules)
}

func summarizeOutcomes(outcomes []identity.Outcome) MatchSummary {
	summary := MatchSummary{
		Rows:     len(outcomes),
		ByKind:   make(map[identity.Kind]int),
		ByReason: make(map[identity.Reason]int),
	}
	for _, o := range outcomes {
		summary.ByKind[o.Kind]++
		if o.Reason != identity.ReasonNone {
			summary.ByReason[o.Reason]++
		}
		if o.Scores() {
			summary.Scoring++
		}
	}
	return summary
}
