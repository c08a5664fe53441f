package usecase

import (
	"context"
	"fmt"

	"github.com/ttbw/rangliste/internal/domain/identity"
	"github.com/ttbw/rangliste/internal/domain/ranking"
	"github.com/ttbw/rangliste/internal/domain/tournament"
	"github.com/ttbw/rangliste/internal/platform/logging"
)

// RankingRun is the result of ranking a batch of tournament results.
type RankingRun struct {
	Match MatchReport
	Table ranking.Table
}

type RankingService struct {
	matching *MatchingService
	logger   *logging.Logger
}

func NewRankingService(matching *MatchingService, logger *logging.Logger) *RankingService {
	if logger == nil {
		logger = logging.Default()
	}
	return &RankingService{matching: matching, logger: logger}
}

// Aggregate ranks the scoring outcomes. Unmatched rows and rows of players
// outside the age window do not score.
func (s *RankingService) Aggregate(ctx context.Context, outcomes []identity.Outcome, rules ranking.Rules) (ranking.Table, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RankingService.Aggregate")
	defer span.End()

	if err := rules.Validate(); err != nil {
		return ranking.Table{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	scores := make([]ranking.Score, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.Scores() {
			continue
		}
		scores = append(scores, ranking.Score{
			Player:      o.Player,
			Competition: o.Row.Competition,
			Position:    o.Row.Position,
		})
	}

	table := ranking.Aggregate(scores, rules)
	s.logger.InfoContext(ctx, "ranking aggregated",
		"scores", len(scores),
		"players", table.Players(),
		"groups", len(table.Groups),
	)
	return table, nil
}

// Rank matches the result rows and aggregates the scoring outcomes.
func (s *RankingService) Rank(ctx context.Context, rows []tournament.ResultRow, rules ranking.Rules) (RankingRun, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RankingService.Rank")
	defer span.End()

	if s.matching == nil {
		return RankingRun{}, fmt.Errorf("%w: matching service is not configured", ErrDependencyUnavailable)
	}

	report, err := s.matching.MatchResults(ctx, rows, rules)
	if err != nil {
		return RankingRun{}, err
	}
	table, err := s.Aggregate(ctx, report.Outcomes, rules)
	if err != nil {
		return RankingRun{}, err
	}
	return RankingRun{Match: report, Table: table}, nil
}
