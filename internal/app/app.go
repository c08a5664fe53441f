package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ttbw/rangliste/internal/config"
	"github.com/ttbw/rangliste/internal/domain/identity"
	"github.com/ttbw/rangliste/internal/domain/player"
	"github.com/ttbw/rangliste/internal/domain/ranking"
	cacherepo "github.com/ttbw/rangliste/internal/infrastructure/repository/cache"
	"github.com/ttbw/rangliste/internal/infrastructure/repository/sqlstore"
	"github.com/ttbw/rangliste/internal/interfaces/report"
	basecache "github.com/ttbw/rangliste/internal/platform/cache"
	"github.com/ttbw/rangliste/internal/platform/id"
	"github.com/ttbw/rangliste/internal/platform/logging"
	"github.com/ttbw/rangliste/internal/usecase"
)

// App holds the wired services for one CLI invocation.
type App struct {
	Config  config.Config
	Logger  *logging.Logger
	Rules   ranking.Rules
	Players player.Repository
	Roster  *usecase.RosterService
	Match   *usecase.MatchingService
	Ranking *usecase.RankingService
	Reports *report.Writer

	db *sqlx.DB
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	rules, err := loadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	db, dialect, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.DBAutoMigrate {
		if err := sqlstore.Migrate(db.DB, dialect); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate %s store: %w", dialect, err)
		}
	}

	var players player.Repository = sqlstore.NewPlayerRepository(db, dialect)
	if cfg.CacheEnabled {
		players = cacherepo.NewPlayerRepository(players, basecache.NewStore(cfg.CacheTTL))
	}

	matching := usecase.NewMatchingService(players, identity.NewMatcher(), cfg.MatchWorkers, logger)

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Rules:   rules,
		Players: players,
		Roster:  usecase.NewRosterService(players, id.NewUUIDGenerator(), logger),
		Match:   matching,
		Ranking: usecase.NewRankingService(matching, logger),
		Reports: report.NewWriter(cfg.ReportDir, cfg.CSVDelimiter, logger),
		db:      db,
	}

	logger.Debug("app initialized",
		"db_driver", string(dialect),
		"cache_enabled", cfg.CacheEnabled,
		"rules_file", cfg.RulesFile,
		"tournaments", len(rules.Tournaments),
	)
	return a, nil
}

func (a *App) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func loadRules(path string) (ranking.Rules, error) {
	if path == "" {
		return ranking.DefaultRules(), nil
	}
	rules, err := ranking.LoadRules(path)
	if err != nil {
		return ranking.Rules{}, fmt.Errorf("load rules %q: %w", path, err)
	}
	return rules, nil
}
