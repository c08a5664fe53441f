package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/ttbw/rangliste/internal/config"
	"github.com/ttbw/rangliste/internal/infrastructure/repository/sqlstore"
)

const dbPingTimeout = 5 * time.Second

// OpenDB opens the configured store with query tracing and verifies the
// connection.
func OpenDB(ctx context.Context, cfg config.Config) (*sqlx.DB, sqlstore.Dialect, error) {
	dialect, err := sqlstore.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, "", err
	}

	dsn, dbName := dataSource(cfg, dialect)
	db, err := otelsqlx.Open(dialect.DriverName(), dsn,
		otelsql.WithDBName(dbName),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", dialect, err)
	}

	switch dialect {
	case sqlstore.DialectSQLite:
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	default:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("ping %s: %w", dialect, err)
	}

	return db, dialect, nil
}

func dataSource(cfg config.Config, dialect sqlstore.Dialect) (dsn, dbName string) {
	if dialect == sqlstore.DialectSQLite {
		return sqlstore.SQLiteDSN(cfg.DBURL), sqliteDBName(cfg.DBURL)
	}
	return normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary), dbNameFromURL(cfg.DBURL)
}
