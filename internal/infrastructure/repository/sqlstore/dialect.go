package sqlstore

import (
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	qb "github.com/ttbw/rangliste/internal/platform/querybuilder"
)

// Dialect selects the SQL flavour of a store.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func init() {
	sqlx.BindDriver(string(DialectSQLite), sqlx.QUESTION)
}

func ParseDialect(raw string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported db driver %q (expected postgres or sqlite)", raw)
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

func (d Dialect) placeholders() qb.Placeholder {
	if d == DialectSQLite {
		return qb.Question
	}
	return qb.Dollar
}

// writeLock serializes ingestion runs. SQLite gets the same effect from
// BEGIN IMMEDIATE via the _txlock DSN parameter.
func (d Dialect) writeLock() string {
	if d == DialectPostgres {
		return "LOCK TABLE current_players IN SHARE ROW EXCLUSIVE MODE"
	}
	return ""
}

func (d Dialect) readTxOptions() *sql.TxOptions {
	if d == DialectPostgres {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

// maxBindParams bounds the number of parameters in one statement.
func (d Dialect) maxBindParams() int {
	if d == DialectSQLite {
		return 32766
	}
	return 65535
}

// SQLiteDSN builds a modernc.org/sqlite DSN for a database file with a busy
// timeout, foreign keys and immediate write transactions.
func SQLiteDSN(path string) string {
	params := url.Values{}
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Set("_txlock", "immediate")
	return filepath.Clean(path) + "?" + params.Encode()
}
