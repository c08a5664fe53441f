package sqlstore

import (
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/ttbw/rangliste/internal/infrastructure/repository/sqlstore/migrations"
)

// NewMigrator builds a migrator over the embedded migrations of the dialect.
// Closing the migrator closes db.
func NewMigrator(db *sql.DB, dialect Dialect) (*migrate.Migrate, error) {
	source, err := iofs.New(migrations.FS, string(dialect))
	if err != nil {
		return nil, errors.Wrapf(err, "open %s migrations", dialect)
	}

	var driver database.Driver
	switch dialect {
	case DialectPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case DialectSQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return nil, errors.Newf("unsupported dialect %q", dialect)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "create %s migration driver", dialect)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(dialect), driver)
	if err != nil {
		return nil, errors.Wrap(err, "create migrator")
	}
	return m, nil
}

// Migrate applies all pending migrations. The migrator is left open because
// closing it would close db.
func Migrate(db *sql.DB, dialect Dialect) error {
	m, err := NewMigrator(db, dialect)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}
