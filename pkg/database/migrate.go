package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsTable keeps the location schema's version apart from any other
// service sharing the database
const migrationsTable = "location_schema_migrations"

// ErrDirtyMigration a previous run stopped half way through a migration.
// The location tables may be partly seeded, so startup is refused until an
// operator forces the version.
var ErrDirtyMigration = errors.New("location schema migration is dirty")

// RunMigrations creates the province/district/sub-district/zip tables and
// loads the seed rows, applying whatever is pending.
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load location migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	m.Log = &migrateLogger{logger: logger.Named("migrate")}

	before, dirty, err := m.Version()
	if err := checkVersion(before, dirty, err); err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply location migrations: %w", err)
	}

	after, dirty, err := m.Version()
	if err := checkVersion(after, dirty, err); err != nil {
		return err
	}

	if after == before {
		logger.Info("location schema up to date", zap.Uint("version", after))
	} else {
		logger.Info("location schema migrated", zap.Uint("from", before), zap.Uint("to", after))
	}
	return nil
}

// checkVersion treats an empty database as version 0 and a dirty one as fatal
func checkVersion(version uint, dirty bool, err error) error {
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read location schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("%w at version %d", ErrDirtyMigration, version)
	}
	return nil
}

// migrateLogger routes golang-migrate progress to zap at debug level
type migrateLogger struct {
	logger *zap.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return l.logger.Core().Enabled(zap.DebugLevel)
}
