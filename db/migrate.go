package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migration files follow the golang-migrate naming convention:
//
//	000001_description.up.sql   - applies the migration
//	000001_description.down.sql - reverts the migration
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// withMigrator runs fn against a migrator bound to one connection taken from db's pool. The
// migrator and that connection are released when fn returns; db itself stays open.
func withMigrator(ctx context.Context, db *sql.DB, fn func(*migrate.Migrate) error) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("failed to reserve migration connection: %w", err)
	}
	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		_ = src.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.Warn("failed to close migrator",
				slog.Any("source_err", srcErr),
				slog.Any("db_err", dbErr),
				slog.String("component", "db_migrate"))
		}
	}()
	return fn(m)
}

// Migrate applies all pending migrations. It is idempotent and safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	return withMigrator(ctx, db, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				slog.Info("database schema is up to date", slog.String("component", "db_migrate"))
				return nil
			}
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		version, dirty, err := m.Version()
		if err != nil {
			slog.Warn("could not determine migration version", slog.Any("error", err), slog.String("component", "db_migrate"))
			return nil
		}
		if dirty {
			return fmt.Errorf("database is in dirty state at version %d - manual intervention required", version)
		}

		slog.Info("migrations applied successfully",
			slog.Uint64("version", uint64(version)),
			slog.String("component", "db_migrate"))
		return nil
	})
}

// MigrationVersion returns the applied migration version and dirty state; 0 when none is applied.
func MigrationVersion(ctx context.Context, db *sql.DB) (version uint, dirty bool, err error) {
	err = withMigrator(ctx, db, func(m *migrate.Migrate) error {
		v, d, err := m.Version()
		if err != nil {
			if errors.Is(err, migrate.ErrNilVersion) {
				return nil
			}
			return fmt.Errorf("failed to get migration version: %w", err)
		}
		version, dirty = v, d
		return nil
	})
	return version, dirty, err
}

// CheckSchema fails when no migration has been applied or the last one left the schema dirty.
func CheckSchema(ctx context.Context, db *sql.DB) error {
	version, dirty, err := MigrationVersion(ctx, db)
	if err != nil {
		return err
	}
	return schemaState(version, dirty)
}

func schemaState(version uint, dirty bool) error {
	switch {
	case version == 0:
		return errors.New("no migrations applied")
	case dirty:
		return fmt.Errorf("schema dirty at version %d", version)
	}
	return nil
}
