// Package migrations applies the embedded metadata schema
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/darkodi/url-diet/internal/logger"
)

//go:embed postgres/*.sql sqlite3/*.sql
var migrationsFS embed.FS

// Up runs all pending migrations for driver against db.
//
// The migrate instance is left open: closing it would close db, which
// the caller still owns.
func Up(db *sql.DB, driver string, log *logger.Logger) error {
	source, err := iofs.New(migrationsFS, driver)
	if err != nil {
		return fmt.Errorf("open migration source for %s: %w", driver, err)
	}

	var target database.Driver
	switch driver {
	case "postgres":
		target, err = postgres.WithInstance(db, &postgres.Config{})
	case "sqlite3":
		target, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	default:
		return fmt.Errorf("unsupported driver: %s", driver)
	}
	if err != nil {
		return fmt.Errorf("create %s migration driver: %w", driver, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driver, target)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debug("metadata schema is up to date", "driver", driver)
			return nil
		}
		return fmt.Errorf("run migrations: %w", err)
	}

	version, _, _ := m.Version()
	log.Info("metadata schema migrated", "driver", driver, "version", version)
	return nil
}
