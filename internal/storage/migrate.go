package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	_ "github.com/lib/pq"
	"github.com/pressly/goose"
)

// goose dialect per configured driver
var gooseDialects = map[string]string{
	"postgres": "postgres",
	"sqlite":   "sqlite3",
}

// OpenMigrationDB opens a database/sql handle for driver, suitable for Migrate.
// Postgres migrations go through lib/pq; the pgx pool stays dedicated to queries.
func OpenMigrationDB(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case "postgres":
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	case "sqlite":
		s, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return s.DB(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

// Migrate applies every pending migration under dir/<driver>.
func Migrate(db *sql.DB, driver, dir string) error {
	dialect, ok := gooseDialects[driver]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	path := filepath.Join(dir, driver)
	slog.Info("storage: applying migrations", "driver", driver, "dir", path)
	if err := goose.Up(db, path); err != nil {
		return fmt.Errorf("migrate %s: %w", driver, err)
	}
	return nil
}

// MigrationStatus prints the applied state of each migration.
func MigrationStatus(db *sql.DB, driver, dir string) error {
	dialect, ok := gooseDialects[driver]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return goose.Status(db, filepath.Join(dir, driver))
}
