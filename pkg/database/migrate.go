package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/migrations"
)

// RunMigrations applies the embedded migrations for the driver of db.
// The migrate instance is not closed since that would close db as well.
func RunMigrations(db *sqlx.DB) error {
	const op = "database.RunMigrations"

	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("%s: failed to initialize migrations: %w", op, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	return nil
}

// RollbackMigrations reverts every applied migration of db.
func RollbackMigrations(db *sqlx.DB) error {
	const op = "database.RollbackMigrations"

	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("%s: failed to initialize migrations: %w", op, err)
	}

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: failed to rollback migrations: %w", op, err)
	}

	return nil
}

func newMigrate(db *sqlx.DB) (*migrate.Migrate, error) {
	var (
		dir      string
		instance migratedb.Driver
		err      error
	)

	switch db.DriverName() {
	case DriverPostgres:
		dir = migrations.PostgresDir
		instance, err = postgres.WithInstance(db.DB, &postgres.Config{})
	case DriverSQLite:
		dir = migrations.SQLiteDir
		instance, err = sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	default:
		return nil, fmt.Errorf("unsupported driver %q", db.DriverName())
	}
	if err != nil {
		return nil, err
	}

	src, err := iofs.New(migrations.FS, dir)
	if err != nil {
		return nil, err
	}

	return migrate.NewWithInstance("iofs", src, db.DriverName(), instance)
}
