package sqlstore

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

func (s *Store) migrator() (*migrate.Migrate, error) {
	var (
		driver database.Driver
		err    error
		dir    string
	)
	switch s.db.DriverName() {
	case Postgres:
		dir = "migrations/postgres"
		driver, err = postgres.WithInstance(s.db.DB, &postgres.Config{})
	case SQLite:
		dir = "migrations/sqlite"
		driver, err = sqlite.WithInstance(s.db.DB, &sqlite.Config{})
	default:
		return nil, fmt.Errorf("no migrations for driver %q", s.db.DriverName())
	}
	if err != nil {
		return nil, fmt.Errorf("could not create migration driver: %w", err)
	}
	src, err := iofs.New(migrations, dir)
	if err != nil {
		return nil, fmt.Errorf("could not read migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, s.db.DriverName(), driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance creation failed: %w", err)
	}
	return m, nil
}

// Migrate applies every pending schema migration.
func (s *Store) Migrate() error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		s.log.Info().Msg("no new database migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	s.log.Info().Msg("database migrations applied")
	return nil
}

// Version reports the current schema version.
func (s *Store) Version() (version uint, dirty bool, err error) {
	m, err := s.migrator()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
