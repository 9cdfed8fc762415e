// Package sqlstore persists the cost basis ledger in PostgreSQL or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/costbasis"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver
)

// Supported driver names.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver(SQLite, sqlx.QUESTION)
}

// Config holds database connection configuration.
type Config struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DefaultConfig returns a local SQLite configuration.
func DefaultConfig() Config {
	return Config{
		Driver:          SQLite,
		DSN:             "costbasis.db",
		MaxOpenConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Store is a costbasis.Store over a SQL database.
type Store struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// Open connects to the database described by cfg and checks it answers.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	dsn := cfg.DSN
	switch cfg.Driver {
	case Postgres:
	case SQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)"
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Driver == SQLite {
		// SQLite has a single writer, a second connection would only get SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Str("driver", cfg.Driver).Msg("database connection established")
	return New(db, log), nil
}

// New wraps an open database. Its driver name selects the SQL dialect.
func New(db *sqlx.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log}
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// DB returns the underlying database.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) postgres() bool { return s.db.DriverName() == Postgres }

// Update implements costbasis.Store.
func (s *Store) Update(ctx context.Context, fn func(w costbasis.Writer) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx, postgres: s.postgres()}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// View implements costbasis.Store.
func (s *Store) View(ctx context.Context, fn func(r costbasis.Reader) error) error {
	var opts *sql.TxOptions
	if s.postgres() {
		opts = &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead}
	}
	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback()
	return fn(&sqlTx{tx: tx, postgres: s.postgres()})
}

var _ costbasis.Store = (*Store)(nil)
