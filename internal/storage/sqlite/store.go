// Package sqlite implements the store factory: opening the embedded
// database, enabling WAL and referential integrity, and bringing each
// configured subsystem's schema up to date.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/hashicorp/go-hclog"

	"github.com/coderef/memoir/internal/storage/migrate"
)

// Subsystems selects which subsystems' migrations Open brings current.
type Subsystems string

// Supported subsystem sets.
const (
	SubsystemsAll    Subsystems = "all"
	SubsystemsMemory Subsystems = "memory"
	SubsystemsHistory Subsystems = "history"
	SubsystemsNone   Subsystems = "none"
)

// Store wraps an opened database handle. It is shared, not owned, by the
// repositories and services built on top of it; Close is explicit and is
// the caller's responsibility.
type Store struct {
	DB     *sql.DB
	Logger hclog.Logger
}

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	subsystems Subsystems
	logger     hclog.Logger
}

// WithSubsystems selects which subsystems to migrate on open. Defaults to
// SubsystemsAll.
func WithSubsystems(s Subsystems) Option {
	return func(c *openConfig) { c.subsystems = s }
}

// WithLogger supplies a logger for best-effort diagnostics. Defaults to a
// null logger so the core stays silent absent a host-provided sink.
func WithLogger(l hclog.Logger) Option {
	return func(c *openConfig) { c.logger = l }
}

// Open opens the database at path (":memory:" for an in-process store),
// enables WAL journaling and foreign key enforcement, probes whether a
// vector-search extension is available, and runs migrations for the
// configured subsystem set. The probe does not load any extension; an
// unavailable one is logged at debug and ignored.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	cfg := openConfig{
		subsystems: SubsystemsAll,
		logger:     hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy timeout: %w", err)
	}

	probeVectorExtension(ctx, db, cfg.logger)

	for _, s := range subsystemsFor(cfg.subsystems) {
		if err := migrate.ApplyPending(ctx, db, s); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: migrate subsystem %q: %w", s, err)
		}
	}

	return &Store{DB: db, Logger: cfg.logger}, nil
}

func subsystemsFor(s Subsystems) []migrate.Subsystem {
	switch s {
	case SubsystemsMemory:
		return []migrate.Subsystem{migrate.Memory}
	case SubsystemsHistory:
		return []migrate.Subsystem{migrate.History}
	case SubsystemsNone:
		return nil
	default:
		return []migrate.Subsystem{migrate.Memory, migrate.History}
	}
}

// probeVectorExtension attempts to confirm a vector-search extension is
// available. memoir reserves the embedding column but implements no vector
// behavior, so failure here is logged at debug and otherwise ignored, per
// spec: "Extension load failure: logged, ignored."
func probeVectorExtension(ctx context.Context, db *sql.DB, logger hclog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("vector extension probe panicked", "recover", r)
		}
	}()

	var version string
	if err := db.QueryRowContext(ctx, "SELECT vec_version()").Scan(&version); err != nil {
		logger.Debug("vector search extension unavailable, ignoring", "error", err)
	}
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if err := s.DB.Close(); err != nil {
		return fmt.Errorf("sqlite: close: %w", err)
	}
	return nil
}
