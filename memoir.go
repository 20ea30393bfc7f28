// Package memoir is a local, repository-scoped knowledge store embedded
// in a coding-assistant host. It preserves project memories and session
// history chunks across sessions, and exposes both as an importable Go
// library.
package memoir

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/coderef/memoir/internal/adapter"
	"github.com/coderef/memoir/internal/chunk"
	"github.com/coderef/memoir/internal/config"
	"github.com/coderef/memoir/internal/memory"
	"github.com/coderef/memoir/internal/search"
	"github.com/coderef/memoir/internal/storage/sqlite"
	"github.com/coderef/memoir/internal/tracker"
)

// App wires the persistence engine, search layer, message tracker, and
// both service façades over a single opened database handle. Build one
// with Open and call Close when the host shuts down.
type App struct {
	store    *sqlite.Store
	Memory   *memory.Service
	Chunk    *chunk.Service
	Tracker  *tracker.Tracker
	Adapter  *adapter.Adapter
	Settings config.Settings
}

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	settings   config.Settings
	logger     hclog.Logger
	subsystems sqlite.Subsystems
}

// WithSettings supplies the resolved configuration record the host has
// already decided on. Defaults to config.Default().
func WithSettings(s config.Settings) Option {
	return func(c *openConfig) { c.settings = s }
}

// WithLogger supplies a logger for best-effort diagnostics. Defaults to a
// null logger.
func WithLogger(l hclog.Logger) Option {
	return func(c *openConfig) { c.logger = l }
}

// Open opens (and migrates) the database at path and wires the full
// service graph over it. path is passed straight through to the store
// factory; ":memory:" builds a transient in-process store.
func Open(ctx context.Context, path string, opts ...Option) (*App, error) {
	cfg := openConfig{
		settings:   config.Default(),
		logger:     hclog.NewNullLogger(),
		subsystems: sqlite.SubsystemsAll,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	store, err := sqlite.Open(ctx, path, sqlite.WithLogger(cfg.logger), sqlite.WithSubsystems(cfg.subsystems))
	if err != nil {
		return nil, fmt.Errorf("memoir: open: %w", err)
	}

	memRepo := sqlite.NewMemoryRepo(store.DB)
	memSearch := search.NewMemoryEngine(store.DB)
	memSvc := memory.New(memRepo, memSearch, cfg.settings.Memory)

	chunkRepo := sqlite.NewChunkRepo(store.DB)
	tree := sqlite.NewTreeEngine(store.DB, chunkRepo)
	chunkSearch := search.NewChunkEngine(store.DB)
	msgTracker := tracker.New()
	chunkSvc := chunk.New(chunkRepo, tree, msgTracker, chunkSearch, cfg.settings.Memory)

	return &App{
		store:    store,
		Memory:   memSvc,
		Chunk:    chunkSvc,
		Tracker:  msgTracker,
		Adapter:  adapter.New(memSvc, chunkSvc, msgTracker),
		Settings: cfg.settings,
	}, nil
}

// Close releases the underlying database handle.
func (a *App) Close() error {
	return a.store.Close()
}

// DB exposes the underlying database handle for callers that need
// cross-cutting queries the service façades don't model (migration
// validation, ad hoc diagnostics).
func (a *App) DB() *sql.DB {
	return a.store.DB
}
