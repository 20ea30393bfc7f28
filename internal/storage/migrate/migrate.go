// Package migrate discovers, orders, checksums, and applies the embedded
// SQL migrations for memoir's two storage subsystems: memory and history.
//
// Each subsystem tracks its applied set independently in its own
// x_{subsystem}_migrations table, even though both subsystems may live in
// the same physical database file.
package migrate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

//go:embed memory/*.sql
var memoryFS embed.FS

//go:embed history/*.sql
var historyFS embed.FS

// Subsystem names an independently migrated schema.
type Subsystem string

// The two subsystems memoir's store factory knows how to bring up.
const (
	Memory  Subsystem = "memory"
	History Subsystem = "history"
)

var subsystemFS = map[Subsystem]embed.FS{
	Memory:  memoryFS,
	History: historyFS,
}

var filenamePattern = regexp.MustCompile(`^(\d{4,})_([a-z0-9_]+)\.sql$`)

// Migration is one embedded SQL file for a subsystem.
type Migration struct {
	Version     int
	Filename    string
	Description string
	SQL         string
	Checksum    string
}

// Mismatch reports that an applied migration's stored checksum no longer
// matches the checksum of its embedded file.
type Mismatch struct {
	Version        int
	Filename       string
	StoredChecksum string
	FileChecksum   string
}

func trackingTable(s Subsystem) string {
	return "x_" + string(s) + "_migrations"
}

// MigrationsFor returns the embedded migrations for a subsystem, sorted by
// version. It panics on a malformed embedded filename: that's a build-time
// defect in memoir itself, not a runtime condition callers can recover
// from.
func MigrationsFor(s Subsystem) []Migration {
	fsys, ok := subsystemFS[s]
	if !ok {
		panic(fmt.Sprintf("migrate: unknown subsystem %q", s))
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		panic(fmt.Sprintf("migrate: read embedded dir for %q: %v", s, err))
	}

	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m, err := parseMigration(fsys, entry.Name())
		if err != nil {
			panic(fmt.Sprintf("migrate: %v", err))
		}
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations
}

func parseMigration(fsys embed.FS, filename string) (Migration, error) {
	match := filenamePattern.FindStringSubmatch(filename)
	if match == nil {
		return Migration{}, fmt.Errorf("invalid migration filename %q (want NNNN_snake_case_description.sql)", filename)
	}

	version, err := strconv.Atoi(match[1])
	if err != nil {
		return Migration{}, fmt.Errorf("invalid migration version in %q: %w", filename, err)
	}

	raw, err := fsys.ReadFile(filename)
	if err != nil {
		return Migration{}, fmt.Errorf("read migration %q: %w", filename, err)
	}

	return Migration{
		Version:     version,
		Filename:    filename,
		Description: describe(match[2]),
		SQL:         string(raw),
		Checksum:    checksum(raw),
	}, nil
}

func describe(words string) string {
	return strings.ReplaceAll(words, "_", " ")
}

func checksum(contents []byte) string {
	sum := sha256.Sum256(contents)
	return hex.EncodeToString(sum[:])
}

// CurrentVersion reads MAX(version) from the subsystem's tracking table, or
// 0 if the table doesn't exist yet.
func CurrentVersion(ctx context.Context, db *sql.DB, s Subsystem) (int, error) {
	table := trackingTable(s)

	exists, err := tableExists(ctx, db, table)
	if err != nil {
		return 0, fmt.Errorf("migrate: check tracking table %q: %w", table, err)
	}
	if !exists {
		return 0, nil
	}

	var version sql.NullInt64
	query := fmt.Sprintf("SELECT MAX(version) FROM %s", table)
	if err := db.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return 0, fmt.Errorf("migrate: read current version from %q: %w", table, err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

func tableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func ensureTrackingTable(ctx context.Context, db *sql.DB, s Subsystem) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			filename TEXT NOT NULL,
			applied_at INTEGER NOT NULL DEFAULT (unixepoch()),
			checksum TEXT NOT NULL
		)`, trackingTable(s))
	_, err := db.ExecContext(ctx, ddl)
	if err != nil {
		return fmt.Errorf("migrate: create tracking table for %q: %w", s, err)
	}
	return nil
}

// ApplyPending brings the subsystem's schema up to the highest embedded
// version, applying each pending migration inside its own transaction.
// A failure aborts that migration and leaves the database at the previous
// version; migrations after the failed one are never attempted.
func ApplyPending(ctx context.Context, db *sql.DB, s Subsystem) error {
	if err := ensureTrackingTable(ctx, db, s); err != nil {
		return err
	}

	current, err := CurrentVersion(ctx, db, s)
	if err != nil {
		return err
	}

	table := trackingTable(s)
	for _, m := range MigrationsFor(s) {
		if m.Version <= current {
			continue
		}
		if err := applyOne(ctx, db, table, m); err != nil {
			return fmt.Errorf("migrate: apply %q (subsystem %q): %w", m.Filename, s, err)
		}
	}

	return nil
}

func applyOne(ctx context.Context, db *sql.DB, table string, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("execute migration sql: %w", err)
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (version, filename, applied_at, checksum) VALUES (?, ?, unixepoch(), ?)",
		table,
	)
	if _, err := tx.ExecContext(ctx, insert, m.Version, m.Filename, m.Checksum); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true

	return nil
}

// Validate compares the checksum of every applied migration against the
// checksum of its current embedded file and reports any divergence. An
// empty result means every applied migration still matches its source.
func Validate(ctx context.Context, db *sql.DB, s Subsystem) ([]Mismatch, error) {
	table := trackingTable(s)
	exists, err := tableExists(ctx, db, table)
	if err != nil {
		return nil, fmt.Errorf("migrate: check tracking table %q: %w", table, err)
	}
	if !exists {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT version, filename, checksum FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("migrate: read applied migrations from %q: %w", table, err)
	}
	defer rows.Close()

	byVersion := make(map[int]Migration)
	for _, m := range MigrationsFor(s) {
		byVersion[m.Version] = m
	}

	var mismatches []Mismatch
	for rows.Next() {
		var version int
		var filename, stored string
		if err := rows.Scan(&version, &filename, &stored); err != nil {
			return nil, fmt.Errorf("migrate: scan applied migration row: %w", err)
		}

		current, ok := byVersion[version]
		if !ok {
			continue
		}
		if current.Checksum != stored {
			mismatches = append(mismatches, Mismatch{
				Version:        version,
				Filename:       filename,
				StoredChecksum: stored,
				FileChecksum:   current.Checksum,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("migrate: iterate applied migrations: %w", err)
	}

	return mismatches, nil
}

// ValidateAll runs Validate for Memory and History concurrently and
// returns their combined mismatches, keyed by subsystem. Either
// subsystem's failure aborts the other via the shared error group.
func ValidateAll(ctx context.Context, db *sql.DB) (map[Subsystem][]Mismatch, error) {
	subsystems := []Subsystem{Memory, History}
	results := make([][]Mismatch, len(subsystems))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range subsystems {
		i, s := i, s
		g.Go(func() error {
			mismatches, err := Validate(gctx, db, s)
			if err != nil {
				return err
			}
			results[i] = mismatches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[Subsystem][]Mismatch, len(subsystems))
	for i, s := range subsystems {
		out[s] = results[i]
	}
	return out, nil
}
