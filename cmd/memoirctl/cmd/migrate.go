package cmd

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/spf13/cobra"

	"github.com/coderef/memoir/internal/storage/migrate"
)

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	GroupID: "migrate",
	Short:   "Inspect and apply schema migrations",
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current migration version per subsystem",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openRawDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		for _, s := range []migrate.Subsystem{migrate.Memory, migrate.History} {
			current, err := migrate.CurrentVersion(ctx, db, s)
			if err != nil {
				return fmt.Errorf("migrate status: %s: %w", s, err)
			}
			latest := 0
			for _, m := range migrate.MigrationsFor(s) {
				if m.Version > latest {
					latest = m.Version
				}
			}
			fmt.Printf("%-8s current=%d latest=%d\n", s, current, latest)
		}
		return nil
	},
}

var migrateApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply all pending migrations for both subsystems",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openRawDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		for _, s := range []migrate.Subsystem{migrate.Memory, migrate.History} {
			if err := migrate.ApplyPending(ctx, db, s); err != nil {
				return fmt.Errorf("migrate apply: %s: %w", s, err)
			}
			fmt.Printf("%-8s up to date\n", s)
		}
		return nil
	},
}

var migrateValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check applied migration checksums against the embedded files",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openRawDB()
		if err != nil {
			return err
		}
		defer db.Close()

		results, err := migrate.ValidateAll(cmd.Context(), db)
		if err != nil {
			return fmt.Errorf("migrate validate: %w", err)
		}

		clean := true
		for _, s := range []migrate.Subsystem{migrate.Memory, migrate.History} {
			mismatches := results[s]
			if len(mismatches) == 0 {
				fmt.Printf("%-8s ok\n", s)
				continue
			}
			clean = false
			for _, m := range mismatches {
				fmt.Printf("%-8s MISMATCH version=%d file=%s stored=%s current=%s\n",
					s, m.Version, m.Filename, m.StoredChecksum, m.FileChecksum)
			}
		}
		if !clean {
			return fmt.Errorf("migrate validate: checksum mismatches found")
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd, migrateApplyCmd, migrateValidateCmd)
}

// openRawDB opens the database at --db with the same pragmas the store
// factory sets, without running migrations; migrate subcommands drive
// that themselves.
func openRawDB() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", dbPath, err)
	}
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return db, nil
}
