// Package cmd implements the memoirctl command tree.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/coderef/memoir"
)

// dbPath is the shared --db flag, read by every subcommand that opens a
// store.
var dbPath string

var rootCmd = &cobra.Command{
	Use:   "memoirctl",
	Short: "Inspect and drive a memoir memory/history database",
	Long: `memoirctl is a standalone CLI over the memoir library.

It operates on the same SQLite database a host's in-process memoir.Open
would use, and is meant for inspection and scripting outside of a host
integration: running migrations, searching memories and chunks, and
forcing compaction by hand.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "./.memoir/memoir.db", "path to the memoir database")

	rootCmd.AddGroup(
		&cobra.Group{ID: "migrate", Title: "Migration Commands:"},
		&cobra.Group{ID: "memory", Title: "Memory Commands:"},
		&cobra.Group{ID: "chunk", Title: "Chunk Commands:"},
	)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(chunkCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// openApp opens the full memoir service graph against --db, migrating it
// in place if needed.
func openApp(ctx context.Context) (*memoir.App, func(), error) {
	app, err := memoir.Open(ctx, dbPath)
	if err != nil {
		return nil, nil, err
	}
	return app, func() { _ = app.Close() }, nil
}
