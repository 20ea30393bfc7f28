package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var chunkCmd = &cobra.Command{
	Use:     "chunk",
	GroupID: "chunk",
	Short:   "Expand, search, and compact session chunks",
}

var chunkExpandCmd = &cobra.Command{
	Use:   "expand [id]",
	Short: "Show a chunk, or a chunk and its descendants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		includeChildren, _ := cmd.Flags().GetBool("children")

		app, closeFn, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		chunks, ok, err := app.Chunk.Expand(cmd.Context(), args[0], includeChildren)
		if err != nil {
			return fmt.Errorf("chunk expand: %w", err)
		}
		if !ok {
			return fmt.Errorf("chunk expand: %q not found", args[0])
		}
		for _, c := range chunks {
			summary := ""
			if c.Summary != nil {
				summary = *c.Summary
			}
			fmt.Printf("%s  depth=%d  status=%s  %s\n", c.ID, c.Depth, c.Status, summary)
		}
		return nil
	},
}

var chunkSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search chunk history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _ := cmd.Flags().GetString("session")

		app, closeFn, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		var sessionPtr *string
		if session != "" {
			sessionPtr = &session
		}

		ranked, err := app.Adapter.History(cmd.Context(), args[0], sessionPtr)
		if err != nil {
			return fmt.Errorf("chunk search: %w", err)
		}
		for _, r := range ranked {
			fmt.Printf("%.4f  %s  session=%s\n", r.Rank, r.Chunk.ID, r.Chunk.SessionID)
		}
		return nil
	},
}

var chunkCompactCmd = &cobra.Command{
	Use:   "compact [session] [summary]",
	Short: "Fold a session's active chunks under a new summary chunk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, closeFn, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		result, ok, err := app.Chunk.Compact(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("chunk compact: %w", err)
		}
		if !ok {
			return fmt.Errorf("chunk compact: session %q has no active chunks", args[0])
		}
		fmt.Printf("summary=%s children=%d\n", result.Summary.ID, len(result.Children))
		return nil
	},
}

func init() {
	chunkExpandCmd.Flags().Bool("children", false, "include descendants")
	chunkSearchCmd.Flags().String("session", "", "restrict to one session")

	chunkCmd.AddCommand(chunkExpandCmd, chunkSearchCmd, chunkCompactCmd)
}
