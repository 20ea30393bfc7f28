package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coderef/memoir/internal/domain"
)

var memoryCmd = &cobra.Command{
	Use:     "memory",
	GroupID: "memory",
	Short:   "Add, search, list, and forget memories",
}

var memoryAddCmd = &cobra.Command{
	Use:   "add [content]",
	Short: "Add a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		memType, _ := cmd.Flags().GetString("type")
		tagsRaw, _ := cmd.Flags().GetString("tags")

		var tags []string
		if tagsRaw != "" {
			tags = strings.Split(tagsRaw, ",")
		}

		app, closeFn, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		m, err := app.Memory.Add(cmd.Context(), args[0], domain.MemoryType(memType), tags, domain.MemorySourceUser)
		if err != nil {
			return fmt.Errorf("memory add: %w", err)
		}
		fmt.Println(m.ID)
		return nil
	},
}

var memorySearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search memories by relevance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		app, closeFn, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		ranked, err := app.Memory.Search(cmd.Context(), args[0], nil, limit)
		if err != nil {
			return fmt.Errorf("memory search: %w", err)
		}
		for _, r := range ranked {
			fmt.Printf("%.4f  %s  %s\n", r.Rank, r.Memory.ID, r.Memory.Content)
		}
		return nil
	},
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List memories",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		app, closeFn, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		memories, err := app.Memory.List(cmd.Context(), domain.MemoryListFilter{Limit: limit})
		if err != nil {
			return fmt.Errorf("memory list: %w", err)
		}
		for _, m := range memories {
			fmt.Printf("%s  [%s]  %s\n", m.ID, m.Type, m.Content)
		}
		return nil
	},
}

var memoryForgetCmd = &cobra.Command{
	Use:   "forget [id]",
	Short: "Delete a memory by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, closeFn, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		ok, err := app.Memory.Forget(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("memory forget: %w", err)
		}
		if !ok {
			return fmt.Errorf("memory forget: %q not found", args[0])
		}
		return nil
	},
}

func init() {
	memoryAddCmd.Flags().String("type", string(domain.MemoryTypeFact), "memory type (preference|pattern|gotcha|fact|learned)")
	memoryAddCmd.Flags().String("tags", "", "comma-separated tags")
	memorySearchCmd.Flags().Int("limit", 0, "result limit (defaults to configured max_search_results)")
	memoryListCmd.Flags().Int("limit", 0, "result limit")

	memoryCmd.AddCommand(memoryAddCmd, memorySearchCmd, memoryListCmd, memoryForgetCmd)
}
