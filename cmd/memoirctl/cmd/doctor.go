package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/coderef/memoir/internal/storage/migrate"
)

// doctorReport is the structured health summary memoirctl doctor prints,
// either as JSON (for scripting) or YAML (for humans).
type doctorReport struct {
	MemoryCount      int                                       `json:"memory_count" yaml:"memory_count"`
	ChunkCount       int                                       `json:"chunk_count" yaml:"chunk_count"`
	ContentSize      string                                    `json:"content_size" yaml:"content_size"`
	MigrationHealthy bool                                      `json:"migration_healthy" yaml:"migration_healthy"`
	Mismatches       map[migrate.Subsystem][]migrate.Mismatch `json:"mismatches,omitempty" yaml:"mismatches,omitempty"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Report on database health: row counts, size, migration integrity",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		app, closeFn, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()
		ctx := cmd.Context()

		memCount, err := app.Memory.Count(ctx, nil)
		if err != nil {
			return fmt.Errorf("doctor: count memories: %w", err)
		}
		chunkCount, err := app.Chunk.Count(ctx, nil)
		if err != nil {
			return fmt.Errorf("doctor: count chunks: %w", err)
		}

		mismatches, err := migrate.ValidateAll(ctx, app.DB())
		if err != nil {
			return fmt.Errorf("doctor: validate migrations: %w", err)
		}

		healthy := true
		for _, m := range mismatches {
			if len(m) > 0 {
				healthy = false
			}
		}

		report := doctorReport{
			MemoryCount:      memCount,
			ChunkCount:       chunkCount,
			ContentSize:      humanize.Bytes(estimateContentBytes(memCount, chunkCount)),
			MigrationHealthy: healthy,
		}
		if !healthy {
			report.Mismatches = mismatches
		}

		switch format {
		case "yaml":
			out, err := yaml.Marshal(report)
			if err != nil {
				return fmt.Errorf("doctor: render yaml: %w", err)
			}
			fmt.Print(string(out))
		default:
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("doctor: render json: %w", err)
			}
			fmt.Println(string(out))
		}
		return nil
	},
}

// estimateContentBytes is a rough, non-authoritative size estimate for the
// human-facing report: memoir keeps no running byte counter, so doctor
// approximates from row counts rather than scanning every content blob.
func estimateContentBytes(memories, chunks int) uint64 {
	const avgMemoryBytes = 200
	const avgChunkBytes = 2000
	return uint64(memories*avgMemoryBytes + chunks*avgChunkBytes)
}

func init() {
	doctorCmd.Flags().String("format", "json", "output format: json|yaml")
	rootCmd.AddCommand(doctorCmd)
}
