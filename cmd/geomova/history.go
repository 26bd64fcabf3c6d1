package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/movalab/geomova/internal/catalog"
	"github.com/movalab/geomova/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded conversion runs",
	Long: `History lists past conversion runs from the catalog, newest first:
when each ran, what it read and wrote, entity counts, and whether it
succeeded.`,
	SilenceUsage: true,
	RunE:         runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().Bool("json", false, "output runs as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := catalog.Open(types.CatalogConfig{Dir: viper.GetString("history_dir")})
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}
	for _, r := range runs {
		status := "ok"
		if !r.OK {
			status = "FAILED"
		}
		fmt.Printf("%s  %-6s %s -> %s (%d read, %d converted, %d skipped)\n",
			r.Time.Local().Format(time.DateTime), status, r.Input, r.Output,
			r.Read, r.Converted, r.Skipped)
		if r.Error != "" {
			fmt.Printf("    %s\n", r.Error)
		}
	}
	return nil
}
