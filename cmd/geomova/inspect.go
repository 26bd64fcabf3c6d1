package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/movalab/geomova/internal/geometry"
	"github.com/movalab/geomova/pkg/types"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <input>",
	Short: "Summarize the entities in a geometry export",
	Long: `Inspect parses a DXF or .s2k export and prints what the converter would
see: entity counts per kind and per layer. Nothing is written; use it to
check a drawing before converting it.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runInspect,
}

func init() {
	inspectCmd.Flags().String("format", "auto", "input format: dxf, s2k, or auto")
	inspectCmd.Flags().Bool("yaml", false, "print the summary as YAML")

	rootCmd.AddCommand(inspectCmd)
}

// inspectSummary is the per-file tally inspect prints.
type inspectSummary struct {
	Input    string         `yaml:"input"`
	Entities int            `yaml:"entities"`
	Kinds    map[string]int `yaml:"kinds"`
	Layers   map[string]int `yaml:"layers"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	entities, err := geometry.ReadEntities(args[0], types.InputFormat(format))
	if err != nil {
		return err
	}

	s := inspectSummary{
		Input:    args[0],
		Entities: len(entities),
		Kinds:    map[string]int{},
		Layers:   map[string]int{},
	}
	for _, e := range entities {
		kind := string(e.Kind)
		if e.Kind == types.KindUnknown && e.Raw != "" {
			kind = "unknown (" + e.Raw + ")"
		}
		s.Kinds[kind]++
		layer := e.Layer
		if layer == "" {
			layer = "(none)"
		}
		s.Layers[layer]++
	}

	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		return yaml.NewEncoder(os.Stdout).Encode(s)
	}

	fmt.Printf("%s: %d entities\n", s.Input, s.Entities)
	fmt.Println("kinds:")
	printTally(s.Kinds)
	fmt.Println("layers:")
	printTally(s.Layers)
	return nil
}

func printTally(tally map[string]int) {
	keys := make([]string, 0, len(tally))
	for k := range tally {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-24s %d\n", k, tally[k])
	}
}
