package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/movalab/geomova/internal/catalog"
	"github.com/movalab/geomova/internal/geometry"
	"github.com/movalab/geomova/internal/watch"
	"github.com/movalab/geomova/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input> [output]",
	Short: "Convert a geometry export to a MOVA geometry file",
	Long: `Convert reads a DXF or .s2k geometry export and writes the MOVA geometry
text file. The output path defaults to the input path with a .txt extension.
Multi-setup SAP2000 models produce one output file per setup.

Unsupported or degenerate entities are skipped and reported; the run still
succeeds. Malformed input, bad options, unwritable destinations, and channel
numbering problems abort with a non-zero exit.`,
	Args:         cobra.MaximumNArgs(2),
	SilenceUsage: true,
	RunE:         runConvert,
}

func init() {
	convertCmd.Flags().Float64("scale", 1, "uniform coordinate scale factor")
	convertCmd.Flags().String("translate", "0,0,0", "offset dx,dy,dz applied after scaling")
	convertCmd.Flags().String("layer-map", "", "YAML file mapping CAD layers to roles")
	convertCmd.Flags().String("format", "auto", "input format: dxf, s2k, or auto")
	convertCmd.Flags().Int("arc-segments", 8, "chords used to approximate an arc")
	convertCmd.Flags().String("batch", "", "glob pattern (** supported); convert every match, outputs beside inputs")
	convertCmd.Flags().Bool("watch", false, "re-convert whenever the input file changes")
	convertCmd.Flags().Bool("no-history", false, "do not record the run in the catalog")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := convertConfig(cmd)
	if err != nil {
		return err
	}

	var lm *geometry.LayerMap
	if cfg.LayerMapPath != "" {
		lm, err = geometry.LoadLayerMap(cfg.LayerMapPath)
		if err != nil {
			return err
		}
	}

	pattern, _ := cmd.Flags().GetString("batch")
	watchMode, _ := cmd.Flags().GetBool("watch")

	switch {
	case pattern != "":
		if len(args) > 0 {
			return &types.ConfigError{Field: "batch",
				Err: errors.New("positional arguments and --batch are mutually exclusive")}
		}
		return runConvertBatch(cmd, pattern, cfg, lm)
	case len(args) == 0:
		return &types.ConfigError{Field: "input", Err: errors.New("an input file is required")}
	}

	inPath := args[0]
	outPath := geometry.OutputPath(inPath)
	if len(args) == 2 {
		outPath = args[1]
	}

	if watchMode {
		return runConvertWatch(cmd, inPath, outPath, cfg, lm)
	}

	report, err := geometry.ConvertFile(inPath, outPath, cfg, lm, os.Stderr)
	recordRun(cmd, cfg, inPath, outPath, report, err)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Report: %s\n", geometry.Summary(report))
	return nil
}

func runConvertBatch(cmd *cobra.Command, pattern string, cfg types.ConvertConfig, lm *geometry.LayerMap) error {
	result, err := geometry.ConvertGlob(pattern, cfg, lm, os.Stderr)
	if err != nil {
		return err
	}

	// One aggregate catalog row for the batch.
	agg := &types.Report{}
	for _, r := range result.Reports {
		agg.Read += r.Read
		agg.Converted += r.Converted
		agg.Skips = append(agg.Skips, r.Skips...)
	}
	var batchErr error
	if result.HasFailures() {
		batchErr = fmt.Errorf("%d of %d files failed", result.Failed, result.Total())
	}
	recordRun(cmd, cfg, pattern, "(batch)", agg, batchErr)
	return batchErr
}

func runConvertWatch(cmd *cobra.Command, inPath, outPath string, cfg types.ConvertConfig, lm *geometry.LayerMap) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := func() {
		report, err := geometry.ConvertFile(inPath, outPath, cfg, lm, os.Stderr)
		recordRun(cmd, cfg, inPath, outPath, report, err)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		fmt.Fprintf(os.Stderr, "Report: %s\n", geometry.Summary(report))
	}

	run()
	fmt.Fprintf(os.Stderr, "Watching %s (interrupt to stop)\n", inPath)
	err := watch.File(ctx, inPath, watch.DefaultDebounce, run)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// convertConfig builds the conversion configuration from flags, falling back
// to config file values for flags left at their defaults. Bad values abort
// before any input or output I/O.
func convertConfig(cmd *cobra.Command) (types.ConvertConfig, error) {
	scale, _ := cmd.Flags().GetFloat64("scale")
	if !cmd.Flags().Changed("scale") && viper.IsSet("scale") {
		scale = viper.GetFloat64("scale")
	}
	if scale == 0 {
		return types.ConvertConfig{}, &types.ConfigError{Field: "scale", Err: errors.New("must be nonzero")}
	}

	translate, _ := cmd.Flags().GetString("translate")
	if !cmd.Flags().Changed("translate") && viper.IsSet("translate") {
		translate = viper.GetString("translate")
	}
	offset, err := parseTranslate(translate)
	if err != nil {
		return types.ConvertConfig{}, err
	}

	layerMap, _ := cmd.Flags().GetString("layer-map")
	if !cmd.Flags().Changed("layer-map") && viper.IsSet("layer_map") {
		layerMap = viper.GetString("layer_map")
	}

	format, _ := cmd.Flags().GetString("format")
	if !cmd.Flags().Changed("format") && viper.IsSet("format") {
		format = viper.GetString("format")
	}

	arcSegments, _ := cmd.Flags().GetInt("arc-segments")
	if !cmd.Flags().Changed("arc-segments") && viper.IsSet("arc_segments") {
		arcSegments = viper.GetInt("arc_segments")
	}
	if arcSegments < 1 {
		return types.ConvertConfig{}, &types.ConfigError{Field: "arc-segments", Err: errors.New("must be at least 1")}
	}

	return types.ConvertConfig{
		Format:       types.InputFormat(format),
		Transform:    types.Transform{Scale: scale, Translate: offset},
		LayerMapPath: layerMap,
		ArcSegments:  arcSegments,
	}, nil
}

// parseTranslate parses a "dx,dy,dz" offset.
func parseTranslate(s string) (types.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return types.Vec3{}, &types.ConfigError{Field: "translate",
			Err: fmt.Errorf("%q is not of the form dx,dy,dz", s)}
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return types.Vec3{}, &types.ConfigError{Field: "translate",
				Err: fmt.Errorf("component %d of %q is not a number", i+1, s)}
		}
		v[i] = f
	}
	return types.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

// recordRun appends the run to the history catalog. Catalog problems warn
// but never fail a conversion.
func recordRun(cmd *cobra.Command, cfg types.ConvertConfig, input, output string, report *types.Report, runErr error) {
	noHistory, _ := cmd.Flags().GetBool("no-history")
	catCfg := types.CatalogConfig{
		Dir:      viper.GetString("history_dir"),
		Disabled: noHistory || viper.GetBool("no_history"),
	}
	if catCfg.Disabled {
		return
	}

	store, err := catalog.Open(catCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return
	}
	defer store.Close()

	run := catalog.Run{
		Input:  input,
		Output: output,
		Format: string(cfg.Format),
		Scale:  cfg.Transform.Scale,
		OK:     runErr == nil,
	}
	if report != nil {
		run.Read = report.Read
		run.Converted = report.Converted
		run.Skipped = report.Skipped()
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := store.Record(cmd.Context(), run); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}
