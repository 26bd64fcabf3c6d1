// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package geometry

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/movalab/geomova/internal/dxf"
	"github.com/movalab/geomova/internal/mova"
	"github.com/movalab/geomova/internal/s2k"
	"github.com/movalab/geomova/pkg/types"
)

// DetectFormat resolves the input format, using the file extension when the
// configuration says auto.
func DetectFormat(path string, format types.InputFormat) (types.InputFormat, error) {
	switch format {
	case types.FormatDXF, types.FormatS2K:
		return format, nil
	case types.FormatAuto, "":
	default:
		return "", &types.ConfigError{Field: "format",
			Err: fmt.Errorf("unknown format %q (want dxf, s2k or auto)", format)}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".dxf":
		return types.FormatDXF, nil
	case ".s2k":
		return types.FormatS2K, nil
	default:
		return "", &types.ConfigError{Field: "format",
			Err: fmt.Errorf("cannot infer format from %q, pass --format", filepath.Base(path))}
	}
}

// ReadEntities parses the input file with the reader for its format.
func ReadEntities(path string, format types.InputFormat) ([]types.SourceEntity, error) {
	f, err := DetectFormat(path, format)
	if err != nil {
		return nil, err
	}
	switch f {
	case types.FormatDXF:
		return dxf.ReadFile(path)
	default:
		doc, err := s2k.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return doc.Entities()
	}
}

// ConvertFile converts one input file, writing the MOVA geometry to outPath
// (or to per-setup variants of it for multi-setup sources). Per-file status
// goes to w. Parsing happens before the output is opened, so a failed run
// leaves no output file behind.
func ConvertFile(inPath, outPath string, cfg types.ConvertConfig, lm *LayerMap, w io.Writer) (*types.Report, error) {
	base := filepath.Base(inPath)

	entities, err := ReadEntities(inPath, cfg.Format)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return nil, err
	}

	result, report, err := Build(entities, cfg, lm)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return nil, err
	}

	if len(result.Setups) == 0 {
		if err := mova.WriteFile(outPath, &result.Model); err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
			return report, err
		}
		fmt.Fprintf(w, "converted: %s -> %s\n", base, outPath)
	} else {
		for _, setup := range result.Setups {
			model := result.Model
			model.Sensors = setup.Sensors
			path := setupPath(outPath, setup.Name)
			if err := mova.WriteFile(path, &model); err != nil {
				fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
				return report, err
			}
			fmt.Fprintf(w, "converted: %s -> %s\n", base, path)
		}
	}

	for _, s := range report.Skips {
		what := string(s.Kind)
		if s.Raw != "" {
			what = s.Raw
		}
		fmt.Fprintf(w, "skipped: entity %d (%s", s.Entity, what)
		if s.Layer != "" {
			fmt.Fprintf(w, " on layer %q", s.Layer)
		}
		fmt.Fprintf(w, "): %s\n", s.Reason)
	}
	return report, nil
}

// setupPath inserts the setup suffix before the output extension, matching
// the per-setup naming of the SAP2000 workflow.
func setupPath(outPath, setup string) string {
	ext := filepath.Ext(outPath)
	n := strings.ToLower(strings.TrimPrefix(setup, "Setup_"))
	return strings.TrimSuffix(outPath, ext) + "_setup_" + n + ext
}

// OutputPath derives the default output path for an input: same directory
// and name, .txt extension.
func OutputPath(inPath string) string {
	ext := filepath.Ext(inPath)
	return strings.TrimSuffix(inPath, ext) + ".txt"
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Failed    int
	Reports   []*types.Report
}

// Total returns the number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Failed
}

// HasFailures reports whether any file failed to convert.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ConvertGlob converts every file matching a doublestar pattern, deriving
// each output path beside its input. Per-file errors are reported and
// counted, not fatal; a pattern with no matches is an error.
func ConvertGlob(pattern string, cfg types.ConvertConfig, lm *LayerMap, w io.Writer) (BatchResult, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return BatchResult{}, &types.ConfigError{Field: "batch", Err: err}
	}
	if len(matches) == 0 {
		return BatchResult{}, &types.ConfigError{Field: "batch",
			Err: fmt.Errorf("pattern %q matched no files", pattern)}
	}
	sort.Strings(matches)

	var result BatchResult
	for _, in := range matches {
		report, err := ConvertFile(in, OutputPath(in), cfg, lm, w)
		if err != nil {
			result.Failed++
			continue
		}
		result.Converted++
		result.Reports = append(result.Reports, report)
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d failed (total: %d)\n",
		result.Converted, result.Failed, result.Total())
	return result, nil
}

// Summary formats the one-line report summary printed after a conversion.
func Summary(r *types.Report) string {
	return fmt.Sprintf("%d read, %d converted, %d skipped", r.Read, r.Converted, r.Skipped())
}
