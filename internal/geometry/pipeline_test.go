// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package geometry

import (
	"errors"
	"strings"
	"testing"

	"github.com/movalab/geomova/pkg/types"
)

func line(idx int, layer string, a, b types.Vec3) types.SourceEntity {
	return types.SourceEntity{Index: idx, Kind: types.KindLine, Raw: "LINE", Layer: layer,
		Points: []types.Vec3{a, b}}
}

func text(idx int, layer, body string, at types.Vec3) types.SourceEntity {
	return types.SourceEntity{Index: idx, Kind: types.KindText, Raw: "TEXT", Layer: layer,
		Points: []types.Vec3{at}, Text: body}
}

func TestBuild_SingleLine(t *testing.T) {
	entities := []types.SourceEntity{
		line(1, "boundary", types.Vec3{}, types.Vec3{X: 1, Y: 1}),
	}

	result, report, err := Build(entities, types.ConvertConfig{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if report.Read != 1 || report.Converted != 1 || report.Skipped() != 0 {
		t.Errorf("report = %d/%d/%d, want 1/1/0", report.Read, report.Converted, report.Skipped())
	}
	if len(result.Model.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(result.Model.Nodes))
	}
	if len(result.Model.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(result.Model.Lines))
	}

	// Default transform leaves coordinates unchanged.
	n2 := result.Model.Nodes[1]
	if n2.X != 1 || n2.Y != 1 || n2.Z != 0 {
		t.Errorf("node 2 = (%g, %g, %g), want (1, 1, 0)", n2.X, n2.Y, n2.Z)
	}
	if l := result.Model.Lines[0]; l.N1 != 1 || l.N2 != 2 {
		t.Errorf("line = %+v, want 1-2", l)
	}
}

func TestBuild_Empty(t *testing.T) {
	result, report, err := Build(nil, types.ConvertConfig{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report.Read != 0 || report.Converted != 0 || report.Skipped() != 0 {
		t.Errorf("report = %d/%d/%d, want 0/0/0", report.Read, report.Converted, report.Skipped())
	}
	if result.Model.Records() != 0 {
		t.Errorf("records = %d, want 0", result.Model.Records())
	}
}

func TestBuild_NodeDedup(t *testing.T) {
	shared := types.Vec3{X: 1, Y: 0, Z: 0}
	entities := []types.SourceEntity{
		line(1, "", types.Vec3{}, shared),
		// Endpoint differs from shared only by sub-epsilon noise.
		line(2, "", types.Vec3{X: 1 + 1e-9, Y: 0, Z: 0}, types.Vec3{X: 2}),
	}

	result, _, err := Build(entities, types.ConvertConfig{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(result.Model.Nodes) != 3 {
		t.Errorf("nodes = %d, want 3 (shared endpoint deduplicated)", len(result.Model.Nodes))
	}
	if len(result.Model.Lines) != 2 {
		t.Errorf("lines = %d, want 2", len(result.Model.Lines))
	}
	if result.Model.Lines[1].N1 != 2 {
		t.Errorf("second line starts at node %d, want shared node 2", result.Model.Lines[1].N1)
	}
}

func TestBuild_Transform(t *testing.T) {
	cfg := types.ConvertConfig{
		Transform: types.Transform{Scale: 2, Translate: types.Vec3{X: 10}},
	}
	if cfg.Transform.IsIdentity() {
		t.Fatal("test transform must not be the identity")
	}
	if !types.Identity().IsIdentity() {
		t.Fatal("Identity() must report as identity")
	}

	entities := []types.SourceEntity{
		line(1, "", types.Vec3{X: 1, Y: 1, Z: 1}, types.Vec3{X: 2, Y: 2, Z: 2}),
	}

	result, _, err := Build(entities, cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	n := result.Model.Nodes[0]
	if n.X != 12 || n.Y != 2 || n.Z != 2 {
		t.Errorf("node 1 = (%g, %g, %g), want (12, 2, 2)", n.X, n.Y, n.Z)
	}
}

func TestBuild_ClosedPolyline(t *testing.T) {
	entities := []types.SourceEntity{
		{Index: 1, Kind: types.KindPolyline, Closed: true, Points: []types.Vec3{
			{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 3},
		}},
	}

	result, report, err := Build(entities, types.ConvertConfig{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report.Converted != 1 {
		t.Errorf("converted = %d, want 1", report.Converted)
	}
	if len(result.Model.Nodes) != 3 {
		t.Errorf("nodes = %d, want 3", len(result.Model.Nodes))
	}
	// Three vertices, closed: three segments.
	if len(result.Model.Lines) != 3 {
		t.Errorf("lines = %d, want 3", len(result.Model.Lines))
	}
}

func TestBuild_Arc(t *testing.T) {
	entities := []types.SourceEntity{
		{Index: 1, Kind: types.KindArc, Points: []types.Vec3{{X: 0, Y: 0, Z: 1}},
			Radius: 2, StartAngle: 0, EndAngle: 90},
	}

	result, _, err := Build(entities, types.ConvertConfig{ArcSegments: 4}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(result.Model.Lines) != 4 {
		t.Errorf("lines = %d, want 4 chords", len(result.Model.Lines))
	}
	if len(result.Model.Nodes) != 5 {
		t.Errorf("nodes = %d, want 5", len(result.Model.Nodes))
	}
	first := result.Model.Nodes[0]
	if first.X != 2 || first.Z != 1 {
		t.Errorf("arc start = (%g, %g, %g), want (2, 0, 1)", first.X, first.Y, first.Z)
	}
}

func TestBuild_Channels(t *testing.T) {
	entities := []types.SourceEntity{
		line(1, "", types.Vec3{}, types.Vec3{X: 4}),
		line(2, "", types.Vec3{X: 4}, types.Vec3{X: 4, Z: 3}),
		// Channel 2 appears before channel 1 in the file; output must be
		// in channel order.
		text(3, "z_neg", "2", types.Vec3{X: 4, Z: 3}),
		text(4, "x_pos", "1", types.Vec3{X: 4}),
	}

	result, report, err := Build(entities, types.ConvertConfig{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report.Converted != 4 {
		t.Errorf("converted = %d, want 4", report.Converted)
	}
	sensors := result.Model.Sensors
	if len(sensors) != 2 {
		t.Fatalf("sensors = %d, want 2", len(sensors))
	}
	if sensors[0].Node != 2 || sensors[0].Dir != [3]int{1, 0, 0} {
		t.Errorf("sensor 1 = %+v, want node 2 dir +x", sensors[0])
	}
	if sensors[1].Node != 3 || sensors[1].Dir != [3]int{0, 0, -1} {
		t.Errorf("sensor 2 = %+v, want node 3 dir -z", sensors[1])
	}
}

func TestBuild_TextBeforeGeometry(t *testing.T) {
	// The sensor text precedes the line whose endpoint it sits on.
	entities := []types.SourceEntity{
		text(1, "y_pos", "1", types.Vec3{X: 1}),
		line(2, "", types.Vec3{}, types.Vec3{X: 1}),
	}

	result, _, err := Build(entities, types.ConvertConfig{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(result.Model.Sensors) != 1 || result.Model.Sensors[0].Node != 2 {
		t.Errorf("sensors = %+v, want one on node 2", result.Model.Sensors)
	}
}

func TestBuild_Skips(t *testing.T) {
	lm := DefaultLayerMap()
	lm.roles["scrap"] = RoleIgnore

	entities := []types.SourceEntity{
		{Index: 1, Kind: types.KindUnknown, Raw: "CIRCLE"},
		text(2, "notes", "hello", types.Vec3{}),
		line(3, "", types.Vec3{}, types.Vec3{}), // zero length
		line(4, "scrap", types.Vec3{}, types.Vec3{X: 1}),
		line(5, "", types.Vec3{}, types.Vec3{X: 1}),
	}

	_, report, err := Build(entities, types.ConvertConfig{}, lm)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if report.Read != report.Converted+report.Skipped() {
		t.Errorf("conservation violated: %d read, %d converted, %d skipped",
			report.Read, report.Converted, report.Skipped())
	}
	if report.Converted != 1 {
		t.Errorf("converted = %d, want 1", report.Converted)
	}

	wantReasons := map[int]types.SkipReason{
		1: types.SkipUnsupportedKind,
		2: types.SkipUnmappedLayer,
		3: types.SkipDegenerate,
		4: types.SkipIgnoredLayer,
	}
	if len(report.Skips) != len(wantReasons) {
		t.Fatalf("skips = %d, want %d", len(report.Skips), len(wantReasons))
	}
	for i, s := range report.Skips {
		if want := wantReasons[s.Entity]; s.Reason != want {
			t.Errorf("entity %d skipped for %q, want %q", s.Entity, s.Reason, want)
		}
		if i > 0 && report.Skips[i-1].Entity > s.Entity {
			t.Error("skips are not in source order")
		}
	}
}

func TestBuild_ChannelErrors(t *testing.T) {
	base := []types.SourceEntity{
		line(1, "", types.Vec3{}, types.Vec3{X: 4}),
	}

	tests := []struct {
		name  string
		extra []types.SourceEntity
		want  string
	}{
		{
			name:  "gap in numbering",
			extra: []types.SourceEntity{text(2, "x_pos", "1", types.Vec3{}), text(3, "x_pos", "3", types.Vec3{X: 4})},
			want:  "missing channel 2",
		},
		{
			name:  "duplicate channel",
			extra: []types.SourceEntity{text(2, "x_pos", "1", types.Vec3{}), text(3, "y_pos", "1", types.Vec3{X: 4})},
			want:  "duplicate channel 1",
		},
		{
			name:  "insert point off node",
			extra: []types.SourceEntity{text(2, "x_pos", "1", types.Vec3{X: 2, Y: 7})},
			want:  "not on a node",
		},
		{
			name:  "non-numeric channel text",
			extra: []types.SourceEntity{text(2, "x_pos", "A1", types.Vec3{})},
			want:  "not a number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Build(append(append([]types.SourceEntity{}, base...), tt.extra...), types.ConvertConfig{}, nil)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var ve *types.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error %T is not a ValidationError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestBuild_Setups(t *testing.T) {
	ref := text(3, "x_pos", "1", types.Vec3{})
	s1 := text(4, "y_pos", "2", types.Vec3{X: 4})
	s1.Setup = "Setup_1"
	s2 := text(5, "z_pos", "2", types.Vec3{X: 4, Z: 3})
	s2.Setup = "Setup_2"

	entities := []types.SourceEntity{
		line(1, "", types.Vec3{}, types.Vec3{X: 4}),
		line(2, "", types.Vec3{X: 4}, types.Vec3{X: 4, Z: 3}),
		ref, s1, s2,
	}

	result, _, err := Build(entities, types.ConvertConfig{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(result.Model.Sensors) != 0 {
		t.Errorf("base model should carry no sensors when setups exist, got %d", len(result.Model.Sensors))
	}
	if len(result.Setups) != 2 {
		t.Fatalf("setups = %d, want 2", len(result.Setups))
	}
	for i, s := range result.Setups {
		if len(s.Sensors) != 2 {
			t.Errorf("setup %d sensors = %d, want reference + own", i, len(s.Sensors))
		}
		// Reference channel 1 leads in every setup.
		if s.Sensors[0].Dir != [3]int{1, 0, 0} {
			t.Errorf("setup %d first sensor dir = %v, want +x reference", i, s.Sensors[0].Dir)
		}
	}
	if result.Setups[0].Name != "Setup_1" || result.Setups[1].Name != "Setup_2" {
		t.Errorf("setup order = %s, %s", result.Setups[0].Name, result.Setups[1].Name)
	}
}

func TestBuild_SetupNumberingValidatedPerSetup(t *testing.T) {
	ref := text(2, "x_pos", "1", types.Vec3{})
	bad := text(3, "y_pos", "3", types.Vec3{X: 4}) // gap: no channel 2 in Setup_1
	bad.Setup = "Setup_1"

	entities := []types.SourceEntity{
		line(1, "", types.Vec3{}, types.Vec3{X: 4}),
		ref, bad,
	}

	_, _, err := Build(entities, types.ConvertConfig{}, nil)
	if err == nil {
		t.Fatal("expected validation error for per-setup numbering gap")
	}
	if !strings.Contains(err.Error(), "Setup_1") {
		t.Errorf("error %q should name the setup", err)
	}
}
