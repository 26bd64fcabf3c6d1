// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dxf

import (
	"errors"
	"strings"
	"testing"

	"github.com/movalab/geomova/pkg/types"
)

// dxfDoc joins tag lines into an ENTITIES-section document. Each argument is
// one line of the tag stream.
func dxfDoc(body ...string) string {
	lines := []string{"0", "SECTION", "2", "ENTITIES"}
	lines = append(lines, body...)
	lines = append(lines, "0", "ENDSEC", "0", "EOF")
	return strings.Join(lines, "\n") + "\n"
}

func TestRead_Line(t *testing.T) {
	doc := dxfDoc(
		"0", "LINE",
		"8", "boundary",
		"10", "0", "20", "0", "30", "0",
		"11", "1", "21", "1", "31", "0",
	)

	entities, err := Read(strings.NewReader(doc), "test.dxf")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entities) != 1 {
		t.Fatalf("got %d entities, want 1", len(entities))
	}

	e := entities[0]
	if e.Kind != types.KindLine {
		t.Errorf("kind = %q, want %q", e.Kind, types.KindLine)
	}
	if e.Layer != "boundary" {
		t.Errorf("layer = %q, want %q", e.Layer, "boundary")
	}
	if e.Index != 1 {
		t.Errorf("index = %d, want 1", e.Index)
	}
	want := []types.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}}
	if len(e.Points) != 2 || e.Points[0] != want[0] || e.Points[1] != want[1] {
		t.Errorf("points = %v, want %v", e.Points, want)
	}
}

func TestRead_EmptyInputs(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty file", ""},
		{"whitespace only", "\n\n"},
		{"empty entities section", dxfDoc()},
		{"no entities section", "0\nSECTION\n2\nHEADER\n0\nENDSEC\n0\nEOF\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities, err := Read(strings.NewReader(tt.doc), "test.dxf")
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if len(entities) != 0 {
				t.Errorf("got %d entities, want 0", len(entities))
			}
		})
	}
}

func TestRead_LWPolyline(t *testing.T) {
	doc := dxfDoc(
		"0", "LWPOLYLINE",
		"8", "deck",
		"90", "3",
		"70", "1",
		"38", "2.5",
		"10", "0", "20", "0",
		"10", "4", "20", "0",
		"10", "4", "20", "3",
	)

	entities, err := Read(strings.NewReader(doc), "test.dxf")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	e := entities[0]
	if e.Kind != types.KindPolyline {
		t.Fatalf("kind = %q, want %q", e.Kind, types.KindPolyline)
	}
	if !e.Closed {
		t.Error("expected closed polyline")
	}
	if len(e.Points) != 3 {
		t.Fatalf("got %d points, want 3", len(e.Points))
	}
	for i, p := range e.Points {
		if p.Z != 2.5 {
			t.Errorf("point %d Z = %v, want elevation 2.5", i, p.Z)
		}
	}
}

func TestRead_Polyline(t *testing.T) {
	doc := dxfDoc(
		"0", "POLYLINE",
		"8", "truss",
		"70", "0",
		"0", "VERTEX",
		"10", "0", "20", "0", "30", "0",
		"0", "VERTEX",
		"10", "1", "20", "0", "30", "0",
		"0", "VERTEX",
		"10", "1", "20", "1", "30", "0",
		"0", "SEQEND",
	)

	entities, err := Read(strings.NewReader(doc), "test.dxf")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entities) != 1 {
		t.Fatalf("got %d entities, want 1", len(entities))
	}
	e := entities[0]
	if e.Kind != types.KindPolyline || len(e.Points) != 3 {
		t.Errorf("got kind %q with %d points, want polyline with 3", e.Kind, len(e.Points))
	}
	if e.Closed {
		t.Error("polyline should be open")
	}
}

func TestRead_Text(t *testing.T) {
	doc := dxfDoc(
		"0", "TEXT",
		"8", "x_pos",
		"1", "3",
		"10", "1.5", "20", "0", "30", "2",
	)

	entities, err := Read(strings.NewReader(doc), "test.dxf")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	e := entities[0]
	if e.Kind != types.KindText {
		t.Fatalf("kind = %q, want %q", e.Kind, types.KindText)
	}
	if e.Text != "3" {
		t.Errorf("text = %q, want %q", e.Text, "3")
	}
	if e.Layer != "x_pos" {
		t.Errorf("layer = %q, want %q", e.Layer, "x_pos")
	}
	if e.Points[0] != (types.Vec3{X: 1.5, Y: 0, Z: 2}) {
		t.Errorf("insert = %v", e.Points[0])
	}
}

func TestRead_Arc(t *testing.T) {
	doc := dxfDoc(
		"0", "ARC",
		"8", "deck",
		"10", "0", "20", "0", "30", "0",
		"40", "2",
		"50", "0",
		"51", "90",
	)

	entities, err := Read(strings.NewReader(doc), "test.dxf")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	e := entities[0]
	if e.Kind != types.KindArc {
		t.Fatalf("kind = %q, want %q", e.Kind, types.KindArc)
	}
	if e.Radius != 2 || e.StartAngle != 0 || e.EndAngle != 90 {
		t.Errorf("arc = r%v %v..%v, want r2 0..90", e.Radius, e.StartAngle, e.EndAngle)
	}
}

func TestRead_UnknownEntity(t *testing.T) {
	doc := dxfDoc(
		"0", "CIRCLE",
		"8", "deck",
		"10", "0", "20", "0", "30", "0",
		"40", "1",
	)

	entities, err := Read(strings.NewReader(doc), "test.dxf")
	if err != nil {
		t.Fatalf("unknown entity should not be a parse error, got %v", err)
	}
	e := entities[0]
	if e.Kind != types.KindUnknown {
		t.Errorf("kind = %q, want %q", e.Kind, types.KindUnknown)
	}
	if e.Raw != "CIRCLE" {
		t.Errorf("raw = %q, want %q", e.Raw, "CIRCLE")
	}
}

func TestRead_ParseErrors(t *testing.T) {
	tests := []struct {
		name       string
		doc        string
		wantEntity int
		wantSubstr string
	}{
		{
			name: "line missing Z coordinate",
			doc: dxfDoc(
				"0", "LINE",
				"10", "0", "20", "0", "30", "0",
				"11", "1", "21", "1",
			),
			wantEntity: 1,
			wantSubstr: "missing Z coordinate",
		},
		{
			name:       "truncated tag pair",
			doc:        "0\nSECTION\n2\nENTITIES\n0\nLINE\n10",
			wantSubstr: "truncated",
		},
		{
			name: "invalid coordinate",
			doc: dxfDoc(
				"0", "POINT",
				"10", "abc", "20", "0", "30", "0",
			),
			wantEntity: 1,
			wantSubstr: "invalid coordinate",
		},
		{
			name: "vertex count mismatch",
			doc: dxfDoc(
				"0", "LWPOLYLINE",
				"90", "3",
				"10", "0", "20", "0",
				"10", "1", "20", "1",
			),
			wantEntity: 1,
			wantSubstr: "declared 3 vertices, found 2",
		},
		{
			name: "unterminated polyline",
			doc: "0\nSECTION\n2\nENTITIES\n0\nPOLYLINE\n0\nVERTEX\n" +
				"10\n0\n20\n0\n30\n0\n",
			wantEntity: 1,
			wantSubstr: "SEQEND",
		},
		{
			name: "vertex outside polyline",
			doc: dxfDoc(
				"0", "VERTEX",
				"10", "0", "20", "0", "30", "0",
			),
			wantEntity: 1,
			wantSubstr: "outside POLYLINE",
		},
		{
			name: "second entity bad",
			doc: dxfDoc(
				"0", "POINT",
				"10", "0", "20", "0", "30", "0",
				"0", "LINE",
				"10", "0", "20", "0",
			),
			wantEntity: 2,
			wantSubstr: "missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.doc), "test.dxf")
			if err == nil {
				t.Fatal("expected parse error")
			}
			var pe *types.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not a ParseError: %v", err, err)
			}
			if tt.wantEntity != 0 && pe.Entity != tt.wantEntity {
				t.Errorf("entity = %d, want %d", pe.Entity, tt.wantEntity)
			}
			if !strings.Contains(err.Error(), tt.wantSubstr) {
				t.Errorf("error %q does not contain %q", err, tt.wantSubstr)
			}
		})
	}
}
