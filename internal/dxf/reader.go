// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dxf parses the ASCII DXF subset produced by AutoCAD geometry
// exports: the ENTITIES section with LINE, POINT, LWPOLYLINE, POLYLINE,
// ARC, TEXT and MTEXT entities. Anything else in the section is passed
// through as an unknown entity so the pipeline can count and skip it.
package dxf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/movalab/geomova/pkg/types"
)

// DXF group codes used by the subset.
const (
	codeEntity    = 0
	codeText      = 1
	codeName      = 2
	codeLayer     = 8
	codeX         = 10
	codeX2        = 11
	codeY         = 20
	codeY2        = 21
	codeZ         = 30
	codeZ2        = 31
	codeElevation = 38
	codeRadius    = 40
	codeAngle1    = 50
	codeAngle2    = 51
	codeFlags     = 70
	codeCount     = 90
)

// closedFlag is bit 1 of the polyline flags word.
const closedFlag = 1

// tag is one group-code/value pair from the DXF tag stream.
type tag struct {
	code  int
	value string
	line  int
}

type reader struct {
	sc   *bufio.Scanner
	path string
	line int
	ent  int
	held *tag
}

// ReadFile parses the DXF file at path and returns its entities in source
// order.
func ReadFile(path string) ([]types.SourceEntity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, path)
}

// Read parses a DXF tag stream. The path is used only in error messages.
// An empty stream, or one whose ENTITIES section is empty or absent, yields
// zero entities and no error.
func Read(r io.Reader, path string) ([]types.SourceEntity, error) {
	p := &reader{sc: bufio.NewScanner(r), path: path}

	var entities []types.SourceEntity
	inEntities := false
	for {
		t, err := p.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if t.code != codeEntity {
			continue
		}

		switch t.value {
		case "SECTION":
			name, err := p.next()
			if err != nil {
				return nil, p.errAt(t.line, errors.New("SECTION missing name tag"))
			}
			inEntities = name.code == codeName && name.value == "ENTITIES"
		case "ENDSEC":
			inEntities = false
		case "EOF":
			return entities, nil
		default:
			if !inEntities {
				continue
			}
			p.ent++
			e, err := p.parseEntity(t)
			if err != nil {
				return nil, err
			}
			entities = append(entities, e)
		}
	}
	return entities, nil
}

// next returns the next group-code/value pair, io.EOF at end of stream.
// A group code with no value line is a truncated pair.
func (p *reader) next() (tag, error) {
	if p.held != nil {
		t := *p.held
		p.held = nil
		return t, nil
	}
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return tag{}, fmt.Errorf("reading %s: %w", p.path, err)
		}
		return tag{}, io.EOF
	}
	p.line++
	codeStr := strings.TrimSpace(p.sc.Text())
	codeLine := p.line

	code, err := strconv.Atoi(codeStr)
	if err != nil {
		return tag{}, p.errAt(codeLine, fmt.Errorf("invalid group code %q", codeStr))
	}
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return tag{}, fmt.Errorf("reading %s: %w", p.path, err)
		}
		return tag{}, p.errAt(codeLine, errors.New("truncated tag pair"))
	}
	p.line++
	return tag{code: code, value: strings.TrimSpace(p.sc.Text()), line: codeLine}, nil
}

func (p *reader) unread(t tag) {
	p.held = &t
}

// collect reads tags belonging to the current entity, stopping before the
// next code-0 tag (left for the caller) or at end of stream.
func (p *reader) collect() ([]tag, error) {
	var tags []tag
	for {
		t, err := p.next()
		if errors.Is(err, io.EOF) {
			return tags, nil
		}
		if err != nil {
			return nil, err
		}
		if t.code == codeEntity {
			p.unread(t)
			return tags, nil
		}
		tags = append(tags, t)
	}
}

func (p *reader) parseEntity(start tag) (types.SourceEntity, error) {
	switch start.value {
	case "LINE":
		return p.parseLine(start)
	case "POINT":
		return p.parsePoint(start)
	case "LWPOLYLINE":
		return p.parseLWPolyline(start)
	case "POLYLINE":
		return p.parsePolyline(start)
	case "ARC":
		return p.parseArc(start)
	case "TEXT", "MTEXT":
		return p.parseText(start)
	case "VERTEX", "SEQEND":
		return types.SourceEntity{}, p.entErr(start.line, fmt.Errorf("%s outside POLYLINE", start.value))
	default:
		tags, err := p.collect()
		if err != nil {
			return types.SourceEntity{}, err
		}
		ts := tagset{tags: tags}
		return types.SourceEntity{
			Index: p.ent,
			Line:  start.line,
			Kind:  types.KindUnknown,
			Raw:   start.value,
			Layer: ts.str(codeLayer),
		}, nil
	}
}

func (p *reader) parseLine(start tag) (types.SourceEntity, error) {
	tags, err := p.collect()
	if err != nil {
		return types.SourceEntity{}, err
	}
	ts := tagset{tags: tags, p: p}

	a, err := ts.vec3(codeX, codeY, codeZ)
	if err != nil {
		return types.SourceEntity{}, err
	}
	b, err := ts.vec3(codeX2, codeY2, codeZ2)
	if err != nil {
		return types.SourceEntity{}, err
	}
	return types.SourceEntity{
		Index:  p.ent,
		Line:   start.line,
		Kind:   types.KindLine,
		Raw:    start.value,
		Layer:  ts.str(codeLayer),
		Points: []types.Vec3{a, b},
	}, nil
}

func (p *reader) parsePoint(start tag) (types.SourceEntity, error) {
	tags, err := p.collect()
	if err != nil {
		return types.SourceEntity{}, err
	}
	ts := tagset{tags: tags, p: p}

	v, err := ts.vec3(codeX, codeY, codeZ)
	if err != nil {
		return types.SourceEntity{}, err
	}
	return types.SourceEntity{
		Index:  p.ent,
		Line:   start.line,
		Kind:   types.KindPoint,
		Raw:    start.value,
		Layer:  ts.str(codeLayer),
		Points: []types.Vec3{v},
	}, nil
}

// parseLWPolyline reads a lightweight polyline: 2D vertices as repeated
// 10/20 pairs at a common elevation (code 38). If a vertex count (code 90)
// is declared it must match the vertices actually present.
func (p *reader) parseLWPolyline(start tag) (types.SourceEntity, error) {
	tags, err := p.collect()
	if err != nil {
		return types.SourceEntity{}, err
	}
	ts := tagset{tags: tags, p: p}

	elevation := 0.0
	if v, ok := ts.lookup(codeElevation); ok {
		elevation, err = p.parseFloat(v)
		if err != nil {
			return types.SourceEntity{}, err
		}
	}

	var points []types.Vec3
	for i := 0; i < len(tags); i++ {
		if tags[i].code != codeX {
			continue
		}
		x, err := p.parseFloat(tags[i])
		if err != nil {
			return types.SourceEntity{}, err
		}
		if i+1 >= len(tags) || tags[i+1].code != codeY {
			return types.SourceEntity{}, p.entErr(tags[i].line, errors.New("polyline vertex missing Y coordinate"))
		}
		y, err := p.parseFloat(tags[i+1])
		if err != nil {
			return types.SourceEntity{}, err
		}
		i++
		points = append(points, types.Vec3{X: x, Y: y, Z: elevation})
	}

	if v, ok := ts.lookup(codeCount); ok {
		declared, err := strconv.Atoi(v.value)
		if err != nil {
			return types.SourceEntity{}, p.entErr(v.line, fmt.Errorf("invalid vertex count %q", v.value))
		}
		if declared != len(points) {
			return types.SourceEntity{}, p.entErr(v.line,
				fmt.Errorf("declared %d vertices, found %d", declared, len(points)))
		}
	}

	closed := false
	if v, ok := ts.lookup(codeFlags); ok {
		flags, err := strconv.Atoi(v.value)
		if err != nil {
			return types.SourceEntity{}, p.entErr(v.line, fmt.Errorf("invalid flags %q", v.value))
		}
		closed = flags&closedFlag != 0
	}

	return types.SourceEntity{
		Index:  p.ent,
		Line:   start.line,
		Kind:   types.KindPolyline,
		Raw:    start.value,
		Layer:  ts.str(codeLayer),
		Points: points,
		Closed: closed,
	}, nil
}

// parsePolyline reads a heavyweight polyline: a POLYLINE header followed by
// VERTEX entities, terminated by SEQEND.
func (p *reader) parsePolyline(start tag) (types.SourceEntity, error) {
	tags, err := p.collect()
	if err != nil {
		return types.SourceEntity{}, err
	}
	ts := tagset{tags: tags, p: p}

	closed := false
	if v, ok := ts.lookup(codeFlags); ok {
		flags, err := strconv.Atoi(v.value)
		if err != nil {
			return types.SourceEntity{}, p.entErr(v.line, fmt.Errorf("invalid flags %q", v.value))
		}
		closed = flags&closedFlag != 0
	}

	var points []types.Vec3
	for {
		t, err := p.next()
		if errors.Is(err, io.EOF) {
			return types.SourceEntity{}, p.entErr(start.line, errors.New("POLYLINE not terminated by SEQEND"))
		}
		if err != nil {
			return types.SourceEntity{}, err
		}
		if t.code != codeEntity {
			continue
		}
		switch t.value {
		case "VERTEX":
			vtags, err := p.collect()
			if err != nil {
				return types.SourceEntity{}, err
			}
			vts := tagset{tags: vtags, p: p}
			v, err := vts.vec3(codeX, codeY, codeZ)
			if err != nil {
				return types.SourceEntity{}, err
			}
			points = append(points, v)
		case "SEQEND":
			if _, err := p.collect(); err != nil {
				return types.SourceEntity{}, err
			}
			return types.SourceEntity{
				Index:  p.ent,
				Line:   start.line,
				Kind:   types.KindPolyline,
				Raw:    start.value,
				Layer:  ts.str(codeLayer),
				Points: points,
				Closed: closed,
			}, nil
		default:
			return types.SourceEntity{}, p.entErr(t.line,
				fmt.Errorf("unexpected %s inside POLYLINE", t.value))
		}
	}
}

func (p *reader) parseArc(start tag) (types.SourceEntity, error) {
	tags, err := p.collect()
	if err != nil {
		return types.SourceEntity{}, err
	}
	ts := tagset{tags: tags, p: p}

	center, err := ts.vec3(codeX, codeY, codeZ)
	if err != nil {
		return types.SourceEntity{}, err
	}
	radius, err := ts.requireFloat(codeRadius, "radius")
	if err != nil {
		return types.SourceEntity{}, err
	}
	a1, err := ts.requireFloat(codeAngle1, "start angle")
	if err != nil {
		return types.SourceEntity{}, err
	}
	a2, err := ts.requireFloat(codeAngle2, "end angle")
	if err != nil {
		return types.SourceEntity{}, err
	}

	return types.SourceEntity{
		Index:      p.ent,
		Line:       start.line,
		Kind:       types.KindArc,
		Raw:        start.value,
		Layer:      ts.str(codeLayer),
		Points:     []types.Vec3{center},
		Radius:     radius,
		StartAngle: a1,
		EndAngle:   a2,
	}, nil
}

func (p *reader) parseText(start tag) (types.SourceEntity, error) {
	tags, err := p.collect()
	if err != nil {
		return types.SourceEntity{}, err
	}
	ts := tagset{tags: tags, p: p}

	insert, err := ts.vec3(codeX, codeY, codeZ)
	if err != nil {
		return types.SourceEntity{}, err
	}
	body, ok := ts.lookup(codeText)
	if !ok {
		return types.SourceEntity{}, p.entErr(start.line, errors.New("text entity missing body"))
	}

	return types.SourceEntity{
		Index:  p.ent,
		Line:   start.line,
		Kind:   types.KindText,
		Raw:    start.value,
		Layer:  ts.str(codeLayer),
		Points: []types.Vec3{insert},
		Text:   body.value,
	}, nil
}

func (p *reader) parseFloat(t tag) (float64, error) {
	v, err := strconv.ParseFloat(t.value, 64)
	if err != nil {
		return 0, p.entErr(t.line, fmt.Errorf("invalid coordinate %q", t.value))
	}
	return v, nil
}

func (p *reader) errAt(line int, err error) error {
	return &types.ParseError{Path: p.path, Line: line, Err: err}
}

func (p *reader) entErr(line int, err error) error {
	return &types.ParseError{Path: p.path, Line: line, Entity: p.ent, Err: err}
}

// tagset provides keyed access over an entity's collected tags.
type tagset struct {
	tags []tag
	p    *reader
}

func (s tagset) lookup(code int) (tag, bool) {
	for _, t := range s.tags {
		if t.code == code {
			return t, true
		}
	}
	return tag{}, false
}

func (s tagset) str(code int) string {
	t, _ := s.lookup(code)
	return t.value
}

// vec3 reads a full coordinate triple. A declared entity with a missing
// component is truncated input, not a default-zero coordinate.
func (s tagset) vec3(cx, cy, cz int) (types.Vec3, error) {
	x, err := s.requireFloat(cx, "X coordinate")
	if err != nil {
		return types.Vec3{}, err
	}
	y, err := s.requireFloat(cy, "Y coordinate")
	if err != nil {
		return types.Vec3{}, err
	}
	z, err := s.requireFloat(cz, "Z coordinate")
	if err != nil {
		return types.Vec3{}, err
	}
	return types.Vec3{X: x, Y: y, Z: z}, nil
}

func (s tagset) requireFloat(code int, what string) (float64, error) {
	t, ok := s.lookup(code)
	if !ok {
		line := 0
		if len(s.tags) > 0 {
			line = s.tags[0].line
		}
		return 0, s.p.entErr(line, fmt.Errorf("missing %s (group %d)", what, code))
	}
	return s.p.parseFloat(t)
}
