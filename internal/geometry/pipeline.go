// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package geometry maps source entities onto the MOVA geometry model:
// deduplicated numbered nodes, node-pair lines, and sensor channels. The
// build is a single stateless pass; unsupported or degenerate entities are
// counted and skipped, never fatal.
package geometry

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/movalab/geomova/internal/mova"
	"github.com/movalab/geomova/pkg/types"
)

// defaultArcSegments is the chord count used to approximate an arc when the
// configuration does not set one.
const defaultArcSegments = 8

// coordEpsilon is the rounding applied before comparing coordinates, the
// same accuracy guard the CAD export needs to merge endpoints that differ
// only by floating-point noise.
const coordEpsilon = 1e-6

// Setup holds the extra sensor channels of one measurement setup.
type Setup struct {
	Name    string
	Sensors []mova.Sensor
}

// Result is the output of a build: the base model (nodes, lines, and the
// shared reference channels) plus any per-setup channel groups.
type Result struct {
	Model  mova.Model
	Setups []Setup
}

// nodeKey identifies a node by its rounded coordinates.
type nodeKey [3]int64

func keyOf(v types.Vec3) nodeKey {
	round := func(f float64) int64 {
		return int64(math.Round(f / coordEpsilon))
	}
	return nodeKey{round(v.X), round(v.Y), round(v.Z)}
}

// nodeTable assigns IDs to unique coordinates in first-appearance order.
type nodeTable struct {
	ids   map[nodeKey]int
	nodes []mova.Node
}

func newNodeTable() *nodeTable {
	return &nodeTable{ids: make(map[nodeKey]int)}
}

func (t *nodeTable) add(v types.Vec3) int {
	k := keyOf(v)
	if id, ok := t.ids[k]; ok {
		return id
	}
	id := len(t.nodes) + 1
	t.ids[k] = id
	t.nodes = append(t.nodes, mova.Node{ID: id, X: v.X, Y: v.Y, Z: v.Z})
	return id
}

func (t *nodeTable) lookup(v types.Vec3) (int, bool) {
	id, ok := t.ids[keyOf(v)]
	return id, ok
}

// channel is a sensor channel before validation and ordering.
type channel struct {
	number int
	node   int
	dir    [3]int
	setup  string
}

// Build runs the conversion pipeline over entities. Geometry entities are
// processed first so that sensor texts, wherever they appear in the source,
// can resolve their insert points against the full node table.
func Build(entities []types.SourceEntity, cfg types.ConvertConfig, lm *LayerMap) (*Result, *types.Report, error) {
	if lm == nil {
		lm = DefaultLayerMap()
	}
	tr := cfg.Transform
	if tr.Scale == 0 {
		tr.Scale = 1
	}
	arcSegments := cfg.ArcSegments
	if arcSegments <= 0 {
		arcSegments = defaultArcSegments
	}

	report := &types.Report{Read: len(entities)}
	nodes := newNodeTable()
	var lines []mova.Line
	var channels []channel

	skip := func(e types.SourceEntity, reason types.SkipReason) {
		report.Skips = append(report.Skips, types.Skip{
			Entity: e.Index,
			Kind:   e.Kind,
			Raw:    e.Raw,
			Layer:  e.Layer,
			Reason: reason,
		})
	}

	// Pass 1: geometry. Texts are deferred so their insert points can match
	// nodes created by entities that follow them in the file.
	var texts []types.SourceEntity
	for _, e := range entities {
		if lm.Ignored(e.Layer) {
			skip(e, types.SkipIgnoredLayer)
			continue
		}

		switch e.Kind {
		case types.KindText:
			texts = append(texts, e)

		case types.KindPoint:
			if len(e.Points) < e.Kind.MinVertices() {
				skip(e, types.SkipDegenerate)
				continue
			}
			nodes.add(tr.Apply(e.Points[0]))
			report.Converted++

		case types.KindLine:
			if len(e.Points) < e.Kind.MinVertices() || keyOf(e.Points[0]) == keyOf(e.Points[1]) {
				skip(e, types.SkipDegenerate)
				continue
			}
			n1 := nodes.add(tr.Apply(e.Points[0]))
			n2 := nodes.add(tr.Apply(e.Points[1]))
			lines = append(lines, mova.Line{N1: n1, N2: n2})
			report.Converted++

		case types.KindPolyline:
			segs := polylineSegments(e.Points, e.Closed)
			if len(segs) == 0 {
				skip(e, types.SkipDegenerate)
				continue
			}
			for _, s := range segs {
				n1 := nodes.add(tr.Apply(s[0]))
				n2 := nodes.add(tr.Apply(s[1]))
				lines = append(lines, mova.Line{N1: n1, N2: n2})
			}
			report.Converted++

		case types.KindArc:
			if len(e.Points) < e.Kind.MinVertices() || e.Radius <= 0 {
				skip(e, types.SkipDegenerate)
				continue
			}
			pts := tessellateArc(e, arcSegments)
			for _, s := range polylineSegments(pts, false) {
				n1 := nodes.add(tr.Apply(s[0]))
				n2 := nodes.add(tr.Apply(s[1]))
				lines = append(lines, mova.Line{N1: n1, N2: n2})
			}
			report.Converted++

		default:
			skip(e, types.SkipUnsupportedKind)
		}
	}

	// Pass 2: sensor channels.
	for _, e := range texts {
		dir, ok := lm.Direction(e.Layer)
		if !ok {
			skip(e, types.SkipUnmappedLayer)
			continue
		}
		if len(e.Points) < e.Kind.MinVertices() {
			skip(e, types.SkipDegenerate)
			continue
		}

		number, err := strconv.Atoi(strings.TrimSpace(e.Text))
		if err != nil {
			return nil, nil, &types.ValidationError{
				Reason: fmt.Sprintf("entity %d: channel text %q is not a number", e.Index, e.Text),
			}
		}

		at := tr.Apply(e.Points[0])
		node, ok := nodes.lookup(at)
		if !ok {
			return nil, nil, &types.ValidationError{
				Reason: fmt.Sprintf("entity %d: channel %d insert point (%g, %g, %g) is not on a node",
					e.Index, number, at.X, at.Y, at.Z),
			}
		}

		channels = append(channels, channel{number: number, node: node, dir: dir, setup: e.Setup})
		report.Converted++
	}

	// Skips from the deferred text pass are out of source order; restore it.
	sort.SliceStable(report.Skips, func(i, j int) bool {
		return report.Skips[i].Entity < report.Skips[j].Entity
	})

	result := &Result{Model: mova.Model{Nodes: nodes.nodes, Lines: lines}}
	if err := assembleSensors(channels, result); err != nil {
		return nil, nil, err
	}
	return result, report, nil
}

// polylineSegments turns a vertex list into node-pair segments, dropping
// zero-length segments and closing the loop for closed polylines.
func polylineSegments(pts []types.Vec3, closed bool) [][2]types.Vec3 {
	var segs [][2]types.Vec3
	for i := 0; i+1 < len(pts); i++ {
		if keyOf(pts[i]) == keyOf(pts[i+1]) {
			continue
		}
		segs = append(segs, [2]types.Vec3{pts[i], pts[i+1]})
	}
	if closed && len(pts) > 2 && keyOf(pts[len(pts)-1]) != keyOf(pts[0]) {
		segs = append(segs, [2]types.Vec3{pts[len(pts)-1], pts[0]})
	}
	return segs
}

// tessellateArc approximates an arc with n chords. DXF arcs run
// counterclockwise from the start to the end angle, in degrees.
func tessellateArc(e types.SourceEntity, n int) []types.Vec3 {
	center := e.Points[0]
	start := e.StartAngle
	end := e.EndAngle
	for end <= start {
		end += 360
	}

	pts := make([]types.Vec3, 0, n+1)
	for i := 0; i <= n; i++ {
		a := (start + (end-start)*float64(i)/float64(n)) * math.Pi / 180
		pts = append(pts, types.Vec3{
			X: center.X + e.Radius*math.Cos(a),
			Y: center.Y + e.Radius*math.Sin(a),
			Z: center.Z,
		})
	}
	return pts
}

// assembleSensors validates channel numbering and fills the result's sensor
// lists. For a single-setup model all channels must number 1..N. With
// setups, the shared reference channels combined with each setup's channels
// must number 1..N per setup; MOVA cannot consume a channel table with gaps
// or duplicates.
func assembleSensors(channels []channel, result *Result) error {
	var refs []channel
	bySetup := map[string][]channel{}
	for _, c := range channels {
		if c.setup == "" {
			refs = append(refs, c)
		} else {
			bySetup[c.setup] = append(bySetup[c.setup], c)
		}
	}

	if len(bySetup) == 0 {
		sensors, err := orderChannels(refs, "")
		if err != nil {
			return err
		}
		result.Model.Sensors = sensors
		return nil
	}

	names := make([]string, 0, len(bySetup))
	for name := range bySetup {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return setupOrdinal(names[i]) < setupOrdinal(names[j]) })

	for _, name := range names {
		sensors, err := orderChannels(append(append([]channel{}, refs...), bySetup[name]...), name)
		if err != nil {
			return err
		}
		result.Setups = append(result.Setups, Setup{Name: name, Sensors: sensors})
	}
	return nil
}

// orderChannels checks that channels number exactly 1..N and returns them
// as sensors in channel order.
func orderChannels(chans []channel, setup string) ([]mova.Sensor, error) {
	where := ""
	if setup != "" {
		where = " in " + setup
	}

	sort.Slice(chans, func(i, j int) bool { return chans[i].number < chans[j].number })
	for i, c := range chans {
		if c.number != i+1 {
			if i > 0 && c.number == chans[i-1].number {
				return nil, &types.ValidationError{
					Reason: fmt.Sprintf("duplicate channel %d%s", c.number, where),
				}
			}
			return nil, &types.ValidationError{
				Reason: fmt.Sprintf("channels%s must number 1..%d, missing channel %d", where, len(chans), i+1),
			}
		}
	}

	sensors := make([]mova.Sensor, len(chans))
	for i, c := range chans {
		sensors[i] = mova.Sensor{Node: c.node, Dir: c.dir}
	}
	return sensors, nil
}

// setupOrdinal extracts the numeric suffix of a setup name for ordering.
func setupOrdinal(name string) int {
	i := strings.LastIndex(name, "_")
	if i < 0 {
		return 0
	}
	n, _ := strconv.Atoi(name[i+1:])
	return n
}
