// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the value types shared between the readers, the
// geometry pipeline, and the CLI: source entities, conversion reports,
// configuration, and the error taxonomy.
package types

// Vec3 is a coordinate triple in drawing units.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// EntityKind tags a drawing primitive extracted from a source file.
type EntityKind string

const (
	KindPoint    EntityKind = "point"
	KindLine     EntityKind = "line"
	KindPolyline EntityKind = "polyline"
	KindArc      EntityKind = "arc"
	KindText     EntityKind = "text"

	// KindUnknown marks an entity the reader recognized structurally but
	// has no mapping rule for. The pipeline counts and skips it; it is
	// never a parse error.
	KindUnknown EntityKind = "unknown"
)

// SourceEntity is one drawing primitive in source order. It is immutable
// once parsed; the pipeline never mutates it.
type SourceEntity struct {
	// Index is the 1-based position of the entity in the source file.
	Index int

	// Line is the input line on which the entity starts, for diagnostics.
	Line int

	// Kind is the normalized entity kind.
	Kind EntityKind

	// Raw is the source-format entity name (e.g. "LWPOLYLINE", "CIRCLE").
	Raw string

	// Layer is the CAD layer or group label, empty if none.
	Layer string

	// Points holds the entity coordinates: two endpoints for a line,
	// the vertex list for a polyline, the single position for a point,
	// the arc center for an arc, the insert point for a text.
	Points []Vec3

	// Closed reports whether a polyline closes back to its first vertex.
	Closed bool

	// Text is the body of a text entity (the channel number).
	Text string

	// Radius, StartAngle and EndAngle describe an arc (angles in degrees,
	// counterclockwise). Only meaningful when Kind is KindArc.
	Radius     float64
	StartAngle float64
	EndAngle   float64

	// Setup names the measurement setup a channel belongs to. Empty means
	// the shared reference setup. Only meaningful when Kind is KindText.
	Setup string
}

// MinVertices returns the minimum number of coordinates an entity of this
// kind needs to produce output. Entities below the minimum are degenerate.
func (k EntityKind) MinVertices() int {
	switch k {
	case KindLine:
		return 2
	case KindPolyline:
		return 2
	case KindPoint, KindText, KindArc:
		return 1
	default:
		return 1
	}
}
