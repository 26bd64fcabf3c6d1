// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// InputFormat identifies the source file format.
type InputFormat string

const (
	FormatAuto InputFormat = "auto"
	FormatDXF  InputFormat = "dxf"
	FormatS2K  InputFormat = "s2k"
)

// Transform is the affine coordinate transform applied to every source
// coordinate: scale first, then translate. Used for unit and origin
// reconciliation between the CAD model and MOVA.
type Transform struct {
	// Scale is the uniform scale factor (default 1).
	Scale float64 `json:"scale" yaml:"scale"`

	// Translate is the offset added after scaling (default zero).
	Translate Vec3 `json:"translate" yaml:"translate"`
}

// Identity returns the no-op transform.
func Identity() Transform {
	return Transform{Scale: 1}
}

// Apply transforms a single coordinate.
func (t Transform) Apply(v Vec3) Vec3 {
	return Vec3{
		X: v.X*t.Scale + t.Translate.X,
		Y: v.Y*t.Scale + t.Translate.Y,
		Z: v.Z*t.Scale + t.Translate.Z,
	}
}

// IsIdentity reports whether applying the transform leaves coordinates
// unchanged.
func (t Transform) IsIdentity() bool {
	return t.Scale == 1 && t.Translate == Vec3{}
}

// ConvertConfig holds the settings for one conversion run. It is built once
// from flags and config file values and passed down the call chain; nothing
// in the pipeline reads global state.
type ConvertConfig struct {
	// Format selects the input reader. FormatAuto picks by file extension.
	Format InputFormat `json:"format" yaml:"format"`

	// Transform is the coordinate transform (scale, translate).
	Transform Transform `json:"transform" yaml:"transform"`

	// LayerMapPath is an optional YAML file mapping CAD layer names to
	// MOVA roles, overriding the built-in direction layers.
	LayerMapPath string `json:"layer_map,omitempty" yaml:"layer_map,omitempty"`

	// ArcSegments is the number of chords used to approximate an arc
	// (default 8).
	ArcSegments int `json:"arc_segments" yaml:"arc_segments"`
}

// CatalogConfig holds settings for the conversion run catalog.
type CatalogConfig struct {
	// Dir is the directory holding the history database
	// (default ".geomova").
	Dir string `json:"dir" yaml:"dir"`

	// Disabled turns off run recording.
	Disabled bool `json:"disabled" yaml:"disabled"`
}
