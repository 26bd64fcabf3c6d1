// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SkipReason explains why an entity produced no output.
type SkipReason string

const (
	SkipUnsupportedKind SkipReason = "unsupported kind"
	SkipUnmappedLayer   SkipReason = "unmapped layer"
	SkipDegenerate      SkipReason = "degenerate"
	SkipIgnoredLayer    SkipReason = "ignored layer"
)

// Skip records one skipped entity for the conversion report.
type Skip struct {
	Entity int        `json:"entity" yaml:"entity"`
	Kind   EntityKind `json:"kind" yaml:"kind"`
	Raw    string     `json:"raw,omitempty" yaml:"raw,omitempty"`
	Layer  string     `json:"layer,omitempty" yaml:"layer,omitempty"`
	Reason SkipReason `json:"reason" yaml:"reason"`
}

// Report summarizes a conversion run. For every run the conservation
// invariant holds: Read == Converted + Skipped().
type Report struct {
	// Read is the number of entities read from the source file.
	Read int `json:"read" yaml:"read"`

	// Converted is the number of entities that produced output records.
	Converted int `json:"converted" yaml:"converted"`

	// Skips lists the skipped entities with their reasons, in source order.
	Skips []Skip `json:"skips,omitempty" yaml:"skips,omitempty"`
}

// Skipped returns the number of skipped entities.
func (r *Report) Skipped() int {
	return len(r.Skips)
}
