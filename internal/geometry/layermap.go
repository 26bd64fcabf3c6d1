// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package geometry

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/movalab/geomova/pkg/types"
)

// Role is what a CAD layer means to the converter.
type Role string

const (
	// Direction roles mark a layer whose text entities are sensor channels
	// measuring along the named axis.
	RoleXPos Role = "x_pos"
	RoleXNeg Role = "x_neg"
	RoleYPos Role = "y_pos"
	RoleYNeg Role = "y_neg"
	RoleZPos Role = "z_pos"
	RoleZNeg Role = "z_neg"

	// RoleLines marks a layer as structural wireframe. Line entities
	// convert regardless of layer, so this is an explicit annotation.
	RoleLines Role = "lines"

	// RoleIgnore drops every entity on the layer.
	RoleIgnore Role = "ignore"
)

// directions maps a direction role to its unit vector.
var directions = map[Role][3]int{
	RoleXPos: {1, 0, 0},
	RoleXNeg: {-1, 0, 0},
	RoleYPos: {0, 1, 0},
	RoleYNeg: {0, -1, 0},
	RoleZPos: {0, 0, 1},
	RoleZNeg: {0, 0, -1},
}

// LayerMap resolves CAD layer names to roles. Layer names are matched
// case-insensitively, the way the CAD side treats them.
type LayerMap struct {
	roles map[string]Role
}

// DefaultLayerMap maps the six direction layer names to themselves.
func DefaultLayerMap() *LayerMap {
	m := &LayerMap{roles: make(map[string]Role, len(directions))}
	for role := range directions {
		m.roles[string(role)] = role
	}
	return m
}

// LoadLayerMap reads a YAML layer-to-role mapping and overlays it on the
// defaults. Duplicate keys and unknown roles are configuration errors,
// raised before any input is read.
func LoadLayerMap(path string) (*LayerMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.ConfigError{Field: "layer-map", Err: err}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &types.ConfigError{Field: "layer-map", Err: err}
	}

	m := DefaultLayerMap()
	if len(doc.Content) == 0 {
		return m, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &types.ConfigError{Field: "layer-map",
			Err: fmt.Errorf("%s: expected a mapping of layer to role", path)}
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := strings.ToLower(strings.TrimSpace(root.Content[i].Value))
		value := Role(strings.TrimSpace(root.Content[i+1].Value))

		if seen[key] {
			return nil, &types.ConfigError{Field: "layer-map",
				Err: fmt.Errorf("%s: duplicate layer %q", path, key)}
		}
		seen[key] = true

		if !validRole(value) {
			return nil, &types.ConfigError{Field: "layer-map",
				Err: fmt.Errorf("%s: layer %q has unknown role %q", path, key, value)}
		}
		m.roles[key] = value
	}
	return m, nil
}

func validRole(r Role) bool {
	if _, ok := directions[r]; ok {
		return true
	}
	return r == RoleLines || r == RoleIgnore
}

// Role returns the role assigned to a layer, if any.
func (m *LayerMap) Role(layer string) (Role, bool) {
	r, ok := m.roles[strings.ToLower(strings.TrimSpace(layer))]
	return r, ok
}

// Direction returns the unit direction vector for a layer whose role is a
// measurement direction.
func (m *LayerMap) Direction(layer string) ([3]int, bool) {
	r, ok := m.Role(layer)
	if !ok {
		return [3]int{}, false
	}
	d, ok := directions[r]
	return d, ok
}

// Ignored reports whether every entity on the layer should be dropped.
func (m *LayerMap) Ignored(layer string) bool {
	r, ok := m.Role(layer)
	return ok && r == RoleIgnore
}
