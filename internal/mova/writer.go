// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mova renders geometry models in the text schema MOVA reads:
// a GEOMETRY DEFINITION header, numbered nodes, node-pair lines, sensor
// channel directions, and a COLOR PLANE trailer. The layout, including its
// blank-line separators, is what the tool's parser expects; output is
// deterministic so identical inputs produce byte-identical files.
package mova

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/movalab/geomova/pkg/types"
)

// Node is one numbered point of the model. IDs start at 1 and follow first
// appearance order in the source.
type Node struct {
	ID      int
	X, Y, Z float64
}

// Line connects two nodes by ID.
type Line struct {
	N1, N2 int
}

// Sensor is one measurement channel: the node it sits on and its unit
// direction as integer components.
type Sensor struct {
	Node int
	Dir  [3]int
}

// Model is the geometry MOVA consumes. A model with no nodes, lines or
// sensors still renders to a valid file.
type Model struct {
	Nodes   []Node
	Lines   []Line
	Sensors []Sensor
}

// Records returns the number of output records in the model.
func (m *Model) Records() int {
	return len(m.Nodes) + len(m.Lines) + len(m.Sensors)
}

// Write renders the model to w.
func Write(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("\n\n")
	bw.WriteString("GEOMETRY DEFINITION\n")
	bw.WriteString("\n\n")

	bw.WriteString("NODES ID, X, Y, Z\n")
	bw.WriteString("\n")
	for _, n := range m.Nodes {
		fmt.Fprintf(bw, "%d %s %s %s\n", n.ID, coord(n.X), coord(n.Y), coord(n.Z))
	}
	bw.WriteString("\n\n\n")

	bw.WriteString("LINES NODE 1 - NODE 2\n")
	bw.WriteString("\n")
	fmt.Fprintf(bw, "%d\n", len(m.Lines))
	for _, l := range m.Lines {
		fmt.Fprintf(bw, "%d %d\n", l.N1, l.N2)
	}
	bw.WriteString("\n\n")

	bw.WriteString("SENSORS [ID, DIR (1-x, 2-y, 3-z)]\n")
	for _, s := range m.Sensors {
		fmt.Fprintf(bw, "%d %d %d %d\n", s.Node, s.Dir[0], s.Dir[1], s.Dir[2])
	}
	bw.WriteString("\n\n\n")

	bw.WriteString("COLOR PLANE\n")
	bw.WriteString("\n")
	bw.WriteString("0\n\n")

	return bw.Flush()
}

// WriteFile renders the model to path, creating or overwriting the file.
func WriteFile(path string, m *Model) error {
	f, err := os.Create(path)
	if err != nil {
		return &types.WriteError{Path: path, Err: err}
	}
	if err := Write(f, m); err != nil {
		f.Close()
		return &types.WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &types.WriteError{Path: path, Err: err}
	}
	return nil
}

// coord formats a coordinate with the shortest representation that
// round-trips.
func coord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
