// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package s2k parses the SAP2000 text-table export subset used for geometry
// extraction: joint coordinates, frame connectivity, and joint force loads.
// Joint forces encode sensor channels: the magnitude of the single nonzero
// force component is the channel number and the component axis gives the
// measurement direction. The "References" load pattern holds channels shared
// by every measurement setup; "Setup_1".."Setup_N" hold per-setup channels.
package s2k

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/movalab/geomova/pkg/types"
)

// Table names recognized by the subset.
const (
	tableJoints = "JOINT COORDINATES"
	tableFrames = "CONNECTIVITY - FRAME"
	tableLoads  = "JOINT LOADS - FORCE"
)

// referencePattern is the load pattern holding channels shared by all setups.
const referencePattern = "References"

// setupPrefix prefixes per-setup load patterns (Setup_1, Setup_2, ...).
const setupPrefix = "Setup_"

// Joint is one named point in the model.
type Joint struct {
	Name string
	Line int
	At   types.Vec3
}

// Frame is one line element between two joints.
type Frame struct {
	Name   string
	Line   int
	JointI string
	JointJ string
}

// Load is one joint force record. F holds the F1, F2, F3 components.
type Load struct {
	Joint   string
	Line    int
	Pattern string
	F       [3]float64
}

// Document is the parsed subset of an .s2k export.
type Document struct {
	Joints []Joint
	Frames []Frame
	Loads  []Load
}

var tableRe = regexp.MustCompile(`^TABLE:\s*"([^"]+)"`)

// ReadFile parses the .s2k file at path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, path)
}

// Read parses an .s2k table stream. The path is used only in error messages.
// Tables outside the subset are skipped. A record line may continue onto the
// next line with a trailing "_".
func Read(r io.Reader, path string) (*Document, error) {
	sc := bufio.NewScanner(r)
	doc := &Document{}

	var table string
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())

		// Join continuation lines before tokenizing.
		for strings.HasSuffix(text, "_") {
			if !sc.Scan() {
				return nil, &types.ParseError{Path: path, Line: line,
					Err: errors.New("continuation with no following line")}
			}
			line++
			text = strings.TrimSuffix(text, "_") + " " + strings.TrimSpace(sc.Text())
		}

		switch {
		case text == "":
			continue
		case strings.HasPrefix(text, "TABLE:"):
			m := tableRe.FindStringSubmatch(text)
			if m == nil {
				return nil, &types.ParseError{Path: path, Line: line,
					Err: fmt.Errorf("malformed table header %q", text)}
			}
			table = m[1]
			continue
		case text == "END TABLE DATA":
			table = ""
			continue
		}

		var err error
		switch table {
		case tableJoints:
			err = doc.addJoint(text, line, path)
		case tableFrames:
			err = doc.addFrame(text, line, path)
		case tableLoads:
			err = doc.addLoad(text, line, path)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return doc, nil
}

func (d *Document) addJoint(text string, line int, path string) error {
	fields, err := parseFields(text, line, path)
	if err != nil {
		return err
	}
	name, ok := fields["Joint"]
	if !ok {
		return &types.ParseError{Path: path, Line: line, Err: errors.New("joint record missing Joint field")}
	}
	x, err := fieldFloat(fields, "XorR", line, path)
	if err != nil {
		return err
	}
	y, err := fieldFloat(fields, "Y", line, path)
	if err != nil {
		return err
	}
	z, err := fieldFloat(fields, "Z", line, path)
	if err != nil {
		return err
	}
	d.Joints = append(d.Joints, Joint{Name: name, Line: line, At: types.Vec3{X: x, Y: y, Z: z}})
	return nil
}

func (d *Document) addFrame(text string, line int, path string) error {
	fields, err := parseFields(text, line, path)
	if err != nil {
		return err
	}
	name := fields["Frame"]
	ji, okI := fields["JointI"]
	jj, okJ := fields["JointJ"]
	if name == "" || !okI || !okJ {
		return &types.ParseError{Path: path, Line: line,
			Err: errors.New("frame record missing Frame, JointI or JointJ field")}
	}
	d.Frames = append(d.Frames, Frame{Name: name, Line: line, JointI: ji, JointJ: jj})
	return nil
}

func (d *Document) addLoad(text string, line int, path string) error {
	fields, err := parseFields(text, line, path)
	if err != nil {
		return err
	}
	joint, ok := fields["Joint"]
	if !ok {
		return &types.ParseError{Path: path, Line: line, Err: errors.New("load record missing Joint field")}
	}
	pattern := fields["LoadPat"]
	var f [3]float64
	for i, key := range []string{"F1", "F2", "F3"} {
		if _, ok := fields[key]; !ok {
			continue
		}
		v, err := fieldFloat(fields, key, line, path)
		if err != nil {
			return err
		}
		f[i] = v
	}
	d.Loads = append(d.Loads, Load{Joint: joint, Line: line, Pattern: pattern, F: f})
	return nil
}

// Entities flattens the document into source entities: one point per joint,
// one line per frame, one channel text per recognized load. Loads under
// patterns other than References and Setup_N are dropped here; they are not
// channel definitions.
func (d *Document) Entities() ([]types.SourceEntity, error) {
	joints := make(map[string]Joint, len(d.Joints))
	for _, j := range d.Joints {
		joints[j.Name] = j
	}

	var entities []types.SourceEntity
	idx := 0
	add := func(e types.SourceEntity) {
		idx++
		e.Index = idx
		entities = append(entities, e)
	}

	for _, j := range d.Joints {
		add(types.SourceEntity{
			Line:   j.Line,
			Kind:   types.KindPoint,
			Raw:    "Joint",
			Points: []types.Vec3{j.At},
		})
	}

	for _, fr := range d.Frames {
		ji, okI := joints[fr.JointI]
		jj, okJ := joints[fr.JointJ]
		if !okI || !okJ {
			return nil, &types.ValidationError{
				Reason: fmt.Sprintf("frame %s references an undefined joint (%s, %s)", fr.Name, fr.JointI, fr.JointJ),
			}
		}
		add(types.SourceEntity{
			Line:   fr.Line,
			Kind:   types.KindLine,
			Raw:    "Frame",
			Points: []types.Vec3{ji.At, jj.At},
		})
	}

	for _, ld := range d.Loads {
		setup, ok := loadSetup(ld.Pattern)
		if !ok {
			continue
		}
		j, okJ := joints[ld.Joint]
		if !okJ {
			return nil, &types.ValidationError{
				Reason: fmt.Sprintf("load on undefined joint %s", ld.Joint),
			}
		}
		layer, channel, err := channelFromForce(ld)
		if err != nil {
			return nil, err
		}
		add(types.SourceEntity{
			Line:   ld.Line,
			Kind:   types.KindText,
			Raw:    "JointLoad",
			Layer:  layer,
			Points: []types.Vec3{j.At},
			Text:   strconv.Itoa(channel),
			Setup:  setup,
		})
	}

	return entities, nil
}

// Setups returns the per-setup pattern names present in the document, in
// Setup_1..Setup_N order. An empty result means a single-setup model.
func (d *Document) Setups() []string {
	seen := map[string]bool{}
	for _, ld := range d.Loads {
		if strings.HasPrefix(ld.Pattern, setupPrefix) {
			seen[ld.Pattern] = true
		}
	}
	var setups []string
	for i := 1; seen[fmt.Sprintf("%s%d", setupPrefix, i)]; i++ {
		setups = append(setups, fmt.Sprintf("%s%d", setupPrefix, i))
	}
	return setups
}

// loadSetup maps a load pattern to a setup name. References channels belong
// to every setup (empty setup name).
func loadSetup(pattern string) (setup string, ok bool) {
	if pattern == referencePattern {
		return "", true
	}
	if strings.HasPrefix(pattern, setupPrefix) {
		return pattern, true
	}
	return "", false
}

// channelFromForce decodes a joint force into a direction layer and a
// channel number. Exactly one force component must be nonzero; its axis and
// sign select the direction, its magnitude is the channel number.
func channelFromForce(ld Load) (layer string, channel int, err error) {
	axes := [3][2]string{
		{"x_pos", "x_neg"},
		{"y_pos", "y_neg"},
		{"z_pos", "z_neg"},
	}
	found := -1
	for i, v := range ld.F {
		if v == 0 {
			continue
		}
		if found >= 0 {
			return "", 0, &types.ValidationError{
				Reason: fmt.Sprintf("joint %s load has multiple force components set", ld.Joint),
			}
		}
		found = i
	}
	if found < 0 {
		return "", 0, &types.ValidationError{
			Reason: fmt.Sprintf("joint %s load has no force component set", ld.Joint),
		}
	}

	v := ld.F[found]
	mag := math.Abs(v)
	channel = int(math.Round(mag))
	if channel < 1 || math.Abs(mag-float64(channel)) > 1e-9 {
		return "", 0, &types.ValidationError{
			Reason: fmt.Sprintf("joint %s force %v is not a whole channel number", ld.Joint, v),
		}
	}
	if v > 0 {
		return axes[found][0], channel, nil
	}
	return axes[found][1], channel, nil
}

// parseFields splits a record line into Key=Value fields. Values may be
// double-quoted to include spaces.
func parseFields(text string, line int, path string) (map[string]string, error) {
	fields := make(map[string]string)
	rest := text
	for rest != "" {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return nil, &types.ParseError{Path: path, Line: line,
				Err: fmt.Errorf("malformed record token %q", rest)}
		}
		key := strings.TrimSpace(rest[:eq])
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			end := strings.IndexByte(rest[1:], '"')
			if end < 0 {
				return nil, &types.ParseError{Path: path, Line: line,
					Err: errors.New("unterminated quoted value")}
			}
			value = rest[1 : 1+end]
			rest = rest[end+2:]
		} else {
			sp := strings.IndexAny(rest, " \t")
			if sp < 0 {
				value = rest
				rest = ""
			} else {
				value = rest[:sp]
				rest = rest[sp:]
			}
		}
		fields[key] = value
	}
	return fields, nil
}

func fieldFloat(fields map[string]string, key string, line int, path string) (float64, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, &types.ParseError{Path: path, Line: line,
			Err: fmt.Errorf("record missing %s field", key)}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &types.ParseError{Path: path, Line: line,
			Err: fmt.Errorf("invalid %s value %q", key, raw)}
	}
	return v, nil
}
