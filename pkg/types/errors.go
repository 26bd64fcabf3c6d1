// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// ParseError reports malformed or truncated input. It aborts the run; no
// output file is written.
type ParseError struct {
	// Path is the input file path.
	Path string

	// Line is the 1-based input line of the offending tag, zero if unknown.
	Line int

	// Entity is the 1-based index of the offending entity, zero if the
	// error happened outside an entity.
	Entity int

	// Err is the underlying cause.
	Err error
}

func (e *ParseError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	if e.Entity > 0 {
		return fmt.Sprintf("parse error: %s: entity %d: %v", loc, e.Entity, e.Err)
	}
	return fmt.Sprintf("parse error: %s: %v", loc, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports an input that parsed but cannot produce a usable
// MOVA file, such as a channel numbering with gaps. It aborts the run.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Reason
}

// WriteError reports an unwritable destination. The run aborts after
// flushing whatever was produced.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write error: %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ConfigError reports a bad option value (scale, translate, layer map).
// It aborts before any input or output I/O.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
