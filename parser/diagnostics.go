// Package parser drives the lexer and the encoder's operand coercers
// to turn a token stream into a fully resolved instruction list
// (spec.md C2, C4, C5): the expression evaluator, the symbol/memory
// table, the statement parser, and the three-severity diagnostic sink
// all live here.
package parser

import (
	"errors"
	"fmt"
)

// Severity classifies a Diagnostic (spec.md §7).
type Severity int

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	default:
		return "error"
	}
}

// Phase records which of the four error categories of spec.md §7
// produced a Diagnostic.
type Phase int

const (
	PhaseScan Phase = iota
	PhaseParse
	PhaseRange
	PhaseResource
)

func (p Phase) String() string {
	switch p {
	case PhaseScan:
		return "scan"
	case PhaseParse:
		return "parse"
	case PhaseRange:
		return "range"
	default:
		return "resource"
	}
}

// Diagnostic is one entry in the graduated log spec.md §7 requires.
type Diagnostic struct {
	Severity Severity
	Phase    Phase
	Line     int
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s error: %s on line %d", d.Severity, d.Phase, d.Message, d.Line)
}

// ErrCeiling is returned once the error ceiling (spec.md §5, default
// 10) has been exceeded; the driver treats it as fatal.
var ErrCeiling = errors.New("too many errors, aborting assembly")

// Diagnostics is an accumulating sink for info/warning/error entries.
// Quiet suppresses info/warning text but still counts and records
// errors. Exceeding the error limit returns ErrCeiling from Error.
type Diagnostics struct {
	Quiet    bool
	Limit    int
	entries  []Diagnostic
	errCount int
}

// NewDiagnostics builds a sink. A non-positive limit defaults to 10,
// matching spec.md §5's default error ceiling.
func NewDiagnostics(quiet bool, limit int) *Diagnostics {
	if limit <= 0 {
		limit = 10
	}
	return &Diagnostics{Quiet: quiet, Limit: limit}
}

func (d *Diagnostics) Info(phase Phase, line int, msg string) {
	d.entries = append(d.entries, Diagnostic{SevInfo, phase, line, msg})
}

func (d *Diagnostics) Warn(phase Phase, line int, msg string) {
	d.entries = append(d.entries, Diagnostic{SevWarning, phase, line, msg})
}

// Error records an error diagnostic and reports whether the ceiling
// has now been exceeded by returning ErrCeiling; callers that receive
// ErrCeiling must abort assembly immediately (spec.md §5, §7).
func (d *Diagnostics) Error(phase Phase, line int, msg string) error {
	d.entries = append(d.entries, Diagnostic{SevError, phase, line, msg})
	d.errCount++
	if d.errCount > d.Limit {
		return ErrCeiling
	}
	return nil
}

func (d *Diagnostics) HasErrors() bool   { return d.errCount > 0 }
func (d *Diagnostics) ErrorCount() int   { return d.errCount }
func (d *Diagnostics) Entries() []Diagnostic { return d.entries }
