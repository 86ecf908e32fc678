// Package diag defines Remex compiler diagnostics and the collector
// the tree builder accumulates them into.
package diag

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/remexlang/remex/pkg/ast"
)

// Severity indicates whether a diagnostic is an error or a warning.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// String returns "error" or "warning".
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler so JSON output uses
// the string form.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for JSON
// round-tripping.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Note is a secondary label attached to a diagnostic.
type Note struct {
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
}

// Diagnostic represents a single compiler error or warning.
type Diagnostic struct {
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Span     *ast.Span `json:"span,omitempty"`
	Notes    []Note    `json:"notes,omitempty"`
}

// Collector accumulates diagnostics in visit order. The zero value is
// ready to use.
type Collector struct {
	diags    []Diagnostic
	hasFatal bool
}

// Emit appends a diagnostic.
func (c *Collector) Emit(d Diagnostic) {
	if d.Severity == SeverityError {
		c.hasFatal = true
	}
	c.diags = append(c.diags, d)
}

// Error emits a fatal diagnostic.
func (c *Collector) Error(msg string, span *ast.Span, notes ...Note) {
	c.Emit(Diagnostic{Severity: SeverityError, Message: msg, Span: span, Notes: notes})
}

// Errorf emits a fatal diagnostic with a formatted message.
func (c *Collector) Errorf(span *ast.Span, format string, args ...any) {
	c.Error(fmt.Sprintf(format, args...), span)
}

// Warn emits a non-fatal diagnostic.
func (c *Collector) Warn(msg string, span *ast.Span, notes ...Note) {
	c.Emit(Diagnostic{Severity: SeverityWarning, Message: msg, Span: span, Notes: notes})
}

// Warnf emits a non-fatal diagnostic with a formatted message.
func (c *Collector) Warnf(span *ast.Span, format string, args ...any) {
	c.Warn(fmt.Sprintf(format, args...), span)
}

// HasFatal reports whether any error-severity diagnostic was emitted.
func (c *Collector) HasFatal() bool {
	return c.hasFatal
}

// Drain returns the accumulated diagnostics in emission order.
func (c *Collector) Drain() []Diagnostic {
	return c.diags
}

// Format formats a single diagnostic for display. Non-pretty output
// is compact JSON for machine consumers.
func Format(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("%s: %s\n  --> %s", d.Severity, d.Message, loc)
	for _, n := range d.Notes {
		out += fmt.Sprintf("\n  note: %s", n.Message)
		if n.Span != nil {
			out += fmt.Sprintf(" (%s:%d:%d)", n.Span.File, n.Span.StartLine, n.Span.StartCol)
		}
	}
	return out
}

// FormatAll formats a slice of diagnostics for display.
func FormatAll(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = Format(d, true)
	}
	return strings.Join(parts, "\n\n")
}
