package compiler

import (
	"fmt"
	"strings"
)

// Diagnostic is one compiler-reported problem: a message anchored to a
// source location. Stages accumulate these rather than aborting at the
// first fault; a stage succeeds iff it produces none.
//
// Source carries the offending line's text when available, for the CLI
// driver's verbose mode — it is never part of Error()'s string, which
// stays the canonical "line:column: message" form.
type Diagnostic struct {
	Location SourceLocation
	Message  string
	Source   string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Location, d.Message)
}

// Snippet renders the diagnostic the way the CLI driver's -v mode does:
// the line:column message followed by the offending source line, trimmed.
func (d Diagnostic) Snippet() string {
	if d.Source == "" {
		return d.Error()
	}
	return fmt.Sprintf("%s\n  |> %s", d.Error(), strings.TrimSpace(d.Source))
}

// Diagnostics is an accumulated, ordered list of Diagnostic values.
type Diagnostics []Diagnostic

func (ds Diagnostics) Error() string {
	var sb strings.Builder
	for i, d := range ds {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(d.Error())
	}
	return sb.String()
}

func (ds *Diagnostics) add(loc SourceLocation, format string, args ...any) {
	*ds = append(*ds, Diagnostic{Location: loc, Message: fmt.Sprintf(format, args...)})
}

func (ds *Diagnostics) addWithSource(loc SourceLocation, source string, format string, args ...any) {
	*ds = append(*ds, Diagnostic{Location: loc, Message: fmt.Sprintf(format, args...), Source: source})
}
