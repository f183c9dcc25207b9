package model

import "fmt"

// DiagnosticKind classifies a non-fatal problem.
type DiagnosticKind string

const (
	LexError            DiagnosticKind = "lex"
	ParseError          DiagnosticKind = "parse"
	UnsupportedLanguage DiagnosticKind = "unsupported"
	LimitExceeded       DiagnosticKind = "limit"
	HierarchyError      DiagnosticKind = "hierarchy"
)

// Diagnostic records a recognized problem. Diagnostics never abort a file.
type Diagnostic struct {
	Kind    DiagnosticKind
	Path    string
	Span    Span
	Message string
}

func (d Diagnostic) String() string {
	if d.Span.Start.Line == 0 {
		return fmt.Sprintf("%s: %s: %s", d.Path, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Path, d.Span.Start.Line, d.Span.Start.Column, d.Kind, d.Message)
}

// HasKind reports whether any diagnostic in diags has kind k.
func HasKind(diags []Diagnostic, k DiagnosticKind) bool {
	for _, d := range diags {
		if d.Kind == k {
			return true
		}
	}
	return false
}
