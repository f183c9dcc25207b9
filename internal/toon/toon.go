// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/codemap/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a RepoMap into TOON format.
func Encode(rm *model.RepoMap) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(rm.Root)))

	var fileRows [][]string
	for i := range rm.Files {
		fm := &rm.Files[i]
		fileRows = append(fileRows, []string{
			fm.Path,
			fm.Language,
			fmt.Sprintf("%.4f", fm.Rank),
			strconv.Itoa(fm.Map.Len()),
		})
	}
	parts = append(parts, formatTabular("files", []string{"path", "language", "rank", "symbols"}, fileRows))

	var symbolRows, relationRows [][]string
	for i := range rm.Files {
		fm := &rm.Files[i]
		fm.Map.Each(func(e *model.Entry) {
			symbolRows = append(symbolRows, []string{
				fm.Path,
				e.Name,
				string(e.Kind),
				strconv.Itoa(e.Line()),
				e.Signature,
				strings.Join(e.Modifiers, " "),
			})
			for _, r := range e.Relations {
				target, scope := r.Resolved, "local"
				if r.External {
					target, scope = r.Target, "external"
				}
				relationRows = append(relationRows, []string{
					fm.Path,
					e.Name,
					string(r.Kind),
					target,
					scope,
				})
			}
		})
	}
	parts = append(parts, formatTabular("symbols", []string{"file", "name", "kind", "line", "signature", "modifiers"}, symbolRows))
	parts = append(parts, formatTabular("relations", []string{"file", "from", "kind", "to", "scope"}, relationRows))

	var depRows [][]string
	for i := range rm.Dependencies {
		d := &rm.Dependencies[i]
		depRows = append(depRows, []string{
			d.Source,
			d.Target,
			strings.Join(d.Symbols, " "),
		})
	}
	parts = append(parts, formatTabular("dependencies", []string{"source", "target", "symbols"}, depRows))

	var callRows [][]string
	for i := range rm.CallEdges {
		ce := &rm.CallEdges[i]
		callRows = append(callRows, []string{ce.Caller, ce.Callee, ce.File})
	}
	parts = append(parts, formatTabular("calls", []string{"caller", "callee", "file"}, callRows))

	if n := rm.DiagnosticCount(); n > 0 {
		diagRows := make([][]string, 0, n)
		add := func(d model.Diagnostic) {
			diagRows = append(diagRows, []string{
				d.Path,
				strconv.Itoa(d.Span.Start.Line),
				string(d.Kind),
				d.Message,
			})
		}
		for i := range rm.Files {
			for _, d := range rm.Files[i].Diagnostics {
				add(d)
			}
		}
		for _, d := range rm.Diagnostics {
			add(d)
		}
		parts = append(parts, formatTabular("diagnostics", []string{"path", "line", "kind", "message"}, diagRows))
	}

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
