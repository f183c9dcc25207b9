// Package parse turns token streams into declaration trees.
package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/codemap/internal/lex"
	"github.com/phobologic/codemap/internal/model"
)

// Options tune what a parser records.
type Options struct {
	// Calls records call sites inside bodies as "calls" relations.
	Calls bool
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Drain collects every token of s and reports each error token as a lex
// diagnostic for path.
func Drain(path string, s lex.Stream) ([]model.Token, []model.Diagnostic) {
	toks := lex.Collect(s)
	var diags []model.Diagnostic
	for _, tok := range toks {
		if tok.Kind == model.TokenError {
			diags = append(diags, model.Diagnostic{
				Kind:    model.LexError,
				Path:    path,
				Span:    tok.Span,
				Message: lex.ErrorMessage(tok),
			})
		}
	}
	return toks, diags
}

// Errorf builds a parse diagnostic.
func Errorf(path string, span model.Span, format string, args ...any) model.Diagnostic {
	return model.Diagnostic{
		Kind:    model.ParseError,
		Path:    path,
		Span:    span,
		Message: fmt.Sprintf(format, args...),
	}
}
