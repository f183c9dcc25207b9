package model

import "fmt"

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokenError TokenKind = iota
	TokenIdent
	TokenKeyword
	TokenPunct
	TokenLiteral
	TokenComment
	TokenWhitespace
	TokenDirective
)

var tokenKindNames = [...]string{
	TokenError:      "error",
	TokenIdent:      "ident",
	TokenKeyword:    "keyword",
	TokenPunct:      "punct",
	TokenLiteral:    "literal",
	TokenComment:    "comment",
	TokenWhitespace: "whitespace",
	TokenDirective:  "directive",
}

func (k TokenKind) String() string {
	if int(k) >= 0 && int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Trivia reports whether tokens of this kind carry no declaration structure.
func (k TokenKind) Trivia() bool {
	return k == TokenWhitespace || k == TokenComment || k == TokenDirective
}

// Position is a location in source text. Line and Column are 1-based;
// Column counts bytes.
type Position struct {
	Offset int
	Line   int
	Column int
}

// Span is a half-open range of source text [Start.Offset, End.Offset).
type Span struct {
	Start Position
	End   Position
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End.Offset - s.Start.Offset
}

// Contains reports whether o lies entirely inside s.
func (s Span) Contains(o Span) bool {
	return s.Start.Offset <= o.Start.Offset && o.End.Offset <= s.End.Offset
}

// Token is a single lexical token with its exact source text.
type Token struct {
	Kind TokenKind
	Text string
	Span Span
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q @%d:%d", t.Kind, t.Text, t.Span.Start.Line, t.Span.Start.Column)
}
