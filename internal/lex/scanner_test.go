package lex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/codemap/internal/model"
)

var testGrammar = &Grammar{
	Keywords:        map[string]bool{"int": true, "return": true, "struct": true},
	Punctuators:     []string{"{", "}", "(", ")", ";", ",", "*", "=", "::", ":", "->", "-", ">", "<<", "<"},
	LineComment:     "//",
	BlockComment:    [2]string{"/*", "*/"},
	Directive:       '#',
	Quotes:          "\"'",
	LiteralPrefixes: []string{"L", "u8", "R"},
	RawStrings:      true,
}

func scanAll(src string) []model.Token {
	return Collect(NewScanner(src, testGrammar))
}

func kinds(toks []model.Token) []model.TokenKind {
	out := make([]model.TokenKind, 0, len(toks))
	for _, t := range toks {
		if t.Kind == model.TokenWhitespace {
			continue
		}
		out = append(out, t.Kind)
	}
	return out
}

func TestScannerLossless(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"int main() { return 0; }\n",
		"#include <stdio.h>\n#define X(a) \\\n  (a)\nint x;",
		"/* block\ncomment */ int y = 'c'; // trailing",
		"char *s = \"unterminated\nint z;",
		"x = L\"wide\" + u8\"narrow\" + R\"d(raw \" text)d\";",
		"int café = 1; @ $ `",
		"/* never closed",
		"a->b::c << 0x1Fe+3 .5f 1'000",
		"\r\n\t\f\v",
	}

	for _, in := range inputs {
		toks := scanAll(in)
		assert.Equal(t, in, Concat(toks), "input %q", in)

		prev := 0
		for _, tok := range toks {
			assert.Equal(t, prev, tok.Span.Start.Offset, "gap before %v", tok)
			assert.Equal(t, tok.Span.Start.Offset+len(tok.Text), tok.Span.End.Offset)
			assert.NotEmpty(t, tok.Text)
			prev = tok.Span.End.Offset
		}
		assert.Equal(t, len(in), prev)
	}
}

func TestScannerClassifies(t *testing.T) {
	t.Parallel()

	toks := scanAll("#include <x.h>\nint f(void) { return g(\"s\", 1); } // c\n")
	assert.Equal(t, []model.TokenKind{
		model.TokenDirective,
		model.TokenKeyword, model.TokenIdent, model.TokenPunct, model.TokenIdent, model.TokenPunct,
		model.TokenPunct, model.TokenKeyword, model.TokenIdent, model.TokenPunct, model.TokenLiteral,
		model.TokenPunct, model.TokenLiteral, model.TokenPunct, model.TokenPunct, model.TokenPunct,
		model.TokenComment,
	}, kinds(toks))
}

func TestScannerDirectiveOnlyAtLineStart(t *testing.T) {
	t.Parallel()

	toks := scanAll("  #define A 1\nint a # b;\n")
	require.NotEmpty(t, toks)
	assert.Equal(t, model.TokenDirective, toks[1].Kind)
	assert.Equal(t, "#define A 1", toks[1].Text)

	var errs []model.Token
	for _, tok := range toks {
		if tok.Kind == model.TokenError {
			errs = append(errs, tok)
		}
	}
	require.Len(t, errs, 1)
	assert.Equal(t, "#", errs[0].Text)
}

func TestScannerLongestPunctuator(t *testing.T) {
	t.Parallel()

	toks := scanAll("a::b->c<<d")
	var puncts []string
	for _, tok := range toks {
		if tok.Kind == model.TokenPunct {
			puncts = append(puncts, tok.Text)
		}
	}
	assert.Equal(t, []string{"::", "->", "<<"}, puncts)
}

func TestScannerPositions(t *testing.T) {
	t.Parallel()

	toks := scanAll("int a;\n  int b;")
	var b model.Token
	for _, tok := range toks {
		if tok.Text == "b" {
			b = tok
		}
	}
	assert.Equal(t, 2, b.Span.Start.Line)
	assert.Equal(t, 7, b.Span.Start.Column)
	assert.Equal(t, 13, b.Span.Start.Offset)
}

func TestScannerErrorTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		text string
		msg  string
	}{
		{"unknown char", "int @;", "@", `unexpected character "@"`},
		{"unterminated string", "s = \"abc\n", "\"abc", "unterminated literal"},
		{"unterminated comment", "x /* abc", "/* abc", "unterminated block comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var found *model.Token
			for _, tok := range scanAll(tt.src) {
				if tok.Kind == model.TokenError {
					found = &tok
					break
				}
			}
			require.NotNil(t, found)
			assert.Equal(t, tt.text, found.Text)
			assert.Equal(t, tt.msg, ErrorMessage(*found))
		})
	}
}

func TestScannerRestartable(t *testing.T) {
	t.Parallel()

	s := NewScanner("int a; int b;", testGrammar)
	first := Collect(s)
	second := Collect(s)
	assert.Equal(t, first, second)
}

func TestCoverFillsGaps(t *testing.T) {
	t.Parallel()

	src := "foo  bar ?? baz"
	toks := Cover(src, []Piece{
		{Kind: model.TokenIdent, Start: 0, End: 3},
		{Kind: model.TokenIdent, Start: 5, End: 8},
		{Kind: model.TokenIdent, Start: 5, End: 6},
		{Kind: model.TokenIdent, Start: 12, End: 15},
	})

	assert.Equal(t, src, Concat(toks))
	assert.Equal(t, []model.TokenKind{
		model.TokenIdent, model.TokenIdent, model.TokenError, model.TokenIdent,
	}, kinds(toks))
	assert.Equal(t, "??", toks[4].Text)
}
