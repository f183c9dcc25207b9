// Package lex turns source text into a gap-free stream of tokens.
package lex

import (
	"fmt"
	"strings"

	"github.com/phobologic/codemap/internal/model"
)

// Stream is a lazy, finite, restartable token sequence covering an entire
// input with no gaps or overlaps.
type Stream interface {
	// Next returns the next token, or false once the input is exhausted.
	Next() (model.Token, bool)
	// Reset rewinds the stream to the first token.
	Reset()
}

// Collect rewinds s and returns all of its tokens.
func Collect(s Stream) []model.Token {
	s.Reset()
	var toks []model.Token
	for {
		tok, ok := s.Next()
		if !ok {
			return toks
		}
		toks = append(toks, tok)
	}
}

// Concat joins the text of toks. For a complete stream it reproduces the
// original input.
func Concat(toks []model.Token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.Text)
	}
	return b.String()
}

// ErrorMessage describes why tok was classified as an error token.
func ErrorMessage(tok model.Token) string {
	head := tok.Text
	if len(head) > 3 {
		head = head[:3]
	}
	switch {
	case strings.HasPrefix(tok.Text, "/*"):
		return "unterminated block comment"
	case strings.ContainsAny(head, "\"'`"):
		return "unterminated literal"
	case strings.TrimSpace(tok.Text) != tok.Text || len([]rune(tok.Text)) > 1:
		return fmt.Sprintf("unexpected text %q", tok.Text)
	default:
		return fmt.Sprintf("unexpected character %q", tok.Text)
	}
}

// SliceStream replays a materialized token slice.
type SliceStream struct {
	toks []model.Token
	i    int
}

// NewSliceStream wraps toks, which must already cover the input.
func NewSliceStream(toks []model.Token) *SliceStream {
	return &SliceStream{toks: toks}
}

func (s *SliceStream) Next() (model.Token, bool) {
	if s.i >= len(s.toks) {
		return model.Token{}, false
	}
	tok := s.toks[s.i]
	s.i++
	return tok, true
}

func (s *SliceStream) Reset() {
	s.i = 0
}

// cursor tracks a byte offset together with its line and column.
type cursor struct {
	src string
	pos model.Position
}

func newCursor(src string) cursor {
	return cursor{src: src, pos: model.Position{Line: 1, Column: 1}}
}

// advance moves to offset end, which must not precede the current offset.
func (c *cursor) advance(end int) {
	for i := c.pos.Offset; i < end; i++ {
		if c.src[i] == '\n' {
			c.pos.Line++
			c.pos.Column = 1
		} else {
			c.pos.Column++
		}
	}
	c.pos.Offset = end
}

// emit returns the token for [current, end) and moves past it.
func (c *cursor) emit(kind model.TokenKind, end int) model.Token {
	start := c.pos
	c.advance(end)
	return model.Token{
		Kind: kind,
		Text: c.src[start.Offset:end],
		Span: model.Span{Start: start, End: c.pos},
	}
}
