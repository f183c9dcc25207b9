package lex

import (
	"github.com/phobologic/codemap/internal/model"
)

// Piece is a classified byte range reported by an external parser.
type Piece struct {
	Kind  model.TokenKind
	Start int
	End   int
}

// Cover turns ordered pieces into a token slice that covers src exactly.
// Bytes between pieces become whitespace tokens, or error tokens when they
// are not blank. Overlapping or empty pieces are clipped away.
func Cover(src string, pieces []Piece) []model.Token {
	cur := newCursor(src)
	var toks []model.Token

	gap := func(end int) {
		for cur.pos.Offset < end {
			i := cur.pos.Offset
			blank := isSpace(src[i])
			for i < end && isSpace(src[i]) == blank {
				i++
			}
			kind := model.TokenError
			if blank {
				kind = model.TokenWhitespace
			}
			toks = append(toks, cur.emit(kind, i))
		}
	}

	for _, p := range pieces {
		start, end := p.Start, p.End
		if end > len(src) {
			end = len(src)
		}
		if start < cur.pos.Offset {
			start = cur.pos.Offset
		}
		if end <= start {
			continue
		}
		gap(start)
		toks = append(toks, cur.emit(p.Kind, end))
	}
	gap(len(src))
	return toks
}
