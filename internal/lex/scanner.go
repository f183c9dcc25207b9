package lex

import (
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/phobologic/codemap/internal/model"
)

// Grammar is the lexical table for one language.
type Grammar struct {
	Keywords     map[string]bool
	Punctuators  []string
	LineComment  string
	BlockComment [2]string
	// Directive starts a preprocessor line when it is the first non-blank
	// byte of a line. Zero disables directives.
	Directive byte
	Quotes    string
	// LiteralPrefixes are identifiers that may directly precede a quote,
	// such as L"wide" or u8"utf8".
	LiteralPrefixes []string
	// RawStrings enables R"delim( ... )delim" literals.
	RawStrings bool

	sortOnce sync.Once
	sorted   []string
}

// punctuators returns Punctuators ordered longest first.
func (g *Grammar) punctuators() []string {
	g.sortOnce.Do(func() {
		g.sorted = append([]string(nil), g.Punctuators...)
		sort.SliceStable(g.sorted, func(i, j int) bool {
			return len(g.sorted[i]) > len(g.sorted[j])
		})
	})
	return g.sorted
}

// Scanner tokenizes lazily: each call to Next scans exactly one token.
type Scanner struct {
	g         *Grammar
	cur       cursor
	lineStart bool
}

// NewScanner returns a scanner over src using grammar g.
func NewScanner(src string, g *Grammar) *Scanner {
	s := &Scanner{g: g}
	s.cur = newCursor(src)
	s.lineStart = true
	return s
}

func (s *Scanner) Reset() {
	s.cur = newCursor(s.cur.src)
	s.lineStart = true
}

func (s *Scanner) Next() (model.Token, bool) {
	src := s.cur.src
	off := s.cur.pos.Offset
	if off >= len(src) {
		return model.Token{}, false
	}

	kind, end := s.scan(off)
	if end <= off {
		// Never stall: consume at least one rune.
		_, size := utf8.DecodeRuneInString(src[off:])
		kind, end = model.TokenError, off+size
	}
	tok := s.cur.emit(kind, end)

	switch kind {
	case model.TokenWhitespace:
		if strings.Contains(tok.Text, "\n") {
			s.lineStart = true
		}
	case model.TokenComment:
		// comments leave the line-start state alone
	default:
		s.lineStart = false
	}
	return tok, true
}

func (s *Scanner) scan(off int) (model.TokenKind, int) {
	src := s.cur.src
	g := s.g
	c := src[off]

	switch {
	case isSpace(c):
		end := off
		for end < len(src) && isSpace(src[end]) {
			end++
		}
		return model.TokenWhitespace, end

	case g.LineComment != "" && strings.HasPrefix(src[off:], g.LineComment):
		end := strings.IndexByte(src[off:], '\n')
		if end < 0 {
			return model.TokenComment, len(src)
		}
		return model.TokenComment, off + end

	case g.BlockComment[0] != "" && strings.HasPrefix(src[off:], g.BlockComment[0]):
		body := off + len(g.BlockComment[0])
		end := strings.Index(src[body:], g.BlockComment[1])
		if end < 0 {
			return model.TokenError, len(src)
		}
		return model.TokenComment, body + end + len(g.BlockComment[1])

	case g.Directive != 0 && c == g.Directive && s.lineStart:
		return model.TokenDirective, scanDirective(src, off)

	case c == '.' && off+1 < len(src) && isDigit(src[off+1]), isDigit(c):
		return model.TokenLiteral, scanNumber(src, off)

	case strings.IndexByte(g.Quotes, c) >= 0:
		end, ok := scanQuoted(src, off)
		if !ok {
			return model.TokenError, end
		}
		return model.TokenLiteral, end
	}

	if r, size := utf8.DecodeRuneInString(src[off:]); isIdentStart(r) {
		end := off + size
		for end < len(src) {
			r, size := utf8.DecodeRuneInString(src[end:])
			if !isIdentPart(r) {
				break
			}
			end += size
		}
		word := src[off:end]
		if end < len(src) && s.isLiteralPrefix(word) {
			if g.RawStrings && strings.HasSuffix(word, "R") && src[end] == '"' {
				e, ok := scanRaw(src, end)
				if !ok {
					return model.TokenError, e
				}
				return model.TokenLiteral, e
			}
			if strings.IndexByte(g.Quotes, src[end]) >= 0 {
				e, ok := scanQuoted(src, end)
				if !ok {
					return model.TokenError, e
				}
				return model.TokenLiteral, e
			}
		}
		if g.Keywords[word] {
			return model.TokenKeyword, end
		}
		return model.TokenIdent, end
	}

	for _, p := range g.punctuators() {
		if strings.HasPrefix(src[off:], p) {
			return model.TokenPunct, off + len(p)
		}
	}

	_, size := utf8.DecodeRuneInString(src[off:])
	return model.TokenError, off + size
}

func (s *Scanner) isLiteralPrefix(word string) bool {
	for _, p := range s.g.LiteralPrefixes {
		if p == word {
			return true
		}
	}
	return false
}

// scanDirective consumes a preprocessor line, honoring backslash-newline
// continuations. The terminating newline is not included.
func scanDirective(src string, off int) int {
	i := off
	for i < len(src) && src[i] != '\n' {
		if src[i] == '\\' && i+1 < len(src) && src[i+1] == '\n' {
			i += 2
			continue
		}
		if src[i] == '\\' && i+2 < len(src) && src[i+1] == '\r' && src[i+2] == '\n' {
			i += 3
			continue
		}
		i++
	}
	return i
}

func scanNumber(src string, off int) int {
	i := off
	for i < len(src) {
		c := src[i]
		switch {
		case isDigit(c), isLetter(c), c == '_', c == '.', c == '\'':
			i++
		case (c == '+' || c == '-') && i > off && strings.IndexByte("eEpP", src[i-1]) >= 0:
			i++
		default:
			return i
		}
	}
	return i
}

// scanQuoted consumes a quoted literal starting at the opening quote. An
// unterminated literal stops before the newline and reports false.
func scanQuoted(src string, off int) (int, bool) {
	quote := src[off]
	i := off + 1
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case quote:
			return i + 1, true
		case '\n':
			return i, false
		}
		i++
	}
	return len(src), false
}

// scanRaw consumes R"delim( ... )delim" starting at the quote.
func scanRaw(src string, off int) (int, bool) {
	open := strings.IndexByte(src[off:], '(')
	if open < 0 || open > 17 {
		return scanQuoted(src, off)
	}
	delim := src[off+1 : off+open]
	if strings.ContainsAny(delim, " \t\n\\)") {
		return scanQuoted(src, off)
	}
	closing := ")" + delim + "\""
	body := off + open + 1
	end := strings.Index(src[body:], closing)
	if end < 0 {
		return len(src), false
	}
	return body + end + len(closing), true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
