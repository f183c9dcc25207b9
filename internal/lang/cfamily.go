package lang

import (
	"regexp"
	"strings"

	"github.com/phobologic/codemap/internal/lex"
	"github.com/phobologic/codemap/internal/model"
	"github.com/phobologic/codemap/internal/parse"
)

func init() {
	Default.MustRegister(&Language{
		Name:       "c",
		Extensions: []string{".c", ".h"},
		Sniff:      func(text string) bool { return !looksLikeCPP(text) },
		Tokenizer:  &scannerTokenizer{grammar: cLex},
		Parser:     &parse.CFamily{Grammar: cSyntax},
	})
	Default.MustRegister(&Language{
		Name:       "cpp",
		Extensions: []string{".cpp", ".cc", ".cxx", ".c++", ".hpp", ".hh", ".hxx", ".h", ".ipp", ".tpp"},
		Sniff:      looksLikeCPP,
		Tokenizer:  &scannerTokenizer{grammar: cppLex},
		Parser:     &parse.CFamily{Grammar: cppSyntax},
	})
}

// scannerTokenizer adapts the table-driven scanner.
type scannerTokenizer struct {
	grammar *lex.Grammar
}

func (t *scannerTokenizer) Tokenize(file model.SourceFile) lex.Stream {
	return lex.NewScanner(file.Text, t.grammar)
}

var cppMarkers = regexp.MustCompile(`(?m)^\s*(class\s+\w+|namespace\s+\w*\s*\{|template\s*<|public:|private:|protected:|using\s+namespace\b)|\w::\w|#include\s*<(iostream|string|vector|memory|map)>`)

// looksLikeCPP sniffs headers shared by C and C++.
func looksLikeCPP(text string) bool {
	return cppMarkers.MatchString(text)
}

func wordSet(s ...string) map[string]bool {
	m := map[string]bool{}
	for _, group := range s {
		for _, w := range strings.Fields(group) {
			m[w] = true
		}
	}
	return m
}

const cKeywords = `auto break case char const continue default do double else enum extern
	float for goto if inline int long register restrict return short signed sizeof static
	struct switch typedef union unsigned void volatile while _Bool _Complex _Atomic
	_Alignas _Alignof _Noreturn _Static_assert _Thread_local`

const cppKeywords = `alignas alignof and asm bool catch char8_t char16_t char32_t class
	concept consteval constexpr constinit const_cast co_await co_return co_yield decltype
	delete dynamic_cast explicit export false friend mutable namespace new noexcept not
	nullptr operator or private protected public reinterpret_cast requires static_assert
	static_cast template this thread_local throw true try typeid typename using virtual
	wchar_t xor`

var cPunctuators = []string{
	"{", "}", "(", ")", "[", "]", ";", ",", ".", "...", "->", "++", "--",
	"+", "-", "*", "/", "%", "&", "|", "^", "~", "!", "?", ":",
	"=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<=", ">>=",
	"==", "!=", "<", ">", "<=", ">=", "&&", "||", "<<", ">>",
}

var cLex = &lex.Grammar{
	Keywords:        wordSet(cKeywords),
	Punctuators:     cPunctuators,
	LineComment:     "//",
	BlockComment:    [2]string{"/*", "*/"},
	Directive:       '#',
	Quotes:          "\"'",
	LiteralPrefixes: []string{"L", "u", "U", "u8"},
}

var cppLex = &lex.Grammar{
	Keywords:        wordSet(cKeywords, cppKeywords),
	Punctuators:     append([]string{"::", "->*", ".*", "<=>"}, cPunctuators...),
	LineComment:     "//",
	BlockComment:    [2]string{"/*", "*/"},
	Directive:       '#',
	Quotes:          "\"'",
	LiteralPrefixes: []string{"L", "u", "U", "u8", "R", "LR", "uR", "UR", "u8R"},
	RawStrings:      true,
}

var cSyntax = &parse.Grammar{
	TypeIntroducers: wordSet("struct union enum"),
	Typedef:         "typedef",
	AccessLabels:    map[string]bool{},
	Modifiers:       wordSet("static inline extern register _Noreturn"),
	Skip:            wordSet("_Static_assert"),
	Sync:            wordSet("struct union enum typedef"),
	NotCalls:        wordSet("if while for switch return sizeof _Alignof defined"),
}

var cppSyntax = &parse.Grammar{
	TypeIntroducers: wordSet("struct union enum class"),
	Typedef:         "typedef",
	Namespace:       "namespace",
	Template:        "template",
	Linkage:         "extern",
	AccessLabels:    wordSet("public private protected"),
	Modifiers:       wordSet("static inline extern virtual explicit constexpr consteval mutable"),
	Skip:            wordSet("using friend static_assert"),
	Sync:            wordSet("class struct union enum typedef namespace template"),
	NotCalls:        wordSet("if while for switch return sizeof alignof decltype catch static_cast dynamic_cast const_cast reinterpret_cast typeid noexcept"),
	Qualified:       true,
}
