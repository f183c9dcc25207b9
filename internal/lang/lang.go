// Package lang provides the language registry: each Language pairs a
// tokenizer with a structural parser and is selected by file extension,
// glob override or content sniffing.
package lang

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"github.com/phobologic/codemap/internal/lex"
	"github.com/phobologic/codemap/internal/model"
	"github.com/phobologic/codemap/internal/parse"
)

var (
	// ErrUnsupportedLanguage is returned when no adapter claims a file.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrDuplicateLanguage is returned when a name is registered twice.
	ErrDuplicateLanguage = errors.New("language already registered")
)

// Tokenizer produces the token stream of a file.
type Tokenizer interface {
	Tokenize(file model.SourceFile) lex.Stream
}

// Parser builds the declaration tree of a file from its token stream.
// Implementations must be safe for concurrent use.
type Parser interface {
	Parse(ctx context.Context, file model.SourceFile, tokens lex.Stream, opts parse.Options) (*model.Tree, []model.Diagnostic)
}

// Language is one registered adapter.
type Language struct {
	Name       string
	Extensions []string
	// Patterns are globs claiming paths regardless of extension, such as
	// "**/SConstruct". They rank below explicit overrides.
	Patterns []string
	// Sniff reports whether text belongs to this language. It is consulted
	// only when several languages share an extension.
	Sniff     func(text string) bool
	Tokenizer Tokenizer
	Parser    Parser
}

// Map tokenizes and parses file.
func (l *Language) Map(ctx context.Context, file model.SourceFile, opts parse.Options) (*model.Tree, []model.Diagnostic) {
	file.Language = l.Name
	return l.Parser.Parse(ctx, file, l.Tokenizer.Tokenize(file), opts)
}

type override struct {
	pattern string
	g       glob.Glob
	lang    string
}

// Registry maps names and extensions to languages. It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	langs     map[string]*Language
	order     []string
	ext       map[string][]string
	patterns  []override
	overrides []override
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		langs: map[string]*Language{},
		ext:   map[string][]string{},
	}
}

// Default holds the built-in languages, registered by init functions.
var Default = NewRegistry()

// Register adds l. Extensions are matched case-insensitively.
func (r *Registry) Register(l *Language) error {
	if l == nil || l.Name == "" || l.Tokenizer == nil || l.Parser == nil {
		return fmt.Errorf("registering language: incomplete adapter")
	}
	var patterns []override
	for _, p := range l.Patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return fmt.Errorf("registering %s: compiling pattern %q: %w", l.Name, p, err)
		}
		patterns = append(patterns, override{pattern: p, g: g, lang: l.Name})
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.langs[l.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateLanguage, l.Name)
	}
	r.langs[l.Name] = l
	r.patterns = append(r.patterns, patterns...)
	r.order = append(r.order, l.Name)
	for _, ext := range l.Extensions {
		ext = strings.ToLower(ext)
		r.ext[ext] = append(r.ext[ext], l.Name)
	}
	return nil
}

// MustRegister is Register for init functions.
func (r *Registry) MustRegister(l *Language) {
	if err := r.Register(l); err != nil {
		panic(err)
	}
}

// Override routes paths matching a glob pattern to a registered language,
// ahead of extension matching. Later overrides win.
func (r *Registry) Override(pattern, name string) error {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return fmt.Errorf("compiling override %q: %w", pattern, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.langs[name]; !ok {
		return fmt.Errorf("override %q: %w: %s", pattern, ErrUnsupportedLanguage, name)
	}
	r.overrides = append(r.overrides, override{pattern: pattern, g: g, lang: name})
	return nil
}

// Lookup returns the language registered under name.
func (r *Registry) Lookup(name string) (*Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.langs[name]
	return l, ok
}

// ForExtension returns the languages claiming ext (with leading dot), in
// registration order.
func (r *Registry) ForExtension(ext string) []*Language {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Language
	for _, name := range r.ext[strings.ToLower(ext)] {
		out = append(out, r.langs[name])
	}
	return out
}

// Select picks the language for a file: glob overrides first, then
// language patterns, then the extension, then Sniff when the extension is
// shared. A file nothing claims yields ErrUnsupportedLanguage.
func (r *Registry) Select(filePath, text string) (*Language, error) {
	r.mu.RLock()
	for i := len(r.overrides) - 1; i >= 0; i-- {
		o := r.overrides[i]
		if o.g.Match(filePath) {
			l := r.langs[o.lang]
			r.mu.RUnlock()
			return l, nil
		}
	}
	for _, p := range r.patterns {
		if p.g.Match(filePath) {
			l := r.langs[p.lang]
			r.mu.RUnlock()
			return l, nil
		}
	}
	r.mu.RUnlock()

	ext := path.Ext(filePath)
	candidates := r.ForExtension(ext)
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, filePath)
	case 1:
		return candidates[0], nil
	}
	var fallback *Language
	for _, l := range candidates {
		if l.Sniff == nil {
			if fallback == nil {
				fallback = l
			}
			continue
		}
		if l.Sniff(text) {
			return l, nil
		}
	}
	if fallback == nil {
		fallback = candidates[0]
	}
	return fallback, nil
}

// Names returns the registered language names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := slices.Clone(r.order)
	sort.Strings(names)
	return names
}

// Len returns the number of registered languages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.langs)
}

// Subset returns a registry holding only the named languages, with their
// extensions and the overrides that target them. An empty list keeps all.
func (r *Registry) Subset(names []string) (*Registry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(names) == 0 {
		names = r.order
	}
	sub := NewRegistry()
	for _, name := range r.order {
		if !slices.Contains(names, name) {
			continue
		}
		if err := sub.Register(r.langs[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range names {
		if _, ok := r.langs[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, name)
		}
	}
	for _, o := range r.overrides {
		if _, ok := sub.langs[o.lang]; ok {
			sub.overrides = append(sub.overrides, o)
		}
	}
	return sub, nil
}
