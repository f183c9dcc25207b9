package parse

import (
	"context"
	"strings"

	"github.com/phobologic/codemap/internal/lex"
	"github.com/phobologic/codemap/internal/model"
)

// Grammar is the structural table for a C-family language.
type Grammar struct {
	// TypeIntroducers start aggregate definitions: struct, union, enum, class.
	TypeIntroducers map[string]bool
	Typedef         string
	Namespace       string
	Template        string
	// Linkage is the keyword of extern "C" { ... } blocks.
	Linkage string
	// AccessLabels are "public:" style labels inside class bodies.
	AccessLabels map[string]bool
	// Modifiers are declaration-specifier keywords recorded on nodes.
	Modifiers map[string]bool
	// Skip names statements that declare nothing: using, friend, static_assert.
	Skip map[string]bool
	// Sync keywords resynchronize recovery when they begin a line.
	Sync map[string]bool
	// NotCalls are call-shaped keywords that are not calls: if, sizeof, ...
	NotCalls map[string]bool
	// Qualified enables A::b names and base lists.
	Qualified bool
}

// CFamily parses C-family token streams with a table-driven declaration
// parser. It is stateless and safe for concurrent use.
type CFamily struct {
	Grammar *Grammar
}

// Parse builds the declaration tree of file from tokens. It never fails:
// malformed regions produce diagnostics and are skipped.
func (c *CFamily) Parse(ctx context.Context, file model.SourceFile, tokens lex.Stream, opts Options) (*model.Tree, []model.Diagnostic) {
	all, diags := Drain(file.Path, tokens)

	p := &cparser{
		ctx:  ctx,
		g:    c.Grammar,
		opts: opts,
		path: file.Path,
		src:  file.Text,
		tree: model.NewTree(file.Path, file.Language),
	}
	p.load(all)
	p.parseScope(model.NoParent, scopeFile, "", model.Token{})

	AttachDocs(p.tree, all)
	return p.tree, append(diags, p.diags...)
}

// anonymous names unnamed namespaces and aggregates.
const anonymous = "<anonymous>"

type scopeKind int

const (
	scopeFile scopeKind = iota
	scopeNamespace
	scopeClass
	scopeLinkage
)

type cparser struct {
	ctx  context.Context
	g    *Grammar
	opts Options
	path string
	src  string
	tree *model.Tree

	toks      []model.Token
	lineFirst []bool
	pos       int
	diags     []model.Diagnostic

	pendingMods  []string
	pendingStart *model.Token
}

// load keeps the significant tokens and notes which of them begin a line.
func (p *cparser) load(all []model.Token) {
	newline := true
	for _, tok := range all {
		switch tok.Kind {
		case model.TokenWhitespace:
			if strings.Contains(tok.Text, "\n") {
				newline = true
			}
		case model.TokenComment, model.TokenDirective, model.TokenError:
		default:
			p.toks = append(p.toks, tok)
			p.lineFirst = append(p.lineFirst, newline)
			newline = false
		}
	}
}

func (p *cparser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *cparser) peek() model.Token { return p.peekAt(0) }

func (p *cparser) peekAt(n int) model.Token {
	if p.pos+n >= len(p.toks) {
		return model.Token{}
	}
	return p.toks[p.pos+n]
}

func (p *cparser) advance() model.Token {
	tok := p.peek()
	if !p.atEnd() {
		p.pos++
	}
	return tok
}

func (p *cparser) check(text string) bool {
	return !p.atEnd() && p.toks[p.pos].Text == text
}

func (p *cparser) match(text string) bool {
	if p.check(text) {
		p.pos++
		return true
	}
	return false
}

func (p *cparser) last() model.Token {
	if len(p.toks) == 0 {
		return model.Token{}
	}
	return p.toks[len(p.toks)-1]
}

func (p *cparser) errorf(span model.Span, format string, args ...any) {
	p.diags = append(p.diags, Errorf(p.path, span, format, args...))
}

func (p *cparser) text(from, to model.Token) string {
	a, b := from.Span.Start.Offset, to.Span.End.Offset
	if a < 0 || b > len(p.src) || a >= b {
		return ""
	}
	return CollapseWhitespace(p.src[a:b])
}

// isSync reports whether token i is a synchronizing keyword that begins a line.
func (p *cparser) isSync(i int) bool {
	return i < len(p.toks) && p.lineFirst[i] && p.g.Sync[p.toks[i].Text]
}

func (p *cparser) takePending() ([]string, *model.Token) {
	mods, start := p.pendingMods, p.pendingStart
	p.pendingMods, p.pendingStart = nil, nil
	return mods, start
}

// parseScope parses declarations until the closing brace of the scope, or
// EOF for the file scope. It reports whether the brace was found.
func (p *cparser) parseScope(parent model.NodeID, kind scopeKind, className string, open model.Token) bool {
	for !p.atEnd() {
		if err := p.ctx.Err(); err != nil {
			p.errorf(p.peek().Span, "parse abandoned: %v", err)
			p.pos = len(p.toks)
			return false
		}

		tok := p.peek()
		switch {
		case tok.Text == "}":
			p.advance()
			if kind == scopeFile {
				p.errorf(tok.Span, "unmatched '}'")
				continue
			}
			return true

		case tok.Text == ";":
			p.advance()

		case kind == scopeClass && p.g.AccessLabels[tok.Text] && p.peekAt(1).Text == ":":
			p.pos += 2

		case p.g.Template != "" && tok.Text == p.g.Template:
			p.parseTemplateHeader()

		case p.g.Namespace != "" && tok.Text == p.g.Namespace:
			p.parseNamespace(parent)

		case p.g.Linkage != "" && tok.Text == p.g.Linkage &&
			p.peekAt(1).Kind == model.TokenLiteral && p.peekAt(2).Text == "{":
			p.takePending()
			p.pos += 2
			brace := p.advance()
			if !p.parseScope(parent, scopeLinkage, className, brace) {
				return false
			}

		case p.g.Typedef != "" && tok.Text == p.g.Typedef:
			p.parseTypedef(parent)

		case p.g.TypeIntroducers[tok.Text] && p.typeShape(p.pos) != shapeUse:
			p.parseType(parent, typeOpts{})

		case p.g.Skip[tok.Text]:
			p.takePending()
			p.skipStatement()

		default:
			p.parseDeclaration(parent, kind, className)
		}
	}

	if kind != scopeFile {
		p.errorf(open.Span, "missing '}' for block opened here")
	}
	return false
}

// parseTemplateHeader consumes template<...> and marks the next node.
func (p *cparser) parseTemplateHeader() {
	start := p.advance()
	if p.check("<") {
		depth := 0
		for !p.atEnd() {
			t := p.advance().Text
			if t == "<" {
				depth++
			} else if t == ">" {
				depth--
			} else if t == ">>" {
				depth -= 2
			}
			if depth <= 0 {
				break
			}
		}
	}
	if p.pendingStart == nil {
		p.pendingStart = &start
	}
	p.pendingMods = append(p.pendingMods, model.ModTemplate)
}

func (p *cparser) parseNamespace(parent model.NodeID) {
	mods, pstart := p.takePending()
	start := p.advance()
	if pstart != nil {
		start = *pstart
	}

	var parts []string
	for p.peek().Kind == model.TokenIdent {
		parts = append(parts, p.advance().Text)
		if !p.match("::") {
			break
		}
	}

	if !p.check("{") {
		p.skipStatement()
		return
	}
	open := p.advance()

	scope := parent
	if len(parts) == 0 {
		parts = []string{anonymous}
	}
	var ids []model.NodeID
	for i, name := range parts {
		n := model.Node{
			Kind:      model.ModuleDecl,
			Name:      name,
			Span:      model.Span{Start: start.Span.Start, End: open.Span.End},
			Signature: start.Text + " " + strings.Join(parts[:i+1], "::"),
			Defined:   true,
		}
		if i == len(parts)-1 {
			n.Modifiers = mods
		}
		scope = p.tree.Add(scope, n)
		ids = append(ids, scope)
	}

	p.parseScope(scope, scopeNamespace, "", open)
	for _, id := range ids {
		p.finish(id, p.toks[p.pos-1])
	}
}

// finish extends the span of id to end at tok.
func (p *cparser) finish(id model.NodeID, tok model.Token) {
	n := p.tree.Node(id)
	if n != nil && tok.Span.End.Offset > n.Span.End.Offset {
		n.Span.End = tok.Span.End
	}
}

// skipStatement skips to the next top-level ';', or past a balanced block.
func (p *cparser) skipStatement() {
	start := p.pos
	for !p.atEnd() {
		if p.pos > start && p.isSync(p.pos) {
			return
		}
		switch p.peek().Text {
		case ";":
			p.advance()
			return
		case "{":
			p.skipBlock(model.NoParent)
			p.match(";")
			return
		case "}":
			return
		}
		p.advance()
	}
}

// skipBlock consumes a balanced block starting at '{'. When owner is a
// node and calls are enabled, call sites inside the block are recorded on
// it. It returns the closing brace, or the last token when unbalanced.
func (p *cparser) skipBlock(owner model.NodeID) model.Token {
	open := p.advance()
	depth := 1
	for !p.atEnd() {
		tok := p.advance()
		switch tok.Text {
		case "{":
			depth++
		case "}":
			depth--
			if depth == 0 {
				return tok
			}
		default:
			if owner != model.NoParent && p.opts.Calls {
				p.noteCall(owner, p.pos-1)
			}
		}
	}
	p.errorf(open.Span, "missing '}' for block opened here")
	return p.last()
}

func (p *cparser) noteCall(owner model.NodeID, i int) {
	tok := p.toks[i]
	if tok.Kind != model.TokenIdent || i+1 >= len(p.toks) || p.toks[i+1].Text != "(" {
		return
	}
	if p.g.NotCalls[tok.Text] {
		return
	}
	if i > 0 {
		switch p.toks[i-1].Text {
		case ".", "->":
			// member calls resolve against an unknown receiver type
			return
		}
	}
	p.tree.AddRelation(owner, model.Relation{Kind: model.Calls, Target: tok.Text})
}
