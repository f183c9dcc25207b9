package lang

import (
	"context"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/codemap/internal/lex"
	"github.com/phobologic/codemap/internal/model"
	"github.com/phobologic/codemap/internal/parse"
)

// treeSitter adapts a tree-sitter grammar to both halves of a Language.
// A fresh sitter.Parser is created per call; parsers are not thread-safe.
type treeSitter struct {
	lang *sitter.Language
	// extract walks the syntax tree and records declarations.
	extract func(x *extractor, root *sitter.Node)
	// literals are node types classified as literal tokens, beyond the
	// ones whose type names a string, number or character.
	literals map[string]bool
}

func (ts *treeSitter) newParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(ts.lang)
	return p
}

// Tokenize derives tokens from the leaves of the syntax tree. Comments and
// string literals stay whole; gaps become whitespace or error tokens.
func (ts *treeSitter) Tokenize(file model.SourceFile) lex.Stream {
	src := []byte(file.Text)
	tree, err := ts.newParser().ParseCtx(context.Background(), nil, src)
	if err != nil {
		return lex.NewSliceStream(lex.Cover(file.Text, nil))
	}
	defer tree.Close()

	var pieces []lex.Piece
	ts.leaves(tree.RootNode(), &pieces)
	return lex.NewSliceStream(lex.Cover(file.Text, pieces))
}

func (ts *treeSitter) leaves(n *sitter.Node, out *[]lex.Piece) {
	if n == nil || n.IsMissing() {
		return
	}
	typ := n.Type()
	count := int(n.ChildCount())
	if count == 0 || isAtomic(typ) {
		if n.EndByte() > n.StartByte() {
			*out = append(*out, lex.Piece{Kind: ts.classify(n), Start: int(n.StartByte()), End: int(n.EndByte())})
		}
		return
	}
	for i := 0; i < count; i++ {
		ts.leaves(n.Child(i), out)
	}
}

func isAtomic(typ string) bool {
	return strings.Contains(typ, "comment") || strings.Contains(typ, "string")
}

func (ts *treeSitter) classify(n *sitter.Node) model.TokenKind {
	typ := n.Type()
	switch {
	case typ == "ERROR":
		return model.TokenError
	case strings.Contains(typ, "comment"):
		return model.TokenComment
	case ts.literals[typ], isLiteralType(typ):
		return model.TokenLiteral
	case !n.IsNamed():
		if isWord(typ) {
			return model.TokenKeyword
		}
		return model.TokenPunct
	}
	return model.TokenIdent
}

func isLiteralType(typ string) bool {
	for _, s := range []string{"string", "literal", "number", "integer", "float", "char", "rune"} {
		if strings.Contains(typ, s) {
			return true
		}
	}
	return false
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// Parse reparses the text, reports ERROR and MISSING nodes and runs the
// language's extractor. The token stream supplies lex diagnostics and the
// comments used for docs.
func (ts *treeSitter) Parse(ctx context.Context, file model.SourceFile, tokens lex.Stream, opts parse.Options) (*model.Tree, []model.Diagnostic) {
	toks, diags := parse.Drain(file.Path, tokens)
	tree := model.NewTree(file.Path, file.Language)

	if err := ctx.Err(); err != nil {
		return tree, append(diags, parse.Errorf(file.Path, model.Span{}, "parse abandoned: %v", err))
	}
	src := []byte(file.Text)
	st, err := ts.newParser().ParseCtx(ctx, nil, src)
	if err != nil {
		return tree, append(diags, parse.Errorf(file.Path, model.Span{}, "parse abandoned: %v", err))
	}
	defer st.Close()

	root := st.RootNode()
	diags = append(diags, syntaxErrors(file.Path, root, src)...)

	x := &extractor{tree: tree, src: src, opts: opts}
	ts.extract(x, root)
	parse.AttachDocs(tree, toks)
	return tree, diags
}

func syntaxErrors(path string, n *sitter.Node, src []byte) []model.Diagnostic {
	var diags []model.Diagnostic
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch {
		case n.IsMissing():
			diags = append(diags, parse.Errorf(path, spanOf(n), "missing %s", n.Type()))
			return
		case n.Type() == "ERROR":
			text := parse.CollapseWhitespace(n.Content(src))
			if len(text) > 40 {
				text = text[:40] + "..."
			}
			diags = append(diags, parse.Errorf(path, spanOf(n), "syntax error near %q", text))
			return
		case !n.HasError():
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(n)
	return diags
}

func spanOf(n *sitter.Node) model.Span {
	sp, ep := n.StartPoint(), n.EndPoint()
	return model.Span{
		Start: model.Position{Offset: int(n.StartByte()), Line: int(sp.Row) + 1, Column: int(sp.Column) + 1},
		End:   model.Position{Offset: int(n.EndByte()), Line: int(ep.Row) + 1, Column: int(ep.Column) + 1},
	}
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// extractor carries the per-parse state shared by the tree-sitter walkers.
type extractor struct {
	tree *model.Tree
	src  []byte
	opts parse.Options
}

func (x *extractor) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return NodeText(n, x.src)
}

// field returns the text of a named field of n.
func (x *extractor) field(n *sitter.Node, name string) string {
	return x.text(n.ChildByFieldName(name))
}

// head returns the text of n up to the start of body, without leading
// children of the skipped types (attributes, annotations) and without a
// trailing semicolon or "=".
func (x *extractor) head(n, body *sitter.Node, skip ...string) string {
	start, end := n.StartByte(), n.EndByte()
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !slices.Contains(skip, c.Type()) {
			break
		}
		start = c.EndByte()
	}
	if body != nil && body.StartByte() >= start {
		end = body.StartByte()
	}
	s := strings.TrimSpace(string(x.src[start:end]))
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	return strings.TrimSpace(strings.TrimSuffix(s, "="))
}

func (x *extractor) add(parent model.NodeID, n *sitter.Node, kind model.DeclKind, name, sig string, mods ...string) model.NodeID {
	return x.tree.Add(parent, model.Node{
		Kind:      kind,
		Name:      name,
		Span:      spanOf(n),
		Signature: parse.CollapseWhitespace(sig),
		Modifiers: mods,
		Defined:   true,
	})
}

// placeholder returns the child of parent called name, creating an
// undefined type when it has not been seen yet.
func (x *extractor) placeholder(parent model.NodeID, name string) model.NodeID {
	if id, ok := x.tree.Find(parent, name); ok {
		return id
	}
	return x.tree.Add(parent, model.Node{Kind: model.TypeDecl, Name: name})
}

func (x *extractor) relate(id model.NodeID, kind model.RelationKind, target string) {
	if target != "" {
		x.tree.AddRelation(id, model.Relation{Kind: kind, Target: target})
	}
}

// calls records, when enabled, every call below body on owner. callType
// is the call node type and fn the field holding the callee.
func (x *extractor) calls(owner model.NodeID, body *sitter.Node, callType, fn string) {
	if !x.opts.Calls || body == nil {
		return
	}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == callType {
			if callee := lastSegment(x.field(n, fn)); callee != "" {
				x.relate(owner, model.Calls, callee)
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(body)
}

// lastSegment returns the final identifier of a dotted or scoped callee.
func lastSegment(s string) string {
	if i := strings.LastIndexAny(s, ".:"); i >= 0 {
		s = s[i+1:]
	}
	for _, r := range s {
		if r != '_' && !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z') && !('0' <= r && r <= '9') && r < 0x80 {
			return ""
		}
	}
	return s
}

// typeName strips pointers, references, generics and qualifiers from a
// type expression: "*pkg.Box[T]" becomes "Box".
func typeName(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "<[("); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimLeft(s, "*&")
	s = strings.TrimPrefix(s, "mut ")
	s = strings.TrimPrefix(s, "dyn ")
	return lastSegment(strings.TrimSpace(s))
}
