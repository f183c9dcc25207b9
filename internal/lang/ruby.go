package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"github.com/phobologic/codemap/internal/model"
)

func init() {
	l := newSitterLanguage("ruby", []string{".rb", ".rake", ".gemspec"}, &treeSitter{
		lang:     ruby.GetLanguage(),
		extract:  rubyExtract,
		literals: wordSet("true false nil simple_symbol"),
	})
	l.Patterns = []string{"{Rakefile,Gemfile,**/Rakefile,**/Gemfile}"}
	Default.MustRegister(l)
}

func rubyExtract(x *extractor, root *sitter.Node) {
	rubyBody(x, model.NoParent, root)
}

// rubyBody records the statements of a program, class or module body.
// Older grammars put statements directly under the class node, newer ones
// wrap them in a body_statement.
func rubyBody(x *extractor, parent model.NodeID, body *sitter.Node) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		switch stmt.Type() {
		case "class", "module":
			rubyScope(x, parent, stmt)
		case "method":
			rubyMethod(x, parent, stmt, nil)
		case "singleton_method":
			rubyMethod(x, parent, stmt, []string{model.ModStatic})
		case "call":
			rubyCall(x, parent, stmt)
		case "assignment":
			left := stmt.ChildByFieldName("left")
			if left != nil && left.Type() == "constant" {
				x.add(parent, stmt, model.VariableDecl, x.text(left), x.text(left), "const")
			}
		case "body_statement":
			rubyBody(x, parent, stmt)
		}
	}
}

func rubyScope(x *extractor, parent model.NodeID, n *sitter.Node) {
	name := rubyClassName(n, x.src)
	if name == "" {
		return
	}
	// "class A::B" nests B under a placeholder A.
	if i := strings.LastIndex(name, "::"); i >= 0 {
		for _, part := range strings.Split(name[:i], "::") {
			if part != "" {
				parent = x.placeholder(parent, part)
			}
		}
		name = name[i+2:]
	}

	var id model.NodeID
	if n.Type() == "module" {
		id = x.add(parent, n, model.ModuleDecl, name, "module "+rubyClassName(n, x.src))
	} else {
		id = x.add(parent, n, model.TypeDecl, name, "class "+rubyExtractClassSignature(n, x.src))
		if sc := n.ChildByFieldName("superclass"); sc != nil {
			x.relate(id, model.Extends, rubySuperclass(sc, x.src))
		}
	}
	rubyBody(x, id, n)
}

func rubyMethod(x *extractor, parent model.NodeID, n *sitter.Node, mods []string) {
	name := x.field(n, "name")
	if name == "" {
		return
	}
	kind := model.FunctionDecl
	if parent != model.NoParent {
		kind = model.MethodDecl
	}
	sig := "def " + rubyExtractMethodSignature(n, x.src)
	if n.Type() == "singleton_method" {
		sig = "def " + x.field(n, "object") + "." + rubyExtractMethodSignature(n, x.src)
	}
	id := x.add(parent, n, kind, name, sig, mods...)
	x.calls(id, n, "call", "method")
}

// rubyCall handles the class-body calls that declare something:
// attr_* accessors and include/extend mixins.
func rubyCall(x *extractor, parent model.NodeID, n *sitter.Node) {
	if parent == model.NoParent || n.ChildByFieldName("receiver") != nil {
		return
	}
	method := x.field(n, "method")
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		switch method {
		case "attr_accessor", "attr_reader", "attr_writer":
			name := strings.TrimPrefix(x.text(arg), ":")
			if arg.Type() == "simple_symbol" && name != "" {
				x.add(parent, n, model.VariableDecl, name, method+" :"+name)
			}
		case "include", "prepend", "extend":
			if arg.Type() == "constant" || arg.Type() == "scope_resolution" {
				x.relate(parent, model.Implements, lastSegment(x.text(arg)))
			}
		}
	}
}

// rubyClassName extracts the name from a class or module node.
func rubyClassName(node *sitter.Node, source []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return NodeText(name, source)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "constant" || child.Type() == "scope_resolution" {
			return NodeText(child, source)
		}
	}
	return ""
}

// rubySuperclass returns the class named by a superclass node ("< Base").
func rubySuperclass(sc *sitter.Node, source []byte) string {
	for j := 0; j < int(sc.NamedChildCount()); j++ {
		c := sc.NamedChild(j)
		if c.Type() == "constant" || c.Type() == "scope_resolution" {
			return lastSegment(NodeText(c, source))
		}
	}
	return ""
}

func rubyExtractClassSignature(node *sitter.Node, source []byte) string {
	name := rubyClassName(node, source)
	if sc := node.ChildByFieldName("superclass"); sc != nil {
		for j := 0; j < int(sc.NamedChildCount()); j++ {
			c := sc.NamedChild(j)
			if c.Type() == "constant" || c.Type() == "scope_resolution" {
				return name + " < " + NodeText(c, source)
			}
		}
	}
	return name
}

func rubyExtractMethodSignature(node *sitter.Node, source []byte) string {
	var name, params string
	if n := node.ChildByFieldName("name"); n != nil {
		name = NodeText(n, source)
	}
	if p := node.ChildByFieldName("parameters"); p != nil {
		params = NodeText(p, source)
	}
	return name + params
}
