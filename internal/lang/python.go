package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/phobologic/codemap/internal/model"
)

func init() {
	Default.MustRegister(newSitterLanguage("python", []string{".py", ".pyi"}, &treeSitter{
		lang:     python.GetLanguage(),
		extract:  pythonExtract,
		literals: wordSet("true false none"),
	}))
}

func pythonExtract(x *extractor, root *sitter.Node) {
	pythonBlock(x, model.NoParent, root, false)
}

// pythonBlock records the definitions directly inside a module or class body.
func pythonBlock(x *extractor, parent model.NodeID, block *sitter.Node, inClass bool) {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		stmt := block.NamedChild(i)
		switch stmt.Type() {
		case "class_definition", "function_definition":
			pythonDefinition(x, parent, stmt, stmt, nil, inClass)
		case "decorated_definition":
			def := stmt.ChildByFieldName("definition")
			if def == nil {
				continue
			}
			pythonDefinition(x, parent, stmt, def, pythonDecorators(x, stmt), inClass)
		case "expression_statement":
			pythonAssignment(x, parent, stmt)
		}
	}
}

func pythonDecorators(x *extractor, n *sitter.Node) []string {
	var names []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		d := n.NamedChild(i)
		if d.Type() != "decorator" {
			continue
		}
		text := strings.TrimPrefix(x.text(d), "@")
		if j := strings.IndexByte(text, '('); j >= 0 {
			text = text[:j]
		}
		names = append(names, lastSegment(strings.TrimSpace(text)))
	}
	return names
}

// pythonDefinition records a class or function. at is the node whose span
// is used, which includes decorators.
func pythonDefinition(x *extractor, parent model.NodeID, at, def *sitter.Node, decorators []string, inClass bool) {
	name := x.field(def, "name")
	if name == "" {
		return
	}
	body := def.ChildByFieldName("body")

	if def.Type() == "class_definition" {
		id := x.add(parent, at, model.TypeDecl, name, pythonExtractClassSignature(def, x.src))
		if supers := def.ChildByFieldName("superclasses"); supers != nil {
			for j := 0; j < int(supers.NamedChildCount()); j++ {
				base := supers.NamedChild(j)
				if base.Type() == "identifier" || base.Type() == "attribute" {
					x.relate(id, model.Extends, x.text(base))
				}
			}
		}
		pythonDocstring(x, id, body)
		if body != nil {
			pythonBlock(x, id, body, true)
		}
		for _, c := range x.tree.Children(id) {
			if x.tree.Node(c).HasModifier(model.ModAbstract) {
				x.tree.AddModifier(id, model.ModAbstract)
				break
			}
		}
		return
	}

	kind := model.FunctionDecl
	if inClass {
		kind = model.MethodDecl
	}
	var mods []string
	for _, d := range decorators {
		switch d {
		case "abstractmethod":
			mods = append(mods, model.ModAbstract)
		case "staticmethod":
			mods = append(mods, model.ModStatic)
		case "classmethod", "property":
			mods = append(mods, d)
		}
	}
	if strings.HasPrefix(strings.TrimSpace(x.text(def)), "async") {
		mods = append(mods, "async")
	}
	id := x.add(parent, at, kind, name, pythonExtractFunctionSignature(def, x.src), mods...)
	pythonDocstring(x, id, body)
	x.calls(id, body, "call", "function")
}

// pythonDocstring uses a leading string statement of body as the doc.
func pythonDocstring(x *extractor, id model.NodeID, body *sitter.Node) {
	if body == nil || body.NamedChildCount() == 0 {
		return
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 || first.NamedChild(0).Type() != "string" {
		return
	}
	doc := x.text(first.NamedChild(0))
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(doc, q) && strings.HasSuffix(doc, q) && len(doc) >= 2*len(q) {
			doc = doc[len(q) : len(doc)-len(q)]
			break
		}
	}
	x.tree.Node(id).Doc = strings.TrimSpace(doc)
}

// pythonAssignment records "name = value" and "name: T = value" targets.
func pythonAssignment(x *extractor, parent model.NodeID, stmt *sitter.Node) {
	if stmt.NamedChildCount() == 0 {
		return
	}
	assign := stmt.NamedChild(0)
	if assign.Type() != "assignment" {
		return
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return
	}
	x.add(parent, stmt, model.VariableDecl, x.text(left), pythonExtractFieldSignature(assign, x.src))
}

func pythonExtractClassSignature(node *sitter.Node, source []byte) string {
	var name, args string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			name = NodeText(child, source)
		case "argument_list":
			args = NodeText(child, source)
		}
	}
	if args != "" {
		return name + args
	}
	return name
}

// pythonExtractFieldSignature returns "name: type" when an annotation is
// present, otherwise just "name".
func pythonExtractFieldSignature(node *sitter.Node, source []byte) string {
	var name, annotation string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			if name == "" {
				name = NodeText(child, source)
			}
		case "type":
			annotation = NodeText(child, source)
		}
	}
	if annotation != "" {
		return name + ": " + annotation
	}
	return name
}

func pythonExtractFunctionSignature(node *sitter.Node, source []byte) string {
	var name, params, returnType string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			name = NodeText(child, source)
		case "parameters":
			params = NodeText(child, source)
		case "type":
			returnType = NodeText(child, source)
		}
	}
	sig := name + params
	if returnType != "" {
		sig += " -> " + returnType
	}
	return sig
}
