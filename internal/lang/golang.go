package lang

import (
	"slices"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/phobologic/codemap/internal/model"
)

func init() {
	Default.MustRegister(newSitterLanguage("go", []string{".go"}, &treeSitter{
		lang:     golang.GetLanguage(),
		extract:  goExtract,
		literals: wordSet("true false nil iota"),
	}))
}

func newSitterLanguage(name string, exts []string, ts *treeSitter) *Language {
	return &Language{Name: name, Extensions: exts, Tokenizer: ts, Parser: ts}
}

func goExtract(x *extractor, root *sitter.Node) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "function_declaration":
			id := x.add(model.NoParent, child, model.FunctionDecl, x.field(child, "name"), goFuncSignature(x, child))
			x.calls(id, child.ChildByFieldName("body"), "call_expression", "function")

		case "method_declaration":
			recv := goFindReceiverType(child, x.src)
			owner := model.NoParent
			if recv != "" {
				owner = x.placeholder(model.NoParent, recv)
			}
			id := x.add(owner, child, model.MethodDecl, x.field(child, "name"), goFuncSignature(x, child))
			x.calls(id, child.ChildByFieldName("body"), "call_expression", "function")

		case "type_declaration":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if spec.Type() == "type_spec" || spec.Type() == "type_alias" {
					goTypeSpec(x, outer(child, spec), spec)
				}
			}

		case "var_declaration", "const_declaration":
			goValueSpecs(x, child)
		}
	}
	goImplicitImplements(x)
}

// goFindReceiverType extracts the receiver type name from a method_declaration node.
// Navigates: method_declaration → parameter_list (receiver) → parameter_declaration → type.
func goFindReceiverType(node *sitter.Node, source []byte) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for j := 0; j < int(recv.NamedChildCount()); j++ {
		param := recv.NamedChild(j)
		if param.Type() != "parameter_declaration" {
			continue
		}
		if typ := param.ChildByFieldName("type"); typ != nil {
			return typeName(NodeText(typ, source))
		}
	}
	return ""
}

func goFuncSignature(x *extractor, n *sitter.Node) string {
	sig := x.field(n, "name") + x.field(n, "type_parameters") + x.field(n, "parameters")
	if result := x.field(n, "result"); result != "" {
		sig += " " + result
	}
	return sig
}

// outer widens a lone spec to its whole declaration so that the span
// covers the keyword and the comment above it.
func outer(decl, spec *sitter.Node) *sitter.Node {
	if decl.NamedChildCount() == 1 {
		return decl
	}
	return spec
}

func goTypeSpec(x *extractor, at, spec *sitter.Node) {
	name := x.field(spec, "name")
	typ := spec.ChildByFieldName("type")
	if name == "" || typ == nil {
		return
	}

	sig := "type " + name + x.field(spec, "type_parameters") + " "
	if spec.Type() == "type_alias" {
		sig = "type " + name + " = "
	}
	var mods []string
	switch typ.Type() {
	case "struct_type":
		sig += "struct"
	case "interface_type":
		sig += "interface"
		mods = append(mods, model.ModInterface)
	default:
		sig += x.text(typ)
	}

	id := x.add(model.NoParent, at, model.TypeDecl, name, sig, mods...)
	switch typ.Type() {
	case "struct_type":
		goStructFields(x, id, typ)
	case "interface_type":
		goInterfaceMethods(x, id, typ)
	default:
		if spec.Type() == "type_alias" {
			x.relate(id, model.Aliases, typeName(x.text(typ)))
		}
	}
}

func goStructFields(x *extractor, id model.NodeID, st *sitter.Node) {
	for i := 0; i < int(st.NamedChildCount()); i++ {
		list := st.NamedChild(i)
		if list.Type() != "field_declaration_list" {
			continue
		}
		for j := 0; j < int(list.NamedChildCount()); j++ {
			field := list.NamedChild(j)
			if field.Type() != "field_declaration" {
				continue
			}
			typ := x.field(field, "type")
			named := false
			for k := 0; k < int(field.NamedChildCount()); k++ {
				c := field.NamedChild(k)
				if c.Type() == "field_identifier" {
					named = true
					x.add(id, c, model.VariableDecl, x.text(c), x.text(c)+" "+typ)
				}
			}
			if !named {
				// embedded field
				x.relate(id, model.Extends, typeName(typ))
			}
		}
	}
}

func goInterfaceMethods(x *extractor, id model.NodeID, it *sitter.Node) {
	for i := 0; i < int(it.NamedChildCount()); i++ {
		elem := it.NamedChild(i)
		switch elem.Type() {
		case "method_spec", "method_elem":
			name := x.field(elem, "name")
			sig := name + x.field(elem, "parameters")
			if result := x.field(elem, "result"); result != "" {
				sig += " " + result
			}
			x.add(id, elem, model.MethodDecl, name, sig, model.ModAbstract)
		case "type_elem", "constraint_elem", "interface_type_name", "type_identifier", "qualified_type":
			x.relate(id, model.Extends, typeName(x.text(elem)))
		}
	}
}

func goValueSpecs(x *extractor, decl *sitter.Node) {
	var mods []string
	if decl.Type() == "const_declaration" {
		mods = append(mods, "const")
	}
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			spec := n.NamedChild(i)
			switch spec.Type() {
			case "var_spec", "const_spec":
				typ := x.field(spec, "type")
				for j := 0; j < int(spec.NamedChildCount()); j++ {
					c := spec.NamedChild(j)
					if c.Type() != "identifier" {
						continue
					}
					sig := x.text(c)
					if typ != "" {
						sig += " " + typ
					}
					x.add(model.NoParent, outer(n, spec), model.VariableDecl, x.text(c), sig, mods...)
				}
			case "var_spec_list":
				visit(spec)
			}
		}
	}
	visit(decl)
}

// goImplicitImplements relates every struct type to each interface in the
// file whose method names its own method set covers.
func goImplicitImplements(x *extractor) {
	methods := func(id model.NodeID) []string {
		var names []string
		for _, c := range x.tree.Children(id) {
			if n := x.tree.Node(c); n.Kind == model.MethodDecl {
				names = append(names, n.Name)
			}
		}
		return names
	}

	var ifaces, types []model.NodeID
	for _, id := range x.tree.Roots {
		n := x.tree.Node(id)
		if n.Kind != model.TypeDecl {
			continue
		}
		if n.HasModifier(model.ModInterface) {
			ifaces = append(ifaces, id)
		} else {
			types = append(types, id)
		}
	}

	for _, t := range types {
		have := methods(t)
		for _, i := range ifaces {
			want := methods(i)
			if len(want) == 0 {
				continue
			}
			covered := true
			for _, m := range want {
				if !slices.Contains(have, m) {
					covered = false
					break
				}
			}
			if covered {
				x.relate(t, model.Implements, x.tree.Node(i).Name)
			}
		}
	}
}
