package lang

import (
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/phobologic/codemap/internal/model"
)

func init() {
	Default.MustRegister(newSitterLanguage("java", []string{".java"}, &treeSitter{
		lang:     java.GetLanguage(),
		extract:  javaExtract,
		literals: wordSet("true false null"),
	}))
}

func javaExtract(x *extractor, root *sitter.Node) {
	javaMembers(x, model.NoParent, root, false)
}

// javaMembers records the declarations directly inside a compilation unit
// or a type body. Methods without a body inside an interface are abstract.
func javaMembers(x *extractor, parent model.NodeID, body *sitter.Node, inInterface bool) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		n := body.NamedChild(i)
		switch n.Type() {
		case "class_declaration", "interface_declaration", "enum_declaration",
			"record_declaration", "annotation_type_declaration":
			javaType(x, parent, n)
		case "method_declaration", "constructor_declaration", "compact_constructor_declaration":
			javaMethod(x, parent, n, inInterface)
		case "field_declaration", "constant_declaration":
			javaField(x, parent, n, inInterface)
		case "enum_body_declarations":
			javaMembers(x, parent, n, inInterface)
		case "enum_constant":
			name := x.field(n, "name")
			x.add(parent, n, model.VariableDecl, name, name, model.ModStatic)
		}
	}
}

// javaModifiers returns the keyword modifiers of n, without annotations.
func javaModifiers(x *extractor, n *sitter.Node) []string {
	var mods []string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(c.ChildCount()); j++ {
			m := c.Child(j)
			if m.Type() == "marker_annotation" || m.Type() == "annotation" {
				continue
			}
			mods = append(mods, x.text(m))
		}
	}
	return mods
}

func javaSignature(x *extractor, n, body *sitter.Node, mods []string) string {
	head := x.head(n, body, "modifiers")
	if len(mods) == 0 {
		return head
	}
	return strings.Join(mods, " ") + " " + head
}

func javaType(x *extractor, parent model.NodeID, n *sitter.Node) {
	name := x.field(n, "name")
	if name == "" {
		return
	}
	body := n.ChildByFieldName("body")
	mods := javaModifiers(x, n)
	sig := javaSignature(x, n, body, mods)

	interfaceLike := n.Type() == "interface_declaration" || n.Type() == "annotation_type_declaration"
	if interfaceLike {
		mods = append(mods, model.ModInterface)
	}
	id := x.add(parent, n, model.TypeDecl, name, sig, mods...)

	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "superclass":
			javaTypeList(x, id, c, model.Extends)
		case "super_interfaces":
			javaTypeList(x, id, c, model.Implements)
		case "extends_interfaces":
			javaTypeList(x, id, c, model.Extends)
		}
	}

	if body != nil {
		javaMembers(x, id, body, interfaceLike)
	}
}

// javaTypeList relates id to every type named below n.
func javaTypeList(x *extractor, id model.NodeID, n *sitter.Node, kind model.RelationKind) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "type_list":
			javaTypeList(x, id, c, kind)
		case "type_identifier", "generic_type", "scoped_type_identifier":
			x.relate(id, kind, typeName(x.text(c)))
		}
	}
}

func javaMethod(x *extractor, parent model.NodeID, n *sitter.Node, inInterface bool) {
	name := x.field(n, "name")
	if name == "" {
		return
	}
	body := n.ChildByFieldName("body")
	mods := javaModifiers(x, n)
	sig := javaSignature(x, n, body, mods)
	if body == nil && inInterface && !slices.Contains(mods, model.ModStatic) && !slices.Contains(mods, model.ModAbstract) {
		mods = append(mods, model.ModAbstract)
	}

	kind := model.MethodDecl
	if parent == model.NoParent {
		kind = model.FunctionDecl
	}
	id := x.add(parent, n, kind, name, sig, mods...)
	x.calls(id, body, "method_invocation", "name")
}

func javaField(x *extractor, parent model.NodeID, n *sitter.Node, inInterface bool) {
	mods := javaModifiers(x, n)
	if inInterface {
		for _, m := range []string{model.ModStatic, "final"} {
			if !slices.Contains(mods, m) {
				mods = append(mods, m)
			}
		}
	}
	typ := x.field(n, "type")
	for i := 0; i < int(n.NamedChildCount()); i++ {
		d := n.NamedChild(i)
		if d.Type() != "variable_declarator" {
			continue
		}
		name := x.field(d, "name")
		x.add(parent, n, model.VariableDecl, name, typ+" "+name, mods...)
	}
}
