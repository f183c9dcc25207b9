package lang

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/phobologic/codemap/internal/model"
)

func init() {
	Default.MustRegister(newSitterLanguage("rust", []string{".rs"}, &treeSitter{
		lang:     rust.GetLanguage(),
		extract:  rustExtract,
		literals: wordSet("true false boolean_literal"),
	}))
}

func rustExtract(x *extractor, root *sitter.Node) {
	rustItems(x, model.NoParent, root, false)
}

// rustItems records the items of a source file, module or trait body.
// Function signatures without a body inside a trait are abstract.
func rustItems(x *extractor, parent model.NodeID, body *sitter.Node, inTrait bool) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		n := body.NamedChild(i)
		switch n.Type() {
		case "function_item", "function_signature_item":
			rustFunction(x, parent, n, inTrait)

		case "struct_item", "union_item":
			id := rustType(x, parent, n)
			rustFields(x, id, n.ChildByFieldName("body"))

		case "enum_item":
			id := rustType(x, parent, n)
			if variants := n.ChildByFieldName("body"); variants != nil {
				for j := 0; j < int(variants.NamedChildCount()); j++ {
					v := variants.NamedChild(j)
					if v.Type() == "enum_variant" {
						x.add(id, v, model.VariableDecl, x.field(v, "name"), x.text(v))
					}
				}
			}

		case "trait_item":
			id := rustType(x, parent, n, model.ModInterface)
			if bounds := n.ChildByFieldName("bounds"); bounds != nil {
				for j := 0; j < int(bounds.NamedChildCount()); j++ {
					x.relate(id, model.Extends, typeName(x.text(bounds.NamedChild(j))))
				}
			}
			if b := n.ChildByFieldName("body"); b != nil {
				rustItems(x, id, b, true)
			}

		case "impl_item":
			rustImpl(x, parent, n)

		case "mod_item":
			name := x.field(n, "name")
			id := x.add(parent, n, model.ModuleDecl, name, x.head(n, n.ChildByFieldName("body")))
			if b := n.ChildByFieldName("body"); b != nil {
				rustItems(x, id, b, false)
			} else {
				x.tree.Node(id).Defined = false
			}

		case "type_item":
			id := rustType(x, parent, n)
			x.relate(id, model.Aliases, typeName(x.field(n, "type")))

		case "const_item", "static_item":
			mods := []string{"const"}
			if n.Type() == "static_item" {
				mods = []string{model.ModStatic}
			}
			x.add(parent, n, model.VariableDecl, x.field(n, "name"), x.head(n, n.ChildByFieldName("value")), mods...)
		}
	}
}

func rustType(x *extractor, parent model.NodeID, n *sitter.Node, mods ...string) model.NodeID {
	return x.add(parent, n, model.TypeDecl, x.field(n, "name"), x.head(n, n.ChildByFieldName("body")), mods...)
}

func rustFields(x *extractor, id model.NodeID, body *sitter.Node) {
	if body == nil || body.Type() != "field_declaration_list" {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		f := body.NamedChild(i)
		if f.Type() != "field_declaration" {
			continue
		}
		x.add(id, f, model.VariableDecl, x.field(f, "name"), x.text(f))
	}
}

func rustFunction(x *extractor, parent model.NodeID, n *sitter.Node, inTrait bool) {
	body := n.ChildByFieldName("body")
	var mods []string
	if body == nil && inTrait {
		mods = append(mods, model.ModAbstract)
	}
	kind := model.FunctionDecl
	if parent != model.NoParent && x.tree.Node(parent).Kind == model.TypeDecl {
		kind = model.MethodDecl
	}
	id := x.add(parent, n, kind, x.field(n, "name"), x.head(n, body), mods...)
	x.calls(id, body, "call_expression", "function")
}

// rustImpl nests the functions of an impl block under the implementing
// type. A trait impl also relates the type to the trait.
func rustImpl(x *extractor, parent model.NodeID, n *sitter.Node) {
	name := typeName(x.field(n, "type"))
	if name == "" {
		return
	}
	owner := x.placeholder(parent, name)
	if trait := n.ChildByFieldName("trait"); trait != nil {
		x.relate(owner, model.Implements, typeName(x.text(trait)))
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		item := body.NamedChild(i)
		switch item.Type() {
		case "function_item":
			rustFunction(x, owner, item, false)
		case "const_item", "type_item":
			x.add(owner, item, model.VariableDecl, x.field(item, "name"), x.head(item, item.ChildByFieldName("value")), "const")
		}
	}
}
