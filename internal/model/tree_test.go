package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeAddKeepsSourceOrder(t *testing.T) {
	t.Parallel()

	tr := NewTree("a.c", "c")
	a := tr.Add(NoParent, Node{Kind: TypeDecl, Name: "A", Defined: true})
	tr.Add(a, Node{Kind: VariableDecl, Name: "x", Defined: true})
	tr.Add(a, Node{Kind: VariableDecl, Name: "y", Defined: true})
	tr.Add(NoParent, Node{Kind: FunctionDecl, Name: "f", Defined: true})

	require.Len(t, tr.Roots, 2)
	assert.Equal(t, "A", tr.Node(tr.Roots[0]).Name)
	assert.Equal(t, "f", tr.Node(tr.Roots[1]).Name)

	var names []string
	tr.Walk(func(id NodeID, _ int) bool {
		names = append(names, tr.Node(id).Name)
		return true
	})
	assert.Equal(t, []string{"A", "x", "y", "f"}, names)
	assert.Equal(t, []string{"A", "y"}, tr.Scope(tr.Node(a).Children[1]))
}

func TestTreeAddMergesPrototype(t *testing.T) {
	t.Parallel()

	tr := NewTree("a.c", "c")
	proto := tr.Add(NoParent, Node{Kind: FunctionDecl, Name: "f", Signature: "int f(void)"})
	def := tr.Add(NoParent, Node{
		Kind:      FunctionDecl,
		Name:      "f",
		Signature: "int f(void)",
		Span:      Span{Start: Position{Offset: 20, Line: 3, Column: 1}},
		Defined:   true,
	})

	assert.Equal(t, proto, def)
	require.Len(t, tr.Roots, 1)
	n := tr.Node(def)
	assert.True(t, n.Defined)
	assert.Equal(t, 3, n.Span.Start.Line)
}

func TestTreeAddMergesForwardDeclaration(t *testing.T) {
	t.Parallel()

	tr := NewTree("a.cpp", "cpp")
	fwd := tr.Add(NoParent, Node{Kind: TypeDecl, Name: "S", Modifiers: []string{ModForward}})
	def := tr.Add(NoParent, Node{Kind: TypeDecl, Name: "S", Defined: true})

	assert.Equal(t, fwd, def)
	assert.False(t, tr.Node(def).HasModifier(ModForward))
}

func TestTreeAddSuffixesDuplicates(t *testing.T) {
	t.Parallel()

	tr := NewTree("a.cpp", "cpp")
	tr.Add(NoParent, Node{Kind: FunctionDecl, Name: "f", Defined: true})
	second := tr.Add(NoParent, Node{Kind: FunctionDecl, Name: "f", Defined: true})
	third := tr.Add(NoParent, Node{Kind: VariableDecl, Name: "f", Defined: true})

	assert.Equal(t, "f#2", tr.Node(second).Name)
	assert.Equal(t, "f#3", tr.Node(third).Name)
}

func TestTreeRelationsDeduplicated(t *testing.T) {
	t.Parallel()

	tr := NewTree("a.cpp", "cpp")
	id := tr.Add(NoParent, Node{Kind: TypeDecl, Name: "B", Defined: true})
	tr.AddRelation(id, Relation{Kind: Extends, Target: "A"})
	tr.AddRelation(id, Relation{Kind: Extends, Target: "A"})
	tr.AddModifier(id, ModAbstract)
	tr.AddModifier(id, ModAbstract)

	assert.Len(t, tr.Node(id).Relations, 1)
	assert.Equal(t, []string{ModAbstract}, tr.Node(id).Modifiers)
}
