package model

import (
	"fmt"
	"slices"
)

// NodeID indexes a Node inside its Tree's arena.
type NodeID int

// NoParent is the parent of top-level declarations.
const NoParent NodeID = -1

// Relation is an edge to another declaration, recorded by name only.
type Relation struct {
	Kind   RelationKind
	Target string
}

// Node is one declaration. Parent and Children are arena indices; relations
// are names, so the tree never holds a back-pointer.
type Node struct {
	ID        NodeID
	Kind      DeclKind
	Name      string
	Span      Span
	Parent    NodeID
	Children  []NodeID
	Relations []Relation
	Signature string
	Doc       string
	Modifiers []string
	// Defined is false for prototypes, forward declarations and placeholder
	// scopes created for out-of-line members.
	Defined bool
}

// HasModifier reports whether the node carries mod.
func (n *Node) HasModifier(mod string) bool {
	return slices.Contains(n.Modifiers, mod)
}

// Tree is the declaration tree produced by one parse.
type Tree struct {
	Path     string
	Language string
	Nodes    []Node
	Roots    []NodeID
}

// NewTree returns an empty tree for one file.
func NewTree(path, language string) *Tree {
	return &Tree{Path: path, Language: language}
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int {
	return len(t.Nodes)
}

// Node returns the node with the given id. The pointer is valid until the
// next call to Add.
func (t *Tree) Node(id NodeID) *Node {
	return &t.Nodes[id]
}

// Children returns the ids directly under parent; NoParent yields the roots.
func (t *Tree) Children(parent NodeID) []NodeID {
	if parent == NoParent {
		return t.Roots
	}
	return t.Nodes[parent].Children
}

// Find looks up a direct child of parent by name.
func (t *Tree) Find(parent NodeID, name string) (NodeID, bool) {
	for _, id := range t.Children(parent) {
		if t.Nodes[id].Name == name {
			return id, true
		}
	}
	return NoParent, false
}

// Add inserts n under parent and returns its id. Names stay unique within a
// scope: a declaration that matches an existing undefined sibling of the same
// kind (prototype, forward declaration, placeholder) is merged into it, as is
// a reopened module. Any other clash gets an ordinal suffix such as "name#2".
func (t *Tree) Add(parent NodeID, n Node) NodeID {
	if existing, ok := t.Find(parent, n.Name); ok {
		e := &t.Nodes[existing]
		if e.Kind == n.Kind && (!e.Defined || !n.Defined || n.Kind == ModuleDecl) {
			t.merge(existing, n)
			return existing
		}
		n.Name = t.uniqueName(parent, n.Name)
	}

	n.ID = NodeID(len(t.Nodes))
	n.Parent = parent
	n.Children = nil
	t.Nodes = append(t.Nodes, n)
	if parent == NoParent {
		t.Roots = append(t.Roots, n.ID)
	} else {
		t.Nodes[parent].Children = append(t.Nodes[parent].Children, n.ID)
	}
	return n.ID
}

func (t *Tree) merge(id NodeID, n Node) {
	e := &t.Nodes[id]
	if n.Defined && !e.Defined {
		e.Span = n.Span
		e.Defined = true
		if n.Signature != "" {
			e.Signature = n.Signature
		}
		e.Modifiers = slices.DeleteFunc(e.Modifiers, func(m string) bool { return m == ModForward })
	}
	if e.Signature == "" {
		e.Signature = n.Signature
	}
	if e.Doc == "" {
		e.Doc = n.Doc
	}
	for _, m := range n.Modifiers {
		if m == ModForward && e.Defined {
			continue
		}
		t.AddModifier(id, m)
	}
	for _, r := range n.Relations {
		t.AddRelation(id, r)
	}
}

func (t *Tree) uniqueName(parent NodeID, name string) string {
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s#%d", name, i)
		if _, taken := t.Find(parent, candidate); !taken {
			return candidate
		}
	}
}

// AddRelation records r on node id unless an identical relation exists.
func (t *Tree) AddRelation(id NodeID, r Relation) {
	n := &t.Nodes[id]
	if slices.Contains(n.Relations, r) {
		return
	}
	n.Relations = append(n.Relations, r)
}

// AddModifier records mod on node id once.
func (t *Tree) AddModifier(id NodeID, mod string) {
	n := &t.Nodes[id]
	if !slices.Contains(n.Modifiers, mod) {
		n.Modifiers = append(n.Modifiers, mod)
	}
}

// Walk visits nodes in pre-order (parents before children, siblings in
// source order). Returning false from fn skips that node's children.
func (t *Tree) Walk(fn func(id NodeID, depth int) bool) {
	var visit func(ids []NodeID, depth int)
	visit = func(ids []NodeID, depth int) {
		for _, id := range ids {
			if fn(id, depth) {
				visit(t.Nodes[id].Children, depth+1)
			}
		}
	}
	visit(t.Roots, 0)
}

// Scope returns the names from the root down to id, inclusive.
func (t *Tree) Scope(id NodeID) []string {
	var names []string
	for cur := id; cur != NoParent; cur = t.Nodes[cur].Parent {
		names = append(names, t.Nodes[cur].Name)
	}
	slices.Reverse(names)
	return names
}
