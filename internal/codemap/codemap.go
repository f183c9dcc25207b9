// Package codemap flattens a declaration tree into a CodeMap keyed by
// scope-qualified names.
package codemap

import (
	"fmt"
	"slices"
	"strings"

	"github.com/phobologic/codemap/internal/model"
)

// Separator joins scope names in CodeMap keys.
const Separator = "."

// Build converts t into a CodeMap. Nodes are visited in pre-order, so a
// parent's key always precedes its children's. Relation targets are
// resolved from the innermost enclosing scope outward; a target that names
// nothing in the file is kept as an external reference.
func Build(t *model.Tree) *model.CodeMap {
	m := &model.CodeMap{
		Path:     t.Path,
		Language: t.Language,
		Entries:  make(map[string]*model.Entry, t.Len()),
	}
	keys := make([]string, t.Len())

	t.Walk(func(id model.NodeID, _ int) bool {
		n := t.Node(id)
		parent := ""
		if n.Parent != model.NoParent {
			parent = keys[n.Parent]
		}
		key := n.Name
		if parent != "" {
			key = parent + Separator + n.Name
		}
		key = uniqueKey(m, key)
		keys[id] = key

		m.Entries[key] = &model.Entry{
			Name:      key,
			Local:     n.Name,
			Kind:      n.Kind,
			Span:      n.Span,
			Parent:    parent,
			Signature: n.Signature,
			Doc:       n.Doc,
			Modifiers: slices.Clone(n.Modifiers),
		}
		m.Order = append(m.Order, key)
		return true
	})

	for id := range t.Nodes {
		n := &t.Nodes[id]
		if len(n.Relations) == 0 {
			continue
		}
		e := m.Entries[keys[id]]
		for _, r := range n.Relations {
			e.Relations = append(e.Relations, resolve(m, e, r))
		}
	}
	return m
}

// uniqueKey appends an ordinal suffix when key is already taken. Trees built
// through model.Tree.Add never collide, but a name containing the separator
// could.
func uniqueKey(m *model.CodeMap, key string) string {
	if _, taken := m.Entries[key]; !taken {
		return key
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s#%d", key, i)
		if _, taken := m.Entries[candidate]; !taken {
			return candidate
		}
	}
}

// resolve looks r.Target up from the scope enclosing e outward, so a method
// finds the other members of its type before top-level names. A type never
// resolves a hierarchy edge to itself; a recursive call does.
func resolve(m *model.CodeMap, e *model.Entry, r model.Relation) model.Ref {
	ref := model.Ref{Kind: r.Kind, Target: r.Target}
	target := Normalize(r.Target)
	if target == "" {
		ref.External = true
		return ref
	}

	scope := e.Parent
	for {
		key := target
		if scope != "" {
			key = scope + Separator + target
		}
		if _, ok := m.Entries[key]; ok && (key != e.Name || r.Kind == model.Calls) {
			ref.Resolved = key
			return ref
		}
		if scope == "" {
			break
		}
		scope = parentScope(scope)
	}
	ref.External = true
	return ref
}

func parentScope(scope string) string {
	if i := strings.LastIndex(scope, Separator); i >= 0 {
		return scope[:i]
	}
	return ""
}

// Normalize rewrites a written reference into key form: "ns::Type" and
// "pkg.Type" become "ns.Type" and "pkg.Type", a leading "::" is dropped.
func Normalize(target string) string {
	target = strings.TrimSpace(target)
	target = strings.ReplaceAll(target, "::", Separator)
	return strings.Trim(target, Separator)
}

// Externals returns the unresolved references of m in entry order, each
// as the written target name, without duplicates.
func Externals(m *model.CodeMap) []model.Ref {
	var out []model.Ref
	seen := map[model.Ref]bool{}
	m.Each(func(e *model.Entry) {
		for _, r := range e.Relations {
			if !r.External {
				continue
			}
			k := model.Ref{Kind: r.Kind, Target: r.Target, External: true}
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	})
	return out
}
