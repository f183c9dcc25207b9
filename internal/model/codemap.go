package model

// Ref is a relationship as it appears in a CodeMap. Resolved holds the key of
// the target entry when it lives in the same map; otherwise External is set
// and Target keeps the name as written.
type Ref struct {
	Kind     RelationKind
	Target   string
	Resolved string
	External bool
}

// Entry is the flattened record for one declaration.
type Entry struct {
	Name      string
	Local     string
	Kind      DeclKind
	Span      Span
	Parent    string
	Signature string
	Doc       string
	Modifiers []string
	Relations []Ref
}

// Line returns the 1-based line the declaration starts on.
func (e *Entry) Line() int {
	return e.Span.Start.Line
}

// CodeMap maps fully-qualified symbol names of one file to their records.
// Order lists keys in pre-order. A CodeMap is read-only once built.
type CodeMap struct {
	Path     string
	Language string
	Order    []string
	Entries  map[string]*Entry
}

// Lookup returns the entry for a qualified name.
func (m *CodeMap) Lookup(name string) (*Entry, bool) {
	if m == nil {
		return nil, false
	}
	e, ok := m.Entries[name]
	return e, ok
}

// Len returns the number of entries.
func (m *CodeMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Order)
}

// Each calls fn for every entry in pre-order.
func (m *CodeMap) Each(fn func(e *Entry)) {
	if m == nil {
		return
	}
	for _, key := range m.Order {
		fn(m.Entries[key])
	}
}
