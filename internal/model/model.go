// Package model defines core data structures for codemap.
package model

// DeclKind indicates the syntactic kind of a declaration.
type DeclKind string

const (
	TypeDecl     DeclKind = "type"
	FunctionDecl DeclKind = "function"
	MethodDecl   DeclKind = "method"
	VariableDecl DeclKind = "variable"
	ModuleDecl   DeclKind = "module"
)

// RelationKind names an edge from one declaration to another by name.
type RelationKind string

const (
	Extends    RelationKind = "extends"
	Implements RelationKind = "implements"
	Calls      RelationKind = "calls"
	Aliases    RelationKind = "aliases"
)

// Common modifier words recorded on declarations.
const (
	ModAbstract  = "abstract"
	ModStatic    = "static"
	ModVirtual   = "virtual"
	ModInterface = "interface"
	ModTemplate  = "template"
	ModForward   = "forward"
)

// SourceFile is the input to a single parse. It is owned by the caller and
// never modified.
type SourceFile struct {
	Path     string
	Language string
	Text     string
}

// FileMap is one file's result: its code map plus the diagnostics collected
// while producing it. Map is nil when the file could not be mapped at all.
type FileMap struct {
	Path        string
	Language    string
	Map         *CodeMap
	Diagnostics []Diagnostic
	Rank        float64
}

// Dependency represents an edge in the file dependency graph:
// Source references symbols defined in Target.
type Dependency struct {
	Source  string
	Target  string
	Symbols []string
}

// CallEdge is a caller -> callee pair between qualified declaration names.
type CallEdge struct {
	Caller string
	Callee string
	File   string
}

// RepoMap is the merged multi-file result, ready for serialization.
type RepoMap struct {
	Root         string
	Files        []FileMap
	Dependencies []Dependency
	CallEdges    []CallEdge
	Diagnostics  []Diagnostic
}

// File returns the FileMap for path, or nil.
func (rm *RepoMap) File(path string) *FileMap {
	for i := range rm.Files {
		if rm.Files[i].Path == path {
			return &rm.Files[i]
		}
	}
	return nil
}

// DiagnosticCount returns the number of file and repository diagnostics.
func (rm *RepoMap) DiagnosticCount() int {
	if rm == nil {
		return 0
	}
	n := len(rm.Diagnostics)
	for i := range rm.Files {
		n += len(rm.Files[i].Diagnostics)
	}
	return n
}
