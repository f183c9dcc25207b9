// Package export writes a RepoMap as a YAML document.
package export

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/codemap/internal/model"
)

// Document is the YAML shape of a RepoMap.
type Document struct {
	Root         string       `yaml:"root"`
	Files        []File       `yaml:"files"`
	Dependencies []Dependency `yaml:"dependencies,omitempty"`
	Calls        []Call       `yaml:"calls,omitempty"`
	Diagnostics  []Diagnostic `yaml:"diagnostics,omitempty"`
}

type File struct {
	Path        string       `yaml:"path"`
	Language    string       `yaml:"language"`
	Rank        float64      `yaml:"rank"`
	Symbols     []Symbol     `yaml:"symbols,omitempty"`
	Diagnostics []Diagnostic `yaml:"diagnostics,omitempty"`
}

type Symbol struct {
	Name      string     `yaml:"name"`
	Kind      string     `yaml:"kind"`
	Line      int        `yaml:"line"`
	EndLine   int        `yaml:"endLine"`
	Parent    string     `yaml:"parent,omitempty"`
	Signature string     `yaml:"signature,omitempty"`
	Doc       string     `yaml:"doc,omitempty"`
	Modifiers []string   `yaml:"modifiers,flow,omitempty"`
	Relations []Relation `yaml:"relations,omitempty"`
}

type Relation struct {
	Kind     string `yaml:"kind"`
	Target   string `yaml:"target"`
	Resolved string `yaml:"resolved,omitempty"`
}

type Dependency struct {
	Source  string   `yaml:"source"`
	Target  string   `yaml:"target"`
	Symbols []string `yaml:"symbols,flow"`
}

type Call struct {
	Caller string `yaml:"caller"`
	Callee string `yaml:"callee"`
	File   string `yaml:"file"`
}

type Diagnostic struct {
	Kind    string `yaml:"kind"`
	Path    string `yaml:"path,omitempty"`
	Line    int    `yaml:"line,omitempty"`
	Column  int    `yaml:"column,omitempty"`
	Message string `yaml:"message"`
}

// NewDocument converts rm. Files keep their order; a nil rm yields an
// empty document.
func NewDocument(rm *model.RepoMap) *Document {
	doc := &Document{Files: []File{}}
	if rm == nil {
		return doc
	}
	doc.Root = rm.Root

	for i := range rm.Files {
		fm := &rm.Files[i]
		f := File{Path: fm.Path, Language: fm.Language, Rank: fm.Rank}
		fm.Map.Each(func(e *model.Entry) {
			s := Symbol{
				Name:      e.Name,
				Kind:      string(e.Kind),
				Line:      e.Span.Start.Line,
				EndLine:   e.Span.End.Line,
				Parent:    e.Parent,
				Signature: e.Signature,
				Doc:       e.Doc,
				Modifiers: e.Modifiers,
			}
			for _, r := range e.Relations {
				s.Relations = append(s.Relations, Relation{Kind: string(r.Kind), Target: r.Target, Resolved: r.Resolved})
			}
			f.Symbols = append(f.Symbols, s)
		})
		for _, d := range fm.Diagnostics {
			f.Diagnostics = append(f.Diagnostics, diagnostic(d))
		}
		doc.Files = append(doc.Files, f)
	}

	for _, d := range rm.Dependencies {
		doc.Dependencies = append(doc.Dependencies, Dependency{Source: d.Source, Target: d.Target, Symbols: d.Symbols})
	}
	for _, c := range rm.CallEdges {
		doc.Calls = append(doc.Calls, Call{Caller: c.Caller, Callee: c.Callee, File: c.File})
	}
	for _, d := range rm.Diagnostics {
		doc.Diagnostics = append(doc.Diagnostics, diagnostic(d))
	}
	return doc
}

func diagnostic(d model.Diagnostic) Diagnostic {
	return Diagnostic{
		Kind:    string(d.Kind),
		Path:    d.Path,
		Line:    d.Span.Start.Line,
		Column:  d.Span.Start.Column,
		Message: d.Message,
	}
}

// Write encodes rm to w as YAML with two-space indentation.
func Write(w io.Writer, rm *model.RepoMap) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(rm)); err != nil {
		return fmt.Errorf("encoding repo map: %w", err)
	}
	return enc.Close()
}

// YAML returns rm encoded as YAML.
func YAML(rm *model.RepoMap) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, rm); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read decodes a document written by Write.
func Read(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding repo map: %w", err)
	}
	return &doc, nil
}
