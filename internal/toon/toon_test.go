package toon

import (
	"strings"
	"testing"

	"github.com/phobologic/codemap/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"false keyword", "false", `"false"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"leading zero invalid", "01", "01"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"bracket", "a[b", `"a[b"`},
		{"brace", "a{b", `"a{b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "src/main.py", "src/main.py"},
		{"dotted name", "Foo.__init__", "Foo.__init__"},
		{"signature no special", "run(self) -> None", "run(self) -> None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := encodeValue(tt.in)
			if got != tt.want {
				t.Errorf("encodeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func entry(name string, kind model.DeclKind, line int, sig string, rels ...model.Ref) *model.Entry {
	local := name
	parent := ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		parent, local = name[:i], name[i+1:]
	}
	return &model.Entry{
		Name:      name,
		Local:     local,
		Kind:      kind,
		Parent:    parent,
		Span:      model.Span{Start: model.Position{Line: line, Column: 1}},
		Signature: sig,
		Relations: rels,
	}
}

func codeMap(path string, entries ...*model.Entry) *model.CodeMap {
	m := &model.CodeMap{Path: path, Language: "python", Entries: map[string]*model.Entry{}}
	for _, e := range entries {
		m.Order = append(m.Order, e.Name)
		m.Entries[e.Name] = e
	}
	return m
}

func TestEncode(t *testing.T) {
	t.Parallel()

	greeter := entry("Greeter", model.TypeDecl, 1, "class Greeter")
	greeter.Modifiers = []string{model.ModAbstract}

	rm := &model.RepoMap{
		Root: "myrepo",
		Files: []model.FileMap{
			{
				Path:     "src/main.py",
				Language: "python",
				Rank:     0.75,
				Map: codeMap("src/main.py",
					greeter,
					entry("Greeter.greet", model.MethodDecl, 2, "greet(self, name)",
						model.Ref{Kind: model.Calls, Target: "helper", External: true}),
					entry("main", model.FunctionDecl, 5, "main()",
						model.Ref{Kind: model.Calls, Target: "greet", Resolved: "Greeter.greet"}),
				),
			},
			{
				Path:     "src/util.py",
				Language: "python",
				Rank:     0.25,
				Map:      codeMap("src/util.py", entry("helper", model.FunctionDecl, 1, "helper(x)")),
			},
		},
		Dependencies: []model.Dependency{
			{
				Source:  "src/main.py",
				Target:  "src/util.py",
				Symbols: []string{"helper"},
			},
		},
		CallEdges: []model.CallEdge{
			{Caller: "Greeter.greet", Callee: "helper", File: "src/main.py"},
			{Caller: "main", Callee: "Greeter.greet", File: "src/main.py"},
		},
	}

	got := Encode(rm)

	want := []string{
		"root: myrepo",
		"files[2]{path,language,rank,symbols}:",
		"  src/main.py,python,0.7500,3",
		"  src/util.py,python,0.2500,1",
		"symbols[4]{file,name,kind,line,signature,modifiers}:",
		"  src/main.py,Greeter,type,1,class Greeter,abstract",
		`  src/main.py,Greeter.greet,method,2,"greet(self, name)",""`,
		`  src/main.py,main,function,5,main(),""`,
		`  src/util.py,helper,function,1,helper(x),""`,
		"relations[2]{file,from,kind,to,scope}:",
		"  src/main.py,Greeter.greet,calls,helper,external",
		"  src/main.py,main,calls,Greeter.greet,local",
		"dependencies[1]{source,target,symbols}:",
		"  src/main.py,src/util.py,helper",
		"calls[2]{caller,callee,file}:",
		"  Greeter.greet,helper,src/main.py",
		"  main,Greeter.greet,src/main.py",
	}
	lines := strings.Split(got, "\n")
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestEncodeDiagnostics(t *testing.T) {
	t.Parallel()

	rm := &model.RepoMap{
		Root: "repo",
		Files: []model.FileMap{
			{
				Path:     "broken.c",
				Language: "c",
				Map:      codeMap("broken.c"),
				Diagnostics: []model.Diagnostic{{
					Kind:    model.ParseError,
					Path:    "broken.c",
					Span:    model.Span{Start: model.Position{Line: 3, Column: 7}},
					Message: "expected ';'",
				}},
			},
		},
		Diagnostics: []model.Diagnostic{
			{Kind: model.UnsupportedLanguage, Path: "notes.txt", Message: "no language for notes.txt"},
		},
	}

	got := Encode(rm)
	if !strings.Contains(got, "diagnostics[2]{path,line,kind,message}:") {
		t.Fatalf("missing diagnostics header:\n%s", got)
	}
	if !strings.Contains(got, "  broken.c,3,parse,expected ';'") {
		t.Errorf("missing parse diagnostic:\n%s", got)
	}
	if !strings.Contains(got, "  notes.txt,0,unsupported,no language for notes.txt") {
		t.Errorf("missing repository diagnostic:\n%s", got)
	}
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	rm := &model.RepoMap{
		Root: "empty",
	}

	got := Encode(rm)
	if !strings.Contains(got, "files[0]{path,language,rank,symbols}:") {
		t.Errorf("expected empty files section, got:\n%s", got)
	}
	if !strings.Contains(got, "symbols[0]{file,name,kind,line,signature,modifiers}:") {
		t.Errorf("expected empty symbols section, got:\n%s", got)
	}
	if strings.Contains(got, "diagnostics") {
		t.Errorf("diagnostics section without diagnostics:\n%s", got)
	}
}
