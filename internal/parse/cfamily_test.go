package parse

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/codemap/internal/lex"
	"github.com/phobologic/codemap/internal/model"
)

func words(s string) map[string]bool {
	m := map[string]bool{}
	for _, w := range strings.Fields(s) {
		m[w] = true
	}
	return m
}

var testLex = &lex.Grammar{
	Keywords: words(`auto bool char class const default delete enum extern final friend inline int
		namespace operator override private protected public return sizeof static struct template
		typedef typename union unsigned using virtual void`),
	Punctuators: []string{
		"{", "}", "(", ")", "[", "]", ";", ",", ".", "->", "::", ":", "~", "!", "=", "==",
		"+", "-", "*", "/", "%", "&", "&&", "|", "||", "<", ">", "<<", ">>", "<=", ">=", "?",
	},
	LineComment:  "//",
	BlockComment: [2]string{"/*", "*/"},
	Directive:    '#',
	Quotes:       "\"'",
}

var testSyntax = &Grammar{
	TypeIntroducers: words("struct union enum class"),
	Typedef:         "typedef",
	Namespace:       "namespace",
	Template:        "template",
	Linkage:         "extern",
	AccessLabels:    words("public private protected"),
	Modifiers:       words("static inline extern virtual"),
	Skip:            words("using friend"),
	Sync:            words("class struct union enum typedef namespace template"),
	NotCalls:        words("if while for switch return sizeof"),
	Qualified:       true,
}

func parseSource(t *testing.T, path, src string, opts Options) (*model.Tree, []model.Diagnostic) {
	t.Helper()
	p := &CFamily{Grammar: testSyntax}
	file := model.SourceFile{Path: path, Language: "cpp", Text: src}
	return p.Parse(context.Background(), file, lex.NewScanner(src, testLex), opts)
}

func parseFixture(t *testing.T, name string, opts Options) (*model.Tree, []model.Diagnostic) {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return parseSource(t, name, string(data), opts)
}

// node returns the node at the given scope path, failing the test if absent.
func node(t *testing.T, tr *model.Tree, path ...string) *model.Node {
	t.Helper()
	cur := model.NoParent
	for _, name := range path {
		id, ok := tr.Find(cur, name)
		require.True(t, ok, "missing %v", path)
		cur = id
	}
	return tr.Node(cur)
}

func childNames(tr *model.Tree, parent model.NodeID) []string {
	var names []string
	for _, id := range tr.Children(parent) {
		names = append(names, tr.Node(id).Name)
	}
	return names
}

func TestParseCFixture(t *testing.T) {
	t.Parallel()

	tr, diags := parseFixture(t, "greeter.c", Options{})
	assert.Empty(t, diags)
	assert.Equal(t, []string{"Greeter", "create_greeter", "greet", "free_greeter", "print_greeting", "main"},
		childNames(tr, model.NoParent))

	greeter := node(t, tr, "Greeter")
	assert.Equal(t, model.TypeDecl, greeter.Kind)
	assert.True(t, greeter.Defined)
	assert.Equal(t, "Structure definition", greeter.Doc)
	assert.Equal(t, "typedef struct Greeter", greeter.Signature)
	assert.Equal(t, model.VariableDecl, node(t, tr, "Greeter", "prefix").Kind)

	create := node(t, tr, "create_greeter")
	assert.Equal(t, model.FunctionDecl, create.Kind)
	assert.Equal(t, "Greeter* create_greeter(const char* prefix)", create.Signature)
	assert.Equal(t, "Function to create a Greeter", create.Doc)
	assert.Equal(t, 11, create.Span.Start.Line)
	assert.Equal(t, 15, create.Span.End.Line)

	for _, n := range tr.Nodes {
		assert.Empty(t, n.Relations, "%s has relations", n.Name)
	}
}

func TestParseCFixtureCalls(t *testing.T) {
	t.Parallel()

	tr, _ := parseFixture(t, "greeter.c", Options{Calls: true})
	pg := node(t, tr, "print_greeting")
	assert.Contains(t, pg.Relations, model.Relation{Kind: model.Calls, Target: "greet"})
	assert.Contains(t, pg.Relations, model.Relation{Kind: model.Calls, Target: "free"})

	create := node(t, tr, "create_greeter")
	assert.NotContains(t, create.Relations, model.Relation{Kind: model.Calls, Target: "sizeof"})
}

func TestParseCPPFixture(t *testing.T) {
	t.Parallel()

	tr, diags := parseFixture(t, "greeter.cpp", Options{})
	assert.Empty(t, diags)
	assert.Equal(t, []string{"Greeter", "Greeting", "printGreeting", "main"}, childNames(tr, model.NoParent))

	greeter := node(t, tr, "Greeter")
	assert.True(t, greeter.HasModifier(model.ModAbstract))
	assert.Equal(t, "Abstract base class", greeter.Doc)

	greet := node(t, tr, "Greeter", "greet")
	assert.Equal(t, model.MethodDecl, greet.Kind)
	assert.True(t, greet.HasModifier(model.ModAbstract))
	assert.True(t, greet.HasModifier(model.ModVirtual))
	assert.Equal(t, "virtual std::string greet(const std::string& name) const", greet.Signature)
	assert.Equal(t, model.MethodDecl, node(t, tr, "Greeter", "~Greeter").Kind)

	greeting := node(t, tr, "Greeting")
	assert.Equal(t, []model.Relation{{Kind: model.Implements, Target: "Greeter"}}, greeting.Relations)
	assert.False(t, greeting.HasModifier(model.ModAbstract))
	assert.Equal(t, []string{"prefix", "Greeting", "greet"}, childNames(tr, greeting.ID))
	assert.Equal(t, model.VariableDecl, node(t, tr, "Greeting", "prefix").Kind)
	assert.Equal(t, "Greeting(const std::string& prefix)", node(t, tr, "Greeting", "Greeting").Signature)

	impl := node(t, tr, "Greeting", "greet")
	assert.Equal(t, model.MethodDecl, impl.Kind)
	assert.True(t, impl.Defined)

	assert.Equal(t, model.FunctionDecl, node(t, tr, "printGreeting").Kind)
	assert.Equal(t, model.FunctionDecl, node(t, tr, "main").Kind)
}

func TestParseRecoversFromStrayLine(t *testing.T) {
	t.Parallel()

	tr, diags := parseFixture(t, "greeter_broken.cpp", Options{})
	require.Len(t, diags, 1)
	assert.Equal(t, model.ParseError, diags[0].Kind)
	assert.Equal(t, 3, diags[0].Span.Start.Line)
	assert.Contains(t, diags[0].Message, "<memory>")

	assert.Equal(t, []string{"Greeter", "Greeting", "printGreeting", "main"}, childNames(tr, model.NoParent))
	assert.Equal(t, model.Implements, node(t, tr, "Greeting").Relations[0].Kind)
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		src   string
		roots []string
		kinds []model.DiagnosticKind
	}{
		{
			name:  "missing closing brace",
			src:   "int ok(void);\nvoid f() {\n  int x;\n",
			roots: []string{"ok", "f"},
			kinds: []model.DiagnosticKind{model.ParseError},
		},
		{
			name:  "garbage between declarations",
			src:   "int before(void);\n@@ garbage;\nint after(void) { return 1; }\n",
			roots: []string{"before", "after"},
			kinds: []model.DiagnosticKind{model.LexError, model.LexError, model.ParseError},
		},
		{
			name:  "unterminated class",
			src:   "class A {\n  int x;\n",
			roots: []string{"A"},
			kinds: []model.DiagnosticKind{model.ParseError},
		},
		{
			name:  "unmatched closing brace",
			src:   "}\nint g;\n",
			roots: []string{"g"},
			kinds: []model.DiagnosticKind{model.ParseError},
		},
		{
			name:  "declaration cut off by a new type",
			src:   "int broken(\nstruct S { int v; };\n",
			roots: []string{"S"},
			kinds: []model.DiagnosticKind{model.ParseError},
		},
		{
			name:  "statement of only a comma",
			src:   "int a;\n,;\nint b;\n",
			roots: []string{"a", "b"},
			kinds: []model.DiagnosticKind{model.ParseError},
		},
		{
			name:  "several bare commas",
			src:   ", , ;\nint c;\n",
			roots: []string{"c"},
			kinds: []model.DiagnosticKind{model.ParseError},
		},
		{
			name:  "bare comma inside a class",
			src:   "class A { , ; };\nint d;\n",
			roots: []string{"A", "d"},
			kinds: []model.DiagnosticKind{model.ParseError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr, diags := parseSource(t, "bad.cpp", tt.src, Options{})
			assert.Equal(t, tt.roots, childNames(tr, model.NoParent))
			var kinds []model.DiagnosticKind
			for _, d := range diags {
				kinds = append(kinds, d.Kind)
				assert.Equal(t, "bad.cpp", d.Path)
			}
			assert.Equal(t, tt.kinds, kinds)
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	t.Parallel()

	data, err := os.ReadFile("testdata/greeter.cpp")
	require.NoError(t, err)
	src := string(data)

	p := &CFamily{Grammar: testSyntax}
	file := model.SourceFile{Path: "greeter.cpp", Language: "cpp", Text: src}
	stream := lex.NewScanner(src, testLex)

	first, d1 := p.Parse(context.Background(), file, stream, Options{})
	second, d2 := p.Parse(context.Background(), file, stream, Options{})
	assert.Equal(t, first, second)
	assert.Equal(t, d1, d2)
}

func TestParseCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := "int a;\nint b;\n"
	p := &CFamily{Grammar: testSyntax}
	tr, diags := p.Parse(ctx, model.SourceFile{Path: "x.c", Text: src}, lex.NewScanner(src, testLex), Options{})
	assert.Zero(t, tr.Len())
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "context canceled")
}

func TestParseMergesPrototypes(t *testing.T) {
	t.Parallel()

	tr, diags := parseSource(t, "m.c", "int f(int);\nint f(int x) { return x; }\nstatic int h(void) { return 0; }\nstatic int h(void) { return 1; }\n", Options{})
	assert.Empty(t, diags)
	assert.Equal(t, []string{"f", "h", "h#2"}, childNames(tr, model.NoParent))

	f := node(t, tr, "f")
	assert.True(t, f.Defined)
	assert.Equal(t, "int f(int x)", f.Signature)
	assert.Equal(t, 2, f.Span.Start.Line)
	assert.True(t, node(t, tr, "h#2").HasModifier(model.ModStatic))
}

func TestParseOutOfLineMembers(t *testing.T) {
	t.Parallel()

	src := `class A {
  void m();
};
void A::m() {}
A::~A() {}
void B::n() {}
`
	tr, diags := parseSource(t, "o.cpp", src, Options{})
	assert.Empty(t, diags)

	m := node(t, tr, "A", "m")
	assert.Equal(t, model.MethodDecl, m.Kind)
	assert.True(t, m.Defined)
	assert.Equal(t, 4, m.Span.Start.Line)
	assert.Equal(t, model.MethodDecl, node(t, tr, "A", "~A").Kind)

	b := node(t, tr, "B")
	assert.False(t, b.Defined)
	assert.Equal(t, model.MethodDecl, node(t, tr, "B", "n").Kind)
}

func TestParseNamespacesAndFields(t *testing.T) {
	t.Parallel()

	src := `namespace geo {
struct Point { int x, y; };
}
namespace geo {
double dist(Point a, Point b);
}
`
	tr, diags := parseSource(t, "n.cpp", src, Options{})
	assert.Empty(t, diags)
	assert.Equal(t, []string{"geo"}, childNames(tr, model.NoParent))
	assert.Equal(t, model.ModuleDecl, node(t, tr, "geo").Kind)
	assert.Equal(t, []string{"x", "y"}, childNames(tr, node(t, tr, "geo", "Point").ID))
	assert.Equal(t, "int y", node(t, tr, "geo", "Point", "y").Signature)
	assert.Equal(t, model.FunctionDecl, node(t, tr, "geo", "dist").Kind)
}

func TestParseTypedefs(t *testing.T) {
	t.Parallel()

	src := `struct node { int v; };
typedef struct node node_t;
typedef struct list list;
struct list { int n; };
typedef unsigned int u32;
typedef void (*handler)(int);
typedef struct tagged { int t; } tagged_t;
`
	tr, diags := parseSource(t, "t.c", src, Options{})
	assert.Empty(t, diags)
	assert.Equal(t, []string{"node", "node_t", "list", "u32", "handler", "tagged", "tagged_t"},
		childNames(tr, model.NoParent))

	assert.Equal(t, []model.Relation{{Kind: model.Aliases, Target: "node"}}, node(t, tr, "node_t").Relations)
	assert.Equal(t, []model.Relation{{Kind: model.Aliases, Target: "tagged"}}, node(t, tr, "tagged_t").Relations)
	assert.Empty(t, node(t, tr, "u32").Relations)

	list := node(t, tr, "list")
	assert.True(t, list.Defined)
	assert.False(t, list.HasModifier(model.ModForward))
	assert.Equal(t, []string{"n"}, childNames(tr, list.ID))
}

func TestParseEnumsAndVariables(t *testing.T) {
	t.Parallel()

	src := `enum Color { RED, GREEN = 2, BLUE };
extern int counter;
static const char *names[3], *current = 0;
int (*callback)(int);
`
	tr, diags := parseSource(t, "e.c", src, Options{})
	assert.Empty(t, diags)

	color := node(t, tr, "Color")
	assert.Equal(t, []string{"RED", "GREEN", "BLUE"}, childNames(tr, color.ID))
	assert.Equal(t, "GREEN = 2", node(t, tr, "Color", "GREEN").Signature)

	assert.False(t, node(t, tr, "counter").Defined)
	names := node(t, tr, "names")
	assert.Equal(t, model.VariableDecl, names.Kind)
	assert.True(t, names.HasModifier(model.ModStatic))
	assert.Equal(t, "static const char *current", node(t, tr, "current").Signature)
	assert.Equal(t, model.VariableDecl, node(t, tr, "callback").Kind)
}

func TestParseTemplates(t *testing.T) {
	t.Parallel()

	src := "template <typename T>\nclass Box : public Base<T> {\npublic:\n  T get() const;\n};\n"
	tr, diags := parseSource(t, "b.cpp", src, Options{})
	assert.Empty(t, diags)

	box := node(t, tr, "Box")
	assert.True(t, box.HasModifier(model.ModTemplate))
	assert.Equal(t, 1, box.Span.Start.Line)
	assert.Equal(t, []model.Relation{{Kind: model.Extends, Target: "Base"}}, box.Relations)
	assert.Equal(t, model.MethodDecl, node(t, tr, "Box", "get").Kind)
}
