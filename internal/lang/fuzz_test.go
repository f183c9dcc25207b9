package lang

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/phobologic/codemap/internal/codemap"
	"github.com/phobologic/codemap/internal/lex"
	"github.com/phobologic/codemap/internal/model"
	"github.com/phobologic/codemap/internal/parse"
)

// FuzzMap checks, for every registered language, that arbitrary text maps
// without panicking, tokenizes losslessly and yields unique map keys.
func FuzzMap(f *testing.F) {
	names := Default.Names()

	fixtures, err := filepath.Glob(filepath.Join("testdata", "greeter.*"))
	if err != nil {
		f.Fatal(err)
	}
	for _, path := range fixtures {
		data, err := os.ReadFile(path)
		if err != nil {
			f.Fatal(err)
		}
		l, err := Default.Select(path, string(data))
		if err != nil {
			f.Fatal(err)
		}
		for i, name := range names {
			if name == l.Name {
				f.Add(uint8(i), string(data))
			}
		}
	}
	for i := range names {
		for _, src := range []string{
			"",
			",;",
			", , ;",
			"int x;\n,;\nint y;\n",
			"class A { , ; };",
			"}}}{{{",
			"\x00\xff\xfe",
		} {
			f.Add(uint8(i), src)
		}
	}

	f.Fuzz(func(t *testing.T, which uint8, text string) {
		l, ok := Default.Lookup(names[int(which)%len(names)])
		if !ok {
			t.Fatalf("language %d vanished", which)
		}
		file := model.SourceFile{Path: "fuzz", Language: l.Name, Text: text}

		if got := lex.Concat(lex.Collect(l.Tokenizer.Tokenize(file))); got != text {
			t.Fatalf("%s: tokens do not reproduce the input:\n got %q\nwant %q", l.Name, got, text)
		}

		tr, _ := l.Map(context.Background(), file, parse.Options{Calls: true})
		m := codemap.Build(tr)
		if len(m.Order) != len(m.Entries) {
			t.Fatalf("%s: %d keys for %d entries: %v", l.Name, len(m.Order), len(m.Entries), m.Order)
		}
	})
}
