package parse

import (
	"sort"
	"strings"

	"github.com/phobologic/codemap/internal/model"
)

// AttachDocs sets Doc on every node that has comment lines directly above
// it: only whitespace between comment and declaration, no blank line, and
// each comment starting its own line.
func AttachDocs(t *model.Tree, toks []model.Token) {
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.Doc != "" || (!n.Defined && n.Span.Len() == 0) {
			continue
		}
		if doc := docBefore(toks, n.Span.Start.Offset); doc != "" {
			n.Doc = doc
		}
	}
}

func docBefore(toks []model.Token, offset int) string {
	idx := sort.Search(len(toks), func(i int) bool {
		return toks[i].Span.Start.Offset >= offset
	})

	var parts []string
	for j := idx - 1; j >= 0; j-- {
		tok := toks[j]
		if tok.Kind == model.TokenWhitespace {
			if strings.Count(tok.Text, "\n") > 1 {
				break
			}
			continue
		}
		if tok.Kind != model.TokenComment || !startsLine(toks, j) {
			break
		}
		parts = append(parts, cleanComment(tok.Text))
	}
	if len(parts) == 0 {
		return ""
	}

	for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
		parts[l], parts[r] = parts[r], parts[l]
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func startsLine(toks []model.Token, j int) bool {
	if j == 0 {
		return true
	}
	prev := toks[j-1]
	switch prev.Kind {
	case model.TokenWhitespace:
		return strings.Contains(prev.Text, "\n") || j == 1
	case model.TokenComment, model.TokenDirective:
		return true
	}
	return false
}

func cleanComment(text string) string {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "/*"):
		text = strings.TrimSuffix(strings.TrimLeft(text, "/*!"), "*/")
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			lines[i] = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		}
		return strings.TrimSpace(strings.Join(lines, "\n"))
	case strings.HasPrefix(text, "//"):
		return strings.TrimSpace(strings.TrimLeft(text, "/!"))
	case strings.HasPrefix(text, "#"):
		return strings.TrimSpace(strings.TrimLeft(text, "#"))
	}
	return text
}
