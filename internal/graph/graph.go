// Package graph links file maps together: dependencies from unresolved
// references, the call graph, type hierarchy checks and PageRank.
package graph

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	dgraph "github.com/dominikbraun/graph"

	"github.com/phobologic/codemap/internal/codemap"
	"github.com/phobologic/codemap/internal/model"
)

// definitions indexes every declaration's local name to the files and keys
// that declare it.
type definitions map[string][]site

type site struct {
	path string
	key  string
	kind model.DeclKind
}

func index(files []model.FileMap) definitions {
	defs := definitions{}
	for i := range files {
		fm := &files[i]
		fm.Map.Each(func(e *model.Entry) {
			defs[e.Local] = append(defs[e.Local], site{path: fm.Path, key: e.Name, kind: e.Kind})
		})
	}
	return defs
}

// localName reduces a written reference to the name it declares:
// "ns::Base<T>" becomes "Base".
func localName(target string) string {
	target = codemap.Normalize(target)
	if i := strings.IndexAny(target, "<[("); i >= 0 {
		target = target[:i]
	}
	if i := strings.LastIndex(target, codemap.Separator); i >= 0 {
		target = target[i+1:]
	}
	return target
}

// BuildGraph creates dependency edges from references a file could not
// resolve itself to the other files that declare the name.
func BuildGraph(files []model.FileMap) []model.Dependency {
	defs := index(files)

	type edgeKey struct{ src, tgt string }
	edgeSymbols := make(map[edgeKey][]string)

	for i := range files {
		fm := &files[i]
		for _, ref := range codemap.Externals(fm.Map) {
			name := localName(ref.Target)
			for _, def := range defs[name] {
				if def.path == fm.Path {
					continue // no self-edges
				}
				key := edgeKey{fm.Path, def.path}
				if !slices.Contains(edgeSymbols[key], name) {
					edgeSymbols[key] = append(edgeSymbols[key], name)
				}
			}
		}
	}

	var deps []model.Dependency
	for key, syms := range edgeSymbols {
		deps = append(deps, model.Dependency{
			Source:  key.src,
			Target:  key.tgt,
			Symbols: syms,
		})
	}

	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Source != deps[j].Source {
			return deps[i].Source < deps[j].Source
		}
		return deps[i].Target < deps[j].Target
	})

	return deps
}

// BuildCallGraph builds declaration-level call edges. A call resolved inside
// its file points at the qualified key; an unresolved call is kept only
// when some file declares a function or method of that name.
func BuildCallGraph(files []model.FileMap) []model.CallEdge {
	defs := index(files)
	callable := func(name string) bool {
		return slices.ContainsFunc(defs[name], func(s site) bool {
			return s.kind == model.FunctionDecl || s.kind == model.MethodDecl
		})
	}

	type edgeKey struct{ caller, callee, file string }
	seen := make(map[edgeKey]struct{})

	var edges []model.CallEdge
	for i := range files {
		fm := &files[i]
		fm.Map.Each(func(e *model.Entry) {
			for _, r := range e.Relations {
				if r.Kind != model.Calls {
					continue
				}
				callee := r.Resolved
				if r.External {
					if !callable(localName(r.Target)) {
						continue
					}
					callee = localName(r.Target)
				}
				key := edgeKey{e.Name, callee, fm.Path}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				edges = append(edges, model.CallEdge{Caller: e.Name, Callee: callee, File: fm.Path})
			}
		})
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Caller != edges[j].Caller {
			return edges[i].Caller < edges[j].Caller
		}
		if edges[i].Callee != edges[j].Callee {
			return edges[i].Callee < edges[j].Callee
		}
		return edges[i].File < edges[j].File
	})

	return edges
}

// CheckHierarchy reports extends/implements edges that close a cycle. Types
// are identified as "path:key"; an unresolved base is followed to another
// file only when exactly one type there carries its name.
func CheckHierarchy(files []model.FileMap) []model.Diagnostic {
	defs := index(files)
	g := dgraph.New(dgraph.StringHash, dgraph.Directed(), dgraph.PreventCycles())

	vertex := func(path, key string) string { return path + ":" + key }
	addVertex := func(id string) {
		// only fails when the vertex already exists
		_ = g.AddVertex(id)
	}

	var diags []model.Diagnostic
	for i := range files {
		fm := &files[i]
		fm.Map.Each(func(e *model.Entry) {
			for _, r := range e.Relations {
				if r.Kind != model.Extends && r.Kind != model.Implements {
					continue
				}
				var target string
				switch {
				case !r.External:
					target = vertex(fm.Path, r.Resolved)
				default:
					var types []site
					for _, s := range defs[localName(r.Target)] {
						if s.kind == model.TypeDecl && s.path != fm.Path {
							types = append(types, s)
						}
					}
					if len(types) != 1 {
						continue
					}
					target = vertex(types[0].path, types[0].key)
				}

				source := vertex(fm.Path, e.Name)
				addVertex(source)
				addVertex(target)
				err := g.AddEdge(source, target)
				switch {
				case err == nil, errors.Is(err, dgraph.ErrEdgeAlreadyExists):
				case errors.Is(err, dgraph.ErrEdgeCreatesCycle):
					diags = append(diags, model.Diagnostic{
						Kind:    model.HierarchyError,
						Path:    fm.Path,
						Span:    e.Span,
						Message: fmt.Sprintf("%s %s %s closes an inheritance cycle", e.Name, r.Kind, r.Target),
					})
				default:
					diags = append(diags, model.Diagnostic{
						Kind:    model.HierarchyError,
						Path:    fm.Path,
						Span:    e.Span,
						Message: fmt.Sprintf("recording %s %s %s: %v", e.Name, r.Kind, r.Target, err),
					})
				}
			}
		})
	}
	return diags
}

// Rank applies PageRank over the dependency edges and stores each file's
// score in its Rank. Every symbol on an edge counts once, so heavily used
// files rank higher. The order of files is left unchanged.
func Rank(files []model.FileMap, deps []model.Dependency) {
	if len(files) == 0 {
		return
	}

	if len(deps) == 0 {
		uniform := 1.0 / float64(len(files))
		for i := range files {
			files[i].Rank = uniform
		}
		return
	}

	// Edge from source to target means source references target.
	outEdges := make(map[string][]string) // node → list of targets (with repeats for multi-edges)
	outDegree := make(map[string]int)     // total out-edges per node
	nodes := make([]string, 0, len(files))

	for i := range files {
		nodes = append(nodes, files[i].Path)
	}
	sort.Strings(nodes)

	for _, d := range deps {
		for range d.Symbols {
			outEdges[d.Source] = append(outEdges[d.Source], d.Target)
			outDegree[d.Source]++
		}
	}

	ranks := pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)

	for i := range files {
		files[i].Rank = ranks[files[i].Path]
	}
}

// pageRank iterates over nodes in the given order so that the floating
// point sums, and therefore the result, are reproducible.
func pageRank(
	nodes []string,
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return nil
	}

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for _, node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling node contribution (nodes with no outgoing edges)
		var danglingSum float64
		for _, node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for _, node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		for _, src := range nodes {
			targets := outEdges[src]
			if len(targets) == 0 {
				continue
			}
			contrib := alpha * rank[src] / float64(outDegree[src])
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		var diff float64
		for _, node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}
