// Package ranking narrows a RepoMap: the top-ranked files, or the files
// and declarations around a symbol or path.
package ranking

import (
	"sort"
	"strings"

	"github.com/phobologic/codemap/internal/model"
)

// SelectFiles returns a new RepoMap with only the maxFiles highest-ranked
// files, still in path order. Ties are broken by path. If maxFiles is <= 0
// or >= len(files), rm itself is returned.
func SelectFiles(rm *model.RepoMap, maxFiles int) *model.RepoMap {
	if maxFiles <= 0 || maxFiles >= len(rm.Files) {
		return rm
	}

	byRank := make([]int, len(rm.Files))
	for i := range byRank {
		byRank[i] = i
	}
	sort.SliceStable(byRank, func(a, b int) bool {
		fa, fb := &rm.Files[byRank[a]], &rm.Files[byRank[b]]
		if fa.Rank != fb.Rank {
			return fa.Rank > fb.Rank
		}
		return fa.Path < fb.Path
	})

	selectedPaths := make(map[string]struct{}, maxFiles)
	for _, i := range byRank[:maxFiles] {
		selectedPaths[rm.Files[i].Path] = struct{}{}
	}

	var files []model.FileMap
	for i := range rm.Files {
		if _, ok := selectedPaths[rm.Files[i].Path]; ok {
			files = append(files, rm.Files[i])
		}
	}

	var deps []model.Dependency
	for i := range rm.Dependencies {
		d := &rm.Dependencies[i]
		_, srcOK := selectedPaths[d.Source]
		_, tgtOK := selectedPaths[d.Target]
		if srcOK && tgtOK {
			deps = append(deps, *d)
		}
	}

	var callEdges []model.CallEdge
	for i := range rm.CallEdges {
		ce := &rm.CallEdges[i]
		if _, ok := selectedPaths[ce.File]; ok {
			callEdges = append(callEdges, *ce)
		}
	}

	return &model.RepoMap{
		Root:         rm.Root,
		Files:        files,
		Dependencies: deps,
		CallEdges:    callEdges,
		Diagnostics:  diagnosticsFor(rm.Diagnostics, selectedPaths),
	}
}

// FilterBySymbol returns a new RepoMap containing only declarations whose
// qualified name contains substr (case-insensitive), their direct callers
// and callees, and the scopes enclosing them. Files left without any
// declaration are dropped, as are edges between dropped files.
func FilterBySymbol(rm *model.RepoMap, substr string) *model.RepoMap {
	lower := strings.ToLower(substr)

	type symbol struct{ file, key string }
	matched := make(map[symbol]struct{})
	for i := range rm.Files {
		fm := &rm.Files[i]
		fm.Map.Each(func(e *model.Entry) {
			if strings.Contains(strings.ToLower(e.Name), lower) {
				matched[symbol{fm.Path, e.Name}] = struct{}{}
			}
		})
	}

	// Unresolved call edges name their callee by local name only.
	matchedNames := make(map[string]struct{}, 2*len(matched))
	for i := range rm.Files {
		fm := &rm.Files[i]
		fm.Map.Each(func(e *model.Entry) {
			if _, ok := matched[symbol{fm.Path, e.Name}]; ok {
				matchedNames[e.Name] = struct{}{}
				matchedNames[e.Local] = struct{}{}
			}
		})
	}

	// Expand to direct callers and callees. A callee may live in another
	// file, so it is kept wherever its name is declared.
	callees := make(map[string]struct{})
	callers := make(map[symbol]struct{})
	var callEdges []model.CallEdge
	for i := range rm.CallEdges {
		ce := &rm.CallEdges[i]
		_, callerOK := matched[symbol{ce.File, ce.Caller}]
		_, calleeOK := matchedNames[ce.Callee]
		if callerOK {
			callees[ce.Callee] = struct{}{}
		}
		if calleeOK {
			callers[symbol{ce.File, ce.Caller}] = struct{}{}
		}
		if callerOK || calleeOK {
			callEdges = append(callEdges, *ce)
		}
	}

	matchedFiles := make(map[string]struct{})
	var files []model.FileMap
	for i := range rm.Files {
		fm := rm.Files[i]
		keep := func(e *model.Entry) bool {
			_, isMatched := matched[symbol{fm.Path, e.Name}]
			_, isCaller := callers[symbol{fm.Path, e.Name}]
			_, isCallee := callees[e.Name]
			_, isLocalCallee := callees[e.Local]
			return isMatched || isCaller || isCallee || isLocalCallee
		}
		trimmed := trim(fm.Map, keep)
		if trimmed.Len() == 0 {
			continue
		}
		fm.Map = trimmed
		files = append(files, fm)
		matchedFiles[fm.Path] = struct{}{}
	}

	var deps []model.Dependency
	for i := range rm.Dependencies {
		d := &rm.Dependencies[i]
		_, srcOK := matchedFiles[d.Source]
		_, tgtOK := matchedFiles[d.Target]
		if srcOK && tgtOK {
			deps = append(deps, *d)
		}
	}

	return &model.RepoMap{
		Root:         rm.Root,
		Files:        files,
		Dependencies: deps,
		CallEdges:    callEdges,
		Diagnostics:  diagnosticsFor(rm.Diagnostics, matchedFiles),
	}
}

// FilterByFile returns a new RepoMap containing only files whose path
// contains substr (case-insensitive), with all dependency edges touching
// those files and call edges made from them.
func FilterByFile(rm *model.RepoMap, substr string) *model.RepoMap {
	lower := strings.ToLower(substr)

	matchedFiles := make(map[string]struct{})
	var files []model.FileMap
	for i := range rm.Files {
		if strings.Contains(strings.ToLower(rm.Files[i].Path), lower) {
			matchedFiles[rm.Files[i].Path] = struct{}{}
			files = append(files, rm.Files[i])
		}
	}

	var deps []model.Dependency
	for i := range rm.Dependencies {
		d := &rm.Dependencies[i]
		_, srcOK := matchedFiles[d.Source]
		_, tgtOK := matchedFiles[d.Target]
		if srcOK || tgtOK {
			deps = append(deps, *d)
		}
	}

	var callEdges []model.CallEdge
	for i := range rm.CallEdges {
		ce := &rm.CallEdges[i]
		if _, ok := matchedFiles[ce.File]; ok {
			callEdges = append(callEdges, *ce)
		}
	}

	return &model.RepoMap{
		Root:         rm.Root,
		Files:        files,
		Dependencies: deps,
		CallEdges:    callEdges,
		Diagnostics:  diagnosticsFor(rm.Diagnostics, matchedFiles),
	}
}

// trim copies the entries of m that keep accepts, together with every
// ancestor scope of a kept entry so that parent keys stay valid.
func trim(m *model.CodeMap, keep func(e *model.Entry) bool) *model.CodeMap {
	if m == nil {
		return nil
	}
	kept := make(map[string]struct{})
	m.Each(func(e *model.Entry) {
		if !keep(e) {
			return
		}
		for key := e.Name; key != ""; {
			if _, done := kept[key]; done {
				break
			}
			kept[key] = struct{}{}
			key = m.Entries[key].Parent
		}
	})

	out := &model.CodeMap{Path: m.Path, Language: m.Language, Entries: make(map[string]*model.Entry, len(kept))}
	for _, key := range m.Order {
		if _, ok := kept[key]; ok {
			out.Order = append(out.Order, key)
			out.Entries[key] = m.Entries[key]
		}
	}
	return out
}

// diagnosticsFor keeps repository diagnostics that belong to one of paths
// or to no file at all.
func diagnosticsFor(diags []model.Diagnostic, paths map[string]struct{}) []model.Diagnostic {
	var out []model.Diagnostic
	for _, d := range diags {
		if _, ok := paths[d.Path]; ok || d.Path == "" {
			out = append(out, d)
		}
	}
	return out
}
