// Package mapper turns a set of source files into a RepoMap: each file is
// mapped on a worker pool, then the results are merged, linked and ranked.
package mapper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/codemap/internal/graph"
	"github.com/phobologic/codemap/internal/lang"
	"github.com/phobologic/codemap/internal/model"
	"github.com/phobologic/codemap/internal/parse"
)

// ErrNoLanguages is returned by New for a registry without languages.
var ErrNoLanguages = errors.New("no languages registered")

const (
	defaultMaxFileSize = 1_000_000 // 1 MB
	defaultCacheSize   = 512
)

// Mapper maps files concurrently. It is safe for concurrent use.
type Mapper struct {
	registry    *lang.Registry
	root        string
	workers     int
	maxFileSize int64
	cacheSize   int
	opts        parse.Options
	exclude     *ignore.GitIgnore
	logger      *log.Logger

	cache *lru.Cache[uint64, model.FileMap]
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets the logger warnings go to. The default discards them.
func WithLogger(l *log.Logger) Option {
	return func(m *Mapper) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithWorkers sets the number of files mapped at once. n <= 0 means
// runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(m *Mapper) { m.workers = n }
}

// WithMaxFileSize skips files larger than n bytes with a limit diagnostic.
func WithMaxFileSize(n int64) Option {
	return func(m *Mapper) { m.maxFileSize = n }
}

// WithCacheSize sets how many file maps are remembered between calls.
// Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(m *Mapper) { m.cacheSize = n }
}

// WithCalls controls whether call relations are recorded. A Mapper
// records them by default, whereas a zero parse.Options does not.
func WithCalls(on bool) Option {
	return func(m *Mapper) { m.opts.Calls = on }
}

// WithExclude drops files matching any of the gitignore-style patterns
// before they are mapped.
func WithExclude(patterns ...string) Option {
	return func(m *Mapper) {
		if len(patterns) == 0 {
			m.exclude = nil
			return
		}
		m.exclude = ignore.CompileIgnoreLines(patterns...)
	}
}

// WithRoot names the repository in the RepoMap.
func WithRoot(name string) Option {
	return func(m *Mapper) { m.root = name }
}

// New creates a Mapper over registry.
func New(registry *lang.Registry, opts ...Option) (*Mapper, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, ErrNoLanguages
	}

	m := &Mapper{
		registry:    registry,
		maxFileSize: defaultMaxFileSize,
		cacheSize:   defaultCacheSize,
		opts:        parse.Options{Calls: true},
		logger:      log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.cacheSize > 0 {
		cache, err := lru.New[uint64, model.FileMap](m.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating cache: %w", err)
		}
		m.cache = cache
	}
	return m, nil
}

// Map maps files and links the results into a RepoMap whose files are
// sorted by path. Excluded files are left out. When ctx is cancelled the
// files not yet mapped are absent and ctx.Err() is returned along with
// the partial RepoMap.
func (m *Mapper) Map(ctx context.Context, files []model.SourceFile) (*model.RepoMap, error) {
	var todo []int
	for i := range files {
		if m.exclude != nil && m.exclude.MatchesPath(files[i].Path) {
			m.logger.Printf("Warning: %s: excluded", files[i].Path)
			continue
		}
		todo = append(todo, i)
	}

	fileMaps := m.mapConcurrent(ctx, files, todo)

	sort.SliceStable(fileMaps, func(i, j int) bool {
		return fileMaps[i].Path < fileMaps[j].Path
	})

	rm := &model.RepoMap{
		Root:         m.root,
		Files:        fileMaps,
		Dependencies: graph.BuildGraph(fileMaps),
		Diagnostics:  graph.CheckHierarchy(fileMaps),
	}
	if m.opts.Calls {
		rm.CallEdges = graph.BuildCallGraph(fileMaps)
	}
	graph.Rank(rm.Files, rm.Dependencies)

	for _, d := range rm.Diagnostics {
		m.logger.Printf("Warning: %s: %s", d.Path, d.Message)
	}

	return rm, ctx.Err()
}

func (m *Mapper) mapConcurrent(ctx context.Context, files []model.SourceFile, todo []int) []model.FileMap {
	if len(todo) == 0 {
		return nil
	}

	numWorkers := m.workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(todo) {
		numWorkers = len(todo)
	}

	work := make(chan int, len(todo))
	results := make(chan model.FileMap, len(todo))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				if ctx.Err() != nil {
					continue
				}
				fm := m.MapFile(ctx, files[idx])
				if ctx.Err() != nil {
					continue // abandoned mid-parse
				}
				results <- fm
			}
		}()
	}

	for _, i := range todo {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	var out []model.FileMap
	for fm := range results {
		out = append(out, fm)
	}
	return out
}
