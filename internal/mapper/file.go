package mapper

import (
	"context"
	"fmt"

	"github.com/minio/highwayhash"

	"github.com/phobologic/codemap/internal/codemap"
	"github.com/phobologic/codemap/internal/lang"
	"github.com/phobologic/codemap/internal/model"
)

var hashKey = []byte("codemap:file-cache-key:000000000")

// MapFile maps one file. A file that cannot be mapped still yields a
// FileMap, carrying the diagnostic that explains why; its Map is nil. A
// panic inside an adapter is confined to the file it was mapping.
func (m *Mapper) MapFile(ctx context.Context, file model.SourceFile) (fm model.FileMap) {
	if m.maxFileSize > 0 && int64(len(file.Text)) > m.maxFileSize {
		m.logger.Printf("Warning: %s: skipped (>%d bytes)", file.Path, m.maxFileSize)
		return model.FileMap{
			Path:     file.Path,
			Language: file.Language,
			Diagnostics: []model.Diagnostic{{
				Kind:    model.LimitExceeded,
				Path:    file.Path,
				Message: fmt.Sprintf("skipped (%d > %d bytes)", len(file.Text), m.maxFileSize),
			}},
		}
	}

	l, err := m.selectLanguage(file)
	if err != nil {
		m.logger.Printf("Warning: %s: %v", file.Path, err)
		return model.FileMap{
			Path:     file.Path,
			Language: file.Language,
			Diagnostics: []model.Diagnostic{{
				Kind:    model.UnsupportedLanguage,
				Path:    file.Path,
				Message: err.Error(),
			}},
		}
	}

	key, cacheable := m.cacheKey(l.Name, file)
	if cacheable {
		if cached, ok := m.cache.Get(key); ok {
			return cached
		}
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Printf("Warning: %s: mapping aborted: %v", file.Path, r)
			fm = model.FileMap{
				Path:     file.Path,
				Language: l.Name,
				Diagnostics: []model.Diagnostic{{
					Kind:    model.ParseError,
					Path:    file.Path,
					Message: fmt.Sprintf("mapping aborted: %v", r),
				}},
			}
		}
	}()

	tree, diags := l.Map(ctx, file, m.opts)
	fm = model.FileMap{
		Path:        file.Path,
		Language:    l.Name,
		Map:         codemap.Build(tree),
		Diagnostics: diags,
	}
	if cacheable && ctx.Err() == nil {
		m.cache.Add(key, fm)
	}
	return fm
}

// selectLanguage honours an explicit language on the file before asking
// the registry.
func (m *Mapper) selectLanguage(file model.SourceFile) (*lang.Language, error) {
	if file.Language != "" {
		l, ok := m.registry.Lookup(file.Language)
		if !ok {
			return nil, fmt.Errorf("%w: %s", lang.ErrUnsupportedLanguage, file.Language)
		}
		return l, nil
	}
	return m.registry.Select(file.Path, file.Text)
}

// cacheKey hashes language, path and text. Each part is followed by a NUL
// so that shifting bytes between parts changes the key.
func (m *Mapper) cacheKey(language string, file model.SourceFile) (uint64, bool) {
	if m.cache == nil {
		return 0, false
	}
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0, false
	}
	for _, part := range []string{language, file.Path, file.Text} {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64(), true
}

// CacheLen returns the number of cached file maps.
func (m *Mapper) CacheLen() int {
	if m.cache == nil {
		return 0
	}
	return m.cache.Len()
}
