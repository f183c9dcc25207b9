// Package source reads source files through viant/afs, so a map can be
// built from local disk, memory or any other registered storage scheme.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"

	"github.com/phobologic/codemap/internal/model"
)

var (
	// ErrTooLarge is returned for files above the loader's size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrNotFound is returned when a URL names no file.
	ErrNotFound = errors.New("file not found")
)

// Loader downloads single files. It does not walk directories.
type Loader struct {
	fs      afs.Service
	maxSize int64
}

// NewLoader returns a Loader that rejects files larger than maxSize bytes.
// A maxSize <= 0 disables the limit.
func NewLoader(maxSize int64) *Loader {
	return &Loader{fs: afs.New(), maxSize: maxSize}
}

// Load reads the file at URL. The returned file's Path is the URL path
// without its leading slash.
func (l *Loader) Load(ctx context.Context, URL string) (model.SourceFile, error) {
	return l.load(ctx, URL, strings.TrimPrefix(url.Path(URL), "/"))
}

func (l *Loader) load(ctx context.Context, URL, path string) (model.SourceFile, error) {
	exists, err := l.fs.Exists(ctx, URL)
	if err != nil {
		return model.SourceFile{}, fmt.Errorf("checking %s: %w", URL, err)
	}
	if !exists {
		return model.SourceFile{}, fmt.Errorf("%w: %s", ErrNotFound, URL)
	}

	obj, err := l.fs.Object(ctx, URL)
	if err != nil {
		return model.SourceFile{}, fmt.Errorf("stat %s: %w", URL, err)
	}
	if obj.IsDir() {
		return model.SourceFile{}, fmt.Errorf("%w: %s is a directory", ErrNotFound, URL)
	}
	if l.maxSize > 0 && obj.Size() > l.maxSize {
		return model.SourceFile{}, fmt.Errorf("%w: %s (%d > %d bytes)", ErrTooLarge, path, obj.Size(), l.maxSize)
	}

	data, err := l.fs.Download(ctx, obj)
	if err != nil {
		return model.SourceFile{}, fmt.Errorf("reading %s: %w", URL, err)
	}
	return model.SourceFile{Path: path, Text: string(data)}, nil
}

// LoadAll reads each name relative to baseURL; the files keep the names as
// their paths. Oversized files become limit diagnostics instead of errors.
// Any other failure stops the load.
func (l *Loader) LoadAll(ctx context.Context, baseURL string, names ...string) ([]model.SourceFile, []model.Diagnostic, error) {
	var files []model.SourceFile
	var diags []model.Diagnostic
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return files, diags, err
		}
		f, err := l.load(ctx, url.Join(baseURL, name), name)
		switch {
		case err == nil:
			files = append(files, f)
		case errors.Is(err, ErrTooLarge):
			diags = append(diags, model.Diagnostic{Kind: model.LimitExceeded, Path: name, Message: err.Error()})
		default:
			return files, diags, err
		}
	}
	return files, diags, nil
}
