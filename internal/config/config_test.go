package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, int64(defaultMaxFileSize), cfg.MaxFileSize)
	assert.True(t, cfg.Calls)
	assert.Contains(t, cfg.Exclude, ".git/")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   []error
	}{
		{"negative workers", func(c *Config) { c.Workers = -1 }, []error{ErrInvalidWorkers}},
		{"zero file size", func(c *Config) { c.MaxFileSize = 0 }, []error{ErrInvalidFileSize}},
		{"negative cache", func(c *Config) { c.CacheSize = -5 }, []error{ErrInvalidCacheSize}},
		{"blank language", func(c *Config) { c.Languages.Enabled = []string{"go", " "} }, []error{ErrEmptyLanguage}},
		{
			"override without language",
			func(c *Config) { c.Languages.Overrides = []Override{{Pattern: "*.inc"}} },
			[]error{ErrInvalidOverride},
		},
		{
			"several problems",
			func(c *Config) { c.Workers = -1; c.CacheSize = -1 },
			[]error{ErrInvalidWorkers, ErrInvalidCacheSize},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			for _, want := range tt.want {
				assert.ErrorIs(t, err, want)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".codemap", "config.yml"), `
workers: 4
max_file_size: 2048
calls: false
exclude:
  - third_party/
languages:
  enabled: [c, cpp]
  overrides:
    - pattern: "legacy/**.inc"
      language: c
    - pattern: "*.hh"
      language: cpp
`)

	cfg, err := NewLoader(root).Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, int64(2048), cfg.MaxFileSize)
	assert.Equal(t, Default().CacheSize, cfg.CacheSize)
	assert.False(t, cfg.Calls)
	assert.Equal(t, []string{"third_party/"}, cfg.Exclude)
	assert.Equal(t, []string{"c", "cpp"}, cfg.Languages.Enabled)
	assert.Equal(t, []Override{
		{Pattern: "legacy/**.inc", Language: "c"},
		{Pattern: "*.hh", Language: "cpp"},
	}, cfg.Languages.Overrides)
}

func TestLoadMalformedFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".codemap", "config.yml"), "workers: [unterminated\n")

	_, err := NewLoader(root).Load()
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".codemap", "config.yml"), "workers: -2\n")

	_, err := NewLoader(root).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidWorkers), "got %v", err)
}

func TestLoadDotEnvOverridesFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".codemap", "config.yml"), "cache_size: 16\nworkers: 2\n")
	writeFile(t, filepath.Join(root, ".env"), "CODEMAP_CACHE_SIZE=32\nCODEMAP_EXCLUDE=build/,dist/\nUNRELATED=1\n")

	cfg, err := NewLoader(root).Load()
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.CacheSize)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []string{"build/", "dist/"}, cfg.Exclude)

	_, leaked := os.LookupEnv("CODEMAP_CACHE_SIZE")
	assert.False(t, leaked, ".env values must not leak into the process environment")
}

func TestLoadEnvironmentWins(t *testing.T) {
	// t.Setenv cannot be combined with t.Parallel.
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".codemap", "config.yml"), "workers: 2\ncalls: true\n")
	writeFile(t, filepath.Join(root, ".env"), "CODEMAP_WORKERS=3\n")

	t.Setenv("CODEMAP_WORKERS", "8")
	t.Setenv("CODEMAP_CALLS", "false")
	t.Setenv("CODEMAP_LANGUAGES_ENABLED", "go,rust")

	cfg, err := NewLoader(root).Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Workers)
	assert.False(t, cfg.Calls)
	assert.Equal(t, []string{"go", "rust"}, cfg.Languages.Enabled)
}

func TestEnvName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "CODEMAP_MAX_FILE_SIZE", EnvName("max_file_size"))
	assert.Equal(t, "CODEMAP_LANGUAGES_ENABLED", EnvName("languages.enabled"))
}
