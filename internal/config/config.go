// Package config holds the mapper settings a repository can carry in
// .codemap/config.yml.
package config

// Config is the complete codemap configuration.
type Config struct {
	Workers     int             `yaml:"workers" mapstructure:"workers"`             // 0 means GOMAXPROCS
	MaxFileSize int64           `yaml:"max_file_size" mapstructure:"max_file_size"` // bytes
	CacheSize   int             `yaml:"cache_size" mapstructure:"cache_size"`       // file maps kept; 0 disables the cache
	Calls       bool            `yaml:"calls" mapstructure:"calls"`                 // record call relations
	Exclude     []string        `yaml:"exclude" mapstructure:"exclude"`             // gitignore syntax
	Languages   LanguagesConfig `yaml:"languages" mapstructure:"languages"`
}

// LanguagesConfig restricts and redirects language selection.
type LanguagesConfig struct {
	Enabled   []string   `yaml:"enabled" mapstructure:"enabled"` // empty enables every registered language
	Overrides []Override `yaml:"overrides" mapstructure:"overrides"`
}

// Override forces files matching Pattern to be mapped as Language.
// Later overrides win.
type Override struct {
	Pattern  string `yaml:"pattern" mapstructure:"pattern"`
	Language string `yaml:"language" mapstructure:"language"`
}

const defaultMaxFileSize = 1_000_000 // 1 MB

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Workers:     0,
		MaxFileSize: defaultMaxFileSize,
		CacheSize:   512,
		Calls:       true,
		Exclude: []string{
			".git/",
			"node_modules/",
			"vendor/",
			"__pycache__/",
		},
		Languages: LanguagesConfig{
			Enabled:   []string{},
			Overrides: []Override{},
		},
	}
}
