package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidWorkers indicates a negative worker count.
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidFileSize indicates a non-positive size limit.
	ErrInvalidFileSize = errors.New("invalid max file size")

	// ErrInvalidCacheSize indicates a negative cache size.
	ErrInvalidCacheSize = errors.New("invalid cache size")

	// ErrInvalidOverride indicates an override missing its pattern or language.
	ErrInvalidOverride = errors.New("invalid language override")

	// ErrEmptyLanguage indicates a blank entry in languages.enabled.
	ErrEmptyLanguage = errors.New("empty language name")
)

// Validate checks that the configuration is usable. All problems are
// reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidWorkers, cfg.Workers))
	}
	if cfg.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidFileSize, cfg.MaxFileSize))
	}
	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidCacheSize, cfg.CacheSize))
	}
	for i, name := range cfg.Languages.Enabled {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("%w at languages.enabled[%d]", ErrEmptyLanguage, i))
		}
	}
	for i, o := range cfg.Languages.Overrides {
		if o.Pattern == "" || o.Language == "" {
			errs = append(errs, fmt.Errorf("%w at languages.overrides[%d]: pattern %q, language %q",
				ErrInvalidOverride, i, o.Pattern, o.Language))
		}
	}

	return errors.Join(errs...)
}
