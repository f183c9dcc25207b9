package mapper

import (
	"fmt"

	"github.com/phobologic/codemap/internal/config"
	"github.com/phobologic/codemap/internal/lang"
)

// FromConfig creates a Mapper from cfg. The enabled languages and the
// overrides apply to a copy of registry, which is left untouched. opts are
// applied after the settings taken from cfg.
func FromConfig(registry *lang.Registry, cfg *config.Config, opts ...Option) (*Mapper, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, ErrNoLanguages
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	sub, err := registry.Subset(cfg.Languages.Enabled)
	if err != nil {
		return nil, fmt.Errorf("enabling languages: %w", err)
	}
	for _, o := range cfg.Languages.Overrides {
		if err := sub.Override(o.Pattern, o.Language); err != nil {
			return nil, err
		}
	}

	base := []Option{
		WithWorkers(cfg.Workers),
		WithMaxFileSize(cfg.MaxFileSize),
		WithCacheSize(cfg.CacheSize),
		WithCalls(cfg.Calls),
		WithExclude(cfg.Exclude...),
	}
	return New(sub, append(base, opts...)...)
}
