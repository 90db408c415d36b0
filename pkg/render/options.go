package render

import (
	"strings"

	theme "github.com/goliatone/go-theme"
)

// Option configures a Dispatcher.
type Option func(*config)

type config struct {
	registry      *Registry
	preferred     []string
	strict        bool
	defaultEngine string
	selector      theme.ThemeSelector
	themeName     string
	themeVariant  string
	themeConfig   *theme.RendererConfig
}

// WithRegistry sets the engine registry.
func WithRegistry(reg *Registry) Option {
	return func(cfg *config) {
		cfg.registry = reg
	}
}

// WithPreferred lists the engines tried first, in order. In strict mode they
// are the only engines tried.
func WithPreferred(names ...string) Option {
	return func(cfg *config) {
		for _, name := range names {
			if name = strings.TrimSpace(name); name != "" {
				cfg.preferred = append(cfg.preferred, name)
			}
		}
	}
}

// WithStrict restricts dispatch to the preferred engines.
func WithStrict(strict bool) Option {
	return func(cfg *config) {
		cfg.strict = strict
	}
}

// WithDefaultEngine sets the engine used when no hint is given.
func WithDefaultEngine(name string) Option {
	return func(cfg *config) {
		cfg.defaultEngine = strings.TrimSpace(name)
	}
}

// WithTheme selects a go-theme theme and variant. Tokens are exposed to
// templates as "theme" and theme templates override widget template refs.
func WithTheme(selector theme.ThemeSelector, name, variant string) Option {
	return func(cfg *config) {
		cfg.selector = selector
		cfg.themeName = strings.TrimSpace(name)
		cfg.themeVariant = strings.TrimSpace(variant)
	}
}

// WithThemeConfig uses an already resolved renderer theme configuration.
func WithThemeConfig(tc *theme.RendererConfig) Option {
	return func(cfg *config) {
		cfg.themeConfig = tc
	}
}
