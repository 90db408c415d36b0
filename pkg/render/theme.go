package render

import (
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// RendererConfig flattens a theme selection: variant tokens, templates and
// assets override the manifest's own.
func RendererConfig(selection *theme.Selection) *theme.RendererConfig {
	if selection == nil {
		return nil
	}
	cfg := &theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Tokens:   map[string]string{},
		CSSVars:  map[string]string{},
		Partials: map[string]string{},
	}

	prefix := ""
	files := map[string]string{}
	if m := selection.Manifest; m != nil {
		if cfg.Theme == "" {
			cfg.Theme = m.Name
		}
		copyStrings(cfg.Tokens, m.Tokens)
		copyStrings(cfg.Partials, m.Templates)
		copyStrings(files, m.Assets.Files)
		prefix = m.Assets.Prefix
		if variant, ok := m.Variants[selection.Variant]; ok {
			copyStrings(cfg.Tokens, variant.Tokens)
			copyStrings(cfg.Partials, variant.Templates)
			copyStrings(files, variant.Assets.Files)
			if variant.Assets.Prefix != "" {
				prefix = variant.Assets.Prefix
			}
		}
	}
	for key, value := range cfg.Tokens {
		cfg.CSSVars["--"+key] = value
	}

	prefix = strings.TrimRight(prefix, "/")
	cfg.AssetURL = func(key string) string {
		file, ok := files[key]
		if !ok || file == "" {
			return ""
		}
		if strings.Contains(file, "://") || strings.HasPrefix(file, "/") || prefix == "" {
			return file
		}
		return prefix + "/" + strings.TrimLeft(file, "/")
	}
	return cfg
}

func copyStrings(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}

// themeContext is the template view of a theme configuration.
func themeContext(cfg *theme.RendererConfig) map[string]any {
	vars := make([]string, 0, len(cfg.CSSVars))
	for name := range cfg.CSSVars {
		vars = append(vars, name)
	}
	sort.Strings(vars)
	var style strings.Builder
	for _, name := range vars {
		style.WriteString(name)
		style.WriteString(": ")
		style.WriteString(cfg.CSSVars[name])
		style.WriteString("; ")
	}

	ctx := map[string]any{
		"name":     cfg.Theme,
		"variant":  cfg.Variant,
		"tokens":   cfg.Tokens,
		"css_vars": cfg.CSSVars,
		"style":    strings.TrimSpace(style.String()),
	}
	if cfg.AssetURL != nil {
		ctx["asset_url"] = cfg.AssetURL
	}
	return ctx
}
