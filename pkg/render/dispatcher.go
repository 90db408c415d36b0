// Package render dispatches widget templates to interchangeable template
// engines and exposes the selected theme to them.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// ErrNoEngine is wrapped by EngineError when no engine can render a template.
var ErrNoEngine = errors.New("render: no engine available")

// EngineError reports that a template could not be dispatched. Strict is set
// when only the preferred engines were considered.
type EngineError struct {
	Engine   string
	Template string
	Strict   bool
	Err      error
}

// Error implements error.
func (e *EngineError) Error() string {
	mode := "relaxed"
	if e.Strict {
		mode = "strict"
	}
	engine := e.Engine
	if engine == "" {
		engine = "<any>"
	}
	return fmt.Sprintf("render: %s dispatch of %q with engine %s: %v", mode, e.Template, engine, e.Err)
}

// Unwrap returns the cause.
func (e *EngineError) Unwrap() error { return e.Err }

// Dispatcher selects an engine for a template reference and renders it. It
// implements the widget renderer contract.
type Dispatcher struct {
	registry      *Registry
	preferred     []string
	strict        bool
	defaultEngine string
	theme         *theme.RendererConfig
}

// NewDispatcher builds a dispatcher. With WithTheme the theme is selected
// once, here.
func NewDispatcher(opts ...Option) (*Dispatcher, error) {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.registry == nil {
		return nil, errors.New("render: engine registry is required")
	}

	d := &Dispatcher{
		registry:      cfg.registry,
		preferred:     cfg.preferred,
		strict:        cfg.strict,
		defaultEngine: cfg.defaultEngine,
		theme:         cfg.themeConfig,
	}
	if d.strict && len(d.preferred) == 0 {
		return nil, errors.New("render: strict dispatch needs preferred engines")
	}
	if cfg.selector != nil {
		selection, err := cfg.selector.Select(cfg.themeName, cfg.themeVariant)
		if err != nil {
			return nil, fmt.Errorf("render: select theme %q: %w", cfg.themeName, err)
		}
		d.theme = RendererConfig(selection)
	}
	return d, nil
}

// Theme returns the theme configuration in use, if any.
func (d *Dispatcher) Theme() *theme.RendererConfig { return d.theme }

// SplitRef separates an "engine:path" reference. Without a known engine
// prefix the whole reference is the path.
func (d *Dispatcher) SplitRef(ref string) (engine, path string) {
	ref = strings.TrimSpace(ref)
	if name, rest, ok := strings.Cut(ref, ":"); ok && d.registry.Has(name) {
		return name, rest
	}
	return "", ref
}

func (d *Dispatcher) resolvePath(path string) string {
	if d.theme != nil {
		if override := strings.TrimSpace(d.theme.Partials[path]); override != "" {
			return override
		}
	}
	return path
}

// Engine returns the engine that will render ref. An explicit engine prefix
// wins, then hint, then the default and preferred engines. In relaxed mode any
// registered engine that can locate the template is acceptable.
func (d *Dispatcher) Engine(ref, hint string) (string, error) {
	pinned, path := d.SplitRef(ref)
	path = d.resolvePath(path)
	if pinned != "" {
		if d.strict && !d.isPreferred(pinned) {
			return "", &EngineError{Engine: pinned, Template: ref, Strict: true, Err: fmt.Errorf("%w: engine %q is not preferred", ErrNoEngine, pinned)}
		}
		engine, err := d.registry.Get(pinned)
		if err != nil {
			return "", &EngineError{Engine: pinned, Template: ref, Strict: d.strict, Err: err}
		}
		if !engine.Lookup(path) {
			return "", &EngineError{Engine: pinned, Template: ref, Strict: d.strict, Err: fmt.Errorf("template %q not found", path)}
		}
		return pinned, nil
	}

	for _, name := range d.candidates(strings.TrimSpace(hint)) {
		engine, err := d.registry.Get(name)
		if err != nil {
			continue
		}
		if engine.Lookup(path) {
			return name, nil
		}
	}
	return "", &EngineError{Engine: hint, Template: ref, Strict: d.strict, Err: ErrNoEngine}
}

func (d *Dispatcher) candidates(hint string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		if d.strict && !d.isPreferred(name) {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	add(hint)
	add(d.defaultEngine)
	for _, name := range d.preferred {
		add(name)
	}
	if !d.strict {
		for _, name := range d.registry.List() {
			add(name)
		}
	}
	return out
}

func (d *Dispatcher) isPreferred(name string) bool {
	for _, p := range d.preferred {
		if p == name {
			return true
		}
	}
	return false
}

// Render renders ref with the named engine, which is resolved when empty.
// The theme is available to templates as "theme".
func (d *Dispatcher) Render(ctx context.Context, ref, engine string, vars map[string]any) (string, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
	if engine == "" {
		resolved, err := d.Engine(ref, "")
		if err != nil {
			return "", err
		}
		engine = resolved
	}
	_, path := d.SplitRef(ref)
	path = d.resolvePath(path)

	eng, err := d.registry.Get(engine)
	if err != nil {
		return "", &EngineError{Engine: engine, Template: ref, Strict: d.strict, Err: err}
	}

	data := make(map[string]any, len(vars)+1)
	for k, v := range vars {
		data[k] = v
	}
	if _, ok := data["theme"]; !ok && d.theme != nil {
		data["theme"] = themeContext(d.theme)
	}

	out, err := eng.RenderTemplate(path, data)
	if err != nil {
		return "", &EngineError{Engine: engine, Template: ref, Strict: d.strict, Err: err}
	}
	return out, nil
}
