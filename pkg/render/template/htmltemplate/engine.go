// Package htmltemplate provides a template engine backed by html/template.
package htmltemplate

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"maps"
	"sort"
	"strings"
	"sync"

	tmpl "github.com/goliatone/go-formwidget/pkg/render/template"
)

// Name is the engine name used in template references ("html:path").
const Name = "html"

// Option configures the engine.
type Option func(*config)

type config struct {
	name      string
	files     fs.FS
	extension string
	funcs     template.FuncMap
	global    map[string]any
}

// WithName overrides the engine name.
func WithName(name string) Option {
	return func(cfg *config) {
		if name = strings.TrimSpace(name); name != "" {
			cfg.name = name
		}
	}
}

// WithFS sets the template source.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.files = files
	}
}

// WithExtension sets the extension appended to template names without one.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		trimmed := strings.TrimSpace(ext)
		if trimmed == "" {
			return
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		cfg.extension = trimmed
	}
}

// WithTemplateFunc adds functions to every template.
func WithTemplateFunc(funcs map[string]any) Option {
	return func(cfg *config) {
		for name, fn := range funcs {
			cfg.funcs[strings.TrimSpace(name)] = fn
		}
	}
}

// WithGlobalData seeds values merged under every render's data.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		for key, value := range data {
			cfg.global[strings.TrimSpace(key)] = value
		}
	}
}

// Engine renders html/template files. Data must be a map; the template sees
// it as dot.
type Engine struct {
	mu        sync.RWMutex
	name      string
	files     fs.FS
	extension string
	funcs     template.FuncMap
	global    map[string]any
	cache     map[string]*template.Template
}

var _ tmpl.Engine = (*Engine)(nil)

// New builds an engine.
func New(opts ...Option) (*Engine, error) {
	cfg := &config{
		name:      Name,
		extension: ".html",
		funcs:     template.FuncMap{},
		global:    map[string]any{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.files == nil {
		return nil, errors.New("htmltemplate: fs.FS is required")
	}

	funcs := template.FuncMap{
		"attrs": Attrs,
	}
	maps.Copy(funcs, cfg.funcs)

	return &Engine{
		name:      cfg.name,
		files:     cfg.files,
		extension: cfg.extension,
		funcs:     funcs,
		global:    cfg.global,
		cache:     make(map[string]*template.Template),
	}, nil
}

// Name implements tmpl.Engine.
func (e *Engine) Name() string { return e.name }

// Lookup reports whether the template exists.
func (e *Engine) Lookup(name string) bool {
	_, err := fs.Stat(e.files, e.path(name))
	return err == nil
}

// Render renders inline content when name looks like a template, otherwise a
// named file.
func (e *Engine) Render(name string, data any, out ...io.Writer) (string, error) {
	if strings.Contains(name, "{{") {
		return e.RenderString(name, data, out...)
	}
	return e.RenderTemplate(name, data, out...)
}

// RenderTemplate renders a named file.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	path := e.path(name)
	t, err := e.load(path)
	if err != nil {
		return "", err
	}
	return e.execute(t, path, data, out)
}

// RenderString renders inline template content.
func (e *Engine) RenderString(content string, data any, out ...io.Writer) (string, error) {
	e.mu.RLock()
	funcs := maps.Clone(e.funcs)
	e.mu.RUnlock()
	t, err := template.New("inline").Funcs(funcs).Parse(content)
	if err != nil {
		return "", fmt.Errorf("htmltemplate: parse template string: %w", err)
	}
	return e.execute(t, "<string>", data, out)
}

// RegisterFilter exposes fn as a template function taking the input and an
// optional parameter. Templates parsed afterwards can use it.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("htmltemplate: filter name and function required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.funcs[name]; exists {
		return fmt.Errorf("htmltemplate: filter %q already exists", name)
	}
	e.funcs[name] = func(input any, params ...any) (any, error) {
		var param any
		if len(params) > 0 {
			param = params[0]
		}
		return fn(input, param)
	}
	e.cache = make(map[string]*template.Template)
	return nil
}

// GlobalContext merges data into every render.
func (e *Engine) GlobalContext(data any) error {
	if data == nil {
		return nil
	}
	m, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("htmltemplate: unsupported global context type %T", data)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	maps.Copy(e.global, m)
	return nil
}

func (e *Engine) path(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if e.extension != "" && !strings.HasSuffix(name, e.extension) {
		name += e.extension
	}
	return name
}

func (e *Engine) load(path string) (*template.Template, error) {
	e.mu.RLock()
	t, ok := e.cache[path]
	e.mu.RUnlock()
	if ok {
		return t, nil
	}

	src, err := fs.ReadFile(e.files, path)
	if err != nil {
		return nil, fmt.Errorf("htmltemplate: load template %q: %w", path, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	t, err = template.New(path).Funcs(e.funcs).Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("htmltemplate: parse template %q: %w", path, err)
	}
	e.cache[path] = t
	return t, nil
}

func (e *Engine) execute(t *template.Template, label string, data any, out []io.Writer) (string, error) {
	e.mu.RLock()
	view := maps.Clone(e.global)
	e.mu.RUnlock()
	switch d := data.(type) {
	case nil:
	case map[string]any:
		maps.Copy(view, d)
	default:
		return "", fmt.Errorf("htmltemplate: unsupported data type %T", data)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("htmltemplate: execute template %q: %w", label, err)
	}
	rendered := buf.String()
	for _, w := range out {
		if _, err := io.WriteString(w, rendered); err != nil {
			return "", err
		}
	}
	return rendered, nil
}

// Attrs renders an attribute map as ` key="value"` pairs sorted by key.
func Attrs(v any) template.HTMLAttr {
	attrs := map[string]string{}
	switch m := v.(type) {
	case map[string]string:
		attrs = m
	case map[string]any:
		for k, val := range m {
			if val != nil {
				attrs[k] = fmt.Sprint(val)
			}
		}
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, ` %s="%s"`, template.HTMLEscapeString(k), template.HTMLEscapeString(attrs[k]))
	}
	return template.HTMLAttr(b.String())
}
