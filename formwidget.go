// Package formwidget bundles the widget runtime: a render dispatcher over the
// built-in templates, the widget registry used by loaders, the resource
// registry and the validation message overrides. The packages under pkg/ can
// be used on their own; Runtime wires them for the common case.
package formwidget

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formwidget/components/timezones"
	"github.com/goliatone/go-formwidget/pkg/loader"
	"github.com/goliatone/go-formwidget/pkg/middleware"
	"github.com/goliatone/go-formwidget/pkg/openapi"
	"github.com/goliatone/go-formwidget/pkg/render"
	"github.com/goliatone/go-formwidget/pkg/render/template"
	"github.com/goliatone/go-formwidget/pkg/render/template/gotemplate"
	"github.com/goliatone/go-formwidget/pkg/request"
	"github.com/goliatone/go-formwidget/pkg/resources"
	"github.com/goliatone/go-formwidget/pkg/validation"
	"github.com/goliatone/go-formwidget/pkg/widget"
	"github.com/goliatone/go-formwidget/pkg/widgets"
)

// EmbeddedTemplates exposes the built-in widget templates so callers can
// reuse or override them.
func EmbeddedTemplates() fs.FS {
	return widgets.Templates()
}

// StaticFS exposes the built-in stylesheet and scripts.
func StaticFS() fs.FS {
	return widgets.Static()
}

// Option configures a Runtime.
type Option func(*config)

type config struct {
	templates  []fs.FS
	engines    []template.Engine
	preferred  []string
	strict     bool
	funcs      map[string]any
	globals    map[string]any
	translator render.Translator
	i18n       render.I18nConfig
	selector   theme.ThemeSelector
	themeName  string
	variant    string
	widgets    *widgets.Registry
	resources  *resources.Registry
	messages   *validation.Messages
}

// WithTemplates adds a template source searched before the built-in
// templates, so files there override widgets of the same name.
func WithTemplates(fsys fs.FS) Option {
	return func(c *config) {
		if fsys != nil {
			c.templates = append(c.templates, fsys)
		}
	}
}

// WithEngine registers an additional template engine.
func WithEngine(engine template.Engine) Option {
	return func(c *config) {
		if engine != nil {
			c.engines = append(c.engines, engine)
		}
	}
}

// WithPreferredEngines orders engine selection; with strict set only these
// engines are considered.
func WithPreferredEngines(strict bool, names ...string) Option {
	return func(c *config) {
		c.preferred = append(c.preferred, names...)
		c.strict = strict
	}
}

// WithTemplateFuncs registers helper functions on the built-in engine.
func WithTemplateFuncs(funcs map[string]any) Option {
	return func(c *config) {
		if c.funcs == nil {
			c.funcs = make(map[string]any, len(funcs))
		}
		for name, fn := range funcs {
			c.funcs[name] = fn
		}
	}
}

// WithGlobalData seeds values visible to every template.
func WithGlobalData(data map[string]any) Option {
	return func(c *config) {
		if c.globals == nil {
			c.globals = make(map[string]any, len(data))
		}
		for key, value := range data {
			c.globals[key] = value
		}
	}
}

// WithTranslator exposes a translate helper to templates.
func WithTranslator(t render.Translator, cfg render.I18nConfig) Option {
	return func(c *config) {
		c.translator = t
		c.i18n = cfg
	}
}

// WithTheme selects a go-theme theme and variant for rendering.
func WithTheme(selector theme.ThemeSelector, name, variant string) Option {
	return func(c *config) {
		c.selector = selector
		c.themeName = name
		c.variant = variant
	}
}

// WithWidgetRegistry replaces the registry used by loaders.
func WithWidgetRegistry(reg *widgets.Registry) Option {
	return func(c *config) {
		c.widgets = reg
	}
}

// WithResourceRegistry replaces the resource registry.
func WithResourceRegistry(reg *resources.Registry) Option {
	return func(c *config) {
		c.resources = reg
	}
}

// WithMessages installs validation message overrides.
func WithMessages(msgs *validation.Messages) Option {
	return func(c *config) {
		c.messages = msgs
	}
}

// Runtime renders and validates widget trees.
type Runtime struct {
	dispatcher *render.Dispatcher
	widgets    *widgets.Registry
	resources  *resources.Registry
	messages   *validation.Messages
}

// NewRuntime builds a Runtime. The built-in pongo2 engine loads templates
// from WithTemplates sources, then from EmbeddedTemplates. The widget
// registry also carries TimezoneField.
func NewRuntime(opts ...Option) (*Runtime, error) {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	engineOpts := make([]gotemplate.Option, 0, len(cfg.templates)+3)
	for _, fsys := range cfg.templates {
		engineOpts = append(engineOpts, gotemplate.WithFS(fsys))
	}
	engineOpts = append(engineOpts,
		gotemplate.WithFS(EmbeddedTemplates()),
		gotemplate.WithTemplateFunc(cfg.funcs),
		gotemplate.WithGlobalData(cfg.globals),
	)
	if cfg.translator != nil {
		engineOpts = append(engineOpts, gotemplate.WithTemplateFunc(render.I18nFuncs(cfg.translator, cfg.i18n)))
	}
	builtin, err := gotemplate.New(engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("formwidget: %w", err)
	}

	engines := render.NewRegistry()
	if err := engines.Register(builtin); err != nil {
		return nil, fmt.Errorf("formwidget: %w", err)
	}
	for _, engine := range cfg.engines {
		if err := engines.Register(engine); err != nil {
			return nil, fmt.Errorf("formwidget: %w", err)
		}
	}

	dispatchOpts := []render.Option{
		render.WithRegistry(engines),
		render.WithDefaultEngine(builtin.Name()),
	}
	if len(cfg.preferred) > 0 {
		dispatchOpts = append(dispatchOpts, render.WithPreferred(cfg.preferred...), render.WithStrict(cfg.strict))
	}
	if cfg.selector != nil {
		dispatchOpts = append(dispatchOpts, render.WithTheme(cfg.selector, cfg.themeName, cfg.variant))
	}
	dispatcher, err := render.NewDispatcher(dispatchOpts...)
	if err != nil {
		return nil, fmt.Errorf("formwidget: %w", err)
	}

	rt := &Runtime{
		dispatcher: dispatcher,
		widgets:    cfg.widgets,
		resources:  cfg.resources,
		messages:   cfg.messages,
	}
	if rt.widgets == nil {
		rt.widgets = widgets.NewRegistry()
	}
	if rt.messages == nil {
		rt.messages = validation.NewMessages(nil)
	}
	if !rt.widgets.Has(timezones.WidgetName) {
		if err := timezones.Register(rt.widgets); err != nil {
			return nil, fmt.Errorf("formwidget: %w", err)
		}
	}
	if rt.resources == nil {
		rt.resources = resources.NewRegistry()
	}
	widgets.Mount(rt.resources)
	return rt, nil
}

// Dispatcher returns the render dispatcher.
func (r *Runtime) Dispatcher() *render.Dispatcher { return r.dispatcher }

// Widgets returns the widget registry.
func (r *Runtime) Widgets() *widgets.Registry { return r.widgets }

// Resources returns the resource registry.
func (r *Runtime) Resources() *resources.Registry { return r.resources }

// Messages returns the validation message overrides.
func (r *Runtime) Messages() *validation.Messages { return r.messages }

// Context returns ctx carrying a request state, creating one with the
// runtime's message overrides when ctx has none.
func (r *Runtime) Context(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := request.FromContext(ctx); ok {
		return ctx
	}
	return request.NewContext(ctx, request.NewState(request.WithMessages(r.messages)))
}

// Display instantiates def and renders it.
func (r *Runtime) Display(ctx context.Context, def *widget.Definition, opts ...widget.InstanceOption) (string, error) {
	if def == nil {
		return "", errors.New("formwidget: definition is required")
	}
	in, err := def.Instantiate(opts...)
	if err != nil {
		return "", err
	}
	return in.Display(r.Context(ctx), r.dispatcher)
}

// Validate instantiates def and validates a submitted form. The instance is
// returned for redisplay.
func (r *Runtime) Validate(ctx context.Context, def *widget.Definition, values url.Values) (any, *widget.Instance, error) {
	if def == nil {
		return nil, nil, errors.New("formwidget: definition is required")
	}
	in, err := def.Instantiate()
	if err != nil {
		return nil, nil, err
	}
	value, err := in.Validate(r.Context(ctx), validation.FromValues(values))
	return value, in, err
}

// Redisplay renders an instance that went through Validate, showing the
// submitted values and failure messages.
func (r *Runtime) Redisplay(ctx context.Context, in *widget.Instance) (string, error) {
	if in == nil {
		return "", errors.New("formwidget: instance is required")
	}
	return in.Display(r.Context(ctx), r.dispatcher)
}

// Inject adds the resources collected in ctx's request state to page.
func (r *Runtime) Inject(ctx context.Context, page string) (string, error) {
	st, ok := request.FromContext(ctx)
	if !ok {
		return page, nil
	}
	return resources.Inject(page, st.Resources(), r.resources)
}

// Middleware returns net/http middleware sharing the runtime's resource
// registry and message overrides.
func (r *Runtime) Middleware(opts ...middleware.Option) *middleware.Middleware {
	base := []middleware.Option{
		middleware.WithRegistry(r.resources),
		middleware.WithMessages(r.messages),
	}
	return middleware.New(append(base, opts...)...)
}

// LoadForms reads YAML and JSON definition files from fsys. Message overrides
// found there are merged into the runtime's table.
func (r *Runtime) LoadForms(fsys fs.FS) (*loader.Store, error) {
	store, err := loader.LoadFS(fsys, r.widgets)
	if err != nil {
		return nil, err
	}
	r.mergeMessages(store.Messages())
	return store, nil
}

// OpenAPIForm builds a form for the request body of an OpenAPI operation.
func (r *Runtime) OpenAPIForm(ctx context.Context, data []byte, operationID string, opts ...openapi.BuilderOption) (*widget.Definition, error) {
	doc, err := openapi.Parse(ctx, data, "inline")
	if err != nil {
		return nil, err
	}
	builder := openapi.NewBuilder(append([]openapi.BuilderOption{openapi.WithRegistry(r.widgets)}, opts...)...)
	return builder.Form(doc, operationID)
}

func (r *Runtime) mergeMessages(msgs *validation.Messages) {
	if msgs == nil {
		return
	}
	for kind, text := range msgs.All() {
		r.messages.Set(kind, text)
	}
}
