package widget

import (
	"context"
	"fmt"
	"html/template"
	"strings"
)

// Renderer is the render dispatch collaborator.
type Renderer interface {
	// Engine resolves the engine that will render ref, preferring hint.
	Engine(ref, hint string) (string, error)
	// Render renders ref with the named engine.
	Render(ctx context.Context, ref, engine string, vars map[string]any) (string, error)
}

// DisplayOption configures a Display call.
type DisplayOption func(*displayConfig)

type displayConfig struct {
	template string
	engine   string
	vars     map[string]any
}

// WithTemplate overrides the template of the displayed instance.
func WithTemplate(ref string) DisplayOption {
	return func(c *displayConfig) {
		c.template = strings.TrimSpace(ref)
	}
}

// WithEngine sets the engine hint used when the instance has no parent.
func WithEngine(name string) DisplayOption {
	return func(c *displayConfig) {
		c.engine = strings.TrimSpace(name)
	}
}

// WithVars adds template variables next to "w".
func WithVars(vars map[string]any) DisplayOption {
	return func(c *displayConfig) {
		if c.vars == nil {
			c.vars = make(map[string]any, len(vars))
		}
		for k, v := range vars {
			c.vars[k] = v
		}
	}
}

// Display prepares the instance when needed and renders it. Children are
// rendered first with the parent's engine as hint and handed to the parent
// template as pre-rendered markup.
func (in *Instance) Display(ctx context.Context, r Renderer, opts ...DisplayOption) (string, error) {
	if r == nil {
		return "", fmt.Errorf("widget: display %s: renderer is required", in.def.label())
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := displayConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := in.Prepare(ctx); err != nil {
		return "", err
	}
	return in.display(ctx, r, cfg.template, cfg.engine, cfg.vars)
}

func (in *Instance) display(ctx context.Context, r Renderer, ref, hint string, extra map[string]any) (string, error) {
	if ref == "" {
		ref = in.def.template
	}
	if ref == "" {
		return "", configErr(in.def.label(), CodeBadChild, "no template configured")
	}
	if inline := in.StringParam(ParamInlineEngine); inline != "" {
		hint = inline
	}

	engine, err := r.Engine(ref, hint)
	if err != nil {
		return "", fmt.Errorf("widget: display %s: %w", in.def.label(), err)
	}

	children := make([]map[string]any, 0)
	row := 0
	for _, c := range in.Children() {
		html, err := c.display(ctx, r, "", engine, extra)
		if err != nil {
			return "", err
		}
		cctx := c.Context()
		cctx["html"] = template.HTML(html)
		// Hidden inputs get no row, so they do not advance the parity.
		cctx["parity"] = rowParity(row)
		if c.Attrs["type"] != "hidden" {
			row++
		}
		children = append(children, cctx)
	}

	w := in.Context()
	w["children"] = children
	if in.def.kind == KindDisplayOnly && len(children) == 1 {
		w["child"] = children[0]
	}

	vars := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		vars[k] = v
	}
	vars["w"] = w

	out, err := r.Render(ctx, ref, engine, vars)
	if err != nil {
		return "", fmt.Errorf("widget: display %s: %w", in.def.label(), err)
	}
	return out, nil
}

func rowParity(row int) string {
	if row%2 == 0 {
		return "odd"
	}
	return "even"
}

// DisplayValue is the value shown to the user: the raw submission when the
// instance failed validation, otherwise the validator's display form.
func (in *Instance) DisplayValue() any {
	if in.Error != nil || in.def.kind != KindLeaf {
		return in.Value
	}
	if v := in.def.validator; v != nil {
		return v.FromInternal(in.Value)
	}
	return in.Value
}

// Context returns the template view of the instance. Parameters are merged
// in under their own names unless they collide with a built-in key.
func (in *Instance) Context() map[string]any {
	params := in.Params()
	w := map[string]any{
		"id":          in.def.id,
		"compound_id": in.compoundID,
		"type":        in.def.Name(),
		"kind":        in.def.kind.String(),
		"value":       in.DisplayValue(),
		"error_msg":   in.ErrorMessage(),
		"attrs":       in.Attrs,
		"params":      params,
		"required":    in.BoolParam(ParamRequired),
		"index":       in.index,
		"children":    []map[string]any{},
	}
	for name, v := range params {
		if _, taken := w[name]; !taken {
			w[name] = v
		}
	}
	return w
}
