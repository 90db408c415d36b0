// Package prompt collects widget input on a terminal. It walks a prepared
// instance tree, asks for every input leaf through a Driver, checks answers
// with the leaf validators as they are typed and produces the flat
// submission that Instance.Validate accepts.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-formwidget/pkg/request"
	"github.com/goliatone/go-formwidget/pkg/validation"
	"github.com/goliatone/go-formwidget/pkg/widget"
	"github.com/goliatone/go-formwidget/pkg/widgets"
)

// Template references that select the prompt used for a leaf.
const (
	templateTextArea   = "forms/textarea"
	templateSelect     = "forms/select"
	templateLabel      = "forms/label"
	templateLabelField = "forms/label_field"
	templateSpacer     = "forms/spacer"
)

// Prompter asks for widget input through a Driver.
type Prompter struct {
	driver Driver
}

// Option configures a Prompter.
type Option func(*Prompter)

// WithDriver overrides the terminal driver.
func WithDriver(driver Driver) Option {
	return func(p *Prompter) {
		if driver != nil {
			p.driver = driver
		}
	}
}

// New constructs a Prompter using survey on the process terminal by default.
func New(opts ...Option) *Prompter {
	p := &Prompter{}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.driver == nil {
		p.driver = NewSurveyDriver()
	}
	return p
}

// Run prompts for every field of def, then validates the answers on a fresh
// instance. Failure messages are reported through the driver and the
// *validation.Error is returned with the partial result.
func (p *Prompter) Run(ctx context.Context, def *widget.Definition, opts ...widget.InstanceOption) (any, error) {
	if def == nil {
		return nil, errors.New("prompt: definition is required")
	}
	ctx, _ = request.Ensure(ctx)

	shown, err := def.Instantiate(opts...)
	if err != nil {
		return nil, err
	}
	flat, err := p.Collect(ctx, shown)
	if err != nil {
		return nil, err
	}

	in, err := def.Instantiate(opts...)
	if err != nil {
		return nil, err
	}
	value, err := in.Validate(ctx, flat)
	if err != nil {
		errs := in.Errors()
		ids := make([]string, 0, len(errs))
		for id := range errs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if infoErr := p.driver.Info(ctx, fmt.Sprintf("%s: %s", id, errs[id])); infoErr != nil {
				return value, infoErr
			}
		}
		return value, err
	}
	return value, nil
}

// Collect prepares in when needed and asks for every input leaf. The result
// is keyed by compound id.
func (p *Prompter) Collect(ctx context.Context, in *widget.Instance) (map[string]any, error) {
	if in == nil {
		return nil, errors.New("prompt: instance is required")
	}
	ctx, st := request.Ensure(ctx)
	if err := in.Prepare(ctx); err != nil {
		return nil, err
	}
	w := &walker{driver: p.driver, msgs: st.Messages(), flat: make(map[string]any)}
	if err := w.walk(ctx, in, make(map[string]any)); err != nil {
		return nil, err
	}
	return w.flat, nil
}

type walker struct {
	driver Driver
	msgs   *validation.Messages
	flat   map[string]any
}

// walk visits in. siblings collects the answers of the enclosing compound so
// leaf checks such as Match can see earlier fields.
func (w *walker) walk(ctx context.Context, in *widget.Instance, siblings map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch in.Definition().Kind() {
	case widget.KindDisplayOnly:
		if legend := in.StringParam(widgets.ParamLegend); legend != "" {
			if err := w.driver.Info(ctx, legend); err != nil {
				return err
			}
		}
		return w.walk(ctx, in.Children()[0], siblings)
	case widget.KindCompound:
		scope := siblings
		if !in.Definition().IsSubCompound() {
			scope = make(map[string]any)
		}
		for _, c := range in.Children() {
			if err := w.walk(ctx, c, scope); err != nil {
				return err
			}
		}
		return nil
	case widget.KindRepeating:
		return w.repeat(ctx, in)
	}

	answer, ok, err := w.leaf(ctx, in, siblings)
	if err != nil || !ok {
		return err
	}
	w.flat[in.CompoundID()] = answer
	if id := in.ID(); id != "" {
		siblings[id] = answer
	}
	return nil
}

func (w *walker) repeat(ctx context.Context, in *widget.Instance) error {
	label := in.StringParam(widgets.ParamLabel)
	if label == "" {
		label = widgets.LabelFor(in.ID())
	}
	minReps, maxReps := intParam(in, widget.ParamMinReps), intParam(in, widget.ParamMaxReps)
	existing, _ := in.Value.([]any)

	for i := 0; maxReps <= 0 || i < maxReps; i++ {
		if i >= minReps {
			more, err := w.driver.Confirm(ctx, ConfirmConfig{
				Message: fmt.Sprintf("Add %s #%d?", label, i+1),
				Default: i < len(existing),
			})
			if err != nil {
				return err
			}
			if !more {
				break
			}
		}
		rep := in.Rep(i)
		if rep == nil {
			return fmt.Errorf("prompt: %s: cannot create repetition %d", in.CompoundID(), i)
		}
		if err := rep.Prepare(ctx); err != nil {
			return err
		}
		if err := w.walk(ctx, rep, make(map[string]any)); err != nil {
			return err
		}
	}
	return nil
}

// leaf asks for a single value. The boolean is false for leaves that take
// no input.
func (w *walker) leaf(ctx context.Context, in *widget.Instance, siblings map[string]any) (any, bool, error) {
	def := in.Definition()
	message := in.StringParam(widgets.ParamLabel)
	if message == "" {
		message = widgets.LabelFor(in.ID())
	}
	help := in.StringParam(widgets.ParamHelpText)
	current := currentValue(in)

	switch def.TemplateRef() {
	case templateSpacer:
		return nil, false, nil
	case templateLabel:
		if text := in.StringParam(widgets.ParamText); text != "" {
			return nil, false, w.driver.Info(ctx, text)
		}
		return nil, false, nil
	case templateLabelField:
		return current, def.ID() != "", nil
	case templateTextArea:
		answer, err := w.driver.TextArea(ctx, TextAreaConfig{
			Message:   message,
			Default:   current,
			Help:      help,
			Validator: w.check(in, siblings),
		})
		return answer, err == nil, err
	case templateSelect:
		return w.selection(ctx, in, message, help)
	}

	if def.ID() == "" && in.Index() < 0 {
		return nil, false, nil
	}
	switch in.Attrs["type"] {
	case "submit", "reset", "button":
		return nil, false, nil
	case "hidden":
		return current, true, nil
	case "checkbox":
		answer, err := w.driver.Confirm(ctx, ConfirmConfig{
			Message: message,
			Default: isTrue(in.DisplayValue()),
			Help:    help,
		})
		return answer, err == nil, err
	case "password":
		answer, err := w.driver.Password(ctx, InputConfig{
			Message:   message,
			Help:      help,
			Validator: w.check(in, siblings),
		})
		return answer, err == nil, err
	}
	answer, err := w.driver.Input(ctx, InputConfig{
		Message:   message,
		Default:   current,
		Help:      help,
		Validator: w.check(in, siblings),
	})
	return answer, err == nil, err
}

func (w *walker) selection(ctx context.Context, in *widget.Instance, message, help string) (any, bool, error) {
	raw, _ := in.Param(widgets.ParamOptions)
	entries, _ := raw.([]map[string]any)

	labels := make([]string, len(entries))
	values := make([]string, len(entries))
	var selected []int
	for i, entry := range entries {
		values[i] = fmt.Sprint(entry["value"])
		labels[i] = fmt.Sprint(entry["label"])
		if labels[i] == "" {
			labels[i] = "-"
		}
		if on, _ := entry["selected"].(bool); on {
			selected = append(selected, i)
		}
	}

	cfg := SelectConfig{Message: message, Options: labels, Help: help}
	if in.BoolParam(widgets.ParamMultiple) {
		cfg.Defaults = selected
		picked, err := w.driver.MultiSelect(ctx, cfg)
		if err != nil {
			return nil, false, err
		}
		out := make([]any, 0, len(picked))
		for _, i := range picked {
			if i >= 0 && i < len(values) {
				out = append(out, values[i])
			}
		}
		return out, true, nil
	}

	if len(selected) > 0 {
		cfg.DefaultIndex = selected[0]
	}
	picked, err := w.driver.Select(ctx, cfg)
	if err != nil {
		return nil, false, err
	}
	if picked < 0 || picked >= len(values) {
		return "", true, nil
	}
	return values[picked], true, nil
}

// check adapts the leaf validator to a prompt validator. Failure messages go
// through the request's message overrides.
func (w *walker) check(in *widget.Instance, siblings map[string]any) func(string) error {
	v := in.Definition().Validator()
	if in.BoolParam(widget.ParamRequired) {
		v = validation.Required(v)
	}
	if v == nil {
		return nil
	}
	return func(answer string) error {
		_, err := validation.Convert(v, answer, validation.State{Siblings: siblings})
		if err == nil {
			return nil
		}
		e := validation.AsError(err)
		w.msgs.Apply(e)
		return errors.New(e.Message)
	}
}

func currentValue(in *widget.Instance) string {
	v := in.DisplayValue()
	if v == nil || v == "" {
		v, _ = in.Param(widgets.ParamDefault)
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func intParam(in *widget.Instance, name string) int {
	v, err := in.Param(name)
	if err != nil {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func isTrue(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "true", "on", "yes":
			return true
		}
	}
	return false
}
