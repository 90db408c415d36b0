package widgets

import (
	"context"
	"reflect"

	"github.com/goliatone/go-formwidget/pkg/param"
	"github.com/goliatone/go-formwidget/pkg/widget"
)

// Option is one entry of a selection field.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// SelectionField is the abstract base of select widgets. Options may be
// given as strings, Option values, {value, label} maps or two element
// [value, label] lists.
var SelectionField = FormField.MustWith(
	widget.Name("SelectionField"),
	widget.Template("forms/select"),
	widget.Params(
		param.New(ParamOptions, "Selectable options", param.Default([]any{})),
		param.New(ParamPromptText, "Text of the leading empty option; none when nil", param.Default(nil)),
		param.New(ParamMultiple, "Allow several selections", param.Default(false), param.Attribute(true), param.RequestLocal(false)),
		param.New(ParamSize, "Visible rows", param.Default(nil), param.Attribute(true)),
	),
	widget.OnPrepare(prepareSelection),
)

// SingleSelectField is a drop-down with an empty leading option.
var SingleSelectField = SelectionField.MustWith(
	widget.Name("SingleSelectField"),
	widget.Set(ParamPromptText, ""),
)

// MultipleSelectField is a multi-select list bound to a list value.
var MultipleSelectField = SelectionField.MustWith(
	widget.Name("MultipleSelectField"),
	widget.Set(ParamMultiple, true),
)

func prepareSelection(ctx context.Context, in *widget.Instance) error {
	if err := setName(ctx, in); err != nil {
		return err
	}
	raw, err := in.Param(ParamOptions)
	if err != nil {
		return err
	}
	options := NormalizeOptions(raw)

	selected := make(map[string]struct{})
	for _, v := range selectedValues(in.DisplayValue()) {
		selected[v] = struct{}{}
	}

	view := make([]map[string]any, 0, len(options)+1)
	if prompt, _ := in.Param(ParamPromptText); prompt != nil && !in.BoolParam(ParamMultiple) {
		view = append(view, map[string]any{"value": "", "label": text(prompt), "selected": false})
	}
	for _, opt := range options {
		_, isSelected := selected[opt.Value]
		view = append(view, map[string]any{"value": opt.Value, "label": opt.Label, "selected": isSelected})
	}
	return in.SetParam(ParamOptions, view)
}

// NormalizeOptions converts the accepted option shapes into Options.
func NormalizeOptions(raw any) []Option {
	if raw == nil {
		return nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []Option{toOption(raw)}
	}
	out := make([]Option, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, toOption(rv.Index(i).Interface()))
	}
	return out
}

func toOption(item any) Option {
	switch val := item.(type) {
	case Option:
		return val
	case *Option:
		return *val
	case map[string]any:
		o := Option{Value: text(val["value"]), Label: text(val["label"])}
		if _, ok := val["label"]; !ok {
			o.Label = o.Value
		}
		return o
	case map[string]string:
		o := Option{Value: val["value"], Label: val["label"]}
		if _, ok := val["label"]; !ok {
			o.Label = o.Value
		}
		return o
	case []any:
		if len(val) == 2 {
			return Option{Value: text(val[0]), Label: text(val[1])}
		}
	case []string:
		if len(val) == 2 {
			return Option{Value: val[0], Label: val[1]}
		}
	case [2]string:
		return Option{Value: val[0], Label: val[1]}
	}
	s := text(item)
	return Option{Value: s, Label: s}
}

func selectedValues(v any) []string {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		return []string{s}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []string{text(v)}
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, text(rv.Index(i).Interface()))
	}
	return out
}
