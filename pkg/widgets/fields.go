package widgets

import (
	"context"
	"fmt"

	"github.com/goliatone/go-formwidget/pkg/param"
	"github.com/goliatone/go-formwidget/pkg/validation"
	"github.com/goliatone/go-formwidget/pkg/widget"
)

// Parameter names declared by the library.
const (
	ParamLabel       = "label"
	ParamHelpText    = "help_text"
	ParamType        = "type"
	ParamDefault     = "default"
	ParamPlaceholder = "placeholder"
	ParamSize        = "size"
	ParamMaxLength   = "maxlength"
	ParamDisabled    = "disabled"
	ParamReadOnly    = "readonly"
	ParamAutoFocus   = "autofocus"
	ParamRows        = "rows"
	ParamCols        = "cols"
	ParamOptions     = "options"
	ParamPromptText  = "prompt_text"
	ParamMultiple    = "multiple"
	ParamText        = "text"
	ParamIcon        = "icon"
)

// FormField is the abstract base of every input widget. Its label defaults to
// one derived from the id.
var FormField = widget.Must(widget.Define(widget.KindLeaf, "FormField",
	widget.Params(
		param.New(ParamLabel, "Label shown by layouts; derived from the id when empty", param.Default("")),
		param.New(ParamHelpText, "Help text shown by layouts; inline markup is sanitised", param.Default("")),
		param.New(ParamDisabled, "Render the field disabled", param.Default(false), param.Attribute(true)),
		param.New(ParamReadOnly, "Render the field read only", param.Default(false), param.Attribute(true)),
		param.New(ParamAutoFocus, "Focus the field on page load", param.Default(false), param.Attribute(true)),
	),
	widget.OnPrepare(prepareField),
))

// InputField renders an <input> of the configured type.
var InputField = FormField.MustWith(
	widget.Name("InputField"),
	widget.Template("forms/input_field"),
	widget.Params(
		param.New(ParamType, "Input type", param.Attribute(true), param.RequestLocal(false)),
		param.New(ParamDefault, "Value rendered when the instance has none", param.Default(nil)),
		param.New(ParamPlaceholder, "Placeholder text", param.Default(nil), param.Attribute(true)),
	),
	widget.OnPrepare(prepareInput),
)

// TextField is a single line text input.
var TextField = InputField.MustWith(
	widget.Name("TextField"),
	widget.Set(ParamType, "text"),
	widget.Params(
		param.New(ParamSize, "Visible width in characters", param.Default(nil), param.Attribute(true)),
		param.New(ParamMaxLength, "Maximum input length", param.Default(nil), param.Attribute(true)),
	),
)

// PasswordField is a text input whose value is never rendered back.
var PasswordField = TextField.MustWith(
	widget.Name("PasswordField"),
	widget.Set(ParamType, "password"),
	widget.OnPrepare(func(_ context.Context, in *widget.Instance) error {
		delete(in.Attrs, "value")
		return nil
	}),
)

// HiddenField is an <input type="hidden">. Layouts render it without a row.
var HiddenField = InputField.MustWith(
	widget.Name("HiddenField"),
	widget.Set(ParamType, "hidden"),
)

// CheckBox renders a checkbox bound to a boolean value.
var CheckBox = InputField.MustWith(
	widget.Name("CheckBox"),
	widget.Set(ParamType, "checkbox"),
	widget.WithValidator(validation.Bool{}),
	widget.OnPrepare(func(_ context.Context, in *widget.Instance) error {
		delete(in.Attrs, "value")
		if truthy(in.DisplayValue()) {
			in.Attrs["checked"] = "checked"
		}
		return nil
	}),
)

// TextArea is a multi line text input.
var TextArea = FormField.MustWith(
	widget.Name("TextArea"),
	widget.Template("forms/textarea"),
	widget.Params(
		param.New(ParamRows, "Visible rows", param.Default(nil), param.Attribute(true)),
		param.New(ParamCols, "Visible columns", param.Default(nil), param.Attribute(true)),
		param.New(ParamPlaceholder, "Placeholder text", param.Default(nil), param.Attribute(true)),
	),
	widget.OnPrepare(setName),
)

// LabelField shows its value as text and submits it back in a hidden input.
var LabelField = FormField.MustWith(
	widget.Name("LabelField"),
	widget.Template("forms/label_field"),
)

// Label displays sanitised text. It takes no input.
var Label = widget.Must(widget.Define(widget.KindLeaf, "Label",
	widget.Template("forms/label"),
	widget.Params(param.New(ParamText, "Inline markup to show", param.Default(""))),
	widget.OnPrepare(func(_ context.Context, in *widget.Instance) error {
		return in.SetParam(ParamText, Markup(in.StringParam(ParamText)))
	}),
))

// Spacer is an empty row in a layout.
var Spacer = widget.Must(widget.Define(widget.KindLeaf, "Spacer",
	widget.Template("forms/spacer"),
))

// Button is a plain <input type="button">.
var Button = InputField.MustWith(
	widget.Name("Button"),
	widget.Template("forms/button"),
	widget.Set(ParamType, "button"),
	widget.Params(
		param.New(ParamText, "Button caption", param.Default("")),
		param.New(ParamIcon, "Inline SVG icon; sanitised", param.Default("")),
	),
	widget.OnPrepare(func(_ context.Context, in *widget.Instance) error {
		if text := in.StringParam(ParamText); text != "" {
			in.Attrs["value"] = text
		}
		return in.SetParam(ParamIcon, Icon(in.StringParam(ParamIcon)))
	}),
)

// SubmitButton submits the enclosing form.
var SubmitButton = Button.MustWith(
	widget.Name("SubmitButton"),
	widget.Set(ParamType, "submit"),
	widget.Set(ParamText, "Submit"),
)

// ResetButton resets the enclosing form.
var ResetButton = Button.MustWith(
	widget.Name("ResetButton"),
	widget.Set(ParamType, "reset"),
	widget.Set(ParamText, "Reset"),
)

// prepareField derives the label and sanitises the help text.
func prepareField(_ context.Context, in *widget.Instance) error {
	if in.StringParam(ParamLabel) == "" && in.ID() != "" {
		if err := in.SetParam(ParamLabel, LabelFor(in.ID())); err != nil {
			return err
		}
	}
	if help := in.StringParam(ParamHelpText); help != "" {
		return in.SetParam(ParamHelpText, Markup(help))
	}
	return nil
}

func setName(_ context.Context, in *widget.Instance) error {
	if id := in.CompoundID(); id != "" {
		in.Attrs["name"] = id
	}
	return nil
}

// prepareInput renders name and value attributes.
func prepareInput(ctx context.Context, in *widget.Instance) error {
	if err := setName(ctx, in); err != nil {
		return err
	}
	value := in.DisplayValue()
	if isBlank(value) {
		value, _ = in.Param(ParamDefault)
	}
	if !isBlank(value) {
		in.Attrs["value"] = text(value)
	}
	return nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

func text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch val {
		case "1", "on", "true", "yes", "checked":
			return true
		}
	case int:
		return val != 0
	}
	return false
}
