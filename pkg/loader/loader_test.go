package loader_test

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwidget/pkg/loader"
	"github.com/goliatone/go-formwidget/pkg/request"
	"github.com/goliatone/go-formwidget/pkg/widget"
	"github.com/goliatone/go-formwidget/pkg/widgets"
)

const signupYAML = `
messages:
  required: "Please fill in this field"
forms:
  signup:
    widget: TableForm
    id: signup
    params:
      action: /signup
      submit_text: Register
    children:
      - id: name
        widget: TextField
        required: true
        validator: {type: length, min: 2, max: 40, strip: true}
      - id: age
        widget: TextField
        label: Age (years)
        validator: {type: int, min: 18}
      - id: password
        widget: PasswordField
        required: true
      - id: confirm
        widget: PasswordField
        validator: {type: match, field1: password, field1_label: Password}
      - id: color
        widget: SingleSelectField
        params:
          options: [red, green]
        validator: {type: oneof, values: [red, green]}
`

func TestParseYAML(t *testing.T) {
	store, err := loader.Parse([]byte(signupYAML), "signup.yaml", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff([]string{"signup"}, store.Forms()); diff != "" {
		t.Fatalf("forms mismatch (-want +got):\n%s", diff)
	}
	def, ok := store.Form("signup")
	if !ok {
		t.Fatalf("form signup missing")
	}
	if def.ID() != "signup" || def.Name() != "TableForm" {
		t.Fatalf("unexpected form definition %q/%q", def.ID(), def.Name())
	}
	if v, _ := def.Params().Default(widgets.ParamSubmitText); v != "Register" {
		t.Fatalf("submit_text = %v", v)
	}

	layout := def.Child()
	var ids []string
	for _, c := range layout.Children() {
		ids = append(ids, c.CompoundID())
	}
	want := []string{"signup:name", "signup:age", "signup:password", "signup:confirm", "signup:color"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadedFormValidates(t *testing.T) {
	store, err := loader.Parse([]byte(signupYAML), "signup.yaml", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	def, _ := store.Form("signup")
	ctx := request.NewContext(context.Background(), request.NewState(request.WithMessages(store.Messages())))

	in := def.MustInstantiate()
	_, err = in.Validate(ctx, map[string]any{
		"signup:name":     " ",
		"signup:age":      "12",
		"signup:password": "secret",
		"signup:confirm":  "secreT",
		"signup:color":    "blue",
	})
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	want := map[string]string{
		"signup:name":    "Please fill in this field",
		"signup:age":     "Must be at least 18",
		"signup:confirm": "Must match Password",
		"signup:color":   "Invalid value",
	}
	if diff := cmp.Diff(want, in.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	ok := def.MustInstantiate()
	got, err := ok.Validate(ctx, map[string]any{
		"signup:name":     " Ada ",
		"signup:age":      "36",
		"signup:password": "secret",
		"signup:confirm":  "secret",
		"signup:color":    "red",
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	wantValue := map[string]any{"name": "Ada", "age": 36, "password": "secret", "confirm": "secret", "color": "red"}
	if diff := cmp.Diff(wantValue, got); diff != "" {
		t.Fatalf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFS(t *testing.T) {
	files := fstest.MapFS{
		"forms/a.json":  {Data: []byte(`{"forms": {"a": {"widget": "ListForm", "children": [{"id": "x", "widget": "TextField"}]}}}`)},
		"forms/b.yml":   {Data: []byte("forms:\n  b:\n    widget: TextField\n    id: y\n")},
		"forms/skip.md": {Data: []byte("# not a form")},
	}
	store, err := loader.LoadFS(files, widgets.NewRegistry())
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, store.Forms()); diff != "" {
		t.Fatalf("forms mismatch (-want +got):\n%s", diff)
	}

	files["forms/c.yaml"] = &fstest.MapFile{Data: []byte("forms:\n  a:\n    widget: TextField\n")}
	if _, err := loader.LoadFS(files, nil); err == nil || !strings.Contains(err.Error(), `duplicate form "a"`) {
		t.Fatalf("expected duplicate form error, got %v", err)
	}
}

func TestBuildErrors(t *testing.T) {
	reg := widgets.NewRegistry()
	tests := []struct {
		name string
		cfg  loader.WidgetConfig
		want string
	}{
		{name: "missing widget", cfg: loader.WidgetConfig{ID: "x"}, want: "widget type is required"},
		{name: "unknown widget", cfg: loader.WidgetConfig{Widget: "Slider"}, want: `widget "Slider" not found`},
		{name: "bad validator", cfg: loader.WidgetConfig{Widget: "TextField", Validator: &loader.ValidatorConfig{Type: "zip"}}, want: `unknown validator type "zip"`},
		{name: "bad regex", cfg: loader.WidgetConfig{Widget: "TextField", Validator: &loader.ValidatorConfig{Type: "regex", Pattern: "("}}, want: "compile pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.Build(tt.cfg, reg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	_, err := loader.Build(loader.WidgetConfig{Widget: "TextField", ID: "1x"}, reg)
	if !widget.IsConfigError(err, widget.CodeInvalidID) {
		t.Fatalf("expected invalid-id error, got %v", err)
	}
}
