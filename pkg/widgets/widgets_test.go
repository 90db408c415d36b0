package widgets_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwidget/pkg/render"
	"github.com/goliatone/go-formwidget/pkg/render/template/gotemplate"
	"github.com/goliatone/go-formwidget/pkg/request"
	"github.com/goliatone/go-formwidget/pkg/testsupport"
	"github.com/goliatone/go-formwidget/pkg/widget"
	"github.com/goliatone/go-formwidget/pkg/widgets"
)

func newDispatcher(t *testing.T) *render.Dispatcher {
	t.Helper()
	engine, err := gotemplate.New(gotemplate.WithFS(widgets.Templates()))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	reg := render.NewRegistry()
	reg.MustRegister(engine)
	d, err := render.NewDispatcher(render.WithRegistry(reg))
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	return d
}

func display(t *testing.T, def *widget.Definition, opts ...widget.InstanceOption) string {
	t.Helper()
	ctx, _ := testsupport.Context()
	out, err := def.MustInstantiate(opts...).Display(ctx, newDispatcher(t))
	if err != nil {
		t.Fatalf("Display: %v", err)
	}
	return out
}

func TestLabelFor(t *testing.T) {
	tests := map[string]string{
		"first_name": "First Name",
		"email":      "Email",
		"zip-code":   "Zip Code",
		"":           "",
	}
	for id, want := range tests {
		if got := widgets.LabelFor(id); got != want {
			t.Errorf("LabelFor(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestInputFields(t *testing.T) {
	tests := []struct {
		name string
		def  *widget.Definition
		opts []widget.InstanceOption
		want string
	}{
		{
			name: "text",
			def:  widgets.TextField.MustWith(widget.ID("name")),
			opts: []widget.InstanceOption{widget.WithValue("Ada")},
			want: `<input id="name" name="name" type="text" value="Ada">`,
		},
		{
			name: "text escapes value",
			def:  widgets.TextField.MustWith(widget.ID("q"), widget.Set(widgets.ParamPlaceholder, "Search")),
			opts: []widget.InstanceOption{widget.WithValue(`"x"`)},
			want: `<input id="q" name="q" placeholder="Search" type="text" value="&#34;x&#34;">`,
		},
		{
			name: "password drops value",
			def:  widgets.PasswordField.MustWith(widget.ID("pw")),
			opts: []widget.InstanceOption{widget.WithValue("secret")},
			want: `<input id="pw" name="pw" type="password">`,
		},
		{
			name: "checkbox checked",
			def:  widgets.CheckBox.MustWith(widget.ID("agree")),
			opts: []widget.InstanceOption{widget.WithValue(true)},
			want: `<input checked="checked" id="agree" name="agree" type="checkbox">`,
		},
		{
			name: "hidden default",
			def:  widgets.HiddenField.MustWith(widget.ID("token"), widget.Set(widgets.ParamDefault, "abc")),
			want: `<input id="token" name="token" type="hidden" value="abc">`,
		},
		{
			name: "submit button",
			def:  widgets.SubmitButton,
			want: `<input type="submit" value="Submit">`,
		},
		{
			name: "textarea",
			def:  widgets.TextArea.MustWith(widget.ID("bio"), widget.Set(widgets.ParamRows, 3)),
			opts: []widget.InstanceOption{widget.WithValue("a<b")},
			want: `<textarea id="bio" name="bio" rows="3">a&lt;b</textarea>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.TrimSpace(display(t, tt.def, tt.opts...))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("markup mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelectFields(t *testing.T) {
	single := widgets.SingleSelectField.MustWith(
		widget.ID("color"),
		widget.Set(widgets.ParamOptions, []any{"red", []any{"g", "Green"}, widgets.Option{Value: "b", Label: "Blue"}}),
	)
	got := testsupport.NormalizeHTML(display(t, single, widget.WithValue("g")))
	want := `<select id="color" name="color">` +
		`<option value=""></option>` +
		`<option value="red">red</option>` +
		`<option value="g" selected="selected">Green</option>` +
		`<option value="b">Blue</option>` +
		`</select>`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("single select mismatch (-want +got):\n%s", diff)
	}

	multi := widgets.MultipleSelectField.MustWith(
		widget.ID("tags"),
		widget.Set(widgets.ParamOptions, []string{"a", "b", "c"}),
	)
	got = testsupport.NormalizeHTML(display(t, multi, widget.WithValue([]any{"a", "c"})))
	want = `<select id="tags" multiple="multiple" name="tags">` +
		`<option value="a" selected="selected">a</option>` +
		`<option value="b">b</option>` +
		`<option value="c" selected="selected">c</option>` +
		`</select>`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("multiple select mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeOptions(t *testing.T) {
	got := widgets.NormalizeOptions([]any{
		"x",
		map[string]any{"value": 1, "label": "One"},
		map[string]string{"value": "v"},
		[2]string{"k", "Key"},
	})
	want := []widgets.Option{
		{Value: "x", Label: "x"},
		{Value: "1", Label: "One"},
		{Value: "v", Label: "v"},
		{Value: "k", Label: "Key"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestLabelSanitisesMarkup(t *testing.T) {
	label := widgets.Label.MustWith(widget.Set(widgets.ParamText, `<b>Note</b><script>alert(1)</script>`))
	got := strings.TrimSpace(display(t, label))
	if got != `<span><b>Note</b></span>` {
		t.Fatalf("label markup = %q", got)
	}
}

func contactForm(t *testing.T) *widget.Definition {
	t.Helper()
	token, err := widgets.CSRFToken("csrf_token", "tok")
	if err != nil {
		t.Fatalf("CSRFToken: %v", err)
	}
	form, err := widgets.TableForm.With(
		widget.ID("f"),
		widget.Set(widgets.ParamAction, "/contact"),
		widget.Children(
			widgets.TextField.MustWith(widget.ID("name"), widget.Set(widget.ParamRequired, true)),
			widgets.TextField.MustWith(widget.ID("email"), widget.Set(widgets.ParamHelpText, "We <em>never</em> share it")),
			token,
		),
	)
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	return form
}

func TestTableFormDisplay(t *testing.T) {
	ctx, st := testsupport.Context()
	in := contactForm(t).MustInstantiate(widget.WithValue(map[string]any{"name": "Ada"}))
	out, err := in.Display(ctx, newDispatcher(t))
	if err != nil {
		t.Fatalf("Display: %v", err)
	}
	html := testsupport.NormalizeHTML(out)

	for _, fragment := range []string{
		`<form action="/contact" class="formwidget" id="f:form" method="post">`,
		`<table id="f">`,
		`<tr class="odd required" id="f:name:container">`,
		`<label for="f:name">Name</label>`,
		`<input id="f:name" name="f:name" type="text" value="Ada">`,
		`<tr class="even" id="f:email:container">`,
		`<div class="help">We <em>never</em> share it</div>`,
		`<input id="f:csrf_token" name="f:csrf_token" type="hidden" value="tok">`,
		`<input type="submit" value="Save">`,
	} {
		if !strings.Contains(html, fragment) {
			t.Errorf("missing %q in:\n%s", fragment, html)
		}
	}
	if strings.Contains(html, `f:csrf_token:container`) {
		t.Errorf("hidden field should not get a row:\n%s", html)
	}

	if diff := cmp.Diff([]string{"css:formwidget/forms.css"}, resourceKeys(st)); diff != "" {
		t.Fatalf("resources mismatch (-want +got):\n%s", diff)
	}
}

func TestLayoutRowClassesAreStablePerRender(t *testing.T) {
	list := widgets.ListForm.MustWith(
		widget.ID("l"),
		widget.Children(
			widgets.TextField.MustWith(widget.ID("a")),
			widgets.TextField.MustWith(widget.ID("b")),
			widgets.TextField.MustWith(widget.ID("c")),
		),
	)
	tests := []struct {
		name string
		def  *widget.Definition
		want []string
	}{
		{
			name: "table",
			def:  contactForm(t),
			want: []string{`<tr class="odd required" id="f:name:container">`, `<tr class="even" id="f:email:container">`},
		},
		{
			name: "list",
			def:  list,
			want: []string{`<li class="odd" id="l:a:container">`, `<li class="even" id="l:b:container">`, `<li class="odd" id="l:c:container">`},
		},
	}
	d := newDispatcher(t)
	renderOnce := func(def *widget.Definition) (string, error) {
		ctx, _ := testsupport.Context()
		return def.MustInstantiate().Display(ctx, d)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := renderOnce(tt.def)
			if err != nil {
				t.Fatalf("Display: %v", err)
			}
			second, err := renderOnce(tt.def)
			if err != nil {
				t.Fatalf("Display: %v", err)
			}
			if diff := cmp.Diff(first, second); diff != "" {
				t.Fatalf("second render differs (-first +second):\n%s", diff)
			}
			html := testsupport.NormalizeHTML(first)
			for _, fragment := range tt.want {
				if !strings.Contains(html, fragment) {
					t.Errorf("missing %q in:\n%s", fragment, html)
				}
			}

			var wg sync.WaitGroup
			outs := make([]string, 8)
			errs := make([]error, len(outs))
			for i := range outs {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					outs[i], errs[i] = renderOnce(tt.def)
				}(i)
			}
			wg.Wait()
			for i := range outs {
				if errs[i] != nil {
					t.Fatalf("concurrent Display: %v", errs[i])
				}
				if outs[i] != first {
					t.Fatalf("concurrent render %d differs from the first render", i)
				}
			}
		})
	}
}

func resourceKeys(st *request.State) []string {
	var keys []string
	for _, res := range st.Resources() {
		keys = append(keys, res.Key())
	}
	return keys
}

func TestTableFormRedisplaysErrors(t *testing.T) {
	ctx, st := testsupport.Context()
	in := contactForm(t).MustInstantiate()
	_, err := in.Validate(ctx, map[string]any{
		"f:name":       "",
		"f:email":      "ada@example.com",
		"f:csrf_token": "tok",
	})
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	if st.Validated() != in {
		t.Fatalf("validated instance not stored in request state")
	}
	if diff := cmp.Diff(map[string]string{"f:name": "Enter a value"}, in.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	out, err := in.Display(ctx, newDispatcher(t))
	if err != nil {
		t.Fatalf("Display: %v", err)
	}
	html := testsupport.NormalizeHTML(out)
	for _, fragment := range []string{
		`<tr class="odd required error" id="f:name:container">`,
		`<span class="error">Enter a value</span>`,
		`<input id="f:email" name="f:email" type="text" value="ada@example.com">`,
	} {
		if !strings.Contains(html, fragment) {
			t.Errorf("missing %q in:\n%s", fragment, html)
		}
	}
}

func TestGridLayout(t *testing.T) {
	grid, err := widgets.Grid("people",
		widgets.TextField.MustWith(widget.ID("name")),
		widgets.TextField.MustWith(widget.ID("age"), widget.Set(widgets.ParamLabel, "Age (years)")),
	)
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	value := []any{
		map[string]any{"name": "Ada", "age": 36},
		map[string]any{"name": "Alan", "age": 41},
	}
	html := testsupport.NormalizeHTML(display(t, grid, widget.WithValue(value)))

	if !strings.Contains(html, `<thead><tr><th>Name</th><th>Age (years)</th></tr></thead>`) {
		t.Errorf("missing headings in:\n%s", html)
	}
	if got := strings.Count(html, "<tr id="); got != 3 {
		t.Errorf("rows = %d, want 3 (two values and one blank):\n%s", got, html)
	}
	for _, fragment := range []string{
		`<input id="people:0:name" name="people:0:name" type="text" value="Ada">`,
		`<input id="people:1:age" name="people:1:age" type="text" value="41">`,
		`<input id="people:2:name" name="people:2:name" type="text">`,
	} {
		if !strings.Contains(html, fragment) {
			t.Errorf("missing %q in:\n%s", fragment, html)
		}
	}
}

func TestRepeatingField(t *testing.T) {
	tags := widgets.RepeatingField.MustWith(widget.ID("tags"))
	html := testsupport.NormalizeHTML(display(t, tags, widget.WithValue([]any{"go", "web"})))

	for _, fragment := range []string{
		`<ul id="tags">`,
		`<li><input id="tags:0" name="tags:0" type="text" value="go"></li>`,
		`<li><input id="tags:1" name="tags:1" type="text" value="web"></li>`,
		`<li><input id="tags:2" name="tags:2" type="text"></li>`,
	} {
		if !strings.Contains(html, fragment) {
			t.Errorf("missing %q in:\n%s", fragment, html)
		}
	}
}

func TestFieldSetLegend(t *testing.T) {
	fs := widgets.ListFieldSet.MustWith(
		widget.ID("addr"),
		widget.Set(widgets.ParamLegend, "Address"),
		widget.Children(widgets.TextField.MustWith(widget.ID("city"))),
	)
	html := testsupport.NormalizeHTML(display(t, fs))
	for _, fragment := range []string{
		`<fieldset id="addr:fieldset">`,
		`<legend>Address</legend>`,
		`<ul id="addr">`,
		`<label for="addr:city">City</label>`,
	} {
		if !strings.Contains(html, fragment) {
			t.Errorf("missing %q in:\n%s", fragment, html)
		}
	}
}

func TestRegistry(t *testing.T) {
	reg := widgets.NewRegistry()

	tests := []struct {
		field widgets.Field
		want  string
	}{
		{field: widgets.Field{Type: "boolean"}, want: "CheckBox"},
		{field: widgets.Field{Type: "string", Enum: []any{"a"}}, want: "SingleSelectField"},
		{field: widgets.Field{Type: "array", Items: &widgets.Field{Type: "string", Enum: []any{"a"}}}, want: "MultipleSelectField"},
		{field: widgets.Field{Type: "string", Format: "password"}, want: "PasswordField"},
		{field: widgets.Field{Type: "string", Format: "textarea"}, want: "TextArea"},
		{field: widgets.Field{Type: "integer"}, want: "TextField"},
		{field: widgets.Field{Type: "boolean", Hints: map[string]string{"widget": "HiddenField"}}, want: "HiddenField"},
	}
	for _, tt := range tests {
		got, ok := reg.Resolve(tt.field)
		if !ok || got != tt.want {
			t.Errorf("Resolve(%+v) = %q, %v; want %q", tt.field, got, ok, tt.want)
		}
	}
	if _, ok := reg.Resolve(widgets.Field{Type: "object"}); ok {
		t.Errorf("objects should not resolve to a leaf widget")
	}

	if _, err := reg.Get("TextField"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := reg.Register("TextField", widgets.TextField); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if !reg.Has("TableForm") || reg.Has("Nope") {
		t.Fatalf("Has mismatch")
	}
}

func TestHiddenRejectsInvalidID(t *testing.T) {
	if _, err := widgets.CSRFToken("_csrf", "x"); !widget.IsConfigError(err, widget.CodeInvalidID) {
		t.Fatalf("expected invalid-id error, got %v", err)
	}
}

func TestAbstractInputNeedsType(t *testing.T) {
	ctx := context.Background()
	in := widgets.InputField.MustWith(widget.ID("x")).MustInstantiate()
	if err := in.Prepare(ctx); !widget.IsConfigError(err, widget.CodeRequiredParam) {
		t.Fatalf("expected required-param error, got %v", err)
	}
}
