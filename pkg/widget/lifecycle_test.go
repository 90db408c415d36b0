package widget_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwidget/pkg/param"
	"github.com/goliatone/go-formwidget/pkg/request"
	"github.com/goliatone/go-formwidget/pkg/resources"
	"github.com/goliatone/go-formwidget/pkg/validation"
	"github.com/goliatone/go-formwidget/pkg/widget"
)

func repeating(t *testing.T, opts ...widget.Option) *widget.Definition {
	t.Helper()
	base := []widget.Option{widget.ID("items"), widget.Template("repeat.tmpl"), widget.Child(leaf(t))}
	def, err := widget.Define(widget.KindRepeating, "Repeat", append(base, opts...)...)
	if err != nil {
		t.Fatalf("define repeating: %v", err)
	}
	return def
}

func TestRepetitionCount(t *testing.T) {
	three := []any{"a", "b", "c"}
	ten := []any{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		name  string
		opts  []widget.Option
		value []any
		want  int
	}{
		{name: "extra rep", opts: []widget.Option{widget.Set(widget.ParamExtraReps, 1)}, value: three, want: 4},
		{name: "max clamps", opts: []widget.Option{widget.Set(widget.ParamExtraReps, 1), widget.Set(widget.ParamMaxReps, 10)}, value: ten, want: 10},
		{name: "min after max", opts: []widget.Option{widget.Set(widget.ParamMaxReps, 30), widget.Set(widget.ParamMinReps, 20)}, value: ten, want: 20},
		{name: "min above max wins", opts: []widget.Option{widget.Set(widget.ParamMaxReps, 2), widget.Set(widget.ParamMinReps, 5)}, value: three, want: 5},
		{name: "fixed", opts: []widget.Option{widget.Set(widget.ParamRepetitions, 7)}, value: three, want: 7},
		{name: "empty", value: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := repeating(t, tt.opts...).MustInstantiate(widget.WithValue(tt.value))
			if err := in.Prepare(context.Background()); err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			if got := in.Repetitions(); got != tt.want {
				t.Fatalf("repetitions = %d, want %d", got, tt.want)
			}
			if got := len(in.Children()); got != tt.want {
				t.Fatalf("children = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRepetitionsMemoized(t *testing.T) {
	in := repeating(t).MustInstantiate()
	first := in.Rep(3)
	if first == nil || in.Rep(3) != first {
		t.Fatalf("repetition not memoized")
	}
	if first.CompoundID() != "items:3" {
		t.Fatalf("compound id = %q", first.CompoundID())
	}
	if in.Rep(3).Parent() != in {
		t.Fatalf("repetition parent mismatch")
	}
}

func TestPrepareDistributesValues(t *testing.T) {
	type address struct {
		Street string `form:"street"`
		City   string
	}
	def := compound(t, widget.ID("addr"), widget.Children(
		leaf(t, widget.ID("street")),
		leaf(t, widget.ID("city")),
	))

	in := def.MustInstantiate(widget.WithValue(address{Street: "Main", City: "Springfield"}))
	if err := in.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if got := in.Child("street").Value; got != "Main" {
		t.Fatalf("street = %v", got)
	}
	if got := in.Child("city").Value; got != "Springfield" {
		t.Fatalf("city = %v", got)
	}

	nested := compound(t, widget.ID("f"), widget.Children(
		leaf(t, widget.ID("a")),
		compound(t, widget.Children(leaf(t, widget.ID("b")))),
	)).MustInstantiate(widget.WithValue(map[string]any{"a": 1, "b": 2}))
	if err := nested.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if got := nested.Child("b").Value; got != 2 {
		t.Fatalf("sub-compound child value = %v", got)
	}
}

func TestPrepareRequiredParam(t *testing.T) {
	def := leaf(t, widget.ID("x"), widget.Params(param.New("label", "Label text")))

	err := def.MustInstantiate().Prepare(context.Background())
	if !widget.IsConfigError(err, widget.CodeRequiredParam) {
		t.Fatalf("expected required-param, got %v", err)
	}

	in := def.MustInstantiate(widget.WithParam("label", "X"))
	if err := in.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare with label: %v", err)
	}
}

func TestFixedParamNotOverridable(t *testing.T) {
	def := leaf(t, widget.Params(param.New("size", "", param.Default(1), param.RequestLocal(false))))
	_, err := def.Instantiate(widget.WithParam("size", 2))
	if !widget.IsConfigError(err, widget.CodeFixedParam) {
		t.Fatalf("expected fixed-param, got %v", err)
	}
	_, err = def.Instantiate(widget.WithParam("nope", 2))
	if !widget.IsConfigError(err, widget.CodeUnknownParam) {
		t.Fatalf("expected unknown-param, got %v", err)
	}
}

func TestPrepareAttrsAndResources(t *testing.T) {
	def := leaf(t, widget.ID("name"),
		widget.Params(
			param.New("placeholder", "", param.Default("Your name"), param.Attribute(true)),
			param.New("disabled", "", param.Default(false), param.Attribute(true)),
		),
		widget.Set(widget.ParamCSSClass, "wide"),
		widget.Set(widget.ParamAttrs, map[string]any{"class": "input", "data-x": "1"}),
		widget.Resources(resources.JSSource("init()")),
	)

	ctx, st := request.Ensure(context.Background())
	in := def.MustInstantiate()
	if err := in.Prepare(ctx); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	want := map[string]string{
		"id":          "name",
		"class":       "input wide",
		"data-x":      "1",
		"placeholder": "Your name",
	}
	if diff := cmp.Diff(want, in.Attrs); diff != "" {
		t.Fatalf("attrs mismatch (-want +got):\n%s", diff)
	}
	if n := len(st.Resources()); n != 1 {
		t.Fatalf("resources registered = %d", n)
	}
}

func TestValidateMissingRequiredSibling(t *testing.T) {
	def := compound(t, widget.ID("a"), widget.Children(
		leaf(t, widget.ID("b"), widget.Set(widget.ParamRequired, true)),
		leaf(t, widget.ID("c"), widget.Set(widget.ParamRequired, true)),
	))
	ctx, st := request.Ensure(context.Background())
	in := def.MustInstantiate()

	out, err := in.Validate(ctx, map[string]any{"a:b": "test"})
	verr := validation.AsError(err)
	if verr == nil || !verr.IsChildError() {
		t.Fatalf("expected aggregate child error, got %v", err)
	}

	want := map[string]any{"b": "test", "c": validation.Invalid}
	if diff := cmp.Diff(want, out, cmp.Comparer(func(a, b any) bool { return fmt.Sprint(a) == fmt.Sprint(b) })); diff != "" {
		t.Fatalf("partial result mismatch (-want +got):\n%s", diff)
	}

	retained, ok := st.Validated().(*widget.Instance)
	if !ok || retained != in {
		t.Fatalf("validated instance not retained in request state")
	}
	if got := retained.Child("b").Value; got != "test" {
		t.Fatalf("b.Value = %v", got)
	}
	if got := retained.Child("c").ErrorMessage(); got != "Enter a value" {
		t.Fatalf("c.ErrorMessage() = %q", got)
	}
	if got := retained.Child("b").ErrorMessage(); got != "" {
		t.Fatalf("b should have no error, got %q", got)
	}
	if diff := cmp.Diff(map[string]string{"a:c": "Enter a value"}, in.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateKeepsRawValueOnFailure(t *testing.T) {
	def := compound(t, widget.ID("f"), widget.Children(
		leaf(t, widget.ID("age"), widget.WithValidator(validation.Int{})),
		leaf(t, widget.ID("count"), widget.WithValidator(validation.Int{})),
	))
	in := def.MustInstantiate()
	_, err := in.Validate(context.Background(), map[string]any{"f:age": "abc", "f:count": "5"})
	if err == nil {
		t.Fatalf("expected failure")
	}

	age := in.Child("age")
	if age.Value != "abc" || age.DisplayValue() != "abc" {
		t.Fatalf("age should keep raw value, got %v / %v", age.Value, age.DisplayValue())
	}
	if age.ErrorMessage() != "Must be an integer" {
		t.Fatalf("age message = %q", age.ErrorMessage())
	}
	count := in.Child("count")
	if count.Value != 5 || count.DisplayValue() != "5" {
		t.Fatalf("count = %v / %v", count.Value, count.DisplayValue())
	}
}

func TestValidateRepeatingKeepsIndices(t *testing.T) {
	def := compound(t, widget.ID("f"), widget.Children(
		repeating(t, widget.Child(leaf(t, widget.WithValidator(validation.Int{})))),
	))
	in := def.MustInstantiate()
	out, err := in.Validate(context.Background(), map[string]any{
		"f:items:0": "1",
		"f:items:1": "x",
		"f:items:2": "3",
	})
	if err == nil {
		t.Fatalf("expected failure")
	}
	items := out.(map[string]any)["items"]
	if items != validation.Invalid {
		t.Fatalf("failed repeating child should be Invalid in parent, got %v", items)
	}

	rep := in.Child("items")
	list, ok := rep.Value.([]any)
	if !ok || len(list) != 3 {
		t.Fatalf("repeating value = %#v", rep.Value)
	}
	if list[0] != 1 || !validation.IsInvalid(list[1]) || list[2] != 3 {
		t.Fatalf("index alignment lost: %#v", list)
	}
	if got := rep.Rep(1).ErrorMessage(); got != "Must be an integer" {
		t.Fatalf("rep 1 message = %q", got)
	}
	if got := rep.Rep(1).CompoundID(); got != "f:items:1" {
		t.Fatalf("rep 1 compound id = %q", got)
	}
}

func TestValidateCompoundValidatorRunsOnPartialResult(t *testing.T) {
	def := compound(t, widget.ID("f"),
		widget.WithValidator(validation.Match{Field1: "password", Field2: "confirm"}),
		widget.Children(
			leaf(t, widget.ID("password")),
			leaf(t, widget.ID("confirm")),
			leaf(t, widget.ID("age"), widget.WithValidator(validation.Int{})),
		),
	)
	in := def.MustInstantiate()
	_, err := in.Validate(context.Background(), map[string]any{
		"f:password": "secret",
		"f:confirm":  "other",
		"f:age":      "x",
	})
	if err == nil {
		t.Fatalf("expected failure")
	}
	if got := in.Child("confirm").ErrorMessage(); got != "Must match password" {
		t.Fatalf("confirm message = %q", got)
	}
	if got := in.Child("age").ErrorMessage(); got == "" {
		t.Fatalf("age should fail independently")
	}
}

func TestValidateSuccess(t *testing.T) {
	def := compound(t, widget.ID("f"), widget.Children(
		leaf(t, widget.ID("n"), widget.WithValidator(validation.Int{})),
		compound(t, widget.Children(leaf(t, widget.ID("s")))),
	))
	out, err := def.MustInstantiate().Validate(context.Background(), map[string]any{"f:n": "4", "f:s": "x"})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"n": 4, "s": "x"}, out); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateSkipsWrappedIDLessLeaves(t *testing.T) {
	wrap := func(def *widget.Definition) *widget.Definition {
		return widget.Must(widget.Define(widget.KindDisplayOnly, "Wrapper", widget.Template("wrap.tmpl"), widget.Child(def)))
	}
	def := compound(t, widget.ID("f"), widget.Children(
		leaf(t, widget.ID("age"), widget.WithValidator(validation.Int{})),
		wrap(leaf(t)),
		wrap(compound(t, widget.Children(leaf(t, widget.ID("s"))))),
	))
	if def.Children()[1].IsSubCompound() {
		t.Fatalf("a wrapped id-less leaf is not a sub-compound")
	}
	if !def.Children()[2].IsSubCompound() {
		t.Fatalf("a wrapped id-less compound is a sub-compound")
	}

	out, err := def.MustInstantiate().Validate(context.Background(), map[string]any{"f:age": "42", "f:s": "x"})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"age": 42, "s": "x"}, out); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestCompoundValidatorMessageWithoutMatchingChild(t *testing.T) {
	def := compound(t, widget.ID("f"),
		widget.WithValidator(validation.Match{Field1: "a", Field2: "gone"}),
		widget.Children(leaf(t, widget.ID("a"))),
	)
	in := def.MustInstantiate()
	_, err := in.Validate(context.Background(), map[string]any{"f:a": "x"})
	verr := validation.AsError(err)
	if verr == nil || verr.IsChildError() {
		t.Fatalf("expected the validator failure, got %v", err)
	}
	if got := in.ErrorMessage(); got != "Must match a" {
		t.Fatalf("compound message = %q", got)
	}
}

func TestValidateMissingRootIsCorrupt(t *testing.T) {
	def := compound(t, widget.ID("f"), widget.Children(leaf(t, widget.ID("a"))))
	_, err := def.MustInstantiate().Validate(context.Background(), map[string]any{"g:a": "1"})
	if verr := validation.AsError(err); verr == nil || verr.Kind != validation.KindCorrupt {
		t.Fatalf("expected corrupt error, got %v", err)
	}
}

func TestValidateMessageOverrides(t *testing.T) {
	def := compound(t, widget.ID("f"), widget.Children(
		leaf(t, widget.ID("a"), widget.Set(widget.ParamRequired, true)),
	))
	st := request.NewState(request.WithMessages(validation.NewMessages(map[string]string{
		validation.KindRequired: "Please fill this in",
	})))
	in := def.MustInstantiate()
	_, _ = in.Validate(request.NewContext(context.Background(), st), map[string]any{"f:a": ""})
	if got := in.Child("a").ErrorMessage(); got != "Please fill this in" {
		t.Fatalf("message = %q", got)
	}
}

func TestValidateLifecycleErrors(t *testing.T) {
	def := compound(t, widget.ID("f"), widget.Children(leaf(t, widget.ID("a"))))

	in := def.MustInstantiate()
	if err := in.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, err := in.Validate(context.Background(), nil); !widget.IsConfigError(err, widget.CodeAlreadyPrepared) {
		t.Fatalf("expected already-prepared, got %v", err)
	}

	fresh := def.MustInstantiate()
	if _, err := fresh.Child("a").Validate(context.Background(), nil); !widget.IsConfigError(err, widget.CodeNotRoot) {
		t.Fatalf("expected not-root, got %v", err)
	}
}

func TestDisplayOnlyWrapsChildFailure(t *testing.T) {
	form := widget.Must(widget.Define(widget.KindDisplayOnly, "Form",
		widget.Template("form.tmpl"),
		widget.ID("f"),
		widget.Child(compound(t, widget.Children(leaf(t, widget.ID("a"), widget.Set(widget.ParamRequired, true))))),
	))
	in := form.MustInstantiate()
	_, err := in.Validate(context.Background(), map[string]any{"f:a": ""})
	verr := validation.AsError(err)
	if verr == nil || verr.Widget != in {
		t.Fatalf("failure should be tagged at the wrapper, got %v", err)
	}
	inner := validation.AsError(verr.Err)
	if inner == nil || !inner.IsChildError() {
		t.Fatalf("wrapped failure should be the child aggregate, got %v", verr.Err)
	}
	if got := in.Find("f:a").ErrorMessage(); got != "Enter a value" {
		t.Fatalf("a message = %q", got)
	}
}

type fakeRenderer struct {
	engines []string
}

func (f *fakeRenderer) Engine(ref, hint string) (string, error) {
	if name, _, ok := strings.Cut(ref, ":"); ok {
		return name, nil
	}
	if hint != "" {
		return hint, nil
	}
	return "default", nil
}

func (f *fakeRenderer) Render(_ context.Context, ref, engine string, vars map[string]any) (string, error) {
	f.engines = append(f.engines, engine+"/"+ref)
	w := vars["w"].(map[string]any)
	var b strings.Builder
	fmt.Fprintf(&b, "<%s id=%q value=%v", w["type"], w["compound_id"], w["value"])
	if msg := w["error_msg"]; msg != "" {
		fmt.Fprintf(&b, " error=%q", msg)
	}
	b.WriteString(">")
	for _, c := range w["children"].([]map[string]any) {
		fmt.Fprint(&b, c["html"])
	}
	b.WriteString("</>")
	return b.String(), nil
}

func TestDisplayRendersChildrenWithParentEngine(t *testing.T) {
	def := compound(t, widget.ID("f"), widget.Template("alt:group.tmpl"), widget.Children(
		leaf(t, widget.ID("a")),
		leaf(t, widget.ID("b"), widget.Set(widget.ParamInlineEngine, "other")),
	))
	r := &fakeRenderer{}
	out, err := def.MustInstantiate(widget.WithValue(map[string]any{"a": "x"})).Display(context.Background(), r)
	if err != nil {
		t.Fatalf("Display: %v", err)
	}

	want := `<Group id="f" value=map[a:x]><Field id="f:a" value=x></><Field id="f:b" value=<nil>></></>`
	if out != want {
		t.Fatalf("output mismatch\nwant %s\ngot  %s", want, out)
	}
	got := append([]string(nil), r.engines...)
	sort.Strings(got)
	if diff := cmp.Diff([]string{"alt/alt:group.tmpl", "alt/field.tmpl", "other/field.tmpl"}, got); diff != "" {
		t.Fatalf("engines mismatch (-want +got):\n%s", diff)
	}
}

func TestRedisplayAfterValidation(t *testing.T) {
	def := compound(t, widget.ID("f"), widget.Children(
		leaf(t, widget.ID("n"), widget.WithValidator(validation.Int{})),
		leaf(t, widget.ID("m"), widget.WithValidator(validation.Int{})),
	))
	in := def.MustInstantiate()
	_, _ = in.Validate(context.Background(), map[string]any{"f:n": "x", "f:m": "7"})

	out, err := in.Display(context.Background(), &fakeRenderer{})
	if err != nil {
		t.Fatalf("Display: %v", err)
	}
	if !strings.Contains(out, `<Field id="f:n" value=x error="Must be an integer">`) {
		t.Fatalf("failed field not redisplayed with raw value: %s", out)
	}
	if !strings.Contains(out, `<Field id="f:m" value=7>`) {
		t.Fatalf("succeeded field not redisplayed: %s", out)
	}
}
