package widget_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formwidget/pkg/widget"
)

func payloadForm(t *testing.T) *widget.Instance {
	t.Helper()
	owner := compound(t, widget.ID("owner"), widget.Children(
		leaf(t, widget.ID("email")),
		leaf(t, widget.ID("phone")),
	))
	tags := repeating(t, widget.ID("tags"))
	form := compound(t, widget.ID("form"), widget.Children(leaf(t, widget.ID("name")), owner, tags))
	return form.MustInstantiate()
}

func TestMapErrorsPayloadPaths(t *testing.T) {
	in := payloadForm(t)
	payload := map[string][]string{
		"/body/name":                 {"Name is required"},
		"body.owner.email":           {"Email invalid", " Email invalid "},
		"$.body.tags[0]":             {"Tags must be unique"},
		"request.payload.owner":      {"Owner missing"},
		"form:owner:phone":           {"Phone malformed"},
		"non_field_errors":           {"Form level error"},
		"request/body/unknown-field": {"Should fall back to form errors"},
		"":                           {"Unscoped form error"},
		"body.name.extra":            {"  "},
	}

	mapped := in.MapErrors(payload)

	wantFields := map[string][]string{
		"form:name":        {"Name is required"},
		"form:owner:email": {"Email invalid"},
		"form:tags:0":      {"Tags must be unique"},
		"form:owner":       {"Owner missing"},
		"form:owner:phone": {"Phone malformed"},
	}
	if diff := cmp.Diff(wantFields, mapped.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}

	wantForm := []string{"Form level error", "Should fall back to form errors", "Unscoped form error"}
	if diff := cmp.Diff(wantForm, mapped.Form, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyErrorsSetsInstanceErrors(t *testing.T) {
	in := payloadForm(t)
	form := in.ApplyErrors(map[string][]string{
		"owner/email": {"Email invalid", "Email taken"},
		"__all__":     {"Try again"},
	})

	if diff := cmp.Diff([]string{"Try again"}, form); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
	email := in.Find("form:owner:email")
	if email == nil || email.Error == nil {
		t.Fatalf("expected email error to be set")
	}
	if email.Error.Kind != widget.KindServer {
		t.Fatalf("kind = %q", email.Error.Kind)
	}
	if diff := cmp.Diff(map[string]string{"form:owner:email": "Email invalid Email taken"}, in.Errors()); diff != "" {
		t.Fatalf("Errors mismatch (-want +got):\n%s", diff)
	}
}
