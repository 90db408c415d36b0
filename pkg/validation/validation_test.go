package validation_test

import (
	"errors"
	"math"
	"net/netip"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/goliatone/go-formwidget/pkg/validation"
)

var netipComparers = []cmp.Option{
	cmp.Comparer(func(a, b netip.Addr) bool { return a == b }),
	cmp.Comparer(func(a, b netip.Prefix) bool { return a == b }),
}

func convert(v validation.Validator, raw any) (any, *validation.Error) {
	value, err := validation.Convert(v, raw, validation.State{})
	return value, validation.AsError(err)
}

func TestConvertMessages(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dateFrom := validation.Date(validation.Base{})
	dateFrom.Min = &start

	tests := []struct {
		name string
		v    validation.Validator
		raw  any
		kind string
		msg  string
	}{
		{name: "required", v: validation.Base{Required: true}, raw: "", kind: validation.KindRequired, msg: "Enter a value"},
		{name: "decode", v: validation.Base{}, raw: string([]byte{0xff, 0xfe}), kind: validation.KindDecode, msg: "Received in the wrong character set; should be utf-8"},
		{name: "decode with encoding", v: validation.Base{Encoding: "latin-1"}, raw: []byte{0xff}, kind: validation.KindDecode, msg: "Received in the wrong character set; should be latin-1"},
		{name: "too short", v: validation.Length{Min: 2}, raw: "a", kind: validation.KindTooShort, msg: "Value is too short"},
		{name: "too long", v: validation.Length{Max: 3}, raw: "abcd", kind: validation.KindTooLong, msg: "Value is too long"},
		{name: "not int", v: validation.Int{}, raw: "1.5", kind: validation.KindNotInt, msg: "Must be an integer"},
		{name: "int too small", v: validation.Int{Range: validation.Range{Min: validation.Bound(18)}}, raw: "12", kind: validation.KindTooSmall, msg: "Must be at least 18"},
		{name: "number too big", v: validation.Number{Range: validation.Range{Max: validation.Bound(2.5)}}, raw: "3", kind: validation.KindTooBig, msg: "Cannot be more than 2.5"},
		{name: "int overflow", v: validation.Int{}, raw: float64(1 << 63), kind: validation.KindNotInt, msg: "Must be an integer"},
		{name: "not number", v: validation.Number{}, raw: "abc", kind: validation.KindNotNumber, msg: "Must be a number"},
		{name: "not bool", v: validation.Bool{}, raw: "maybe", kind: validation.KindNotBool, msg: "Must be true or false"},
		{name: "required bool", v: validation.Bool{Base: validation.Base{Required: true}}, raw: "off", kind: validation.KindRequired, msg: "Enter a value"},
		{name: "one of", v: validation.OneOf{Values: []any{"red", "green"}}, raw: "blue", kind: validation.KindNotInList, msg: "Invalid value"},
		{name: "one of list", v: validation.OneOf{Values: []any{"red", "green"}}, raw: []any{"red", "blue"}, kind: validation.KindNotInList, msg: "Invalid value"},
		{name: "regex", v: validation.MustRegex(`^[0-9]+$`), raw: "12a", kind: validation.KindBadRegex, msg: "Invalid value"},
		{name: "email", v: validation.Email(validation.Base{}), raw: "ada@", kind: validation.KindBadRegex, msg: "Must be a valid email address"},
		{name: "url", v: validation.URL(validation.Base{}), raw: "ftp://x", kind: validation.KindBadRegex, msg: "Must be a valid URL"},
		{name: "ip", v: validation.IPAddress{}, raw: "300.1.1.1", kind: validation.KindBadIPAddress, msg: "Must be a valid IP address"},
		{name: "netblock not allowed", v: validation.IPAddress{}, raw: "10.0.0.0/8", kind: validation.KindBadIPAddress, msg: "Must be a valid IP address"},
		{name: "netblock required", v: validation.IPAddress{RequireNetblock: true}, raw: "10.0.0.1", kind: validation.KindBadNetblock, msg: "Must be a valid IP network block"},
		{name: "uuid", v: validation.UUID{}, raw: "nope", kind: validation.KindBadUUID, msg: "Must be a valid UUID"},
		{name: "date format", v: validation.Date(validation.Base{}), raw: "2024-13-01", kind: validation.KindBadDateTime, msg: "Must follow date/time format YYYY-MM-DD"},
		{name: "date too early", v: dateFrom, raw: "2023-12-31", kind: validation.KindTooSmall, msg: "Cannot be earlier than 2024-01-01"},
		{name: "blank", v: validation.Blank{}, raw: "x", kind: validation.KindNotBlank, msg: "Must be blank"},
		{name: "custom message", v: validation.Length{Base: validation.Base{Messages: map[string]string{validation.KindTooShort: "At least $min"}}, Min: 3}, raw: "ab", kind: validation.KindTooShort, msg: "At least 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := convert(tt.v, tt.raw)
			if err == nil {
				t.Fatalf("expected %s failure", tt.kind)
			}
			if err.Kind != tt.kind || err.Message != tt.msg {
				t.Fatalf("got %s %q, want %s %q", err.Kind, err.Message, tt.kind, tt.msg)
			}
		})
	}
}

func TestConvertValues(t *testing.T) {
	id := uuid.MustParse("0b8c3c4e-6f60-4f5c-9d55-3c1b2a9e8f10")
	tests := []struct {
		name string
		v    validation.Validator
		raw  any
		want any
	}{
		{name: "strip", v: validation.Length{Base: validation.Base{Strip: true}, Max: 3}, raw: "  ab ", want: "ab"},
		{name: "length counts runes", v: validation.Length{Max: 3}, raw: "héé", want: "héé"},
		{name: "int", v: validation.Int{}, raw: " 42 ", want: 42},
		{name: "int from float", v: validation.Int{}, raw: 7.0, want: 7},
		{name: "int lower bound", v: validation.Int{}, raw: float64(math.MinInt), want: math.MinInt},
		{name: "number", v: validation.Number{}, raw: "2.5", want: 2.5},
		{name: "bool on", v: validation.Bool{}, raw: "on", want: true},
		{name: "bool missing", v: validation.Bool{}, raw: nil, want: false},
		{name: "optional empty skips checks", v: validation.Length{Min: 5}, raw: "", want: ""},
		{name: "uuid", v: validation.UUID{}, raw: id.String(), want: id},
		{name: "ip", v: validation.IPAddress{}, raw: "::1", want: netip.MustParseAddr("::1")},
		{name: "netblock", v: validation.IPAddress{AllowNetblock: true}, raw: "10.0.0.0/8", want: netip.MustParsePrefix("10.0.0.0/8")},
		{name: "date", v: validation.Date(validation.Base{}), raw: "2024-02-29", want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{name: "blank", v: validation.Blank{}, raw: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convert(tt.v, tt.raw)
			if err != nil {
				t.Fatalf("unexpected failure: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, netipComparers...); diff != "" {
				t.Fatalf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFromInternal(t *testing.T) {
	if got := (validation.Int{}).FromInternal(12); got != "12" {
		t.Fatalf("Int = %v", got)
	}
	if got := (validation.Number{}).FromInternal(2.5); got != "2.5" {
		t.Fatalf("Number = %v", got)
	}
	if got := validation.Date(validation.Base{}).FromInternal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)); got != "2024-05-01" {
		t.Fatalf("Date = %v", got)
	}
	if got := (validation.IPAddress{}).FromInternal(netip.MustParsePrefix("10.0.0.0/8")); got != "10.0.0.0/8" {
		t.Fatalf("IPAddress = %v", got)
	}
	chain := validation.All{Validators: []validation.Validator{validation.Base{Strip: true}, validation.Int{}}}
	if got := chain.FromInternal(3); got != "3" {
		t.Fatalf("All = %v", got)
	}
}

func TestRoundTripIsIdempotent(t *testing.T) {
	tests := []struct {
		name string
		v    validation.Validator
		raw  any
	}{
		{name: "int", v: validation.Int{}, raw: " 42 "},
		{name: "number", v: validation.Number{}, raw: "2.50"},
		{name: "bool", v: validation.Bool{}, raw: "on"},
		{name: "date", v: validation.Date(validation.Base{}), raw: "2024-02-29"},
		{name: "datetime", v: validation.DateTime{}, raw: "2024-02-29 13:45"},
		{name: "ip address", v: validation.IPAddress{}, raw: "2001:DB8::1"},
		{name: "netblock", v: validation.IPAddress{AllowNetblock: true}, raw: "10.0.0.0/8"},
		{name: "uuid", v: validation.UUID{}, raw: "0B8C3C4E-6F60-4F5C-9D55-3C1B2A9E8F10"},
		{name: "one of", v: validation.OneOf{Values: []any{"red", "green"}}, raw: "red"},
		{name: "one of list", v: validation.OneOf{Values: []any{"red", "green"}}, raw: []any{"green", "red"}},
		{name: "length strip", v: validation.Length{Base: validation.Base{Strip: true}, Max: 5}, raw: " ab "},
		{name: "all", v: validation.All{Validators: []validation.Validator{validation.Base{Strip: true}, validation.Int{Range: validation.Range{Min: validation.Bound(0)}}}}, raw: " 7 "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := convert(tt.v, tt.raw)
			if err != nil {
				t.Fatalf("first conversion: %v", err)
			}
			again, err := convert(tt.v, tt.v.FromInternal(first))
			if err != nil {
				t.Fatalf("conversion of %v: %v", tt.v.FromInternal(first), err)
			}
			if diff := cmp.Diff(first, again, netipComparers...); diff != "" {
				t.Fatalf("round trip changed the value (-first +again):\n%s", diff)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	m := validation.Match{Field1: "password", Field2: "confirm", Field1Label: "Password"}

	err := validation.AsError(m.Check(map[string]any{"password": "a", "confirm": "b"}, validation.State{}))
	if err == nil || err.Kind != validation.KindMismatch {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if diff := cmp.Diff(map[string]string{"confirm": "Must match Password"}, err.Children); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
	if err := m.Check(map[string]any{"password": validation.Invalid, "confirm": "b"}, validation.State{}); err != nil {
		t.Fatalf("invalid sibling should skip the comparison: %v", err)
	}

	leaf := validation.Match{Field1: "password"}
	siblings := validation.State{Siblings: map[string]any{"password": "secret"}}
	if _, err := validation.Convert(leaf, "secret", siblings); err != nil {
		t.Fatalf("matching leaf rejected: %v", err)
	}
	_, got := validation.Convert(leaf, "other", siblings)
	if e := validation.AsError(got); e == nil || e.Message != "Must match password" {
		t.Fatalf("leaf mismatch = %v", got)
	}
}

func TestCombinators(t *testing.T) {
	all := validation.All{Validators: []validation.Validator{
		validation.Int{},
		validation.OneOf{Values: []any{1, 2}},
	}}
	if got, err := convert(all, "2"); err != nil || got != 2 {
		t.Fatalf("All(2) = %v, %v", got, err)
	}
	if _, err := convert(all, "x"); err == nil || err.Kind != validation.KindNotInt {
		t.Fatalf("All(x) = %v", err)
	}
	if _, err := convert(all, "3"); err == nil || err.Kind != validation.KindNotInList {
		t.Fatalf("All(3) = %v", err)
	}

	anyOf := validation.Any{Validators: []validation.Validator{validation.Email(validation.Base{}), validation.Int{}}}
	if got, err := convert(anyOf, "5"); err != nil || got != 5 {
		t.Fatalf("Any(5) = %v, %v", got, err)
	}
	_, err := convert(anyOf, "zz")
	if err == nil || err.Message != "Must be a valid email address; Must be an integer" {
		t.Fatalf("Any(zz) = %v", err)
	}

	if validation.IsRequired(all) {
		t.Fatalf("All without required members should not be required")
	}
	if !validation.IsRequired(validation.Required(all)) {
		t.Fatalf("Required wrapper should report required")
	}
}

func TestRequiredWrapper(t *testing.T) {
	tests := []struct {
		name string
		v    validation.Validator
		raw  any
		fail bool
	}{
		{name: "nil validator", v: validation.Required(nil), raw: "", fail: true},
		{name: "whitespace", v: validation.Required(validation.Int{}), raw: "  ", fail: true},
		{name: "empty list", v: validation.Required(validation.OneOf{Values: []any{"a"}}), raw: []any{}, fail: true},
		{name: "value passes through", v: validation.Required(validation.Length{Max: 3}), raw: "ab"},
		{name: "inner still runs", v: validation.Required(validation.Length{Max: 1}), raw: "ab", fail: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := convert(tt.v, tt.raw)
			if (err != nil) != tt.fail {
				t.Fatalf("fail = %v, want %v (%v)", err != nil, tt.fail, err)
			}
		})
	}
}

func TestMessagesOverride(t *testing.T) {
	msgs := validation.NewMessages(map[string]string{
		validation.KindTooShort: "Need $min characters",
		validation.KindMismatch: "Does not match",
	})
	_, err := convert(validation.Length{Min: 4}, "ab")
	msgs.Apply(err)
	if err.Message != "Need 4 characters" {
		t.Fatalf("override = %q", err.Message)
	}

	m := validation.Match{Field1: "a", Field2: "b"}
	merr := validation.AsError(m.Check(map[string]any{"a": 1, "b": 2}, validation.State{}))
	msgs.Apply(merr)
	if merr.Children["b"] != "Does not match" {
		t.Fatalf("child override = %v", merr.Children)
	}

	msgs.Set(validation.KindRequired, "Fill me")
	if text, ok := msgs.Lookup(validation.KindRequired); !ok || text != "Fill me" {
		t.Fatalf("Lookup = %q %v", text, ok)
	}
	all := msgs.All()
	all[validation.KindRequired] = "changed"
	if text, _ := msgs.Lookup(validation.KindRequired); text != "Fill me" {
		t.Fatalf("All should return a copy")
	}

	var none *validation.Messages
	none.Apply(err)
	if _, ok := none.Lookup(validation.KindRequired); ok {
		t.Fatalf("nil table should have no overrides")
	}
}

func TestSubstitute(t *testing.T) {
	got := validation.Substitute("Between $min and $max, not $other", map[string]any{"min": 1, "max": validation.Bound(9.5)})
	if got != "Between 1 and 9.5, not $other" {
		t.Fatalf("Substitute = %q", got)
	}
}

func TestUnflatten(t *testing.T) {
	got, err := validation.Unflatten(map[string]any{
		"f:name":       "Ada",
		"f:tags:10":    "z",
		"f:tags:2":     "y",
		"f:people:0:a": "1",
		"f:people:1:a": "2",
	})
	if err != nil {
		t.Fatalf("Unflatten: %v", err)
	}
	want := map[string]any{
		"f": map[string]any{
			"name":   "Ada",
			"tags":   []any{"y", "z"},
			"people": []any{map[string]any{"a": "1"}, map[string]any{"a": "2"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	_, err = validation.Unflatten(map[string]any{"a": "1", "a:b": "2"})
	var verr *validation.Error
	if !errors.As(err, &verr) || verr.Kind != validation.KindCorrupt {
		t.Fatalf("expected corrupt submission, got %v", err)
	}
	if verr.Message != "Form submission received corrupted; please try again" {
		t.Fatalf("corrupt message = %q", verr.Message)
	}
}

func TestFromValues(t *testing.T) {
	got := validation.FromValues(url.Values{
		"a": {"1"},
		"b": {"1", "2"},
		"c": {},
	})
	want := map[string]any{"a": "1", "b": []any{"1", "2"}, "c": ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	foreign := validation.AsError(errors.New(" boom "))
	if foreign.Kind != validation.KindInvalid || foreign.Message != "boom" {
		t.Fatalf("AsError = %+v", foreign)
	}
	if validation.AsError(nil) != nil {
		t.Fatalf("AsError(nil) should be nil")
	}

	err := &validation.Error{Kind: validation.KindMismatch, Message: "Bad", Children: map[string]string{"b": "x", "a": "y"}}
	if got := err.Error(); got != "validation: Bad (a: y, b: x)" {
		t.Fatalf("Error() = %q", got)
	}

	child := validation.ChildError(nil, "raw")
	if !child.IsChildError() || child.Message != "" {
		t.Fatalf("ChildError = %+v", child)
	}
	if !validation.IsInvalid(validation.Invalid) || validation.IsInvalid(nil) {
		t.Fatalf("IsInvalid misreports")
	}
}
