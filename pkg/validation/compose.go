package validation

import (
	"reflect"
	"strings"
)

var matchMessages = messageTable{
	KindMismatch: "Must match $field1_str",
}

// Match compares two fields. Attached to a compound node it compares the
// Field1 and Field2 results and reports the failure on Field2. Attached to a
// leaf it compares the leaf value with the sibling result named Field1.
type Match struct {
	Base
	Field1 string
	Field2 string
	// Field1Label is shown in the message; it defaults to Field1.
	Field1Label string
}

func (v Match) params() map[string]any {
	label := v.Field1Label
	if label == "" {
		label = v.Field1
	}
	return map[string]any{"field1": v.Field1, "field2": v.Field2, "field1_str": label}
}

func (v Match) ToInternal(raw any) (any, error) {
	if _, ok := raw.(map[string]any); ok {
		return raw, nil
	}
	value, _, err := v.pre(raw, matchMessages)
	return value, err
}

func (v Match) Check(value any, st State) error {
	if data, ok := value.(map[string]any); ok {
		left, right := data[v.Field1], data[v.Field2]
		if IsInvalid(left) || IsInvalid(right) {
			return nil
		}
		if !reflect.DeepEqual(left, right) {
			err := fail(KindMismatch, v.Messages, matchMessages, v.params())
			err.Children = map[string]string{v.Field2: err.Message}
			return err
		}
		return nil
	}
	other, ok := st.Siblings[v.Field1]
	if !ok || IsInvalid(other) {
		return nil
	}
	if !reflect.DeepEqual(value, other) {
		return fail(KindMismatch, v.Messages, matchMessages, v.params())
	}
	return nil
}

// All applies every validator in order; conversions chain and the first
// failure wins.
type All struct {
	Validators []Validator
}

func (v All) IsRequired() bool {
	for _, inner := range v.Validators {
		if IsRequired(inner) {
			return true
		}
	}
	return false
}

func (v All) ToInternal(raw any) (any, error) {
	value := raw
	for _, inner := range v.Validators {
		if inner == nil {
			continue
		}
		converted, err := inner.ToInternal(value)
		if err != nil {
			return converted, err
		}
		value = converted
	}
	return value, nil
}

func (v All) FromInternal(value any) any {
	for i := len(v.Validators) - 1; i >= 0; i-- {
		if v.Validators[i] != nil {
			value = v.Validators[i].FromInternal(value)
		}
	}
	return value
}

func (v All) Check(value any, st State) error {
	for _, inner := range v.Validators {
		if inner == nil {
			continue
		}
		if err := inner.Check(value, st); err != nil {
			return err
		}
	}
	return nil
}

// Any passes when at least one validator accepts the value. When all fail the
// messages are joined.
type Any struct {
	Validators []Validator
}

func (v Any) IsRequired() bool {
	for _, inner := range v.Validators {
		if !IsRequired(inner) {
			return false
		}
	}
	return len(v.Validators) > 0
}

func (v Any) ToInternal(raw any) (any, error) {
	var failures []*Error
	for _, inner := range v.Validators {
		if inner == nil {
			continue
		}
		value, err := Convert(inner, raw, State{})
		if err == nil {
			return value, nil
		}
		failures = append(failures, AsError(err))
	}
	if len(failures) == 0 {
		return raw, nil
	}
	return raw, joinFailures(failures)
}

func (v Any) FromInternal(value any) any {
	for _, inner := range v.Validators {
		if inner != nil {
			return inner.FromInternal(value)
		}
	}
	return value
}

func (v Any) Check(value any, st State) error {
	var failures []*Error
	for _, inner := range v.Validators {
		if inner == nil {
			continue
		}
		err := inner.Check(value, st)
		if err == nil {
			return nil
		}
		failures = append(failures, AsError(err))
	}
	if len(failures) == 0 {
		return nil
	}
	return joinFailures(failures)
}

func joinFailures(failures []*Error) *Error {
	if len(failures) == 1 {
		return failures[0]
	}
	messages := make([]string, 0, len(failures))
	seen := make(map[string]struct{}, len(failures))
	for _, failure := range failures {
		msg := strings.TrimSpace(failure.Message)
		if msg == "" {
			continue
		}
		if _, ok := seen[msg]; ok {
			continue
		}
		seen[msg] = struct{}{}
		messages = append(messages, msg)
	}
	return &Error{
		Kind:    failures[0].Kind,
		Message: strings.Join(messages, "; "),
		Params:  failures[0].Params,
	}
}

var blankMessages = messageTable{
	KindNotBlank: "Must be blank",
}

// Blank accepts only empty input.
type Blank struct {
	Base
}

func (v Blank) ToInternal(raw any) (any, error) {
	if !IsEmpty(raw) {
		return raw, fail(KindNotBlank, v.Messages, blankMessages, nil)
	}
	return raw, nil
}
