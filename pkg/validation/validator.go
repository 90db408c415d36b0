// Package validation converts submitted values to their internal form and
// checks them, producing recoverable, message-carrying failures.
package validation

import (
	"reflect"
	"strings"
	"unicode/utf8"
)

// Validator converts between raw submitted values and internal values.
type Validator interface {
	// ToInternal converts a raw value. Required and charset checks run before
	// any type conversion.
	ToInternal(raw any) (any, error)
	// FromInternal converts an internal value back to its display form.
	FromInternal(value any) any
	// Check performs checks not expressed by the conversion itself.
	Check(value any, st State) error
}

// State carries what a check may need beyond the value itself.
type State struct {
	// Siblings holds the results already produced by earlier siblings of the
	// node being validated.
	Siblings map[string]any
}

// Requirer is implemented by validators that reject empty values.
type Requirer interface {
	IsRequired() bool
}

// IsRequired reports whether v rejects empty values.
func IsRequired(v Validator) bool {
	if r, ok := v.(Requirer); ok {
		return r.IsRequired()
	}
	return false
}

// IsEmpty reports whether v counts as no input.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []byte:
		return len(val) == 0
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Base is the plain validator: it enforces Required, trims when Strip is set
// and rejects input that is not valid in the expected encoding. Other
// validators embed it.
type Base struct {
	Required bool
	Strip    bool
	// Encoding names the expected charset in decode messages. Only UTF-8 input
	// is accepted.
	Encoding string
	// Messages overrides the built-in messages of this validator instance.
	Messages map[string]string
}

// IsRequired implements Requirer.
func (b Base) IsRequired() bool { return b.Required }

// ToInternal implements Validator.
func (b Base) ToInternal(raw any) (any, error) {
	value, _, err := b.pre(raw, nil)
	return value, err
}

// FromInternal implements Validator.
func (b Base) FromInternal(value any) any { return value }

// Check implements Validator.
func (b Base) Check(any, State) error { return nil }

// pre normalises raw input. The boolean reports an empty value, in which case
// conversion and checks are skipped.
func (b Base) pre(raw any, table messageTable) (any, bool, error) {
	switch val := raw.(type) {
	case []byte:
		if !utf8.Valid(val) {
			return raw, false, b.decodeError(table)
		}
		raw = string(val)
	case string:
		if !utf8.ValidString(val) {
			return raw, false, b.decodeError(table)
		}
	}
	if s, ok := raw.(string); ok && b.Strip {
		raw = strings.TrimSpace(s)
	}
	if IsEmpty(raw) {
		if b.Required {
			return raw, true, fail(KindRequired, b.Messages, table, nil)
		}
		return raw, true, nil
	}
	return raw, false, nil
}

func (b Base) decodeError(table messageTable) *Error {
	encoding := b.Encoding
	if encoding == "" {
		encoding = "utf-8"
	}
	return fail(KindDecode, b.Messages, table, map[string]any{"encoding": encoding})
}

// Required wraps v so empty input fails with the required message before v
// sees it.
func Required(v Validator) Validator {
	if v == nil {
		return Base{Required: true}
	}
	if IsRequired(v) {
		return v
	}
	return requiredValidator{inner: v}
}

type requiredValidator struct {
	inner Validator
}

func (r requiredValidator) IsRequired() bool { return true }

func (r requiredValidator) ToInternal(raw any) (any, error) {
	if s, ok := raw.(string); ok && utf8.ValidString(s) && strings.TrimSpace(s) == "" {
		raw = ""
	}
	if IsEmpty(raw) {
		return raw, fail(KindRequired, nil, nil, nil)
	}
	return r.inner.ToInternal(raw)
}

func (r requiredValidator) FromInternal(value any) any { return r.inner.FromInternal(value) }

func (r requiredValidator) Check(value any, st State) error { return r.inner.Check(value, st) }

// Unwrap returns the wrapped validator.
func (r requiredValidator) Unwrap() Validator { return r.inner }

// Convert runs ToInternal followed by Check, the full leaf validation step.
func Convert(v Validator, raw any, st State) (any, error) {
	if v == nil {
		return raw, nil
	}
	value, err := v.ToInternal(raw)
	if err != nil {
		return value, err
	}
	if IsEmpty(value) {
		return value, nil
	}
	if err := v.Check(value, st); err != nil {
		return value, err
	}
	return value, nil
}
