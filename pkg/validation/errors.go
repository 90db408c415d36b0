package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Failure kinds shared by every validator.
const (
	KindRequired   = "required"
	KindDecode     = "decode"
	KindCorrupt    = "corrupt"
	KindChildError = "childerror"
	KindInvalid    = "invalid"
)

// Node is the part of a widget instance a validation error refers to.
type Node interface {
	CompoundID() string
}

// Invalid marks a position whose value failed validation. Compound and
// repeating results keep it in place so keys and indices stay aligned with the
// submitted input.
var Invalid = invalid{}

type invalid struct{}

func (invalid) String() string { return "Invalid" }

func (invalid) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// IsInvalid reports whether v is the Invalid placeholder.
func IsInvalid(v any) bool {
	_, ok := v.(invalid)
	return ok
}

// Error is a recoverable, per-request validation failure.
type Error struct {
	Kind    string
	Message string
	// Params feed $name substitution when a message override is applied.
	Params map[string]any
	// Widget is the instance that failed, set by the widget tree.
	Widget Node
	// Value is the raw submitted value, kept for redisplay.
	Value any
	// Children maps child keys to messages raised by a compound validator.
	Children map[string]string
	// Err is the child failure a wrapper re-tagged.
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	if e == nil {
		return "validation: <nil>"
	}
	var b strings.Builder
	b.WriteString("validation: ")
	if e.Widget != nil {
		if id := e.Widget.CompoundID(); id != "" {
			b.WriteString(id)
			b.WriteString(": ")
		}
	}
	msg := e.Message
	if msg == "" {
		msg = e.Kind
	}
	b.WriteString(msg)
	if len(e.Children) > 0 {
		keys := make([]string, 0, len(e.Children))
		for key := range e.Children {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, key := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("%s: %s", key, e.Children[key]))
		}
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap exposes the wrapped child failure.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsChildError reports whether e only signals failing children.
func (e *Error) IsChildError() bool {
	return e != nil && e.Kind == KindChildError
}

// AsError extracts a *Error from err, wrapping foreign errors as KindInvalid so
// callers always get a message to display.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var verr *Error
	if errors.As(err, &verr) {
		return verr
	}
	return &Error{Kind: KindInvalid, Message: strings.TrimSpace(err.Error())}
}

// ChildError builds the aggregate failure raised after every child of a
// compound or repeating node has been attempted. It carries no message.
func ChildError(node Node, raw any) *Error {
	return &Error{
		Kind:    KindChildError,
		Message: lookup(KindChildError, nil),
		Widget:  node,
		Value:   raw,
	}
}

// Corrupt builds the failure reported for a tampered or malformed submission.
func Corrupt(detail string) *Error {
	return &Error{
		Kind:    KindCorrupt,
		Message: lookup(KindCorrupt, nil),
		Params:  map[string]any{"detail": detail},
	}
}
