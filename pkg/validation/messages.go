package validation

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

type messageTable map[string]string

var baseMessages = messageTable{
	KindRequired:   "Enter a value",
	KindDecode:     "Received in the wrong character set; should be $encoding",
	KindCorrupt:    "Form submission received corrupted; please try again",
	KindChildError: "",
	KindInvalid:    "Invalid value",
}

// lookup finds the template for kind, consulting tables in order and falling
// back to the base table.
func lookup(kind string, tables ...messageTable) string {
	for _, table := range tables {
		if msg, ok := table[kind]; ok {
			return msg
		}
	}
	if msg, ok := baseMessages[kind]; ok {
		return msg
	}
	return kind
}

// Substitute replaces $name placeholders with values from params. Unknown
// placeholders are left untouched.
func Substitute(template string, params map[string]any) string {
	if !strings.Contains(template, "$") {
		return template
	}
	return os.Expand(template, func(name string) string {
		value, ok := params[name]
		if !ok {
			return "$" + name
		}
		return formatParam(value)
	})
}

func formatParam(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case *float64:
		if val == nil {
			return ""
		}
		return strconv.FormatFloat(*val, 'f', -1, 64)
	case *int:
		if val == nil {
			return ""
		}
		return strconv.Itoa(*val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// fail builds an Error for kind using the instance table first, then the
// validator's own table.
func fail(kind string, custom map[string]string, table messageTable, params map[string]any) *Error {
	msg := lookup(kind, messageTable(custom), table)
	return &Error{
		Kind:    kind,
		Message: Substitute(msg, params),
		Params:  params,
	}
}

// Messages is the global message override table supplied by the hosting
// configuration. It is consulted before any validator table.
type Messages struct {
	mu        sync.RWMutex
	overrides map[string]string
}

// NewMessages builds an override table keyed by failure kind.
func NewMessages(overrides map[string]string) *Messages {
	m := &Messages{overrides: make(map[string]string, len(overrides))}
	for kind, text := range overrides {
		if kind = strings.TrimSpace(kind); kind != "" {
			m.overrides[kind] = text
		}
	}
	return m
}

// Set overrides the message for kind.
func (m *Messages) Set(kind, text string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.overrides == nil {
		m.overrides = make(map[string]string)
	}
	m.overrides[strings.TrimSpace(kind)] = text
}

// Lookup returns the override for kind.
func (m *Messages) Lookup(kind string) (string, bool) {
	if m == nil {
		return "", false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	text, ok := m.overrides[kind]
	return text, ok
}

// All returns a copy of the overrides keyed by kind.
func (m *Messages) All() map[string]string {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.overrides))
	for kind, text := range m.overrides {
		out[kind] = text
	}
	return out
}

// Apply rewrites the message of e when an override exists for its kind.
func (m *Messages) Apply(e *Error) {
	if m == nil || e == nil {
		return
	}
	text, ok := m.Lookup(e.Kind)
	if !ok {
		return
	}
	msg := Substitute(text, e.Params)
	if len(e.Children) == 0 {
		e.Message = msg
		return
	}
	for key := range e.Children {
		e.Children[key] = msg
	}
}
