package widgets

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formwidget/pkg/widget"
)

// Field describes a data field that needs a widget, as seen by importers
// such as the OpenAPI loader.
type Field struct {
	Name     string
	Type     string // string, integer, number, boolean, array, object
	Format   string
	Enum     []any
	Items    *Field
	Nested   []Field
	Multiple bool
	// Hints may name the widget explicitly under "widget".
	Hints map[string]string
}

// Matcher decides whether a widget should handle the supplied field.
type Matcher func(field Field) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry maps widget names to base definitions and selects widgets for
// fields through prioritised matchers. Higher priority wins; ties fall back
// to registration order.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]*widget.Definition
	rules       []rule
}

// NewRegistry constructs a registry with the built-in widgets and matchers
// registered.
func NewRegistry() *Registry {
	reg := &Registry{definitions: make(map[string]*widget.Definition)}
	reg.registerBuiltins()
	return reg
}

// Register adds a named base definition. Duplicate names return an error.
func (r *Registry) Register(name string, def *widget.Definition) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("widgets: widget name is required")
	}
	if def == nil {
		return fmt.Errorf("widgets: widget %q: definition is required", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.definitions[name]; exists {
		return fmt.Errorf("widgets: widget %q already registered", name)
	}
	r.definitions[name] = def
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(name string, def *widget.Definition) {
	if err := r.Register(name, def); err != nil {
		panic(err)
	}
}

// Get returns the base definition registered under name.
func (r *Registry) Get(name string) (*widget.Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("widgets: widget %q not found", name)
	}
	return def, nil
}

// Has reports whether a widget is registered.
func (r *Registry) Has(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

// List returns the registered widget names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Match adds a matcher selecting the widget name for fields.
func (r *Registry) Match(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{name: name, priority: priority, match: matcher, order: len(r.rules)})
}

// Resolve returns the widget name for a field. An explicit "widget" hint is
// honoured before matchers run.
func (r *Registry) Resolve(field Field) (string, bool) {
	if explicit := strings.TrimSpace(field.Hints["widget"]); explicit != "" {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name, true
		}
	}
	return "", false
}

// Builtins lists the library definitions by name.
func Builtins() map[string]*widget.Definition {
	return map[string]*widget.Definition{
		"TextField":           TextField,
		"PasswordField":       PasswordField,
		"HiddenField":         HiddenField,
		"CheckBox":            CheckBox,
		"TextArea":            TextArea,
		"LabelField":          LabelField,
		"Label":               Label,
		"Spacer":              Spacer,
		"Button":              Button,
		"SubmitButton":        SubmitButton,
		"ResetButton":         ResetButton,
		"SingleSelectField":   SingleSelectField,
		"MultipleSelectField": MultipleSelectField,
		"TableLayout":         TableLayout,
		"ListLayout":          ListLayout,
		"RowLayout":           RowLayout,
		"GridLayout":          GridLayout,
		"RepeatingField":      RepeatingField,
		"FieldSet":            FieldSet,
		"TableFieldSet":       TableFieldSet,
		"ListFieldSet":        ListFieldSet,
		"Form":                Form,
		"TableForm":           TableForm,
		"ListForm":            ListForm,
	}
}

func (r *Registry) registerBuiltins() {
	for name, def := range Builtins() {
		r.MustRegister(name, def)
	}

	r.Match("CheckBox", 90, func(field Field) bool {
		return field.Type == "boolean"
	})
	r.Match("MultipleSelectField", 80, func(field Field) bool {
		if field.Type != "array" {
			return false
		}
		return field.Items != nil && len(field.Items.Enum) > 0
	})
	r.Match("SingleSelectField", 70, func(field Field) bool {
		if field.Type == "array" || field.Type == "object" {
			return false
		}
		return len(field.Enum) > 0
	})
	r.Match("PasswordField", 60, func(field Field) bool {
		return field.Type == "string" && strings.EqualFold(field.Format, "password")
	})
	r.Match("TextArea", 50, func(field Field) bool {
		if field.Type != "string" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(field.Format)) {
		case "textarea", "markdown", "json", "yaml":
			return true
		}
		return false
	})
	r.Match("HiddenField", 40, func(field Field) bool {
		return strings.EqualFold(field.Format, "hidden")
	})
	r.Match("TextField", 0, func(field Field) bool {
		switch field.Type {
		case "string", "integer", "number", "":
			return true
		}
		return false
	})
}
