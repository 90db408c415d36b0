package openapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formwidget/pkg/validation"
	"github.com/goliatone/go-formwidget/pkg/widget"
	"github.com/goliatone/go-formwidget/pkg/widgets"
)

// ExtensionKey is the schema extension holding widget hints: widget, label,
// placeholder, help_text and order.
const ExtensionKey = "x-formwidget"

// Builder turns request body schemas into widget definitions.
type Builder struct {
	registry *widgets.Registry
	form     *widget.Definition
	fieldset *widget.Definition
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithRegistry selects the registry used to resolve property widgets.
func WithRegistry(reg *widgets.Registry) BuilderOption {
	return func(b *Builder) {
		if reg != nil {
			b.registry = reg
		}
	}
}

// WithFormDefinition replaces the TableForm used as the root of built forms.
func WithFormDefinition(def *widget.Definition) BuilderOption {
	return func(b *Builder) {
		if def != nil {
			b.form = def
		}
	}
}

// WithFieldSetDefinition replaces the TableFieldSet used for nested objects.
func WithFieldSetDefinition(def *widget.Definition) BuilderOption {
	return func(b *Builder) {
		if def != nil {
			b.fieldset = def
		}
	}
}

// NewBuilder constructs a Builder with the default registry.
func NewBuilder(options ...BuilderOption) *Builder {
	b := &Builder{form: widgets.TableForm, fieldset: widgets.TableFieldSet}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}
	if b.registry == nil {
		b.registry = widgets.NewRegistry()
	}
	return b
}

// Form builds a form for the request body of the operation. The form id is
// the operation id when that is a valid widget id.
func (b *Builder) Form(doc *Document, operationID string) (*widget.Definition, error) {
	if doc == nil {
		return nil, fmt.Errorf("openapi: document is required")
	}
	op, ok := doc.Operation(operationID)
	if !ok {
		return nil, fmt.Errorf("openapi: operation %q not found", operationID)
	}
	if !op.HasBody() {
		return nil, fmt.Errorf("openapi: operation %q has no request body schema", op.ID)
	}

	fields, err := b.Fields(op.schema.Value)
	if err != nil {
		return nil, fmt.Errorf("openapi: operation %q: %w", op.ID, err)
	}

	method := "post"
	if op.Method == http.MethodGet {
		method = "get"
	}
	opts := []widget.Option{
		widget.Set(widgets.ParamAction, op.Path),
		widget.Set(widgets.ParamMethod, method),
		widget.Children(fields...),
	}
	if op.ContentType == "multipart/form-data" {
		opts = append(opts, widget.Set(widgets.ParamEnctype, op.ContentType))
	}
	if widget.ValidID(op.ID) {
		opts = append([]widget.Option{widget.ID(op.ID)}, opts...)
	}
	if op.Summary != "" {
		opts = append(opts, widget.Set(widgets.ParamHelpMsg, op.Summary))
	}
	return b.form.With(opts...)
}

// Fields builds one definition per property of an object schema. Properties
// are ordered by their "order" hint, then by name.
func (b *Builder) Fields(schema *openapi3.Schema) ([]*widget.Definition, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema is required")
	}
	if !isObject(schema) {
		return nil, fmt.Errorf("schema of type %q is not an object", schemaType(schema))
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		oi, oj := order(schema.Properties[names[i]]), order(schema.Properties[names[j]])
		if oi != oj {
			return oi < oj
		}
		return names[i] < names[j]
	})

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	defs := make([]*widget.Definition, 0, len(names))
	for _, name := range names {
		def, err := b.property(name, schema.Properties[name], required[name])
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (b *Builder) property(name string, ref *openapi3.SchemaRef, required bool) (*widget.Definition, error) {
	if !widget.ValidID(name) {
		return nil, fmt.Errorf("property %q is not a valid widget id", name)
	}
	if ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("property %q: unresolved schema", name)
	}
	s := ref.Value
	hints := extensionHints(s)

	if hints["widget"] == "" {
		switch {
		case isObject(s):
			return b.object(name, s)
		case schemaType(s) == "array" && s.Items != nil && s.Items.Value != nil:
			items := s.Items.Value
			if isObject(items) {
				return b.grid(name, s, items)
			}
			if len(items.Enum) == 0 {
				return b.repeating(name, s, items)
			}
		}
	}
	return b.leaf(name, s, required, hints)
}

func (b *Builder) object(name string, s *openapi3.Schema) (*widget.Definition, error) {
	children, err := b.Fields(s)
	if err != nil {
		return nil, fmt.Errorf("property %q: %w", name, err)
	}
	legend := s.Title
	if legend == "" {
		legend = widgets.LabelFor(name)
	}
	return b.fieldset.With(
		widget.ID(name),
		widget.Set(widgets.ParamLegend, legend),
		widget.Children(children...),
	)
}

func (b *Builder) grid(name string, s, items *openapi3.Schema) (*widget.Definition, error) {
	columns, err := b.Fields(items)
	if err != nil {
		return nil, fmt.Errorf("property %q: %w", name, err)
	}
	grid, err := widgets.Grid(name, columns...)
	if err != nil {
		return nil, err
	}
	return grid.With(listOptions(s)...)
}

func (b *Builder) repeating(name string, s, items *openapi3.Schema) (*widget.Definition, error) {
	child, err := b.leaf("", items, false, extensionHints(items))
	if err != nil {
		return nil, fmt.Errorf("property %q: %w", name, err)
	}
	opts := append([]widget.Option{widget.ID(name), widget.Child(child)}, listOptions(s)...)
	return widgets.RepeatingField.With(opts...)
}

func listOptions(s *openapi3.Schema) []widget.Option {
	var opts []widget.Option
	if s.Title != "" {
		opts = append(opts, widget.Set(widgets.ParamLabel, s.Title))
	}
	if s.Description != "" {
		opts = append(opts, widget.Set(widgets.ParamHelpText, s.Description))
	}
	if s.MinItems > 0 {
		opts = append(opts, widget.Set(widget.ParamMinReps, int(s.MinItems)))
	}
	if s.MaxItems != nil {
		opts = append(opts, widget.Set(widget.ParamMaxReps, int(*s.MaxItems)))
	}
	return opts
}

func (b *Builder) leaf(name string, s *openapi3.Schema, required bool, hints map[string]string) (*widget.Definition, error) {
	field := toField(name, s, hints)
	widgetName, ok := b.registry.Resolve(field)
	if !ok {
		return nil, fmt.Errorf("property %q: no widget for type %q", name, field.Type)
	}
	base, err := b.registry.Get(widgetName)
	if err != nil {
		return nil, fmt.Errorf("property %q: %w", name, err)
	}

	var opts []widget.Option
	if name != "" {
		opts = append(opts, widget.ID(name))
	}
	declared := func(param string) bool {
		_, ok := base.Params().Get(param)
		return ok
	}
	set := func(param string, v any) {
		if declared(param) {
			opts = append(opts, widget.Set(param, v))
		}
	}

	if label := firstNonEmpty(hints["label"], s.Title); label != "" {
		set(widgets.ParamLabel, label)
	}
	if help := firstNonEmpty(hints["help_text"], s.Description); help != "" {
		set(widgets.ParamHelpText, help)
	}
	if placeholder := hints["placeholder"]; placeholder != "" {
		set(widgets.ParamPlaceholder, placeholder)
	}
	if s.Default != nil {
		set(widgets.ParamDefault, s.Default)
	}
	if s.ReadOnly {
		set(widgets.ParamReadOnly, true)
	}
	if s.MaxLength != nil {
		set(widgets.ParamMaxLength, int(*s.MaxLength))
	}
	if enum := enumOf(s); len(enum) > 0 {
		set(widgets.ParamOptions, enum)
	}
	if required {
		opts = append(opts, widget.Set(widget.ParamRequired, true))
	}

	v, err := validatorFor(s)
	if err != nil {
		return nil, fmt.Errorf("property %q: %w", name, err)
	}
	if v != nil {
		opts = append(opts, widget.WithValidator(v))
	}
	return base.With(opts...)
}

// validatorFor maps schema constraints to validators: the type conversion
// first, then the constraints checked against the converted value.
func validatorFor(s *openapi3.Schema) (validation.Validator, error) {
	var chain []validation.Validator

	switch schemaType(s) {
	case "integer":
		chain = append(chain, validation.Int{Range: validation.Range{Min: s.Min, Max: s.Max}})
	case "number":
		chain = append(chain, validation.Number{Range: validation.Range{Min: s.Min, Max: s.Max}})
	case "boolean":
		chain = append(chain, validation.Bool{})
	case "array":
		if s.MinItems > 0 || s.MaxItems != nil {
			chain = append(chain, lengthValidator(s.MinItems, s.MaxItems))
		}
	case "string", "":
		if s.MinLength > 0 || s.MaxLength != nil {
			chain = append(chain, lengthValidator(s.MinLength, s.MaxLength))
		}
		if s.Pattern != "" {
			re, err := validation.NewRegex(s.Pattern)
			if err != nil {
				return nil, err
			}
			chain = append(chain, re)
		}
		if v := formatValidator(s.Format); v != nil {
			chain = append(chain, v)
		}
	}

	if enum := enumOf(s); len(enum) > 0 {
		chain = append(chain, validation.OneOf{Values: enum})
	}

	switch len(chain) {
	case 0:
		return nil, nil
	case 1:
		return chain[0], nil
	default:
		return validation.All{Validators: chain}, nil
	}
}

func lengthValidator(minimum uint64, maximum *uint64) validation.Length {
	v := validation.Length{Min: int(minimum)}
	if maximum != nil {
		v.Max = int(*maximum)
	}
	return v
}

func formatValidator(format string) validation.Validator {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "email":
		return validation.Email(validation.Base{})
	case "uri", "url":
		return validation.URL(validation.Base{})
	case "uuid":
		return validation.UUID{}
	case "ipv4", "ipv6", "ip":
		return validation.IPAddress{}
	case "date":
		return validation.Date(validation.Base{})
	case "date-time":
		return validation.DateTime{Layout: time.RFC3339, LayoutLabel: "RFC 3339"}
	}
	return nil
}

func toField(name string, s *openapi3.Schema, hints map[string]string) widgets.Field {
	field := widgets.Field{
		Name:   name,
		Type:   schemaType(s),
		Format: s.Format,
		Enum:   s.Enum,
		Hints:  hints,
	}
	if field.Type == "array" && s.Items != nil && s.Items.Value != nil {
		items := toField("", s.Items.Value, nil)
		field.Items = &items
		field.Multiple = true
	}
	return field
}

// enumOf returns the allowed values of a scalar or of the items of a list.
func enumOf(s *openapi3.Schema) []any {
	if len(s.Enum) > 0 {
		return append([]any(nil), s.Enum...)
	}
	if schemaType(s) == "array" && s.Items != nil && s.Items.Value != nil && len(s.Items.Value.Enum) > 0 {
		return append([]any(nil), s.Items.Value.Enum...)
	}
	return nil
}

func isObject(s *openapi3.Schema) bool {
	t := schemaType(s)
	return t == "object" || (t == "" && len(s.Properties) > 0)
}

// schemaType returns the first non-null type of the schema.
func schemaType(s *openapi3.Schema) string {
	if s == nil || s.Type == nil {
		return ""
	}
	for _, t := range s.Type.Slice() {
		if t != "null" {
			return t
		}
	}
	return ""
}

func extensionHints(s *openapi3.Schema) map[string]string {
	raw, ok := s.Extensions[ExtensionKey].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	hints := make(map[string]string, len(raw))
	for key, value := range raw {
		if value == nil {
			continue
		}
		hints[key] = strings.TrimSpace(fmt.Sprint(value))
	}
	return hints
}

// unordered sorts properties without an order hint last.
const unordered = int(^uint(0) >> 1)

func order(ref *openapi3.SchemaRef) int {
	if ref == nil || ref.Value == nil {
		return unordered
	}
	raw, ok := ref.Value.Extensions[ExtensionKey].(map[string]any)
	if !ok {
		return unordered
	}
	switch n := raw["order"].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return unordered
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
