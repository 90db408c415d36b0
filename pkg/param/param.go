// Package param implements the declarative parameter model used by widget
// definitions: typed, named configuration slots that are inherited and
// selectively overridden along a definition hierarchy.
package param

import (
	"errors"
	"fmt"
	"strings"
)

// Required is the default value of a parameter that must be supplied before
// its first use.
var Required = required{}

type required struct{}

func (required) String() string { return "<required>" }

// IsRequired reports whether v is the Required sentinel.
func IsRequired(v any) bool {
	_, ok := v.(required)
	return ok
}

// ErrEmptyName is returned when a declaration carries no parameter name.
var ErrEmptyName = errors.New("param: parameter name is required")

type field uint8

const (
	fieldDescription field = 1 << iota
	fieldDefault
	fieldRequestLocal
	fieldAttribute
	fieldChildParam
)

// Param describes one named configuration slot on a definition.
type Param struct {
	Name        string
	Description string
	// Default holds the definition-level value, or Required.
	Default any
	// RequestLocal parameters may be overridden per instance.
	RequestLocal bool
	// Attribute parameters are copied into the rendered root tag attributes.
	Attribute bool
	// ChildParam parameters propagate their value to children that do not
	// define it themselves.
	ChildParam bool
	// DefinedOn names the definition that introduced or last overrode it.
	DefinedOn string

	base *Param
}

// Derives reports whether p was produced by overriding q, directly or through
// a chain of overrides.
func (p *Param) Derives(q *Param) bool {
	if p == nil || q == nil {
		return false
	}
	for cur := p.base; cur != nil; cur = cur.base {
		if cur == q {
			return true
		}
	}
	return false
}

// Option configures a declaration created with New.
type Option func(*Decl)

// Default sets the default value of a declared parameter.
func Default(v any) Option {
	return func(d *Decl) {
		d.param.Default = v
		d.set |= fieldDefault
	}
}

// RequestLocal controls whether instances may override the value.
func RequestLocal(v bool) Option {
	return func(d *Decl) {
		d.param.RequestLocal = v
		d.set |= fieldRequestLocal
	}
}

// Attribute marks the parameter as rendered into the root tag attributes.
func Attribute(v bool) Option {
	return func(d *Decl) {
		d.param.Attribute = v
		d.set |= fieldAttribute
	}
}

// ChildParam marks the parameter as propagating to children.
func ChildParam(v bool) Option {
	return func(d *Decl) {
		d.param.ChildParam = v
		d.set |= fieldChildParam
	}
}

// Decl is a single parameter declaration made by a definition. It is either a
// full descriptor (New) or a bare value override (Value).
type Decl struct {
	param     Param
	set       field
	valueOnly bool
}

// Name returns the declared parameter name.
func (d Decl) Name() string { return d.param.Name }

// IsValue reports whether the declaration only overrides a default value.
func (d Decl) IsValue() bool { return d.valueOnly }

// ValueOf returns the value carried by the declaration, if any.
func (d Decl) ValueOf() (any, bool) {
	if d.set&fieldDefault == 0 {
		return nil, false
	}
	return d.param.Default, true
}

// New declares a parameter. When the name already exists on a base the
// declaration only replaces the fields passed explicitly; everything else is
// kept from the inherited descriptor.
func New(name, description string, opts ...Option) Decl {
	d := Decl{param: Param{
		Name:         strings.TrimSpace(name),
		Description:  description,
		Default:      Required,
		RequestLocal: true,
	}}
	if description != "" {
		d.set |= fieldDescription
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&d)
		}
	}
	return d
}

// Value overrides only the default value of a parameter.
func Value(name string, v any) Decl {
	return Decl{
		param: Param{
			Name:         strings.TrimSpace(name),
			Default:      v,
			RequestLocal: true,
		},
		set:       fieldDefault,
		valueOnly: true,
	}
}

func (d Decl) apply(base *Param, owner string) *Param {
	cp := *base
	cp.base = base
	cp.DefinedOn = owner
	if d.set&fieldDescription != 0 {
		cp.Description = d.param.Description
	}
	if d.set&fieldDefault != 0 {
		cp.Default = d.param.Default
	}
	if d.set&fieldRequestLocal != 0 {
		cp.RequestLocal = d.param.RequestLocal
	}
	if d.set&fieldAttribute != 0 {
		cp.Attribute = d.param.Attribute
	}
	if d.set&fieldChildParam != 0 {
		cp.ChildParam = d.param.ChildParam
	}
	return &cp
}

func (d Decl) fresh(owner string) *Param {
	p := d.param
	p.DefinedOn = owner
	return &p
}

// Set is the resolved, immutable parameter map of one definition.
type Set struct {
	owner  string
	names  []string
	params map[string]*Param
}

// Owner names the definition the set was resolved for.
func (s *Set) Owner() string {
	if s == nil {
		return ""
	}
	return s.owner
}

// Get returns the descriptor for name.
func (s *Set) Get(name string) (*Param, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.params[name]
	return p, ok
}

// Default returns the resolved default of name.
func (s *Set) Default(name string) (any, bool) {
	p, ok := s.Get(name)
	if !ok {
		return nil, false
	}
	return p.Default, true
}

// Names lists parameter names in first-declaration order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// Len reports the number of resolved parameters.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Attributes returns the descriptors rendered as attributes, in order.
func (s *Set) Attributes() []*Param {
	return s.filter(func(p *Param) bool { return p.Attribute })
}

// ChildParams returns the descriptors that propagate to children.
func (s *Set) ChildParams() []*Param {
	return s.filter(func(p *Param) bool { return p.ChildParam })
}

func (s *Set) filter(keep func(*Param) bool) []*Param {
	if s == nil {
		return nil
	}
	var out []*Param
	for _, name := range s.names {
		if p := s.params[name]; keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// With resolves a new set for owner that inherits from s.
func (s *Set) With(owner string, decls ...Decl) (*Set, error) {
	return Resolve(owner, []*Set{s}, decls...)
}

// Resolve aggregates parameters for a definition named owner. Bases are listed
// nearest first; when two bases carry different descriptors for one name the
// more derived descriptor wins, otherwise the leftmost base wins. A descriptor
// that is not overridden is shared by reference with its base.
func Resolve(owner string, bases []*Set, decls ...Decl) (*Set, error) {
	out := &Set{
		owner:  owner,
		params: make(map[string]*Param),
	}

	for _, base := range bases {
		if base == nil {
			continue
		}
		for _, name := range base.names {
			candidate := base.params[name]
			existing, ok := out.params[name]
			if !ok {
				out.names = append(out.names, name)
				out.params[name] = candidate
				continue
			}
			if existing != candidate && candidate.Derives(existing) {
				out.params[name] = candidate
			}
		}
	}

	seen := make(map[string]struct{}, len(decls))
	for _, decl := range decls {
		name := decl.param.Name
		if name == "" {
			return nil, fmt.Errorf("param: %s: %w", owner, ErrEmptyName)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("param: %s: parameter %q declared twice", owner, name)
		}
		seen[name] = struct{}{}

		existing, ok := out.params[name]
		switch {
		case ok:
			out.params[name] = decl.apply(existing, owner)
		default:
			out.names = append(out.names, name)
			out.params[name] = decl.fresh(owner)
		}
	}

	return out, nil
}
