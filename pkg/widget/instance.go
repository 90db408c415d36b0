package widget

import (
	"sort"
	"strconv"
	"strings"
	"weak"

	"github.com/goliatone/go-formwidget/pkg/param"
	"github.com/goliatone/go-formwidget/pkg/validation"
)

type phase uint8

const (
	phaseUnprepared phase = iota
	phasePrepared
	phaseValidated
)

// Instance is one occurrence of a definition within a request. Parents own
// their children; a child only keeps a weak handle to its parent.
type Instance struct {
	def    *Definition
	parent weak.Pointer[Instance]
	root   bool
	// index is the repetition index, -1 outside repeating widgets.
	index int

	path       string
	compoundID string

	// Value is the datum displayed or validated. After a failed validation it
	// holds the raw submitted value.
	Value any
	// Error is set only after a failed validation.
	Error *validation.Error
	// Attrs are the root tag attributes computed by Prepare.
	Attrs map[string]string

	values      map[string]any
	children    []*Instance
	child       *Instance
	reps        map[int]*Instance
	repetitions int

	prepared  bool
	validated bool
}

// InstanceOption configures a new root instance.
type InstanceOption func(*Instance) error

// WithValue sets the value of the instance.
func WithValue(v any) InstanceOption {
	return func(in *Instance) error {
		in.Value = v
		return nil
	}
}

// WithParam overrides a request-local parameter.
func WithParam(name string, v any) InstanceOption {
	return func(in *Instance) error {
		return in.SetParam(name, v)
	}
}

// Instantiate creates the root instance of d for one request.
func (d *Definition) Instantiate(opts ...InstanceOption) (*Instance, error) {
	in, err := newInstance(d, nil, -1)
	if err != nil {
		return nil, err
	}
	in.root = true
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(in); err != nil {
			return nil, err
		}
	}
	return in, nil
}

// MustInstantiate is Instantiate that panics on error.
func (d *Definition) MustInstantiate(opts ...InstanceOption) *Instance {
	in, err := d.Instantiate(opts...)
	if err != nil {
		panic(err)
	}
	return in
}

func newInstance(d *Definition, parent *Instance, index int) (*Instance, error) {
	if d.kind == KindRepeating && d.child == nil {
		return nil, configErr(d.label(), CodeBadChild, "repeating widget has no child")
	}
	if d.kind == KindDisplayOnly && d.child == nil {
		return nil, configErr(d.label(), CodeBadChild, "display-only widget has no child")
	}

	in := &Instance{def: d, index: index}
	if parent != nil {
		in.parent = weak.Make(parent)
		in.path = parent.path
	}
	if v, ok := d.Default(ParamValue); ok {
		in.Value = v
	}

	elem := d.id
	if d.kind == KindDisplayOnly {
		elem = ""
	}
	if index >= 0 {
		elem = strconv.Itoa(index)
	}
	in.path = joinID(in.path, elem)
	in.compoundID = in.path

	switch d.kind {
	case KindCompound:
		in.children = make([]*Instance, 0, len(d.children))
		for _, cd := range d.children {
			c, err := newInstance(cd, in, -1)
			if err != nil {
				return nil, err
			}
			in.children = append(in.children, c)
		}
	case KindRepeating:
		in.reps = make(map[int]*Instance)
	case KindDisplayOnly:
		c, err := newInstance(d.child, in, -1)
		if err != nil {
			return nil, err
		}
		in.child = c
		in.compoundID = c.compoundID
	}
	return in, nil
}

func joinID(prefix, elem string) string {
	switch {
	case elem == "":
		return prefix
	case prefix == "":
		return elem
	default:
		return prefix + Separator + elem
	}
}

// Definition returns the definition the instance was created from.
func (in *Instance) Definition() *Definition { return in.def }

// ID returns the id element of the instance.
func (in *Instance) ID() string { return in.def.id }

// Index returns the repetition index, or -1.
func (in *Instance) Index() int { return in.index }

// CompoundID returns the ":"-joined path locating the instance in its tree.
func (in *Instance) CompoundID() string { return in.compoundID }

// Parent returns the parent instance while it is still alive.
func (in *Instance) Parent() *Instance {
	return in.parent.Value()
}

// IsRoot reports whether the instance was created by Instantiate.
func (in *Instance) IsRoot() bool { return in.root }

// ErrorMessage returns the validation message, or "".
func (in *Instance) ErrorMessage() string {
	if in.Error == nil {
		return ""
	}
	return in.Error.Message
}

// Prepared reports whether Prepare ran.
func (in *Instance) Prepared() bool { return in.prepared }

// Validated reports whether the instance took part in a validation pass.
func (in *Instance) Validated() bool { return in.validated }

// SetParam overrides a request-local parameter on this instance. The value
// parameter sets Value.
func (in *Instance) SetParam(name string, v any) error {
	p, ok := in.def.params.Get(name)
	if !ok {
		return configErr(in.def.label(), CodeUnknownParam, "unknown parameter %q", name)
	}
	if !p.RequestLocal {
		return configErr(in.def.label(), CodeFixedParam, "parameter %q is fixed at definition time", name)
	}
	if name == ParamValue {
		in.Value = v
		return nil
	}
	if in.values == nil {
		in.values = make(map[string]any)
	}
	in.values[name] = v
	return nil
}

// Param returns the effective value of a parameter: the instance override,
// the definition default, or the value of an ancestor's child parameter. A
// parameter that is still required fails with a ConfigError.
func (in *Instance) Param(name string) (any, error) {
	if name == ParamValue {
		return in.Value, nil
	}
	if v, ok := in.values[name]; ok {
		return v, nil
	}
	p, declared := in.def.params.Get(name)
	if declared && !param.IsRequired(p.Default) {
		return p.Default, nil
	}

	if parent := in.Parent(); parent != nil {
		for anc := parent; anc != nil; anc = anc.Parent() {
			ap, ok := anc.def.params.Get(name)
			if !ok || !ap.ChildParam {
				continue
			}
			if v, err := anc.Param(name); err == nil {
				return v, nil
			}
		}
	} else if v, ok := in.def.Default(name); ok {
		return v, nil
	}

	if declared {
		return nil, configErr(in.def.label(), CodeRequiredParam, "parameter %q is required", name)
	}
	return nil, configErr(in.def.label(), CodeUnknownParam, "unknown parameter %q", name)
}

// Params returns the effective value of every resolvable parameter.
func (in *Instance) Params() map[string]any {
	out := make(map[string]any, in.def.params.Len())
	for _, name := range in.def.params.Names() {
		if v, err := in.Param(name); err == nil {
			out[name] = v
		}
	}
	return out
}

// BoolParam returns a parameter interpreted as a boolean.
func (in *Instance) BoolParam(name string) bool {
	v, err := in.Param(name)
	if err != nil {
		return false
	}
	b, _ := asBool(v)
	return b
}

// StringParam returns a parameter interpreted as a string.
func (in *Instance) StringParam(name string) string {
	v, err := in.Param(name)
	if err != nil || v == nil {
		return ""
	}
	return toString(v)
}

// Children returns the child instances: compound children, materialised
// repetitions in index order, or the wrapped child.
func (in *Instance) Children() []*Instance {
	switch in.def.kind {
	case KindCompound:
		return append([]*Instance(nil), in.children...)
	case KindRepeating:
		idx := make([]int, 0, len(in.reps))
		for i := range in.reps {
			if in.prepared && i >= in.repetitions {
				continue
			}
			idx = append(idx, i)
		}
		sort.Ints(idx)
		out := make([]*Instance, 0, len(idx))
		for _, i := range idx {
			out = append(out, in.reps[i])
		}
		return out
	case KindDisplayOnly:
		return []*Instance{in.child}
	}
	return nil
}

// Child returns the direct child with the given id, looking through
// sub-compounds and display-only wrappers.
func (in *Instance) Child(id string) *Instance {
	switch in.def.kind {
	case KindDisplayOnly:
		return in.child.Child(id)
	case KindRepeating:
		if i, err := strconv.Atoi(id); err == nil && i >= 0 {
			return in.Rep(i)
		}
		return nil
	case KindCompound:
		for _, c := range in.children {
			if c.def.id == id {
				return c
			}
		}
		for _, c := range in.children {
			if c.def.IsSubCompound() {
				if found := c.Child(id); found != nil {
					return found
				}
			}
		}
	}
	return nil
}

// Find resolves a compound id relative to the root of the instance's tree.
// The instance itself must be that root.
func (in *Instance) Find(compoundID string) *Instance {
	if compoundID == in.compoundID {
		return in
	}
	rest := compoundID
	if in.compoundID != "" {
		var ok bool
		rest, ok = strings.CutPrefix(compoundID, in.compoundID+Separator)
		if !ok {
			return nil
		}
	}
	cur := in
	for _, elem := range strings.Split(rest, Separator) {
		cur = cur.Child(elem)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Rep returns the repetition at index i, creating it on first use. It returns
// nil for non-repeating instances.
func (in *Instance) Rep(i int) *Instance {
	if in.def.kind != KindRepeating || i < 0 {
		return nil
	}
	if rep, ok := in.reps[i]; ok {
		return rep
	}
	rep, err := newInstance(in.def.child, in, i)
	if err != nil {
		return nil
	}
	in.reps[i] = rep
	return rep
}

// Repetitions returns the repetition count computed by Prepare.
func (in *Instance) Repetitions() int { return in.repetitions }

// Walk visits the instance and its descendants depth first until fn returns
// false.
func (in *Instance) Walk(fn func(*Instance) bool) bool {
	if !fn(in) {
		return false
	}
	for _, c := range in.Children() {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Errors collects the messages of every failed node keyed by compound id.
func (in *Instance) Errors() map[string]string {
	out := make(map[string]string)
	in.Walk(func(n *Instance) bool {
		if n.Error != nil && !n.Error.IsChildError() && n.Error.Message != "" {
			id := n.compoundID
			if _, exists := out[id]; !exists {
				out[id] = n.Error.Message
			}
		}
		return true
	})
	return out
}
