// Package widget implements the component model: immutable widget
// definitions composed into trees, and the per-request instances that
// prepare, validate and display them.
package widget

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/goliatone/go-formwidget/pkg/param"
	"github.com/goliatone/go-formwidget/pkg/resources"
	"github.com/goliatone/go-formwidget/pkg/validation"
)

// Kind selects the composition behaviour of a definition.
type Kind int

const (
	// KindLeaf holds a single value and has no children.
	KindLeaf Kind = iota
	// KindCompound has a fixed set of named children.
	KindCompound
	// KindRepeating instantiates one child template per list element.
	KindRepeating
	// KindDisplayOnly wraps one child and adopts its identity.
	KindDisplayOnly
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindCompound:
		return "compound"
	case KindRepeating:
		return "repeating"
	case KindDisplayOnly:
		return "displayonly"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Separator joins id elements into compound ids.
const Separator = validation.Separator

var idPattern = regexp.MustCompile(`^[A-Za-z][\w\-.]*$`)

// ValidID reports whether id is a legal id element.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

var sequence atomic.Uint64

// PrepareFunc runs at the end of an instance's own preparation.
type PrepareFunc func(ctx context.Context, in *Instance) error

// Definition is the immutable, class-level configuration of a widget. It is
// safe for concurrent use by any number of requests. Refine a definition with
// With, which returns a new Definition and leaves the receiver untouched.
type Definition struct {
	kind      Kind
	typeName  string
	name      string
	id        string
	template  string
	validator validation.Validator
	params    *param.Set
	children  []*Definition
	child     *Definition
	resources []resources.Resource
	hooks     []PrepareFunc
	parent    *Definition
	seq       uint64
}

// Option configures a definition under construction.
type Option func(*builder)

type builder struct {
	id           *string
	template     *string
	validator    validation.Validator
	validatorSet bool
	decls        []param.Decl
	mixins       []*param.Set
	children     []*Definition
	childrenSet  bool
	members      map[string]*Definition
	child        *Definition
	resources    []resources.Resource
	name         string
	hooks        []PrepareFunc
	errs         []error
}

// ID sets the id element of the widget. An empty id is always legal and
// contributes no compound id segment.
func ID(id string) Option {
	return func(b *builder) {
		id = strings.TrimSpace(id)
		b.id = &id
	}
}

// Template sets the template reference. A reference of the form
// "engine:path" pins the engine.
func Template(ref string) Option {
	return func(b *builder) {
		ref = strings.TrimSpace(ref)
		b.template = &ref
	}
}

// WithValidator sets the validator. Passing nil clears an inherited one.
func WithValidator(v validation.Validator) Option {
	return func(b *builder) {
		b.validator = v
		b.validatorSet = true
	}
}

// Params adds parameter declarations.
func Params(decls ...param.Decl) Option {
	return func(b *builder) {
		b.decls = append(b.decls, decls...)
	}
}

// Set overrides the default value of a parameter.
func Set(name string, value any) Option {
	return Params(param.Value(name, value))
}

// Mixin adds the parameters of other definitions as further bases, after the
// definition's own lineage.
func Mixin(defs ...*Definition) Option {
	return func(b *builder) {
		for _, d := range defs {
			if d == nil {
				b.errs = append(b.errs, configErr("", CodeBadChild, "mixin is not a widget definition"))
				continue
			}
			b.mixins = append(b.mixins, d.params)
		}
	}
}

// Children declares the ordered children of a compound. On a display-only
// wrapper the children are handed to the wrapped child.
func Children(defs ...*Definition) Option {
	return func(b *builder) {
		b.children = append([]*Definition(nil), defs...)
		b.childrenSet = true
	}
}

// Members contributes children by name. Members without an id take their name
// as id and are ordered by definition sequence. They are ignored when an
// explicit Children list is given.
func Members(members map[string]*Definition) Option {
	return func(b *builder) {
		if b.members == nil {
			b.members = make(map[string]*Definition, len(members))
		}
		for name, def := range members {
			b.members[name] = def
		}
	}
}

// Child sets the single child of a repeating or display-only widget.
func Child(def *Definition) Option {
	return func(b *builder) {
		if def == nil {
			b.errs = append(b.errs, configErr("", CodeBadChild, "child is not a widget definition"))
			return
		}
		b.child = def
	}
}

// Resources declares the resources registered when the widget is prepared.
func Resources(res ...resources.Resource) Option {
	return func(b *builder) {
		b.resources = append(b.resources, res...)
	}
}

// Name sets the definition name reported as parameter owner.
func Name(name string) Option {
	return func(b *builder) {
		b.name = strings.TrimSpace(name)
	}
}

// OnPrepare appends a preparation hook.
func OnPrepare(fn PrepareFunc) Option {
	return func(b *builder) {
		if fn != nil {
			b.hooks = append(b.hooks, fn)
		}
	}
}

// Define creates a definition of the given kind.
func Define(kind Kind, typeName string, opts ...Option) (*Definition, error) {
	if kind < KindLeaf || kind > KindDisplayOnly {
		return nil, configErr(typeName, CodeBadChild, "unknown widget kind %s", kind)
	}
	seed := &Definition{
		kind:     kind,
		typeName: strings.TrimSpace(typeName),
		params:   kindParams(kind),
	}
	return seed.build(opts...)
}

// Must panics when err is not nil. It is meant for package-level definitions.
func Must(d *Definition, err error) *Definition {
	if err != nil {
		panic(err)
	}
	return d
}

// With returns a refined copy of d.
func (d *Definition) With(opts ...Option) (*Definition, error) {
	if d == nil {
		return nil, configErr("", CodeBadChild, "refining a nil definition")
	}
	return d.build(opts...)
}

// MustWith is With that panics on error.
func (d *Definition) MustWith(opts ...Option) *Definition {
	return Must(d.With(opts...))
}

func (d *Definition) build(opts ...Option) (*Definition, error) {
	var b builder
	for _, opt := range opts {
		if opt != nil {
			opt(&b)
		}
	}

	out := &Definition{
		kind:      d.kind,
		typeName:  d.typeName,
		name:      d.name,
		id:        d.id,
		template:  d.template,
		validator: d.validator,
		children:  d.children,
		child:     d.child,
		resources: d.resources,
		hooks:     d.hooks,
		seq:       sequence.Add(1),
	}
	if b.name != "" {
		out.name = b.name
	}
	label := out.label()
	if b.id != nil {
		label = *b.id
	}

	if len(b.errs) > 0 {
		err := b.errs[0].(*ConfigError)
		err.Widget = label
		return nil, err
	}

	if b.id != nil {
		if *b.id != "" && !ValidID(*b.id) {
			return nil, configErr(label, CodeInvalidID, "invalid id %q", *b.id)
		}
		out.id = *b.id
	}
	if b.template != nil {
		out.template = *b.template
	}
	if b.validatorSet {
		out.validator = b.validator
	}
	if len(b.resources) > 0 {
		out.resources = append(append([]resources.Resource(nil), d.resources...), b.resources...)
	}
	if len(b.hooks) > 0 {
		out.hooks = append(append([]PrepareFunc(nil), d.hooks...), b.hooks...)
	}

	owner := out.name
	if owner == "" {
		owner = out.typeName
	}
	bases := append([]*param.Set{d.params}, b.mixins...)
	params, err := param.Resolve(owner, bases, b.decls...)
	if err != nil {
		return nil, &ConfigError{Widget: label, Code: CodeBadChild, Message: "resolving parameters", Err: err}
	}
	out.params = params

	switch out.kind {
	case KindLeaf:
		if b.childrenSet || len(b.members) > 0 || b.child != nil {
			return nil, configErr(label, CodeBadChild, "leaf widgets take no children")
		}
	case KindCompound:
		if b.child != nil {
			return nil, configErr(label, CodeBadChild, "compound widgets declare children, not a single child")
		}
		if err := out.composeChildren(&b, label); err != nil {
			return nil, err
		}
	case KindRepeating:
		if err := out.composeRepeated(&b, label); err != nil {
			return nil, err
		}
	case KindDisplayOnly:
		if err := out.composeWrapped(&b, label, b.id != nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *Definition) composeChildren(b *builder, label string) error {
	var children []*Definition
	switch {
	case b.childrenSet:
		children = b.children
	case len(b.members) > 0:
		names := make([]string, 0, len(b.members))
		for name := range b.members {
			names = append(names, name)
		}
		collected := make([]*Definition, 0, len(names))
		for _, name := range names {
			member := b.members[name]
			if member == nil {
				return configErr(label, CodeBadChild, "member %q is not a widget definition", name)
			}
			if member.id == "" {
				named, err := member.With(ID(name))
				if err != nil {
					return err
				}
				named.seq = member.seq
				member = named
			}
			collected = append(collected, member)
		}
		sort.SliceStable(collected, func(i, j int) bool { return collected[i].seq < collected[j].seq })
		children = collected
	default:
		children = d.children
	}

	seen := make(map[string]struct{}, len(children))
	bound := make([]*Definition, 0, len(children))
	for i, child := range children {
		if child == nil {
			return configErr(label, CodeBadChild, "child %d is not a widget definition", i)
		}
		for _, id := range child.namespaceIDs() {
			if _, dup := seen[id]; dup {
				return configErr(label, CodeDuplicateID, "duplicate child id %q", id)
			}
			seen[id] = struct{}{}
		}
		c, err := child.bind(d, nil)
		if err != nil {
			return err
		}
		bound = append(bound, c)
	}
	d.children = bound
	return nil
}

func (d *Definition) composeRepeated(b *builder, label string) error {
	child := d.child
	switch {
	case b.child != nil:
		child = b.child
	case b.childrenSet:
		if len(b.children) != 1 || b.children[0] == nil {
			return configErr(label, CodeBadChild, "repeating widgets take exactly one child")
		}
		child = b.children[0]
	}
	if len(b.members) > 0 {
		return configErr(label, CodeBadChild, "repeating widgets take exactly one child")
	}
	if child == nil {
		// Abstract repeating definitions get their child later.
		return nil
	}
	if child.id != "" {
		return configErr(label, CodeBadChild, "repeated child must not have an id, got %q", child.id)
	}
	bound, err := child.bind(d, nil)
	if err != nil {
		return err
	}
	d.child = bound
	d.children = nil
	return nil
}

func (d *Definition) composeWrapped(b *builder, label string, idChanged bool) error {
	child := d.child
	if b.child != nil {
		child = b.child
	}
	if child == nil {
		if b.childrenSet || len(b.members) > 0 {
			return configErr(label, CodeBadChild, "display-only widgets need a child before children can be given")
		}
		return nil
	}

	var refine []Option
	if b.childrenSet {
		refine = append(refine, Children(b.children...))
	}
	if len(b.members) > 0 {
		refine = append(refine, Members(b.members))
	}

	switch {
	case b.child != nil && d.id == "" && child.id != "":
		d.id = child.id
	case b.child != nil && d.id != "" && child.id != "" && d.id != child.id:
		return configErr(label, CodeIDConflict, "wrapper id %q conflicts with child id %q", d.id, child.id)
	case d.id != child.id && (b.child != nil || idChanged):
		refine = append(refine, ID(d.id))
	}

	if len(refine) > 0 {
		refined, err := child.With(refine...)
		if err != nil {
			return err
		}
		child = refined
	}
	bound, err := child.bind(d, nil)
	if err != nil {
		return err
	}
	d.child = bound
	d.children = nil
	return nil
}

// bind copies the subtree rooted at d with its parent set to parent.
func (d *Definition) bind(parent *Definition, path map[*Definition]struct{}) (*Definition, error) {
	if path == nil {
		path = make(map[*Definition]struct{})
	}
	if _, cycle := path[d]; cycle {
		return nil, configErr(d.label(), CodeParentCycle, "definition is its own ancestor")
	}
	for p := parent; p != nil; p = p.parent {
		if p == d {
			return nil, configErr(d.label(), CodeParentCycle, "definition is its own ancestor")
		}
	}
	path[d] = struct{}{}
	defer delete(path, d)

	cp := new(Definition)
	*cp = *d
	cp.parent = parent
	if len(d.children) > 0 {
		cp.children = make([]*Definition, len(d.children))
		for i, c := range d.children {
			bc, err := c.bind(cp, path)
			if err != nil {
				return nil, err
			}
			cp.children[i] = bc
		}
	}
	if d.child != nil {
		bc, err := d.child.bind(cp, path)
		if err != nil {
			return nil, err
		}
		cp.child = bc
	}
	return cp, nil
}

func (d *Definition) label() string {
	switch {
	case d.id != "":
		return d.id
	case d.name != "":
		return d.name
	default:
		return d.typeName
	}
}

// Kind returns the composition kind.
func (d *Definition) Kind() Kind { return d.kind }

// TypeName returns the widget type, such as "TextField".
func (d *Definition) TypeName() string { return d.typeName }

// Name returns the definition name, falling back to the type name.
func (d *Definition) Name() string {
	if d.name != "" {
		return d.name
	}
	return d.typeName
}

// ID returns the id element, which may be empty.
func (d *Definition) ID() string { return d.id }

// TemplateRef returns the template reference.
func (d *Definition) TemplateRef() string { return d.template }

// Validator returns the configured validator.
func (d *Definition) Validator() validation.Validator { return d.validator }

// Params returns the resolved parameter set.
func (d *Definition) Params() *param.Set { return d.params }

// Parent returns the definition this one is bound into.
func (d *Definition) Parent() *Definition { return d.parent }

// Sequence returns the definition-time sequence number.
func (d *Definition) Sequence() uint64 { return d.seq }

// Resources returns the declared resources.
func (d *Definition) Resources() []resources.Resource {
	return append([]resources.Resource(nil), d.resources...)
}

// Children returns the bound children of a compound.
func (d *Definition) Children() []*Definition {
	return append([]*Definition(nil), d.children...)
}

// Child returns the bound child of a repeating or display-only widget.
func (d *Definition) Child() *Definition { return d.child }

// IsSubCompound reports whether d is a compound child without an id, whose
// children merge into the parent's namespace. Display-only wrappers take the
// answer of the widget they wrap.
func (d *Definition) IsSubCompound() bool {
	if d.id != "" {
		return false
	}
	switch d.kind {
	case KindLeaf:
		return false
	case KindDisplayOnly:
		return d.child != nil && d.child.IsSubCompound()
	}
	return true
}

// namespaceIDs lists the keys d occupies in its parent's result map.
func (d *Definition) namespaceIDs() []string {
	if d.id != "" {
		return []string{d.id}
	}
	switch d.kind {
	case KindCompound:
		var ids []string
		for _, c := range d.children {
			ids = append(ids, c.namespaceIDs()...)
		}
		return ids
	case KindDisplayOnly:
		if d.child != nil {
			return d.child.namespaceIDs()
		}
	}
	return nil
}

// CompoundID joins the id elements of d and its ancestors. Repetition indices
// are only known per instance and are not part of it.
func (d *Definition) CompoundID() string {
	if d.kind == KindDisplayOnly && d.child != nil {
		return d.child.CompoundID()
	}
	var parts []string
	for cur := d; cur != nil; cur = cur.parent {
		if cur.kind == KindDisplayOnly && cur.child != nil {
			continue
		}
		if cur.id != "" {
			parts = append(parts, cur.id)
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, Separator)
}

// Default returns the definition-level value of a parameter, inheriting child
// parameters from ancestors when d does not set it.
func (d *Definition) Default(name string) (any, bool) {
	if p, ok := d.params.Get(name); ok && !param.IsRequired(p.Default) {
		return p.Default, true
	}
	for anc := d.parent; anc != nil; anc = anc.parent {
		p, ok := anc.params.Get(name)
		if !ok || !p.ChildParam {
			continue
		}
		if v, ok := anc.Default(name); ok {
			return v, true
		}
	}
	return nil, false
}
