package widget

import (
	"context"
	"sort"

	"github.com/goliatone/go-formwidget/pkg/request"
	"github.com/goliatone/go-formwidget/pkg/validation"
)

// Validate converts a flat submission keyed by compound id and validates the
// whole tree. It must be called on a root instance that was not prepared.
// On failure the returned value holds the partial result with
// validation.Invalid at failed positions, and the error is a
// *validation.Error. The tree stays in the request state of ctx for
// redisplay either way.
func (in *Instance) Validate(ctx context.Context, flat map[string]any) (any, error) {
	if !in.root {
		return nil, configErr(in.def.label(), CodeNotRoot, "validate must be called on a root instance")
	}
	if in.prepared || in.validated {
		return nil, configErr(in.def.label(), CodeAlreadyPrepared, "instance was already prepared or validated")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	st, _ := request.FromContext(ctx)
	msgs := st.Messages()
	defer st.SetValidated(in)

	tree, err := validation.Unflatten(flat)
	if err != nil {
		return nil, in.fail(validation.AsError(err), flat, msgs)
	}

	var value any = tree
	if id := in.def.id; id != "" {
		sub, ok := tree[id]
		if !ok {
			return nil, in.fail(validation.Corrupt("missing "+id), flat, msgs)
		}
		value = sub
	}
	return in.validate(value, validation.State{}, msgs)
}

func (in *Instance) fail(e *validation.Error, raw any, msgs *validation.Messages) *validation.Error {
	e.Widget = in
	e.Value = raw
	msgs.Apply(e)
	in.Value = raw
	in.Error = e
	in.validated = true
	return e
}

func (in *Instance) validate(value any, st validation.State, msgs *validation.Messages) (any, error) {
	in.validated = true
	switch in.def.kind {
	case KindCompound:
		return in.validateCompound(value, st, msgs)
	case KindRepeating:
		return in.validateRepeating(value, st, msgs)
	case KindDisplayOnly:
		out, err := in.child.validate(value, st, msgs)
		in.Value = in.child.Value
		if err != nil {
			wrapped := validation.ChildError(in, value)
			wrapped.Err = err
			return out, wrapped
		}
		return out, nil
	default:
		return in.validateLeaf(value, st, msgs)
	}
}

func (in *Instance) leafValidator() validation.Validator {
	v := in.def.validator
	if in.BoolParam(ParamRequired) {
		return validation.Required(v)
	}
	return v
}

func (in *Instance) validateLeaf(value any, st validation.State, msgs *validation.Messages) (any, error) {
	in.Value = value
	out, err := validation.Convert(in.leafValidator(), value, st)
	if err != nil {
		return validation.Invalid, in.fail(validation.AsError(err), value, msgs)
	}
	in.Value = out
	return out, nil
}

func (in *Instance) validateCompound(value any, st validation.State, msgs *validation.Messages) (any, error) {
	input, ok := asMap(value)
	if !ok && value != nil {
		return validation.Invalid, in.fail(validation.Corrupt("expected a mapping"), value, msgs)
	}

	result := make(map[string]any, len(in.children))
	failed := false
	for _, c := range in.children {
		childState := validation.State{Siblings: result}
		if c.def.IsSubCompound() {
			out, err := c.validate(input, childState, msgs)
			if m, ok := out.(map[string]any); ok {
				for k, v := range m {
					result[k] = v
				}
			}
			if err != nil {
				failed = true
			}
			continue
		}
		if c.def.id == "" {
			// Id-less leaves (labels, spacers) take no input.
			continue
		}
		out, err := c.validate(input[c.def.id], childState, msgs)
		if err != nil {
			failed = true
			out = validation.Invalid
		}
		result[c.def.id] = out
	}
	in.Value = result

	if v := in.def.validator; v != nil {
		converted, err := validation.Convert(v, result, st)
		switch {
		case err != nil:
			failed = true
			e := validation.AsError(err)
			msgs.Apply(e)
			if len(e.Children) == 0 {
				e.Widget = in
				e.Value = value
				in.Error = e
				break
			}
			keys := make([]string, 0, len(e.Children))
			for key := range e.Children {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			resolved := false
			for _, key := range keys {
				msg := e.Children[key]
				c := in.Child(key)
				if c == nil {
					continue
				}
				resolved = true
				c.Error = &validation.Error{Kind: e.Kind, Message: msg, Params: e.Params, Widget: c, Value: c.Value}
				result[key] = validation.Invalid
			}
			if !resolved {
				// No child to carry the message; keep it on the compound.
				e.Message = e.Children[keys[0]]
				e.Widget = in
				e.Value = value
				in.Error = e
			}
		default:
			if m, ok := converted.(map[string]any); ok {
				result = m
				in.Value = result
			}
		}
	}

	if failed {
		return result, in.childFailure(value, msgs)
	}
	return result, nil
}

func (in *Instance) validateRepeating(value any, st validation.State, msgs *validation.Messages) (any, error) {
	list, ok := toList(value)
	if !ok {
		return validation.Invalid, in.fail(validation.Corrupt("expected a list"), value, msgs)
	}

	result := make([]any, len(list))
	failed := false
	for i, item := range list {
		rep := in.Rep(i)
		out, err := rep.validate(item, validation.State{}, msgs)
		if err != nil {
			failed = true
			out = validation.Invalid
		}
		result[i] = out
	}
	in.Value = result

	if v := in.def.validator; v != nil {
		converted, err := validation.Convert(v, result, st)
		switch {
		case err != nil:
			failed = true
			e := validation.AsError(err)
			msgs.Apply(e)
			e.Widget = in
			e.Value = value
			in.Error = e
		default:
			if l, ok := converted.([]any); ok {
				result = l
				in.Value = result
			}
		}
	}

	if failed {
		return result, in.childFailure(value, msgs)
	}
	return result, nil
}

// childFailure returns the aggregate failure of a compound or repeating node.
// A failure raised by the node's own validator is returned as is.
func (in *Instance) childFailure(raw any, msgs *validation.Messages) *validation.Error {
	if in.Error != nil {
		return in.Error
	}
	e := validation.ChildError(in, raw)
	msgs.Apply(e)
	return e
}
