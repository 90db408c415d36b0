package widget

import (
	"context"
	"sort"
	"strings"

	"github.com/goliatone/go-formwidget/pkg/param"
	"github.com/goliatone/go-formwidget/pkg/request"
)

// Prepare readies the instance tree for display: it checks required
// parameters, computes attributes, registers resources into the request
// state found in ctx, distributes the value to children and sizes repeating
// widgets. Calling it again is a no-op. Instances that went through
// validation keep their values and errors.
func (in *Instance) Prepare(ctx context.Context) error {
	if in.prepared {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for _, name := range in.def.params.Names() {
		if _, err := in.Param(name); err != nil {
			return err
		}
	}

	attrs, err := in.buildAttrs()
	if err != nil {
		return err
	}
	in.Attrs = attrs

	if st, ok := request.FromContext(ctx); ok {
		for _, res := range in.def.resources {
			st.AddResource(res)
		}
	}

	switch in.def.kind {
	case KindCompound:
		for _, c := range in.children {
			if !in.validated {
				if c.def.IsSubCompound() {
					c.Value = in.Value
				} else {
					c.Value = childValue(in.Value, c.def.id)
				}
			}
			if err := c.Prepare(ctx); err != nil {
				return err
			}
		}
	case KindRepeating:
		list, _ := toList(in.Value)
		count, err := in.computeRepetitions(len(list))
		if err != nil {
			return err
		}
		in.repetitions = count
		for i := 0; i < count; i++ {
			rep := in.Rep(i)
			if !in.validated {
				rep.Value = nil
				if i < len(list) {
					rep.Value = list[i]
				}
			}
			if err := rep.Prepare(ctx); err != nil {
				return err
			}
		}
	case KindDisplayOnly:
		if !in.validated {
			in.child.Value = in.Value
		}
		if err := in.child.Prepare(ctx); err != nil {
			return err
		}
	}

	for _, hook := range in.def.hooks {
		if err := hook(ctx, in); err != nil {
			return err
		}
	}
	in.prepared = true
	return nil
}

// computeRepetitions applies the repetition policy: a fixed count wins,
// otherwise the value length plus extra slots, clamped by max and then min.
func (in *Instance) computeRepetitions(length int) (int, error) {
	fixed, err := in.Param(ParamRepetitions)
	if err != nil {
		return 0, err
	}
	if n, ok := asInt(fixed); ok && fixed != nil {
		return max(n, 0), nil
	}

	extra := 0
	if v, err := in.Param(ParamExtraReps); err == nil {
		if n, ok := asInt(v); ok {
			extra = n
		}
	}
	count := length + extra
	if v, err := in.Param(ParamMaxReps); err == nil {
		if n, ok := asInt(v); ok && v != nil && count > n {
			count = n
		}
	}
	if v, err := in.Param(ParamMinReps); err == nil {
		if n, ok := asInt(v); ok && v != nil && count < n {
			count = n
		}
	}
	return max(count, 0), nil
}

func (in *Instance) buildAttrs() (map[string]string, error) {
	attrs := make(map[string]string)

	for _, p := range in.def.params.Attributes() {
		v, err := in.Param(p.Name)
		if err != nil {
			return nil, err
		}
		setAttr(attrs, p, v)
	}

	if raw, err := in.Param(ParamAttrs); err == nil && raw != nil {
		if m, ok := asMap(raw); ok {
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				setAttr(attrs, &param.Param{Name: k}, m[k])
			}
		}
	}

	if class := strings.TrimSpace(in.StringParam(ParamCSSClass)); class != "" {
		if existing := attrs["class"]; existing != "" {
			class = existing + " " + class
		}
		attrs["class"] = class
	}
	if in.compoundID != "" {
		attrs["id"] = in.compoundID
	}
	return attrs, nil
}

func setAttr(attrs map[string]string, p *param.Param, v any) {
	switch val := v.(type) {
	case nil:
		return
	case bool:
		if val {
			attrs[p.Name] = p.Name
		}
		return
	}
	if s := toString(v); s != "" {
		attrs[p.Name] = s
	}
}
