package widget

import "github.com/goliatone/go-formwidget/pkg/param"

// Parameter names shared by every kind.
const (
	ParamAttrs        = "attrs"
	ParamCSSClass     = "css_class"
	ParamValue        = "value"
	ParamRequired     = "required"
	ParamInlineEngine = "inline_engine_name"

	ParamRepetitions = "repetitions"
	ParamExtraReps   = "extra_reps"
	ParamMinReps     = "min_reps"
	ParamMaxReps     = "max_reps"
)

var baseParams = mustResolve("Widget", nil,
	param.New(ParamAttrs, "Extra attributes rendered on the root tag", param.Default(nil)),
	param.New(ParamCSSClass, "CSS class rendered on the root tag", param.Default("")),
	param.New(ParamValue, "Value displayed by the widget", param.Default(nil)),
	param.New(ParamRequired, "Reject empty input", param.Default(false)),
	param.New(ParamInlineEngine, "Engine used to render this widget's template", param.Default("")),
)

var compoundParams = mustResolve("CompoundWidget", []*param.Set{baseParams})

var repeatingParams = mustResolve("RepeatingWidget", []*param.Set{baseParams},
	param.New(ParamRepetitions, "Fixed number of repetitions; computed from the value when unset", param.Default(nil)),
	param.New(ParamExtraReps, "Blank repetitions appended after the value", param.Default(0)),
	param.New(ParamMinReps, "Lower bound on repetitions", param.Default(nil)),
	param.New(ParamMaxReps, "Upper bound on repetitions", param.Default(nil)),
)

var displayOnlyParams = mustResolve("DisplayOnlyWidget", []*param.Set{baseParams})

func mustResolve(owner string, bases []*param.Set, decls ...param.Decl) *param.Set {
	set, err := param.Resolve(owner, bases, decls...)
	if err != nil {
		panic(err)
	}
	return set
}

func kindParams(k Kind) *param.Set {
	switch k {
	case KindCompound:
		return compoundParams
	case KindRepeating:
		return repeatingParams
	case KindDisplayOnly:
		return displayOnlyParams
	default:
		return baseParams
	}
}
