package widgets

import (
	"context"

	"github.com/goliatone/go-formwidget/pkg/param"
	"github.com/goliatone/go-formwidget/pkg/widget"
)

// Layout parameter names.
const (
	ParamColumns    = "columns"
	ParamLegend     = "legend"
	ParamAction     = "action"
	ParamMethod     = "method"
	ParamEnctype    = "enctype"
	ParamSubmitText = "submit_text"
	ParamResetText  = "reset_text"
	ParamHelpMsg    = "help_msg"
)

// BaseLayout is the abstract base of compound layouts. Children are rendered
// in rows with their label, help text and error message.
var BaseLayout = widget.Must(widget.Define(widget.KindCompound, "BaseLayout",
	widget.Params(
		param.New(ParamLabel, "Label shown when the layout is nested in another layout", param.Default("")),
		param.New(ParamHelpText, "Help text shown when nested", param.Default("")),
	),
	widget.Resources(Stylesheet),
	widget.OnPrepare(prepareField),
))

// TableLayout arranges children in a two column table.
var TableLayout = BaseLayout.MustWith(
	widget.Name("TableLayout"),
	widget.Template("forms/table_layout"),
)

// ListLayout arranges children in an unordered list.
var ListLayout = BaseLayout.MustWith(
	widget.Name("ListLayout"),
	widget.Template("forms/list_layout"),
)

// RowLayout renders its children as the cells of one table row. It is the
// repeated child of GridLayout.
var RowLayout = BaseLayout.MustWith(
	widget.Name("RowLayout"),
	widget.Template("forms/row_layout"),
)

// GridLayout repeats a RowLayout for every item of a list value, plus one
// blank row for new input. Headings come from the row's children.
var GridLayout = widget.Must(widget.Define(widget.KindRepeating, "GridLayout",
	widget.Template("forms/grid_layout"),
	widget.Set(widget.ParamExtraReps, 1),
	widget.Params(
		param.New(ParamColumns, "Column headings; derived from the row children when empty", param.Default(nil)),
		param.New(ParamLabel, "Label shown when nested", param.Default("")),
		param.New(ParamHelpText, "Help text shown when nested", param.Default("")),
	),
	widget.Resources(Stylesheet),
	widget.OnPrepare(prepareField),
	widget.OnPrepare(prepareGrid),
))

// Grid builds a GridLayout whose rows hold fields.
func Grid(id string, fields ...*widget.Definition) (*widget.Definition, error) {
	row, err := RowLayout.With(widget.Children(fields...))
	if err != nil {
		return nil, err
	}
	return GridLayout.With(widget.ID(id), widget.Child(row))
}

func prepareGrid(_ context.Context, in *widget.Instance) error {
	if cols, _ := in.Param(ParamColumns); cols != nil {
		return nil
	}
	row := in.Definition().Child()
	if row == nil {
		return nil
	}
	var columns []string
	for _, c := range row.Children() {
		label := ""
		if v, ok := c.Params().Default(ParamLabel); ok {
			label = text(v)
		}
		if label == "" {
			label = LabelFor(c.ID())
		}
		columns = append(columns, label)
	}
	return in.SetParam(ParamColumns, columns)
}

// RepeatingField repeats a single id-less field for every item of a list
// value, plus one blank item for new input.
var RepeatingField = widget.Must(widget.Define(widget.KindRepeating, "RepeatingField",
	widget.Template("forms/repeating_field"),
	widget.Set(widget.ParamExtraReps, 1),
	widget.Params(
		param.New(ParamLabel, "Label shown when nested", param.Default("")),
		param.New(ParamHelpText, "Help text shown when nested", param.Default("")),
	),
	widget.Child(TextField),
	widget.Resources(Stylesheet),
	widget.OnPrepare(prepareField),
))

// FieldSet wraps a layout in a <fieldset> with a legend.
var FieldSet = widget.Must(widget.Define(widget.KindDisplayOnly, "FieldSet",
	widget.Template("forms/fieldset"),
	widget.Params(
		param.New(ParamLegend, "Legend text", param.Default("")),
		param.New(ParamLabel, "Label shown when nested", param.Default("")),
		param.New(ParamHelpText, "Help text shown when nested", param.Default("")),
	),
	widget.Child(TableLayout),
	widget.OnPrepare(wrapperID("fieldset")),
))

// Form wraps a layout in a <form> with submit and optional reset buttons.
var Form = widget.Must(widget.Define(widget.KindDisplayOnly, "Form",
	widget.Template("forms/form"),
	widget.Params(
		param.New(ParamAction, "Submission URL", param.Default(""), param.Attribute(true)),
		param.New(ParamMethod, "Submission method", param.Default("post"), param.Attribute(true)),
		param.New(ParamEnctype, "Submission encoding", param.Default(nil), param.Attribute(true)),
		param.New(ParamSubmitText, "Submit button caption; no button when empty", param.Default("Save")),
		param.New(ParamResetText, "Reset button caption; no button when empty", param.Default("")),
		param.New(ParamHelpMsg, "Message shown above the fields", param.Default("")),
	),
	widget.Set(widget.ParamCSSClass, "formwidget"),
	widget.Child(TableLayout),
	widget.Resources(Stylesheet),
	widget.OnPrepare(wrapperID("form")),
))

// TableForm is a Form around a TableLayout.
var TableForm = Form.MustWith(widget.Name("TableForm"), widget.Child(TableLayout))

// ListForm is a Form around a ListLayout.
var ListForm = Form.MustWith(widget.Name("ListForm"), widget.Child(ListLayout))

// TableFieldSet is a FieldSet around a TableLayout.
var TableFieldSet = FieldSet.MustWith(widget.Name("TableFieldSet"), widget.Child(TableLayout))

// ListFieldSet is a FieldSet around a ListLayout.
var ListFieldSet = FieldSet.MustWith(widget.Name("ListFieldSet"), widget.Child(ListLayout))

// wrapperID suffixes the wrapper's element id so it does not clash with the
// wrapped layout, which carries the same compound id.
func wrapperID(suffix string) widget.PrepareFunc {
	return func(_ context.Context, in *widget.Instance) error {
		if id := in.CompoundID(); id != "" {
			in.Attrs["id"] = id + Separator + suffix
		}
		return nil
	}
}

// Separator is the compound id separator.
const Separator = widget.Separator
