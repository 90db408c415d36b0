package timezones

import (
	"strings"

	"github.com/goliatone/go-formwidget/pkg/validation"
	"github.com/goliatone/go-formwidget/pkg/widget"
	"github.com/goliatone/go-formwidget/pkg/widgets"
)

// WidgetName is the registry name of the time zone field.
const WidgetName = "TimezoneField"

// EmptySearchMode controls search results for an empty query.
type EmptySearchMode string

const (
	EmptySearchNone EmptySearchMode = "none"
	EmptySearchTop  EmptySearchMode = "top"
)

// Options configures the field and the search endpoint.
type Options struct {
	Zones           []string
	RoutePath       string
	SearchParam     string
	LimitParam      string
	DefaultLimit    int
	MaxLimit        int
	EmptySearchMode EmptySearchMode
}

// OptionFn mutates Options.
type OptionFn func(*Options)

// DefaultOptions returns the defaults used when no option is given.
func DefaultOptions() Options {
	return Options{
		RoutePath:       "/api/timezones",
		SearchParam:     "q",
		LimitParam:      "limit",
		DefaultLimit:    50,
		MaxLimit:        200,
		EmptySearchMode: EmptySearchNone,
	}
}

// NewOptions applies fns over the defaults and fills unset values.
func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn != nil {
			fn(&opts)
		}
	}
	def := DefaultOptions()
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = def.DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = def.MaxLimit
	}
	if opts.EmptySearchMode == "" {
		opts.EmptySearchMode = def.EmptySearchMode
	}
	if strings.TrimSpace(opts.RoutePath) == "" {
		opts.RoutePath = def.RoutePath
	}
	if opts.SearchParam == "" {
		opts.SearchParam = def.SearchParam
	}
	if opts.LimitParam == "" {
		opts.LimitParam = def.LimitParam
	}
	if opts.Zones != nil {
		opts.Zones = append([]string{}, opts.Zones...)
	}
	return opts
}

// WithZones replaces the embedded zone list.
func WithZones(zones []string) OptionFn {
	return func(o *Options) {
		o.Zones = zones
	}
}

// WithRoutePath sets the path of the search endpoint.
func WithRoutePath(path string) OptionFn {
	return func(o *Options) {
		o.RoutePath = path
	}
}

// WithSearchParam names the query parameter holding the search text.
func WithSearchParam(name string) OptionFn {
	return func(o *Options) {
		o.SearchParam = name
	}
}

// WithLimitParam names the query parameter holding the result limit.
func WithLimitParam(name string) OptionFn {
	return func(o *Options) {
		o.LimitParam = name
	}
}

// WithDefaultLimit sets the result count used when no limit is requested.
func WithDefaultLimit(limit int) OptionFn {
	return func(o *Options) {
		o.DefaultLimit = limit
	}
}

// WithMaxLimit caps requested limits.
func WithMaxLimit(limit int) OptionFn {
	return func(o *Options) {
		o.MaxLimit = limit
	}
}

// WithEmptySearchMode sets what an empty query returns.
func WithEmptySearchMode(mode EmptySearchMode) OptionFn {
	return func(o *Options) {
		o.EmptySearchMode = mode
	}
}

func (o Options) zones() ([]string, error) {
	if o.Zones != nil {
		return o.Zones, nil
	}
	return DefaultZones()
}

func (o Options) limit(requested int) int {
	switch {
	case requested < 0:
		return 0
	case requested == 0:
		requested = o.DefaultLimit
	}
	return min(requested, o.MaxLimit)
}

// Field returns a single select listing every zone, with a validator that
// rejects values outside the list.
func Field(fns ...OptionFn) (*widget.Definition, error) {
	zones, err := NewOptions(fns...).zones()
	if err != nil {
		return nil, err
	}
	options := make([]any, len(zones))
	allowed := make([]any, len(zones))
	for i, zone := range zones {
		options[i] = widgets.Option{Value: zone, Label: zone}
		allowed[i] = zone
	}
	return widgets.SingleSelectField.With(
		widget.Name(WidgetName),
		widget.Set(widgets.ParamOptions, options),
		widget.WithValidator(validation.OneOf{Values: allowed}),
	)
}

// Register adds the field to reg under WidgetName so definition files can
// refer to it, and selects it for string fields with the "timezone" format.
func Register(reg *widgets.Registry, fns ...OptionFn) error {
	def, err := Field(fns...)
	if err != nil {
		return err
	}
	if err := reg.Register(WidgetName, def); err != nil {
		return err
	}
	reg.Match(WidgetName, 65, func(field widgets.Field) bool {
		return field.Type == "string" && strings.EqualFold(field.Format, "timezone")
	})
	return nil
}
