package loader

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-formwidget/pkg/validation"
)

// ValidatorConfig declares a validator in a definition file.
type ValidatorConfig struct {
	Type     string            `json:"type" yaml:"type"`
	Required bool              `json:"required" yaml:"required"`
	Strip    bool              `json:"strip" yaml:"strip"`
	Encoding string            `json:"encoding" yaml:"encoding"`
	Messages map[string]string `json:"messages" yaml:"messages"`

	Min *float64 `json:"min" yaml:"min"`
	Max *float64 `json:"max" yaml:"max"`

	Values  []any  `json:"values" yaml:"values"`
	Pattern string `json:"pattern" yaml:"pattern"`
	Layout  string `json:"layout" yaml:"layout"`
	// After and Before bound date/time values, in Layout.
	After  string `json:"after" yaml:"after"`
	Before string `json:"before" yaml:"before"`

	Netblock bool `json:"netblock" yaml:"netblock"`

	Field1      string `json:"field1" yaml:"field1"`
	Field2      string `json:"field2" yaml:"field2"`
	Field1Label string `json:"field1_label" yaml:"field1_label"`

	Validators []ValidatorConfig `json:"validators" yaml:"validators"`
}

// Build converts the configuration into a validator.
func (c ValidatorConfig) Build() (validation.Validator, error) {
	base := validation.Base{
		Required: c.Required,
		Strip:    c.Strip,
		Encoding: c.Encoding,
		Messages: c.Messages,
	}
	bounds := validation.Range{Base: base, Min: c.Min, Max: c.Max}

	switch kind := strings.ToLower(strings.TrimSpace(c.Type)); kind {
	case "", "base":
		return base, nil
	case "length":
		v := validation.Length{Base: base}
		if c.Min != nil {
			v.Min = int(*c.Min)
		}
		if c.Max != nil {
			v.Max = int(*c.Max)
		}
		return v, nil
	case "range":
		return bounds, nil
	case "int", "integer":
		return validation.Int{Range: bounds}, nil
	case "number":
		return validation.Number{Range: bounds}, nil
	case "bool", "boolean":
		return validation.Bool{Base: base}, nil
	case "oneof", "one_of":
		return validation.OneOf{Base: base, Values: c.Values}, nil
	case "regex":
		v, err := validation.NewRegex(c.Pattern)
		if err != nil {
			return nil, err
		}
		v.Base = base
		return v, nil
	case "email":
		return validation.Email(base), nil
	case "url":
		return validation.URL(base), nil
	case "ip", "ipaddress":
		return validation.IPAddress{Base: base, AllowNetblock: c.Netblock}, nil
	case "uuid":
		return validation.UUID{Base: base}, nil
	case "date", "datetime":
		v := validation.DateTime{Base: base, Layout: c.Layout}
		if kind == "date" {
			v = validation.Date(base)
			if c.Layout != "" {
				v.Layout, v.LayoutLabel = c.Layout, ""
			}
		}
		var err error
		if v.Min, err = parseBound(v, c.After); err != nil {
			return nil, err
		}
		if v.Max, err = parseBound(v, c.Before); err != nil {
			return nil, err
		}
		return v, nil
	case "match":
		if c.Field1 == "" {
			return nil, fmt.Errorf("loader: match validator needs field1")
		}
		return validation.Match{Base: base, Field1: c.Field1, Field2: c.Field2, Field1Label: c.Field1Label}, nil
	case "blank":
		return validation.Blank{Base: base}, nil
	case "all", "any":
		inner := make([]validation.Validator, 0, len(c.Validators))
		for i, cfg := range c.Validators {
			v, err := cfg.Build()
			if err != nil {
				return nil, fmt.Errorf("loader: %s validator %d: %w", kind, i, err)
			}
			inner = append(inner, v)
		}
		if kind == "all" {
			return validation.All{Validators: inner}, nil
		}
		return validation.Any{Validators: inner}, nil
	default:
		return nil, fmt.Errorf("loader: unknown validator type %q", c.Type)
	}
}

func parseBound(v validation.DateTime, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	layout := v.Layout
	if layout == "" {
		layout = validation.DateTimeLayout
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return nil, fmt.Errorf("loader: date bound %q: %w", raw, err)
	}
	return &t, nil
}
