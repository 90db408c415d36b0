package template

import (
	"io"
)

// TemplateRenderer mirrors the github.com/goliatone/go-template engine
// contract.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}

// Engine is a named TemplateRenderer that can report whether it is able to
// locate a template, which render dispatch uses to pick between engines.
type Engine interface {
	TemplateRenderer
	Name() string
	Lookup(name string) bool
}
