// Package widgets is the built-in widget library: form fields, buttons,
// labels, layouts, field sets and forms rendered with the pongo2 templates
// embedded in this package.
//
// Every exported definition is a base to refine with With:
//
//	name := widgets.TextField.MustWith(widget.ID("name"), widget.Set(widget.ParamRequired, true))
package widgets

import (
	"embed"
	"io/fs"
	"strings"
	"unicode"

	"github.com/goliatone/go-formwidget/pkg/resources"
)

// Module is the resource module name of the library's static files.
const Module = "formwidget"

//go:embed templates
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

// Templates returns the library templates. Template references are relative
// to its root, for example "forms/input_field".
func Templates() fs.FS {
	sub, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Static returns the static files served under Module.
func Static() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Stylesheet is the default stylesheet declared by layouts and forms.
var Stylesheet = resources.CSSLink(Module, "forms.css")

// Mount registers the library's static files on reg.
func Mount(reg *resources.Registry) {
	reg.Mount(Module, Static())
}

// LabelFor derives a label from a widget id: "first_name" becomes
// "First Name".
func LabelFor(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
