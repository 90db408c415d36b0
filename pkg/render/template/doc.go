// Package template defines the engine contract shared by the interchangeable
// markup backends. Sub-packages provide pongo2 and html/template engines.
package template
