// Package resources describes the JavaScript and CSS a widget needs, serves
// registered files and injects the resources a request collected into HTML.
package resources

import (
	"fmt"
	"html"
	"strings"
)

// Kind distinguishes script and stylesheet resources.
type Kind string

const (
	KindJS  Kind = "js"
	KindCSS Kind = "css"
)

// Location decides where a resource is injected in the page.
type Location string

const (
	LocationHead       Location = "head"
	LocationBodyBottom Location = "bodybottom"
)

// Resource is a link to a registered file, an external URL or inline source.
type Resource struct {
	Kind     Kind
	Location Location
	// Module and Path identify a file served by a Registry.
	Module string
	Path   string
	// URL is an external location used as-is.
	URL string
	// Source is inline content.
	Source string
}

// JSLink references a script file registered under module.
func JSLink(module, path string) Resource {
	return Resource{Kind: KindJS, Location: LocationBodyBottom, Module: module, Path: path}
}

// CSSLink references a stylesheet registered under module.
func CSSLink(module, path string) Resource {
	return Resource{Kind: KindCSS, Location: LocationHead, Module: module, Path: path}
}

// ExternalJS references a script hosted elsewhere.
func ExternalJS(url string) Resource {
	return Resource{Kind: KindJS, Location: LocationBodyBottom, URL: url}
}

// ExternalCSS references a stylesheet hosted elsewhere.
func ExternalCSS(url string) Resource {
	return Resource{Kind: KindCSS, Location: LocationHead, URL: url}
}

// JSSource embeds inline script source.
func JSSource(src string) Resource {
	return Resource{Kind: KindJS, Location: LocationBodyBottom, Source: src}
}

// CSSSource embeds an inline stylesheet.
func CSSSource(src string) Resource {
	return Resource{Kind: KindCSS, Location: LocationHead, Source: src}
}

// In returns a copy of r injected at loc.
func (r Resource) In(loc Location) Resource {
	r.Location = loc
	return r
}

// Key identifies the resource for de-duplication within a request.
func (r Resource) Key() string {
	switch {
	case r.Source != "":
		return fmt.Sprintf("%s:inline:%s", r.Kind, r.Source)
	case r.URL != "":
		return fmt.Sprintf("%s:url:%s", r.Kind, r.URL)
	default:
		return fmt.Sprintf("%s:%s/%s", r.Kind, r.Module, strings.TrimPrefix(r.Path, "/"))
	}
}

// IsLink reports whether the resource needs a registered URL.
func (r Resource) IsLink() bool {
	return r.Source == "" && r.URL == ""
}

// Tag renders the HTML element for the resource. href is used for links.
func (r Resource) Tag(href string) string {
	if r.URL != "" {
		href = r.URL
	}
	switch r.Kind {
	case KindCSS:
		if r.Source != "" {
			return "<style type=\"text/css\">" + r.Source + "</style>"
		}
		return "<link rel=\"stylesheet\" type=\"text/css\" href=\"" + html.EscapeString(href) + "\" media=\"all\"/>"
	default:
		if r.Source != "" {
			return "<script type=\"text/javascript\">" + r.Source + "</script>"
		}
		return "<script type=\"text/javascript\" src=\"" + html.EscapeString(href) + "\"></script>"
	}
}
