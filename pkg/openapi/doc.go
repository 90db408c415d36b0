// Package openapi derives widget definitions from OpenAPI 3 documents. A
// document is parsed with kin-openapi, an operation's request body schema is
// selected and every property becomes a widget chosen through a
// widgets.Registry, with validators derived from the schema constraints.
package openapi
