package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Form content types in order of preference.
var contentTypes = []string{
	"application/x-www-form-urlencoded",
	"multipart/form-data",
	"application/json",
}

// Document is a parsed and validated OpenAPI document.
type Document struct {
	location   string
	spec       *openapi3.T
	operations map[string]Operation
}

// Operation is a document operation that may accept a request body.
type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	Description string
	// ContentType is the selected request body media type; empty when the
	// operation takes no body.
	ContentType string

	schema *openapi3.SchemaRef
}

// HasBody reports whether the operation declares a request body schema.
func (o Operation) HasBody() bool {
	return o.schema != nil && o.schema.Value != nil
}

// Parse loads a JSON or YAML document, validates it and indexes its
// operations. Operations without an operationId are keyed as
// "<method> <path>" in lower case method.
func Parse(ctx context.Context, data []byte, location string) (*Document, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(data) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load %s: %w", location, err)
	}
	if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("openapi: validate %s: %w", location, err)
	}

	doc := &Document{location: location, spec: spec, operations: make(map[string]Operation)}
	if spec.Paths != nil {
		for path, item := range spec.Paths.Map() {
			if item == nil {
				continue
			}
			for method, op := range item.Operations() {
				doc.collect(method, path, op)
			}
		}
	}
	return doc, nil
}

func (d *Document) collect(method, path string, op *openapi3.Operation) {
	if op == nil {
		return
	}
	id := op.OperationID
	if id == "" {
		id = strings.ToLower(method) + " " + path
	}
	entry := Operation{
		ID:          id,
		Method:      strings.ToUpper(method),
		Path:        path,
		Summary:     op.Summary,
		Description: op.Description,
	}
	if op.RequestBody != nil && op.RequestBody.Value != nil {
		entry.ContentType, entry.schema = requestSchema(op.RequestBody.Value.Content)
	}
	d.operations[id] = entry
}

func requestSchema(content openapi3.Content) (string, *openapi3.SchemaRef) {
	for _, mediaType := range contentTypes {
		if mt, ok := content[mediaType]; ok && mt != nil && mt.Schema != nil {
			return mediaType, mt.Schema
		}
	}
	keys := make([]string, 0, len(content))
	for key := range content {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if mt := content[key]; mt != nil && mt.Schema != nil {
			return key, mt.Schema
		}
	}
	return "", nil
}

// Location returns where the document was read from.
func (d *Document) Location() string { return d.location }

// Title returns the document info title.
func (d *Document) Title() string {
	if d.spec.Info == nil {
		return ""
	}
	return d.spec.Info.Title
}

// Operations lists the operations sorted by id.
func (d *Document) Operations() []Operation {
	out := make([]Operation, 0, len(d.operations))
	for _, op := range d.operations {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Operation returns the operation registered under id.
func (d *Document) Operation(id string) (Operation, bool) {
	op, ok := d.operations[strings.TrimSpace(id)]
	return op, ok
}
