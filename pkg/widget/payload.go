package widget

import (
	"strings"

	"github.com/goliatone/go-formwidget/pkg/validation"
)

// KindServer tags errors applied from a backend error payload.
const KindServer = "server"

// ErrorMapping splits an error payload into widget-level messages keyed by
// compound id and form-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MapErrors normalises a backend error payload against the instance tree.
// Keys may be compound ids, dotted paths or JSON pointers ("/body/a/0/b").
// Keys that resolve to no widget become form-level messages so nothing is
// lost.
func (in *Instance) MapErrors(payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	for raw, messages := range payload {
		messages = normalizeMessages(messages)
		if len(messages) == 0 {
			continue
		}
		target := in.resolveErrorPath(raw)
		if target == nil {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		id := target.CompoundID()
		mapping.Fields[id] = append(mapping.Fields[id], messages...)
	}
	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// ApplyErrors maps payload with MapErrors and sets the resulting messages as
// the error of each matched instance. It returns the form-level messages.
func (in *Instance) ApplyErrors(payload map[string][]string) []string {
	mapping := in.MapErrors(payload)
	for id, messages := range mapping.Fields {
		target := in.Find(id)
		if target == nil {
			continue
		}
		target.Error = &validation.Error{
			Kind:    KindServer,
			Message: strings.Join(normalizeMessages(messages), " "),
			Widget:  target,
			Value:   target.Value,
		}
	}
	return mapping.Form
}

// resolveErrorPath finds the deepest instance matching a prefix of the path.
func (in *Instance) resolveErrorPath(raw string) *Instance {
	if isFormLevelKey(raw) {
		return nil
	}
	segments := parsePathSegments(raw)
	if len(segments) == 0 {
		return nil
	}

	var best *Instance
	bestDepth := 0
	for _, variant := range segmentVariants(segments, in.compoundID) {
		for end := len(variant); end > bestDepth; end-- {
			if found := in.Find(strings.Join(variant[:end], Separator)); found != nil && found != in {
				best, bestDepth = found, end
				break
			}
		}
	}
	return best
}

func segmentVariants(segments []string, rootID string) [][]string {
	var variants [][]string
	seen := make(map[string]struct{}, 4)
	add := func(candidate []string) {
		if len(candidate) == 0 {
			return
		}
		key := strings.Join(candidate, Separator)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		variants = append(variants, candidate)
	}

	unwrapped := dropWrapperSegments(segments)
	for _, v := range [][]string{segments, unwrapped} {
		if rootID != "" && v[0] != rootID {
			add(append(strings.Split(rootID, Separator), v...))
		}
		add(v)
	}
	return variants
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimPrefix(clean, "#/")
	clean = strings.TrimPrefix(clean, "$.")
	clean = strings.TrimLeft(clean, "#/.$")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	clean = strings.Trim(clean, "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/' || string(r) == Separator
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		out = append(out, part)
	}
	return out
}

var wrapperSegments = map[string]struct{}{
	"body":       {},
	"request":    {},
	"payload":    {},
	"data":       {},
	"attributes": {},
}

func dropWrapperSegments(segments []string) []string {
	out := segments
	for len(out) > 1 {
		if _, ok := wrapperSegments[strings.ToLower(out[0])]; !ok {
			break
		}
		out = out[1:]
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
