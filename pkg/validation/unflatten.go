package validation

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Separator joins compound-id segments and flat submission keys.
const Separator = ":"

// Unflatten turns a flat key/value submission into nested maps, splitting keys
// on Separator. A level whose keys are all numeric becomes a list ordered by
// ascending key. A key that is both a leaf and a prefix of another key is
// reported as a corrupt submission.
func Unflatten(flat map[string]any) (map[string]any, error) {
	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	root := make(map[string]any)
	for _, key := range keys {
		segments := strings.Split(key, Separator)
		node := root
		for i, segment := range segments[:len(segments)-1] {
			next, exists := node[segment]
			if !exists {
				child := make(map[string]any)
				node[segment] = child
				node = child
				continue
			}
			child, ok := next.(map[string]any)
			if !ok {
				return nil, Corrupt(fmt.Sprintf("key %q conflicts with %q", key, strings.Join(segments[:i+1], Separator)))
			}
			node = child
		}
		last := segments[len(segments)-1]
		if existing, exists := node[last]; exists {
			if _, isMap := existing.(map[string]any); isMap {
				return nil, Corrupt(fmt.Sprintf("key %q conflicts with nested keys", key))
			}
		}
		node[last] = flat[key]
	}

	for key, child := range root {
		root[key] = listify(child)
	}
	return root, nil
}

func listify(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for key, child := range m {
		m[key] = listify(child)
	}
	if len(m) == 0 {
		return m
	}
	indices := make([]int, 0, len(m))
	byIndex := make(map[int]any, len(m))
	for key, child := range m {
		if !isDigits(key) {
			return m
		}
		n, err := strconv.Atoi(key)
		if err != nil {
			return m
		}
		if _, dup := byIndex[n]; dup {
			return m
		}
		indices = append(indices, n)
		byIndex[n] = child
	}
	sort.Ints(indices)
	out := make([]any, 0, len(indices))
	for _, n := range indices {
		out = append(out, byIndex[n])
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FromValues converts form values into the flat map consumed by Unflatten.
// Keys with a single value map to a string; repeated keys keep every value.
func FromValues(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, vals := range values {
		switch len(vals) {
		case 0:
			out[key] = ""
		case 1:
			out[key] = vals[0]
		default:
			list := make([]any, len(vals))
			for i, v := range vals {
				list[i] = v
			}
			out[key] = list
		}
	}
	return out
}
