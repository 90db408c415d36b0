package widget

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

func asBool(v any) (bool, bool) {
	switch val := v.(type) {
	case nil:
		return false, true
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return b, err == nil
	}
	if n, ok := asInt(v); ok {
		return n != 0, true
	}
	return false, false
}

func asInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int8:
		return int(val), true
	case int16:
		return int(val), true
	case int32:
		return int(val), true
	case int64:
		return int(val), true
	case uint:
		return int(val), true
	case uint8:
		return int(val), true
	case uint16:
		return int(val), true
	case uint32:
		return int(val), true
	case uint64:
		return int(val), true
	case float32:
		return int(val), float64(val) == math.Trunc(float64(val))
	case float64:
		return int(val), val == math.Trunc(val)
	case *int:
		if val == nil {
			return 0, false
		}
		return *val, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		return n, err == nil
	}
	return 0, false
}

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// toList converts slices and arrays to []any. Nil yields an empty list and
// ok is false for anything else.
func toList(v any) ([]any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, true
	case []any:
		return val, true
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}

// asMap returns v as map[string]any when it is a string keyed map.
func asMap(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, true
	}
	return nil, false
}

// lookupAttr reads the member called name from a struct value. Fields match
// a `form` tag, a `json` tag or the field name, case-insensitively. A method
// without arguments is used when no field matches.
func lookupAttr(v any, name string) (any, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		if m := rv.MethodByName(exportedName(name)); m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() >= 1 {
			return m.Call(nil)[0].Interface(), true
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		if tagName(f.Tag.Get("form")) == name || tagName(f.Tag.Get("json")) == name || strings.EqualFold(f.Name, name) {
			return rv.Field(i).Interface(), true
		}
	}
	if m := rv.MethodByName(exportedName(name)); m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() >= 1 {
		return m.Call(nil)[0].Interface(), true
	}
	return nil, false
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}

func exportedName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' || r == '-' || r == '.' {
			upper = true
			continue
		}
		if upper {
			b.WriteString(strings.ToUpper(string(r)))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// childValue extracts the slice of value belonging to the child with id.
func childValue(value any, id string) any {
	if value == nil {
		return nil
	}
	if m, ok := asMap(value); ok {
		return m[id]
	}
	v, _ := lookupAttr(value, id)
	return v
}
