package dataset

import (
	"reflect"
	"strings"
)

// chainGet resolves a dot-separated path against nested map[string]any data.
// Returns nil when any path segment is missing or not a map.
func chainGet(data map[string]any, path string) any {
	if data == nil || path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	var current any = data
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

// chainSet writes value at a dot-separated path, creating intermediate maps
// as needed. A nil value still writes an explicit nil entry.
func chainSet(data map[string]any, path string, value any) {
	if data == nil || path == "" {
		return
	}
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// chainRemove deletes the entry at a dot-separated path. Empty intermediate
// maps left behind are removed as well.
func chainRemove(data map[string]any, path string) {
	if data == nil || path == "" {
		return
	}
	parts := strings.Split(path, ".")
	if len(parts) == 1 {
		delete(data, parts[0])
		return
	}
	parent, ok := chainGet(data, strings.Join(parts[:len(parts)-1], ".")).(map[string]any)
	if !ok {
		return
	}
	delete(parent, parts[len(parts)-1])
	if len(parent) == 0 {
		chainRemove(data, strings.Join(parts[:len(parts)-1], "."))
	}
}

// isSame compares two values structurally. nil and missing are treated as
// equal to each other but not to zero values.
func isSame(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// isEmpty reports whether a value is nil or an empty string.
func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == ""
	}
	return false
}

// isEmptyArray reports whether a value is empty or an empty slice.
func isEmptyArray(value any) bool {
	if isEmpty(value) {
		return true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len() == 0
	}
	return false
}

// toSlice normalizes a value into []any. Non-slice values become a
// single-element slice; nil becomes a slice holding one nil.
func toSlice(value any) []any {
	if items, ok := value.([]any); ok {
		out := make([]any, len(items))
		copy(out, items)
		return out
	}
	rv := reflect.ValueOf(value)
	if value != nil && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{value}
}

// deepCopyMap clones nested map[string]any / []any structures. Scalar leaves
// are shared; maps and slices are copied.
func deepCopyMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}
	return dst
}

func deepCopyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return deepCopyMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
