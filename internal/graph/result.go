package graph

// Nil-safe helpers for digging through decoded GraphQL result maps.

// Child descends through nested object fields, returning nil as soon as a
// step is missing or not an object.
func Child(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if m == nil {
			return nil
		}
		m, _ = m[k].(map[string]any)
	}
	return m
}

// Items descends like Child, then returns the final field as a list of
// objects. Non-object elements are skipped.
func Items(m map[string]any, keys ...string) []map[string]any {
	if len(keys) > 1 {
		m = Child(m, keys[:len(keys)-1]...)
	}
	if m == nil {
		return nil
	}
	raw, _ := m[keys[len(keys)-1]].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if obj, ok := v.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// EndCursor extracts pageInfo.endCursor from a list container, returning ""
// when pagination is exhausted.
func EndCursor(m map[string]any) string {
	s, _ := Child(m, "pageInfo")["endCursor"].(string)
	return s
}

// Str returns a string field, or "" when absent or of another type.
func Str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
