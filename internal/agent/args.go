package agent

import "github.com/sells-group/agent-cli/internal/llm"

// Args wraps the loosely-typed argument payload of one tool call. A payload
// that failed to parse behaves as an empty set, so every getter falls back
// to its default and handlers never crash on absent arguments.
type Args struct {
	m map[string]any
}

// ParseArgs deserializes a raw argument payload. Malformed input yields
// empty Args, by contract.
func ParseArgs(raw string) Args {
	return Args{m: llm.ParseToolArgs(raw)}
}

// ArgsFrom wraps an existing map, mainly for tests.
func ArgsFrom(m map[string]any) Args {
	if m == nil {
		m = map[string]any{}
	}
	return Args{m: m}
}

// String returns a string argument or def when absent or mistyped.
func (a Args) String(key, def string) string {
	if v, ok := a.m[key].(string); ok {
		return v
	}
	return def
}

// Int returns an integer argument or def. JSON numbers arrive as float64.
func (a Args) Int(key string, def int) int {
	switch v := a.m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// Bool returns a boolean argument or def.
func (a Args) Bool(key string, def bool) bool {
	if v, ok := a.m[key].(bool); ok {
		return v
	}
	return def
}

// StringSlice returns a list-of-strings argument; absent or mistyped
// entries yield nil.
func (a Args) StringSlice(key string) []string {
	switch v := a.m[key].(type) {
	case []string:
		return v
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Map returns an object argument as a map, or nil when absent.
func (a Args) Map(key string) map[string]any {
	if v, ok := a.m[key].(map[string]any); ok {
		return v
	}
	return nil
}

// Has reports whether the key was supplied at all.
func (a Args) Has(key string) bool {
	_, ok := a.m[key]
	return ok
}
