// Package config holds the typed application configuration and the value
// conversions shared by every driven.ConfigStore implementation.
package config

import (
	"strconv"
	"strings"
	"time"
)

// Values is a flat map of dot-notation keys to decoded values. TOML and
// JSON decoders produce int64, float64, bool, string and []any; the
// accessors tolerate those shapes and the plain Go equivalents.
type Values map[string]any

// String returns the value as a string, or "" if missing or mistyped.
func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

// Int returns the value as an int, or 0 if missing or mistyped.
func (v Values) Int(key string) int {
	switch n := v[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(strings.TrimSpace(n))
		return i
	default:
		return 0
	}
}

// Float returns the value as a float64, or 0 if missing or mistyped.
func (v Values) Float(key string) float64 {
	switch n := v[key].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f
	default:
		return 0
	}
}

// Bool returns the value as a bool, or false if missing or mistyped.
func (v Values) Bool(key string) bool {
	switch b := v[key].(type) {
	case bool:
		return b
	case string:
		parsed, _ := strconv.ParseBool(strings.TrimSpace(b))
		return parsed
	default:
		return false
	}
}

// Duration parses a duration string ("30s"). Bare integers are seconds.
func (v Values) Duration(key string) time.Duration {
	switch d := v[key].(type) {
	case time.Duration:
		return d
	case string:
		s := strings.TrimSpace(d)
		if parsed, err := time.ParseDuration(s); err == nil {
			return parsed
		}
		if secs, err := strconv.Atoi(s); err == nil {
			return time.Duration(secs) * time.Second
		}
		return 0
	case int64:
		return time.Duration(d) * time.Second
	case int:
		return time.Duration(d) * time.Second
	default:
		return 0
	}
}

// StringSlice returns the value as a string slice. A comma-separated
// string is split, so env overrides can carry lists.
func (v Values) StringSlice(key string) []string {
	switch s := v[key].(type) {
	case []string:
		return s
	case []any:
		result := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	case string:
		var result []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
		return result
	default:
		return nil
	}
}

// Flatten converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func Flatten(m map[string]any) Values {
	out := make(Values)
	flatten(out, m, "")
	return out
}

func flatten(out Values, m map[string]any, prefix string) {
	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flatten(out, nested, fullKey)
			continue
		}
		out[fullKey] = value
	}
}

// Nest is the inverse of Flatten, used when writing TOML tables.
func Nest(v Values) map[string]any {
	out := make(map[string]any)
	for key, value := range v {
		parts := strings.Split(key, ".")
		node := out
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return out
}
