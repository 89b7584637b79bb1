// ABOUTME: Scalar coercion helpers shared by every record normalizer
// ABOUTME: Structured values where text is expected become the protected placeholder

package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Placeholders substituted for missing or unusable fields.
const (
	Protected     = "[Encrypted]"
	NotAvailable  = "N/A"
	UnnamedUser   = "Unnamed User"
	UnknownRole   = "Unknown Role"
	UnknownID     = "unknown"
	UnknownAction = "Unknown Action"
	NotGraded     = "Not graded"
	MissingHash   = "Missing"
	UnknownHash   = "Unknown"
)

// Text renders v for display. Strings are trimmed, numbers and booleans are
// formatted, objects and arrays become Protected, and anything empty yields def.
func Text(v any, def string) string {
	switch t := v.(type) {
	case nil:
		return def
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return s
		}
		return def
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		return Protected
	}
	return def
}

// first returns the first key of obj that renders to a non-empty value.
func first(obj map[string]any, def string, keys ...string) string {
	for _, k := range keys {
		if s := Text(obj[k], ""); s != "" {
			return s
		}
	}
	return def
}

// Count coerces v to a non-negative int. Unparseable values count as zero.
func Count(v any) int {
	var f float64
	switch t := v.(type) {
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0
		}
		f = n
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// Bool coerces v to a boolean. Only true and "true" are true.
func Bool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	}
	return false
}

// Strings coerces an array of scalars or a comma-separated string into a
// non-nil slice of trimmed, non-empty strings.
func Strings(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range t {
			if _, nested := item.(map[string]any); nested {
				continue
			}
			if s := Text(item, ""); s != "" && s != Protected {
				out = append(out, s)
			}
		}
	case string:
		return SplitList(t)
	}
	return out
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// object returns v as a JSON object.
func object(v any) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	return obj, ok && obj != nil
}
