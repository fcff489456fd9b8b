package schema

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Normalize enforces the field-inclusion invariant on a freshly parsed
// document: every atomic field the schema declares is present with an
// explicit null when it carries no data, nested objects and array elements
// are kept only when at least one descendant field carries data, and keys
// the schema does not declare are dropped. Scalars the model got wrong
// (numbers, booleans) are coerced to their string form. Applying Normalize
// twice yields the same document as applying it once.
func Normalize(doc map[string]any) map[string]any {
	out, _ := normalizeObject(doc, schemaDoc)
	return out
}

// normalizeObject returns the normalized object and whether any descendant
// carries data. v may be anything; non-objects normalize as if absent.
func normalizeObject(v any, sch map[string]any) (map[string]any, bool) {
	src := asMap(v)
	out := make(map[string]any)
	hasData := false

	for name, raw := range asMap(sch["properties"]) {
		ps := asMap(raw)
		switch schemaType(ps) {
		case "object":
			if asMap(ps["properties"]) != nil {
				child, ok := normalizeObject(src[name], ps)
				if ok {
					out[name] = child
					hasData = true
				}
			} else {
				// Free-form map, e.g. education_details[].exam.
				child, ok := normalizeFreeform(src[name])
				if ok {
					out[name] = child
					hasData = true
				}
			}
		case "array":
			child, ok := normalizeArray(src[name], ps)
			if ok {
				out[name] = child
				hasData = true
			}
		default:
			val, ok := normalizeAtomic(src[name])
			out[name] = val
			if ok {
				hasData = true
			}
		}
	}
	return out, hasData
}

func normalizeArray(v any, sch map[string]any) ([]any, bool) {
	items := asMap(sch["items"])
	src, _ := v.([]any)
	var out []any
	if schemaType(items) == "object" {
		for _, el := range src {
			m, ok := normalizeObject(el, items)
			if ok {
				out = append(out, m)
			}
		}
	} else {
		for _, el := range src {
			if s, ok := stringify(el); ok {
				out = append(out, s)
			}
		}
	}
	return out, len(out) > 0
}

func normalizeFreeform(v any) (map[string]any, bool) {
	out := make(map[string]any)
	for k, val := range asMap(v) {
		if s, ok := stringify(val); ok {
			out[k] = s
		}
	}
	return out, len(out) > 0
}

func normalizeAtomic(v any) (any, bool) {
	if s, ok := stringify(v); ok {
		return s, true
	}
	return nil, false
}

// stringify coerces a scalar to its non-empty string form.
func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case bool:
		if t {
			return "Yes", true
		}
		return "No", true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func schemaType(sch map[string]any) string {
	switch t := sch["type"].(type) {
	case string:
		return t
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s != "null" {
				return s
			}
		}
	}
	return ""
}
