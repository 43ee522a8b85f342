package handler

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// trimTree trims whitespace from every string in a decoded JSON value.
func trimTree(v any) any {
	return walkStrings(v, strings.TrimSpace)
}

// escapeTree HTML-escapes every string in a decoded JSON value. Object keys
// are left alone.
func escapeTree(v any) any {
	return walkStrings(v, htmlEscaper.Replace)
}

func walkStrings(v any, fn func(string) string) any {
	switch t := v.(type) {
	case string:
		return fn(t)
	case map[string]any:
		for k, child := range t {
			t[k] = walkStrings(child, fn)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = walkStrings(child, fn)
		}
		return t
	default:
		return v
	}
}
