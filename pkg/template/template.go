// Package template renders {{variable}} placeholders in message content and
// action parameters against the execution context.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// Render substitutes every {{path.to.value}} placeholder in input with the
// value found at that dotted path in data. Placeholders that resolve to
// nothing are stripped from the output.
func Render(input string, data map[string]any) string {
	if !strings.Contains(input, "{{") {
		return input
	}

	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]

		value, ok := Lookup(data, path)
		if !ok || value == nil {
			return ""
		}

		return stringify(value)
	})
}

// RenderMap renders every string value of params, recursing into nested maps.
// Non-string values pass through untouched.
func RenderMap(params, data map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	rendered := make(map[string]any, len(params))

	for key, value := range params {
		switch typed := value.(type) {
		case string:
			rendered[key] = Render(typed, data)
		case map[string]any:
			rendered[key] = RenderMap(typed, data)
		default:
			rendered[key] = value
		}
	}

	return rendered
}

// Lookup resolves a dotted path against nested maps. A missing leaf returns
// (nil, false); intermediate non-map values stop the walk.
func Lookup(data map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")

	var current any = data

	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func stringify(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}

		return fmt.Sprintf("%v", typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
