// Package template resolves {{path}} placeholders against the run context.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/appforge/flowcore/pkg/models"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.\-]*)\s*\}\}`)

// Render substitutes every {{a.b.c}} placeholder in input against the
// execution context. When the input is exactly one placeholder the raw
// value is returned with its original type, otherwise placeholders are
// stringified in place. Unresolvable paths render as the empty string.
func Render(input string, executionCtx *models.ExecutionContext) any {
	trimmed := strings.TrimSpace(input)

	if match := placeholderRe.FindStringSubmatch(trimmed); match != nil && match[0] == trimmed {
		value, ok := executionCtx.Lookup(match[1])
		if !ok {
			return ""
		}

		return value
	}

	return placeholderRe.ReplaceAllStringFunc(input, func(placeholder string) string {
		path := placeholderRe.FindStringSubmatch(placeholder)[1]

		value, ok := executionCtx.Lookup(path)
		if !ok {
			return ""
		}

		return Stringify(value)
	})
}

// RenderString substitutes placeholders and always returns a string.
func RenderString(input string, executionCtx *models.ExecutionContext) string {
	return Stringify(Render(input, executionCtx))
}

// RenderConfig walks a block config and substitutes placeholders in
// every string leaf, including nested maps and slices.
func RenderConfig(config map[string]any, executionCtx *models.ExecutionContext) map[string]any {
	rendered := make(map[string]any, len(config))

	for key, value := range config {
		rendered[key] = renderValue(value, executionCtx)
	}

	return rendered
}

func renderValue(value any, executionCtx *models.ExecutionContext) any {
	switch v := value.(type) {
	case string:
		return Render(v, executionCtx)
	case map[string]any:
		return RenderConfig(v, executionCtx)
	case []any:
		rendered := make([]any, len(v))
		for i, item := range v {
			rendered[i] = renderValue(item, executionCtx)
		}

		return rendered
	default:
		return value
	}
}

// Stringify converts a substituted value to its text form. Maps and
// slices marshal to JSON so embedded placeholders stay parseable.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// HasPlaceholder reports whether input contains a substitutable path.
func HasPlaceholder(input string) bool {
	return placeholderRe.MatchString(input)
}
