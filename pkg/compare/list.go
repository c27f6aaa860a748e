package compare

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/template"
)

// List operators.
const (
	ListIncludes          = "includes"
	ListNotIncludes       = "not_includes"
	ListIncludesAnyOf     = "includes_any_of"
	ListIncludesAllOf     = "includes_all_of"
	ListIncludesNoneOf    = "includes_none_of"
	ListHasLength         = "has_length"
	ListHasLengthGreater  = "has_length_greater_than"
	ListHasLengthLess     = "has_length_less_than"
	ListIsEmpty           = "is_empty"
	ListIsNotEmpty        = "is_not_empty"
)

// CompareList evaluates a list operator. The left operand is parsed as
// a JSON array when possible and falls back to comma-splitting. Multi
// valued right operands parse the same way.
func CompareList(operator string, left, right any) (bool, error) {
	items := parseList(left)

	switch operator {
	case ListIncludes:
		return contains(items, template.Stringify(right)), nil
	case ListNotIncludes:
		return !contains(items, template.Stringify(right)), nil
	case ListIncludesAnyOf:
		for _, want := range parseList(right) {
			if contains(items, want) {
				return true, nil
			}
		}

		return false, nil
	case ListIncludesAllOf:
		for _, want := range parseList(right) {
			if !contains(items, want) {
				return false, nil
			}
		}

		return true, nil
	case ListIncludesNoneOf:
		for _, want := range parseList(right) {
			if contains(items, want) {
				return false, nil
			}
		}

		return true, nil
	case ListHasLength, ListHasLengthGreater, ListHasLengthLess:
		n, err := parseDays(right)
		if err != nil {
			return false, runfail.New(runfail.CodeValidation, "length operand must be a number")
		}

		switch operator {
		case ListHasLength:
			return len(items) == n, nil
		case ListHasLengthGreater:
			return len(items) > n, nil
		default:
			return len(items) < n, nil
		}
	case ListIsEmpty:
		return len(items) == 0, nil
	case ListIsNotEmpty:
		return len(items) > 0, nil
	default:
		return false, runfail.New(runfail.CodeValidation, fmt.Sprintf("unknown list operator %q", operator))
	}
}

func parseList(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, template.Stringify(item))
		}

		return items
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}

		if strings.HasPrefix(trimmed, "[") {
			var parsed []any
			if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
				return parseList(parsed)
			}
		}

		parts := strings.Split(trimmed, ",")
		items := make([]string, 0, len(parts))

		for _, part := range parts {
			items = append(items, strings.TrimSpace(part))
		}

		return items
	default:
		return []string{template.Stringify(v)}
	}
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}

	return false
}
