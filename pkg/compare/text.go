package compare

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/template"
)

// Text operators.
const (
	TextEquals         = "equals"
	TextNotEquals      = "not_equals"
	TextContains       = "contains"
	TextNotContains    = "not_contains"
	TextStartsWith     = "starts_with"
	TextEndsWith       = "ends_with"
	TextIsEmpty        = "is_empty"
	TextIsNotEmpty     = "is_not_empty"
	TextMatchesPattern = "matches_pattern"
)

// CompareText evaluates a text operator. Operands are stringified
// first, the options apply trimming and case folding before the check.
func CompareText(operator string, left, right any, opts Options) (bool, error) {
	l := template.Stringify(left)
	r := template.Stringify(right)

	if opts.TrimSpaces {
		l = strings.TrimSpace(l)
		r = strings.TrimSpace(r)
	}

	if opts.IgnoreCase && operator != TextMatchesPattern {
		l = strings.ToLower(l)
		r = strings.ToLower(r)
	}

	switch operator {
	case TextEquals:
		return l == r, nil
	case TextNotEquals:
		return l != r, nil
	case TextContains:
		return strings.Contains(l, r), nil
	case TextNotContains:
		return !strings.Contains(l, r), nil
	case TextStartsWith:
		return strings.HasPrefix(l, r), nil
	case TextEndsWith:
		return strings.HasSuffix(l, r), nil
	case TextIsEmpty:
		return l == "", nil
	case TextIsNotEmpty:
		return l != "", nil
	case TextMatchesPattern:
		pattern := r
		if opts.IgnoreCase {
			pattern = "(?i)" + pattern
		}

		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, runfail.Wrap(runfail.CodeValidation, fmt.Errorf("invalid pattern %q: %w", r, err))
		}

		return re.MatchString(l), nil
	default:
		return false, runfail.New(runfail.CodeValidation, fmt.Sprintf("unknown text operator %q", operator))
	}
}
