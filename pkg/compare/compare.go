// Package compare implements the typed comparison operators used by
// condition, switch and match blocks.
package compare

import (
	"fmt"

	"github.com/appforge/flowcore/pkg/runfail"
)

// Kind selects which typed comparator evaluates the operands.
type Kind string

const (
	KindText   Kind = "text"
	KindNumber Kind = "number"
	KindDate   Kind = "date"
	KindList   Kind = "list"
)

// Options tune text comparison behavior.
type Options struct {
	IgnoreCase bool `json:"ignoreCase"`
	TrimSpaces bool `json:"trimSpaces"`
}

// Compare dispatches to the typed comparator for kind. Unknown kinds
// and operators return a VALIDATION_ERROR.
func Compare(kind Kind, operator string, left, right any, opts Options) (bool, error) {
	switch kind {
	case KindText:
		return CompareText(operator, left, right, opts)
	case KindNumber:
		return CompareNumber(operator, left, right)
	case KindDate:
		return CompareDate(operator, left, right)
	case KindList:
		return CompareList(operator, left, right)
	default:
		return false, runfail.New(runfail.CodeValidation, fmt.Sprintf("unknown comparison type %q", kind))
	}
}
