package compare

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/template"
)

// Number operators.
const (
	NumberEquals             = "equals"
	NumberNotEquals          = "not_equals"
	NumberGreaterThan        = "greater_than"
	NumberLessThan           = "less_than"
	NumberGreaterThanOrEqual = "greater_than_or_equal"
	NumberLessThanOrEqual    = "less_than_or_equal"
	NumberBetween            = "between"
	NumberIsNumber           = "is_number"
	NumberIsNotNumber        = "is_not_number"
)

// CompareNumber evaluates a numeric operator. The right operand of
// "between" is a "min,max" string, bounds inclusive.
func CompareNumber(operator string, left, right any) (bool, error) {
	l, lOK := toFloat(left)

	switch operator {
	case NumberIsNumber:
		return lOK, nil
	case NumberIsNotNumber:
		return !lOK, nil
	}

	if !lOK {
		return false, runfail.New(runfail.CodeValidation, fmt.Sprintf("left operand %q is not a number", template.Stringify(left)))
	}

	if operator == NumberBetween {
		return between(l, right)
	}

	r, rOK := toFloat(right)
	if !rOK {
		return false, runfail.New(runfail.CodeValidation, fmt.Sprintf("right operand %q is not a number", template.Stringify(right)))
	}

	switch operator {
	case NumberEquals:
		return l == r, nil
	case NumberNotEquals:
		return l != r, nil
	case NumberGreaterThan:
		return l > r, nil
	case NumberLessThan:
		return l < r, nil
	case NumberGreaterThanOrEqual:
		return l >= r, nil
	case NumberLessThanOrEqual:
		return l <= r, nil
	default:
		return false, runfail.New(runfail.CodeValidation, fmt.Sprintf("unknown number operator %q", operator))
	}
}

func between(value any, bounds any) (bool, error) {
	l, _ := toFloat(value)

	parts := strings.Split(template.Stringify(bounds), ",")
	if len(parts) != 2 {
		return false, runfail.New(runfail.CodeValidation, "between expects a \"min,max\" range")
	}

	minV, minOK := toFloat(strings.TrimSpace(parts[0]))
	maxV, maxOK := toFloat(strings.TrimSpace(parts[1]))

	if !minOK || !maxOK {
		return false, runfail.New(runfail.CodeValidation, "between bounds must be numbers")
	}

	return l >= minV && l <= maxV, nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)

		return f, err == nil
	case bool:
		if v {
			return 1, true
		}

		return 0, true
	default:
		return 0, false
	}
}
