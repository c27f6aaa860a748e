package compare

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/template"
)

// Date operators.
const (
	DateEquals           = "equals"
	DateNotEquals        = "not_equals"
	DateIsAfter          = "is_after"
	DateIsBefore         = "is_before"
	DateIsToday          = "is_today"
	DateIsThisWeek       = "is_this_week"
	DateIsThisMonth      = "is_this_month"
	DateIsWithinLastDays = "is_within_last_days"
	DateIsWithinNextDays = "is_within_next_days"
)

// now is swapped in tests so relative operators stay deterministic.
var now = time.Now

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// CompareDate evaluates a date operator. Equality and ordering compare
// calendar days, not instants. The right operand of the within-days
// operators is a day count N.
func CompareDate(operator string, left, right any) (bool, error) {
	l, err := parseDate(left)
	if err != nil {
		return false, err
	}

	switch operator {
	case DateEquals, DateNotEquals, DateIsAfter, DateIsBefore:
		r, err := parseDate(right)
		if err != nil {
			return false, err
		}

		ld, rd := truncateDay(l), truncateDay(r)

		switch operator {
		case DateEquals:
			return ld.Equal(rd), nil
		case DateNotEquals:
			return !ld.Equal(rd), nil
		case DateIsAfter:
			return ld.After(rd), nil
		default:
			return ld.Before(rd), nil
		}

	case DateIsToday:
		return truncateDay(l).Equal(truncateDay(now())), nil

	case DateIsThisWeek:
		start := startOfWeek(now())

		return !truncateDay(l).Before(start) && truncateDay(l).Before(start.AddDate(0, 0, 7)), nil

	case DateIsThisMonth:
		n := now()

		return l.Year() == n.Year() && l.Month() == n.Month(), nil

	case DateIsWithinLastDays, DateIsWithinNextDays:
		days, err := parseDays(right)
		if err != nil {
			return false, err
		}

		today := truncateDay(now())
		day := truncateDay(l)

		if operator == DateIsWithinLastDays {
			return !day.After(today) && !day.Before(today.AddDate(0, 0, -days)), nil
		}

		return !day.Before(today) && !day.After(today.AddDate(0, 0, days)), nil

	default:
		return false, runfail.New(runfail.CodeValidation, fmt.Sprintf("unknown date operator %q", operator))
	}
}

func parseDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t, nil
			}
		}
	case float64:
		// Unix seconds, the wire format of context timestamps.
		return time.Unix(int64(v), 0).UTC(), nil
	}

	return time.Time{}, runfail.New(runfail.CodeValidation, fmt.Sprintf("cannot parse %q as a date", template.Stringify(value)))
}

func parseDays(value any) (int, error) {
	if f, ok := toFloat(value); ok {
		return int(f), nil
	}

	if s, ok := value.(string); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, nil
		}
	}

	return 0, runfail.New(runfail.CodeValidation, "day count must be a number")
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfWeek(t time.Time) time.Time {
	day := truncateDay(t)
	weekday := int(day.Weekday())

	return day.AddDate(0, 0, -weekday)
}
