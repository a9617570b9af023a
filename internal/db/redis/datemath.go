package redis

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// resolveDate converts a range bound to epoch milliseconds. It accepts numbers,
// absolute dates and date math anchored at "now" or at "<date>||". roundUp
// selects the end of a rounded unit ("now/d" as an upper bound is 23:59:59.999).
func resolveDate(value string, now time.Time, roundUp bool) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty date")
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return int64(n), nil
	}

	var anchor time.Time
	var expr string
	switch {
	case strings.HasPrefix(value, "now"):
		anchor = now
		expr = value[len("now"):]
	case strings.Contains(value, "||"):
		parts := strings.SplitN(value, "||", 2)
		t, err := parseAbsoluteDate(parts[0])
		if err != nil {
			return 0, err
		}
		anchor = t
		expr = parts[1]
	default:
		t, err := parseAbsoluteDate(value)
		if err != nil {
			return 0, err
		}
		return t.UnixMilli(), nil
	}

	t, err := applyDateMath(anchor, expr, roundUp)
	if err != nil {
		return 0, fmt.Errorf("date math %q: %w", value, err)
	}
	return t.UnixMilli(), nil
}

func parseAbsoluteDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// applyDateMath evaluates a sequence of "+1d", "-7d" and "/d" operations.
func applyDateMath(t time.Time, expr string, roundUp bool) (time.Time, error) {
	for expr != "" {
		op := expr[0]
		expr = expr[1:]
		switch op {
		case '+', '-':
			i := 0
			for i < len(expr) && expr[i] >= '0' && expr[i] <= '9' {
				i++
			}
			n := 1
			if i > 0 {
				n, _ = strconv.Atoi(expr[:i])
			}
			if i >= len(expr) {
				return t, fmt.Errorf("missing unit")
			}
			unit := expr[i]
			expr = expr[i+1:]
			if op == '-' {
				n = -n
			}
			var err error
			if t, err = addUnit(t, unit, n); err != nil {
				return t, err
			}
		case '/':
			if expr == "" {
				return t, fmt.Errorf("missing rounding unit")
			}
			unit := expr[0]
			expr = expr[1:]
			start, err := truncateUnit(t, unit)
			if err != nil {
				return t, err
			}
			t = start
			if roundUp {
				next, _ := addUnit(start, unit, 1)
				t = next.Add(-time.Millisecond)
			}
		default:
			return t, fmt.Errorf("unexpected %q", op)
		}
	}
	return t, nil
}

func addUnit(t time.Time, unit byte, n int) (time.Time, error) {
	switch unit {
	case 'y':
		return t.AddDate(n, 0, 0), nil
	case 'M':
		return t.AddDate(0, n, 0), nil
	case 'w':
		return t.AddDate(0, 0, 7*n), nil
	case 'd':
		return t.AddDate(0, 0, n), nil
	case 'h', 'H':
		return t.Add(time.Duration(n) * time.Hour), nil
	case 'm':
		return t.Add(time.Duration(n) * time.Minute), nil
	case 's':
		return t.Add(time.Duration(n) * time.Second), nil
	default:
		return t, fmt.Errorf("unknown unit %q", unit)
	}
}

func truncateUnit(t time.Time, unit byte) (time.Time, error) {
	y, mo, d := t.Date()
	loc := t.Location()
	switch unit {
	case 'y':
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc), nil
	case 'M':
		return time.Date(y, mo, 1, 0, 0, 0, 0, loc), nil
	case 'w':
		// weeks start on Monday
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, mo, d-offset, 0, 0, 0, 0, loc), nil
	case 'd':
		return time.Date(y, mo, d, 0, 0, 0, 0, loc), nil
	case 'h', 'H':
		return t.Truncate(time.Hour), nil
	case 'm':
		return t.Truncate(time.Minute), nil
	case 's':
		return t.Truncate(time.Second), nil
	default:
		return t, fmt.Errorf("unknown unit %q", unit)
	}
}
