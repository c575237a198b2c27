package scheduling

import (
	"strconv"
	"strings"
	"time"
)

// IntervalUnit is a calendar unit for dose and follow-up intervals.
type IntervalUnit string

const (
	UnitDay   IntervalUnit = "day"
	UnitWeek  IntervalUnit = "week"
	UnitMonth IntervalUnit = "month"
	UnitYear  IntervalUnit = "year"
)

// Interval is a parsed "<amount> <unit>" calendar interval.
type Interval struct {
	Amount int
	Unit   IntervalUnit
}

// ParseInterval parses strings such as "3 weeks" or "1 Month". Unparsable
// amounts default to 1 and unparsable units default to months, so a
// malformed catalog value still yields a usable schedule.
func ParseInterval(s string) Interval {
	iv := Interval{Amount: 1, Unit: UnitMonth}
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	if len(fields) == 0 {
		return iv
	}
	if n, err := strconv.Atoi(fields[0]); err == nil && n > 0 {
		iv.Amount = n
	}
	if len(fields) > 1 {
		switch strings.TrimSuffix(fields[1], "s") {
		case "day":
			iv.Unit = UnitDay
		case "week":
			iv.Unit = UnitWeek
		case "month":
			iv.Unit = UnitMonth
		case "year":
			iv.Unit = UnitYear
		}
	}
	return iv
}

// AddTo advances t by the interval using calendar arithmetic.
func (iv Interval) AddTo(t time.Time) time.Time {
	switch iv.Unit {
	case UnitDay:
		return t.AddDate(0, 0, iv.Amount)
	case UnitWeek:
		return t.AddDate(0, 0, 7*iv.Amount)
	case UnitYear:
		return t.AddDate(iv.Amount, 0, 0)
	default:
		return t.AddDate(0, iv.Amount, 0)
	}
}
