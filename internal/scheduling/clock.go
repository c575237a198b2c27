// Package scheduling computes appointment session lengths, end times, and
// calendar intervals for dose progression and follow-up planning.
package scheduling

import (
	"fmt"
	"regexp"
	"time"
)

// clockPattern matches 24-hour wire times such as "9:05" or "17:30".
var clockPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// ClockTime is a time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses an "HH:MM" wire string.
func ParseClock(s string) (ClockTime, error) {
	if !clockPattern.MatchString(s) {
		return ClockTime{}, fmt.Errorf("scheduling: invalid clock time %q", s)
	}
	var h, m int
	fmt.Sscanf(s, "%d:%d", &h, &m)
	return ClockTime{Hour: h, Minute: m}, nil
}

// String renders the time as zero-padded 24-hour "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes returns minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// On anchors the clock time onto the date portion of t.
func (c ClockTime) On(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, t.Location())
}
