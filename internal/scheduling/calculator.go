package scheduling

import (
	"errors"
	"time"
)

// ErrCrossesMidnight is returned when a session's computed end time would
// land past 23:59. Bookings that would run over midnight are rejected
// rather than wrapped onto the next day.
var ErrCrossesMidnight = errors.New("scheduling: session crosses midnight")

// Selection carries the resolved catalog durations for one service line.
// Nil duration pointers mean the catalog entry exists but carries no
// duration, so the configured default applies. Missing marks a selection
// whose catalog lookup failed entirely; it contributes zero minutes.
type Selection struct {
	SubServiceMins *int
	Missing        bool
	HasExtra       bool
	ExtraMins      *int
}

// Calculator aggregates service durations into session end times.
type Calculator struct {
	subServiceDefault   int
	extraServiceDefault int
	buffer              int
}

// NewCalculator creates a calculator with the given default durations and
// per-session buffer, all in minutes.
func NewCalculator(subServiceDefault, extraServiceDefault, buffer int) *Calculator {
	return &Calculator{
		subServiceDefault:   subServiceDefault,
		extraServiceDefault: extraServiceDefault,
		buffer:              buffer,
	}
}

// Default returns a calculator with the standard 30/15 minute defaults and
// a 5 minute buffer.
func Default() *Calculator {
	return NewCalculator(30, 15, 5)
}

// TotalMinutes sums selection durations plus the fixed buffer. The buffer
// is added once per session, not per selection.
func (c *Calculator) TotalMinutes(selections []Selection) int {
	total := 0
	for _, sel := range selections {
		if sel.Missing {
			continue
		}
		if sel.SubServiceMins != nil {
			total += *sel.SubServiceMins
		} else {
			total += c.subServiceDefault
		}
		if sel.HasExtra {
			if sel.ExtraMins != nil {
				total += *sel.ExtraMins
			} else {
				total += c.extraServiceDefault
			}
		}
	}
	return total + c.buffer
}

// EndTime computes the session end as a 24-hour "HH:MM" string. The
// arithmetic runs on a fixed calendar instant so DST gaps cannot skew the
// result. Sessions that would cross midnight return ErrCrossesMidnight.
func (c *Calculator) EndTime(start string, selections []Selection) (string, error) {
	startClock, err := ParseClock(start)
	if err != nil {
		return "", err
	}
	total := c.TotalMinutes(selections)

	// Normalized instant: any fixed date in UTC works.
	anchor := time.Date(2000, time.January, 1, startClock.Hour, startClock.Minute, 0, 0, time.UTC)
	end := anchor.Add(time.Duration(total) * time.Minute)
	if end.Day() != anchor.Day() {
		return "", ErrCrossesMidnight
	}
	return ClockTime{Hour: end.Hour(), Minute: end.Minute()}.String(), nil
}
