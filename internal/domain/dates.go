package domain

import (
	"fmt"
	"strings"
	"time"
)

// Wire layouts for dates. Events and messages carry a moment, conferences a day.
const (
	MomentLayout = "02/01/2006 15:04"
	DayLayout    = "02/01/2006"
)

// ParseMoment parses a "dd/MM/yyyy HH:mm" moment. Stray backslashes from escaped clients are dropped.
func ParseMoment(s string) (time.Time, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, `\`, ""))
	t, err := time.Parse(MomentLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: moment %q must match dd/MM/yyyy HH:mm", ErrInvalidInput, s)
	}
	return t, nil
}

// ParseDay parses a "dd/MM/yyyy" day. A trailing time of day is accepted and ignored.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, `\`, ""))
	if len(s) > len(DayLayout) {
		s = s[:len(DayLayout)]
	}
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: day %q must match dd/MM/yyyy", ErrInvalidInput, s)
	}
	return t, nil
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}
