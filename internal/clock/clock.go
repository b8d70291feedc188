package clock

import "time"

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// System reads the wall clock
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Func adapts a plain function to Clock
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// StartOfHour zeroes the minutes and below of t, in t's own location.
func StartOfHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}
