package vitals

import (
	"time"
)

// Look-back windows used by Aggregate.
const (
	LowSpO2Window      = 60 * time.Minute
	ZeroMovementWindow = 30 * time.Minute
)

// Window holds the rolling statistics derived from one reading set.
//
// When NoData is true no other field is meaningful: callers must render
// "no data" rather than zero counts.
type Window struct {
	NoData bool

	// Count is the number of readings aggregated.
	Count int

	// LowSpO2LastHour counts readings at or after now-60m with SpO2 < 90.
	LowSpO2LastHour int

	// ZeroMovementLast30m counts readings at or after now-30m with a
	// movement count of exactly zero.
	ZeroMovementLast30m int

	// Latest is the most recent reading; SinceLatest is now minus its
	// timestamp, rounded to the minute (negative for future readings).
	Latest      *Reading
	SinceLatest time.Duration

	// Coverage is the span between the earliest and latest readings.
	CoverageStart  time.Time
	CoverageEnd    time.Time
	CoverageMonths int
}

// Aggregate computes the Window for readings as of now.
// The readings may be in any order.
func Aggregate(readings []Reading, now time.Time) Window {
	if len(readings) == 0 {
		return Window{NoData: true}
	}

	lowCut := now.Add(-LowSpO2Window)
	movCut := now.Add(-ZeroMovementWindow)

	w := Window{Count: len(readings)}
	latest := 0
	for i, r := range readings {
		if !r.At.Before(lowCut) && r.SpO2.Valid && r.SpO2.Num < SpO2OutOfRange {
			w.LowSpO2LastHour++
		}
		if !r.At.Before(movCut) && r.Movements.Valid && r.Movements.Num == 0 {
			w.ZeroMovementLast30m++
		}

		if i == 0 || r.At.Before(w.CoverageStart) {
			w.CoverageStart = r.At
		}
		if i == 0 || r.At.After(w.CoverageEnd) {
			w.CoverageEnd = r.At
			latest = i
		}
	}

	l := readings[latest]
	w.Latest = &l
	w.SinceLatest = now.Sub(l.At).Round(time.Minute)
	w.CoverageMonths = MonthSpan(w.CoverageStart, w.CoverageEnd)
	return w
}

// MonthSpan returns the number of calendar months touched by [start, end],
// counting both ends: a span inside one month is 1.
// Zero times yield 0.
func MonthSpan(start, end time.Time) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	return (end.Year()-start.Year())*12 + int(end.Month()-start.Month()) + 1
}
