package vitals

import (
	"sort"
	"time"

	"github.com/fetalalert/fetalalert/pkg/types"
)

// Range is an optional inclusive calendar-date range.
// A zero From or To leaves that side unbounded.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether day falls inside the range. Only the calendar
// date of the bounds is compared.
func (r Range) Contains(day time.Time) bool {
	if !r.From.IsZero() && day.Before(dateOf(r.From, day.Location())) {
		return false
	}
	if !r.To.IsZero() && day.After(dateOf(r.To, day.Location())) {
		return false
	}
	return true
}

// Sequence parses rows in loc, drops those with unparsable dates or
// outside r, and orders the rest by descending timestamp. Rows with equal
// timestamps keep their relative order, so sequencing an already sequenced
// set is a no-op.
func Sequence(rows []types.Row, r Range, loc *time.Location) []Reading {
	out := make([]Reading, 0, len(rows))
	for _, row := range rows {
		rd, err := NewReading(row, loc)
		if err != nil {
			continue
		}
		if !r.Contains(rd.Day) {
			continue
		}
		out = append(out, rd)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].At.After(out[j].At)
	})
	return out
}

// dateOf returns midnight of t's calendar date in loc.
func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
