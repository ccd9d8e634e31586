package vitals

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fetalalert/fetalalert/pkg/types"
)

// ErrBadDate is returned for date text that is not a real dd/mm/yyyy date.
var ErrBadDate = errors.New("vitals: unparsable date")

// ISODate is the layout used for query range bounds (date pickers).
const ISODate = "2006-01-02"

// Reading is a Row whose date parsed, together with its derived times.
type Reading struct {
	types.Row

	// Day is the calendar date at midnight in the parse location.
	Day time.Time

	// At is Day plus the time of day.
	At time.Time
}

// NewReading parses row's date and time in loc.
func NewReading(row types.Row, loc *time.Location) (Reading, error) {
	day, err := ParseDate(row.Date, loc)
	if err != nil {
		return Reading{}, err
	}
	hh, mm := parseClock(row.Time)
	at := time.Date(day.Year(), day.Month(), day.Day(), hh, mm, 0, 0, loc)
	return Reading{Row: row, Day: day, At: at}, nil
}

// ParseDate parses a dd/mm/yyyy date. Leading digits of each part are used
// ("04", "4" and "4 " are all day 4); zero parts and dates that do not exist
// on the calendar are rejected.
func ParseDate(text string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(text), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, text)
	}
	day, okD := leadingInt(parts[0])
	month, okM := leadingInt(parts[1])
	year, okY := leadingInt(parts[2])
	if !okD || !okM || !okY || day == 0 || month == 0 || year == 0 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, text)
	}

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if d.Day() != day || int(d.Month()) != month || d.Year() != year {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, text)
	}
	return d, nil
}

// ParseISODate parses a YYYY-MM-DD range bound in loc.
func ParseISODate(text string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(ISODate, strings.TrimSpace(text), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, text)
	}
	return d, nil
}

// parseClock reads HH:MM. Missing or unparsable parts count as zero and
// seconds are ignored.
func parseClock(text string) (int, int) {
	if strings.TrimSpace(text) == "" {
		return 0, 0
	}
	parts := strings.Split(text, ":")
	hh, _ := leadingInt(parts[0])
	var mm int
	if len(parts) > 1 {
		mm, _ = leadingInt(parts[1])
	}
	return hh, mm
}

// leadingInt parses the run of decimal digits at the start of s after
// leading whitespace. It reports false if there are none.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t")
	n, digits := 0, 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		if digits < 9 {
			n = n*10 + int(c-'0')
		}
		digits++
	}
	return n, digits > 0
}

// Rows returns the raw rows of readings, in order.
func Rows(readings []Reading) []types.Row {
	out := make([]types.Row, len(readings))
	for i, r := range readings {
		out[i] = r.Row
	}
	return out
}
