package source

import (
	"fmt"
	"net/url"
	"time"

	"github.com/fetalalert/fetalalert/dashboard/internal/config"
	"github.com/fetalalert/fetalalert/dashboard/internal/vitals"
)

// Query selects what the source returns. From and To are calendar dates;
// a zero value leaves that side open.
type Query struct {
	Key       string
	DeviceID  string
	PatientID string
	From      time.Time
	To        time.Time
}

// DefaultQuery builds the startup query from the source config: From
// defaults to minDate and To to today's date.
func DefaultQuery(src config.Source, minDate, today time.Time, loc *time.Location) (Query, error) {
	q := Query{
		Key:       src.Auth.Key(),
		DeviceID:  src.DeviceID,
		PatientID: src.PatientID,
		From:      minDate,
		To:        time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc),
	}
	if src.From != "" {
		d, err := vitals.ParseISODate(src.From, loc)
		if err != nil {
			return Query{}, fmt.Errorf("source: from: %w", err)
		}
		q.From = d
	}
	if src.To != "" {
		d, err := vitals.ParseISODate(src.To, loc)
		if err != nil {
			return Query{}, fmt.Errorf("source: to: %w", err)
		}
		q.To = d
	}
	return q.Normalize(minDate), nil
}

// Normalize defaults and clamps From to minDate and moves To up to From
// when the range is inverted. A zero minDate leaves From unbounded.
func (q Query) Normalize(minDate time.Time) Query {
	if !minDate.IsZero() && (q.From.IsZero() || q.From.Before(minDate)) {
		q.From = minDate
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		q.To = q.From
	}
	return q
}

// Range returns the client-side filter for the query.
func (q Query) Range() vitals.Range {
	return vitals.Range{From: q.From, To: q.To}
}

// Values encodes the query as list-action parameters. Empty fields are
// omitted.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("action", "list")
	if q.Key != "" {
		v.Set("key", q.Key)
	}
	if q.DeviceID != "" {
		v.Set("deviceId", q.DeviceID)
	}
	if q.PatientID != "" {
		v.Set("patientId", q.PatientID)
	}
	if !q.From.IsZero() {
		v.Set("from", q.From.Format(vitals.ISODate))
	}
	if !q.To.IsZero() {
		v.Set("to", q.To.Format(vitals.ISODate))
	}
	return v
}
