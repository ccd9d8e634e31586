package view

import (
	"fmt"
	"time"

	"github.com/fetalalert/fetalalert/dashboard/internal/source"
	"github.com/fetalalert/fetalalert/dashboard/internal/vitals"
	"github.com/fetalalert/fetalalert/pkg/types"
)

// Connection states shown in the header badge.
const (
	ConnIdle = "idle"
	ConnOK   = "ok"
	ConnErr  = "err"
)

// NoDataText is the detail line shown when the selected range holds no readings.
const NoDataText = "No data in the selected range."

// placeholder is shown for summary fields with nothing to display.
const placeholder = "--"

// View is everything the rendering sink shows after one refresh.
type View struct {
	GeneratedAt time.Time `json:"generated_at"`

	Connection Connection `json:"connection"`
	Query      QueryInfo  `json:"query"`
	Summary    Summary    `json:"summary"`
	Status     Pill       `json:"status"`
	Details    []string   `json:"details"`
	Stats      Stats      `json:"stats"`

	// Table is the first TableLimit rows of the sequenced set.
	Table     []types.Row `json:"table"`
	TotalRows int         `json:"total_rows"`

	// Rows is the full sequenced set, newest first. It backs exports and
	// is never sent to clients.
	Rows []types.Row `json:"-"`

	// Latest is the newest reading, nil when there is none.
	Latest *vitals.Reading `json:"-"`
}

// Connection describes the outcome of the last fetch.
type Connection struct {
	State        string    `json:"state"`
	Label        string    `json:"label"`
	SourceType   string    `json:"source_type,omitempty"`
	Endpoint     string    `json:"endpoint,omitempty"`
	FetchedAt    time.Time `json:"fetched_at,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	ErrorMessage string    `json:"error_message,omitempty"`

	// UptimePct is the share of recent fetches that succeeded.
	UptimePct float64 `json:"uptime_pct"`
}

// QueryInfo echoes the active query without the key.
type QueryInfo struct {
	DeviceID  string `json:"device_id,omitempty"`
	PatientID string `json:"patient_id,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
}

// Summary is the latest-reading card.
type Summary struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	HeartRate string `json:"heart_rate"`
	SpO2      string `json:"spo2"`
	Movements string `json:"movements"`

	HeartRateBand  vitals.Band `json:"heart_rate_band"`
	HeartRateLabel string      `json:"heart_rate_label"`
	SpO2Band       vitals.Band `json:"spo2_band"`
	SpO2Label      string      `json:"spo2_label"`
}

// Pill is the overall status badge.
type Pill struct {
	State vitals.Status `json:"state"`
	Label string        `json:"label"`
}

// Stats are the numeric window statistics behind the detail lines.
type Stats struct {
	NoData              bool       `json:"no_data"`
	Count               int        `json:"count"`
	LowSpO2LastHour     int        `json:"low_spo2_last_hour"`
	ZeroMovementLast30m int        `json:"zero_movement_last_30m"`
	MinutesSinceLast    int        `json:"minutes_since_last"`
	CoverageStart       *time.Time `json:"coverage_start,omitempty"`
	CoverageEnd         *time.Time `json:"coverage_end,omitempty"`
	CoverageMonths      int        `json:"coverage_months"`
}

// Pending returns the view shown before the first fetch completes.
func Pending(q source.Query, now time.Time) *View {
	v := empty(q, now)
	v.Connection = Connection{State: ConnIdle, Label: connLabel(ConnIdle)}
	return v
}

// Build renders res for query q as of now. Rows whose date does not parse
// are dropped; the rest are filtered to the query range and sorted newest
// first. tableLimit <= 0 shows every row.
func Build(res *source.FetchResult, q source.Query, now time.Time, tableLimit int, loc *time.Location) *View {
	if res == nil {
		return Pending(q, now)
	}

	v := empty(q, now)
	v.Connection = Connection{
		State:      ConnOK,
		SourceType: res.SourceType,
		Endpoint:   res.Endpoint,
		FetchedAt:  res.FetchedAt,
		LatencyMs:  res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		v.Connection.State = ConnErr
		v.Connection.ErrorMessage = res.Err.Error()
	}
	v.Connection.Label = connLabel(v.Connection.State)
	if res.Err != nil {
		return v
	}

	readings := vitals.Sequence(res.Rows, q.Range(), loc)
	w := vitals.Aggregate(readings, now)

	v.Rows = vitals.Rows(readings)
	v.TotalRows = len(v.Rows)
	v.Table = v.Rows
	if tableLimit > 0 && len(v.Table) > tableLimit {
		v.Table = v.Table[:tableLimit]
	}

	v.Latest = w.Latest
	v.Summary = summarize(w.Latest)
	st := vitals.Overall(w.Latest)
	v.Status = Pill{State: st, Label: st.Label()}
	v.Stats = stats(w)
	v.Details = details(w)
	return v
}

func empty(q source.Query, now time.Time) *View {
	return &View{
		GeneratedAt: now,
		Query:       queryInfo(q),
		Summary:     summarize(nil),
		Status:      Pill{State: vitals.StatusIdle, Label: vitals.StatusIdle.Label()},
		Details:     []string{NoDataText},
		Stats:       Stats{NoData: true},
		Table:       []types.Row{},
		Rows:        []types.Row{},
	}
}

func connLabel(state string) string {
	switch state {
	case ConnOK:
		return "Data received"
	case ConnErr:
		return "No connection to FA Cloud"
	default:
		return "Connecting to FA Cloud…"
	}
}

func queryInfo(q source.Query) QueryInfo {
	info := QueryInfo{DeviceID: q.DeviceID, PatientID: q.PatientID}
	if !q.From.IsZero() {
		info.From = q.From.Format(vitals.ISODate)
	}
	if !q.To.IsZero() {
		info.To = q.To.Format(vitals.ISODate)
	}
	return info
}

func summarize(latest *vitals.Reading) Summary {
	if latest == nil {
		return Summary{
			Date: placeholder, Time: placeholder,
			HeartRate: placeholder, SpO2: placeholder, Movements: placeholder,
			HeartRateBand: vitals.BandUnavailable, HeartRateLabel: vitals.BandUnavailable.Label(),
			SpO2Band: vitals.BandUnavailable, SpO2Label: vitals.BandUnavailable.Label(),
		}
	}
	hr := vitals.ClassifyHeartRate(latest.HeartRate)
	sp := vitals.ClassifySpO2(latest.SpO2)
	return Summary{
		Date:           orPlaceholder(latest.Date),
		Time:           orPlaceholder(latest.Time),
		HeartRate:      orPlaceholder(latest.HeartRate.Raw),
		SpO2:           orPlaceholder(latest.SpO2.Raw),
		Movements:      orPlaceholder(latest.Movements.Raw),
		HeartRateBand:  hr,
		HeartRateLabel: hr.Label(),
		SpO2Band:       sp,
		SpO2Label:      sp.Label(),
	}
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

func stats(w vitals.Window) Stats {
	if w.NoData {
		return Stats{NoData: true}
	}
	start, end := w.CoverageStart, w.CoverageEnd
	return Stats{
		Count:               w.Count,
		LowSpO2LastHour:     w.LowSpO2LastHour,
		ZeroMovementLast30m: w.ZeroMovementLast30m,
		MinutesSinceLast:    int(w.SinceLatest / time.Minute),
		CoverageStart:       &start,
		CoverageEnd:         &end,
		CoverageMonths:      w.CoverageMonths,
	}
}

func details(w vitals.Window) []string {
	if w.NoData {
		return []string{NoDataText}
	}

	movements := "OK"
	if w.ZeroMovementLast30m > 0 {
		movements = fmt.Sprintf("%d without movement", w.ZeroMovementLast30m)
	}

	return []string{
		fmt.Sprintf("Last update: %s (%s ago).", orPlaceholder(w.Latest.Time), Ago(w.SinceLatest)),
		fmt.Sprintf("SpO₂ < 90%% in 1 h: %d. Movements in 30 min: %s.", w.LowSpO2LastHour, movements),
		fmt.Sprintf("Coverage: %s – %s (%d months).",
			MonthYear(w.CoverageStart), MonthYear(w.CoverageEnd), w.CoverageMonths),
	}
}

// Ago formats an elapsed duration as "N min" below one hour and
// "H h M min" from one hour on.
func Ago(d time.Duration) string {
	mins := int(d.Round(time.Minute) / time.Minute)
	if mins < 60 {
		return fmt.Sprintf("%d min", mins)
	}
	return fmt.Sprintf("%d h %d min", mins/60, mins%60)
}

// MonthYear formats t as an abbreviated month and year ("Jul 2025").
func MonthYear(t time.Time) string {
	if t.IsZero() {
		return placeholder
	}
	return t.Format("Jan 2006")
}
