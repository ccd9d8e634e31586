package api

import (
	"fmt"
	"sort"
	"time"

	"github.com/fetalalert/fetalalert/dashboard/internal/security"
	"github.com/fetalalert/fetalalert/dashboard/internal/view"
	"github.com/fetalalert/fetalalert/dashboard/internal/vitals"
)

// staleReadingMinutes is how old the latest reading may get before it is
// flagged.
const staleReadingMinutes = 30

// DiagnosticHint is one human-readable insight about the monitor's state.
// The UI shows these as chips under the status pill; Detail is the full
// explanation shown on hover.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip.
	Title string `json:"title"`
	// Detail is the full explanation.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

var levelOrder = map[string]int{"critical": 0, "warning": 1, "info": 2, "ok": 3}

// computeDiagnostics derives hints from a view and the source certificate
// status (nil when the source is not HTTPS).
// Hints are ordered: critical first, then warnings, then info.
func computeDiagnostics(v *view.View, cert *security.CertStatus) []DiagnosticHint {
	var hints []DiagnosticHint

	switch v.Connection.State {
	case view.ConnErr:
		hints = append(hints, DiagnosticHint{
			Key:   "fetch_failed",
			Level: "critical",
			Title: "Can't reach source",
			Detail: fmt.Sprintf(
				"The last request to the data source failed: %q. "+
					"Check that the endpoint is reachable and the key is correct. "+
					"The dashboard retries on the next poll.",
				v.Connection.ErrorMessage,
			),
		})
		return append(hints, certHints(cert)...)
	case view.ConnIdle:
		return []DiagnosticHint{{
			Key:    "connecting",
			Level:  "info",
			Title:  "Connecting",
			Detail: "The first request to the data source has not completed yet.",
		}}
	}

	if v.Stats.NoData {
		hints = append(hints, DiagnosticHint{
			Key:    "no_data",
			Level:  "info",
			Title:  "No readings in range",
			Detail: "The source answered but has no readings for the selected device and dates. Widen the date range or check the device ID.",
		})
	} else {
		hints = append(hints, readingHints(v)...)
	}

	if u := v.Connection.UptimePct; u > 0 && u < 100 {
		val := u
		level := "info"
		switch {
		case u < 70:
			level = "critical"
		case u < 90:
			level = "warning"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "uptime",
			Level: level,
			Title: fmt.Sprintf("%.0f%% uptime", u),
			Detail: fmt.Sprintf(
				"The source answered %.0f%% of the last requests. "+
					"Intermittent failures usually point at network trouble or an overloaded backend.",
				u,
			),
			Value: &val,
		})
	}

	hints = append(hints, certHints(cert)...)

	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "all_clear",
			Level:  "ok",
			Title:  "All clear",
			Detail: "The latest reading is within range and the source is healthy.",
		})
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return levelOrder[hints[i].Level] < levelOrder[hints[j].Level]
	})
	return hints
}

func readingHints(v *view.View) []DiagnosticHint {
	var hints []DiagnosticHint

	if mins := v.Stats.MinutesSinceLast; mins > staleReadingMinutes {
		val := float64(mins)
		hints = append(hints, DiagnosticHint{
			Key:   "stale_reading",
			Level: "warning",
			Title: "No recent readings",
			Detail: fmt.Sprintf(
				"The latest reading is %s old. The device may be off or disconnected.",
				view.Ago(time.Duration(mins)*time.Minute),
			),
			Value: &val,
		})
	}

	hints = append(hints, bandHint("heart_rate", "Heart rate", v.Summary.HeartRateBand, v.Summary.HeartRate, "bpm")...)
	hints = append(hints, bandHint("spo2", "SpO₂", v.Summary.SpO2Band, v.Summary.SpO2, "%")...)

	if n := v.Stats.LowSpO2LastHour; n > 0 {
		val := float64(n)
		level := "warning"
		if n >= 3 {
			level = "critical"
		}
		hints = append(hints, DiagnosticHint{
			Key:    "low_spo2_hour",
			Level:  level,
			Title:  fmt.Sprintf("%d low SpO₂ in 1 h", n),
			Detail: fmt.Sprintf("%d readings in the last hour had oxygen saturation below %.0f%%.", n, vitals.SpO2OutOfRange),
			Value:  &val,
		})
	}

	if n := v.Stats.ZeroMovementLast30m; n > 0 {
		val := float64(n)
		hints = append(hints, DiagnosticHint{
			Key:    "zero_movement",
			Level:  "warning",
			Title:  fmt.Sprintf("%d without movement", n),
			Detail: fmt.Sprintf("%d readings in the last 30 minutes recorded no fetal movement.", n),
			Value:  &val,
		})
	}
	return hints
}

func bandHint(key, name string, band vitals.Band, value, unit string) []DiagnosticHint {
	switch band {
	case vitals.BandOutOfRange:
		return []DiagnosticHint{{
			Key:    key + "_out_of_range",
			Level:  "critical",
			Title:  name + " out of range",
			Detail: fmt.Sprintf("The latest %s (%s %s) is outside the established threshold.", name, value, unit),
		}}
	case vitals.BandObservation:
		return []DiagnosticHint{{
			Key:    key + "_observation",
			Level:  "warning",
			Title:  name + " under observation",
			Detail: fmt.Sprintf("The latest %s (%s %s) is in the observation zone.", name, value, unit),
		}}
	default:
		return nil
	}
}

func certHints(cert *security.CertStatus) []DiagnosticHint {
	if cert == nil {
		return nil
	}
	days := float64(cert.DaysLeft)
	switch cert.Status {
	case "expired":
		return []DiagnosticHint{{
			Key:    "cert_expired",
			Level:  "critical",
			Title:  "Certificate expired",
			Detail: fmt.Sprintf("The TLS certificate of %s expired on %s.", cert.Endpoint, cert.NotAfter),
			Value:  &days,
		}}
	case "expiring":
		return []DiagnosticHint{{
			Key:    "cert_expiring",
			Level:  "warning",
			Title:  fmt.Sprintf("Certificate expires in %d days", cert.DaysLeft),
			Detail: fmt.Sprintf("The TLS certificate of %s expires on %s.", cert.Endpoint, cert.NotAfter),
			Value:  &days,
		}}
	default:
		return nil
	}
}
