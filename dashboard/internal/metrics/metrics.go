package metrics

import (
	"fmt"
	"io"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/fetalalert/fetalalert/dashboard/internal/view"
	"github.com/fetalalert/fetalalert/dashboard/internal/vitals"
	"github.com/fetalalert/fetalalert/pkg/types"
)

// ContentType is the exposition format written by Encode.
var ContentType = string(expfmt.NewFormat(expfmt.TypeTextPlain))

var statuses = []vitals.Status{
	vitals.StatusAlert,
	vitals.StatusObservation,
	vitals.StatusOK,
	vitals.StatusIdle,
}

// Families converts v into gauge families. Vital-sign gauges are omitted
// when the latest reading has no numeric value for them, and window gauges
// are omitted when the range holds no data.
func Families(v *view.View) []*dto.MetricFamily {
	var out []*dto.MetricFamily

	if l := v.Latest; l != nil {
		out = appendValue(out, "fetalalert_heart_rate_bpm", "Heart rate of the latest reading.", l.HeartRate)
		out = appendValue(out, "fetalalert_spo2_percent", "Oxygen saturation of the latest reading.", l.SpO2)
		out = appendValue(out, "fetalalert_movement_count", "Fetal movement count of the latest reading.", l.Movements)
	}

	if !v.Stats.NoData {
		out = append(out,
			gauge("fetalalert_low_spo2_last_hour", "Readings with SpO2 below 90% in the last hour.", float64(v.Stats.LowSpO2LastHour)),
			gauge("fetalalert_zero_movement_last_30m", "Readings with zero movements in the last 30 minutes.", float64(v.Stats.ZeroMovementLast30m)),
			gauge("fetalalert_minutes_since_last", "Minutes since the latest reading.", float64(v.Stats.MinutesSinceLast)),
			gauge("fetalalert_coverage_months", "Calendar months spanned by the readings in range.", float64(v.Stats.CoverageMonths)),
		)
	}

	status := &dto.MetricFamily{
		Name: ptr("fetalalert_status"),
		Help: ptr("Overall status of the latest reading (1 for the current status)."),
		Type: dto.MetricType_GAUGE.Enum(),
	}
	for _, s := range statuses {
		var val float64
		if v.Status.State == s {
			val = 1
		}
		status.Metric = append(status.Metric, &dto.Metric{
			Label: []*dto.LabelPair{{Name: ptr("status"), Value: ptr(string(s))}},
			Gauge: &dto.Gauge{Value: ptr(val)},
		})
	}
	out = append(out, status)

	var up float64
	if v.Connection.State == view.ConnOK {
		up = 1
	}
	out = append(out,
		gauge("fetalalert_source_up", "Whether the last fetch from the data source succeeded.", up),
		gauge("fetalalert_source_uptime_percent", "Share of recent fetches that succeeded.", v.Connection.UptimePct),
		gauge("fetalalert_rows", "Readings in the selected range.", float64(v.TotalRows)),
	)
	return out
}

// Encode writes the families for v in Prometheus text format.
func Encode(w io.Writer, v *view.View) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range Families(v) {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func appendValue(out []*dto.MetricFamily, name, help string, v types.Value) []*dto.MetricFamily {
	if !v.Valid {
		return out
	}
	return append(out, gauge(name, help, v.Num))
}

func gauge(name, help string, val float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(name),
		Help:   ptr(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: ptr(val)}}},
	}
}

func ptr[T any](v T) *T { return &v }
