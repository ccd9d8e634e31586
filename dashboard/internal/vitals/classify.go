package vitals

import "github.com/fetalalert/fetalalert/pkg/types"

// Band is the severity band of a single vital-sign value.
type Band string

// Band values returned by the classifiers.
const (
	BandUnavailable Band = "unavailable"
	BandOutOfRange  Band = "out_of_range"
	BandObservation Band = "observation"
	BandNormal      Band = "normal"
)

// Heart-rate thresholds in beats per minute. Values outside [Min, Max] are
// out of range; values inside it but outside [InnerMin, InnerMax] are under
// observation.
const (
	HeartRateMin      = 60.0
	HeartRateMax      = 120.0
	HeartRateInnerMin = 65.0
	HeartRateInnerMax = 110.0
)

// Oxygen saturation thresholds in percent.
const (
	SpO2OutOfRange = 90.0 // below: out of range
	SpO2Normal     = 94.0 // at or above: normal
)

// Status is the overall state of the latest reading (the status pill).
type Status string

// Status values, from most to least severe.
const (
	StatusAlert       Status = "alert"
	StatusObservation Status = "observation"
	StatusOK          Status = "ok"
	StatusIdle        Status = "idle"
)

// ClassifyHeartRate returns the band for a heart-rate value.
func ClassifyHeartRate(v types.Value) Band {
	if !v.Valid {
		return BandUnavailable
	}
	switch hr := v.Num; {
	case hr < HeartRateMin || hr > HeartRateMax:
		return BandOutOfRange
	case hr < HeartRateInnerMin || hr > HeartRateInnerMax:
		return BandObservation
	default:
		return BandNormal
	}
}

// ClassifySpO2 returns the band for an oxygen saturation value.
func ClassifySpO2(v types.Value) Band {
	if !v.Valid {
		return BandUnavailable
	}
	switch s := v.Num; {
	case s < SpO2OutOfRange:
		return BandOutOfRange
	case s < SpO2Normal:
		return BandObservation
	default:
		return BandNormal
	}
}

// Overall combines the bands of the latest reading into a Status.
// A nil reading (nothing received yet) is idle.
func Overall(latest *Reading) Status {
	if latest == nil {
		return StatusIdle
	}
	hr := ClassifyHeartRate(latest.HeartRate)
	sp := ClassifySpO2(latest.SpO2)
	switch {
	case hr == BandOutOfRange || sp == BandOutOfRange:
		return StatusAlert
	case hr == BandObservation || sp == BandObservation:
		return StatusObservation
	default:
		return StatusOK
	}
}

// Label returns the card label shown next to a vital sign.
func (b Band) Label() string {
	switch b {
	case BandOutOfRange:
		return "Outside established threshold"
	case BandObservation:
		return "Observation zone"
	case BandNormal:
		return "Within threshold"
	default:
		return "–"
	}
}

// Label returns the text of the status pill.
func (s Status) Label() string {
	switch s {
	case StatusAlert:
		return "Alert"
	case StatusObservation:
		return "Under observation"
	case StatusOK:
		return "Within range"
	default:
		return "Waiting for data…"
	}
}
