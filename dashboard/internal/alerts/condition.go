package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fetalalert/fetalalert/dashboard/internal/view"
	"github.com/fetalalert/fetalalert/pkg/types"
)

// condition is a parsed rule expression of the form "field op value".
//
// Supported expressions:
//
//	status == alert            (alert | observation | ok | idle)
//	connection == err          (idle | ok | err)
//	heart_rate > 120
//	spo2 < 90
//	movements == 0
//	spo2_low_1h > 2
//	zero_movement_30m > 0
//	minutes_since_last > 30
//	uptime_pct < 50
type condition struct {
	field string
	op    string
	text  string  // right-hand side for state fields
	num   float64 // right-hand side for numeric fields
}

var stateFields = map[string]bool{"status": true, "connection": true}

var numericFields = map[string]bool{
	"heart_rate":         true,
	"spo2":               true,
	"movements":          true,
	"spo2_low_1h":        true,
	"zero_movement_30m":  true,
	"minutes_since_last": true,
	"uptime_pct":         true,
}

// parseCondition parses cond, rejecting unknown fields and operators.
func parseCondition(cond string) (condition, error) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return condition{}, fmt.Errorf("alerts: condition %q: want \"field op value\"", cond)
	}
	c := condition{field: parts[0], op: parts[1], text: parts[2]}

	switch {
	case stateFields[c.field]:
		if c.op != "==" && c.op != "!=" {
			return condition{}, fmt.Errorf("alerts: condition %q: %s supports == and != only", cond, c.field)
		}
	case numericFields[c.field]:
		switch c.op {
		case ">", ">=", "<", "<=", "==", "!=":
		default:
			return condition{}, fmt.Errorf("alerts: condition %q: unknown operator %q", cond, c.op)
		}
		n, err := strconv.ParseFloat(c.text, 64)
		if err != nil {
			return condition{}, fmt.Errorf("alerts: condition %q: %w", cond, err)
		}
		c.num = n
	default:
		return condition{}, fmt.Errorf("alerts: condition %q: unknown field %q", cond, c.field)
	}
	return c, nil
}

// eval tests the condition against v and returns whether it fires and the
// triggering value. Fields with nothing to compare (no reading, no data in
// range, unavailable value) never fire.
func (c condition) eval(v *view.View) (bool, float64) {
	switch c.field {
	case "status":
		return compareText(string(v.Status.State), c.op, c.text), 0
	case "connection":
		return compareText(v.Connection.State, c.op, c.text), 0
	}

	val, ok := numericField(c.field, v)
	if !ok {
		return false, 0
	}
	return compareFloat(val, c.op, c.num), val
}

// numericField maps a field name to its value in the view.
func numericField(field string, v *view.View) (float64, bool) {
	switch field {
	case "heart_rate":
		return latestValue(v, func(r types.Row) types.Value { return r.HeartRate })
	case "spo2":
		return latestValue(v, func(r types.Row) types.Value { return r.SpO2 })
	case "movements":
		return latestValue(v, func(r types.Row) types.Value { return r.Movements })
	case "uptime_pct":
		return v.Connection.UptimePct, true
	}

	if v.Stats.NoData {
		return 0, false
	}
	switch field {
	case "spo2_low_1h":
		return float64(v.Stats.LowSpO2LastHour), true
	case "zero_movement_30m":
		return float64(v.Stats.ZeroMovementLast30m), true
	case "minutes_since_last":
		return float64(v.Stats.MinutesSinceLast), true
	default:
		return 0, false
	}
}

func latestValue(v *view.View, pick func(types.Row) types.Value) (float64, bool) {
	if v.Latest == nil {
		return 0, false
	}
	val := pick(v.Latest.Row)
	return val.Num, val.Valid
}

func compareText(v, op, want string) bool {
	if op == "!=" {
		return v != want
	}
	return v == want
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
