// Package vitals derives point-in-time status and rolling-window statistics
// from the raw reading stream.
//
// reading.go turns a wire Row (dd/mm/yyyy date, HH:MM time) into a Reading
// with a comparable timestamp. Rows whose date cannot be parsed never become
// Readings.
//
// classify.go maps single heart-rate and SpO2 values to a Band
// (unavailable, out_of_range, observation, normal) and combines the bands of
// the latest reading into the overall Status shown in the status pill.
//
// window.go provides the pure Aggregate(readings, now) function: low-SpO2
// count in the last hour, zero-movement count in the last 30 minutes, and the
// coverage span in whole months. Empty input yields Window{NoData: true}.
//
// sequence.go drops unparsable rows, applies the optional inclusive date
// range and orders the rest most recent first.
//
// Every function takes its clock and location explicitly so tests are
// deterministic.
package vitals
