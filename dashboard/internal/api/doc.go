// Package api implements the HTTP REST API of the dashboard.
//
// New(opts) returns an http.Handler that serves:
//
//	GET  /api/v1/view         full view: connection, summary, pill, details, table
//	GET  /api/v1/status       connection badge, status pill and staleness
//	GET  /api/v1/readings     newest rows of the selected range (?limit=N)
//	POST /api/v1/query        apply {deviceId, patientId, from, to} and refresh
//	POST /api/v1/refresh      refresh now
//	GET  /api/v1/export.csv   refresh, then download the selected range as CSV
//	GET  /api/v1/export.xlsx  same as XLSX
//	GET  /api/v1/alerts       firing and recently resolved alerts
//	GET  /api/v1/connection   last fetch outcome and TLS certificate status
//	GET  /api/v1/diagnostics  human-readable hints about the monitor's state
//	GET  /metrics             Prometheus text exposition of the latest view
//
// All JSON endpoints respond with Content-Type: application/json and return
// 405 for the wrong method. Exports with no rows return 404.
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
