// Package view turns one fetch result into the dashboard's rendering model.
//
// Build sequences the rows for the active query, aggregates the rolling
// windows and produces the connection badge, the latest-reading summary,
// the status pill, the detail lines and the table. A failed fetch renders
// as an error badge over an idle, empty dashboard.
package view
