// Package metrics exposes the latest dashboard view as Prometheus gauges.
package metrics
