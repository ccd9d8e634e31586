// Package security inspects the TLS certificate of the data source endpoint
// so the dashboard can warn before it expires.
package security
