package api

import (
	"time"

	"github.com/fetalalert/fetalalert/dashboard/internal/security"
	"github.com/fetalalert/fetalalert/dashboard/internal/view"
	"github.com/fetalalert/fetalalert/pkg/types"
)

// ViewResponse is the payload for GET /api/v1/view and the POST endpoints
// that trigger a refresh.
type ViewResponse struct {
	*view.View
	Stale       bool             `json:"stale"`
	Diagnostics []DiagnosticHint `json:"diagnostics"`
}

// StatusResponse is the payload for GET /api/v1/status.
type StatusResponse struct {
	Connection view.Connection `json:"connection"`
	Status     view.Pill       `json:"status"`
	Stale      bool            `json:"stale"`
	UpdatedAt  *time.Time      `json:"updated_at,omitempty"`
	AgeSeconds float64         `json:"age_seconds"`
}

// ReadingsResponse is the payload for GET /api/v1/readings.
type ReadingsResponse struct {
	Rows  []types.Row `json:"rows"`
	Total int         `json:"total"`
}

// QueryRequest is the body of POST /api/v1/query. Dates are YYYY-MM-DD;
// empty fields keep the current value.
type QueryRequest struct {
	DeviceID  *string `json:"deviceId"`
	PatientID *string `json:"patientId"`
	From      string  `json:"from"`
	To        string  `json:"to"`
}

// ConnectionResponse is the payload for GET /api/v1/connection.
type ConnectionResponse struct {
	view.Connection
	Cert *security.CertStatus `json:"cert,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
