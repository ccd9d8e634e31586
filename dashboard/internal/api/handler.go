package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fetalalert/fetalalert/dashboard/internal/alerts"
	"github.com/fetalalert/fetalalert/dashboard/internal/export"
	"github.com/fetalalert/fetalalert/dashboard/internal/metrics"
	"github.com/fetalalert/fetalalert/dashboard/internal/security"
	"github.com/fetalalert/fetalalert/dashboard/internal/source"
	"github.com/fetalalert/fetalalert/dashboard/internal/store"
	"github.com/fetalalert/fetalalert/dashboard/internal/view"
	"github.com/fetalalert/fetalalert/dashboard/internal/vitals"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 1 << 16

// Dashboard is the refresh side of the handler, implemented by
// *poller.Poller.
type Dashboard interface {
	Current() *view.View
	Query() source.Query
	Refresh(ctx context.Context) *view.View
	SetQuery(ctx context.Context, q source.Query) *view.View
}

// AlertLister returns the alerts to show, implemented by *alerts.Engine.
type AlertLister interface {
	Active() []*alerts.Alert
}

// CertChecker reports the source certificate status, implemented by
// *security.Cache.
type CertChecker interface {
	Status(ctx context.Context) *security.CertStatus
}

// Options wires the handler to its collaborators. Alerts and Certs may be
// nil.
type Options struct {
	Dashboard      Dashboard
	Store          *store.Store
	Alerts         AlertLister
	Certs          CertChecker
	MinDate        time.Time
	Location       *time.Location
	ExportFilename string
}

// Handler is the HTTP handler for all /api/v1/* endpoints and /metrics.
type Handler struct {
	opts Options
	mux  *http.ServeMux
}

// New creates a Handler and registers all routes.
func New(opts Options) http.Handler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	h := &Handler{opts: opts, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/view", h.getView)
	h.mux.HandleFunc("/api/v1/status", h.status)
	h.mux.HandleFunc("/api/v1/readings", h.readings)
	h.mux.HandleFunc("/api/v1/query", h.query)
	h.mux.HandleFunc("/api/v1/refresh", h.refresh)
	h.mux.HandleFunc("/api/v1/export.csv", h.exportCSV)
	h.mux.HandleFunc("/api/v1/export.xlsx", h.exportXLSX)
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)
	h.mux.HandleFunc("/api/v1/connection", h.connection)
	h.mux.HandleFunc("/api/v1/diagnostics", h.diagnostics)
	h.mux.HandleFunc("/metrics", h.metrics)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// getView returns GET /api/v1/view: the last rendered view.
func (h *Handler) getView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	v, stale := h.latest()
	jsonResp(w, http.StatusOK, h.viewResponse(r.Context(), v, stale))
}

// status returns GET /api/v1/status: connection badge and status pill.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	v, stale := h.latest()
	resp := StatusResponse{
		Connection: v.Connection,
		Status:     v.Status,
		Stale:      stale,
	}
	if h.opts.Store != nil {
		if e, _ := h.opts.Store.Latest(); e != nil {
			updated := e.UpdatedAt.UTC()
			resp.UpdatedAt = &updated
			resp.AgeSeconds = h.opts.Store.Age().Seconds()
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// readings returns GET /api/v1/readings?limit=N: the newest N rows of the
// selected range (the table size by default).
func (h *Handler) readings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	v, _ := h.latest()

	rows := v.Table
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			jsonErr(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		rows = v.Rows
		if n < len(rows) {
			rows = rows[:n]
		}
	}
	jsonResp(w, http.StatusOK, ReadingsResponse{Rows: rows, Total: v.TotalRows})
}

// query handles POST /api/v1/query: applies a new device/date query and
// refreshes.
func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	q, err := h.applyRequest(h.opts.Dashboard.Query(), req)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	v := h.opts.Dashboard.SetQuery(r.Context(), q)
	jsonResp(w, http.StatusOK, h.viewResponse(r.Context(), v, false))
}

// refresh handles POST /api/v1/refresh.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	v := h.opts.Dashboard.Refresh(r.Context())
	jsonResp(w, http.StatusOK, h.viewResponse(r.Context(), v, false))
}

// exportCSV handles GET /api/v1/export.csv.
func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, export.FormatCSV, "text/csv; charset=utf-8")
}

// exportXLSX handles GET /api/v1/export.xlsx.
func (h *Handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, export.FormatXLSX, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

// export refreshes so the file matches the current source contents, then
// writes the full row set of the selected range.
func (h *Handler) export(w http.ResponseWriter, r *http.Request, format, contentType string) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	v := h.opts.Dashboard.Refresh(r.Context())

	var buf bytes.Buffer
	var err error
	switch format {
	case export.FormatXLSX:
		err = export.WriteXLSX(&buf, v.Rows)
	default:
		err = export.WriteCSV(&buf, v.Rows)
	}
	if errors.Is(err, export.ErrNoRows) {
		jsonErr(w, http.StatusNotFound, "no data to export")
		return
	}
	if err != nil {
		slog.Error("api: export failed", "format", format, "err", err)
		jsonErr(w, http.StatusInternalServerError, "export failed")
		return
	}

	name := export.Filename(h.opts.ExportFilename, format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// alerts returns GET /api/v1/alerts: firing and recently resolved alerts.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.opts.Alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.opts.Alerts.Active())
}

// connection returns GET /api/v1/connection: the last fetch outcome plus the
// source certificate status.
func (h *Handler) connection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	v, _ := h.latest()
	jsonResp(w, http.StatusOK, ConnectionResponse{Connection: v.Connection, Cert: h.cert(r.Context())})
}

// diagnostics returns GET /api/v1/diagnostics.
func (h *Handler) diagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	v, _ := h.latest()
	jsonResp(w, http.StatusOK, computeDiagnostics(v, h.cert(r.Context())))
}

// metrics serves GET /metrics in Prometheus text format.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	v, _ := h.latest()
	var buf bytes.Buffer
	if err := metrics.Encode(&buf, v); err != nil {
		slog.Error("api: metrics encode failed", "err", err)
		jsonErr(w, http.StatusInternalServerError, "metrics encode failed")
		return
	}
	w.Header().Set("Content-Type", metrics.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// --- helpers ----------------------------------------------------------------

// latest returns the stored view and its staleness, falling back to the
// dashboard's current (pending) view before the first refresh.
func (h *Handler) latest() (*view.View, bool) {
	if h.opts.Store != nil {
		if e, stale := h.opts.Store.Latest(); e != nil {
			return e.View, stale
		}
	}
	return h.opts.Dashboard.Current(), false
}

func (h *Handler) cert(ctx context.Context) *security.CertStatus {
	if h.opts.Certs == nil {
		return nil
	}
	return h.opts.Certs.Status(ctx)
}

func (h *Handler) viewResponse(ctx context.Context, v *view.View, stale bool) ViewResponse {
	return ViewResponse{View: v, Stale: stale, Diagnostics: computeDiagnostics(v, h.cert(ctx))}
}

// applyRequest merges req into the current query. Dates are parsed in the
// configured location.
func (h *Handler) applyRequest(cur source.Query, req QueryRequest) (source.Query, error) {
	q := cur
	if req.DeviceID != nil {
		q.DeviceID = *req.DeviceID
	}
	if req.PatientID != nil {
		q.PatientID = *req.PatientID
	}
	if req.From != "" {
		d, err := vitals.ParseISODate(req.From, h.opts.Location)
		if err != nil {
			return source.Query{}, fmt.Errorf("from: %w", err)
		}
		q.From = d
	}
	if req.To != "" {
		d, err := vitals.ParseISODate(req.To, h.opts.Location)
		if err != nil {
			return source.Query{}, fmt.Errorf("to: %w", err)
		}
		q.To = d
	}
	return q.Normalize(h.opts.MinDate), nil
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
