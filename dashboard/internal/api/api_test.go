package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fetalalert/fetalalert/dashboard/internal/alerts"
	"github.com/fetalalert/fetalalert/dashboard/internal/api"
	"github.com/fetalalert/fetalalert/dashboard/internal/config"
	"github.com/fetalalert/fetalalert/dashboard/internal/export"
	"github.com/fetalalert/fetalalert/dashboard/internal/poller"
	"github.com/fetalalert/fetalalert/dashboard/internal/security"
	"github.com/fetalalert/fetalalert/dashboard/internal/source"
	"github.com/fetalalert/fetalalert/dashboard/internal/store"
	"github.com/fetalalert/fetalalert/pkg/types"
)

var minDate = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

// --- test helpers -----------------------------------------------------------

// fakeSource serves fixed rows (or a failure) and records queries.
type fakeSource struct {
	mu      sync.Mutex
	rows    []types.Row
	fail    bool
	queries []source.Query
}

func (f *fakeSource) Fetch(_ context.Context, q source.Query) *source.FetchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	res := &source.FetchResult{SourceType: "fake", Endpoint: "mem://", FetchedAt: time.Now()}
	if f.fail {
		res.Err = assert.AnError
		return res
	}
	res.Rows = f.rows
	return res
}

func (f *fakeSource) lastQuery() source.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

// recentRows returns n readings dated today, one minute apart, newest first.
func recentRows(n int) []types.Row {
	base := time.Now().UTC().Add(-5 * time.Minute)
	rows := make([]types.Row, n)
	for i := range rows {
		at := base.Add(-time.Duration(i) * time.Minute)
		rows[i] = types.Row{
			Date:      at.Format("02/01/2006"),
			Time:      at.Format("15:04"),
			HeartRate: types.Number(100),
			SpO2:      types.Number(97),
			Movements: types.Number(2),
		}
	}
	return rows
}

type fixture struct {
	h      http.Handler
	src    *fakeSource
	poller *poller.Poller
	store  *store.Store
}

func newFixture(t *testing.T, rows []types.Row, opts ...func(*api.Options)) *fixture {
	t.Helper()
	src := &fakeSource{rows: rows}
	st := store.New(5 * time.Minute)
	today := time.Now().UTC()
	p := poller.New(src, st, poller.Options{
		Interval:   time.Minute,
		TableLimit: 50,
		MinDate:    minDate,
		Location:   time.UTC,
		Query: source.Query{
			Key:  "secret",
			From: minDate,
			To:   time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC),
		},
	})
	o := api.Options{
		Dashboard:      p,
		Store:          st,
		MinDate:        minDate,
		Location:       time.UTC,
		ExportFilename: "historial_fetalalert.csv",
	}
	for _, fn := range opts {
		fn(&o)
	}
	return &fixture{h: api.New(o), src: src, poller: p, store: st}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/v1/view -----------------------------------------------------------

func TestView_BeforeFirstRefresh(t *testing.T) {
	f := newFixture(t, recentRows(3))
	rr := get(t, f.h, "/api/v1/view")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	decode(t, rr, &resp)
	conn := resp["connection"].(map[string]interface{})
	assert.Equal(t, "idle", conn["state"])
	assert.Equal(t, "Connecting to FA Cloud…", conn["label"])
	assert.Equal(t, false, resp["stale"])
}

func TestView_AfterRefresh(t *testing.T) {
	f := newFixture(t, recentRows(3))
	f.poller.Refresh(context.Background())

	rr := get(t, f.h, "/api/v1/view")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp map[string]interface{}
	decode(t, rr, &resp)
	assert.Equal(t, "ok", resp["connection"].(map[string]interface{})["state"])
	assert.Equal(t, "ok", resp["status"].(map[string]interface{})["state"])
	assert.Len(t, resp["table"], 3)
	assert.Len(t, resp["details"], 3)
	assert.NotContains(t, resp, "Rows")
	assert.NotEmpty(t, resp["diagnostics"])
}

func TestView_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, nil)
	rr := post(t, f.h, "/api/v1/view", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

// --- /api/v1/status ---------------------------------------------------------

func TestStatus_FailedFetch(t *testing.T) {
	f := newFixture(t, recentRows(2))
	f.src.fail = true
	f.poller.Refresh(context.Background())

	rr := get(t, f.h, "/api/v1/status")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.StatusResponse
	decode(t, rr, &resp)
	assert.Equal(t, "err", resp.Connection.State)
	assert.Equal(t, "No connection to FA Cloud", resp.Connection.Label)
	assert.Equal(t, "idle", string(resp.Status.State))
	assert.NotNil(t, resp.UpdatedAt)
	assert.False(t, resp.Stale)
}

// --- /api/v1/readings -------------------------------------------------------

func TestReadings_DefaultIsTable(t *testing.T) {
	f := newFixture(t, recentRows(60))
	f.poller.Refresh(context.Background())

	var resp api.ReadingsResponse
	decode(t, get(t, f.h, "/api/v1/readings"), &resp)
	assert.Len(t, resp.Rows, 50)
	assert.Equal(t, 60, resp.Total)
}

func TestReadings_Limit(t *testing.T) {
	f := newFixture(t, recentRows(60))
	f.poller.Refresh(context.Background())

	var resp api.ReadingsResponse
	decode(t, get(t, f.h, "/api/v1/readings?limit=55"), &resp)
	assert.Len(t, resp.Rows, 55)

	decode(t, get(t, f.h, "/api/v1/readings?limit=5"), &resp)
	assert.Len(t, resp.Rows, 5)
}

func TestReadings_BadLimit(t *testing.T) {
	f := newFixture(t, nil)
	for _, q := range []string{"abc", "-1"} {
		rr := get(t, f.h, "/api/v1/readings?limit="+q)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

// --- /api/v1/query and /api/v1/refresh --------------------------------------

func TestQuery_AppliesAndNormalises(t *testing.T) {
	f := newFixture(t, recentRows(2))
	rr := post(t, f.h, "/api/v1/query", `{"deviceId":"FA-09","from":"2025-01-01","to":"2025-06-30"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	q := f.src.lastQuery()
	assert.Equal(t, "FA-09", q.DeviceID)
	assert.Equal(t, "secret", q.Key, "key is kept")
	assert.True(t, q.From.Equal(minDate), "from clamped")
	assert.True(t, q.To.Equal(minDate), "to raised to from")

	var resp map[string]interface{}
	decode(t, rr, &resp)
	query := resp["query"].(map[string]interface{})
	assert.Equal(t, "FA-09", query["device_id"])
	assert.Equal(t, "2025-07-01", query["from"])
}

func TestQuery_KeepsUnsetFields(t *testing.T) {
	f := newFixture(t, recentRows(2))
	post(t, f.h, "/api/v1/query", `{"deviceId":"FA-09","patientId":"P-1"}`)
	rr := post(t, f.h, "/api/v1/query", `{"from":"2025-07-10"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	q := f.src.lastQuery()
	assert.Equal(t, "FA-09", q.DeviceID)
	assert.Equal(t, "P-1", q.PatientID)
	assert.Equal(t, 10, q.From.Day())
}

func TestQuery_BadRequest(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, http.StatusBadRequest, post(t, f.h, "/api/v1/query", `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, f.h, "/api/v1/query", `{"from":"10/07/2025"}`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, get(t, f.h, "/api/v1/query").Code)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t, recentRows(4))
	rr := post(t, f.h, "/api/v1/refresh", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	decode(t, rr, &resp)
	assert.EqualValues(t, 4, resp["total_rows"])

	e, _ := f.store.Latest()
	require.NotNil(t, e)
	assert.Equal(t, 4, e.View.TotalRows)
}

// --- exports ----------------------------------------------------------------

func TestExportCSV(t *testing.T) {
	rows := recentRows(3)
	f := newFixture(t, rows)

	rr := get(t, f.h, "/api/v1/export.csv")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="historial_fetalalert.csv"`)

	got, err := export.ParseCSV(rr.Body)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestExportXLSX(t *testing.T) {
	f := newFixture(t, recentRows(2))

	rr := get(t, f.h, "/api/v1/export.xlsx")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "historial_fetalalert.xlsx")

	wb, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	sheet, err := wb.GetRows(export.SheetName)
	require.NoError(t, err)
	assert.Len(t, sheet, 3)
}

func TestExport_NoRows(t *testing.T) {
	f := newFixture(t, nil)
	for _, path := range []string{"/api/v1/export.csv", "/api/v1/export.xlsx"} {
		rr := get(t, f.h, path)
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		var resp map[string]string
		decode(t, rr, &resp)
		assert.Equal(t, "no data to export", resp["error"])
	}
}

// --- alerts, connection, diagnostics, metrics -------------------------------

func TestAlerts_EmptyWithoutEngine(t *testing.T) {
	f := newFixture(t, nil)
	rr := get(t, f.h, "/api/v1/alerts")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestAlerts_FromEngine(t *testing.T) {
	engine := alerts.New(config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "connection-lost", Condition: "connection == err", Severity: "critical"},
	}})
	f := newFixture(t, nil, func(o *api.Options) { o.Alerts = engine })
	f.poller.Subscribe(engine.Evaluate)
	f.src.fail = true
	f.poller.Refresh(context.Background())

	var resp []alerts.Alert
	decode(t, get(t, f.h, "/api/v1/alerts"), &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "connection-lost", resp[0].RuleName)
	assert.Equal(t, alerts.StateFiring, resp[0].State)
}

type staticCert struct{ cs *security.CertStatus }

func (s staticCert) Status(context.Context) *security.CertStatus { return s.cs }

func TestConnection_IncludesCert(t *testing.T) {
	cert := &security.CertStatus{Endpoint: "https://example.test", Status: "expiring", DaysLeft: 7}
	f := newFixture(t, recentRows(1), func(o *api.Options) { o.Certs = staticCert{cert} })
	f.poller.Refresh(context.Background())

	var resp api.ConnectionResponse
	decode(t, get(t, f.h, "/api/v1/connection"), &resp)
	assert.Equal(t, "ok", resp.State)
	require.NotNil(t, resp.Cert)
	assert.Equal(t, "expiring", resp.Cert.Status)

	var hints []api.DiagnosticHint
	decode(t, get(t, f.h, "/api/v1/diagnostics"), &hints)
	keys := make([]string, 0, len(hints))
	for _, hnt := range hints {
		keys = append(keys, hnt.Key)
	}
	assert.Contains(t, keys, "cert_expiring")
}

func TestDiagnostics_FetchFailed(t *testing.T) {
	f := newFixture(t, nil)
	f.src.fail = true
	f.poller.Refresh(context.Background())

	var hints []api.DiagnosticHint
	decode(t, get(t, f.h, "/api/v1/diagnostics"), &hints)
	require.NotEmpty(t, hints)
	assert.Equal(t, "fetch_failed", hints[0].Key)
	assert.Equal(t, "critical", hints[0].Level)
}

func TestDiagnostics_AllClear(t *testing.T) {
	f := newFixture(t, recentRows(3))
	f.poller.Refresh(context.Background())

	var hints []api.DiagnosticHint
	decode(t, get(t, f.h, "/api/v1/diagnostics"), &hints)
	require.Len(t, hints, 1)
	assert.Equal(t, "all_clear", hints[0].Key)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, recentRows(3))
	f.poller.Refresh(context.Background())

	rr := get(t, f.h, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain"))

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(rr.Body)
	require.NoError(t, err)
	require.Contains(t, mfs, "fetalalert_rows")
	assert.Equal(t, 3.0, mfs["fetalalert_rows"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 100.0, mfs["fetalalert_heart_rate_bpm"].GetMetric()[0].GetGauge().GetValue())
}
