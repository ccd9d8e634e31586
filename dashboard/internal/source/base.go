package source

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fetalalert/fetalalert/dashboard/internal/config"
	"github.com/fetalalert/fetalalert/pkg/types"
)

// ErrNotOK is reported when the source answers with "ok": false.
var ErrNotOK = errors.New("source: response not ok")

// FetchResult is the outcome of one fetch.
//
// A failed fetch has a non-nil Err and no rows. Callers render every kind of
// failure (transport, status, payload, ok=false) the same way.
type FetchResult struct {
	SourceType string
	Endpoint   string
	FetchedAt  time.Time
	Duration   time.Duration

	Rows []types.Row

	Err error
}

// OK reports whether the fetch succeeded.
func (r *FetchResult) OK() bool { return r.Err == nil }

// Source is implemented by every readings source.
//
// Fetch never returns a Go error: failures are folded into FetchResult.Err
// so one code path renders them.
type Source interface {
	Fetch(ctx context.Context, q Query) *FetchResult
}

// New returns the Source for the given configuration.
// The HTTP client is built once and reused across fetches.
func New(src config.Source) (Source, error) {
	switch src.Type {
	case "http":
		return newHTTPSource(src)
	case "file":
		return &fileSource{path: src.Endpoint}, nil
	default:
		return nil, fmt.Errorf("source: unsupported type %q", src.Type)
	}
}

// buildHTTPClient constructs the transport for the source's TLS settings.
func buildHTTPClient(src config.Source) *http.Client {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: src.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: tlsCfg,
		},
		Timeout: src.Timeout,
	}
}

// decodeList parses a list response body and checks its ok flag.
func decodeList(body []byte) ([]types.Row, error) {
	var resp types.ListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if !resp.OK {
		if resp.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrNotOK, resp.Error)
		}
		return nil, ErrNotOK
	}
	if resp.Rows == nil {
		return []types.Row{}, nil
	}
	return resp.Rows, nil
}

// newResult initialises an empty FetchResult stamped with the start time.
func newResult(sourceType, endpoint string) *FetchResult {
	return &FetchResult{
		SourceType: sourceType,
		Endpoint:   endpoint,
		FetchedAt:  time.Now().UTC(),
	}
}

// finish records the elapsed time and, on failure, clears the rows.
func (r *FetchResult) finish(err error) *FetchResult {
	r.Duration = time.Since(r.FetchedAt)
	if err != nil {
		r.Err = err
		r.Rows = nil
	}
	return r
}
