package poller

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fetalalert/fetalalert/dashboard/internal/source"
	"github.com/fetalalert/fetalalert/dashboard/internal/store"
	"github.com/fetalalert/fetalalert/dashboard/internal/view"
	"github.com/fetalalert/fetalalert/dashboard/internal/vitals"
	"github.com/fetalalert/fetalalert/pkg/types"
)

// uptimeWindow is the number of recent fetch outcomes tracked for uptime %.
const uptimeWindow = 20

// defaultFetchTimeout bounds a shared fetch when Options.FetchTimeout is 0.
const defaultFetchTimeout = 30 * time.Second

// Listener receives every view the poller renders.
// Listeners run synchronously on the refresh goroutine and must not block.
type Listener func(v *view.View)

// Options configures a Poller.
type Options struct {
	Interval   time.Duration
	TableLimit int
	MinDate    time.Time
	Location   *time.Location
	Query      source.Query

	// FetchTimeout bounds one shared fetch. The fetch is detached from the
	// callers' contexts so a caller giving up does not fail it for the
	// others.
	FetchTimeout time.Duration
}

// Poller owns the single refresh timer. It fetches from the source, renders
// the view, stores it and hands it to the listeners.
//
// All exported methods are safe for concurrent use.
type Poller struct {
	src   source.Source
	store *store.Store
	opts  Options
	now   func() time.Time // injectable for deterministic tests

	// group collapses concurrent refreshes onto one in-flight fetch.
	group singleflight.Group

	mu        sync.RWMutex
	query     source.Query
	gen       uint64 // bumped by SetQuery; results of older generations are dropped
	genCtx    context.Context
	genCancel context.CancelFunc
	last      *view.View
	listeners []Listener
	history   []bool // circular buffer of fetch outcomes, newest last
}

// New returns a Poller that has not fetched yet.
func New(src source.Source, st *store.Store, opts Options) *Poller {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	genCtx, genCancel := context.WithCancel(context.Background())
	return &Poller{
		src:       src,
		store:     st,
		opts:      opts,
		now:       time.Now,
		query:     opts.Query.Normalize(opts.MinDate),
		genCtx:    genCtx,
		genCancel: genCancel,
	}
}

// Subscribe registers l to receive every rendered view.
func (p *Poller) Subscribe(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

// Query returns the active query.
func (p *Poller) Query() source.Query {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.query
}

// Current returns the last rendered view, or the pending view before the
// first refresh.
func (p *Poller) Current() *view.View {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return view.Pending(p.query, p.now())
	}
	return p.last
}

// Rows returns a copy of the last rendered row set, newest first.
func (p *Poller) Rows() []types.Row {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil
	}
	out := make([]types.Row, len(p.last.Rows))
	copy(out, p.last.Rows)
	return out
}

// Refresh fetches and renders once. A call made while another refresh for
// the same query is in flight waits for that one and returns its view.
// If ctx ends first, Refresh returns the current view and the fetch keeps
// running for the other callers.
func (p *Poller) Refresh(ctx context.Context) *view.View {
	p.mu.RLock()
	gen, q, genCtx := p.gen, p.query, p.genCtx
	p.mu.RUnlock()

	ch := p.group.DoChan("refresh/"+strconv.FormatUint(gen, 10), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(genCtx, p.opts.FetchTimeout)
		defer cancel()
		return p.refresh(fetchCtx, gen, q), nil
	})
	select {
	case res := <-ch:
		if res.Shared {
			slog.Debug("poller: joined in-flight refresh")
		}
		return res.Val.(*view.View)
	case <-ctx.Done():
		return p.Current()
	}
}

// SetQuery applies q (normalised against the minimum date) and refreshes.
// A fetch still in flight for the previous query is cancelled and its
// result is discarded.
func (p *Poller) SetQuery(ctx context.Context, q source.Query) *view.View {
	q = q.Normalize(p.opts.MinDate)
	p.mu.Lock()
	if q.Key == "" {
		q.Key = p.query.Key
	}
	p.query = q
	p.gen++
	p.genCancel()
	p.genCtx, p.genCancel = context.WithCancel(context.Background())
	p.mu.Unlock()

	slog.Info("poller: query applied",
		"device_id", q.DeviceID, "patient_id", q.PatientID,
		"from", q.From.Format(vitals.ISODate), "to", q.To.Format(vitals.ISODate))

	return p.Refresh(ctx)
}

// Run performs an initial refresh and then one per interval until ctx is
// cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.Refresh(ctx)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// refresh fetches q and publishes the view unless SetQuery moved past gen
// while the fetch was running.
func (p *Poller) refresh(ctx context.Context, gen uint64, q source.Query) *view.View {
	res := p.src.Fetch(ctx, q)

	now := p.now()
	v := view.Build(res, q, now, p.opts.TableLimit, p.opts.Location)

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		slog.Debug("poller: dropped result of superseded query", "device_id", q.DeviceID)
		return v
	}
	p.recordFetch(res.Err == nil)
	v.Connection.UptimePct = p.uptimePct()
	p.last = v
	listeners := append([]Listener(nil), p.listeners...)
	p.mu.Unlock()

	if p.store != nil {
		p.store.Put(v)
	}
	for _, l := range listeners {
		l(v)
	}

	if res.Err != nil {
		slog.Warn("poller: fetch failed, showing unavailable", "err", res.Err)
	} else {
		slog.Debug("poller: refreshed",
			"rows", v.TotalRows, "status", v.Status.State, "latency_ms", v.Connection.LatencyMs)
	}
	return v
}

func (p *Poller) recordFetch(success bool) {
	if len(p.history) >= uptimeWindow {
		p.history = p.history[1:]
	}
	p.history = append(p.history, success)
}

func (p *Poller) uptimePct() float64 {
	if len(p.history) == 0 {
		return 100 // assume up before first observation
	}
	var ok int
	for _, s := range p.history {
		if s {
			ok++
		}
	}
	return float64(ok) / float64(len(p.history)) * 100
}
