package alerts

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/fetalalert/fetalalert/dashboard/internal/config"
	"github.com/fetalalert/fetalalert/dashboard/internal/view"
)

const (
	defaultCooldown = 15 * time.Minute
	maxHistoryLen   = 200
	recentWindow    = time.Hour
	webhookTimeout  = 10 * time.Second
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	DeviceID   string     `json:"device_id,omitempty"`
	Severity   string     `json:"severity"`
	Condition  string     `json:"condition"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
}

type rule struct {
	config.AlertRule
	cond condition
}

// Engine evaluates alert rules against each rendered view and delivers
// webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	client *resty.Client
	now    func() time.Time // injectable for deterministic tests

	// deliverWG tracks in-flight webhook deliveries.
	deliverWG sync.WaitGroup

	mu       sync.Mutex
	rules    []rule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: "ruleName:deviceID"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts
}

// New creates an Engine from the alert configuration. Rules whose condition
// does not parse are logged and skipped. An Engine with no rules is valid;
// Evaluate is then a no-op.
func New(cfg config.AlertsConfig) *Engine {
	return &Engine{
		rules:    parseRules(cfg.Rules),
		webhooks: cfg.Webhooks,
		client:   resty.New().SetTimeout(webhookTimeout).SetRetryCount(0),
		now:      time.Now,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
	}
}

func parseRules(cfg []config.AlertRule) []rule {
	var rules []rule
	for _, r := range cfg {
		c, err := parseCondition(r.Condition)
		if err != nil {
			slog.Warn("alerts: skipping rule", "rule", r.Name, "err", err)
			continue
		}
		rules = append(rules, rule{AlertRule: r, cond: c})
	}
	return rules
}

// Reload replaces the rules and webhooks. Firing alerts whose rule was
// removed are resolved without notification; cooldowns of kept rules
// carry over.
func (e *Engine) Reload(cfg config.AlertsConfig) {
	rules := parseRules(cfg.Rules)
	names := make(map[string]bool, len(rules))
	for _, r := range rules {
		names[r.Name] = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = rules
	e.webhooks = cfg.Webhooks

	now := e.now()
	for key, a := range e.active {
		if names[a.RuleName] {
			continue
		}
		resolved := now
		a.State = StateResolved
		a.ResolvedAt = &resolved
		delete(e.active, key)
		delete(e.lastFire, key)
		e.history = append(e.history, a)
	}
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
	slog.Info("alerts: rules reloaded", "rules", len(rules), "webhooks", len(cfg.Webhooks))
}

// Evaluate tests all rules against v.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(v *view.View) {
	e.mu.Lock()
	rules := e.rules
	e.mu.Unlock()
	if len(rules) == 0 {
		return
	}

	now := e.now()
	device := v.Query.DeviceID
	for _, r := range rules {
		key := r.Name + ":" + device
		fires, value := r.cond.eval(v)

		e.mu.Lock()
		if fires {
			e.fire(r, key, device, value, now)
		} else {
			e.resolve(r, key, device, now)
		}
	}
}

// fire records a firing alert unless the rule is cooling down.
// Called with e.mu held; releases it.
func (e *Engine) fire(r rule, key, device string, value float64, now time.Time) {
	cooldown := r.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	if last, ok := e.lastFire[key]; ok && now.Sub(last) <= cooldown {
		e.mu.Unlock()
		return
	}

	sev := r.Severity
	if sev == "" {
		sev = "warning"
	}
	a := &Alert{
		ID:        uuid.NewString(),
		RuleName:  r.Name,
		DeviceID:  device,
		Severity:  sev,
		Condition: r.Condition,
		Value:     value,
		Message:   message(r, sev, device, value),
		FiredAt:   now,
		State:     StateFiring,
	}
	e.active[key] = a
	e.lastFire[key] = now
	alertCopy := *a
	webhooks := e.webhooks
	e.mu.Unlock()

	slog.Warn("alerts: fired",
		"rule", r.Name,
		"device_id", device,
		"value", value,
		"severity", sev,
	)
	e.deliverAsync(&alertCopy, webhooks)
}

// resolve moves a firing alert for key to history.
// Called with e.mu held; releases it.
func (e *Engine) resolve(r rule, key, device string, now time.Time) {
	a, ok := e.active[key]
	if !ok {
		e.mu.Unlock()
		return
	}
	resolved := now
	a.State = StateResolved
	a.ResolvedAt = &resolved
	delete(e.active, key)

	e.history = append(e.history, a)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
	alertCopy := *a
	webhooks := e.webhooks
	e.mu.Unlock()

	slog.Info("alerts: resolved", "rule", r.Name, "device_id", device)
	e.deliverAsync(&alertCopy, webhooks)
}

func (e *Engine) deliverAsync(a *Alert, webhooks []config.WebhookConfig) {
	if len(webhooks) == 0 {
		return
	}
	e.deliverWG.Add(1)
	go func() {
		defer e.deliverWG.Done()
		e.deliver(a, webhooks)
	}()
}

// Wait blocks until in-flight webhook deliveries finish.
func (e *Engine) Wait() { e.deliverWG.Wait() }

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindow)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}

func message(r rule, sev, device string, value float64) string {
	target := device
	if target == "" {
		target = "monitor"
	}
	return fmt.Sprintf("[%s] %s on %s: %s (value %.1f)", sev, r.Name, target, r.Condition, value)
}
