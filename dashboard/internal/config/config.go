package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultPollInterval   = 60 * time.Second
	DefaultFetchTimeout   = 10 * time.Second
	DefaultMinDate        = "2025-07-01"
	DefaultTableLimit     = 50
	DefaultListen         = "127.0.0.1:8080"
	DefaultSnapshotTTL    = 5 * time.Minute
	DefaultExportFilename = "historial_fetalalert.csv"
	DefaultServiceName    = "fetalalert-dashboard"
	DefaultTimezone       = "Local"
)

// isoDate is the layout of min_date, from and to.
const isoDate = "2006-01-02"

// Config is the top-level configuration. Fields map 1:1 to config.example.yaml.
type Config struct {
	Dashboard DashboardConfig `yaml:"dashboard"`
	Log       LogConfig       `yaml:"log"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is json (production encoder) or console (development encoder).
	Format string `yaml:"format"`

	// Service is added to every log line as service_name.
	Service string `yaml:"service"`
}

// DashboardConfig holds the polling, rendering and export settings.
type DashboardConfig struct {
	// PollInterval controls how often the source is refreshed.
	PollInterval time.Duration `yaml:"poll_interval"`

	// MinDate is the earliest selectable date (YYYY-MM-DD); it is also the
	// default lower bound of the query range.
	MinDate string `yaml:"min_date"`

	// Timezone is the IANA zone reading dates and times are interpreted in.
	// "Local" uses the host zone.
	Timezone string `yaml:"timezone"`

	// TableLimit caps the number of rows in the rendered table.
	// Exports always include every row.
	TableLimit int `yaml:"table_limit"`

	Source Source       `yaml:"source"`
	HTTP   HTTPConfig   `yaml:"http"`
	Export ExportConfig `yaml:"export"`
	Alerts AlertsConfig `yaml:"alerts"`
}

// Source describes the readings data source and the default query.
type Source struct {
	// Type is http or file.
	Type string `yaml:"type"`

	// Endpoint is the list URL for http sources or a path for file sources.
	// An http endpoint whose path ends in .json is treated as a static file
	// and receives no query parameters.
	Endpoint string `yaml:"endpoint"`

	// DeviceID and PatientID select the monitored device. Both are optional.
	DeviceID  string `yaml:"device_id"`
	PatientID string `yaml:"patient_id"`

	// From and To (YYYY-MM-DD) bound the query range. From defaults to
	// MinDate and To to today.
	From string `yaml:"from"`
	To   string `yaml:"to"`

	// Timeout bounds a single fetch.
	Timeout time.Duration `yaml:"timeout"`

	Auth AuthConfig `yaml:"auth"`
	TLS  TLSConfig  `yaml:"tls"`
}

// AuthConfig carries the opaque source key.
type AuthConfig struct {
	// KeyEnv is the name of the environment variable that holds the key.
	KeyEnv string `yaml:"key_env"`

	// Default is used when KeyEnv is unset or empty.
	Default string `yaml:"default"`

	// Header, when set, also sends the key in this request header.
	// The key is always sent as the "key" query parameter.
	Header string `yaml:"header"`
}

// Key returns the key value, preferring the environment over Default.
func (a AuthConfig) Key() string {
	if a.KeyEnv != "" {
		if v := os.Getenv(a.KeyEnv); v != "" {
			return v
		}
	}
	return a.Default
}

// TLSConfig holds TLS dial options for https sources.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// HTTPConfig configures the local rendering surface.
type HTTPConfig struct {
	// Listen is the host:port the REST API and WebSocket hub bind to.
	Listen string `yaml:"listen"`

	// SnapshotTTL is how long the last view is considered fresh.
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`

	// UIDir optionally serves static browser assets from this directory.
	UIDir string `yaml:"ui_dir"`
}

// ExportConfig configures file exports.
type ExportConfig struct {
	// Filename is the suggested download name of the CSV export.
	Filename string `yaml:"filename"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one condition evaluated against every refreshed view.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "status == alert", "spo2 < 90",
	// "zero_movement_30m > 2", "connection == err".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Location resolves Timezone.
func (d DashboardConfig) Location() (*time.Location, error) {
	if d.Timezone == "" || d.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(d.Timezone)
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Dashboard: DashboardConfig{
			PollInterval: DefaultPollInterval,
			MinDate:      DefaultMinDate,
			Timezone:     DefaultTimezone,
			TableLimit:   DefaultTableLimit,
			Source: Source{
				Type:    "http",
				Timeout: DefaultFetchTimeout,
			},
			HTTP: HTTPConfig{
				Listen:      DefaultListen,
				SnapshotTTL: DefaultSnapshotTTL,
			},
			Export: ExportConfig{Filename: DefaultExportFilename},
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "json",
			Service: DefaultServiceName,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	d := cfg.Dashboard
	if d.PollInterval <= 0 {
		return fmt.Errorf("dashboard.poll_interval must be positive")
	}
	if d.TableLimit <= 0 {
		return fmt.Errorf("dashboard.table_limit must be positive")
	}
	if _, err := time.Parse(isoDate, d.MinDate); err != nil {
		return fmt.Errorf("dashboard.min_date %q: want YYYY-MM-DD", d.MinDate)
	}
	if _, err := d.Location(); err != nil {
		return fmt.Errorf("dashboard.timezone %q: %w", d.Timezone, err)
	}

	src := d.Source
	switch src.Type {
	case "http", "file":
	default:
		return fmt.Errorf("dashboard.source.type %q unknown: want http|file", src.Type)
	}
	if src.Endpoint == "" {
		return fmt.Errorf("dashboard.source.endpoint is required")
	}
	if src.Timeout <= 0 {
		return fmt.Errorf("dashboard.source.timeout must be positive")
	}
	for name, v := range map[string]string{"from": src.From, "to": src.To} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(isoDate, v); err != nil {
			return fmt.Errorf("dashboard.source.%s %q: want YYYY-MM-DD", name, v)
		}
	}

	if d.HTTP.SnapshotTTL < 0 {
		return fmt.Errorf("dashboard.http.snapshot_ttl must not be negative")
	}

	for i, r := range d.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("alerts.rules[%d] %q: condition is required", i, r.Name)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("alerts.rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	for i, w := range d.Alerts.Webhooks {
		switch w.Type {
		case "teams", "slack", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}

	switch cfg.Log.Format {
	case "json", "console", "":
	default:
		return fmt.Errorf("log.format %q unknown: want json|console", cfg.Log.Format)
	}
	return nil
}
