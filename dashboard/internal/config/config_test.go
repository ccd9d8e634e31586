package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Valid(t *testing.T) {
	yaml := `
dashboard:
  poll_interval: 30s
  min_date: "2025-07-01"
  timezone: UTC
  table_limit: 20
  source:
    type: http
    endpoint: "https://example.com/exec"
    device_id: FA-001
    patient_id: P-9
    from: "2025-08-01"
    to: "2025-08-31"
    auth:
      key_env: FA_KEY
      default: fallback
  http:
    listen: "127.0.0.1:9090"
log:
  level: debug
  format: console
`
	cfg := loadFromString(t, yaml)
	d := cfg.Dashboard

	if d.PollInterval != 30*time.Second {
		t.Errorf("poll_interval: got %v", d.PollInterval)
	}
	if d.TableLimit != 20 {
		t.Errorf("table_limit: got %d", d.TableLimit)
	}
	if d.Source.DeviceID != "FA-001" {
		t.Errorf("device_id: got %q", d.Source.DeviceID)
	}
	if d.Source.From != "2025-08-01" || d.Source.To != "2025-08-31" {
		t.Errorf("range: got %q..%q", d.Source.From, d.Source.To)
	}
	if d.HTTP.Listen != "127.0.0.1:9090" {
		t.Errorf("listen: got %q", d.HTTP.Listen)
	}
	if cfg.Log.Format != "console" {
		t.Errorf("log.format: got %q", cfg.Log.Format)
	}
	loc, err := d.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("Location(): got %v, %v", loc, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	yaml := `
dashboard:
  source:
    endpoint: "./medico_demo.json"
`
	cfg := loadFromString(t, yaml)
	d := cfg.Dashboard

	if d.PollInterval != DefaultPollInterval {
		t.Errorf("default poll_interval: got %v, want %v", d.PollInterval, DefaultPollInterval)
	}
	if d.MinDate != DefaultMinDate {
		t.Errorf("default min_date: got %q", d.MinDate)
	}
	if d.TableLimit != DefaultTableLimit {
		t.Errorf("default table_limit: got %d", d.TableLimit)
	}
	if d.Source.Type != "http" {
		t.Errorf("default source.type: got %q", d.Source.Type)
	}
	if d.Source.Timeout != DefaultFetchTimeout {
		t.Errorf("default source.timeout: got %v", d.Source.Timeout)
	}
	if d.HTTP.Listen != DefaultListen {
		t.Errorf("default listen: got %q", d.HTTP.Listen)
	}
	if d.Export.Filename != DefaultExportFilename {
		t.Errorf("default export filename: got %q", d.Export.Filename)
	}
	if cfg.Log.Service != DefaultServiceName {
		t.Errorf("default log.service: got %q", cfg.Log.Service)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing endpoint", `
dashboard:
  source:
    type: http
`},
		{"unknown source type", `
dashboard:
  source:
    type: mqtt
    endpoint: tcp://broker:1883
`},
		{"bad min date", `
dashboard:
  min_date: 01/07/2025
  source:
    endpoint: ./x.json
`},
		{"bad from", `
dashboard:
  source:
    endpoint: ./x.json
    from: yesterday
`},
		{"zero poll interval", `
dashboard:
  poll_interval: 0s
  source:
    endpoint: ./x.json
`},
		{"unknown timezone", `
dashboard:
  timezone: Mars/Olympus
  source:
    endpoint: ./x.json
`},
		{"rule without condition", `
dashboard:
  source:
    endpoint: ./x.json
  alerts:
    rules:
      - name: low-spo2
`},
		{"unknown webhook", `
dashboard:
  source:
    endpoint: ./x.json
  alerts:
    webhooks:
      - type: pager
`},
		{"unknown log format", `
dashboard:
  source:
    endpoint: ./x.json
log:
  format: xml
`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := loadStringErr(t, tc.yaml); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestAuthConfig_Key(t *testing.T) {
	t.Setenv("TEST_FA_KEY", "from-env")
	a := AuthConfig{KeyEnv: "TEST_FA_KEY", Default: "fallback"}
	if got := a.Key(); got != "from-env" {
		t.Errorf("Key(): got %q, want from-env", got)
	}
}

func TestAuthConfig_Key_FallsBackToDefault(t *testing.T) {
	t.Setenv("TEST_FA_KEY", "")
	a := AuthConfig{KeyEnv: "TEST_FA_KEY", Default: "fallback"}
	if got := a.Key(); got != "fallback" {
		t.Errorf("Key(): got %q, want fallback", got)
	}
	if got := (AuthConfig{}).Key(); got != "" {
		t.Errorf("Key() with nothing set: got %q, want empty", got)
	}
}

func TestWebhookConfig_URL(t *testing.T) {
	t.Setenv("TEAMS_URL", "https://teams.example.com/webhook")
	w := WebhookConfig{Type: "teams", URLEnv: "TEAMS_URL"}
	if got := w.URL(); got != "https://teams.example.com/webhook" {
		t.Errorf("URL(): got %q", got)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "dashboard:\n  source:\n    endpoint: ./a.json\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	go Watch(ctx, path, func(c *Config) { got <- c }) //nolint:errcheck

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "dashboard:\n  source:\n    endpoint: ./b.json\n")

	select {
	case c := <-got:
		if c.Dashboard.Source.Endpoint != "./b.json" {
			t.Errorf("reloaded endpoint: got %q", c.Dashboard.Source.Endpoint)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not report the change")
	}
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, content)
	return Load(path)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
}
