// Package config loads and watches the dashboard configuration file (config.yaml).
//
// Top-level types:
//   - Config{Dashboard, Log}: full config tree parsed from YAML
//   - DashboardConfig: poll_interval, min_date, timezone, table_limit,
//     source, http, export, alerts
//   - Source: type (http|file), endpoint, device_id, patient_id, from, to,
//     timeout, auth, tls
//   - AuthConfig: key_env, default, header; Key() resolves the opaque key
//     from the environment, falling back to the literal default
//   - AlertsConfig: rules and webhooks evaluated by the alerts engine
//
// Load(path) reads the YAML file, applies defaults (60s poll, 50-row table,
// 2025-07-01 minimum date, 127.0.0.1:8080), then validates required fields
// and enums.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config.
package config
