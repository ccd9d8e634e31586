package alerts

import (
	"fmt"
	"log/slog"

	"github.com/fetalalert/fetalalert/dashboard/internal/config"
)

// deliver sends webhook notifications for a to webhooks.
// Errors are logged but do not affect the caller.
func (e *Engine) deliver(a *Alert, webhooks []config.WebhookConfig) {
	for _, wh := range webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var payload any
		switch wh.Type {
		case "slack":
			payload = slackPayload(a)
		case "teams":
			payload = teamsPayload(a)
		case "http":
			payload = map[string]any{"alert": a}
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err := e.post(url, payload); err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"rule", a.RuleName,
				"err", err,
			)
			continue
		}
		slog.Debug("alerts: webhook delivered",
			"type", wh.Type,
			"rule", a.RuleName,
			"state", a.State,
		)
	}
}

func slackPayload(a *Alert) map[string]string {
	return map[string]string{
		"text": fmt.Sprintf("*%s* %s%s", severityLabel(a.Severity), a.Message, stateSuffix(a)),
	}
}

func teamsPayload(a *Alert) map[string]any {
	return map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity),
		"summary":    a.RuleName,
		"title":      fmt.Sprintf("FetalAlert: %s%s", a.RuleName, stateSuffix(a)),
		"text":       a.Message,
	}
}

func (e *Engine) post(url string, payload any) error {
	resp, err := e.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(url)
	if err != nil {
		return fmt.Errorf("alerts: post: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("alerts: webhook returned HTTP %d", resp.StatusCode())
	}
	return nil
}

func stateSuffix(a *Alert) string {
	if a.State == StateResolved {
		return " (resolved)"
	}
	return ""
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
