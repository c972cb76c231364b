// Package alerting posts catalogue health alerts to a chat or generic
// webhook.
package alerting

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/bher20/eratecompare/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AlertConfig holds alerting configuration.
type AlertConfig struct {
	// WebhookURL is a Slack, Discord, or custom endpoint. Empty disables alerts.
	WebhookURL string
	// WebhookType is "slack", "discord" or "generic"; empty detects it from the URL.
	WebhookType string
	// MinInvalid is the number of invalid plans needed before an alert is sent.
	MinInvalid int
	Timeout    time.Duration
}

func (c AlertConfig) withDefaults() AlertConfig {
	if c.WebhookType == "" {
		switch {
		case strings.Contains(c.WebhookURL, "slack.com"):
			c.WebhookType = "slack"
		case strings.Contains(c.WebhookURL, "discord.com"):
			c.WebhookType = "discord"
		default:
			c.WebhookType = "generic"
		}
	}
	if c.MinInvalid <= 0 {
		c.MinInvalid = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// Alerter sends alerts to the configured webhook.
type Alerter struct {
	cfg    AlertConfig
	client *http.Client
}

// NewAlerter creates a new alerter instance.
func NewAlerter(cfg AlertConfig) *Alerter {
	cfg = cfg.withDefaults()
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether a webhook is configured.
func (a *Alerter) Enabled() bool { return a != nil && a.cfg.WebhookURL != "" }

// CatalogAlert describes plans that failed revalidation, or a job that
// could not run at all.
type CatalogAlert struct {
	JobName   string
	Total     int
	Invalid   []InvalidPlan
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// InvalidPlan is one plan that no longer validates.
type InvalidPlan struct {
	ID     string `json:"id"`
	Plan   string `json:"plan"`
	Result string `json:"result"`
	Reason string `json:"reason"`
}

// Send posts alert when alerting is enabled and the alert reaches the
// configured threshold. A job error is always sent.
func (a *Alerter) Send(ctx context.Context, alert CatalogAlert) error {
	if !a.Enabled() {
		logger.L.Debugw("alerting: alerts disabled, skipping")
		return nil
	}
	if alert.Error == "" && len(alert.Invalid) < a.cfg.MinInvalid {
		logger.L.Debugw("alerting: below threshold, skipping", "invalid", len(alert.Invalid), "threshold", a.cfg.MinInvalid)
		return nil
	}

	var payload []byte
	var err error
	switch a.cfg.WebhookType {
	case "slack":
		payload, err = json.Marshal(slackPayload(alert))
	case "discord":
		payload, err = json.Marshal(discordPayload(alert))
	default:
		payload, err = json.Marshal(genericPayload(alert))
	}
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	logger.L.Infow("alerting: sent alert", "job", alert.JobName, "invalid", len(alert.Invalid))
	return nil
}

func summary(alert CatalogAlert) string {
	if alert.Error != "" {
		return "job failed: " + alert.Error
	}
	return fmt.Sprintf("%d/%d plans invalid", len(alert.Invalid), alert.Total)
}

func invalidList(alert CatalogAlert, bold string) string {
	var b strings.Builder
	for _, p := range alert.Invalid {
		fmt.Fprintf(&b, "• %s%s%s: %s\n", bold, p.Plan, bold, p.Reason)
	}
	if b.Len() == 0 {
		return "none"
	}
	return b.String()
}

func slackPayload(alert CatalogAlert) map[string]any {
	emoji := ":warning:"
	if alert.Error != "" || len(alert.Invalid) == alert.Total {
		emoji = ":x:"
	}
	return map[string]any{
		"blocks": []map[string]any{
			{
				"type": "header",
				"text": map[string]string{
					"type": "plain_text",
					"text": fmt.Sprintf("%s Plan Catalogue Alert: %s", emoji, alert.JobName),
				},
			},
			{
				"type": "section",
				"fields": []map[string]string{
					{"type": "mrkdwn", "text": fmt.Sprintf("*Status:*\n%s", summary(alert))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Duration:*\n%s", alert.Duration.Round(time.Millisecond))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Timestamp:*\n%s", alert.Timestamp.Format(time.RFC3339))},
				},
			},
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Invalid Plans:*\n%s", invalidList(alert, "*")),
				},
			},
		},
	}
}

func discordPayload(alert CatalogAlert) map[string]any {
	color := 16776960 // yellow
	if alert.Error != "" || len(alert.Invalid) == alert.Total {
		color = 16711680 // red
	}
	return map[string]any{
		"embeds": []map[string]any{
			{
				"title":       fmt.Sprintf("Plan Catalogue Alert: %s", alert.JobName),
				"description": summary(alert),
				"color":       color,
				"fields": []map[string]any{
					{"name": "Plans", "value": fmt.Sprint(alert.Total), "inline": true},
					{"name": "Invalid", "value": fmt.Sprint(len(alert.Invalid)), "inline": true},
					{"name": "Duration", "value": alert.Duration.Round(time.Millisecond).String(), "inline": true},
					{"name": "Invalid Plans", "value": invalidList(alert, "**"), "inline": false},
				},
				"timestamp": alert.Timestamp.Format(time.RFC3339),
			},
		},
	}
}

func genericPayload(alert CatalogAlert) map[string]any {
	kind := "catalogue_invalid_plans"
	if alert.Error != "" {
		kind = "catalogue_job_failure"
	}
	return map[string]any{
		"alert_type":    kind,
		"job_name":      alert.JobName,
		"total_count":   alert.Total,
		"invalid_count": len(alert.Invalid),
		"error":         alert.Error,
		"duration_ms":   alert.Duration.Milliseconds(),
		"timestamp":     alert.Timestamp.Format(time.RFC3339),
		"invalid_plans": alert.Invalid,
	}
}
