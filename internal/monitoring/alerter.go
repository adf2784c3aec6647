// Package monitoring raises data-quality alerts from a build's run summary
// and delivers them to a webhook.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/commerce-warehouse/internal/config"
	"github.com/sells-group/commerce-warehouse/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertChronologyViolations AlertType = "chronology_violations"
	AlertMissingPayments      AlertType = "missing_payments"
	AlertInvalidPrices        AlertType = "invalid_prices"
	AlertUnmatchedSellerGeo   AlertType = "unmatched_seller_geo"
	AlertMissingTranslations  AlertType = "missing_translations"
	AlertDuplicateReviews     AlertType = "duplicate_reviews"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RunID     string         `json:"run_id"`
	Timestamp time.Time      `json:"timestamp"`
}

// rule compares a flagged-row counter against the size of its table.
type rule struct {
	typ       AlertType
	label     string
	threshold float64
	flagged   func(*model.RunSummary) int
	total     func(*model.RunSummary) int
}

// Alerter evaluates a RunSummary against configured thresholds and sends
// alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	rules  []rule
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	raw := func(key string) func(*model.RunSummary) int {
		return func(s *model.RunSummary) int { return s.RawCounts[key] }
	}
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		rules: []rule{
			{AlertChronologyViolations, "orders with out-of-order timestamps", cfg.ChronologyViolationRate,
				func(s *model.RunSummary) int { return s.ChronologyViolations }, raw("orders")},
			{AlertMissingPayments, "orders without payments", cfg.MissingPaymentRate,
				func(s *model.RunSummary) int { return s.OrdersWithoutPayments }, raw("orders")},
			{AlertInvalidPrices, "order items with invalid price", cfg.InvalidPriceRate,
				func(s *model.RunSummary) int { return s.InvalidPriceRows }, raw("order_items")},
			{AlertUnmatchedSellerGeo, "sellers without geolocation", cfg.UnmatchedSellerGeoRate,
				func(s *model.RunSummary) int { return s.UnmatchedSellerGeo }, raw("sellers")},
			{AlertMissingTranslations, "products without category translation", cfg.MissingTranslationRate,
				func(s *model.RunSummary) int { return s.MissingTranslationProducts }, raw("products")},
			{AlertDuplicateReviews, "duplicate reviews dropped", cfg.DuplicateReviewRate,
				func(s *model.RunSummary) int { return s.DuplicateReviewsDropped }, raw("reviews")},
		},
	}
}

// Evaluate checks the summary against thresholds and returns any alerts.
func (a *Alerter) Evaluate(summary *model.RunSummary) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	for _, r := range a.rules {
		total := r.total(summary)
		if r.threshold <= 0 || total == 0 {
			continue
		}
		flagged := r.flagged(summary)
		rate := float64(flagged) / float64(total)
		if rate <= r.threshold {
			continue
		}
		alerts = append(alerts, Alert{
			Type:     r.typ,
			Severity: severity(rate, r.threshold),
			Message: fmt.Sprintf(
				"%.2f%% %s exceeds threshold %.2f%% (%d of %d, snapshot %s)",
				rate*100, r.label, r.threshold*100, flagged, total, summary.SnapshotDate,
			),
			Details: map[string]any{
				"rate":      rate,
				"threshold": r.threshold,
				"flagged":   flagged,
				"total":     total,
			},
			RunID:     summary.RunID,
			Timestamp: now,
		})
	}
	return alerts
}

// severity is high once the rate reaches twice the threshold.
func severity(rate, threshold float64) string {
	if rate >= 2*threshold {
		return "high"
	}
	return "medium"
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Check evaluates summary, logs every alert and sends them to the webhook.
func (a *Alerter) Check(ctx context.Context, summary *model.RunSummary) []Alert {
	alerts := a.Evaluate(summary)
	for _, alert := range alerts {
		zap.L().Warn("monitoring: data quality threshold breached",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
			zap.String("message", alert.Message),
		)
	}
	sent := a.SendAlerts(ctx, alerts)
	if len(alerts) > 0 {
		zap.L().Info("monitoring: alert check complete",
			zap.Int("alerts_triggered", len(alerts)),
			zap.Int("alerts_sent", sent),
		)
	}
	return alerts
}
