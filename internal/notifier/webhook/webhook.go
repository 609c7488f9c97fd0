// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/swingsim/internal/config"
	"github.com/newthinker/swingsim/internal/notifier"
)

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// FromConfig builds a webhook from the notifier section. It returns nil
// when no URL is configured.
func FromConfig(cfg config.NotifierConfig) *Webhook {
	if cfg.WebhookURL == "" {
		return nil
	}
	return New(cfg.WebhookURL, cfg.Headers)
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, s notifier.Summary) error {
	return w.post(ctx, payload{Type: "run", Summary: &s})
}

func (w *Webhook) SendBatch(ctx context.Context, batch []notifier.Summary) error {
	if len(batch) == 0 {
		return nil
	}
	return w.post(ctx, payload{Type: "batch", Count: len(batch), Runs: batch})
}

type payload struct {
	Type string `json:"type"`
	*notifier.Summary
	Count int                `json:"count,omitempty"`
	Runs  []notifier.Summary `json:"runs,omitempty"`
}

func (w *Webhook) post(ctx context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode)
	}

	return nil
}
