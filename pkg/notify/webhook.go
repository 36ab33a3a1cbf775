package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookSink POSTs each notification as JSON to a fixed URL.
type WebhookSink struct {
	url    string
	client *http.Client
	header http.Header
}

// WebhookConfig configures a WebhookSink.
type WebhookConfig struct {
	// URL receives the POST requests
	URL string

	// Timeout bounds each request (default: 5s)
	Timeout time.Duration

	// Headers are added to every request, e.g. an auth token
	Headers map[string]string

	// Client overrides the HTTP client; Timeout is ignored when set
	Client *http.Client
}

// NewWebhookSink creates a webhook sink.
func NewWebhookSink(config WebhookConfig) (*WebhookSink, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("notify: webhook url is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	header := make(http.Header)
	for k, v := range config.Headers {
		header.Set(k, v)
	}
	header.Set("Content-Type", "application/json")

	return &WebhookSink{url: config.URL, client: client, header: header}, nil
}

// Deliver POSTs n. Any non-2xx response is an error.
func (s *WebhookSink) Deliver(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("webhook: marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header = s.header.Clone()
	req.Header.Set("X-Transaction-Id", n.TransactionID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Name returns "webhook".
func (s *WebhookSink) Name() string { return "webhook" }

// Close releases idle connections.
func (s *WebhookSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
