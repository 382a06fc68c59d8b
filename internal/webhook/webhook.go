// Package webhook provides alert delivery via generic HTTP POST, used when
// no Telegram chat is configured.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"telemon/internal/events"
)

// isValidURL checks if a string is a valid HTTP/HTTPS URL.
func isValidURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Sink delivers notifications as JSON to a webhook endpoint.
type Sink struct {
	httpClient *http.Client
	url        string
}

// NewSink creates a webhook sink posting to url.
func NewSink(url string) *Sink {
	return &Sink{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		url: url,
	}
}

type payload struct {
	Level  events.AlertLevel `json:"level"`
	Text   string            `json:"text"`
	SentAt time.Time         `json:"sent_at"`
}

// Deliver posts the notification to the configured URL.
func (s *Sink) Deliver(ctx context.Context, text string, level events.AlertLevel) error {
	if !isValidURL(s.url) {
		return fmt.Errorf("invalid webhook URL: %q (must be a valid HTTP/HTTPS URL)", s.url)
	}

	jsonData, err := json.Marshal(payload{
		Level:  level,
		Text:   text,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to send webhook notification", "level", level, "error", err)
		return fmt.Errorf("failed to send webhook notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("Webhook returned error status",
			"status_code", resp.StatusCode,
			"level", level,
		)
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
