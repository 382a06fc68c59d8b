// Package telegram provides alert delivery via the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"telemon/internal/events"
)

const defaultAPIBase = "https://api.telegram.org"

// Sink delivers notifications to a Telegram chat via sendMessage.
type Sink struct {
	httpClient *http.Client
	apiBase    string
	token      string
	chatID     string
	threadID   int
	maxLength  int
}

// NewSink creates a Telegram sink. threadID of 0 means no thread; messages
// longer than maxLength are truncated to fit the Bot API limit.
func NewSink(token, chatID string, threadID, maxLength int) *Sink {
	return &Sink{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiBase:   defaultAPIBase,
		token:     token,
		chatID:    chatID,
		threadID:  threadID,
		maxLength: maxLength,
	}
}

// truncate shortens text to at most max runes, cutting on rune boundaries
// so a multi-byte character is never split. Limits too small to hold the
// ellipsis are honored with a plain cut.
func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

type sendMessageRequest struct {
	ChatID          string `json:"chat_id"`
	Text            string `json:"text"`
	MessageThreadID int    `json:"message_thread_id,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Deliver sends text to the configured chat. Failures are returned to the
// caller; the sink never retries.
func (s *Sink) Deliver(ctx context.Context, text string, level events.AlertLevel) error {
	if s.token == "" || s.chatID == "" {
		return fmt.Errorf("telegram bot token and chat ID are required")
	}

	if s.maxLength > 0 {
		text = truncate(text, s.maxLength)
	}

	payload := sendMessageRequest{
		ChatID:          s.chatID,
		Text:            text,
		MessageThreadID: s.threadID,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.token)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to send Telegram notification",
			"level", level,
			"error", err,
		)
		return fmt.Errorf("failed to send Telegram notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("Telegram API returned error status",
			"status_code", resp.StatusCode,
			"level", level,
		)
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	var apiResp sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("failed to decode Telegram response: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram API rejected message: %s", apiResp.Description)
	}

	slog.Debug("Sent Telegram notification", "level", level, "length", len(text))
	return nil
}
