package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"telemon/internal/events"
)

func TestDeliver_SendsMessage(t *testing.T) {
	var captured sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/bottest-token/sendMessage") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(sendMessageResponse{OK: true})
	}))
	defer server.Close()

	sink := NewSink("test-token", "12345", 7, 4000)
	sink.apiBase = server.URL

	err := sink.Deliver(context.Background(), "[test] CRITICAL: boom", events.LevelCritical)
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if captured.ChatID != "12345" {
		t.Errorf("chat_id = %q, want 12345", captured.ChatID)
	}
	if captured.Text != "[test] CRITICAL: boom" {
		t.Errorf("text = %q", captured.Text)
	}
	if captured.MessageThreadID != 7 {
		t.Errorf("message_thread_id = %d, want 7", captured.MessageThreadID)
	}
}

func TestDeliver_TruncatesLongMessages(t *testing.T) {
	var captured sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(sendMessageResponse{OK: true})
	}))
	defer server.Close()

	sink := NewSink("test-token", "12345", 0, 50)
	sink.apiBase = server.URL

	long := strings.Repeat("x", 200)
	if err := sink.Deliver(context.Background(), long, events.LevelInfo); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if len(captured.Text) != 50 {
		t.Errorf("delivered length = %d, want 50", len(captured.Text))
	}
	if !strings.HasSuffix(captured.Text, "...") {
		t.Errorf("truncated text should end with ellipsis: %q", captured.Text)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{
			name: "short text unchanged",
			text: "boom",
			max:  50,
			want: "boom",
		},
		{
			name: "exact length unchanged",
			text: "boom",
			max:  4,
			want: "boom",
		},
		{
			name: "long text gets ellipsis",
			text: "aaaaaaaaaa",
			max:  8,
			want: "aaaaa...",
		},
		{
			name: "limit of one",
			text: "aaaaaaaaaa",
			max:  1,
			want: "a",
		},
		{
			name: "limit of two",
			text: "aaaaaaaaaa",
			max:  2,
			want: "aa",
		},
		{
			name: "limit of three",
			text: "aaaaaaaaaa",
			max:  3,
			want: "aaa",
		},
		{
			name: "multibyte runes not split",
			text: "ошибка в обработчике",
			max:  9,
			want: "ошибка...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.text, tt.max); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
			}
		})
	}
}

func TestDeliver_TinyLimitDoesNotPanic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sendMessageResponse{OK: true})
	}))
	defer server.Close()

	sink := NewSink("test-token", "12345", 0, 2)
	sink.apiBase = server.URL

	long := strings.Repeat("x", 50)
	if err := sink.Deliver(context.Background(), long, events.LevelInfo); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
}

func TestDeliver_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	sink := NewSink("test-token", "12345", 0, 4000)
	sink.apiBase = server.URL

	if err := sink.Deliver(context.Background(), "text", events.LevelWarning); err == nil {
		t.Error("Deliver() error = nil, want error for 429 status")
	}
}

func TestDeliver_APIRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sendMessageResponse{OK: false, Description: "chat not found"})
	}))
	defer server.Close()

	sink := NewSink("test-token", "bad-chat", 0, 4000)
	sink.apiBase = server.URL

	err := sink.Deliver(context.Background(), "text", events.LevelWarning)
	if err == nil {
		t.Fatal("Deliver() error = nil, want API rejection")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("error = %v, want description included", err)
	}
}

func TestDeliver_MissingCredentials(t *testing.T) {
	sink := NewSink("", "", 0, 4000)

	if err := sink.Deliver(context.Background(), "text", events.LevelInfo); err == nil {
		t.Error("Deliver() error = nil, want missing credentials error")
	}
}
