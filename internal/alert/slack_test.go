package alert

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func fastTiming() timingConfig {
	return timingConfig{
		timeout:           time.Second,
		rateInterval:      time.Millisecond,
		rateBurst:         5,
		backoffInitial:    time.Millisecond,
		backoffMax:        2 * time.Millisecond,
		backoffMaxElapsed: 20 * time.Millisecond,
	}
}

func TestSlackChannel_SendsBlocks(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel := NewSlackChannel(zerolog.Nop(), "slack", server.URL, WithSlackTiming(fastTiming()))

	err := channel.Send(context.Background(), SeverityCritical, "CRITICAL temperature alert", "Temperature 85.0°C exceeded the CRITICAL threshold of 80.0°C.")
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}

	if !strings.Contains(body, "CRITICAL temperature alert") {
		t.Errorf("payload missing subject: %s", body)
	}
	if !strings.Contains(body, "85.0") {
		t.Errorf("payload missing temperature: %s", body)
	}
}

func TestSlackChannel_EmptyWebhookIsNoop(t *testing.T) {
	channel := NewSlackChannel(zerolog.Nop(), "slack", "")
	if _, ok := channel.(*NoopChannel); !ok {
		t.Fatalf("expected NoopChannel, got %T", channel)
	}
	if err := channel.Send(context.Background(), SeverityHigh, "s", "b"); err != nil {
		t.Errorf("noop Send error: %v", err)
	}
}

func TestSlackChannel_RetriesOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel := NewSlackChannel(zerolog.Nop(), "slack", server.URL, WithSlackTiming(fastTiming()))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := channel.Send(ctx, SeverityHigh, "s", "b"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestSlackChannel_RateLimitersAreKeyedBySeverity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel := NewSlackChannel(zerolog.Nop(), "slack", server.URL, WithSlackTiming(fastTiming())).(*SlackChannel)

	if err := channel.Send(context.Background(), SeverityHigh, "s", "b"); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if err := channel.Send(context.Background(), SeverityCritical, "s", "b"); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	for _, sev := range []Severity{SeverityHigh, SeverityCritical} {
		if _, ok := channel.poster.limiters[sev]; !ok {
			t.Errorf("no limiter for %s; each severity gets its own budget", sev)
		}
	}
	if len(channel.poster.limiters) != 2 {
		t.Errorf("limiters = %d, want one per severity", len(channel.poster.limiters))
	}
}

func TestSlackChannel_ClientErrorIsTerminal(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	channel := NewSlackChannel(zerolog.Nop(), "slack", server.URL, WithSlackTiming(fastTiming()))

	if err := channel.Send(context.Background(), SeverityHigh, "s", "b"); err == nil {
		t.Fatal("expected error for 400 response")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("client errors must not retry, got %d attempts", got)
	}
}
