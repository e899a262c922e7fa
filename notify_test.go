package vigil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2,
	}
}

func TestWebhookDelivers(t *testing.T) {
	var got AlertRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL, Retry: fastRetry()})
	record := AlertRecord{
		Type:        "website",
		SubjectID:   "web1",
		Message:     "response time over threshold",
		TimestampMs: 1700000000000,
		Severity:    SeverityHigh,
		Confidence:  0.9,
	}
	if err := n.Notify(context.Background(), record); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got != record {
		t.Errorf("delivered record = %+v, want %+v", got, record)
	}
}

func TestWebhookRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL, Retry: fastRetry()})
	if err := n.Notify(context.Background(), AlertRecord{Type: "website"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestWebhookDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL, Retry: fastRetry()})
	if err := n.Notify(context.Background(), AlertRecord{Type: "website"}); err == nil {
		t.Fatal("client error did not surface")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestWebhookExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{URL: srv.URL, Retry: fastRetry()})
	if err := n.Notify(context.Background(), AlertRecord{Type: "website"}); err == nil {
		t.Fatal("exhausted retries did not surface an error")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestWebhookCustomHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("authorization header = %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(WebhookConfig{
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer token"},
		Retry:   fastRetry(),
	})
	if err := n.Notify(context.Background(), AlertRecord{}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
}
