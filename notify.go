package vigil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPDoer is the subset of http.Client used by the webhook notifier.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookConfig configures webhook alert delivery.
type WebhookConfig struct {
	// URL is the webhook endpoint. Alerts are POSTed as JSON.
	URL string

	// Timeout bounds each delivery attempt. Default: 10s.
	Timeout time.Duration

	// Headers are added to every request.
	Headers map[string]string

	// Retry controls redelivery of failed attempts.
	Retry RetryConfig

	// Client overrides the HTTP client, mainly for tests.
	Client HTTPDoer
}

// WebhookNotifier delivers alert records to an HTTP endpoint with retries.
type WebhookNotifier struct {
	config  WebhookConfig
	client  HTTPDoer
	retryer *Retryer
	logger  *slog.Logger
}

// retryableDeliveryError marks a delivery failure worth retrying.
type retryableDeliveryError struct {
	err error
}

func (e *retryableDeliveryError) Error() string { return e.err.Error() }
func (e *retryableDeliveryError) Unwrap() error { return e.err }

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(config WebhookConfig) *WebhookNotifier {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	retry := config.Retry
	if retry.RetryIf == nil {
		retry.RetryIf = func(err error) bool {
			_, ok := err.(*retryableDeliveryError)
			return ok
		}
	}
	return &WebhookNotifier{
		config:  config,
		client:  client,
		retryer: NewRetryer(retry),
		logger:  slog.Default().With("component", "webhook"),
	}
}

// Notify POSTs the alert record as JSON. Server errors and transport
// failures are retried, client errors are not.
func (w *WebhookNotifier) Notify(ctx context.Context, record AlertRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	err = w.retryer.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range w.config.Headers {
			req.Header.Set(k, v)
		}

		resp, err := w.client.Do(req)
		if err != nil {
			return &retryableDeliveryError{err: err}
		}
		defer func() {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()

		if resp.StatusCode >= 500 {
			return &retryableDeliveryError{err: fmt.Errorf("webhook returned %d", resp.StatusCode)}
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("webhook returned %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		w.logger.Error("webhook delivery failed", "url", w.config.URL, "type", record.Type, "error", err)
		return err
	}
	return nil
}
