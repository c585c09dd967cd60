package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/seochat/pkg/model"
	"github.com/m-mizutani/seochat/pkg/utils/logging"
	"github.com/m-mizutani/seochat/pkg/utils/safe"
)

// Webhook is the interface for the external automation webhook
type Webhook interface {
	// Send posts payload as JSON to endpoint and returns the decoded JSON object
	Send(ctx context.Context, endpoint string, payload any) (map[string]any, error)
}

// RequestError is returned when a webhook call fails. StatusCode is 0 when no response was received.
type RequestError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (x *RequestError) Error() string {
	if x.StatusCode != 0 {
		return fmt.Sprintf("webhook request failed with status %d: %v", x.StatusCode, x.Err)
	}
	return fmt.Sprintf("webhook request failed: %v", x.Err)
}

func (x *RequestError) Unwrap() error {
	return x.Err
}

type webhookClient struct {
	client  *http.Client
	timeout time.Duration
}

type WebhookOption func(*webhookClient)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(w *webhookClient) {
		w.client = client
	}
}

// WithTimeout bounds each request. Zero means no timeout. The client given by
// WithHTTPClient is not modified.
func WithTimeout(timeout time.Duration) WebhookOption {
	return func(w *webhookClient) {
		w.timeout = timeout
	}
}

// NewWebhook creates a webhook client. Requests are attempted once.
func NewWebhook(opts ...WebhookOption) Webhook {
	w := &webhookClient{
		client: &http.Client{},
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.timeout > 0 {
		client := *w.client
		client.Timeout = w.timeout
		w.client = &client
	}
	return w
}

func (w *webhookClient) Send(ctx context.Context, endpoint string, payload any) (map[string]any, error) {
	fail := func(status int, err error) error {
		return &RequestError{
			Endpoint:   endpoint,
			StatusCode: status,
			Err:        goerr.Wrap(err, "webhook request failed", goerr.V("status", status), goerr.T(model.TagRequest)),
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fail(0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	logging.From(ctx).Debug("sending webhook request",
		"secret_endpoint", endpoint,
		"size", len(body),
	)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer safe.Close(ctx, resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fail(resp.StatusCode, goerr.New("unexpected status code",
			goerr.V("body", truncate(string(data), 512))))
	}

	obj, err := decodeObject(data)
	if err != nil {
		return nil, fail(resp.StatusCode, err)
	}

	logging.From(ctx).Debug("received webhook response",
		"status", resp.StatusCode,
		"keys", len(obj),
	)
	return obj, nil
}

// decodeObject accepts a JSON object, or an array whose first element is an object
func decodeObject(data []byte) (map[string]any, error) {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, goerr.Wrap(err, "failed to decode webhook response")
	}

	switch v := decoded.(type) {
	case map[string]any:
		return v, nil
	case []any:
		if len(v) > 0 {
			if obj, ok := v[0].(map[string]any); ok {
				return obj, nil
			}
		}
	}
	return nil, goerr.New("webhook response is not a JSON object", goerr.V("type", fmt.Sprintf("%T", decoded)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
