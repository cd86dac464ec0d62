package spy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPTransport delivers view batches to the server's batch endpoint as one
// JSON POST per flush.
type HTTPTransport struct {
	endpoint  string
	authToken string
	client    *http.Client
}

// NewHTTPTransport points the transport at the events batch endpoint,
// e.g. "https://api.dalilsuez.com/api/v1/events/batch". authToken may be
// empty for anonymous devices; the server still applies view counts.
func NewHTTPTransport(endpoint, authToken string) *HTTPTransport {
	return &HTTPTransport{
		endpoint:  endpoint,
		authToken: authToken,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type viewBatchRequest struct {
	Events []ViewEvent `json:"events"`
}

// SendViewBatch implements Transport
func (t *HTTPTransport) SendViewBatch(ctx context.Context, batch []ViewEvent) error {
	payload, err := json.Marshal(viewBatchRequest{Events: batch})
	if err != nil {
		return fmt.Errorf("marshal view batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build view batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.authToken)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send view batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("view batch rejected: status %d", resp.StatusCode)
	}
	return nil
}
