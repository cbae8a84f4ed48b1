package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout   = 30 * time.Second
	baseRetryDelay   = 250 * time.Millisecond
	maxRetryDelay    = 5 * time.Second
	maxErrorBodySize = 4 << 10
)

// ErrBatchRejected reports a batch the collector refused outright (a
// non-retryable HTTP status). Per-record failures inside an accepted batch
// arrive in IngestResponse.Errors instead.
var ErrBatchRejected = errors.New("ingest: batch rejected")

// Client posts trace batches to a Lumina collector's ingest endpoint. Each
// batch carries an Idempotency-Key that stays stable across retries, so a
// batch retried after a transient failure is never recorded twice.
type Client struct {
	endpoint   string
	apiKey     string
	maxRetries int
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption customizes the ingest client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client used for ingest requests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithClientLogger sets the logger for ingest diagnostics.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxRetries bounds how many times a failed batch is retried. Zero
// disables retries.
func WithMaxRetries(maxRetries int) ClientOption {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
	}
}

// NewClient returns a client posting to endpoint. apiKey may be empty for
// self-hosted collectors without auth.
func NewClient(endpoint, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		maxRetries: 3,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SendBatch posts traces as one IngestRequest, retrying transient failures
// (connection errors, 429, 5xx) with capped exponential backoff up to the
// configured retry budget. A response with Success=false is returned to the
// caller along with the per-record errors; it is not retried, since the
// collector has already consumed the batch.
func (c *Client) SendBatch(ctx context.Context, traces []Trace) (*IngestResponse, error) {
	if len(traces) == 0 {
		return &IngestResponse{Success: true}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	body, err := json.Marshal(IngestRequest{Traces: traces})
	if err != nil {
		return nil, fmt.Errorf("ingest: encode batch: %w", err)
	}

	idempotencyKey := uuid.NewString()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, retryDelay(attempt)); err != nil {
				return nil, err
			}
		}

		resp, retryable, err := c.post(ctx, body, idempotencyKey)
		if err == nil {
			if !resp.Success {
				c.logger.Warn("collector reported per-record ingest errors",
					"traces_sent", len(traces),
					"traces_received", resp.TracesReceived,
					"errors", len(resp.Errors),
				)
			}
			return resp, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.logger.Debug("ingest batch attempt failed",
			"attempt", attempt+1, "max_retries", c.maxRetries, "error", err)
	}

	return nil, fmt.Errorf("ingest: send batch after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) post(ctx context.Context, body []byte, idempotencyKey string) (resp *IngestResponse, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("ingest: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection-level failures are retryable unless the caller gave up.
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("ingest: post batch: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBodySize))
		err := fmt.Errorf("%w: http %d: %s", ErrBatchRejected, httpResp.StatusCode, bytes.TrimSpace(snippet))
		return nil, statusRetryable(httpResp.StatusCode), err
	}

	var decoded IngestResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&decoded); err != nil {
		return nil, false, fmt.Errorf("ingest: decode response: %w", err)
	}
	return &decoded, false, nil
}

func statusRetryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func retryDelay(attempt int) time.Duration {
	if attempt > 6 {
		return maxRetryDelay
	}
	delay := baseRetryDelay << (attempt - 1)
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
