package ingest

import (
	"context"
	"fmt"
	"strings"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter is an sdktrace.SpanExporter that ships finished spans to a Lumina
// collector's native batch ingest API instead of OTLP. Install it with
// lumina.WithSpanExporter.
type Exporter struct {
	client *Client
}

// NewExporter returns an Exporter over client.
func NewExporter(client *Client) *Exporter {
	return &Exporter{client: client}
}

// ExportSpans converts the batch and posts it. Per-record errors reported by
// the collector fail the whole export so the batch processor can account for
// the loss.
func (e *Exporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if len(spans) == 0 {
		return nil
	}

	resp, err := e.client.SendBatch(ctx, FromSpans(spans))
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("ingest: collector accepted %d of %d traces: %s",
			resp.TracesReceived, len(spans), strings.Join(resp.Errors, "; "))
	}
	return nil
}

// Shutdown releases idle connections held by the underlying HTTP client.
func (e *Exporter) Shutdown(context.Context) error {
	e.client.httpClient.CloseIdleConnections()
	return nil
}
