// Package lumina is an instrumentation SDK for LLM API calls. It wraps each
// call in an OpenTelemetry span carrying timing, token usage, estimated cost,
// and truncated prompt/completion content, and ships finished spans to a
// collector over OTLP/HTTP in batches. Tracing is transparent: the wrapped
// call's result and error pass through unchanged, and a span is finalized
// exactly once on every exit path.
package lumina

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/use-lumina/lumina-go/internal/scrub"
	"github.com/use-lumina/lumina-go/semconv"
)

const tracerName = "lumina-sdk"

// ErrAlreadyInitialized is returned by Init when a default client is already
// installed. The default client is construct-once, shutdown-once.
var ErrAlreadyInitialized = errors.New("lumina: already initialized")

// Client owns the telemetry pipeline for one embedding application: resolved
// settings, the tracer spans are started from, metric instruments, and the
// exporters behind them. Construct one per process with New or Init and pass
// it to the Trace functions. All methods are safe for concurrent use; the
// settings are immutable after construction.
type Client struct {
	settings Settings
	logger   *slog.Logger

	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	instruments    llmInstruments

	shutdownFns  []func(context.Context) error
	shutdownOnce sync.Once
	shutdownErr  error
}

// ClientOption customizes client construction.
type ClientOption func(*clientConfig)

type clientConfig struct {
	logger       *slog.Logger
	exporter     sdktrace.SpanExporter
	metricReader sdkmetric.Reader
}

// WithLogger sets the logger used for SDK diagnostics. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(cfg *clientConfig) { cfg.logger = logger }
}

// WithSpanExporter replaces the OTLP/HTTP span exporter with a custom one,
// for example an ingest.Exporter speaking a collector's native batch API, or
// an in-memory exporter in tests. The credential-scrubbing wrapper is applied
// either way.
func WithSpanExporter(exporter sdktrace.SpanExporter) ClientOption {
	return func(cfg *clientConfig) { cfg.exporter = exporter }
}

// WithMetricReader replaces the OTLP/HTTP periodic reader with a custom one,
// for example a manual reader in tests or a pull-based reader.
func WithMetricReader(reader sdkmetric.Reader) ClientOption {
	return func(cfg *clientConfig) { cfg.metricReader = reader }
}

// New resolves settings (defaults, optional YAML file, LUMINA_* environment,
// then overrides) and assembles the telemetry pipeline: a batching span
// processor over an OTLP/HTTP exporter, plus metric instruments when metrics
// are enabled. Construction fails fast on malformed settings. A disabled
// client is fully functional but records nothing and starts no goroutines.
func New(ctx context.Context, overrides *Overrides, opts ...ClientOption) (*Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var cfg clientConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	settings, err := LoadSettings(overrides)
	if err != nil {
		return nil, err
	}

	c := &Client{settings: settings, logger: cfg.logger}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	if !settings.Enabled {
		c.tracer = tracenoop.NewTracerProvider().Tracer(tracerName)
		return c, nil
	}

	host, urlPath, insecure, err := normalizeEndpoint(settings.Endpoint)
	if err != nil {
		return nil, err
	}

	serviceName := settings.ServiceName
	if serviceName == "" {
		serviceName = "unknown-service"
	}
	resourceAttrs := []attribute.KeyValue{
		attribute.String("service.name", serviceName),
		attribute.String("service.version", Version),
		semconv.LuminaEnvironment.String(settings.Environment),
	}
	if settings.CustomerID != "" {
		resourceAttrs = append(resourceAttrs, semconv.LuminaCustomerID.String(settings.CustomerID))
	}
	res := resource.NewSchemaless(resourceAttrs...)

	exportTimeout := time.Duration(settings.TimeoutMS) * time.Millisecond

	spanExporter := cfg.exporter
	if spanExporter == nil {
		spanExporter, err = newOTLPSpanExporter(ctx, settings, host, urlPath, insecure, exportTimeout)
		if err != nil {
			return nil, err
		}
	}
	// Credential material pasted into prompts must never reach the collector.
	spanExporter = scrub.NewExporter(spanExporter)

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(settings.SamplingRatio))),
		sdktrace.WithBatcher(spanExporter,
			sdktrace.WithMaxExportBatchSize(settings.BatchSize),
			sdktrace.WithBatchTimeout(time.Duration(settings.BatchIntervalMS)*time.Millisecond),
			sdktrace.WithExportTimeout(exportTimeout),
		),
		sdktrace.WithResource(res),
	)
	c.tracerProvider = tracerProvider
	c.shutdownFns = append(c.shutdownFns, tracerProvider.Shutdown)
	c.tracer = tracerProvider.Tracer(tracerName, trace.WithInstrumentationVersion(Version))

	if settings.MetricsEnabled {
		reader := cfg.metricReader
		if reader == nil {
			metricExporterOptions := []otlpmetrichttp.Option{
				otlpmetrichttp.WithEndpoint(host),
				otlpmetrichttp.WithTimeout(exportTimeout),
			}
			if insecure {
				metricExporterOptions = append(metricExporterOptions, otlpmetrichttp.WithInsecure())
			}
			if settings.APIKey != "" {
				metricExporterOptions = append(metricExporterOptions,
					otlpmetrichttp.WithHeaders(map[string]string{"Authorization": "Bearer " + settings.APIKey}))
			}
			metricExporter, err := otlpmetrichttp.New(ctx, metricExporterOptions...)
			if err != nil {
				_ = c.Shutdown(context.Background())
				return nil, fmt.Errorf("initialize metric exporter: %w", err)
			}
			reader = sdkmetric.NewPeriodicReader(
				metricExporter,
				sdkmetric.WithInterval(time.Duration(settings.FlushIntervalMS)*time.Millisecond),
				sdkmetric.WithTimeout(exportTimeout),
			)
		}

		meterProvider := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
		c.meterProvider = meterProvider
		c.shutdownFns = append(c.shutdownFns, meterProvider.Shutdown)
		c.instruments = newLLMInstruments(meterProvider.Meter(tracerName), c.logger)
	}

	c.logger.Debug("lumina enabled",
		"endpoint", settings.Endpoint,
		"environment", settings.Environment,
		"service_name", serviceName,
		"metrics_enabled", settings.MetricsEnabled,
		"sampling_ratio", settings.SamplingRatio,
	)
	return c, nil
}

func newOTLPSpanExporter(ctx context.Context, settings Settings, host, urlPath string, insecure bool, exportTimeout time.Duration) (sdktrace.SpanExporter, error) {
	options := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(host),
		otlptracehttp.WithTimeout(exportTimeout),
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{
			Enabled:         settings.MaxRetries > 0,
			InitialInterval: time.Second,
			MaxInterval:     5 * time.Second,
			// Bounded by max_retries worth of capped intervals.
			MaxElapsedTime: time.Duration(settings.MaxRetries) * 5 * time.Second,
		}),
	}
	if urlPath != "" {
		options = append(options, otlptracehttp.WithURLPath(urlPath))
	}
	if insecure {
		options = append(options, otlptracehttp.WithInsecure())
	}
	if settings.APIKey != "" {
		options = append(options,
			otlptracehttp.WithHeaders(map[string]string{"Authorization": "Bearer " + settings.APIKey}))
	}

	exporter, err := otlptracehttp.New(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("initialize trace exporter: %w", err)
	}
	return exporter, nil
}

// Enabled reports whether the client records and exports telemetry.
func (c *Client) Enabled() bool {
	return c != nil && c.settings.Enabled
}

// Settings returns a copy of the resolved settings.
func (c *Client) Settings() Settings {
	return c.settingsOrDefault()
}

// Flush blocks until every finished span and metric collected so far has been
// exported, or ctx is done.
func (c *Client) Flush(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	if c.tracerProvider != nil {
		errs = append(errs, c.tracerProvider.ForceFlush(ctx))
	}
	if c.meterProvider != nil {
		errs = append(errs, c.meterProvider.ForceFlush(ctx))
	}
	return errors.Join(errs...)
}

// Shutdown flushes pending telemetry and releases exporter resources, in
// reverse construction order. It is idempotent; repeated calls return the
// first outcome. The client records nothing after Shutdown.
func (c *Client) Shutdown(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c.shutdownOnce.Do(func() {
		var errs []error
		for i := len(c.shutdownFns) - 1; i >= 0; i-- {
			if err := c.shutdownFns[i](ctx); err != nil {
				errs = append(errs, err)
			}
		}
		c.shutdownErr = errors.Join(errs...)
	})
	return c.shutdownErr
}

// WrapHTTPTransport wraps an outbound HTTP transport so requests made by the
// caller's own clients produce child spans under the active traced call.
func (c *Client) WrapHTTPTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if !c.Enabled() || c.tracerProvider == nil {
		return base
	}
	return otelhttp.NewTransport(base, otelhttp.WithTracerProvider(c.tracerProvider))
}

func (c *Client) tracerOrNoop() trace.Tracer {
	if c == nil || c.tracer == nil {
		return tracenoop.NewTracerProvider().Tracer(tracerName)
	}
	return c.tracer
}

func (c *Client) settingsOrDefault() Settings {
	if c == nil {
		return defaultSettings()
	}
	return c.settings
}

func (c *Client) contentMaxLen() int {
	return c.settingsOrDefault().ContentMaxLen
}

func (c *Client) loggerOrDefault() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// normalizeEndpoint splits an endpoint into OTLP exporter inputs. A bare
// host:port passes through with the exporter's default path and TLS on; a URL
// carries explicit transport intent, so its scheme decides TLS and its path,
// when present, overrides the exporter's default.
func normalizeEndpoint(raw string) (host, urlPath string, insecure bool, err error) {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return "", "", false, errors.New("endpoint must not be empty")
	}

	if !strings.Contains(endpoint, "://") {
		return endpoint, "", false, nil
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", "", false, fmt.Errorf("parse endpoint: %w", err)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", "", false, fmt.Errorf("endpoint must include host (got %q)", raw)
	}

	if path := strings.TrimSpace(parsed.Path); path != "" && path != "/" {
		urlPath = path
	}

	switch strings.ToLower(strings.TrimSpace(parsed.Scheme)) {
	case "http":
		return parsed.Host, urlPath, true, nil
	case "https":
		return parsed.Host, urlPath, false, nil
	default:
		return "", "", false, fmt.Errorf("endpoint scheme must be http or https when provided (got %q)", parsed.Scheme)
	}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Init constructs the process-wide default client. It fails with
// ErrAlreadyInitialized if a default client is already installed; tear the
// previous one down with ShutdownDefault first.
func Init(ctx context.Context, overrides *Overrides, opts ...ClientOption) (*Client, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultClient != nil {
		return nil, ErrAlreadyInitialized
	}
	c, err := New(ctx, overrides, opts...)
	if err != nil {
		return nil, err
	}
	defaultClient = c
	return c, nil
}

// Default returns the client installed by Init, or nil when none is.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultClient
}

// ShutdownDefault uninstalls the default client and shuts it down. A nil
// default is not an error.
func ShutdownDefault(ctx context.Context) error {
	defaultMu.Lock()
	c := defaultClient
	defaultClient = nil
	defaultMu.Unlock()

	return c.Shutdown(ctx)
}
