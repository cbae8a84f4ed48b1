package lumina

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultEndpoint        = "http://localhost:9411/v1/traces"
	defaultEnvironment     = "live"
	defaultBatchSize       = 10
	defaultBatchIntervalMS = 5000
	defaultTimeoutMS       = 30000
	defaultMaxRetries      = 3
	defaultSamplingRatio   = 1.0
	defaultContentMaxLen   = 8192
)

// EnvironmentLive and EnvironmentTest are the two accepted environment tags.
const (
	EnvironmentLive = "live"
	EnvironmentTest = "test"
)

// Settings is the resolved SDK configuration. It is immutable once a client
// has been constructed from it; LoadSettings returns a fresh copy every call.
type Settings struct {
	Enabled         bool    `yaml:"enabled"`
	Endpoint        string  `yaml:"endpoint"`
	APIKey          string  `yaml:"api_key"`
	ServiceName     string  `yaml:"service_name"`
	Environment     string  `yaml:"environment"`
	CustomerID      string  `yaml:"customer_id"`
	BatchSize       int     `yaml:"batch_size"`
	BatchIntervalMS int     `yaml:"batch_interval_ms"`
	TimeoutMS       int     `yaml:"timeout_ms"`
	MaxRetries      int     `yaml:"max_retries"`
	SamplingRatio   float64 `yaml:"sampling_ratio"`
	MetricsEnabled  bool    `yaml:"metrics_enabled"`
	ContentMaxLen   int     `yaml:"content_max_len"`

	// FlushIntervalMS mirrors BatchIntervalMS unless set explicitly.
	FlushIntervalMS int `yaml:"flush_interval_ms"`
}

// Overrides are caller-supplied settings applied after file and environment
// sources. Only non-nil fields take effect.
type Overrides struct {
	Enabled         *bool
	Endpoint        *string
	APIKey          *string
	ServiceName     *string
	Environment     *string
	CustomerID      *string
	BatchSize       *int
	BatchIntervalMS *int
	FlushIntervalMS *int
	TimeoutMS       *int
	MaxRetries      *int
	SamplingRatio   *float64
	MetricsEnabled  *bool
	ContentMaxLen   *int
}

func defaultSettings() Settings {
	return Settings{
		Enabled:         true,
		Endpoint:        defaultEndpoint,
		Environment:     defaultEnvironment,
		BatchSize:       defaultBatchSize,
		BatchIntervalMS: defaultBatchIntervalMS,
		TimeoutMS:       defaultTimeoutMS,
		MaxRetries:      defaultMaxRetries,
		SamplingRatio:   defaultSamplingRatio,
		MetricsEnabled:  true,
		ContentMaxLen:   defaultContentMaxLen,
	}
}

// LoadSettings resolves settings from defaults, an optional YAML file (path
// from LUMINA_CONFIG, falling back to ./lumina.yaml when present), LUMINA_*
// environment variables, and finally the supplied overrides. Malformed
// numeric values fail loading rather than silently defaulting.
func LoadSettings(overrides *Overrides) (Settings, error) {
	cfg := defaultSettings()

	path := strings.TrimSpace(os.Getenv("LUMINA_CONFIG"))
	if path == "" {
		path = "lumina.yaml"
	}
	if err := applyFile(&cfg, path); err != nil {
		return Settings{}, err
	}

	if err := applyEnv(&cfg); err != nil {
		return Settings{}, err
	}

	overrides.apply(&cfg)

	if cfg.FlushIntervalMS == 0 {
		cfg.FlushIntervalMS = cfg.BatchIntervalMS
	}

	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", path, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	decodeErr := decoder.Decode(cfg)
	if errors.Is(decodeErr, io.EOF) {
		decodeErr = nil
	}
	if decodeErr != nil {
		return fmt.Errorf("parse yaml %q: %w", path, decodeErr)
	}
	// Reject multi-document configs to keep the effective settings unambiguous.
	var trailing any
	trailingErr := decoder.Decode(&trailing)
	if trailingErr != nil && !errors.Is(trailingErr, io.EOF) {
		return fmt.Errorf("parse yaml %q: %w", path, trailingErr)
	}
	if trailing != nil {
		return fmt.Errorf("parse yaml %q: multiple yaml documents are not supported", path)
	}
	return nil
}

func applyEnv(cfg *Settings) error {
	if enabled := strings.TrimSpace(os.Getenv("LUMINA_ENABLED")); enabled != "" {
		// Anything except an explicit negative keeps the SDK on.
		switch strings.ToLower(enabled) {
		case "false", "0", "no":
			cfg.Enabled = false
		default:
			cfg.Enabled = true
		}
	}

	if endpoint := strings.TrimSpace(os.Getenv("LUMINA_ENDPOINT")); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if apiKey := os.Getenv("LUMINA_API_KEY"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	if serviceName := strings.TrimSpace(os.Getenv("LUMINA_SERVICE_NAME")); serviceName != "" {
		cfg.ServiceName = serviceName
	}
	if environment := strings.TrimSpace(os.Getenv("LUMINA_ENVIRONMENT")); environment != "" {
		cfg.Environment = environment
	}
	if customerID := strings.TrimSpace(os.Getenv("LUMINA_CUSTOMER_ID")); customerID != "" {
		cfg.CustomerID = customerID
	}

	if batchSize := os.Getenv("LUMINA_BATCH_SIZE"); batchSize != "" {
		v, err := strconv.Atoi(batchSize)
		if err != nil {
			return fmt.Errorf("invalid LUMINA_BATCH_SIZE: %w", err)
		}
		cfg.BatchSize = v
	}
	if batchInterval := os.Getenv("LUMINA_BATCH_INTERVAL_MS"); batchInterval != "" {
		v, err := strconv.Atoi(batchInterval)
		if err != nil {
			return fmt.Errorf("invalid LUMINA_BATCH_INTERVAL_MS: %w", err)
		}
		cfg.BatchIntervalMS = v
	}
	if timeout := os.Getenv("LUMINA_TIMEOUT_MS"); timeout != "" {
		v, err := strconv.Atoi(timeout)
		if err != nil {
			return fmt.Errorf("invalid LUMINA_TIMEOUT_MS: %w", err)
		}
		cfg.TimeoutMS = v
	}
	if maxRetries := os.Getenv("LUMINA_MAX_RETRIES"); maxRetries != "" {
		v, err := strconv.Atoi(maxRetries)
		if err != nil {
			return fmt.Errorf("invalid LUMINA_MAX_RETRIES: %w", err)
		}
		cfg.MaxRetries = v
	}
	if ratio := os.Getenv("LUMINA_SAMPLE_RATIO"); ratio != "" {
		v, err := strconv.ParseFloat(ratio, 64)
		if err != nil {
			return fmt.Errorf("invalid LUMINA_SAMPLE_RATIO: %w", err)
		}
		cfg.SamplingRatio = v
	}
	if metricsEnabled := os.Getenv("LUMINA_METRICS_ENABLED"); metricsEnabled != "" {
		v, err := strconv.ParseBool(metricsEnabled)
		if err != nil {
			return fmt.Errorf("invalid LUMINA_METRICS_ENABLED: %w", err)
		}
		cfg.MetricsEnabled = v
	}
	if contentMaxLen := os.Getenv("LUMINA_CONTENT_MAX_LEN"); contentMaxLen != "" {
		v, err := strconv.Atoi(contentMaxLen)
		if err != nil {
			return fmt.Errorf("invalid LUMINA_CONTENT_MAX_LEN: %w", err)
		}
		cfg.ContentMaxLen = v
	}

	return nil
}

func (o *Overrides) apply(cfg *Settings) {
	if o == nil {
		return
	}
	if o.Enabled != nil {
		cfg.Enabled = *o.Enabled
	}
	if o.Endpoint != nil {
		cfg.Endpoint = *o.Endpoint
	}
	if o.APIKey != nil {
		cfg.APIKey = *o.APIKey
	}
	if o.ServiceName != nil {
		cfg.ServiceName = *o.ServiceName
	}
	if o.Environment != nil {
		cfg.Environment = *o.Environment
	}
	if o.CustomerID != nil {
		cfg.CustomerID = *o.CustomerID
	}
	if o.BatchSize != nil {
		cfg.BatchSize = *o.BatchSize
	}
	if o.BatchIntervalMS != nil {
		cfg.BatchIntervalMS = *o.BatchIntervalMS
	}
	if o.FlushIntervalMS != nil {
		cfg.FlushIntervalMS = *o.FlushIntervalMS
	}
	if o.TimeoutMS != nil {
		cfg.TimeoutMS = *o.TimeoutMS
	}
	if o.MaxRetries != nil {
		cfg.MaxRetries = *o.MaxRetries
	}
	if o.SamplingRatio != nil {
		cfg.SamplingRatio = *o.SamplingRatio
	}
	if o.MetricsEnabled != nil {
		cfg.MetricsEnabled = *o.MetricsEnabled
	}
	if o.ContentMaxLen != nil {
		cfg.ContentMaxLen = *o.ContentMaxLen
	}
}

// Validate checks settings invariants required at construction time.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Endpoint) == "" {
		return errors.New("endpoint must not be empty")
	}
	switch s.Environment {
	case EnvironmentLive, EnvironmentTest:
	default:
		return fmt.Errorf("environment must be one of live, test (got %q)", s.Environment)
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", s.BatchSize)
	}
	if s.BatchIntervalMS <= 0 {
		return fmt.Errorf("batch_interval_ms must be > 0 (got %d)", s.BatchIntervalMS)
	}
	if s.FlushIntervalMS < 0 {
		return fmt.Errorf("flush_interval_ms must be >= 0 (got %d)", s.FlushIntervalMS)
	}
	if s.TimeoutMS <= 0 {
		return fmt.Errorf("timeout_ms must be > 0 (got %d)", s.TimeoutMS)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0 (got %d)", s.MaxRetries)
	}
	if s.SamplingRatio < 0 || s.SamplingRatio > 1 {
		return fmt.Errorf("sampling_ratio must be between 0 and 1 (got %f)", s.SamplingRatio)
	}
	if s.ContentMaxLen < 0 {
		return fmt.Errorf("content_max_len must be >= 0 (got %d)", s.ContentMaxLen)
	}
	return nil
}
