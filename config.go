package vigil

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the engine configuration, loadable from YAML. Zero values fall
// back to the documented defaults when translated into component configs.
type Config struct {
	// Detection configures batch anomaly detection.
	Detection DetectionSection `yaml:"detection"`

	// Tuning configures the per-stream alert tuners.
	Tuning TuningSection `yaml:"tuning"`

	// Forecast configures batch forecasting.
	Forecast ForecastSection `yaml:"forecast"`

	// Thresholds are the static breach trigger thresholds.
	Thresholds ThresholdsSection `yaml:"thresholds"`

	// Pipeline configures the alert pipeline.
	Pipeline PipelineSection `yaml:"pipeline"`

	// History configures the SQLite alert history store.
	History HistorySection `yaml:"history"`

	// Archive configures S3 snapshot archiving.
	Archive ArchiveSection `yaml:"archive"`

	// Notify configures webhook notification.
	Notify NotifySection `yaml:"notify"`

	// Feed configures the WebSocket alert feed.
	Feed FeedSection `yaml:"feed"`
}

// DetectionSection selects and parameterizes the detection strategy.
type DetectionSection struct {
	// Method is one of learned-isolation, learned-boundary, zscore, iqr.
	Method        string  `yaml:"method"`
	Contamination float64 `yaml:"contamination"`
	Seed          int64   `yaml:"seed"`
}

// TuningSection parameterizes the alert tuners.
type TuningSection struct {
	// Method is one of adaptive, percentile, iqr.
	Method        string  `yaml:"method"`
	Contamination float64 `yaml:"contamination"`
	Seed          int64   `yaml:"seed"`
}

// ForecastSection selects and parameterizes forecasting.
type ForecastSection struct {
	// Method is one of autoregressive-integrated, exponential-smoothing.
	Method         string `yaml:"method"`
	SeasonalPeriod int    `yaml:"seasonal_period"`
	Steps          int    `yaml:"steps"`
}

// ThresholdsSection holds the static breach trigger thresholds. The window
// is a Go duration string (e.g. "5m").
type ThresholdsSection struct {
	WebsiteResponseTimeMs  float64 `yaml:"website_response_time_ms"`
	SyntheticFailureCount  int     `yaml:"synthetic_failure_count"`
	SyntheticFailureWindow string  `yaml:"synthetic_failure_window"`
	ErrorRateThreshold     float64 `yaml:"error_rate_threshold"`
}

// PipelineSection parameterizes the alert pipeline.
type PipelineSection struct {
	HistoryLimit int `yaml:"history_limit"`
}

// HistorySection configures alert history persistence.
type HistorySection struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ArchiveSection configures S3 snapshot archiving. Prefer IAM roles or
// environment credentials over embedding keys here.
type ArchiveSection struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
	// EncryptPassword, when set, encrypts archived snapshots at rest.
	EncryptPassword string `yaml:"encrypt_password"`
}

// NotifySection configures the webhook notifier.
type NotifySection struct {
	WebhookURL string `yaml:"webhook_url"`
	// Timeout is a Go duration string. Default: "10s".
	Timeout string `yaml:"timeout"`
}

// FeedSection configures the live alert feed.
type FeedSection struct {
	Enabled      bool   `yaml:"enabled"`
	BufferSize   int    `yaml:"buffer_size"`
	PingInterval string `yaml:"ping_interval"`
	WriteTimeout string `yaml:"write_timeout"`
}

// LoadConfigFile reads and parses a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration bytes.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// DetectorConfig translates the detection section, validating the method.
func (c *Config) DetectorConfig() (DetectorConfig, error) {
	out := DefaultDetectorConfig()
	if c.Detection.Method != "" {
		m, err := ParseDetectMethod(c.Detection.Method)
		if err != nil {
			return out, err
		}
		out.Method = m
	}
	if c.Detection.Contamination > 0 {
		out.Contamination = c.Detection.Contamination
	}
	if c.Detection.Seed != 0 {
		out.Seed = c.Detection.Seed
	}
	return out, nil
}

// TunerConfig translates the tuning section.
func (c *Config) TunerConfig() TunerConfig {
	out := DefaultTunerConfig()
	if c.Tuning.Contamination > 0 {
		out.Contamination = c.Tuning.Contamination
	}
	if c.Tuning.Seed != 0 {
		out.Seed = c.Tuning.Seed
	}
	return out
}

// TuneMethod translates the tuning policy name, defaulting to adaptive.
func (c *Config) TuneMethod() (TuneMethod, error) {
	if c.Tuning.Method == "" {
		return TuneAdaptive, nil
	}
	return ParseTuneMethod(c.Tuning.Method)
}

// ForecasterConfig translates the forecast section, validating the method.
func (c *Config) ForecasterConfig() (ForecasterConfig, error) {
	out := DefaultForecasterConfig()
	if c.Forecast.Method != "" {
		m, err := ParseForecastMethod(c.Forecast.Method)
		if err != nil {
			return out, err
		}
		out.Method = m
	}
	if c.Forecast.SeasonalPeriod > 0 {
		out.SeasonalPeriod = c.Forecast.SeasonalPeriod
	}
	return out, nil
}

// ForecastSteps returns the configured projection length. Default: 24.
func (c *Config) ForecastSteps() int {
	if c.Forecast.Steps > 0 {
		return c.Forecast.Steps
	}
	return 24
}

// BreachThresholds translates the thresholds section.
func (c *Config) BreachThresholds() (BreachThresholds, error) {
	out := DefaultBreachThresholds()
	if c.Thresholds.WebsiteResponseTimeMs > 0 {
		out.WebsiteResponseTimeMs = c.Thresholds.WebsiteResponseTimeMs
	}
	if c.Thresholds.SyntheticFailureCount > 0 {
		out.SyntheticFailureCount = c.Thresholds.SyntheticFailureCount
	}
	if c.Thresholds.SyntheticFailureWindow != "" {
		d, err := time.ParseDuration(c.Thresholds.SyntheticFailureWindow)
		if err != nil {
			return out, fmt.Errorf("synthetic_failure_window: %w", err)
		}
		out.SyntheticFailureWindow = d
	}
	if c.Thresholds.ErrorRateThreshold > 0 {
		out.ErrorRate = c.Thresholds.ErrorRateThreshold
	}
	return out, nil
}

// PipelineConfig translates the pipeline and tuning sections.
func (c *Config) PipelineConfig() PipelineConfig {
	out := DefaultPipelineConfig()
	out.Tuner = c.TunerConfig()
	if c.Pipeline.HistoryLimit > 0 {
		out.HistoryLimit = c.Pipeline.HistoryLimit
	}
	return out
}

// NotifyTimeout parses the notify timeout. Default: 10s.
func (c *Config) NotifyTimeout() (time.Duration, error) {
	if c.Notify.Timeout == "" {
		return 10 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Notify.Timeout)
	if err != nil {
		return 0, fmt.Errorf("notify timeout: %w", err)
	}
	return d, nil
}
