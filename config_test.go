package vigil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `
detection:
  method: zscore
  contamination: 0.05
  seed: 7
tuning:
  method: percentile
  contamination: 0.2
  seed: 11
forecast:
  method: exponential-smoothing
  seasonal_period: 12
  steps: 48
thresholds:
  website_response_time_ms: 3000
  synthetic_failure_count: 5
  synthetic_failure_window: 10m
  error_rate_threshold: 0.1
pipeline:
  history_limit: 250
notify:
  webhook_url: https://hooks.example.com/alerts
  timeout: 5s
feed:
  enabled: true
  buffer_size: 32
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}

	dc, err := cfg.DetectorConfig()
	if err != nil {
		t.Fatalf("DetectorConfig: %v", err)
	}
	if dc.Method != MethodZScore || dc.Contamination != 0.05 || dc.Seed != 7 {
		t.Errorf("detector config = %+v", dc)
	}

	tc := cfg.TunerConfig()
	if tc.Contamination != 0.2 || tc.Seed != 11 {
		t.Errorf("tuner config = %+v", tc)
	}
	tm, err := cfg.TuneMethod()
	if err != nil || tm != TunePercentile {
		t.Errorf("tune method = %v, %v", tm, err)
	}

	fc, err := cfg.ForecasterConfig()
	if err != nil {
		t.Fatalf("ForecasterConfig: %v", err)
	}
	if fc.Method != ForecastExponentialSmoothing || fc.SeasonalPeriod != 12 {
		t.Errorf("forecaster config = %+v", fc)
	}
	if cfg.ForecastSteps() != 48 {
		t.Errorf("forecast steps = %d", cfg.ForecastSteps())
	}

	bt, err := cfg.BreachThresholds()
	if err != nil {
		t.Fatalf("BreachThresholds: %v", err)
	}
	if bt.WebsiteResponseTimeMs != 3000 || bt.SyntheticFailureCount != 5 {
		t.Errorf("thresholds = %+v", bt)
	}
	if bt.SyntheticFailureWindow != 10*time.Minute {
		t.Errorf("window = %v, want 10m", bt.SyntheticFailureWindow)
	}
	if bt.ErrorRate != 0.1 {
		t.Errorf("error rate = %v", bt.ErrorRate)
	}

	pc := cfg.PipelineConfig()
	if pc.HistoryLimit != 250 || pc.Tuner.Seed != 11 {
		t.Errorf("pipeline config = %+v", pc)
	}

	timeout, err := cfg.NotifyTimeout()
	if err != nil || timeout != 5*time.Second {
		t.Errorf("notify timeout = %v, %v", timeout, err)
	}
	if cfg.Notify.WebhookURL != "https://hooks.example.com/alerts" {
		t.Errorf("webhook url = %q", cfg.Notify.WebhookURL)
	}
	if !cfg.Feed.Enabled || cfg.Feed.BufferSize != 32 {
		t.Errorf("feed section = %+v", cfg.Feed)
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("{}"))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}

	dc, err := cfg.DetectorConfig()
	if err != nil {
		t.Fatalf("DetectorConfig: %v", err)
	}
	if dc != DefaultDetectorConfig() {
		t.Errorf("detector config = %+v, want defaults", dc)
	}

	if cfg.TunerConfig() != DefaultTunerConfig() {
		t.Errorf("tuner config = %+v, want defaults", cfg.TunerConfig())
	}
	if cfg.ForecastSteps() != 24 {
		t.Errorf("forecast steps = %d, want 24", cfg.ForecastSteps())
	}

	bt, err := cfg.BreachThresholds()
	if err != nil {
		t.Fatalf("BreachThresholds: %v", err)
	}
	if bt != DefaultBreachThresholds() {
		t.Errorf("thresholds = %+v, want defaults", bt)
	}

	timeout, err := cfg.NotifyTimeout()
	if err != nil || timeout != 10*time.Second {
		t.Errorf("notify timeout = %v, %v", timeout, err)
	}
}

func TestParseConfigBadMethod(t *testing.T) {
	cfg, err := ParseConfig([]byte("detection:\n  method: bogus\n"))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if _, err := cfg.DetectorConfig(); err == nil {
		t.Error("unknown detection method accepted")
	}
}

func TestParseConfigBadWindow(t *testing.T) {
	cfg, err := ParseConfig([]byte("thresholds:\n  synthetic_failure_window: soon\n"))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if _, err := cfg.BreachThresholds(); err == nil {
		t.Error("invalid duration accepted")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vigil.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Detection.Method != "zscore" {
		t.Errorf("detection method = %q", cfg.Detection.Method)
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file did not fail")
	}
}

func TestParseConfigInvalidYAML(t *testing.T) {
	if _, err := ParseConfig([]byte("detection: [unclosed")); err == nil {
		t.Error("invalid YAML accepted")
	}
}
