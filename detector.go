package vigil

import "log/slog"

// DetectorConfig configures an AnomalyDetector.
type DetectorConfig struct {
	// Method is the detection strategy.
	Method DetectMethod

	// Contamination is the expected outlier fraction in (0,1), used only by
	// the learned methods. Default: 0.1.
	Contamination float64

	// Seed pins the learned models' internal randomness so that detection
	// is reproducible. Default: 42.
	Seed int64
}

// DefaultDetectorConfig returns the default detector configuration.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Method:        MethodLearnedIsolation,
		Contamination: 0.1,
		Seed:          42,
	}
}

// Detection is the per-point result of a batch detection pass.
type Detection struct {
	Index   int     `json:"index"`
	Value   float64 `json:"value"`
	Anomaly bool    `json:"is_anomaly"`
}

// AnomalyDetector applies one BaselineModel strategy across batches of
// points. It is not safe for concurrent use; callers owning multiple streams
// keep one detector per stream.
type AnomalyDetector struct {
	config DetectorConfig
	model  BaselineModel
}

// NewAnomalyDetector creates a detector for the configured method.
func NewAnomalyDetector(config DetectorConfig) *AnomalyDetector {
	if config.Contamination <= 0 || config.Contamination >= 1 {
		config.Contamination = 0.1
	}
	if config.Seed == 0 {
		config.Seed = 42
	}
	return &AnomalyDetector{
		config: config,
		model:  newBaselineModel(config.Method, config.Contamination, config.Seed),
	}
}

// Method returns the configured detection method.
func (d *AnomalyDetector) Method() DetectMethod {
	return d.config.Method
}

// Ready reports whether the underlying model has been fit.
func (d *AnomalyDetector) Ready() bool {
	return d.model.Ready()
}

// Fit trains the detection model on baseline values. Fewer than 10 finite
// values is a logged no-op: the model stays unfit and detection fails open.
func (d *AnomalyDetector) Fit(values []float64) {
	d.model.Fit(values)
	if d.model.Ready() {
		slog.Info("anomaly detector fitted",
			"method", d.config.Method.String(), "samples", len(values))
	}
}

// Detect classifies each value with the strategy's default threshold.
// An unfit model returns every point as non-anomalous: a missed detection
// is preferred over a false alarm from an untrained model. Empty input
// returns an empty result.
func (d *AnomalyDetector) Detect(values []float64) []Detection {
	return d.detect(values, nil)
}

// DetectThreshold classifies each value with an overriding threshold: the
// z-score bound for the zscore method, the fence multiplier for iqr. The
// learned methods ignore the override.
func (d *AnomalyDetector) DetectThreshold(values []float64, threshold float64) []Detection {
	return d.detect(values, &threshold)
}

func (d *AnomalyDetector) detect(values []float64, threshold *float64) []Detection {
	if len(values) == 0 {
		return []Detection{}
	}

	results := make([]Detection, len(values))
	if !d.model.Ready() {
		slog.Warn("model not fitted, returning all points as normal",
			"method", d.config.Method.String())
		for i, v := range values {
			results[i] = Detection{Index: i, Value: v}
		}
		return results
	}

	for i, v := range values {
		results[i] = Detection{Index: i, Value: v, Anomaly: d.classify(v, threshold)}
	}
	return results
}

func (d *AnomalyDetector) classify(value float64, threshold *float64) bool {
	if threshold == nil {
		return d.model.Classify(value)
	}
	switch m := d.model.(type) {
	case *zscoreModel:
		return m.classifyAt(value, *threshold)
	case *iqrModel:
		return m.classifyAt(value, *threshold)
	default:
		return d.model.Classify(value)
	}
}

// Score returns the anomaly magnitude of a single value: the z-score for the
// zscore method, fence distance over IQR for iqr, and the decision margin for
// the learned methods. An unfit model scores 0.
func (d *AnomalyDetector) Score(value float64) float64 {
	return d.model.Score(value)
}
