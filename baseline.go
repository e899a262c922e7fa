package vigil

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/vigil-io/vigil/internal/outlier"
)

// DetectMethod identifies the baseline/anomaly detection strategy.
type DetectMethod int

const (
	// MethodLearnedIsolation uses a seeded isolation forest over
	// standardized values.
	MethodLearnedIsolation DetectMethod = iota
	// MethodLearnedBoundary uses a one-class boundary model over
	// standardized values.
	MethodLearnedBoundary
	// MethodZScore flags points whose z-score exceeds a threshold.
	MethodZScore
	// MethodIQR flags points outside q1-k*IQR .. q3+k*IQR.
	MethodIQR
)

// String returns the configuration name of the method.
func (m DetectMethod) String() string {
	switch m {
	case MethodLearnedIsolation:
		return "learned-isolation"
	case MethodLearnedBoundary:
		return "learned-boundary"
	case MethodZScore:
		return "zscore"
	case MethodIQR:
		return "iqr"
	default:
		return "unknown"
	}
}

// ParseDetectMethod parses a configuration method name.
func ParseDetectMethod(s string) (DetectMethod, error) {
	switch s {
	case "learned-isolation":
		return MethodLearnedIsolation, nil
	case "learned-boundary":
		return MethodLearnedBoundary, nil
	case "zscore":
		return MethodZScore, nil
	case "iqr":
		return MethodIQR, nil
	default:
		return 0, fmt.Errorf("unknown detection method %q", s)
	}
}

// Default thresholds for the statistical strategies.
const (
	// DefaultZScoreThreshold flags points more than this many standard
	// deviations from the baseline mean.
	DefaultZScoreThreshold = 3.0
	// DefaultIQRMultiplier widens the interquartile fence by this factor.
	DefaultIQRMultiplier = 1.5
)

// BaselineModel is one detection strategy fitted on a historical sample set.
// A model must be fit before Classify or Score produce meaningful results;
// before that, Classify reports false and Score reports 0 (fail-open), and
// Ready reports the state explicitly. Fit replaces any previously fitted
// state wholesale; models are never partially updated.
type BaselineModel interface {
	// Fit trains the model on historical values. Fewer than 10 finite
	// values is a logged no-op that leaves prior state unchanged.
	Fit(values []float64)
	// Ready reports whether the model has been successfully fit.
	Ready() bool
	// Classify reports whether a value is anomalous under the strategy's
	// default threshold.
	Classify(value float64) bool
	// Score returns a non-negative anomaly magnitude for the value.
	Score(value float64) float64
}

// newBaselineModel builds the strategy object for a method. Contamination is
// used only by the learned methods; seed pins their internal randomness.
func newBaselineModel(method DetectMethod, contamination float64, seed int64) BaselineModel {
	switch method {
	case MethodLearnedIsolation:
		return &isolationModel{
			forest: outlier.NewForest(100, 256, contamination, seed),
		}
	case MethodLearnedBoundary:
		return &boundaryModel{
			boundary: outlier.NewBoundary(contamination),
		}
	case MethodIQR:
		return &iqrModel{multiplier: DefaultIQRMultiplier}
	default:
		return &zscoreModel{threshold: DefaultZScoreThreshold}
	}
}

// fitGate filters non-finite values and applies the minimum fit size. It
// returns the usable values and whether fitting should proceed.
func fitGate(method DetectMethod, values []float64) ([]float64, bool) {
	finite, dropped := filterFinite(values)
	if dropped > 0 {
		slog.Warn("dropping non-finite samples before fit",
			"method", method.String(), "dropped", dropped)
	}
	if len(finite) < minFitSamples {
		slog.Warn("insufficient data to fit baseline model",
			"method", method.String(), "samples", len(finite), "min", minFitSamples)
		return nil, false
	}
	return finite, true
}

// zscoreModel flags values by standard-deviation distance from the mean.
type zscoreModel struct {
	stats     BaselineStats
	threshold float64
	ready     bool
}

func (m *zscoreModel) Fit(values []float64) {
	finite, ok := fitGate(MethodZScore, values)
	if !ok {
		return
	}
	m.stats = ComputeStats(finite)
	m.ready = true
}

func (m *zscoreModel) Ready() bool { return m.ready }

func (m *zscoreModel) Classify(value float64) bool {
	return m.classifyAt(value, m.threshold)
}

// classifyAt applies an overriding z-score threshold. A zero-variance
// baseline never classifies anything as anomalous.
func (m *zscoreModel) classifyAt(value, threshold float64) bool {
	if !m.ready || m.stats.Std == 0 {
		return false
	}
	return math.Abs(value-m.stats.Mean)/m.stats.Std > threshold
}

func (m *zscoreModel) Score(value float64) float64 {
	if !m.ready || m.stats.Std == 0 {
		return 0
	}
	return math.Abs(value-m.stats.Mean) / m.stats.Std
}

// iqrModel flags values outside the widened interquartile fence.
type iqrModel struct {
	stats      BaselineStats
	multiplier float64
	ready      bool
}

func (m *iqrModel) Fit(values []float64) {
	finite, ok := fitGate(MethodIQR, values)
	if !ok {
		return
	}
	m.stats = ComputeStats(finite)
	m.ready = true
}

func (m *iqrModel) Ready() bool { return m.ready }

func (m *iqrModel) Classify(value float64) bool {
	return m.classifyAt(value, m.multiplier)
}

func (m *iqrModel) classifyAt(value, multiplier float64) bool {
	if !m.ready {
		return false
	}
	iqr := m.stats.IQR()
	lower := m.stats.Q1 - multiplier*iqr
	upper := m.stats.Q3 + multiplier*iqr
	return value < lower || value > upper
}

// Score is the distance from the nearer fence divided by the IQR, or 0 for
// a degenerate (zero-IQR) baseline.
func (m *iqrModel) Score(value float64) float64 {
	if !m.ready {
		return 0
	}
	iqr := m.stats.IQR()
	if iqr == 0 {
		return 0
	}
	lower := m.stats.Q1 - m.multiplier*iqr
	upper := m.stats.Q3 + m.multiplier*iqr
	return math.Min(math.Abs(value-lower), math.Abs(value-upper)) / iqr
}

// isolationModel standardizes values with a fitted scaler and classifies
// them with a seeded isolation forest.
type isolationModel struct {
	scaler outlier.Scaler
	forest *outlier.Forest
	ready  bool
}

func (m *isolationModel) Fit(values []float64) {
	finite, ok := fitGate(MethodLearnedIsolation, values)
	if !ok {
		return
	}
	scaled := m.scaler.FitTransform(finite)
	m.forest.Fit(scaled)
	m.ready = true
}

func (m *isolationModel) Ready() bool { return m.ready }

func (m *isolationModel) Classify(value float64) bool {
	if !m.ready {
		return false
	}
	return m.forest.IsOutlier(m.scaler.TransformOne(value))
}

func (m *isolationModel) Score(value float64) float64 {
	if !m.ready {
		return 0
	}
	return m.forest.Margin(m.scaler.TransformOne(value))
}

// boundaryModel standardizes values with a fitted scaler and classifies
// them with a one-class boundary.
type boundaryModel struct {
	scaler   outlier.Scaler
	boundary *outlier.Boundary
	ready    bool
}

func (m *boundaryModel) Fit(values []float64) {
	finite, ok := fitGate(MethodLearnedBoundary, values)
	if !ok {
		return
	}
	scaled := m.scaler.FitTransform(finite)
	m.boundary.Fit(scaled)
	m.ready = true
}

func (m *boundaryModel) Ready() bool { return m.ready }

func (m *boundaryModel) Classify(value float64) bool {
	if !m.ready {
		return false
	}
	return m.boundary.IsOutlier(m.scaler.TransformOne(value))
}

func (m *boundaryModel) Score(value float64) float64 {
	if !m.ready {
		return 0
	}
	return m.boundary.Margin(m.scaler.TransformOne(value))
}
