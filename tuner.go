package vigil

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/vigil-io/vigil/internal/outlier"
)

// TuneMethod identifies the threshold tuning policy.
type TuneMethod int

const (
	// TuneAdaptive scales the current threshold by the recent mean shift,
	// capped and floored to avoid oscillation and threshold collapse.
	TuneAdaptive TuneMethod = iota
	// TunePercentile places the threshold at the 95th percentile of recent
	// values, ignoring the current threshold.
	TunePercentile
	// TuneIQR places the threshold at q3 + 1.5*IQR of recent values,
	// ignoring the current threshold.
	TuneIQR
)

// String returns the configuration name of the policy.
func (m TuneMethod) String() string {
	switch m {
	case TuneAdaptive:
		return "adaptive"
	case TunePercentile:
		return "percentile"
	case TuneIQR:
		return "iqr"
	default:
		return "unknown"
	}
}

// ParseTuneMethod parses a configuration policy name.
func ParseTuneMethod(s string) (TuneMethod, error) {
	switch s {
	case "adaptive":
		return TuneAdaptive, nil
	case "percentile":
		return TunePercentile, nil
	case "iqr":
		return TuneIQR, nil
	default:
		return 0, fmt.Errorf("unknown tuning method %q", s)
	}
}

// TunerConfig configures an AlertTuner.
type TunerConfig struct {
	// Contamination is the expected outlier fraction for the embedded
	// learned model. Default: 0.1.
	Contamination float64

	// Seed pins the learned model's randomness. Default: 42.
	Seed int64
}

// DefaultTunerConfig returns the default tuner configuration.
func DefaultTunerConfig() TunerConfig {
	return TunerConfig{Contamination: 0.1, Seed: 42}
}

// AlertTuner holds one stream's fitted baseline and decides whether an alert
// threshold should move, whether a triggered alert is noise, and how
// statistically confident a firing is. A tuner always embeds an
// isolation-style learned model for the suppression override, independent of
// any AnomalyDetector configured elsewhere.
//
// A tuner is owned by exactly one stream and is not safe for concurrent use.
type AlertTuner struct {
	config   TunerConfig
	baseline BaselineStats
	scaler   outlier.Scaler
	forest   *outlier.Forest
	fitted   bool
}

// NewAlertTuner creates an unfit tuner.
func NewAlertTuner(config TunerConfig) *AlertTuner {
	if config.Contamination <= 0 || config.Contamination >= 1 {
		config.Contamination = 0.1
	}
	if config.Seed == 0 {
		config.Seed = 42
	}
	return &AlertTuner{
		config: config,
		forest: outlier.NewForest(50, 256, config.Contamination, config.Seed),
	}
}

// Fitted reports whether FitBaseline has succeeded.
func (t *AlertTuner) Fitted() bool {
	return t.fitted
}

// Baseline returns the fitted baseline statistics (zero value when unfit).
func (t *AlertTuner) Baseline() BaselineStats {
	return t.baseline
}

// FitBaseline establishes the stream's normal behavior from historical
// values: descriptive statistics plus the learned outlier model used by the
// suppression override. Fewer than 10 finite values is a logged no-op that
// preserves prior state. Refitting overwrites the previous baseline.
func (t *AlertTuner) FitBaseline(historical []float64) {
	finite, dropped := filterFinite(historical)
	if dropped > 0 {
		slog.Warn("dropping non-finite samples before baseline fit", "dropped", dropped)
	}
	if len(finite) < minFitSamples {
		slog.Warn("insufficient historical data for alert tuning",
			"samples", len(finite), "min", minFitSamples)
		return
	}

	t.baseline = ComputeStats(finite)
	scaled := t.scaler.FitTransform(finite)
	t.forest.Fit(scaled)
	t.fitted = true

	slog.Info("alert tuner fitted", "samples", len(finite))
}

// TuneThreshold recomputes an alert threshold from recent values. The result
// is a new value; the caller decides whether to persist it. If the baseline
// is unfit or fewer than 5 recent values are given, the current threshold is
// returned unchanged.
func (t *AlertTuner) TuneThreshold(recent []float64, current float64, method TuneMethod) float64 {
	if !t.fitted {
		slog.Warn("baseline not fitted, returning current threshold")
		return current
	}
	if len(recent) < minTuneSamples {
		return current
	}

	switch method {
	case TuneAdaptive:
		recentMean := mean(recent)

		// Shift of the recent mean in baseline standard deviations,
		// with the adjustment capped at 50%.
		shift := 0.0
		if t.baseline.Std > 0 {
			shift = math.Abs(recentMean-t.baseline.Mean) / t.baseline.Std
		}
		adjustment := math.Min(shift*0.1, 0.5)

		var tuned float64
		if recentMean > t.baseline.Mean {
			tuned = current * (1 + adjustment)
		} else {
			tuned = current * (1 - adjustment*0.5)
		}

		// The tuned threshold never drops below one standard deviation
		// above the baseline mean; a genuine improvement trend must not
		// collapse the threshold.
		return math.Max(tuned, t.baseline.Mean+t.baseline.Std)

	case TunePercentile:
		return percentileOf(recent, 95)

	case TuneIQR:
		q1 := percentileOf(recent, 25)
		q3 := percentileOf(recent, 75)
		return q3 + 1.5*(q3-q1)
	}

	return current
}

// ShouldSuppress decides whether a triggered alert is noise. Three
// independent signals are layered so that one mechanism's blind spot is
// covered by another; the first that matches suppresses:
//
//  1. The alert value sits within two standard deviations of baseline.
//  2. The learned model, shown the context window plus the alert value,
//     disagrees with the threshold breach and calls the point an inlier.
//  3. More than 30% of the context window already exceeded the threshold,
//     so the condition is persistently breached and re-firing adds fatigue,
//     not signal.
//
// An unfit baseline never suppresses. Pass threshold <= 0 to skip the
// fatigue check.
func (t *AlertTuner) ShouldSuppress(alertValue float64, contextData []float64, threshold float64) bool {
	if !t.fitted {
		return false
	}

	if math.Abs(alertValue-t.baseline.Mean) <= 2*t.baseline.Std {
		return true
	}

	if len(contextData) >= minTuneSamples {
		// The baseline-fitted scaler transforms the context window; the
		// scaler is deliberately not refit on context data.
		scaled := t.scaler.TransformOne(alertValue)
		if !t.forest.IsOutlier(scaled) {
			return true
		}
	}

	if threshold > 0 && len(contextData) > 0 {
		breached := 0
		for _, v := range contextData {
			if v > threshold {
				breached++
			}
		}
		if float64(breached) > float64(len(contextData))*0.3 {
			return true
		}
	}

	return false
}

// Confidence scores how statistically extreme an alerting value is relative
// to baseline, in [0,1]. An unfit baseline yields the neutral 0.5. With a
// zero-variance baseline any deviation is fully confident. Otherwise the
// score is the z-score over 3, saturating at three standard deviations.
func (t *AlertTuner) Confidence(alertValue float64, contextData []float64) float64 {
	if !t.fitted {
		return 0.5
	}

	if t.baseline.Std == 0 {
		if alertValue != t.baseline.Mean {
			return 1.0
		}
		return 0.0
	}

	z := math.Abs(alertValue-t.baseline.Mean) / t.baseline.Std
	return math.Min(z/3.0, 1.0)
}
