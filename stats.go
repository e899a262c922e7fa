package vigil

import (
	"math"
	"sort"
)

// Minimum sample counts enforced by the fitting and tuning entry points.
// Below these the operation is a logged no-op that preserves prior state.
const (
	minFitSamples  = 10
	minTuneSamples = 5
)

// BaselineStats are descriptive statistics over a historical sample window.
// Computed once per fit call, never updated incrementally.
type BaselineStats struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// IQR returns the interquartile range q3 - q1.
func (s BaselineStats) IQR() float64 {
	return s.Q3 - s.Q1
}

// ComputeStats computes BaselineStats over a value sequence. It is usable on
// any non-empty sequence; the minimum-size gate lives in the callers
// (AnomalyDetector, AlertTuner), not here. An empty sequence yields the zero
// value.
func ComputeStats(values []float64) BaselineStats {
	if len(values) == 0 {
		return BaselineStats{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return BaselineStats{
		Mean:   mean(values),
		Std:    stddev(values),
		Q1:     percentile(sorted, 25),
		Q3:     percentile(sorted, 75),
		Median: percentile(sorted, 50),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - m) * (v - m)
	}
	return math.Sqrt(variance / float64(len(values)))
}

// percentile computes the p-th percentile of pre-sorted values with linear
// interpolation between adjacent ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	k := (p / 100) * float64(len(sorted)-1)
	f := math.Floor(k)
	c := math.Ceil(k)
	if f == c {
		return sorted[int(k)]
	}
	return sorted[int(f)]*(c-k) + sorted[int(c)]*(k-f)
}

// percentileOf sorts a copy of values and returns the p-th percentile.
func percentileOf(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return percentile(sorted, p)
}

// filterFinite drops NaN and Inf values, returning the kept values and the
// number dropped. Statistics over non-finite input would silently propagate
// NaN, so every fit and score path filters first.
func filterFinite(values []float64) ([]float64, int) {
	dropped := 0
	for _, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			dropped++
		}
	}
	if dropped == 0 {
		return values, 0
	}
	kept := make([]float64, 0, len(values)-dropped)
	for _, v := range values {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			kept = append(kept, v)
		}
	}
	return kept, dropped
}
