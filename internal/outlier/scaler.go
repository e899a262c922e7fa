// Package outlier implements the learned outlier models behind the engine's
// detection strategies: a seeded isolation forest and a one-class boundary
// model, both operating on standardized values.
package outlier

import "math"

// Scaler standardizes values to zero mean and unit variance. It is fitted
// once on baseline data and then reused to transform later observations; it
// is never refit implicitly.
type Scaler struct {
	mean   float64
	std    float64
	fitted bool
}

// Fit computes the mean and standard deviation of the training values.
// A zero standard deviation is replaced with 1 so transforms stay finite.
func (s *Scaler) Fit(values []float64) {
	n := float64(len(values))
	if n == 0 {
		return
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	s.mean = sum / n

	variance := 0.0
	for _, v := range values {
		variance += (v - s.mean) * (v - s.mean)
	}
	s.std = math.Sqrt(variance / n)
	if s.std == 0 {
		s.std = 1
	}
	s.fitted = true
}

// Transform standardizes values with the fitted parameters.
func (s *Scaler) Transform(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - s.mean) / s.std
	}
	return out
}

// TransformOne standardizes a single value.
func (s *Scaler) TransformOne(v float64) float64 {
	return (v - s.mean) / s.std
}

// FitTransform fits the scaler and returns the standardized training values.
func (s *Scaler) FitTransform(values []float64) []float64 {
	s.Fit(values)
	return s.Transform(values)
}

// Fitted reports whether Fit has been called.
func (s *Scaler) Fitted() bool {
	return s.fitted
}
