package outlier

import (
	"math"
	"sort"
)

// Boundary is a one-class boundary model over standardized values: it learns
// a radius around the training distribution's center such that roughly a nu
// fraction of the training points fall outside, and classifies later points
// by whether they exceed that radius. It is fully deterministic.
type Boundary struct {
	nu      float64
	center  float64
	radius  float64
	trained bool
}

// NewBoundary creates a boundary model. Nu is the expected outlier fraction
// in (0,1); out-of-range values fall back to 0.1.
func NewBoundary(nu float64) *Boundary {
	if nu <= 0 || nu >= 1 {
		nu = 0.1
	}
	return &Boundary{nu: nu}
}

// Fit learns the center and radius from the training values. Empty input is
// a no-op.
func (b *Boundary) Fit(values []float64) {
	if len(values) == 0 {
		return
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	b.center = sum / float64(len(values))

	dists := make([]float64, len(values))
	for i, v := range values {
		dists[i] = math.Abs(v - b.center)
	}
	sort.Float64s(dists)
	b.radius = quantile(dists, 1-b.nu)
	b.trained = true
}

// quantile returns the linearly interpolated q-quantile of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	k := q * float64(len(sorted)-1)
	lo := math.Floor(k)
	hi := math.Ceil(k)
	if lo == hi {
		return sorted[int(k)]
	}
	return sorted[int(lo)]*(hi-k) + sorted[int(hi)]*(k-lo)
}

// IsOutlier reports whether v lies outside the learned boundary.
func (b *Boundary) IsOutlier(v float64) bool {
	if !b.trained {
		return false
	}
	return math.Abs(v-b.center) > b.radius
}

// Margin returns the distance beyond the boundary, floored at zero.
func (b *Boundary) Margin(v float64) float64 {
	if !b.trained {
		return 0
	}
	m := math.Abs(v-b.center) - b.radius
	if m < 0 {
		return 0
	}
	return m
}

// Trained reports whether Fit has been called with data.
func (b *Boundary) Trained() bool {
	return b.trained
}
