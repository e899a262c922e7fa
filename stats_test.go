package vigil

import (
	"math"
	"testing"
)

// baselineWindow is a steady stream hovering around 100, long enough to fit
// every model.
func baselineWindow() []float64 {
	block := []float64{100, 102, 98, 105, 99, 101, 103, 97, 104, 100}
	out := make([]float64, 0, 100)
	for i := 0; i < 10; i++ {
		out = append(out, block...)
	}
	return out
}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(baselineWindow())

	if !almostEqual(stats.Mean, 100.9, 1e-9) {
		t.Errorf("Mean = %v, want 100.9", stats.Mean)
	}
	if !almostEqual(stats.Std, math.Sqrt(6.09), 1e-9) {
		t.Errorf("Std = %v, want %v", stats.Std, math.Sqrt(6.09))
	}
	if stats.Min != 97 || stats.Max != 105 {
		t.Errorf("Min/Max = %v/%v, want 97/105", stats.Min, stats.Max)
	}
	if !almostEqual(stats.Median, 100.5, 1e-9) {
		t.Errorf("Median = %v, want 100.5", stats.Median)
	}
	if stats.Q1 != 99 || stats.Q3 != 103 {
		t.Errorf("Q1/Q3 = %v/%v, want 99/103", stats.Q1, stats.Q3)
	}
	if stats.IQR() != 4 {
		t.Errorf("IQR = %v, want 4", stats.IQR())
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil)
	if stats != (BaselineStats{}) {
		t.Errorf("ComputeStats(nil) = %+v, want zero value", stats)
	}
}

func TestStddevPopulation(t *testing.T) {
	// Population variance of [2,4,4,4,5,5,7,9] is exactly 4.
	got := stddev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if got != 2 {
		t.Errorf("stddev = %v, want 2", got)
	}

	if got := stddev([]float64{5, 5, 5}); got != 0 {
		t.Errorf("stddev of constant series = %v, want 0", got)
	}
}

func TestPercentileInterpolation(t *testing.T) {
	tests := []struct {
		values []float64
		p      float64
		want   float64
	}{
		{[]float64{1, 2, 3, 4}, 50, 2.5},
		{[]float64{10, 20, 30, 40, 50}, 95, 48},
		{[]float64{10, 20, 30, 40, 50}, 25, 20},
		{[]float64{10, 20, 30, 40, 50}, 0, 10},
		{[]float64{10, 20, 30, 40, 50}, 100, 50},
		{[]float64{7}, 95, 7},
	}
	for _, tt := range tests {
		got := percentileOf(tt.values, tt.p)
		if !almostEqual(got, tt.want, 1e-9) {
			t.Errorf("percentileOf(%v, %v) = %v, want %v", tt.values, tt.p, got, tt.want)
		}
	}
}

func TestPercentileOfDoesNotMutate(t *testing.T) {
	values := []float64{3, 1, 2}
	percentileOf(values, 50)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("percentileOf mutated its input: %v", values)
	}
}

func TestFilterFinite(t *testing.T) {
	in := []float64{1, math.NaN(), 2, math.Inf(1), 3, math.Inf(-1)}
	kept, dropped := filterFinite(in)
	if dropped != 3 {
		t.Errorf("dropped = %d, want 3", dropped)
	}
	want := []float64{1, 2, 3}
	if len(kept) != len(want) {
		t.Fatalf("kept = %v, want %v", kept, want)
	}
	for i := range want {
		if kept[i] != want[i] {
			t.Errorf("kept[%d] = %v, want %v", i, kept[i], want[i])
		}
	}

	clean := []float64{1, 2, 3}
	kept, dropped = filterFinite(clean)
	if dropped != 0 || len(kept) != 3 {
		t.Errorf("clean input: kept %d values, dropped %d", len(kept), dropped)
	}
}
