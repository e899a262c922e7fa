package vigil

import (
	"math"
	"testing"
)

func TestForecastUnfit(t *testing.T) {
	f := NewForecaster(DefaultForecasterConfig())
	if f.Fitted() {
		t.Fatal("fresh forecaster reports fitted")
	}

	values, lower, upper := f.Forecast(5)
	if values == nil || lower == nil || upper == nil {
		t.Fatal("unfit Forecast returned nil slices")
	}
	if len(values) != 0 || len(lower) != 0 || len(upper) != 0 {
		t.Errorf("unfit Forecast returned data: %v %v %v", values, lower, upper)
	}
}

func TestForecastFitRequiresMinimum(t *testing.T) {
	f := NewForecaster(DefaultForecasterConfig())
	f.Fit([]float64{1, 2, 3, 4, 5})
	if f.Fitted() {
		t.Error("forecaster fitted on 5 samples")
	}
}

func TestAutoregressiveLinearTrend(t *testing.T) {
	f := NewForecaster(ForecasterConfig{Method: ForecastAutoregressive})

	series := make([]float64, 20)
	for i := range series {
		series[i] = float64(i + 1)
	}
	f.Fit(series)
	if !f.Fitted() {
		t.Fatal("forecaster not fitted")
	}

	values, lower, upper := f.Forecast(5)
	if len(values) != 5 || len(lower) != 5 || len(upper) != 5 {
		t.Fatalf("forecast lengths = %d/%d/%d, want 5", len(values), len(lower), len(upper))
	}

	last := 20.0
	for i, v := range values {
		if v <= last {
			t.Errorf("step %d: forecast %v did not continue the upward trend past %v", i, v, last)
		}
		last = v
	}
	for i := range values {
		if lower[i] > values[i] || values[i] > upper[i] {
			t.Errorf("step %d: bounds %v..%v do not bracket %v", i, lower[i], upper[i], values[i])
		}
	}
}

func TestAutoregressiveConstantSeries(t *testing.T) {
	f := NewForecaster(ForecasterConfig{Method: ForecastAutoregressive})

	series := make([]float64, 15)
	for i := range series {
		series[i] = 5
	}
	f.Fit(series)
	if !f.Fitted() {
		t.Fatal("forecaster not fitted")
	}

	values, lower, upper := f.Forecast(3)
	for i, v := range values {
		if v != 5 {
			t.Errorf("step %d: forecast %v, want 5", i, v)
		}
		if lower[i] != 5 || upper[i] != 5 {
			t.Errorf("step %d: bounds %v..%v, want exact for zero residuals", i, lower[i], upper[i])
		}
	}
}

func TestExponentialSmoothingTrend(t *testing.T) {
	f := NewForecaster(ForecasterConfig{Method: ForecastExponentialSmoothing, SeasonalPeriod: 4})

	series := make([]float64, 20)
	for i := range series {
		series[i] = float64(i) * 2
	}
	f.Fit(series)
	if !f.Fitted() {
		t.Fatal("forecaster not fitted")
	}

	values, lower, upper := f.Forecast(8)
	if len(values) != 8 {
		t.Fatalf("forecast length = %d, want 8", len(values))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("step %d: non-finite forecast %v", i, v)
		}
		if lower[i] > v || v > upper[i] {
			t.Errorf("step %d: bounds %v..%v do not bracket %v", i, lower[i], upper[i], v)
		}
	}
	if values[7] <= values[0] {
		t.Errorf("forecast did not continue the trend: first %v, last %v", values[0], values[7])
	}
}

func TestExponentialSmoothingShortSeries(t *testing.T) {
	// Too short for a full seasonal cycle pair falls back to trend-only
	// smoothing.
	f := NewForecaster(ForecasterConfig{Method: ForecastExponentialSmoothing, SeasonalPeriod: 24})

	series := make([]float64, 12)
	for i := range series {
		series[i] = 100 + float64(i)
	}
	f.Fit(series)
	if !f.Fitted() {
		t.Fatal("forecaster not fitted on 12 samples")
	}

	values, _, _ := f.Forecast(3)
	if len(values) != 3 {
		t.Fatalf("forecast length = %d, want 3", len(values))
	}
	if values[2] <= values[0] {
		t.Errorf("trend-only forecast not increasing: %v", values)
	}
}

func TestForecastBoundsWidth(t *testing.T) {
	f := NewForecaster(ForecasterConfig{Method: ForecastAutoregressive})

	// Noisy series: the residual spread must show up in the bounds.
	series := make([]float64, 30)
	for i := range series {
		series[i] = 100 + 10*math.Sin(float64(i))
	}
	f.Fit(series)
	if !f.Fitted() {
		t.Fatal("forecaster not fitted")
	}

	values, lower, upper := f.Forecast(4)
	for i := range values {
		if upper[i]-values[i] <= 0 {
			t.Errorf("step %d: no upper margin", i)
		}
		if !almostEqual(upper[i]-values[i], values[i]-lower[i], 1e-9) {
			t.Errorf("step %d: bounds not symmetric around forecast", i)
		}
	}
}

func TestForecastFitDropsNonFinite(t *testing.T) {
	f := NewForecaster(DefaultForecasterConfig())
	f.Fit([]float64{1, 2, 3, 4, math.NaN(), 5, 6, 7, 8, math.Inf(1), 9})
	if f.Fitted() {
		t.Error("forecaster fitted on fewer than 10 finite samples")
	}
}

func TestParseForecastMethod(t *testing.T) {
	for _, m := range []ForecastMethod{ForecastAutoregressive, ForecastExponentialSmoothing} {
		got, err := ParseForecastMethod(m.String())
		if err != nil || got != m {
			t.Errorf("ParseForecastMethod(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseForecastMethod("bogus"); err == nil {
		t.Error("ParseForecastMethod(bogus) did not fail")
	}
}
