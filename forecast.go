package vigil

import (
	"fmt"
	"log/slog"
	"math"
)

// ForecastMethod identifies the forecasting algorithm.
type ForecastMethod int

const (
	// ForecastAutoregressive fits a first-order autoregressive model on the
	// once-differenced series (ARIMA(1,1,1)-shaped).
	ForecastAutoregressive ForecastMethod = iota
	// ForecastExponentialSmoothing fits Holt-Winters additive smoothing,
	// falling back to Holt's linear smoothing when fewer than two full
	// seasons are available.
	ForecastExponentialSmoothing
)

// String returns the configuration name of the method.
func (m ForecastMethod) String() string {
	switch m {
	case ForecastAutoregressive:
		return "autoregressive-integrated"
	case ForecastExponentialSmoothing:
		return "exponential-smoothing"
	default:
		return "unknown"
	}
}

// ParseForecastMethod parses a configuration method name.
func ParseForecastMethod(s string) (ForecastMethod, error) {
	switch s {
	case "autoregressive-integrated":
		return ForecastAutoregressive, nil
	case "exponential-smoothing":
		return ForecastExponentialSmoothing, nil
	default:
		return 0, fmt.Errorf("unknown forecast method %q", s)
	}
}

// ForecasterConfig configures a Forecaster.
type ForecasterConfig struct {
	// Method is the forecasting algorithm.
	Method ForecastMethod

	// SeasonalPeriod is the number of points per season, used only by
	// exponential smoothing. Default: 24 (hourly data, daily season).
	SeasonalPeriod int
}

// DefaultForecasterConfig returns the default forecaster configuration.
func DefaultForecasterConfig() ForecasterConfig {
	return ForecasterConfig{
		Method:         ForecastAutoregressive,
		SeasonalPeriod: 24,
	}
}

// ForecastResult is the batch forecast output for one stream: the historical
// series it was fit on plus the projected points with confidence bounds.
// Recomputed fully on every call.
type ForecastResult struct {
	HistoricalTimestamps []int64   `json:"historical_timestamps"`
	HistoricalValues     []float64 `json:"historical_values"`
	ForecastTimestamps   []int64   `json:"forecast_timestamps"`
	ForecastValues       []float64 `json:"forecast_values"`
	LowerBound           []float64 `json:"lower_bound"`
	UpperBound           []float64 `json:"upper_bound"`
}

// Forecaster fits a time-series model on a historical series and projects it
// forward with approximate 95% confidence bounds. Forecasting is best-effort:
// an internal fitting failure logs and leaves the model unfit, and an unfit
// model forecasts empty sequences rather than erroring.
//
// A forecaster is owned by exactly one stream and is not safe for concurrent
// use.
type Forecaster struct {
	config ForecasterConfig
	fitted bool

	// Autoregressive state.
	phi      float64
	lastVal  float64
	lastDiff float64

	// Exponential smoothing state.
	level    float64
	trend    float64
	seasonal []float64
	periods  int // observations consumed, for seasonal index continuation

	residualStd float64
}

// NewForecaster creates an unfit forecaster.
func NewForecaster(config ForecasterConfig) *Forecaster {
	if config.SeasonalPeriod <= 0 {
		config.SeasonalPeriod = 24
	}
	return &Forecaster{config: config}
}

// Fitted reports whether Fit has succeeded.
func (f *Forecaster) Fitted() bool {
	return f.fitted
}

// Fit trains the configured model on the series. Fewer than 10 finite points
// is a logged no-op. Refitting overwrites prior state.
func (f *Forecaster) Fit(series []float64) {
	finite, dropped := filterFinite(series)
	if dropped > 0 {
		slog.Warn("dropping non-finite samples before forecast fit", "dropped", dropped)
	}
	if len(finite) < minFitSamples {
		slog.Warn("insufficient data for forecasting",
			"samples", len(finite), "min", minFitSamples)
		return
	}

	var err error
	switch f.config.Method {
	case ForecastExponentialSmoothing:
		err = f.fitSmoothing(finite)
	default:
		err = f.fitAutoregressive(finite)
	}
	if err != nil {
		slog.Warn("forecast model fitting failed",
			"method", f.config.Method.String(), "err", err)
		f.fitted = false
		return
	}

	f.fitted = true
	slog.Info("forecaster fitted",
		"method", f.config.Method.String(), "samples", len(finite))
}

// fitAutoregressive differences the series once and fits an AR(1)
// coefficient by least squares on the differences.
func (f *Forecaster) fitAutoregressive(series []float64) error {
	diffs := make([]float64, len(series)-1)
	for i := 1; i < len(series); i++ {
		diffs[i-1] = series[i] - series[i-1]
	}

	var num, den float64
	for i := 1; i < len(diffs); i++ {
		num += diffs[i] * diffs[i-1]
		den += diffs[i-1] * diffs[i-1]
	}
	phi := 0.0
	if den > 0 {
		phi = num / den
	}
	if math.IsNaN(phi) || math.IsInf(phi, 0) {
		return fmt.Errorf("%w: degenerate autoregressive coefficient", ErrFitFailed)
	}
	// Keep the projection stationary.
	phi = math.Max(-0.99, math.Min(0.99, phi))

	// One-step in-sample residuals.
	var residuals []float64
	for i := 2; i < len(series); i++ {
		predicted := series[i-1] + phi*diffs[i-2]
		residuals = append(residuals, series[i]-predicted)
	}

	f.phi = phi
	f.lastVal = series[len(series)-1]
	f.lastDiff = diffs[len(diffs)-1]
	f.residualStd = residualStdOrDefault(residuals)
	return nil
}

// fitSmoothing fits Holt-Winters additive smoothing, or Holt's linear method
// when the series is shorter than two seasons.
func (f *Forecaster) fitSmoothing(series []float64) error {
	const (
		alpha = 0.5
		beta  = 0.1
		gamma = 0.1
	)
	m := f.config.SeasonalPeriod

	if len(series) < 2*m {
		// Holt's linear: no seasonal component.
		level := series[0]
		trend := series[1] - series[0]
		var residuals []float64
		for i := 1; i < len(series); i++ {
			predicted := level + trend
			residuals = append(residuals, series[i]-predicted)
			prevLevel := level
			level = alpha*series[i] + (1-alpha)*(prevLevel+trend)
			trend = beta*(level-prevLevel) + (1-beta)*trend
		}
		if math.IsNaN(level) || math.IsNaN(trend) {
			return fmt.Errorf("%w: smoothing diverged", ErrFitFailed)
		}
		f.level = level
		f.trend = trend
		f.seasonal = nil
		f.periods = len(series)
		f.residualStd = residualStdOrDefault(residuals)
		return nil
	}

	level := mean(series[:m])
	trend := (mean(series[m:2*m]) - mean(series[:m])) / float64(m)
	seasonal := make([]float64, m)
	for i := 0; i < m; i++ {
		seasonal[i] = series[i] - level
	}

	var residuals []float64
	for i := m; i < len(series); i++ {
		idx := i % m
		predicted := level + trend + seasonal[idx]
		residuals = append(residuals, series[i]-predicted)

		prevLevel := level
		level = alpha*(series[i]-seasonal[idx]) + (1-alpha)*(prevLevel+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
		seasonal[idx] = gamma*(series[i]-level) + (1-gamma)*seasonal[idx]
	}
	if math.IsNaN(level) || math.IsNaN(trend) {
		return fmt.Errorf("%w: smoothing diverged", ErrFitFailed)
	}

	f.level = level
	f.trend = trend
	f.seasonal = seasonal
	f.periods = len(series)
	f.residualStd = residualStdOrDefault(residuals)
	return nil
}

// Forecast projects the fitted series forward. An unfit model returns three
// empty sequences, the detectable "no forecast available" signal. Bounds are
// value +/- 1.96 standard deviations of the in-sample residuals, so
// lower[i] <= value[i] <= upper[i] always holds.
func (f *Forecaster) Forecast(steps int) (values, lower, upper []float64) {
	if !f.fitted || steps <= 0 {
		if !f.fitted {
			slog.Warn("model not fitted, cannot forecast")
		}
		return []float64{}, []float64{}, []float64{}
	}

	values = make([]float64, steps)
	switch f.config.Method {
	case ForecastExponentialSmoothing:
		for i := 0; i < steps; i++ {
			v := f.level + float64(i+1)*f.trend
			if len(f.seasonal) > 0 {
				v += f.seasonal[(f.periods+i)%len(f.seasonal)]
			}
			values[i] = v
		}
	default:
		val, diff := f.lastVal, f.lastDiff
		for i := 0; i < steps; i++ {
			diff = f.phi * diff
			val += diff
			values[i] = val
		}
	}

	lower = make([]float64, steps)
	upper = make([]float64, steps)
	for i, v := range values {
		lower[i] = v - 1.96*f.residualStd
		upper[i] = v + 1.96*f.residualStd
	}
	return values, lower, upper
}

// residualStdOrDefault is the standard deviation of the in-sample residuals,
// defaulting to 1.0 when residuals are unavailable.
func residualStdOrDefault(residuals []float64) float64 {
	if len(residuals) == 0 {
		return 1.0
	}
	return stddev(residuals)
}
