package vigil

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"
)

// Timeframe is the time span covered by one timeseries record.
type Timeframe struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// AnomalyMark is one flagged point appended to a batch record.
type AnomalyMark struct {
	Timestamp    int64   `json:"timestamp"`
	Value        float64 `json:"value"`
	AnomalyScore float64 `json:"anomaly_score"`
}

// TimeseriesRecord is the line-delimited JSON batch input shape. Detection
// appends the Anomalies list; all other fields pass through untouched.
type TimeseriesRecord struct {
	EntityID   string        `json:"entity_id"`
	MetricName string        `json:"metric_name"`
	Timeframe  Timeframe     `json:"timeframe"`
	Points     []Sample      `json:"points"`
	Anomalies  []AnomalyMark `json:"anomalies,omitempty"`
}

// Stream returns the record's stream identity.
func (r TimeseriesRecord) Stream() StreamID {
	return StreamID{EntityID: r.EntityID, Metric: r.MetricName}
}

// trainFraction is the fixed share of each stream's concatenated values used
// to fit batch models; the remainder plus the training window is scored.
const trainFraction = 0.7

// ReadTimeseries decodes line-delimited JSON timeseries records.
func ReadTimeseries(r io.Reader) ([]TimeseriesRecord, error) {
	var records []TimeseriesRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec TimeseriesRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// LoadTimeseriesFile reads timeseries records from a JSONL file. A missing
// file logs a warning and yields no records, matching the best-effort batch
// policy.
func LoadTimeseriesFile(path string) []TimeseriesRecord {
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("timeseries file not found", "path", path)
		return nil
	}
	defer func() { _ = f.Close() }()

	records, err := ReadTimeseries(f)
	if err != nil {
		slog.Warn("failed to read timeseries file", "path", path, "err", err)
		return nil
	}
	return records
}

// groupByStream groups records per stream identity, each group sorted by
// timeframe start.
func groupByStream(records []TimeseriesRecord) map[StreamID][]TimeseriesRecord {
	grouped := make(map[StreamID][]TimeseriesRecord)
	for _, rec := range records {
		grouped[rec.Stream()] = append(grouped[rec.Stream()], rec)
	}
	for _, group := range grouped {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timeframe.From < group[j].Timeframe.From
		})
	}
	return grouped
}

// DetectTimeseriesAnomalies runs batch anomaly detection over timeseries
// records. Records are grouped per stream and sorted by timeframe; a
// detector is fit on the first 70% of each stream's concatenated values and
// then scores the full series, training window included. Streams with fewer
// than 10 points get empty anomaly lists.
func DetectTimeseriesAnomalies(records []TimeseriesRecord, config DetectorConfig) []TimeseriesRecord {
	if len(records) == 0 {
		return nil
	}

	var enhanced []TimeseriesRecord
	for _, group := range groupByStream(records) {
		var values []float64
		for _, rec := range group {
			values = append(values, Values(rec.Points)...)
		}

		if len(values) < minFitSamples {
			for _, rec := range group {
				rec.Anomalies = []AnomalyMark{}
				enhanced = append(enhanced, rec)
			}
			continue
		}

		detector := NewAnomalyDetector(config)
		trainSize := int(float64(len(values)) * trainFraction)
		detector.Fit(values[:trainSize])
		detections := detector.Detect(values)

		idx := 0
		for _, rec := range group {
			marks := []AnomalyMark{}
			for _, pt := range rec.Points {
				if idx < len(detections) && detections[idx].Anomaly {
					marks = append(marks, AnomalyMark{
						Timestamp:    pt.Timestamp,
						Value:        pt.Value,
						AnomalyScore: detector.Score(pt.Value),
					})
				}
				idx++
			}
			rec.Anomalies = marks
			enhanced = append(enhanced, rec)
		}
	}
	return enhanced
}

// ForecastTimeseries fits a forecaster per stream and projects it forward,
// keyed by the stream's "entityID_metric" string. Future timestamps continue
// hourly from the last observed point. Streams with too little data, or
// where fitting fails, are skipped.
func ForecastTimeseries(records []TimeseriesRecord, steps int, config ForecasterConfig) map[string]*ForecastResult {
	results := make(map[string]*ForecastResult)
	for id, group := range groupByStream(records) {
		var values []float64
		var timestamps []int64
		for _, rec := range group {
			values = append(values, Values(rec.Points)...)
			timestamps = append(timestamps, Timestamps(rec.Points)...)
		}
		if len(values) < minFitSamples {
			slog.Warn("insufficient data for forecast", "stream", id.String())
			continue
		}

		forecaster := NewForecaster(config)
		forecaster.Fit(values)
		forecast, lower, upper := forecaster.Forecast(steps)
		if len(forecast) == 0 {
			continue
		}

		lastTs := timestamps[len(timestamps)-1]
		futureTs := make([]int64, len(forecast))
		for i := range forecast {
			futureTs[i] = lastTs + int64(i+1)*time.Hour.Milliseconds()
		}

		results[id.String()] = &ForecastResult{
			HistoricalTimestamps: timestamps,
			HistoricalValues:     values,
			ForecastTimestamps:   futureTs,
			ForecastValues:       forecast,
			LowerBound:           lower,
			UpperBound:           upper,
		}
	}
	return results
}

// TuneReport summarizes a batch threshold-tuning pass for one stream.
type TuneReport struct {
	EntityID               string  `json:"entity_id"`
	MetricName             string  `json:"metric_name"`
	OriginalThreshold      float64 `json:"original_threshold"`
	TunedThreshold         float64 `json:"tuned_threshold"`
	ThresholdChangePercent float64 `json:"threshold_change_percent"`
	SuppressionRecommended bool    `json:"suppression_recommended"`
	Confidence             float64 `json:"confidence"`
}

// TuneStream tunes the alert threshold for one stream from batch records:
// the tuner is fit on the first 70% of the stream's values and the remainder
// drives adaptive tuning, plus a trial suppression/confidence evaluation of
// the most extreme recent value. Fewer than 20 values returns the current
// threshold unchanged with neutral confidence.
func TuneStream(id StreamID, records []TimeseriesRecord, currentThreshold float64, config TunerConfig) TuneReport {
	var values []float64
	for _, rec := range records {
		if rec.Stream() != id {
			continue
		}
		values = append(values, Values(rec.Points)...)
	}

	report := TuneReport{
		EntityID:          id.EntityID,
		MetricName:        id.Metric,
		OriginalThreshold: currentThreshold,
		TunedThreshold:    currentThreshold,
		Confidence:        0.5,
	}
	if len(values) < 2*minFitSamples {
		return report
	}

	tuner := NewAlertTuner(config)
	trainSize := int(float64(len(values)) * trainFraction)
	tuner.FitBaseline(values[:trainSize])

	recent := values[trainSize:]
	report.TunedThreshold = tuner.TuneThreshold(recent, currentThreshold, TuneAdaptive)
	if currentThreshold > 0 {
		report.ThresholdChangePercent =
			(report.TunedThreshold - currentThreshold) / currentThreshold * 100
	}

	// Trial the suppression and confidence paths on the most extreme
	// recent value, over the last 10 recent points of context.
	trial := currentThreshold + 10
	if len(recent) > 0 {
		trial = recent[0]
		for _, v := range recent {
			if v > trial {
				trial = v
			}
		}
	}
	ctxWindow := recent
	if len(ctxWindow) > 10 {
		ctxWindow = ctxWindow[len(ctxWindow)-10:]
	}
	report.SuppressionRecommended = tuner.ShouldSuppress(trial, ctxWindow, currentThreshold)
	report.Confidence = tuner.Confidence(trial, ctxWindow)
	return report
}
