// Package vigil provides an adaptive alerting engine for monitoring
// telemetry: baseline learning, anomaly detection, threshold tuning,
// alert suppression, and short-horizon forecasting.
//
// Vigil models each monitored stream (an entity/metric pair) independently.
// Detectors and tuners learn a baseline from historical values, then score
// live values against it. Everything fails open: an unfit model never
// blocks or invents alerts, it reports non-anomalous, leaves thresholds
// unchanged, and returns neutral confidence.
//
// # Basic Usage
//
// Detect anomalies in a window of values:
//
//	det := vigil.NewAnomalyDetector(vigil.DefaultDetectorConfig())
//	det.Fit(baseline)
//	results := det.Detect(window)
//
// Tune an alert threshold against recent traffic:
//
//	tuner := vigil.NewAlertTuner(vigil.DefaultTunerConfig())
//	tuner.FitBaseline(history)
//	tuned := tuner.TuneThreshold(recent, current, vigil.TuneAdaptive)
//
// Run the full pipeline:
//
//	pipe := vigil.NewAlertPipeline(vigil.DefaultPipelineConfig(), nil, notifier)
//	record, err := pipe.Process(ctx, breach)
//
// # Features
//
// Detection & Tuning:
//   - Isolation-forest and boundary-based learned detection
//   - Z-score and IQR statistical detection
//   - Adaptive, percentile, and IQR threshold tuning
//   - Baseline-aware alert suppression and confidence scoring
//
// Forecasting:
//   - Differenced autoregressive projection
//   - Holt and Holt-Winters exponential smoothing
//   - Symmetric residual-based prediction bounds
//
// Integration:
//   - Prometheus remote-write ingestion
//   - WebSocket live alert feed
//   - SQLite alert history
//   - Encrypted, compressed S3 state snapshots
//   - JSONL batch detection, forecasting, and tuning reports
package vigil
