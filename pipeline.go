package vigil

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Severity classifies how urgent an alert is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AlertRecord is the normalized alert emitted when a breach is judged real.
// Records are append-only; they are never mutated after creation.
type AlertRecord struct {
	// Type names the breach class ("website", "synthetic", "error_rate").
	Type string `json:"type"`
	// SubjectID is the entity the alert concerns.
	SubjectID string `json:"subject_id"`
	// Message is the human-readable description.
	Message string `json:"message"`
	// TimestampMs is the alert creation time in Unix milliseconds.
	TimestampMs int64 `json:"timestamp"`
	// Severity is derived by the breach's own classification rules.
	Severity Severity `json:"severity"`
	// Confidence is the tuner's [0,1] score for how statistically extreme
	// the alerting value is.
	Confidence float64 `json:"confidence"`
}

// Breach is a raw trigger condition reported by an external check runner:
// an observed value crossed the stream's configured threshold. Severity and
// message are owned by the reporting collaborator's classification rules.
type Breach struct {
	Stream      StreamID
	Type        string
	Value       float64
	Context     []float64
	Threshold   float64
	Severity    Severity
	Message     string
	TimestampMs int64
}

// HistoryProvider supplies the historical value window used to lazily fit a
// stream's tuner. Implemented by the configuration/storage collaborator.
type HistoryProvider interface {
	History(id StreamID) []float64
}

// HistoryProviderFunc adapts a function to the HistoryProvider interface.
type HistoryProviderFunc func(id StreamID) []float64

// History calls fn.
func (fn HistoryProviderFunc) History(id StreamID) []float64 { return fn(id) }

// Notifier receives alert records that survived suppression. Formatting,
// delivery, and retries are the notifier's concern, not the pipeline's.
type Notifier interface {
	Notify(ctx context.Context, record AlertRecord) error
}

// Notifiers fans a record out to several notifiers, joining their errors.
type Notifiers []Notifier

// Notify delivers the record to every notifier in order.
func (ns Notifiers) Notify(ctx context.Context, record AlertRecord) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PipelineConfig configures an AlertPipeline.
type PipelineConfig struct {
	// Tuner configures the per-stream tuners the pipeline creates.
	Tuner TunerConfig

	// HistoryLimit caps the rolling per-stream sample buffer used as a
	// fallback fitting window. Default: 100.
	HistoryLimit int
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Tuner:        DefaultTunerConfig(),
		HistoryLimit: 100,
	}
}

// AlertPipeline coordinates breach signals from check runners with per-stream
// AlertTuners: it suppresses noisy firings and hands the surviving ones to
// the notification collaborator as AlertRecords. Each stream identity owns
// exactly one tuner; nothing is shared across streams. Map access is guarded
// internally, but concurrent Process calls for the same stream must be
// serialized by the caller.
type AlertPipeline struct {
	config   PipelineConfig
	history  HistoryProvider
	notifier Notifier

	mu     sync.Mutex
	tuners map[StreamID]*AlertTuner
	recent map[StreamID][]float64
}

// NewAlertPipeline creates a pipeline. history may be nil, in which case only
// the rolling observation buffer feeds lazy fitting; notifier may be nil to
// make processing decision-only.
func NewAlertPipeline(config PipelineConfig, history HistoryProvider, notifier Notifier) *AlertPipeline {
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 100
	}
	return &AlertPipeline{
		config:   config,
		history:  history,
		notifier: notifier,
		tuners:   make(map[StreamID]*AlertTuner),
		recent:   make(map[StreamID][]float64),
	}
}

// Observe appends a sample to the stream's rolling buffer, keeping the most
// recent HistoryLimit values. The buffer serves as the fallback fitting
// window when no HistoryProvider is configured, and enables periodic
// re-fitting from live traffic.
func (p *AlertPipeline) Observe(id StreamID, s Sample) {
	p.mu.Lock()
	defer p.mu.Unlock()

	buf := append(p.recent[id], s.Value)
	if len(buf) > p.config.HistoryLimit {
		buf = buf[len(buf)-p.config.HistoryLimit:]
	}
	p.recent[id] = buf
}

// Recent returns a copy of the stream's rolling buffer.
func (p *AlertPipeline) Recent(id StreamID) []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	buf := p.recent[id]
	out := make([]float64, len(buf))
	copy(out, buf)
	return out
}

// Tuner returns the stream's tuner, creating (and lazily fitting) it if
// needed.
func (p *AlertPipeline) Tuner(id StreamID) *AlertTuner {
	p.mu.Lock()
	t, ok := p.tuners[id]
	if !ok {
		t = NewAlertTuner(p.config.Tuner)
		p.tuners[id] = t
	}
	p.mu.Unlock()

	if !t.Fitted() {
		p.fitFromHistory(id, t)
	}
	return t
}

func (p *AlertPipeline) fitFromHistory(id StreamID, t *AlertTuner) {
	var window []float64
	if p.history != nil {
		window = p.history.History(id)
	}
	if len(window) < minFitSamples {
		window = p.Recent(id)
	}
	if len(window) == 0 {
		return
	}
	t.FitBaseline(window)
}

// Baselines returns the fitted baseline of every stream with a fitted
// tuner, keyed by the stream's string form.
func (p *AlertPipeline) Baselines() map[string]BaselineStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]BaselineStats)
	for id, t := range p.tuners {
		if t.Fitted() {
			out[id.String()] = t.Baseline()
		}
	}
	return out
}

// Refit re-fits a stream's tuner from the freshest available window,
// overwriting the previous baseline. Returns ErrNoBaseline when no window is
// available.
func (p *AlertPipeline) Refit(id StreamID) error {
	t := p.Tuner(id)

	var window []float64
	if p.history != nil {
		window = p.history.History(id)
	}
	if len(window) < minFitSamples {
		window = p.Recent(id)
	}
	if len(window) < minFitSamples {
		return ErrNoBaseline
	}
	t.FitBaseline(window)
	return nil
}

// Process decides whether a breach becomes an alert. Suppressed breaches are
// dropped silently with a debug log and return (nil, nil). Otherwise an
// AlertRecord is built with the breach's own severity classification and the
// tuner's confidence, handed to the notifier, and returned. Process itself
// is a stateless decision per call: no queuing or retries live here.
func (p *AlertPipeline) Process(ctx context.Context, b Breach) (*AlertRecord, error) {
	t := p.Tuner(b.Stream)

	if t.ShouldSuppress(b.Value, b.Context, b.Threshold) {
		slog.Debug("breach suppressed",
			"stream", b.Stream.String(), "value", b.Value, "threshold", b.Threshold)
		return nil, nil
	}

	ts := b.TimestampMs
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	severity := b.Severity
	if severity == "" {
		severity = SeverityMedium
	}

	record := AlertRecord{
		Type:        b.Type,
		SubjectID:   b.Stream.EntityID,
		Message:     b.Message,
		TimestampMs: ts,
		Severity:    severity,
		Confidence:  t.Confidence(b.Value, b.Context),
	}

	slog.Warn("alert", "type", record.Type, "subject", record.SubjectID,
		"severity", string(record.Severity), "confidence", record.Confidence,
		"message", record.Message)

	if p.notifier == nil {
		return &record, nil
	}
	if err := p.notifier.Notify(ctx, record); err != nil {
		return &record, err
	}
	return &record, nil
}
