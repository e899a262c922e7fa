package vigil

import (
	"fmt"
	"time"
)

// BreachThresholds hold the static trigger thresholds the check runners
// evaluate against. They are supplied by the external configuration
// collaborator; the tuner may later move the per-stream values.
type BreachThresholds struct {
	// WebsiteResponseTimeMs triggers a website breach when exceeded.
	WebsiteResponseTimeMs float64 `yaml:"website_response_time_ms"`
	// SyntheticFailureCount is the failure count within the window that
	// triggers a synthetic breach.
	SyntheticFailureCount int `yaml:"synthetic_failure_count"`
	// SyntheticFailureWindow is the lookback window for synthetic failures.
	SyntheticFailureWindow time.Duration `yaml:"synthetic_failure_window"`
	// ErrorRate triggers an error-rate breach when exceeded.
	ErrorRate float64 `yaml:"error_rate_threshold"`
}

// DefaultBreachThresholds returns the default trigger thresholds.
func DefaultBreachThresholds() BreachThresholds {
	return BreachThresholds{
		WebsiteResponseTimeMs:  5000,
		SyntheticFailureCount:  3,
		SyntheticFailureWindow: 5 * time.Minute,
		ErrorRate:              0.05,
	}
}

// CheckRun is one execution of a synthetic check as reported by a runner.
type CheckRun struct {
	TimestampMs int64  `json:"timestamp"`
	Status      string `json:"status"`
}

// CheckWebsite classifies a website measurement against the response-time
// threshold and status code. Severity is high for server errors, medium
// otherwise. Returns nil when no breach occurred.
func (t BreachThresholds) CheckWebsite(websiteID string, responseTimeMs float64, statusCode int) *Breach {
	if responseTimeMs <= t.WebsiteResponseTimeMs && statusCode < 400 {
		return nil
	}

	severity := SeverityMedium
	if statusCode >= 500 {
		severity = SeverityHigh
	}
	return &Breach{
		Stream:      StreamID{EntityID: websiteID, Metric: "response_time_ms"},
		Type:        "website",
		Value:       responseTimeMs,
		Threshold:   t.WebsiteResponseTimeMs,
		Severity:    severity,
		Message:     fmt.Sprintf("Website %s alert: Response time %.0fms, Status %d", websiteID, responseTimeMs, statusCode),
		TimestampMs: time.Now().UnixMilli(),
	}
}

// CheckSynthetic classifies recent synthetic check runs: when the number of
// failures inside the lookback window reaches the configured count, a
// high-severity breach is reported. Returns nil otherwise.
func (t BreachThresholds) CheckSynthetic(checkID string, recentRuns []CheckRun) *Breach {
	cutoff := time.Now().Add(-t.SyntheticFailureWindow).UnixMilli()
	failures := 0
	for _, run := range recentRuns {
		if run.TimestampMs > cutoff && run.Status == "failure" {
			failures++
		}
	}
	if failures < t.SyntheticFailureCount {
		return nil
	}

	return &Breach{
		Stream:      StreamID{EntityID: checkID, Metric: "failure_count"},
		Type:        "synthetic",
		Value:       float64(failures),
		Threshold:   float64(t.SyntheticFailureCount),
		Severity:    SeverityHigh,
		Message: fmt.Sprintf("Synthetic check %s failed %d times in %s",
			checkID, failures, t.SyntheticFailureWindow),
		TimestampMs: time.Now().UnixMilli(),
	}
}

// CheckErrorRate classifies an entity's error rate against the configured
// threshold. Severity is medium. Returns nil when under the threshold.
func (t BreachThresholds) CheckErrorRate(entityID string, errorRate float64) *Breach {
	if errorRate <= t.ErrorRate {
		return nil
	}

	return &Breach{
		Stream:      StreamID{EntityID: entityID, Metric: "error_rate"},
		Type:        "error_rate",
		Value:       errorRate,
		Threshold:   t.ErrorRate,
		Severity:    SeverityMedium,
		Message: fmt.Sprintf("Entity %s error rate %.3f exceeds threshold %g",
			entityID, errorRate, t.ErrorRate),
		TimestampMs: time.Now().UnixMilli(),
	}
}
