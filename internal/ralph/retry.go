package ralph

import "time"

// Class is a coarse grouping of iteration outcomes used by the retry
// machinery: successes reset counters, rate limits trigger a cooldown
// without counting against the failure limit, failures accumulate.
type Class int

const (
	ClassSuccess Class = iota
	ClassRateLimited
	ClassFailure
)

// Classify maps an outcome to its retry class.
func Classify(o Outcome) Class {
	switch o {
	case OutcomeSuccess, OutcomeComplete:
		return ClassSuccess
	case OutcomeRateLimited:
		return ClassRateLimited
	default:
		return ClassFailure
	}
}

// Policy holds the retry thresholds for a loop run.
type Policy struct {
	// FailureLimit stops the loop after this many consecutive
	// failures. Successes and rate limits reset the counter.
	FailureLimit int

	// Cooldown is how long to wait after a rate-limited iteration
	// before trying again.
	Cooldown time.Duration

	// RateLimitRetries caps consecutive rate-limited iterations.
	// Zero means retry indefinitely.
	RateLimitRetries int
}

// DefaultPolicy mirrors the stock thresholds: three consecutive
// failures abort, rate limits cool down for a minute and retry up to
// ten times.
func DefaultPolicy() Policy {
	return Policy{
		FailureLimit:     3,
		Cooldown:         60 * time.Second,
		RateLimitRetries: 10,
	}
}

// FeatureErrorTracker counts per-feature failures so the loop can stop
// selecting a feature that keeps failing. When a feature reaches the
// limit it is auto-blocked in the PRD rather than retried forever.
type FeatureErrorTracker struct {
	limit  int
	counts map[string]int
}

// NewFeatureErrorTracker returns a tracker that flags a feature after
// limit failures. A limit of zero disables tracking.
func NewFeatureErrorTracker(limit int) *FeatureErrorTracker {
	return &FeatureErrorTracker{
		limit:  limit,
		counts: make(map[string]int),
	}
}

// Enabled reports whether the tracker is active.
func (t *FeatureErrorTracker) Enabled() bool {
	return t.limit > 0
}

// Record notes a failed iteration for the feature and reports whether
// the feature has now hit the limit.
func (t *FeatureErrorTracker) Record(featureID string) bool {
	if !t.Enabled() || featureID == "" {
		return false
	}
	t.counts[featureID]++
	return t.counts[featureID] >= t.limit
}

// Reset clears the failure count for a feature, typically after a
// successful iteration on it.
func (t *FeatureErrorTracker) Reset(featureID string) {
	delete(t.counts, featureID)
}

// Count returns the current failure count for a feature.
func (t *FeatureErrorTracker) Count(featureID string) int {
	return t.counts[featureID]
}
