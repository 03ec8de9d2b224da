package ralph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Outcome represents the result of one agent iteration.
type Outcome int

const (
	OutcomeSuccess         Outcome = iota // Agent exited zero with a valid (or no) PRD change.
	OutcomeComplete                       // Agent emitted the completion marker.
	OutcomeRateLimited                    // Output carried a rate-limit marker; retried after cooldown.
	OutcomeTimeout                        // Agent was killed at the deadline.
	OutcomeProcessError                   // Nonzero exit with no rate-limit marker.
	OutcomeValidationError                // Agent changed forbidden PRD fields.
	OutcomeLoopDetected                   // Output carried a stuck phrase.
)

// String returns a human-readable label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeComplete:
		return "complete"
	case OutcomeRateLimited:
		return "rate-limited"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeProcessError:
		return "process-error"
	case OutcomeValidationError:
		return "validation-error"
	case OutcomeLoopDetected:
		return "loop-detected"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, v := range []Outcome{
		OutcomeSuccess, OutcomeComplete, OutcomeRateLimited, OutcomeTimeout,
		OutcomeProcessError, OutcomeValidationError, OutcomeLoopDetected,
	} {
		if v.String() == s {
			*o = v
			return nil
		}
	}
	return fmt.Errorf("unknown Outcome: %s", s)
}

// Record is the append-only account of a single iteration. Records are
// never mutated after creation.
type Record struct {
	Iteration    int       `json:"iteration"`
	FeatureID    string    `json:"feature_id"`
	Outcome      Outcome   `json:"outcome"`
	Timestamp    time.Time `json:"timestamp"`
	ChangedPaths []string  `json:"changed_paths,omitempty"`
}

// Signature collapses a record into a comparable key for stuck detection:
// attempted feature, outcome kind, and the sorted set of changed paths.
// Two iterations with the same signature made the same (non-)progress.
func (r Record) Signature() string {
	paths := append([]string(nil), r.ChangedPaths...)
	sort.Strings(paths)
	return r.FeatureID + "|" + r.Outcome.String() + "|" + strings.Join(paths, ",")
}
