package ralph

import (
	"fmt"
	"strings"

	"ralph/internal/prd"
)

// ValidationError reports that the agent modified PRD fields it is not
// permitted to touch. Paths lists every offending field path.
type ValidationError struct {
	FeatureID string
	Paths     []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid PRD modification for feature %s: only status changes are allowed (offending: %s)",
		e.FeatureID, strings.Join(e.Paths, ", "))
}

// ValidateChanges diffs two document snapshots and enforces the
// single-field-change policy: for the attempted feature, the only
// permitted change is status moving to in-progress, complete, or blocked;
// for every other field of every other feature, no change at all.
//
// The returned paths are the full structural diff regardless of outcome.
// A nil error with an empty diff is a valid no-op iteration.
func ValidateChanges(before, after *prd.Document, featureID string) ([]string, error) {
	changed := prd.Diff(before, after)
	if len(changed) == 0 {
		return nil, nil
	}

	allowed := ""
	for i := range before.Features {
		if before.Features[i].ID == featureID {
			allowed = fmt.Sprintf("features[%d].status", i)
			break
		}
	}

	var offending []string
	for _, p := range changed {
		if p != allowed {
			offending = append(offending, p)
		}
	}

	if len(offending) == 0 {
		from := before.Feature(featureID).Status
		to := after.Feature(featureID).Status
		if !legalTransition(from, to) {
			return changed, &ValidationError{FeatureID: featureID, Paths: changed}
		}
		return changed, nil
	}

	return changed, &ValidationError{FeatureID: featureID, Paths: offending}
}

// legalTransition enforces the status lifecycle: pending→in-progress,
// in-progress→complete, any non-terminal→blocked. pending→complete is
// accepted because the agent performs both transitions within a single
// session and only the final snapshot is observed. Terminal statuses
// never leave.
func legalTransition(from, to prd.Status) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case prd.StatusInProgress:
		return from == prd.StatusPending
	case prd.StatusComplete:
		return from == prd.StatusPending || from == prd.StatusInProgress
	case prd.StatusBlocked:
		return true
	default:
		return false
	}
}
