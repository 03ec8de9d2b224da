package ralph

import "ralph/internal/prd"

// ProgressObserver receives progress updates as the loop runs.
// Implementations must not block; slow observers delay the loop.
type ProgressObserver interface {
	// OnLoopStart is called once before the first iteration.
	OnLoopStart(runID string, doc *prd.Document)

	// OnIterationStart is called before the agent is invoked.
	OnIterationStart(iteration int, featureID string)

	// OnIterationEnd is called after the iteration record is final.
	OnIterationEnd(rec Record)

	// OnLoopEnd is called once with the terminal summary.
	OnLoopEnd(summary *Summary)
}

// NoopObserver implements ProgressObserver with empty methods. Embed it
// to implement only the callbacks you care about.
type NoopObserver struct{}

var _ ProgressObserver = NoopObserver{}

func (NoopObserver) OnLoopStart(string, *prd.Document) {}
func (NoopObserver) OnIterationStart(int, string)      {}
func (NoopObserver) OnIterationEnd(Record)             {}
func (NoopObserver) OnLoopEnd(*Summary)                {}

// MultiObserver fans out progress updates to multiple observers.
// It handles nil observers gracefully by skipping them.
type MultiObserver struct {
	observers []ProgressObserver
}

var _ ProgressObserver = (*MultiObserver)(nil)

// NewMultiObserver creates a MultiObserver that forwards calls to all
// provided observers. Nil observers are filtered out.
func NewMultiObserver(observers ...ProgressObserver) *MultiObserver {
	filtered := make([]ProgressObserver, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}
	return &MultiObserver{observers: filtered}
}

// safeCall calls fn with panic recovery. One observer failing shouldn't
// block others.
func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
		}
	}()
	fn()
}

// OnLoopStart forwards the call to all observers.
func (m *MultiObserver) OnLoopStart(runID string, doc *prd.Document) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnLoopStart(runID, doc) })
	}
}

// OnIterationStart forwards the call to all observers.
func (m *MultiObserver) OnIterationStart(iteration int, featureID string) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnIterationStart(iteration, featureID) })
	}
}

// OnIterationEnd forwards the call to all observers.
func (m *MultiObserver) OnIterationEnd(rec Record) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnIterationEnd(rec) })
	}
}

// OnLoopEnd forwards the call to all observers.
func (m *MultiObserver) OnLoopEnd(summary *Summary) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnLoopEnd(summary) })
	}
}
