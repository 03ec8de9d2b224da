package ralph

// stuckWindow is the number of consecutive identical iteration
// signatures that constitutes a stuck loop.
const stuckWindow = 3

// Detector watches iteration records for repetition. The loop is
// considered stuck when stuckWindow consecutive records carry the same
// signature: same feature, same outcome, same set of changed paths.
type Detector struct {
	last  string
	count int
}

// NewDetector returns a Detector with an empty history.
func NewDetector() *Detector {
	return &Detector{}
}

// Observe feeds one record into the detector and reports whether the
// record completes a stuck window. It returns true exactly once per
// run of identical signatures, on the stuckWindow-th observation.
func (d *Detector) Observe(rec Record) bool {
	sig := rec.Signature()
	if sig == d.last {
		d.count++
	} else {
		d.last = sig
		d.count = 1
	}
	return d.count == stuckWindow
}

// Reset clears the detector history.
func (d *Detector) Reset() {
	d.last = ""
	d.count = 0
}
