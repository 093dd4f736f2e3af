package services

import "sync"

// ProgressTracker turns (index, count) postbacks into a display
// percentage. It tolerates the count changing mid-stream, clamps the
// index into [0, count], and never lets the percentage decrease. It is
// purely observational and never gates the producing worker.
type ProgressTracker struct {
	mu      sync.Mutex
	index   int
	count   int
	percent int
}

// Update records a progress postback.
func (t *ProgressTracker) Update(index, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if count >= 0 {
		t.count = count
	}
	if index < 0 {
		index = 0
	}
	if index > t.count {
		index = t.count
	}
	t.index = index

	if t.count > 0 {
		if p := index * 100 / t.count; p > t.percent {
			t.percent = p
		}
	}
}

// Finish forces the tracker to 100%.
func (t *ProgressTracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index = t.count
	t.percent = 100
}

// Snapshot returns the clamped index, the current count and the
// monotonically non-decreasing percentage.
func (t *ProgressTracker) Snapshot() (index, count, percent int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index, t.count, t.percent
}
