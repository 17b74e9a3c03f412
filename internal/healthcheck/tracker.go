package healthcheck

import (
	"sync"
	"time"
)

// Snapshot describes the latest sample cycle timing details.
type Snapshot struct {
	LastSampleTime   *time.Time `json:"last_sample_time"`
	SampleDurationMS int64      `json:"sample_duration_ms"`
	SamplesTotal     int64      `json:"samples_total"`
}

// Tracker records sample cycle timing for health endpoints.
type Tracker struct {
	mu             sync.RWMutex
	lastSample     time.Time
	sampleDuration time.Duration
	samplesTotal   int64
	ready          bool
}

// NewTracker constructs a new Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordSample updates sample timing and readiness.
func (t *Tracker) RecordSample(duration time.Duration) {
	if t == nil {
		return
	}
	now := time.Now().UTC()
	t.mu.Lock()
	t.lastSample = now
	t.sampleDuration = duration
	t.samplesTotal++
	t.ready = true
	t.mu.Unlock()
}

// Snapshot returns the current tracker snapshot.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var last *time.Time
	if !t.lastSample.IsZero() {
		value := t.lastSample
		last = &value
	}
	return Snapshot{
		LastSampleTime:   last,
		SampleDurationMS: int64(t.sampleDuration / time.Millisecond),
		SamplesTotal:     t.samplesTotal,
	}
}

// Ready reports whether at least one sample has completed.
func (t *Tracker) Ready() bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

// Healthy reports whether the last sample completed within 2x the sample interval.
func (t *Tracker) Healthy(now time.Time, sampleInterval time.Duration) bool {
	if t == nil {
		return false
	}
	if sampleInterval <= 0 {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastSample.IsZero() {
		return false
	}
	return now.Sub(t.lastSample) <= 2*sampleInterval
}
