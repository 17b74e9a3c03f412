// Package history provides the bounded FIFO store of temperature readings.
package history

import "time"

// Reading is one timestamped temperature sample plus the fan state at that
// instant. Immutable once created.
type Reading struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	FanActive   bool      `json:"fan_active"`
}

// Store is a fixed-capacity, insertion-ordered ring of readings. Once full,
// each append overwrites the oldest slot in place, so appends stay O(1)
// regardless of capacity; entries are never reordered.
//
// Store is not internally synchronized. It is owned by the monitor, which
// serializes all access behind its own lock.
type Store struct {
	readings []Reading
	head     int
	count    int
}

// NewStore creates a Store with the given capacity (minimum 1).
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{readings: make([]Reading, capacity)}
}

// Append adds a reading, evicting the oldest when at capacity.
func (s *Store) Append(r Reading) {
	if s.count < len(s.readings) {
		s.readings[(s.head+s.count)%len(s.readings)] = r
		s.count++
		return
	}
	s.readings[s.head] = r
	s.head = (s.head + 1) % len(s.readings)
}

// Snapshot returns a copy of the last n readings in chronological order,
// or all readings when n <= 0 or n exceeds the current length. The copy is
// point-in-time: later appends never touch it.
func (s *Store) Snapshot(n int) []Reading {
	if s.count == 0 {
		return nil
	}
	take := s.count
	if n > 0 && n < take {
		take = n
	}
	out := make([]Reading, take)
	start := s.head + s.count - take
	for i := 0; i < take; i++ {
		out[i] = s.readings[(start+i)%len(s.readings)]
	}
	return out
}

// Last returns the most recent reading, if any.
func (s *Store) Last() (Reading, bool) {
	if s.count == 0 {
		return Reading{}, false
	}
	return s.readings[(s.head+s.count-1)%len(s.readings)], true
}

// Resize changes the capacity, keeping the most recent
// min(newCapacity, length) readings in their original order.
func (s *Store) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	keep := s.count
	if keep > capacity {
		keep = capacity
	}
	next := make([]Reading, capacity)
	copy(next, s.Snapshot(keep))
	s.readings = next
	s.head = 0
	s.count = keep
}

// Len returns the number of stored readings.
func (s *Store) Len() int {
	return s.count
}

// Cap returns the current capacity.
func (s *Store) Cap() int {
	return len(s.readings)
}
