package config

import (
	"fmt"
	"sync/atomic"
)

// Store holds the active configuration as an atomically swapped immutable
// snapshot. Readers always observe a complete, validated configuration;
// rejected updates leave the prior snapshot authoritative.
type Store struct {
	current atomic.Pointer[Config]
}

// NewStore creates a Store seeded with an already-validated configuration.
func NewStore(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("initial configuration invalid: %w", err)
	}
	s := &Store{}
	s.current.Store(&cfg)
	return s, nil
}

// Current returns a copy of the active configuration snapshot.
func (s *Store) Current() Config {
	return *s.current.Load()
}

// Apply validates the candidate configuration and swaps it in.
// On error the previous snapshot remains active.
func (s *Store) Apply(next Config) error {
	if err := next.Validate(); err != nil {
		return fmt.Errorf("configuration update rejected: %w", err)
	}
	s.current.Store(&next)
	return nil
}
