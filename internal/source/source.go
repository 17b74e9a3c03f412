// Package source abstracts where temperature readings come from: the local
// thermal zone, a remote peer service, or a synthetic generator used when
// nothing else answers.
package source

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

// Prober reads one temperature value from a concrete backend.
type Prober interface {
	Probe(ctx context.Context) (float64, error)
}

// Jitter bounds for the synthetic fallback, matching the simulated range of
// the reference deployment: base + [-10, +25).
const (
	syntheticJitterMin  = -10.0
	syntheticJitterSpan = 35.0
)

// Sampler tries each prober in order and falls back to a synthetic value so
// the sampling loop never stalls and never observes an error.
type Sampler struct {
	logger  zerolog.Logger
	probers []Prober
	timeout time.Duration
	base    float64
	jitter  func() float64
}

// SamplerOption customizes Sampler behavior.
type SamplerOption func(*Sampler)

// WithJitter overrides the synthetic jitter source (primarily for testing).
func WithJitter(jitter func() float64) SamplerOption {
	return func(s *Sampler) {
		s.jitter = jitter
	}
}

// NewSampler builds a Sampler over the given probers. Probers are consulted
// in order; each attempt is bounded by timeout.
func NewSampler(logger zerolog.Logger, timeout time.Duration, base float64, probers []Prober, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		logger:  logger,
		probers: probers,
		timeout: timeout,
		base:    base,
		jitter:  rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sample returns one temperature reading. It never returns an error and
// never blocks longer than timeout per prober: any probe failure falls
// through to the next prober and finally to the synthetic generator.
func (s *Sampler) Sample(ctx context.Context) float64 {
	for _, prober := range s.probers {
		probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
		temp, err := prober.Probe(probeCtx)
		cancel()

		if err != nil {
			s.logger.Debug().Err(err).Msg("probe failed, trying next source")
			continue
		}
		if math.IsNaN(temp) || math.IsInf(temp, 0) {
			s.logger.Warn().Float64("temperature", temp).Msg("probe returned non-finite value, discarding")
			continue
		}
		return temp
	}

	synthetic := s.base + syntheticJitterMin + s.jitter()*syntheticJitterSpan
	s.logger.Info().Float64("temperature", synthetic).Msg("all probes failed, using synthetic reading")
	return synthetic
}

// SyntheticBounds reports the closed-open interval synthetic readings are
// drawn from, for callers that validate plausibility.
func (s *Sampler) SyntheticBounds() (low, high float64) {
	return s.base + syntheticJitterMin, s.base + syntheticJitterMin + syntheticJitterSpan
}
