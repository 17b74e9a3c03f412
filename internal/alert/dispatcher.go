package alert

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Outcome records what happened for one alert event.
type Outcome struct {
	Severity   Severity
	Suppressed bool
	// Channels maps channel name to delivery success. Empty when suppressed.
	Channels map[string]bool
}

// Sent reports whether at least one channel delivered the alert.
func (o Outcome) Sent() bool {
	for _, ok := range o.Channels {
		if ok {
			return true
		}
	}
	return false
}

// Dispatcher applies the per-severity cooldown and fans alerts out to every
// configured channel. Cooldown state (ShouldDispatch/Commit) must be called
// under the monitor's lock; Fanout performs outbound I/O and must be called
// outside it.
type Dispatcher struct {
	logger      zerolog.Logger
	channels    []Channel
	sendTimeout time.Duration
	last        map[Severity]time.Time
	pending     map[Severity]reservation
}

// reservation remembers the cooldown state ShouldDispatch replaced, so an
// all-fail Commit can restore it.
type reservation struct {
	prev time.Time
	had  bool
}

// DispatcherOption customizes dispatcher behavior.
type DispatcherOption func(*Dispatcher)

// WithSendTimeout bounds each channel's Send call.
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.sendTimeout = timeout
	}
}

// NewDispatcher creates a Dispatcher over the given channels. Nil channels
// are dropped so optional channels can be passed unconditionally.
func NewDispatcher(logger zerolog.Logger, channels []Channel, opts ...DispatcherOption) *Dispatcher {
	filtered := make([]Channel, 0, len(channels))
	for _, channel := range channels {
		if channel == nil {
			continue
		}
		filtered = append(filtered, channel)
	}

	d := &Dispatcher{
		logger:      logger,
		channels:    filtered,
		sendTimeout: 30 * time.Second,
		last:        make(map[Severity]time.Time),
		pending:     make(map[Severity]reservation),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ShouldDispatch reports whether an alert of this severity is outside its
// cooldown window, and if so reserves the window immediately: a second
// pipeline checking the same severity before Commit runs is suppressed
// rather than double-dispatched. Commit finalizes the reservation or rolls
// it back when every channel failed. Windows are independent per severity:
// a suppressed CRITICAL never suppresses a later HIGH and vice versa.
func (d *Dispatcher) ShouldDispatch(now time.Time, sev Severity, cooldown time.Duration) bool {
	lastSent, ok := d.last[sev]
	if ok && now.Sub(lastSent) < cooldown {
		return false
	}
	d.pending[sev] = reservation{prev: lastSent, had: ok}
	d.last[sev] = now
	return true
}

// Fanout attempts delivery on every channel independently and returns the
// per-channel outcome. One channel's failure never affects another's
// attempt; every error is contained at the channel boundary.
func (d *Dispatcher) Fanout(ctx context.Context, sev Severity, subject, body string) map[string]bool {
	results := make(map[string]bool, len(d.channels))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, channel := range d.channels {
		wg.Add(1)
		go func(channel Channel) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
			defer cancel()

			err := channel.Send(sendCtx, sev, subject, body)
			if err != nil {
				d.logger.Warn().
					Err(err).
					Str("channel", channel.Name()).
					Str("severity", string(sev)).
					Msg("alert channel delivery failed")
			}

			mu.Lock()
			results[channel.Name()] = err == nil
			mu.Unlock()
		}(channel)
	}

	wg.Wait()
	return results
}

// Commit records the fan-out outcome. The cooldown timestamp advances only
// when at least one channel succeeded; an all-fail event releases the
// reservation taken by ShouldDispatch so the next qualifying sample retries.
// Returns the assembled outcome.
func (d *Dispatcher) Commit(now time.Time, sev Severity, results map[string]bool) Outcome {
	outcome := Outcome{Severity: sev, Channels: results}
	reserved, ok := d.pending[sev]
	delete(d.pending, sev)

	if outcome.Sent() {
		d.last[sev] = now
		return outcome
	}

	if ok {
		if reserved.had {
			d.last[sev] = reserved.prev
		} else {
			delete(d.last, sev)
		}
	}
	return outcome
}

// LastDispatch returns the last successful dispatch time for a severity.
// A pending reservation does not count until it commits.
func (d *Dispatcher) LastDispatch(sev Severity) (time.Time, bool) {
	if reserved, ok := d.pending[sev]; ok {
		return reserved.prev, reserved.had
	}
	lastSent, ok := d.last[sev]
	return lastSent, ok
}

// ChannelCount reports how many channels are configured.
func (d *Dispatcher) ChannelCount() int {
	return len(d.channels)
}
