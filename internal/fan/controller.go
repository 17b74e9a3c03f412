// Package fan maps temperature readings to binary fan commands.
package fan

import (
	"github.com/rs/zerolog"
)

// Transition describes the outcome of applying one sample to the controller.
type Transition int

const (
	// TransitionNone means the state did not change.
	TransitionNone Transition = iota
	// TransitionOn is an OFF→ON edge.
	TransitionOn
	// TransitionOff is an ON→OFF edge.
	TransitionOff
)

// Controller is the two-state fan state machine. A sample above the normal
// threshold turns the fan on; at or below it turns the fan off. The same
// threshold governs both directions; there is no hysteresis band, so the
// fan can cycle rapidly near the boundary. Adding a band would change
// observable behavior and is left as a deliberate follow-up.
//
// Controller is not internally synchronized; the monitor serializes access.
type Controller struct {
	logger zerolog.Logger
	driver Driver
	active bool
	cycles int64
}

// NewController creates a Controller starting in the OFF state.
func NewController(logger zerolog.Logger, driver Driver) *Controller {
	return &Controller{logger: logger, driver: driver}
}

// Apply evaluates one sample against the normal threshold and commands the
// driver on a state change. When the driver is unavailable the intended
// state is still tracked for reporting, the hardware is left untouched, and
// a degraded-mode notice is logged once per transition attempt rather than
// once per sample.
func (c *Controller) Apply(temp, normalThreshold float64) Transition {
	switch {
	case temp > normalThreshold && !c.active:
		c.active = true
		c.cycles++
		c.command(true, temp, normalThreshold)
		return TransitionOn
	case temp <= normalThreshold && c.active:
		c.active = false
		c.command(false, temp, normalThreshold)
		return TransitionOff
	default:
		return TransitionNone
	}
}

func (c *Controller) command(on bool, temp, threshold float64) {
	if c.driver == nil || !c.driver.Available() {
		c.logger.Warn().
			Bool("intended_on", on).
			Float64("temperature", temp).
			Msg("fan driver unavailable, tracking state only")
		return
	}

	if err := c.driver.Set(on); err != nil {
		c.logger.Error().Err(err).Bool("intended_on", on).Msg("fan command failed")
		return
	}

	if on {
		c.logger.Info().
			Float64("temperature", temp).
			Float64("threshold", threshold).
			Int64("cycles", c.cycles).
			Msg("fan turned on")
	} else {
		c.logger.Info().
			Float64("temperature", temp).
			Float64("threshold", threshold).
			Msg("fan turned off")
	}
}

// Active reports the current (possibly reporting-only) fan state.
func (c *Controller) Active() bool {
	return c.active
}

// Cycles returns the number of OFF→ON transitions since start or reset.
func (c *Controller) Cycles() int64 {
	return c.cycles
}

// Available reports whether the underlying driver can be commanded.
func (c *Controller) Available() bool {
	return c.driver != nil && c.driver.Available()
}

// ResetCycles re-zeroes the cycle counter. Used by the administrative
// statistics reset; the fan state itself is untouched.
func (c *Controller) ResetCycles() {
	c.cycles = 0
}

// Shutdown makes a best-effort attempt to leave the fan off.
func (c *Controller) Shutdown() {
	c.active = false
	if c.driver == nil || !c.driver.Available() {
		return
	}
	if err := c.driver.Set(false); err != nil {
		c.logger.Error().Err(err).Msg("failed to switch fan off during shutdown")
	}
}
