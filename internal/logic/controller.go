package logic

import (
	"fmt"
	"time"
)

// Alert hysteresis defaults: enter at 5cm or closer, leave at 6cm or more.
const (
	DefaultAlertEnter = 5
	DefaultAlertExit  = 6
)

// AlertState is the all-on output held while the alert is active.
var AlertState = ActuatorState{Red: true, Green: true, Blue: true, Buzzer: true}

// Config holds the policy parameters.
type Config struct {
	Estimator  Estimator
	Table      Table
	AlertEnter int // enter alert at or below this distance
	AlertExit  int // leave alert at or above this distance
}

// DefaultConfig returns the reference policy.
func DefaultConfig() Config {
	return Config{
		Estimator:  DefaultEstimator(),
		Table:      DefaultTable,
		AlertEnter: DefaultAlertEnter,
		AlertExit:  DefaultAlertExit,
	}
}

// Validate reports inconsistent policy parameters.
func (c Config) Validate() error {
	if err := c.Table.Validate(); err != nil {
		return err
	}
	if c.AlertExit <= c.AlertEnter {
		return fmt.Errorf("alert exit %dcm must be above alert enter %dcm", c.AlertExit, c.AlertEnter)
	}

	// A missed echo reads as MaxCM and must land in the last band with the
	// alert released.
	maxCM := c.Estimator.MaxCM
	if maxCM <= 0 {
		maxCM = DefaultMaxCM
	}
	if n := len(c.Table); n > 1 && maxCM <= c.Table[n-2].MaxCM {
		return fmt.Errorf("max range %dcm must be above the last threshold %dcm", maxCM, c.Table[n-2].MaxCM)
	}
	if maxCM < c.AlertExit {
		return fmt.Errorf("max range %dcm must be at least alert exit %dcm", maxCM, c.AlertExit)
	}
	return nil
}

// Controller maps measurements to actuator output and tracks the alert state.
type Controller struct {
	cfg           Config
	started       bool
	band          Band
	alert         bool
	echo          bool
	last          Sample
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewController creates a controller with the given policy.
// The startTime is used for calculating uptime in heartbeat events.
func NewController(cfg Config, startTime time.Time) *Controller {
	return &Controller{
		cfg:           cfg,
		echo:          true,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes one measurement and returns the output for this iteration.
// The first sample establishes the band without emitting a BAND_CHANGE.
func (c *Controller) Process(input Input) Output {
	var sample Sample
	if input.Echo {
		sample = c.cfg.Estimator.Estimate(input.Ticks)
	} else {
		sample = c.cfg.Estimator.NoEcho()
		c.eventCounts.NoEcho++
	}
	c.eventCounts.Cycles++

	rule := c.cfg.Table.Lookup(sample.CM)
	out := Output{
		Sample: sample,
		Band:   rule.Band,
		State:  rule.State,
	}

	event := func(t EventType) Event {
		return Event{
			Timestamp: input.Time,
			Type:      t,
			CM:        sample.CM,
			Band:      rule.Band,
		}
	}

	// Echo loss is reported once per outage.
	if !input.Echo && c.echo {
		out.Events = append(out.Events, event(EventNoEcho))
	} else if input.Echo && !c.echo {
		out.Events = append(out.Events, event(EventEchoRestored))
	}
	c.echo = input.Echo

	switch {
	case !c.alert && sample.CM <= c.cfg.AlertEnter:
		c.alert = true
		c.eventCounts.Alerts++
		out.Events = append(out.Events, event(EventAlertOn))
	case c.alert && sample.CM >= c.cfg.AlertExit:
		c.alert = false
		out.AlertCleared = true
		out.Events = append(out.Events, event(EventAlertOff))
	}

	if c.started && rule.Band != c.band {
		c.eventCounts.BandChanges++
		out.Events = append(out.Events, event(EventBandChange))
	}

	c.started = true
	c.band = rule.Band
	c.last = sample

	out.Alert = c.alert
	if c.alert {
		out.State = AlertState
	}
	for i := range out.Events {
		out.Events[i].Alert = c.alert
	}
	return out
}

// IsStarted returns whether at least one sample has been processed.
func (c *Controller) IsStarted() bool {
	return c.started
}

// Current returns the latest sample, its band and the alert state.
func (c *Controller) Current() (Sample, Band, bool) {
	return c.last, c.band, c.alert
}

// EventCountsSnapshot returns a copy of the counters.
func (c *Controller) EventCountsSnapshot() EventCounts {
	return c.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if no sample has been processed,
// if the interval has not elapsed, or if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !c.started {
		return nil
	}

	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.eventCounts,
	}
}
