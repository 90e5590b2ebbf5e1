package sonar

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Defaults for Config.
const (
	// DefaultTimeout covers the sensor's longest echo (about 38ms when
	// nothing is in range) with margin; the datasheet asks for a 60ms cycle.
	DefaultTimeout = 60 * time.Millisecond
	DefaultRetries = 1
	DefaultSettle  = 10 * time.Millisecond
)

// Config controls a measurement.
type Config struct {
	Timeout time.Duration // per-cycle echo deadline
	Retries int           // extra trigger attempts after ErrNoEcho
	Settle  time.Duration // gap before a retry, lets stray echoes die out
}

// Sensor performs complete trigger-to-echo measurements.
type Sensor struct {
	trigger *Trigger
	echo    *Echo
	cfg     Config
}

// NewSensor creates a Sensor. Zero Timeout selects DefaultTimeout.
func NewSensor(trigger *Trigger, echo *Echo, cfg Config) *Sensor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Sensor{trigger: trigger, echo: echo, cfg: cfg}
}

// Measure triggers the sensor and returns the echo pulse width in ticks.
// Returns an error wrapping ErrNoEcho if no attempt completed.
func (s *Sensor) Measure(ctx context.Context) (uint32, error) {
	var err error
	for attempt := 0; attempt <= s.cfg.Retries; attempt++ {
		if attempt > 0 && s.cfg.Settle > 0 {
			select {
			case <-time.After(s.cfg.Settle):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}

		s.echo.Arm()
		if ferr := s.trigger.Fire(); ferr != nil {
			return 0, fmt.Errorf("fire trigger: %w", ferr)
		}

		var ticks uint32
		ticks, err = s.echo.Wait(ctx, s.cfg.Timeout)
		if err == nil {
			return ticks, nil
		}
		if !errors.Is(err, ErrNoEcho) {
			return 0, err
		}
	}
	return 0, err
}

// Stats returns the echo handler counters.
func (s *Sensor) Stats() Stats {
	return s.echo.Stats()
}
