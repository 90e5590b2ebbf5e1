package sonar

import (
	"fmt"
	"time"

	"github.com/sweeney/backup-sensor/internal/gpio"
)

// PulseWidth is the trigger pulse the HC-SR04 needs to start a ranging cycle.
const PulseWidth = 10 * time.Microsecond

// Trigger emits the start pulse on the sensor's trigger pin.
type Trigger struct {
	out   gpio.Output
	width time.Duration
}

// NewTrigger creates a Trigger driving the given output.
func NewTrigger(out gpio.Output) *Trigger {
	return &Trigger{out: out, width: PulseWidth}
}

// Fire drives the pin high for PulseWidth, then low.
// The hold is a busy-wait: time.Sleep cannot resolve 10µs.
func (t *Trigger) Fire() error {
	if err := t.out.On(); err != nil {
		return fmt.Errorf("trigger high: %w", err)
	}
	spin(t.width)
	if err := t.out.Off(); err != nil {
		return fmt.Errorf("trigger low: %w", err)
	}
	return nil
}

func spin(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}
