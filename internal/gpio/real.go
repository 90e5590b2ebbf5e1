//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealOutput drives an actual GPIO line using the Linux GPIO character device.
type RealOutput struct {
	name string
	line *gpiocdev.Line
}

// NewRealOutput requests the given line as an output, initially low.
func NewRealOutput(chip string, pin int, name string) (*RealOutput, error) {
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("backup-sensor"))
	if err != nil {
		return nil, fmt.Errorf("request %s pin %d: %w", name, pin, err)
	}
	return &RealOutput{name: name, line: line}, nil
}

// On drives the line high.
func (o *RealOutput) On() error {
	if err := o.line.SetValue(1); err != nil {
		return fmt.Errorf("set %s high: %w", o.name, err)
	}
	return nil
}

// Off drives the line low.
func (o *RealOutput) Off() error {
	if err := o.line.SetValue(0); err != nil {
		return fmt.Errorf("set %s low: %w", o.name, err)
	}
	return nil
}

// Close releases the line.
// Reconfigures the pin to input with pull-down (matching Pi boot defaults)
// before closing so a buzzer or LED is not left driven after shutdown.
func (o *RealOutput) Close() error {
	var errs []error
	if err := o.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", o.name, err))
	}
	if err := o.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s pin: %w", o.name, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
