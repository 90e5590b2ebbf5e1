// Package gpio provides digital output lines with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Output drives a single digital output line (trigger, LED or buzzer).
type Output interface {
	// On drives the line to its active (high) level.
	On() error

	// Off drives the line to its inactive (low) level.
	Off() error

	// Close releases GPIO resources.
	Close() error
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinTrigger = 23
	DefaultPinEcho    = 24
	DefaultPinRed     = 17
	DefaultPinGreen   = 27
	DefaultPinBlue    = 22
	DefaultPinBuzzer  = 18
)

// DefaultChip is the GPIO character device used on a Raspberry Pi.
const DefaultChip = "gpiochip0"
