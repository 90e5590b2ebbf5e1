//go:build linux

package capture

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealChannel captures echo edges from a GPIO line using kernel edge events.
//
// The line is watched for both edges; the polarity set with SetEdge is
// applied in the event handler, so switching polarity never reconfigures the
// line or loses an edge that arrives while the switch is in progress. The
// kernel event timestamp stands in for the hardware counter.
type RealChannel struct {
	chip string
	pin  int

	mu       sync.Mutex
	line     *gpiocdev.Line
	tickHz   uint32
	edge     Edge
	base     time.Duration
	last     time.Duration
	callback func()
}

// NewRealChannel creates a capture channel for the echo pin. The line is
// requested by Configure.
func NewRealChannel(chip string, pin int) *RealChannel {
	return &RealChannel{chip: chip, pin: pin}
}

// Configure requests the echo line as an input with pull-down and both-edge
// detection.
func (c *RealChannel) Configure(tickHz uint32, edge Edge) error {
	if tickHz == 0 {
		return errors.New("capture: tick rate must be positive")
	}

	c.mu.Lock()
	c.tickHz = tickHz
	c.edge = edge
	c.mu.Unlock()

	line, err := gpiocdev.RequestLine(c.chip, c.pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithConsumer("backup-sensor"),
		gpiocdev.WithEventHandler(c.handle))
	if err != nil {
		return fmt.Errorf("request echo pin %d: %w", c.pin, err)
	}

	c.mu.Lock()
	c.line = line
	c.mu.Unlock()
	return nil
}

func (c *RealChannel) handle(evt gpiocdev.LineEvent) {
	var edge Edge
	switch evt.Type {
	case gpiocdev.LineEventRisingEdge:
		edge = Rising
	case gpiocdev.LineEventFallingEdge:
		edge = Falling
	default:
		return
	}

	c.mu.Lock()
	if edge != c.edge {
		c.mu.Unlock()
		return
	}
	c.last = evt.Timestamp
	cb := c.callback
	c.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// SetEdge selects the polarity for the next capture.
func (c *RealChannel) SetEdge(edge Edge) {
	c.mu.Lock()
	c.edge = edge
	c.mu.Unlock()
}

// ClearCounter makes the most recent event time zero.
func (c *RealChannel) ClearCounter() {
	c.mu.Lock()
	c.base = c.last
	c.mu.Unlock()
}

// ReadCapture returns the ticks between the last clear and the most recent
// event, saturating at the counter width.
func (c *RealChannel) ReadCapture() uint32 {
	c.mu.Lock()
	elapsed := c.last - c.base
	hz := c.tickHz
	c.mu.Unlock()
	return durationToTicks(elapsed, hz)
}

// RegisterCallback installs the capture handler.
func (c *RealChannel) RegisterCallback(fn func()) {
	c.mu.Lock()
	c.callback = fn
	c.mu.Unlock()
}

// Close releases the echo line.
func (c *RealChannel) Close() error {
	c.mu.Lock()
	line := c.line
	c.line = nil
	c.mu.Unlock()

	if line == nil {
		return nil
	}
	if err := line.Close(); err != nil {
		return fmt.Errorf("close echo pin: %w", err)
	}
	return nil
}

func durationToTicks(d time.Duration, tickHz uint32) uint32 {
	if d <= 0 {
		return 0
	}
	ticks := uint64(d) * uint64(tickHz) / uint64(time.Second)
	if ticks > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(ticks)
}
