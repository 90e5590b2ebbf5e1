// Package capture provides an input-capture channel: a free-running tick
// counter whose value is latched on a configurable edge of the echo input.
// The real implementation uses kernel edge events from the Linux GPIO
// character device. The fake implementation lets tests inject edges at
// exact tick values.
package capture

// Edge is the signal transition that latches a capture.
type Edge int

const (
	Rising Edge = iota
	Falling
)

func (e Edge) String() string {
	switch e {
	case Rising:
		return "RISING"
	case Falling:
		return "FALLING"
	}
	return "UNKNOWN"
}

// Channel is an edge-capture timer channel.
//
// RegisterCallback installs the handler run on every capture event. The
// handler runs in the channel's event context (a single goroutine that never
// re-enters itself), and may call SetEdge, ClearCounter and ReadCapture.
type Channel interface {
	// Configure arms the channel with the given tick rate and initial edge.
	Configure(tickHz uint32, edge Edge) error

	// SetEdge selects which transition latches the next capture.
	// It does not disturb the running counter.
	SetEdge(edge Edge)

	// ClearCounter restarts the tick counter from zero at the most recent
	// capture event.
	ClearCounter()

	// ReadCapture returns the counter value latched by the most recent
	// capture event.
	ReadCapture() uint32

	// RegisterCallback installs the capture event handler.
	RegisterCallback(fn func())

	// Close releases the channel.
	Close() error
}

// DefaultTickHz is a 2 MHz counter (16 MHz clock with a /8 prescaler).
const DefaultTickHz = 2_000_000
