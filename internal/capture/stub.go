//go:build !linux

package capture

import "errors"

// RealChannel is not available on non-Linux platforms.
type RealChannel struct{}

// NewRealChannel returns an unusable channel on non-Linux platforms.
func NewRealChannel(chip string, pin int) *RealChannel {
	return &RealChannel{}
}

// Configure returns an error on non-Linux platforms.
func (c *RealChannel) Configure(tickHz uint32, edge Edge) error {
	return errors.New("capture: not supported on this platform (requires Linux)")
}

// SetEdge is a no-op on non-Linux platforms.
func (c *RealChannel) SetEdge(edge Edge) {}

// ClearCounter is a no-op on non-Linux platforms.
func (c *RealChannel) ClearCounter() {}

// ReadCapture always returns zero on non-Linux platforms.
func (c *RealChannel) ReadCapture() uint32 { return 0 }

// RegisterCallback is a no-op on non-Linux platforms.
func (c *RealChannel) RegisterCallback(fn func()) {}

// Close is not implemented on non-Linux platforms.
func (c *RealChannel) Close() error { return nil }
