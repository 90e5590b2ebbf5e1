package capture

import "sync"

// FakeChannel is a test double driven by synthetic edges.
//
// Edges are injected with Fire at absolute tick values of a free-running
// counter. Only edges matching the configured polarity latch a capture and
// run the callback, as the hardware would.
type FakeChannel struct {
	mu sync.Mutex

	tickHz     uint32
	edge       Edge
	base       uint32
	last       uint32
	callback   func()
	configured bool

	// Edges records every polarity change requested via SetEdge.
	Edges []Edge

	// Ignored counts injected edges that did not match the polarity.
	Ignored int

	// Closed tracks if Close was called.
	Closed bool

	// ConfigureError, if set, will be returned by Configure.
	ConfigureError error
}

// NewFakeChannel creates a FakeChannel waiting for a rising edge.
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{}
}

// Configure records the tick rate and initial polarity.
func (f *FakeChannel) Configure(tickHz uint32, edge Edge) error {
	if f.ConfigureError != nil {
		return f.ConfigureError
	}
	f.mu.Lock()
	f.tickHz = tickHz
	f.edge = edge
	f.configured = true
	f.mu.Unlock()
	return nil
}

// SetEdge selects the polarity for the next capture.
func (f *FakeChannel) SetEdge(edge Edge) {
	f.mu.Lock()
	f.edge = edge
	f.Edges = append(f.Edges, edge)
	f.mu.Unlock()
}

// ClearCounter restarts counting from the most recent capture.
func (f *FakeChannel) ClearCounter() {
	f.mu.Lock()
	f.base = f.last
	f.mu.Unlock()
}

// ReadCapture returns the latched value relative to the last clear.
func (f *FakeChannel) ReadCapture() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last - f.base
}

// RegisterCallback installs the capture handler.
func (f *FakeChannel) RegisterCallback(fn func()) {
	f.mu.Lock()
	f.callback = fn
	f.mu.Unlock()
}

// Fire injects an edge at the given absolute counter value. The callback
// runs synchronously on the caller's goroutine. Returns false if the edge
// did not match the configured polarity.
func (f *FakeChannel) Fire(edge Edge, at uint32) bool {
	f.mu.Lock()
	if edge != f.edge {
		f.Ignored++
		f.mu.Unlock()
		return false
	}
	f.last = at
	cb := f.callback
	f.mu.Unlock()

	if cb != nil {
		cb()
	}
	return true
}

// Pulse injects a rising edge at start and a falling edge at start+width.
func (f *FakeChannel) Pulse(start, width uint32) {
	f.Fire(Rising, start)
	f.Fire(Falling, start+width)
}

// Polarity returns the currently configured edge.
func (f *FakeChannel) Polarity() Edge {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edge
}

// TickHz returns the configured tick rate.
func (f *FakeChannel) TickHz() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickHz
}

// Configured reports whether Configure succeeded.
func (f *FakeChannel) Configured() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configured
}

// Close marks the channel as closed.
func (f *FakeChannel) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
