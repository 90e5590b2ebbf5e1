package gpio

import "sync"

// FakeOutput is a test double that records every level written to it.
type FakeOutput struct {
	mu sync.Mutex

	// Levels contains every level set, in order (true = high).
	Levels []bool

	// High is the current level.
	High bool

	// Closed tracks if Close was called.
	Closed bool

	// WriteError, if set, will be returned by On and Off.
	WriteError error

	// OnChange, if set, is called after every successful write with the
	// new level. Used to simulate hardware reacting to a pin.
	OnChange func(high bool)
}

// NewFakeOutput creates a FakeOutput that starts low.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// On records a high level.
func (f *FakeOutput) On() error {
	return f.set(true)
}

// Off records a low level.
func (f *FakeOutput) Off() error {
	return f.set(false)
}

func (f *FakeOutput) set(high bool) error {
	f.mu.Lock()
	if f.WriteError != nil {
		err := f.WriteError
		f.mu.Unlock()
		return err
	}
	f.High = high
	f.Levels = append(f.Levels, high)
	hook := f.OnChange
	f.mu.Unlock()

	if hook != nil {
		hook(high)
	}
	return nil
}

// IsHigh reports the current level.
func (f *FakeOutput) IsHigh() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.High
}

// Pulses counts low-to-high transitions recorded so far.
func (f *FakeOutput) Pulses() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	prev := false
	for _, l := range f.Levels {
		if l && !prev {
			n++
		}
		prev = l
	}
	return n
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Reset clears recorded levels and flags.
func (f *FakeOutput) Reset() {
	f.mu.Lock()
	f.Levels = nil
	f.High = false
	f.Closed = false
	f.WriteError = nil
	f.mu.Unlock()
}
