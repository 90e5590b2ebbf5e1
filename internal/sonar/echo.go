// Package sonar turns an ultrasonic echo pulse into an elapsed tick count.
//
// Echo is the capture handler state machine. It is driven from the capture
// channel's event context and hands each completed cycle to the control loop
// through a single-slot channel; the control loop never reads shared counters
// directly.
package sonar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/backup-sensor/internal/capture"
)

// ErrNoEcho is returned when a cycle does not complete within its deadline.
var ErrNoEcho = errors.New("no echo")

// State is the position of the echo cycle.
type State int

const (
	Idle State = iota
	AwaitingFallingEdge
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case AwaitingFallingEdge:
		return "AWAITING_FALLING_EDGE"
	case Complete:
		return "COMPLETE"
	}
	return "UNKNOWN"
}

// Stats counts capture activity since startup.
type Stats struct {
	Cycles   uint64
	Spurious uint64
}

// Echo times the high pulse on the echo pin.
type Echo struct {
	ch capture.Channel

	mu    sync.Mutex
	state State
	stats Stats

	done chan uint32
}

// NewEcho installs the capture handler on ch. The channel must still be
// configured by the caller.
func NewEcho(ch capture.Channel) *Echo {
	e := &Echo{
		ch:   ch,
		done: make(chan uint32, 1),
	}
	ch.RegisterCallback(e.handleCapture)
	return e
}

// handleCapture runs on every capture event.
func (e *Echo) handleCapture() {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case Idle:
		// Rising edge is time zero.
		e.ch.ClearCounter()
		e.ch.SetEdge(capture.Falling)
		e.state = AwaitingFallingEdge

	case AwaitingFallingEdge:
		ticks := e.ch.ReadCapture()
		e.ch.SetEdge(capture.Rising)
		e.state = Complete
		e.stats.Cycles++
		select {
		case e.done <- ticks:
		default:
			// Slot is only full if Arm was skipped; keep the older value.
		}

	default:
		e.stats.Spurious++
	}
}

// Arm prepares a new cycle. It must be called before the trigger pulse and
// only after the previous cycle's result was consumed or abandoned.
func (e *Echo) Arm() {
	e.mu.Lock()
	defer e.mu.Unlock()

	select {
	case <-e.done:
	default:
	}
	e.ch.SetEdge(capture.Rising)
	e.state = Idle
}

// Wait blocks until the armed cycle completes, the timeout expires or ctx is
// done. On expiry the cycle is closed so a late edge cannot complete it.
func (e *Echo) Wait(ctx context.Context, timeout time.Duration) (uint32, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ticks := <-e.done:
		return ticks, nil
	case <-timer.C:
	case <-ctx.Done():
		e.abandon()
		return 0, ctx.Err()
	}

	last := e.abandon()
	select {
	case ticks := <-e.done:
		// Completed between the timer firing and abandon.
		return ticks, nil
	default:
	}
	if last == Idle {
		return 0, fmt.Errorf("%w: no rising edge within %v", ErrNoEcho, timeout)
	}
	return 0, fmt.Errorf("%w: pulse longer than %v", ErrNoEcho, timeout)
}

func (e *Echo) abandon() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	last := e.state
	if last != Complete {
		e.state = Complete
		e.ch.SetEdge(capture.Rising)
	}
	return last
}

// State returns the current cycle state.
func (e *Echo) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stats returns a copy of the capture counters.
func (e *Echo) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}
