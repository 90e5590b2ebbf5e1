// Package logic contains the pure range-warning policy: tick counts to
// distance, distance to actuator state, and the alert state machine.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Band is a row of the threshold table.
type Band string

const (
	BandDanger  Band = "DANGER"
	BandNear    Band = "NEAR"
	BandClose   Band = "CLOSE"
	BandCaution Band = "CAUTION"
	BandClear   Band = "CLEAR"
)

// ActuatorState is the logical level of each LED and the buzzer.
type ActuatorState struct {
	Red    bool
	Green  bool
	Blue   bool
	Buzzer bool
}

// Sample is a distance derived from one echo cycle.
type Sample struct {
	CM         int
	Ticks      uint32
	Echo       bool // false when the cycle timed out
	OutOfRange bool // CM was clamped to the estimator's maximum
}

// EventType represents a change worth publishing.
type EventType string

const (
	EventBandChange   EventType = "BAND_CHANGE"
	EventAlertOn      EventType = "ALERT_ON"
	EventAlertOff     EventType = "ALERT_OFF"
	EventNoEcho       EventType = "NO_ECHO"
	EventEchoRestored EventType = "ECHO_RESTORED"
)

// Event represents a transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	CM        int
	Band      Band
	Alert     bool
}

// Input is the result of one measurement attempt.
type Input struct {
	Ticks uint32
	Echo  bool // false if the measurement timed out
	Time  time.Time
}

// Output is everything the actuators need for one iteration.
type Output struct {
	Sample Sample
	Band   Band
	State  ActuatorState
	Alert  bool

	// AlertCleared is set on the iteration that leaves the alert state.
	AlertCleared bool

	Events []Event
}

// EventCounts tracks activity since startup.
type EventCounts struct {
	Cycles      int
	NoEcho      int
	Alerts      int
	BandChanges int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
