package logic

import "math"

const (
	// DefaultK is ticks per centimetre of range for a 2 MHz counter,
	// measured on the reference hardware.
	DefaultK = 117.6

	// DefaultBias is added to every reading. It is an empirical correction
	// for trigger and propagation latency; tune it per installation.
	DefaultBias = 1

	// DefaultMaxCM is the HC-SR04's rated maximum range.
	DefaultMaxCM = 400

	// SpeedOfSound in centimetres per second at about 20°C.
	SpeedOfSound = 34300
)

// Estimator converts an echo pulse width into a distance.
type Estimator struct {
	K     float64 // ticks per cm of range; <= 0 selects DefaultK
	Bias  int     // cm added to every reading
	MaxCM int     // readings above this are clamped and flagged; 0 disables
}

// DefaultEstimator returns the calibration used by the reference hardware.
func DefaultEstimator() Estimator {
	return Estimator{K: DefaultK, Bias: DefaultBias, MaxCM: DefaultMaxCM}
}

// CalibrationConstant derives K from the counter rate and the speed of sound.
// The pulse covers the round trip, hence the factor of two.
func CalibrationConstant(tickHz uint32, cmPerSecond float64) float64 {
	return 2 * float64(tickHz) / cmPerSecond
}

// Estimate returns round(ticks/K) + Bias, clamped to MaxCM.
func (e Estimator) Estimate(ticks uint32) Sample {
	k := e.K
	if k <= 0 {
		k = DefaultK
	}
	s := Sample{
		CM:    int(math.Round(float64(ticks)/k)) + e.Bias,
		Ticks: ticks,
		Echo:  true,
	}
	if e.MaxCM > 0 && s.CM > e.MaxCM {
		s.CM = e.MaxCM
		s.OutOfRange = true
	}
	return s
}

// NoEcho returns the sentinel sample for a timed-out cycle: maximum range.
func (e Estimator) NoEcho() Sample {
	cm := e.MaxCM
	if cm <= 0 {
		cm = DefaultMaxCM
	}
	return Sample{CM: cm, OutOfRange: true}
}
