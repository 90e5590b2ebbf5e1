package logic

import (
	"errors"
	"fmt"
	"math"
)

// Rule maps distances up to and including MaxCM to a band.
type Rule struct {
	MaxCM int
	Band  Band
	State ActuatorState
}

// Table is an ordered list of rules evaluated by first match.
type Table []Rule

// DefaultTable is the back-up warning policy.
var DefaultTable = Table{
	{MaxCM: 5, Band: BandDanger, State: ActuatorState{Red: true, Green: true, Blue: true, Buzzer: true}},
	{MaxCM: 10, Band: BandNear, State: ActuatorState{Red: true, Green: true, Blue: true}},
	{MaxCM: 15, Band: BandClose, State: ActuatorState{Red: true, Green: true}},
	{MaxCM: 20, Band: BandCaution, State: ActuatorState{Red: true}},
	{MaxCM: math.MaxInt, Band: BandClear},
}

// Lookup returns the first rule whose bound covers cm. Negative distances
// are treated as zero.
func (t Table) Lookup(cm int) Rule {
	if cm < 0 {
		cm = 0
	}
	for _, r := range t {
		if cm <= r.MaxCM {
			return r
		}
	}
	return Rule{MaxCM: math.MaxInt, Band: BandClear}
}

// Validate checks that bounds strictly increase and the last rule covers
// every distance.
func (t Table) Validate() error {
	if len(t) == 0 {
		return errors.New("threshold table is empty")
	}
	for i := 1; i < len(t); i++ {
		if t[i].MaxCM <= t[i-1].MaxCM {
			return fmt.Errorf("threshold table: rule %d bound %d not above %d", i, t[i].MaxCM, t[i-1].MaxCM)
		}
	}
	if t[len(t)-1].MaxCM != math.MaxInt {
		return fmt.Errorf("threshold table: last rule bound %d leaves distances unmapped", t[len(t)-1].MaxCM)
	}
	return nil
}
