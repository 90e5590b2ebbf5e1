// Package actuator applies the range policy output to the LEDs, the buzzer
// and the display. Write failures are logged and never stop the caller.
package actuator

import (
	"context"
	"log"
	"time"

	"github.com/sweeney/backup-sensor/internal/display"
	"github.com/sweeney/backup-sensor/internal/gpio"
	"github.com/sweeney/backup-sensor/internal/logic"
)

// DefaultFlash is how long the LEDs stay lit in each alert iteration.
const DefaultFlash = 200 * time.Millisecond

type statusRow int

const (
	rowBlank statusRow = iota
	rowStop
	rowNoEcho
)

// Rig is the set of actuators driven by the control loop.
type Rig struct {
	red    gpio.Output
	green  gpio.Output
	blue   gpio.Output
	buzzer gpio.Output
	screen *display.Screen

	row     statusRow
	failing map[string]bool
}

// New creates a Rig. Start must be called before Apply.
func New(red, green, blue, buzzer gpio.Output, d display.Display) *Rig {
	return &Rig{
		red:     red,
		green:   green,
		blue:    blue,
		buzzer:  buzzer,
		screen:  display.NewScreen(d),
		failing: make(map[string]bool),
	}
}

// Start turns everything off and draws the header.
func (r *Rig) Start() {
	r.set(logic.ActuatorState{})
	r.check("display", r.screen.Reset())
	r.row = rowBlank
}

// Apply drives the outputs for one iteration.
func (r *Rig) Apply(out logic.Output) {
	r.set(out.State)

	if out.AlertCleared {
		r.check("display", r.screen.Reset())
		r.row = rowBlank
	}
	r.check("display", r.screen.ShowDistance(out.Sample.CM, out.Sample.Echo))

	want := rowBlank
	switch {
	case out.Alert:
		want = rowStop
	case !out.Sample.Echo:
		want = rowNoEcho
	}
	if want == r.row {
		return
	}
	if r.row != rowBlank {
		r.check("display", r.screen.ClearStatus())
	}
	switch want {
	case rowStop:
		r.check("display", r.screen.ShowStop())
	case rowNoEcho:
		r.check("display", r.screen.ShowNoEcho())
	}
	r.row = want
}

// Flash holds the LEDs lit for d, then turns them off. The buzzer is left
// as Apply set it. Returns early if ctx is done.
func (r *Rig) Flash(ctx context.Context, d time.Duration) {
	if d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}
	r.write("red", r.red, false)
	r.write("green", r.green, false)
	r.write("blue", r.blue, false)
}

// Stop turns every output off and clears the display.
func (r *Rig) Stop() {
	r.set(logic.ActuatorState{})
	r.check("display", r.screen.Reset())
}

func (r *Rig) set(s logic.ActuatorState) {
	r.write("red", r.red, s.Red)
	r.write("green", r.green, s.Green)
	r.write("blue", r.blue, s.Blue)
	r.write("buzzer", r.buzzer, s.Buzzer)
}

func (r *Rig) write(name string, o gpio.Output, on bool) {
	var err error
	if on {
		err = o.On()
	} else {
		err = o.Off()
	}
	r.check(name, err)
}

// check logs the first failure of each output and its recovery.
func (r *Rig) check(name string, err error) {
	if err != nil {
		if !r.failing[name] {
			log.Printf("actuator %s error: %v", name, err)
			r.failing[name] = true
		}
		return
	}
	if r.failing[name] {
		log.Printf("actuator %s recovered", name)
		delete(r.failing, name)
	}
}
