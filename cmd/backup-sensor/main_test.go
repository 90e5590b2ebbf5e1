package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/backup-sensor/internal/actuator"
	"github.com/sweeney/backup-sensor/internal/capture"
	"github.com/sweeney/backup-sensor/internal/display"
	"github.com/sweeney/backup-sensor/internal/gpio"
	"github.com/sweeney/backup-sensor/internal/logic"
	"github.com/sweeney/backup-sensor/internal/mqtt"
	"github.com/sweeney/backup-sensor/internal/sonar"
	"github.com/sweeney/backup-sensor/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "Garage")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}

	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "Garage",
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")

	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkType, "")
	t.Setenv(envNetworkIP, "")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo when NETWORK_STATUS is set")
	}
	if info.Status != "connected" {
		t.Errorf("Status: got %q, want %q", info.Status, "connected")
	}
	if info.Type != "" || info.IP != "" {
		t.Errorf("expected empty Type and IP, got %+v", info)
	}
}

func TestOptionsPolicy(t *testing.T) {
	o := options{k: 117.6, bias: 1, maxCM: 400, alertEnter: 5, alertExit: 6, tickHz: capture.DefaultTickHz}
	p := o.policy()
	if p.Estimator.K != 117.6 || p.Estimator.Bias != 1 || p.Estimator.MaxCM != 400 {
		t.Errorf("Estimator: got %+v", p.Estimator)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestOptionsPolicyDerivesK(t *testing.T) {
	o := options{k: 0, tickHz: 1_000_000, alertEnter: 5, alertExit: 6}
	p := o.policy()
	want := logic.CalibrationConstant(1_000_000, logic.SpeedOfSound)
	if p.Estimator.K != want {
		t.Errorf("K: got %v, want %v", p.Estimator.K, want)
	}
}

func TestOptionsPolicyRejectsInvertedHysteresis(t *testing.T) {
	o := options{k: 117.6, maxCM: 400, alertEnter: 6, alertExit: 6}
	if err := o.policy().Validate(); err == nil {
		t.Error("expected error when alert exit does not exceed alert enter")
	}
}

func TestOptionsValidate(t *testing.T) {
	base := options{k: logic.DefaultK, bias: 1, maxCM: 400, alertEnter: 5, alertExit: 6, tickHz: capture.DefaultTickHz}
	tests := []struct {
		name    string
		maxCM   int
		wantErr bool
	}{
		{"default range", 400, false},
		{"widest the display shows", display.MaxDistance, false},
		{"four digits", 1000, true},
		{"zero", 0, true},
		{"no echo would alarm", 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := base
			o.maxCM = tt.maxCM
			policy, err := o.validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate: got %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && policy.Estimator.MaxCM != tt.maxCM {
				t.Errorf("MaxCM: got %d, want %d", policy.Estimator.MaxCM, tt.maxCM)
			}
		})
	}
}

func TestFormatDistanceFitsAtMaxRange(t *testing.T) {
	text := display.Header + display.FormatDistance(display.MaxDistance, true)
	if len(text) > display.Cols {
		t.Errorf("%q is %d columns, display has %d", text, len(text), display.Cols)
	}
}

func TestOptionsLCDPins(t *testing.T) {
	o := options{lcdRS: "GPIO25", lcdE: "GPIO12", lcdData: "GPIO5, GPIO6,GPIO13,GPIO19"}
	pins, err := o.lcdPins()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pins != display.DefaultLCDPins {
		t.Errorf("got %+v, want %+v", pins, display.DefaultLCDPins)
	}

	o.lcdData = "GPIO5,GPIO6"
	if _, err := o.lcdPins(); err == nil {
		t.Error("expected error for short pin list")
	}
}

// --- runLoop tests ---

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// ticksFor returns an echo width that the default estimator reads as cm.
func ticksFor(cm int) uint32 {
	return uint32(math.Round(float64(cm-logic.DefaultBias) * logic.DefaultK))
}

type measurement struct {
	ticks uint32
	err   error
}

func echoAt(cm int) measurement { return measurement{ticks: ticksFor(cm)} }

var noEcho = measurement{err: fmt.Errorf("%w: no rising edge within 60ms", sonar.ErrNoEcho)}

// scriptedRanger returns one measurement per call, then repeats the last.
type scriptedRanger struct {
	script   []measurement
	calls    int
	spurious uint64
}

func (r *scriptedRanger) Measure(ctx context.Context) (uint32, error) {
	i := r.calls
	r.calls++
	if i >= len(r.script) {
		i = len(r.script) - 1
	}
	return r.script[i].ticks, r.script[i].err
}

func (r *scriptedRanger) Stats() sonar.Stats {
	return sonar.Stats{Cycles: uint64(r.calls), Spurious: r.spurious}
}

type loopRig struct {
	red, green, blue, buzzer *gpio.FakeOutput
	screen                   *display.Buffer
	rig                      *actuator.Rig
	pub                      *mqtt.FakePublisher
	tracker                  *status.Tracker
}

func newLoopRig() *loopRig {
	r := &loopRig{
		red:    gpio.NewFakeOutput(),
		green:  gpio.NewFakeOutput(),
		blue:   gpio.NewFakeOutput(),
		buzzer: gpio.NewFakeOutput(),
		screen: display.NewBuffer(),
		pub:    mqtt.NewFakePublisher(),
	}
	r.rig = actuator.New(r.red, r.green, r.blue, r.buzzer, r.screen)
	r.tracker = status.NewTracker(t0, status.Config{})
	return r
}

// runRunLoop drives runLoop for nTicks and then delivers signal.
func runRunLoop(t *testing.T, sensor ranger, r *loopRig, heartbeat time.Duration, clock func() time.Time, nTicks int, signal os.Signal) error {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(sensor, r.rig, logic.DefaultConfig(), r.pub, r.pub, r.tracker, 0, heartbeat, clock, tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- signal

	return <-errCh
}

func eventTypes(events []logic.Event) []logic.EventType {
	out := make([]logic.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func assertEventTypes(t *testing.T, got []logic.Event, want ...logic.EventType) {
	t.Helper()
	types := eventTypes(got)
	if len(types) != len(want) {
		t.Fatalf("events: got %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, types[i], want[i])
		}
	}
}

func TestRunLoopFirstReadingEmitsNothing(t *testing.T) {
	r := newLoopRig()
	sensor := &scriptedRanger{script: []measurement{{ticks: 1176}}}

	err := runRunLoop(t, sensor, r, 0, fakeClock(t0, 200*time.Millisecond), 3, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(r.pub.Events) != 0 {
		t.Errorf("expected 0 range events, got %v", eventTypes(r.pub.Events))
	}
	if len(r.pub.SystemEvents) != 1 || r.pub.SystemEvents[0].Event != "SHUTDOWN" {
		t.Fatalf("expected only SHUTDOWN, got %+v", r.pub.SystemEvents)
	}

	snap := r.tracker.Snapshot()
	if snap.Sample.CM != 11 {
		t.Errorf("1176 ticks: got %d cm, want 11", snap.Sample.CM)
	}
	if snap.Band != logic.BandClose {
		t.Errorf("Band: got %s, want CLOSE", snap.Band)
	}
	if snap.Counts.Cycles != 3 {
		t.Errorf("Cycles: got %d, want 3", snap.Counts.Cycles)
	}
}

func TestRunLoopDrivesOutputsForBand(t *testing.T) {
	r := newLoopRig()
	sensor := &scriptedRanger{script: []measurement{echoAt(11)}}

	err := runRunLoop(t, sensor, r, 0, fakeClock(t0, 200*time.Millisecond), 1, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	// CLOSE lights red and green. Levels: Start (off), Apply, Stop (off).
	checks := []struct {
		name string
		out  *gpio.FakeOutput
		want bool
	}{
		{"red", r.red, true},
		{"green", r.green, true},
		{"blue", r.blue, false},
		{"buzzer", r.buzzer, false},
	}
	for _, c := range checks {
		if len(c.out.Levels) < 3 {
			t.Fatalf("%s: expected at least 3 writes, got %v", c.name, c.out.Levels)
		}
		if got := c.out.Levels[1]; got != c.want {
			t.Errorf("%s during CLOSE: got %v, want %v", c.name, got, c.want)
		}
		if c.out.IsHigh() {
			t.Errorf("%s should be off after shutdown", c.name)
		}
	}
}

func TestRunLoopBandChanges(t *testing.T) {
	r := newLoopRig()
	sensor := &scriptedRanger{script: []measurement{echoAt(25), echoAt(18), echoAt(18), echoAt(11)}}

	err := runRunLoop(t, sensor, r, 0, fakeClock(t0, 200*time.Millisecond), 4, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	assertEventTypes(t, r.pub.Events, logic.EventBandChange, logic.EventBandChange)
	if r.pub.Events[0].Band != logic.BandCaution || r.pub.Events[0].CM != 18 {
		t.Errorf("first change: got %+v", r.pub.Events[0])
	}
	if r.pub.Events[1].Band != logic.BandClose || r.pub.Events[1].CM != 11 {
		t.Errorf("second change: got %+v", r.pub.Events[1])
	}
}

func TestRunLoopAlertSequence(t *testing.T) {
	r := newLoopRig()
	sensor := &scriptedRanger{script: []measurement{echoAt(10), echoAt(4), echoAt(5), echoAt(6)}}

	err := runRunLoop(t, sensor, r, 0, fakeClock(t0, 200*time.Millisecond), 4, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	assertEventTypes(t, r.pub.Events,
		logic.EventAlertOn, logic.EventBandChange, // 10 -> 4
		logic.EventAlertOff, logic.EventBandChange, // 5 -> 6
	)
	if !r.pub.Events[0].Alert {
		t.Error("ALERT_ON should carry alert=true")
	}
	if r.pub.Events[2].Alert {
		t.Error("ALERT_OFF should carry alert=false")
	}

	// Buzzer: Start off, NEAR off, alert on, alert on, cleared off, Stop off.
	want := []bool{false, false, true, true, false, false}
	if len(r.buzzer.Levels) != len(want) {
		t.Fatalf("buzzer levels: got %v, want %v", r.buzzer.Levels, want)
	}
	for i := range want {
		if r.buzzer.Levels[i] != want[i] {
			t.Errorf("buzzer level %d: got %v, want %v", i, r.buzzer.Levels[i], want[i])
		}
	}

	// Red flashes during the alert: lit by Apply, dropped by Flash.
	wantRed := []bool{false, true, true, false, true, false, true, false}
	if len(r.red.Levels) != len(wantRed) {
		t.Fatalf("red levels: got %v, want %v", r.red.Levels, wantRed)
	}
	for i := range wantRed {
		if r.red.Levels[i] != wantRed[i] {
			t.Errorf("red level %d: got %v, want %v", i, r.red.Levels[i], wantRed[i])
		}
	}

	if got := r.tracker.Snapshot().Counts.Alerts; got != 1 {
		t.Errorf("Alerts: got %d, want 1", got)
	}
}

func TestRunLoopNoEcho(t *testing.T) {
	r := newLoopRig()
	sensor := &scriptedRanger{script: []measurement{echoAt(11), noEcho, noEcho, echoAt(11)}}

	err := runRunLoop(t, sensor, r, 0, fakeClock(t0, 200*time.Millisecond), 4, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	assertEventTypes(t, r.pub.Events,
		logic.EventNoEcho, logic.EventBandChange,
		logic.EventEchoRestored, logic.EventBandChange,
	)
	if r.pub.Events[0].CM != logic.DefaultMaxCM || r.pub.Events[0].Band != logic.BandClear {
		t.Errorf("NO_ECHO: got %+v, want max range and CLEAR", r.pub.Events[0])
	}

	snap := r.tracker.Snapshot()
	if snap.Counts.NoEcho != 2 {
		t.Errorf("NoEcho: got %d, want 2", snap.Counts.NoEcho)
	}
	if snap.Counts.Cycles != 4 {
		t.Errorf("Cycles: got %d, want 4", snap.Counts.Cycles)
	}
}

func TestRunLoopNoEchoDuringAlertClearsIt(t *testing.T) {
	r := newLoopRig()
	sensor := &scriptedRanger{script: []measurement{echoAt(3), noEcho}}

	err := runRunLoop(t, sensor, r, 0, fakeClock(t0, 200*time.Millisecond), 2, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	assertEventTypes(t, r.pub.Events,
		logic.EventAlertOn,
		logic.EventNoEcho, logic.EventAlertOff, logic.EventBandChange,
	)
}

func TestRunLoopMeasureErrorSkipsIteration(t *testing.T) {
	r := newLoopRig()
	sensor := &scriptedRanger{script: []measurement{
		echoAt(11),
		{err: errors.New("fire trigger: line closed")},
		{err: errors.New("fire trigger: line closed")},
		echoAt(18),
	}}

	err := runRunLoop(t, sensor, r, 0, fakeClock(t0, 200*time.Millisecond), 4, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	assertEventTypes(t, r.pub.Events, logic.EventBandChange)
	if got := r.tracker.Snapshot().Counts.Cycles; got != 2 {
		t.Errorf("Cycles: got %d, want 2", got)
	}
}

func TestRunLoopTracksSpuriousEdges(t *testing.T) {
	r := newLoopRig()
	sensor := &scriptedRanger{script: []measurement{echoAt(30)}, spurious: 4}

	if err := runRunLoop(t, sensor, r, 0, fakeClock(t0, 200*time.Millisecond), 1, syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if got := r.tracker.Snapshot().Spurious; got != 4 {
		t.Errorf("Spurious: got %d, want 4", got)
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	// Clock calls: t0 (start), then one per tick at +5m, +10m, +15m, +20m.
	// The 15-minute heartbeat fires once, at +15m.
	r := newLoopRig()
	sensor := &scriptedRanger{script: []measurement{echoAt(50)}}

	err := runRunLoop(t, sensor, r, 15*time.Minute, fakeClock(t0, 5*time.Minute), 4, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	var heartbeats, shutdowns int
	for _, se := range r.pub.SystemEvents {
		switch se.Event {
		case "HEARTBEAT":
			heartbeats++
			var parsed status.StatusJSON
			if err := json.Unmarshal(se.RawPayload, &parsed); err != nil {
				t.Fatalf("HEARTBEAT payload: %v", err)
			}
			if parsed.Status.Event != "HEARTBEAT" {
				t.Errorf("payload event: got %q", parsed.Status.Event)
			}
			if parsed.Status.Range.DistanceCM != 50 || parsed.Status.Range.Band != "CLEAR" {
				t.Errorf("payload range: got %+v", parsed.Status.Range)
			}
			if parsed.Status.Counts.Cycles != 3 {
				t.Errorf("payload cycles: got %d, want 3", parsed.Status.Counts.Cycles)
			}
		case "SHUTDOWN":
			shutdowns++
		}
	}
	if heartbeats != 1 {
		t.Errorf("expected 1 HEARTBEAT event, got %d", heartbeats)
	}
	if shutdowns != 1 {
		t.Errorf("expected 1 SHUTDOWN event, got %d", shutdowns)
	}
}

func TestRunLoopHeartbeatIncludesNetworkInfo(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.42")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "associated")
	t.Setenv(envNetworkWifiSSID, "Garage")

	r := newLoopRig()
	sensor := &scriptedRanger{script: []measurement{echoAt(50)}}

	err := runRunLoop(t, sensor, r, 15*time.Minute, fakeClock(t0, 5*time.Minute), 4, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	var hb *mqtt.SystemEvent
	for i := range r.pub.SystemEvents {
		if r.pub.SystemEvents[i].Event == "HEARTBEAT" {
			hb = &r.pub.SystemEvents[i]
			break
		}
	}
	if hb == nil {
		t.Fatal("expected a HEARTBEAT system event")
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(hb.RawPayload, &parsed); err != nil {
		t.Fatalf("HEARTBEAT payload: %v", err)
	}
	n := parsed.Status.Network
	if n == nil {
		t.Fatal("HEARTBEAT payload missing network")
	}
	if n.IP != "192.168.1.42" || n.SSID != "Garage" || n.WifiStatus != "associated" {
		t.Errorf("network: got %+v", n)
	}
}

func TestRunLoopPublishError(t *testing.T) {
	r := newLoopRig()
	r.pub.PublishError = fmt.Errorf("broker unavailable")
	sensor := &scriptedRanger{script: []measurement{echoAt(30), echoAt(4)}}

	err := runRunLoop(t, sensor, r, 0, fakeClock(t0, 200*time.Millisecond), 2, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(r.pub.Events) != 0 {
		t.Errorf("expected 0 recorded events (publish failed), got %d", len(r.pub.Events))
	}
	// The alert still reached the buzzer.
	if !r.buzzer.Levels[2] {
		t.Error("expected buzzer on despite publish errors")
	}
	found := false
	for _, se := range r.pub.SystemEvents {
		if se.Event == "SHUTDOWN" {
			found = true
		}
	}
	if !found {
		t.Error("expected SHUTDOWN system event despite publish errors")
	}
}

func TestRunLoopShutdown(t *testing.T) {
	tests := []struct {
		signal os.Signal
		reason string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			r := newLoopRig()
			r.pub.Connected = true
			sensor := &scriptedRanger{script: []measurement{echoAt(3)}}

			err := runRunLoop(t, sensor, r, 0, fakeClock(t0, 200*time.Millisecond), 2, tt.signal)
			if err != nil {
				t.Fatalf("runLoop returned error: %v", err)
			}

			if len(r.pub.SystemEvents) != 1 {
				t.Fatalf("expected 1 system event, got %d", len(r.pub.SystemEvents))
			}
			se := r.pub.SystemEvents[0]
			if se.Event != "SHUTDOWN" {
				t.Errorf("expected SHUTDOWN, got %q", se.Event)
			}
			if se.Reason != tt.reason {
				t.Errorf("expected reason %s, got %q", tt.reason, se.Reason)
			}
			if !se.Retained {
				t.Error("expected Retained=true for SHUTDOWN")
			}

			var parsed status.StatusJSON
			if err := json.Unmarshal(se.RawPayload, &parsed); err != nil {
				t.Fatalf("SHUTDOWN payload: %v", err)
			}
			if parsed.Status.Reason != tt.reason || !parsed.Status.MQTT.Connected {
				t.Errorf("payload: got %+v", parsed.Status)
			}

			// Shutdown during an alert silences everything.
			for name, out := range map[string]*gpio.FakeOutput{"red": r.red, "green": r.green, "blue": r.blue, "buzzer": r.buzzer} {
				if out.IsHigh() {
					t.Errorf("%s still on after shutdown", name)
				}
			}
			if got := r.screen.Line(1); got != "" {
				t.Errorf("status row after shutdown: got %q, want blank", got)
			}
		})
	}
}

// TestRunLoopEndToEnd runs the real sensor state machine against a fake
// capture channel that answers each trigger with an echo pulse.
func TestRunLoopEndToEnd(t *testing.T) {
	ch := capture.NewFakeChannel()
	trig := gpio.NewFakeOutput()
	echo := sonar.NewEcho(ch)
	if err := ch.Configure(capture.DefaultTickHz, capture.Rising); err != nil {
		t.Fatalf("configure: %v", err)
	}

	widths := []uint32{ticksFor(30), ticksFor(11), 1176, 0}
	fall := 0
	trig.OnChange = func(high bool) {
		if high {
			return
		}
		w := widths[fall]
		if fall < len(widths)-1 {
			fall++
		}
		if w == 0 {
			return // no echo
		}
		ch.Fire(capture.Falling, 1) // stray edge before the pulse is ignored
		ch.Pulse(uint32(fall)*100_000, w)
	}
	sensor := sonar.NewSensor(sonar.NewTrigger(trig), echo, sonar.Config{Timeout: 5 * time.Millisecond, Retries: 0})

	r := newLoopRig()
	err := runRunLoop(t, sensor, r, 0, fakeClock(t0, 200*time.Millisecond), 4, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	// 30 -> 11, then 11 -> no echo.
	assertEventTypes(t, r.pub.Events,
		logic.EventBandChange,
		logic.EventNoEcho, logic.EventBandChange,
	)
	if r.pub.Events[0].CM != 11 {
		t.Errorf("1176 ticks: got %d cm, want 11", r.pub.Events[0].CM)
	}
	if got := trig.Pulses(); got != 4 {
		t.Errorf("trigger pulses: got %d, want 4", got)
	}
	if got := r.tracker.Snapshot().Counts.Cycles; got != 4 {
		t.Errorf("Cycles: got %d, want 4", got)
	}
}
