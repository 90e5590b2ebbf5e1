// Command backup-sensor measures the distance behind a vehicle with an
// ultrasonic echo sensor and drives warning LEDs, a buzzer and a character
// display.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/backup-sensor/internal/actuator"
	"github.com/sweeney/backup-sensor/internal/capture"
	"github.com/sweeney/backup-sensor/internal/display"
	"github.com/sweeney/backup-sensor/internal/gpio"
	"github.com/sweeney/backup-sensor/internal/logic"
	"github.com/sweeney/backup-sensor/internal/mqtt"
	"github.com/sweeney/backup-sensor/internal/sonar"
	"github.com/sweeney/backup-sensor/internal/status"
	"github.com/sweeney/backup-sensor/internal/web"
)

type options struct {
	interval    time.Duration
	echoTimeout time.Duration
	retries     int
	flash       time.Duration
	heartbeat   time.Duration

	k          float64
	bias       int
	maxCM      int
	alertEnter int
	alertExit  int
	tickHz     uint
	chip       string

	pinTrigger int
	pinEcho    int
	pinRed     int
	pinGreen   int
	pinBlue    int
	pinBuzzer  int

	lcd     bool
	lcdRS   string
	lcdE    string
	lcdData string

	broker        string
	httpAddr      string
	printDistance bool
}

func main() {
	var o options
	flag.DurationVar(&o.interval, "interval", 200*time.Millisecond, "Delay between measurements")
	flag.DurationVar(&o.echoTimeout, "echo-timeout", sonar.DefaultTimeout, "Maximum wait for a complete echo pulse")
	flag.IntVar(&o.retries, "retries", sonar.DefaultRetries, "Extra trigger attempts after a missing echo")
	flag.DurationVar(&o.flash, "flash", actuator.DefaultFlash, "LED on-time per iteration while alerting")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.Float64Var(&o.k, "k", logic.DefaultK, "Echo ticks per cm of range (0 derives it from -tick-hz)")
	flag.IntVar(&o.bias, "bias", logic.DefaultBias, "Calibration offset added to every reading in cm")
	flag.IntVar(&o.maxCM, "max-cm", logic.DefaultMaxCM, "Maximum reportable distance in cm")
	flag.IntVar(&o.alertEnter, "alert-enter", logic.DefaultAlertEnter, "Start alerting at or below this distance in cm")
	flag.IntVar(&o.alertExit, "alert-exit", logic.DefaultAlertExit, "Stop alerting at or above this distance in cm")
	flag.UintVar(&o.tickHz, "tick-hz", capture.DefaultTickHz, "Echo timer resolution in ticks per second")
	flag.StringVar(&o.chip, "chip", gpio.DefaultChip, "GPIO character device")
	flag.IntVar(&o.pinTrigger, "pin-trigger", gpio.DefaultPinTrigger, "BCM pin number for the sensor trigger")
	flag.IntVar(&o.pinEcho, "pin-echo", gpio.DefaultPinEcho, "BCM pin number for the sensor echo")
	flag.IntVar(&o.pinRed, "pin-red", gpio.DefaultPinRed, "BCM pin number for the red LED")
	flag.IntVar(&o.pinGreen, "pin-green", gpio.DefaultPinGreen, "BCM pin number for the green LED")
	flag.IntVar(&o.pinBlue, "pin-blue", gpio.DefaultPinBlue, "BCM pin number for the blue LED")
	flag.IntVar(&o.pinBuzzer, "pin-buzzer", gpio.DefaultPinBuzzer, "BCM pin number for the buzzer")
	flag.BoolVar(&o.lcd, "lcd", true, "Drive an HD44780 display (false keeps the display in memory)")
	flag.StringVar(&o.lcdRS, "lcd-rs", display.DefaultLCDPins.RS, "Display register select pin")
	flag.StringVar(&o.lcdE, "lcd-e", display.DefaultLCDPins.E, "Display enable pin")
	flag.StringVar(&o.lcdData, "lcd-data", strings.Join(display.DefaultLCDPins.Data[:], ","), "Display D4-D7 pins, comma separated")
	flag.StringVar(&o.broker, "broker", "", "MQTT broker address (empty to disable)")
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.BoolVar(&o.printDistance, "print-distance", false, "Print one measurement and exit")

	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func (o options) policy() logic.Config {
	k := o.k
	if k <= 0 {
		k = logic.CalibrationConstant(uint32(o.tickHz), logic.SpeedOfSound)
	}
	cfg := logic.DefaultConfig()
	cfg.Estimator = logic.Estimator{K: k, Bias: o.bias, MaxCM: o.maxCM}
	cfg.AlertEnter = o.alertEnter
	cfg.AlertExit = o.alertExit
	return cfg
}

func (o options) lcdPins() (display.LCDPins, error) {
	data := strings.Split(o.lcdData, ",")
	if len(data) != 4 {
		return display.LCDPins{}, fmt.Errorf("lcd-data: want 4 pins, got %d", len(data))
	}
	pins := display.LCDPins{RS: o.lcdRS, E: o.lcdE}
	for i, name := range data {
		pins.Data[i] = strings.TrimSpace(name)
	}
	return pins, nil
}

// validate checks the flags and returns the range policy they describe.
func (o options) validate() (logic.Config, error) {
	if o.maxCM < 1 || o.maxCM > display.MaxDistance {
		return logic.Config{}, fmt.Errorf("config: max-cm %d outside 1..%d", o.maxCM, display.MaxDistance)
	}
	policy := o.policy()
	if err := policy.Validate(); err != nil {
		return logic.Config{}, fmt.Errorf("config: %w", err)
	}
	return policy, nil
}

func run(o options) error {
	policy, err := o.validate()
	if err != nil {
		return err
	}

	// Echo capture and trigger
	echoCh := capture.NewRealChannel(o.chip, o.pinEcho)
	echo := sonar.NewEcho(echoCh)
	if err := echoCh.Configure(uint32(o.tickHz), capture.Rising); err != nil {
		return fmt.Errorf("init echo: %w", err)
	}
	defer echoCh.Close()

	triggerOut, err := gpio.NewRealOutput(o.chip, o.pinTrigger, "trigger")
	if err != nil {
		return fmt.Errorf("init trigger: %w", err)
	}
	defer triggerOut.Close()

	sensor := sonar.NewSensor(sonar.NewTrigger(triggerOut), echo, sonar.Config{
		Timeout: o.echoTimeout,
		Retries: o.retries,
		Settle:  sonar.DefaultSettle,
	})

	// Print distance mode
	if o.printDistance {
		return printDistance(sensor, policy)
	}

	// LEDs and buzzer
	outputs := make(map[string]gpio.Output, 4)
	for _, p := range []struct {
		name string
		pin  int
	}{
		{"red", o.pinRed},
		{"green", o.pinGreen},
		{"blue", o.pinBlue},
		{"buzzer", o.pinBuzzer},
	} {
		out, err := gpio.NewRealOutput(o.chip, p.pin, p.name)
		if err != nil {
			return fmt.Errorf("init %s: %w", p.name, err)
		}
		defer out.Close()
		outputs[p.name] = out
	}

	// Display
	var screen display.Display = display.NewBuffer()
	if o.lcd {
		pins, err := o.lcdPins()
		if err != nil {
			return err
		}
		lcd, err := display.NewLCD(pins)
		if err != nil {
			return fmt.Errorf("init display: %w", err)
		}
		screen = lcd
	}
	defer screen.Close()

	rig := actuator.New(outputs["red"], outputs["green"], outputs["blue"], outputs["buzzer"], screen)

	// Telemetry is optional; the control loop never waits on it.
	var publisher mqtt.Publisher = mqtt.Discard{}
	var mqttStatus mqtt.ConnectionStatus = mqtt.Discard{}
	if o.broker != "" {
		p := mqtt.NewRealPublisher(o.broker)
		publisher, mqttStatus = p, p
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		IntervalMs:    o.interval.Milliseconds(),
		EchoTimeoutMs: o.echoTimeout.Milliseconds(),
		Retries:       o.retries,
		FlashMs:       o.flash.Milliseconds(),
		HeartbeatMs:   o.heartbeat.Milliseconds(),
		K:             policy.Estimator.K,
		Bias:          policy.Estimator.Bias,
		MaxCM:         policy.Estimator.MaxCM,
		AlertEnter:    policy.AlertEnter,
		AlertExit:     policy.AlertExit,
		Broker:        o.broker,
		HTTPPort:      o.httpAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	// Start HTTP status server
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", o.httpAddr)
	}

	log.Printf("started: interval=%v timeout=%v retries=%d k=%.1f bias=%d alert=%d/%d broker=%q",
		o.interval, o.echoTimeout, o.retries, policy.Estimator.K, policy.Estimator.Bias,
		policy.AlertEnter, policy.AlertExit, o.broker)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(sensor, rig, policy, publisher, mqttStatus, tracker, o.flash, o.heartbeat, time.Now, ticker.C, sigCh)
}

// ranger takes one echo measurement.
type ranger interface {
	Measure(ctx context.Context) (uint32, error)
	Stats() sonar.Stats
}

func printDistance(sensor ranger, policy logic.Config) error {
	ticks, err := sensor.Measure(context.Background())
	if errors.Is(err, sonar.ErrNoEcho) {
		fmt.Println("Distance: no echo")
		return nil
	}
	if err != nil {
		return fmt.Errorf("measure: %w", err)
	}
	s := policy.Estimator.Estimate(ticks)
	fmt.Printf("Distance: %d cm (%s, %d ticks)\n", s.CM, policy.Table.Lookup(s.CM).Band, ticks)
	return nil
}

func runLoop(sensor ranger, rig *actuator.Rig, policy logic.Config, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, flash, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	controller := logic.NewController(policy, startTime)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rig.Start()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			rig.Stop()
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			}
			return nil

		case <-tick:
			ticks, err := sensor.Measure(ctx)
			t := now()
			if err != nil && !errors.Is(err, sonar.ErrNoEcho) {
				log.Printf("measure error: %v", err)
				continue
			}

			out := controller.Process(logic.Input{
				Ticks: ticks,
				Echo:  err == nil,
				Time:  t,
			})
			rig.Apply(out)

			for _, event := range out.Events {
				log.Printf("event: %s (%d cm, band=%s)", event.Type, event.CM, event.Band)
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
				}
			}

			if out.Alert {
				rig.Flash(ctx, flash)
			}

			reading := func() status.Reading {
				sample, band, alert := controller.Current()
				return status.Reading{
					Sample:   sample,
					Band:     band,
					Alert:    alert,
					Counts:   controller.EventCountsSnapshot(),
					Spurious: sensor.Stats().Spurious,
				}
			}

			// Check for heartbeat
			if hbData := controller.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v cycles=%d no_echo=%d alerts=%d band_changes=%d",
					hbData.Uptime, hbData.Counts.Cycles, hbData.Counts.NoEcho, hbData.Counts.Alerts, hbData.Counts.BandChanges)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					tracker.Update(reading(), t)
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(reading(), t)
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
