package display

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/hd44780"
	"periph.io/x/host/v3"
)

// LCDPins names the periph.io pins wired to the HD44780.
type LCDPins struct {
	RS   string
	E    string
	Data [4]string // D4..D7
}

// DefaultLCDPins is the wiring used on the Pi header.
var DefaultLCDPins = LCDPins{
	RS:   "GPIO25",
	E:    "GPIO12",
	Data: [4]string{"GPIO5", "GPIO6", "GPIO13", "GPIO19"},
}

// controller is the subset of hd44780.Dev used here.
type controller interface {
	Reset() error
	SetCursor(line uint8, column uint8) error
	Print(data string) error
}

// LCD is an HD44780 character display.
type LCD struct {
	dev controller
}

// NewLCD initializes the periph.io host drivers and the display.
func NewLCD(pins LCDPins) (*LCD, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	rs, err := lookup(pins.RS)
	if err != nil {
		return nil, fmt.Errorf("lcd RS: %w", err)
	}
	e, err := lookup(pins.E)
	if err != nil {
		return nil, fmt.Errorf("lcd E: %w", err)
	}
	data := make([]gpio.PinOut, 0, len(pins.Data))
	for i, name := range pins.Data {
		p, err := lookup(name)
		if err != nil {
			return nil, fmt.Errorf("lcd D%d: %w", i+4, err)
		}
		data = append(data, p)
	}

	return newLCD(data, rs, e)
}

func newLCD(data []gpio.PinOut, rs, e gpio.PinOut) (*LCD, error) {
	dev, err := hd44780.New(data, rs, e)
	if err != nil {
		return nil, fmt.Errorf("init hd44780: %w", err)
	}
	return &LCD{dev: dev}, nil
}

func lookup(name string) (gpio.PinOut, error) {
	if name == "" {
		return nil, errors.New("pin not set")
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no GPIO pin named %s", name)
	}
	return p, nil
}

// DisplayStringAt moves the cursor and prints text.
func (l *LCD) DisplayStringAt(row, col int, text string) error {
	if err := l.MoveCursor(row, col); err != nil {
		return err
	}
	return l.DisplayString(text)
}

// MoveCursor positions the cursor.
func (l *LCD) MoveCursor(row, col int) error {
	if row < 0 || row >= Rows || col < 0 || col >= Cols {
		return fmt.Errorf("cursor %d,%d outside %dx%d display", row, col, Rows, Cols)
	}
	return l.dev.SetCursor(uint8(row), uint8(col))
}

// DisplayString prints text at the cursor.
func (l *LCD) DisplayString(text string) error {
	return l.dev.Print(text)
}

// ClearScreen resets the controller, which blanks the display.
func (l *LCD) ClearScreen() error {
	return l.dev.Reset()
}

// Close blanks the display. The pins stay owned by periph.io.
func (l *LCD) Close() error {
	return l.dev.Reset()
}
