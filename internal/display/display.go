// Package display drives the 16x2 character display.
// The real implementation is an HD44780 in 4-bit mode via periph.io.
// Buffer is an in-memory display for tests and headless runs.
package display

import "fmt"

// Display is a character display addressed by row and column.
type Display interface {
	DisplayStringAt(row, col int, text string) error
	MoveCursor(row, col int) error
	DisplayString(text string) error
	ClearScreen() error
	Close() error
}

// Geometry of the supported display.
const (
	Rows = 2
	Cols = 16
)

// Screen layout.
const (
	Header   = "Distance: "
	ValueCol = 10
	StopCol  = 6
	StopText = "Stop!"
	NoEcho   = "No echo"
)

// MaxDistance is the largest reading the value field can show: three digits
// and " cm" fill the row from ValueCol.
const MaxDistance = 999

var blankRow = fmt.Sprintf("%-*s", Cols, "")

// Screen renders range readings onto a Display.
type Screen struct {
	d Display
}

// NewScreen creates a Screen on d.
func NewScreen(d Display) *Screen {
	return &Screen{d: d}
}

// Reset clears the display and draws the header.
func (s *Screen) Reset() error {
	if err := s.d.ClearScreen(); err != nil {
		return fmt.Errorf("clear screen: %w", err)
	}
	if err := s.d.DisplayStringAt(0, 0, Header); err != nil {
		return fmt.Errorf("draw header: %w", err)
	}
	return nil
}

// ShowDistance writes the value after the header. The value is padded so a
// shorter number overwrites a longer one.
func (s *Screen) ShowDistance(cm int, echo bool) error {
	if err := s.d.MoveCursor(0, ValueCol); err != nil {
		return fmt.Errorf("move cursor: %w", err)
	}
	if err := s.d.DisplayString(FormatDistance(cm, echo)); err != nil {
		return fmt.Errorf("draw distance: %w", err)
	}
	return nil
}

// ShowStop writes the alert text on the second row.
func (s *Screen) ShowStop() error {
	return s.d.DisplayStringAt(1, StopCol, StopText)
}

// ShowNoEcho writes the no-echo notice on the second row.
func (s *Screen) ShowNoEcho() error {
	return s.d.DisplayStringAt(1, 0, NoEcho)
}

// ClearStatus blanks the second row.
func (s *Screen) ClearStatus() error {
	return s.d.DisplayStringAt(1, 0, blankRow)
}

// FormatDistance renders a reading for the value field.
func FormatDistance(cm int, echo bool) string {
	if !echo {
		return "--- cm"
	}
	return fmt.Sprintf("%3d cm", cm)
}
