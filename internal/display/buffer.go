package display

import (
	"strings"
	"sync"
)

// Buffer is an in-memory Display. It keeps the visible characters and a log
// of calls, and is safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	cells    [Rows][Cols]byte
	row, col int

	// Calls records each method invoked, e.g. "clear", "at 0,0", "print".
	Calls []string

	// Closed tracks if Close was called.
	Closed bool

	// WriteError, if set, will be returned by every write.
	WriteError error
}

// NewBuffer creates a blank Buffer.
func NewBuffer() *Buffer {
	b := &Buffer{}
	b.clear()
	return b
}

func (b *Buffer) clear() {
	for r := range b.cells {
		for c := range b.cells[r] {
			b.cells[r][c] = ' '
		}
	}
	b.row, b.col = 0, 0
}

// DisplayStringAt moves the cursor and prints text.
func (b *Buffer) DisplayStringAt(row, col int, text string) error {
	if err := b.MoveCursor(row, col); err != nil {
		return err
	}
	return b.DisplayString(text)
}

// MoveCursor positions the cursor.
func (b *Buffer) MoveCursor(row, col int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.WriteError != nil {
		return b.WriteError
	}
	b.Calls = append(b.Calls, "move")
	b.row, b.col = row, col
	return nil
}

// DisplayString prints text at the cursor. Characters past the end of the
// row are dropped.
func (b *Buffer) DisplayString(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.WriteError != nil {
		return b.WriteError
	}
	b.Calls = append(b.Calls, "print")
	for i := 0; i < len(text); i++ {
		if b.row >= 0 && b.row < Rows && b.col >= 0 && b.col < Cols {
			b.cells[b.row][b.col] = text[i]
		}
		b.col++
	}
	return nil
}

// ClearScreen blanks every cell and homes the cursor.
func (b *Buffer) ClearScreen() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.WriteError != nil {
		return b.WriteError
	}
	b.Calls = append(b.Calls, "clear")
	b.clear()
	return nil
}

// Line returns the visible text of a row with trailing spaces removed.
func (b *Buffer) Line(row int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if row < 0 || row >= Rows {
		return ""
	}
	return strings.TrimRight(string(b.cells[row][:]), " ")
}

// Count returns how many times the named call was recorded.
func (b *Buffer) Count(call string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.Calls {
		if c == call {
			n++
		}
	}
	return n
}

// Close marks the buffer as closed.
func (b *Buffer) Close() error {
	b.mu.Lock()
	b.Closed = true
	b.mu.Unlock()
	return nil
}
