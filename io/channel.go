// Package io provides the keyboard and console devices for the lc3 emulator.
// It includes a fixed placeholder (Fixed), a reader-backed stream (Tape),
// an interrupt-style FIFO fed from a polling goroutine (Queue), and a
// raw-mode host terminal (Terminal).
package io

// Input defines the interface for the keyboard device behind the KBSR and
// KBDR registers and the GETC/IN traps.
type Input interface {
	// Ready reports whether a byte can be read without waiting.
	Ready() bool
	// ReadByte returns the next translated input byte, waiting if needed.
	// ErrInputCancelled is returned for the interrupt byte.
	ReadByte() (byte, error)
}

const (
	KEY_INTERRUPT = byte(3) // ^C
	KEY_RETURN    = byte('\r')
	KEY_NEWLINE   = byte('\n')
)

// Translate maps a raw host byte to the byte the machine sees.
func Translate(raw byte) (value byte, err error) {
	switch raw {
	case KEY_RETURN:
		value = KEY_NEWLINE
	case KEY_INTERRUPT:
		err = ErrInputCancelled
	default:
		value = raw
	}
	return
}
