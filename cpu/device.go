package cpu

import (
	"errors"

	"github.com/ezrec/lc3/io"
)

// Keyboard is the input device.
type Keyboard io.Input

// DEFAULT_KEYBOARD stands in when nothing is attached: always ready,
// always 'A'.
const DEFAULT_KEYBOARD = io.Fixed('A')

// deviceFault classifies an error returned by a device.
func deviceFault(err error) *Fault {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault
	}

	kind := FAULT_DEVICE
	if errors.Is(err, io.ErrInputCancelled) {
		kind = FAULT_INPUT_CANCELLED
	}

	return &Fault{Kind: kind, Err: err}
}
