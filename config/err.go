package config

import (
	"github.com/ezrec/lc3/translate"
)

var f = translate.From

// ErrUnknownKey is a configuration key nothing reads.
type ErrUnknownKey string

func (err ErrUnknownKey) Error() string {
	return f("unknown configuration key '%v'", string(err))
}

// ErrAddress is an address that is not a 16-bit number.
type ErrAddress string

func (err ErrAddress) Error() string {
	return f("'%v' is not a 16-bit address", string(err))
}

// ErrFault is a bad entry in the [faults] table.
type ErrFault struct {
	Kind string
	Err  error
}

func (err *ErrFault) Error() string {
	return f("faults.%v: %v", err.Kind, err.Err)
}

func (err *ErrFault) Unwrap() error {
	return err.Err
}
