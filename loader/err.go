package loader

import (
	"errors"

	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	ErrImageShort    = errors.New(f("image shorter than its origin word"))
	ErrImageOdd      = errors.New(f("image has an odd trailing byte"))
	ErrImageOverflow = errors.New(f("image runs past the end of memory"))
	ErrSourceMissing = errors.New(f("program source has no input"))
)

// ErrLoad is a program that could not be fetched.
type ErrLoad struct {
	Source string
	Err    error
}

func (err *ErrLoad) Error() string {
	return f("load %v: %v", err.Source, err.Err)
}

func (err *ErrLoad) Unwrap() error {
	return err.Err
}
