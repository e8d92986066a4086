package io

import (
	"errors"

	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	// Input errors
	ErrInputCancelled = errors.New(f("input cancelled"))
	ErrInputMissing   = errors.New(f("input missing"))
	ErrNoTerminal     = errors.New(f("not a terminal"))
)
