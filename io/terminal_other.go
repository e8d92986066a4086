//go:build !unix

package io

import (
	"context"
	"os"
)

// Terminal is unavailable on this platform.
type Terminal struct {
	*Queue
}

// OpenTerminal always fails with ErrNoTerminal.
func OpenTerminal(in, out *os.File) (*Terminal, error) {
	return nil, ErrNoTerminal
}

func (tty *Terminal) Feed(ctx context.Context) error {
	return ErrNoTerminal
}

func (tty *Terminal) Write(data []byte) (int, error) {
	return 0, ErrNoTerminal
}

func (tty *Terminal) Close() error {
	return nil
}
