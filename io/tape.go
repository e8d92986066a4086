package io

import (
	"io"
)

// Tape provides sequential console I/O over byte streams.
// Reads block on Input and it always reports ready, which matches a
// status register that never says "not yet".
type Tape struct {
	Input  io.Reader
	Output io.Writer
}

var _ Input = (*Tape)(nil)

// Ready always reports true.
func (tc *Tape) Ready() bool {
	return true
}

// ReadByte reads and translates one byte from Input.
func (tc *Tape) ReadByte() (value byte, err error) {
	if tc.Input == nil {
		err = ErrInputMissing
		return
	}

	var one [1]byte
	_, err = io.ReadFull(tc.Input, one[:])
	if err != nil {
		return
	}

	return Translate(one[0])
}

// Write sends bytes to Output, discarding them if there is none.
func (tc *Tape) Write(data []byte) (n int, err error) {
	if tc.Output == nil {
		return len(data), nil
	}
	return tc.Output.Write(data)
}
