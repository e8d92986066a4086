//go:build unix

package io

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// TERMINAL_POLL_INTERVAL is how long Feed sleeps when no key is waiting.
const TERMINAL_POLL_INTERVAL = 5 * time.Millisecond

// Terminal is the host terminal in raw mode.
// It is an Input whose queue is filled by Feed, and an output stream that
// restores the carriage return raw mode strips from newlines.
type Terminal struct {
	*Queue

	in  *os.File
	out *os.File
	fd  int

	state    *term.State
	nonblock bool
	closed   sync.Once
}

var _ Input = (*Terminal)(nil)

// OpenTerminal puts in into raw, non-blocking mode.
// The caller must Close the terminal on every exit path.
func OpenTerminal(in, out *os.File) (tty *Terminal, err error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		err = ErrNoTerminal
		return
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return
	}

	tty = &Terminal{
		Queue: NewQueue(QUEUE_DEFAULT_CAPACITY),
		in:    in,
		out:   out,
		fd:    fd,
		state: state,
	}

	err = syscall.SetNonblock(fd, true)
	if err != nil {
		_ = term.Restore(fd, state)
		tty = nil
		return
	}
	tty.nonblock = true

	return
}

// Feed polls the terminal until ctx is done or the read fails.
func (tty *Terminal) Feed(ctx context.Context) (err error) {
	defer func() { tty.Queue.Close(err) }()

	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, rerr := syscall.Read(tty.fd, buf)
		if n > 0 {
			if !tty.Queue.Push(ctx, buf[0]) {
				return ctx.Err()
			}
			continue
		}
		if rerr == nil {
			// Hangup or end of file.
			return nil
		}
		if errors.Is(rerr, syscall.EAGAIN) || errors.Is(rerr, syscall.EWOULDBLOCK) {
			time.Sleep(TERMINAL_POLL_INTERVAL)
			continue
		}
		if errors.Is(rerr, syscall.EINTR) {
			continue
		}
		return rerr
	}
}

// Write sends output to the terminal, expanding LF to CRLF.
func (tty *Terminal) Write(data []byte) (n int, err error) {
	_, err = tty.out.Write(bytes.ReplaceAll(data, []byte{'\n'}, []byte{'\r', '\n'}))
	if err != nil {
		return
	}
	return len(data), nil
}

// Close restores the terminal to the mode it had before OpenTerminal.
// It is safe to call more than once.
func (tty *Terminal) Close() (err error) {
	tty.closed.Do(func() {
		if tty.nonblock {
			err = syscall.SetNonblock(tty.fd, false)
			tty.nonblock = false
		}
		if rerr := term.Restore(tty.fd, tty.state); rerr != nil && err == nil {
			err = rerr
		}
	})
	return
}
