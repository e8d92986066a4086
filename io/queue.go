package io

import (
	"context"
	"io"
)

// QUEUE_DEFAULT_CAPACITY is the number of bytes a Queue buffers when no
// capacity is given.
const QUEUE_DEFAULT_CAPACITY = 256

// Queue is an interrupt-style input FIFO.
// A feeder goroutine pushes raw host bytes in; the machine pulls translated
// bytes out. Ready reflects actual occupancy.
type Queue struct {
	data chan byte
	err  error
}

var _ Input = (*Queue)(nil)

// NewQueue creates a queue holding up to capacity unread bytes.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = QUEUE_DEFAULT_CAPACITY
	}
	return &Queue{data: make(chan byte, capacity)}
}

// Len returns the number of unread bytes.
func (q *Queue) Len() int {
	return len(q.data)
}

// Ready reports whether a byte is waiting.
func (q *Queue) Ready() bool {
	return len(q.data) > 0
}

// ReadByte takes the next byte, waiting for the feeder if the queue is empty.
// Once the feeder has stopped and the queue is drained, the feeder's error
// is returned.
func (q *Queue) ReadByte() (value byte, err error) {
	raw, ok := <-q.data
	if !ok {
		err = q.err
		if err == nil {
			err = io.EOF
		}
		return
	}

	return Translate(raw)
}

// Push adds a raw byte, waiting for space. It returns false if ctx is done.
func (q *Queue) Push(ctx context.Context, raw byte) bool {
	select {
	case q.data <- raw:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close stops the queue; readers see err (io.EOF if nil) once it drains.
// Only the feeder may call Close, and only once.
func (q *Queue) Close(err error) {
	q.err = err
	close(q.data)
}

// Feed copies bytes from r into the queue until r fails or ctx is done.
// The read loop runs in its own goroutine so that a blocked Read never
// holds up cancellation. The queue is closed when Feed returns.
func (q *Queue) Feed(ctx context.Context, r io.Reader) (err error) {
	defer func() { q.Close(err) }()

	type result struct {
		raw byte
		err error
	}

	reads := make(chan result)
	go func() {
		var one [1]byte
		for {
			_, err := io.ReadFull(r, one[:])
			select {
			case reads <- result{raw: one[0], err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-reads:
			if res.err != nil {
				if res.err == io.EOF {
					return nil
				}
				return res.err
			}
			if !q.Push(ctx, res.raw) {
				return ctx.Err()
			}
		}
	}
}
