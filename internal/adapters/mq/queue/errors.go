package queue

import "errors"

var (
	// ErrClosed is returned by operations on a closed queue.
	ErrClosed = errors.New("queue closed")
	// ErrFull is returned when a job is rejected for lack of room.
	ErrFull = errors.New("queue full")
)
