// Package errors holds the small set of sentinel errors the queue
// transports (memory, Redis, NATS) need, independent of the pipeline
// error taxonomy in internal/errors.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrQueueFull  = errors.New("queue is full")
	ErrQueueEmpty = errors.New("queue is empty")
	ErrNotFound   = errors.New("resource not found")
)

// QueueTransportError wraps a queue-transport failure with a fixed code so
// callers can log/match on QUEUE_ERROR without depending on a specific
// transport's error type.
type QueueTransportError struct {
	Message string
	Err     error
}

func (e *QueueTransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[QUEUE_ERROR] %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("[QUEUE_ERROR] %s", e.Message)
}

func (e *QueueTransportError) Unwrap() error {
	return e.Err
}

// QueueError creates a queue-transport error.
func QueueError(message string, err error) *QueueTransportError {
	return &QueueTransportError{Message: message, Err: err}
}
