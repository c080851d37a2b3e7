// Package channel provides the frame hand-off between generation and the
// persistence sinks.
package channel

import "context"

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel. Send blocks until the value is
// accepted or ctx is done.
type Sender[T any] interface {
	Send(ctx context.Context, v T) error
}

// Channel combines read and write access.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}

func send[T any](ctx context.Context, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
