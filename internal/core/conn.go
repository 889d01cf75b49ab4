package core

import "errors"

// Frame is a serialized outbound message.
type Frame []byte

var ErrBackpressure = errors.New("backpressure")

// Sender abstracts one live client connection.
// Owned by the adapter; the adapter must Close() it.
type Sender interface {
	TrySend(Frame) error
	Close()
}
