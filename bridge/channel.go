package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrChannelFull is returned by TrySend when the Channel is at capacity.
	ErrChannelFull = errors.New("bridge: channel full")
	// ErrChannelClosed is returned once the consumer has gone away.
	ErrChannelClosed = errors.New("bridge: channel closed")
)

// DefaultCapacity is the number of messages a Channel buffers by default.
const DefaultCapacity = 65536

// Sender is the producer side of a Channel.
type Sender interface {
	TrySend(m Message) error
}

// Channel is a bounded multi-producer single-consumer queue of Messages.
// Closing is done by the consumer; producers never panic on a closed
// Channel, they get ErrChannelClosed.
type Channel struct {
	ch     chan Message
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
}

// NewChannel returns a Channel holding up to capacity messages. A
// non-positive capacity selects DefaultCapacity.
func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{
		ch:   make(chan Message, capacity),
		done: make(chan struct{}),
	}
}

// TrySend enqueues m without blocking.
func (c *Channel) TrySend(m Message) error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	select {
	case c.ch <- m:
		return nil
	default:
		return ErrChannelFull
	}
}

// Send enqueues m, waiting for space until ctx is done. It must not be
// used from the realtime callback.
func (c *Channel) Send(ctx context.Context, m Message) error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	select {
	case c.ch <- m:
		return nil
	case <-c.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv blocks until a message is available or the Channel is closed, in
// which case ok is false. Once closed it reports false even if messages
// are still queued.
func (c *Channel) Recv() (m Message, ok bool) {
	select {
	case <-c.done:
		return Message{}, false
	default:
	}
	select {
	case m = <-c.ch:
		return m, true
	case <-c.done:
		return Message{}, false
	}
}

// Close marks the consumer as gone. Queued messages are abandoned.
func (c *Channel) Close() {
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.done)
	})
}

// Closed reports whether Close was called.
func (c *Channel) Closed() bool {
	return c.closed.Load()
}

// Len returns the number of queued messages.
func (c *Channel) Len() int {
	return len(c.ch)
}

// Cap returns the capacity of the Channel.
func (c *Channel) Cap() int {
	return cap(c.ch)
}
