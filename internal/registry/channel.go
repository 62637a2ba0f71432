package registry

import (
	"context"
	"sync"

	"github.com/logia/logia/internal/errors"
)

// defaultChannelBuffer is the per-direction frame buffer of a Channel.
const defaultChannelBuffer = 16

// Channel is the in-memory duplex message pipe between the hub and one
// agent. Frames are opaque byte slices; both sides encode and decode via
// the protocol package. A Channel is safe for concurrent use.
type Channel struct {
	toAgent chan []byte
	toHub   chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

// NewChannel creates a Channel with the default frame buffer.
func NewChannel() *Channel {
	return NewChannelBuffered(defaultChannelBuffer)
}

// NewChannelBuffered creates a Channel buffering up to n frames per direction.
func NewChannelBuffered(n int) *Channel {
	if n < 1 {
		n = 1
	}
	return &Channel{
		toAgent: make(chan []byte, n),
		toHub:   make(chan []byte, n),
		done:    make(chan struct{}),
	}
}

// SendToAgent delivers a frame to the agent side. It blocks until the frame
// is buffered, the context is done, or the channel is closed.
func (c *Channel) SendToAgent(ctx context.Context, frame []byte) error {
	return c.send(ctx, c.toAgent, frame)
}

// SendToHub delivers a frame to the hub side. It blocks until the frame is
// buffered, the context is done, or the channel is closed.
func (c *Channel) SendToHub(ctx context.Context, frame []byte) error {
	return c.send(ctx, c.toHub, frame)
}

func (c *Channel) send(ctx context.Context, dst chan []byte, frame []byte) error {
	// Check for closure first so a send on a closed channel fails fast
	// even when the buffer has room.
	select {
	case <-c.done:
		return errors.ErrChannelClosed
	default:
	}

	select {
	case dst <- frame:
		return nil
	case <-c.done:
		return errors.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FromHub returns the stream of frames the agent side reads.
func (c *Channel) FromHub() <-chan []byte { return c.toAgent }

// FromAgent returns the stream of frames the hub side reads.
func (c *Channel) FromAgent() <-chan []byte { return c.toHub }

// Done is closed when the channel is closed.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Close tears down the channel. It is idempotent. Buffered frames that have
// not been read are dropped; in-flight requests to the agent resolve as
// timeouts at the dispatch deadline, never earlier.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Closed reports whether the channel has been closed.
func (c *Channel) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
