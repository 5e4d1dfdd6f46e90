package events

import (
	"context"
	"errors"
	"sync"
)

// DefaultBusSize bounds how many messages may be queued before Publish blocks.
const DefaultBusSize = 64

var ErrBusClosed = errors.New("event bus closed")

// Bus is the process-wide channel front-ends publish on. It has a single
// consumer, the handshake dispatcher.
type Bus struct {
	ch     chan Message
	mu     sync.RWMutex
	closed bool

	done     chan struct{}
	stopOnce sync.Once
}

// NewBus returns a bus buffering up to size messages.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = DefaultBusSize
	}
	return &Bus{
		ch:   make(chan Message, size),
		done: make(chan struct{}),
	}
}

// Publish queues m, blocking while the buffer is full.
func (b *Bus) Publish(ctx context.Context, m Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.ch <- m:
		return nil
	case <-b.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages is the receive side for the dispatcher.
func (b *Bus) Messages() <-chan Message {
	return b.ch
}

// Close stops accepting messages and closes the receive channel.
func (b *Bus) Close() {
	// Publishers blocked on a full buffer hold the read lock.
	b.stopOnce.Do(func() { close(b.done) })

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.ch)
}
