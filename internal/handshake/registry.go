// Package handshake delivers each window's image exactly once, after that
// window's front-end reports it is ready.
package handshake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/FengZhongShaoNian/sticky/internal/events"
	"github.com/FengZhongShaoNian/sticky/internal/imagecodec"
)

// State of a window's delivery.
type State int

const (
	// Unknown means the identity was never armed, or its window closed
	// after delivery.
	Unknown State = iota
	Armed
	Delivered
	Cancelled
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Delivered:
		return "delivered"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

var ErrAlreadyArmed = errors.New("identity already armed")

// Target receives the one image push for a window.
type Target interface {
	Deliver(events.ImageAvailable) error
}

// TargetFunc adapts a function to Target.
type TargetFunc func(events.ImageAvailable) error

func (f TargetFunc) Deliver(m events.ImageAvailable) error { return f(m) }

type entry struct {
	payload imagecodec.Payload
	path    string
	target  Target
}

// Registry maps armed identities to their pending delivery.
type Registry struct {
	mu      sync.Mutex
	pending map[string]entry
	// finished keeps terminal states so State can report them.
	finished map[string]State
	logger   *slog.Logger
}

// NewRegistry returns an empty registry. A nil logger discards output.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		pending:  make(map[string]entry),
		finished: make(map[string]State),
		logger:   logger,
	}
}

// Arm registers the payload for identity. path is forwarded with the image
// and may be empty.
func (r *Registry) Arm(identity string, payload imagecodec.Payload, path string, target Target) error {
	if target == nil {
		return fmt.Errorf("failed to arm %s: nil target", identity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pending[identity]; ok {
		return fmt.Errorf("failed to arm %s: %w", identity, ErrAlreadyArmed)
	}
	if st, ok := r.finished[identity]; ok {
		return fmt.Errorf("failed to arm %s: %w (state %s)", identity, ErrAlreadyArmed, st)
	}
	r.pending[identity] = entry{payload: payload, path: path, target: target}
	return nil
}

// Dispatch routes m. Only Ready messages act on the registry; a Ready for an
// identity that is not armed is ignored. Returns true if a delivery happened.
func (r *Registry) Dispatch(m events.Message) bool {
	ready, ok := m.(events.Ready)
	if !ok {
		r.logger.Debug("ignoring message", "type", m.Type(), "identity", m.Target())
		return false
	}

	r.mu.Lock()
	e, ok := r.pending[ready.Identity]
	if ok {
		delete(r.pending, ready.Identity)
		r.finished[ready.Identity] = Delivered
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Debug("ready for unarmed identity", "identity", ready.Identity)
		return false
	}

	msg := events.ImageAvailable{Identity: ready.Identity, Payload: e.payload, Path: e.path}
	if err := e.target.Deliver(msg); err != nil {
		r.logger.Warn("image delivery failed", "identity", ready.Identity, "error", err)
	} else {
		r.logger.Debug("image delivered", "identity", ready.Identity)
	}
	return true
}

// Cancel drops a pending delivery, typically because the window closed.
// It reports whether an armed entry was removed.
func (r *Registry) Cancel(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.pending[identity]
	if ok {
		delete(r.pending, identity)
		r.finished[identity] = Cancelled
		return true
	}
	delete(r.finished, identity)
	return false
}

// Armed returns the number of pending deliveries.
func (r *Registry) Armed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// State reports where identity is in its lifecycle.
func (r *Registry) State(identity string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[identity]; ok {
		return Armed
	}
	if st, ok := r.finished[identity]; ok {
		return st
	}
	return Unknown
}

// Run dispatches messages until ctx is done or messages is closed.
func (r *Registry) Run(ctx context.Context, messages <-chan events.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-messages:
			if !ok {
				return
			}
			r.Dispatch(m)
		}
	}
}
