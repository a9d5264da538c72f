package cloudsync

import (
	"context"
	"fmt"
)

// Handler processes one inbound envelope. Handlers run on the connection's
// read goroutine: a slow handler delays the next inbound message but never
// the heartbeat. A returned error (or panic) is logged and contained; it
// does not affect the connection or subsequent messages.
type Handler interface {
	Handle(ctx context.Context, env *Envelope) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, env *Envelope) error

// Handle calls f(ctx, env).
func (f HandlerFunc) Handle(ctx context.Context, env *Envelope) error {
	return f(ctx, env)
}

// Registry maps inbound message types to handlers. It is populated before
// the client starts and read-only afterwards; Register is not synchronized.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a message type, replacing any previous
// binding for that type.
func (r *Registry) Register(msgType string, h Handler) {
	r.handlers[msgType] = h
}

// Lookup returns the handler bound to the message type, if any.
func (r *Registry) Lookup(msgType string) (Handler, bool) {
	h, ok := r.handlers[msgType]
	return h, ok
}

// invoke runs the handler with panic containment. A panicking handler is
// reported as an error to the caller, never propagated.
func invoke(ctx context.Context, h Handler, env *Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, env)
}
