// Package handlers implements the rule-based short-circuit layer that
// runs before intent classification. Each handler inspects the raw text
// and either produces a complete answer or declines, in which case the
// dispatcher moves on. Declining is normal control flow, not an error.
package handlers

import (
	"context"

	"github.com/unklab-dev/kampusbot-go/internal/session"
)

// Handler is a single-purpose matcher over raw user text.
type Handler interface {
	// Name identifies the handler in logs and metrics.
	Name() string

	// TryHandle returns (response, true) when the handler answers the
	// text, or ("", false) to fall through to the next handler.
	TryHandle(ctx context.Context, sess *session.Session, text string) (string, bool)
}

// Registry dispatches to handlers in registration order. Order is part
// of the contract: arithmetic before time before name memory.
type Registry struct {
	handlers []Handler
}

// NewRegistry creates a registry with the given handlers, tried in order.
func NewRegistry(handlers ...Handler) *Registry {
	return &Registry{handlers: handlers}
}

// Dispatch runs the handlers in order and returns the first match along
// with the matching handler's name.
func (r *Registry) Dispatch(ctx context.Context, sess *session.Session, text string) (response, handlerName string, ok bool) {
	for _, h := range r.handlers {
		if resp, handled := h.TryHandle(ctx, sess, text); handled {
			return resp, h.Name(), true
		}
	}
	return "", "", false
}
