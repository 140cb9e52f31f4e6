package session

import (
	"context"

	"github.com/aretw0/joule/pkg/domain"
)

type ctxKey struct{}

// binding is the working copy of a session held by an in-flight Update.
type binding struct {
	id      string
	session *domain.Session
}

// withBinding returns a context carrying the working copy of a session.
func withBinding(ctx context.Context, id string, s *domain.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, &binding{id: id, session: s})
}

func bound(ctx context.Context, id string) (*domain.Session, bool) {
	b, ok := ctx.Value(ctxKey{}).(*binding)
	if !ok || b.id != id {
		return nil, false
	}
	return b.session, true
}

// FromContext returns the session being processed by the current turn.
// Tools invoked by the LLM use it to find the session they mutate; the
// binding is scoped to a single Update call and never shared across turns.
func FromContext(ctx context.Context) (*domain.Session, bool) {
	b, ok := ctx.Value(ctxKey{}).(*binding)
	if !ok {
		return nil, false
	}
	return b.session, true
}

// IDFromContext returns the ID of the session bound to ctx.
func IDFromContext(ctx context.Context) (string, bool) {
	b, ok := ctx.Value(ctxKey{}).(*binding)
	if !ok {
		return "", false
	}
	return b.id, true
}
