package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

// EmailPattern matches e-mail addresses.
const EmailPattern = `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks history text matching the patterns
// before it reaches the store. Captured workflow fields are kept intact so an
// interrupted workflow can resume.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	// Work on a copy: the caller keeps using its session.
	cloned := session.Clone()
	for i := range cloned.History {
		cloned.History[i].Content = m.mask(cloned.History[i].Content)
	}
	return m.next.Save(ctx, sessionID, cloned)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
