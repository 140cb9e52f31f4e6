package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/session"
)

// SessionAdmin is the subset of session.Manager the session commands use.
type SessionAdmin interface {
	Load(ctx context.Context, sessionID string) (*domain.Session, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, sessionID string) error
}

// ListSessions prints the stored session ids in lexical order.
func ListSessions(ctx context.Context, sessions SessionAdmin, w io.Writer) error {
	ids, err := sessions.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No active sessions found.")
		return nil
	}
	sort.Strings(ids)
	fmt.Fprintln(w, "Active Sessions:")
	for _, id := range ids {
		fmt.Fprintln(w, "- "+id)
	}
	return nil
}

// InspectSession prints the JSON view of one session.
func InspectSession(ctx context.Context, sessions SessionAdmin, sessionID string, w io.Writer) error {
	s, err := sessions.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session '%s': %w", sessionID, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(session.NewView(s))
}

// RemoveSessions deletes every listed session and reports each outcome.
func RemoveSessions(ctx context.Context, sessions SessionAdmin, ids []string, w io.Writer) error {
	var errs []error
	for _, id := range ids {
		if err := sessions.Delete(ctx, id); err != nil {
			fmt.Fprintf(w, "Error removing '%s': %v\n", id, err)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(w, "Removed session '%s'\n", id)
	}
	return errors.Join(errs...)
}
