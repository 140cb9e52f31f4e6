package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/joule/internal/logging"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
// It must exceed the longest expected turn (LLM latency included).
const DefaultLockTTL = 2 * time.Minute

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// Operations on one session ID are serialized; different IDs never block each other.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL for the distributed locker.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes a function while holding the lock for the session.
// Calls made with a context already bound to sessionID run without re-locking.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	if _, ok := bound(ctx, sessionID); ok {
		return fn(ctx)
	}

	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// Release with a fresh context: ctx may already be canceled.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Update runs fn against a working copy of the session and persists it only
// if fn succeeds and ctx is still live. Unknown sessions are created lazily.
//
// The working copy is bound to the context passed to fn, so tools and
// nested Manager calls for the same session operate on it directly.
func (m *Manager) Update(ctx context.Context, sessionID string, fn func(context.Context, *domain.Session) error) error {
	if s, ok := bound(ctx, sessionID); ok {
		return fn(ctx, s)
	}

	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		working, err := m.loadOrNew(ctx, sessionID)
		if err != nil {
			return err
		}

		if err := fn(withBinding(ctx, sessionID, working), working); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := m.store.Save(ctx, sessionID, working); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
}

// view runs fn against the current snapshot of the session without locking.
func (m *Manager) view(ctx context.Context, sessionID string, fn func(*domain.Session)) error {
	if s, ok := bound(ctx, sessionID); ok {
		fn(s)
		return nil
	}
	s, err := m.loadOrNew(ctx, sessionID)
	if err != nil {
		return err
	}
	fn(s)
	return nil
}

func (m *Manager) loadOrNew(ctx context.Context, sessionID string) (*domain.Session, error) {
	s, err := m.store.Load(ctx, sessionID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return domain.NewSession(sessionID), nil
}

// Load retrieves an existing session from the store.
// Returns domain.ErrSessionNotFound for unknown IDs.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	if s, ok := bound(ctx, sessionID); ok {
		return s.Clone(), nil
	}
	return m.store.Load(ctx, sessionID)
}

// Read returns a copy of the session history, empty for unknown sessions.
func (m *Manager) Read(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	var history []domain.Turn
	err := m.view(ctx, sessionID, func(s *domain.Session) {
		history = s.Read()
	})
	return history, err
}

// Append adds turns to the session history, creating the session if absent.
func (m *Manager) Append(ctx context.Context, sessionID string, turns ...domain.Turn) error {
	return m.Update(ctx, sessionID, func(_ context.Context, s *domain.Session) error {
		s.Append(turns...)
		return nil
	})
}

// ActiveWorkflow returns the session's active workflow (WorkflowNone if unknown).
func (m *Manager) ActiveWorkflow(ctx context.Context, sessionID string) (domain.WorkflowName, error) {
	w := domain.WorkflowNone
	err := m.view(ctx, sessionID, func(s *domain.Session) {
		w = s.Workflow()
	})
	return w, err
}

// SetActiveWorkflow switches the workflow and resets its step index and record.
func (m *Manager) SetActiveWorkflow(ctx context.Context, sessionID string, w domain.WorkflowName) error {
	return m.Update(ctx, sessionID, func(_ context.Context, s *domain.Session) error {
		return s.SetWorkflow(w)
	})
}

// StepIndex returns the step index of the active workflow (0 if unset).
func (m *Manager) StepIndex(ctx context.Context, sessionID string) (int, error) {
	var index int
	err := m.view(ctx, sessionID, func(s *domain.Session) {
		index = s.StepIndex()
	})
	return index, err
}

// SetStepIndex stores the step index of the active workflow, clamping negatives to 0.
func (m *Manager) SetStepIndex(ctx context.Context, sessionID string, index int) error {
	return m.Update(ctx, sessionID, func(_ context.Context, s *domain.Session) error {
		s.SetStepIndex(index)
		return nil
	})
}

// AdvanceStep increments the step index of the active workflow by one.
func (m *Manager) AdvanceStep(ctx context.Context, sessionID string) error {
	return m.Update(ctx, sessionID, func(_ context.Context, s *domain.Session) error {
		s.AdvanceStep()
		return nil
	})
}

// SetValue stores a captured field in the named workflow's record.
func (m *Manager) SetValue(ctx context.Context, sessionID string, w domain.WorkflowName, key domain.FieldKey, value any) error {
	return m.Update(ctx, sessionID, func(_ context.Context, s *domain.Session) error {
		return s.SetValue(w, key, value)
	})
}

// Value returns a captured field, or nil when absent.
func (m *Manager) Value(ctx context.Context, sessionID string, w domain.WorkflowName, key domain.FieldKey) (any, error) {
	var v any
	err := m.view(ctx, sessionID, func(s *domain.Session) {
		v = s.Value(w, key)
	})
	return v, err
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}
