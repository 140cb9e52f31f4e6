package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/joule/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSession(sessionID)
		require.NoError(t, session.SetWorkflow(domain.WorkflowProject))
		require.NoError(t, session.SetValue(domain.WorkflowProject, domain.FieldBudget, 250.0))
		session.AdvanceStep()
		session.Append(domain.UserTurn("hello"), domain.AssistantTurn("hi there"))

		err := store.Save(ctx, sessionID, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, domain.WorkflowProject, loaded.Workflow())
		assert.Equal(t, 1, loaded.StepIndex())
		assert.Equal(t, 250.0, loaded.Value(domain.WorkflowProject, domain.FieldBudget))
		assert.Equal(t, session.Read(), loaded.Read())
	})

	t.Run("Load Returns Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Append(domain.UserTurn("not persisted"))
		loaded.SetStepIndex(9)

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Len(t, again.Read(), 2)
		assert.Equal(t, 1, again.StepIndex())
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewSession(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewSession(id1))
		_ = store.Save(ctx, id2, domain.NewSession(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
