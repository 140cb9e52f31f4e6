package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/joule/pkg/adapters/memory"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededSessions(t *testing.T) *session.Manager {
	t.Helper()
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()
	require.NoError(t, mgr.SetActiveWorkflow(ctx, "b", domain.WorkflowProject))
	require.NoError(t, mgr.Append(ctx, "a", domain.UserTurn("hello")))
	return mgr
}

func TestListSessions(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, ListSessions(context.Background(), seededSessions(t), &out))
	assert.Equal(t, "Active Sessions:\n- a\n- b\n", out.String())

	out.Reset()
	require.NoError(t, ListSessions(context.Background(), session.NewManager(memory.NewStore()), &out))
	assert.Equal(t, "No active sessions found.\n", out.String())
}

func TestInspectSession(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, InspectSession(context.Background(), seededSessions(t), "b", &out))

	var view map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	assert.Equal(t, "b", view["id"])
	assert.Equal(t, string(domain.WorkflowProject), view["workflow"])

	err := InspectSession(context.Background(), seededSessions(t), "missing", &out)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRemoveSessions(t *testing.T) {
	mgr := seededSessions(t)
	var out bytes.Buffer
	require.NoError(t, RemoveSessions(context.Background(), mgr, []string{"a", "b"}, &out))
	assert.Contains(t, out.String(), "Removed session 'a'")

	ids, err := mgr.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
