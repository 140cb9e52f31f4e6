package tools_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/joule/pkg/adapters/memory"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/session"
	"github.com/aretw0/joule/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) // Friday
}

func TestRelativeDate(t *testing.T) {
	set := tools.New(memory.NewCRM(), tools.WithClock(fixedClock))
	reg := set.NewRegistry()
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{
			name: "calendar default",
			args: map[string]any{"current_datetime": "2026-10-16T10:00:00", "timezone": "Europe/Warsaw", "offset_days": 1.0},
			want: "2026-10-17 (Saturday)",
		},
		{
			name: "business skips weekend",
			args: map[string]any{"current_datetime": "2026-10-16T10:00:00", "timezone": "UTC", "offset_days": 1, "day_type": "business"},
			want: "2026-10-19 (Monday)",
		},
		{
			name: "offset as text",
			args: map[string]any{"current_datetime": "2026-10-16", "timezone": "UTC", "offset_days": "-2"},
			want: "2026-10-14 (Wednesday)",
		},
		{
			name: "unparsable datetime falls back to now",
			args: map[string]any{"current_datetime": "tomorrow-ish", "timezone": "Nowhere/City", "offset_days": 0},
			want: "2026-10-16 (Friday)",
		},
		{
			name: "timezone shifts the date",
			args: map[string]any{"current_datetime": "2026-10-16T23:30:00Z", "timezone": "Asia/Tokyo", "offset_days": 0},
			want: "2026-10-17 (Saturday)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Execute(ctx, tools.RelativeDateName, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := reg.Execute(ctx, tools.RelativeDateName, map[string]any{"offset_days": map[string]any{"x": 1}})
	assert.ErrorContains(t, err, "invalid arguments")
}

func TestSetActiveWorkflow(t *testing.T) {
	set := tools.New(memory.NewCRM())
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	got, err := set.SetActiveWorkflow(ctx, map[string]any{"workflow": "project"})
	require.NoError(t, err)
	assert.Equal(t, "No active session; cannot set workflow.", got)

	require.NoError(t, mgr.SetStepIndex(ctx, "s1", 2))
	err = mgr.Update(ctx, "s1", func(ctx context.Context, s *domain.Session) error {
		got, err := set.SetActiveWorkflow(ctx, map[string]any{"workflow": "project"})
		require.NoError(t, err)
		assert.Equal(t, "Active workflow for current session set to 'project'.", got)

		_, err = set.SetActiveWorkflow(ctx, map[string]any{"workflow": "invoice"})
		assert.ErrorIs(t, err, domain.ErrUnknownWorkflow)
		return nil
	})
	require.NoError(t, err)

	w, _ := mgr.ActiveWorkflow(ctx, "s1")
	assert.Equal(t, domain.WorkflowProject, w)
	idx, _ := mgr.StepIndex(ctx, "s1")
	assert.Equal(t, 0, idx)
}

func TestCreateProject(t *testing.T) {
	crm := memory.NewCRM()
	set := tools.New(crm)
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	got, err := set.CreateProject(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "No active session; cannot create project.", got)

	require.NoError(t, mgr.SetActiveWorkflow(ctx, "s1", domain.WorkflowProject))
	require.NoError(t, mgr.SetValue(ctx, "s1", domain.WorkflowProject, domain.FieldBudget, 500.0))

	err = mgr.Update(ctx, "s1", func(ctx context.Context, s *domain.Session) error {
		_, err := set.CreateProject(ctx, nil)
		assert.ErrorIs(t, err, tools.ErrNotConfirmed)

		require.NoError(t, s.SetValue(domain.WorkflowProject, domain.FieldConfirmed, true))
		got, err := set.CreateProject(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "OK: Project created successfully.", got)
		return nil
	})
	require.NoError(t, err)

	records := crm.Records()
	require.Len(t, records, 1)
	assert.Equal(t, 500.0, records[0].Fields["budget"])
}

func TestCreateBrief(t *testing.T) {
	crm := memory.NewCRM()
	set := tools.New(crm)
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, mgr.SetActiveWorkflow(ctx, "s1", domain.WorkflowBrief))
	require.NoError(t, mgr.SetValue(ctx, "s1", domain.WorkflowBrief, domain.FieldConfirmed, true))

	err := mgr.Update(ctx, "s1", func(ctx context.Context, s *domain.Session) error {
		got, err := set.CreateBrief(ctx, nil)
		require.NoError(t, err)
		assert.Contains(t, got, "OK: Brief created successfully. Record ID: ")
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, crm.Records(), 1)
}

func TestDefinitions(t *testing.T) {
	reg := tools.New(memory.NewCRM()).NewRegistry()

	var names []string
	for _, def := range reg.Definitions() {
		names = append(names, def.Name)
		assert.NotEmpty(t, def.Description)
		assert.Equal(t, "object", def.Parameters["type"])
	}
	assert.Equal(t, []string{"relative_date", "set_active_workflow", "create_project", "create_brief"}, names)
}
