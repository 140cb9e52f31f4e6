package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/joule/pkg/adapters/memory"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRM_CreateProject(t *testing.T) {
	crm := memory.NewCRM()
	budget, desc, ok := 500.0, "A long enough project description", true

	rec, err := crm.CreateProject(context.Background(), "s1", domain.ProjectData{
		StepIndex: 3, Budget: &budget, Description: &desc, Confirmed: &ok,
	})
	require.NoError(t, err)

	_, err = uuid.Parse(rec.ID)
	assert.NoError(t, err)
	assert.Equal(t, domain.WorkflowProject, rec.Workflow)
	assert.Equal(t, map[string]any{"budget": 500.0, "description": desc, "confirmed": true}, rec.Fields)

	name := "Autumn campaign"
	_, err = crm.CreateBrief(context.Background(), "s1", domain.BriefData{Name: &name})
	require.NoError(t, err)

	records := crm.Records()
	require.Len(t, records, 2)
	assert.Equal(t, domain.WorkflowBrief, records[1].Workflow)
	assert.Equal(t, map[string]any{"name": name}, records[1].Fields)
}

func TestCRM_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := memory.NewCRM().CreateProject(ctx, "s1", domain.ProjectData{})
	assert.ErrorIs(t, err, context.Canceled)
}
