package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/joule/internal/presentation/graph"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(workflow.Default(), nil)

	tests := []struct {
		name     string
		contains []string
	}{
		{
			name:     "Start Node Shape",
			contains: []string{"start((\"none\"))"},
		},
		{
			name: "Validated Step Shape",
			contains: []string{
				"project_plan_project[/\"plan_project <br/> budget\"/]",
				"brief_name_brief[/",
			},
		},
		{
			name:     "Completion Shape",
			contains: []string{"project_complete[[\"complete\"]]"},
		},
		{
			name: "Transitions",
			contains: []string{
				"start -- \"project\" --> project_plan_project",
				"project_plan_project --> project_describe_project",
				"project_confirm_project --> project_complete",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.NotContains(t, out, "Overlay Styles")
	assert.NotContains(t, out, "default_conversation")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	s := domain.NewSession("s1")
	require.NoError(t, s.SetWorkflow(domain.WorkflowProject))
	s.AdvanceStep()

	out := graph.GenerateMermaid(workflow.Default(), graph.OverlayFor(s))
	assert.Contains(t, out, "class start visited;")
	assert.Contains(t, out, "class project_plan_project visited;")
	assert.Contains(t, out, "class project_describe_project current;")
	assert.NotContains(t, out, "class project_confirm_project")
}

func TestGenerateMermaid_OverlayTerminal(t *testing.T) {
	s := domain.NewSession("s1")
	require.NoError(t, s.SetWorkflow(domain.WorkflowProject))
	s.SetStepIndex(3)

	out := graph.GenerateMermaid(workflow.Default(), graph.OverlayFor(s))
	assert.Contains(t, out, "class project_complete current;")
}

func TestGenerateMermaid_OverlayFreeConversation(t *testing.T) {
	out := graph.GenerateMermaid(workflow.Default(), graph.OverlayFor(domain.NewSession("s1")))
	assert.Contains(t, out, "class start current;")
}
