package domain_test

import (
	"fmt"
	"testing"

	"github.com/aretw0/joule/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_SetWorkflowResetsStep(t *testing.T) {
	for _, prior := range []int{0, 1, 7, 42} {
		t.Run(fmt.Sprintf("prior=%d", prior), func(t *testing.T) {
			s := domain.NewSession("s1")
			require.NoError(t, s.SetWorkflow(domain.WorkflowProject))
			s.SetStepIndex(prior)

			require.NoError(t, s.SetWorkflow(domain.WorkflowBrief))
			assert.Equal(t, 0, s.StepIndex())

			require.NoError(t, s.SetWorkflow(domain.WorkflowProject))
			assert.Equal(t, 0, s.StepIndex())
		})
	}
}

func TestSession_AdvanceStep(t *testing.T) {
	s := domain.NewSession("s1")
	require.NoError(t, s.SetWorkflow(domain.WorkflowProject))
	s.SetStepIndex(2)

	for i := 0; i < 5; i++ {
		s.AdvanceStep()
	}
	assert.Equal(t, 7, s.StepIndex())
}

func TestSession_SetStepIndexClampsNegative(t *testing.T) {
	s := domain.NewSession("s1")
	s.SetStepIndex(3)
	s.SetStepIndex(-4)
	assert.Equal(t, 0, s.StepIndex())
}

func TestSession_DefaultsToNone(t *testing.T) {
	s := &domain.Session{ID: "raw"}
	assert.Equal(t, domain.WorkflowNone, s.Workflow())
	assert.Equal(t, 0, s.StepIndex())

	s.ActiveWorkflow = "garbage"
	assert.Equal(t, domain.WorkflowNone, s.Workflow())
}

func TestSession_AppendReadRoundTrip(t *testing.T) {
	s := domain.NewSession("s1")
	var want []domain.Turn
	for i := 0; i < 4; i++ {
		u := domain.UserTurn(fmt.Sprintf("question %d", i))
		a := domain.AssistantTurn(fmt.Sprintf("answer %d", i))
		s.Append(u, a)
		want = append(want, u, a)
		assert.Equal(t, want, s.Read())
	}
}

func TestSession_ReadReturnsCopy(t *testing.T) {
	s := domain.NewSession("s1")
	s.Append(domain.UserTurn("hello"))

	history := s.Read()
	history[0].Content = "mutated"
	history = append(history, domain.UserTurn("extra"))

	assert.Equal(t, []domain.Turn{domain.UserTurn("hello")}, s.Read())
	assert.Len(t, history, 2)
}

func TestSession_Values(t *testing.T) {
	s := domain.NewSession("s1")
	require.NoError(t, s.SetWorkflow(domain.WorkflowProject))

	assert.Nil(t, s.Value(domain.WorkflowProject, domain.FieldBudget))
	require.NoError(t, s.SetValue(domain.WorkflowProject, domain.FieldBudget, 250.0))
	assert.Equal(t, 250.0, s.Value(domain.WorkflowProject, domain.FieldBudget))

	err := s.SetValue(domain.WorkflowProject, domain.FieldWorkType, "Flyers")
	assert.ErrorIs(t, err, domain.ErrUnknownField)

	err = s.SetValue(domain.WorkflowProject, domain.FieldDescription, 12)
	assert.ErrorIs(t, err, domain.ErrFieldType)

	err = s.SetValue("unknown", domain.FieldBudget, 1.0)
	assert.ErrorIs(t, err, domain.ErrUnknownWorkflow)
	assert.Nil(t, s.Value("unknown", domain.FieldBudget))
}

func TestSession_ReactivationResetsOnlyTarget(t *testing.T) {
	s := domain.NewSession("s1")
	require.NoError(t, s.SetWorkflow(domain.WorkflowBrief))
	require.NoError(t, s.SetValue(domain.WorkflowBrief, domain.FieldName, "Ada"))

	require.NoError(t, s.SetWorkflow(domain.WorkflowProject))
	require.NoError(t, s.SetValue(domain.WorkflowProject, domain.FieldBudget, 100.0))

	// Brief record survives while another workflow is active.
	assert.Equal(t, "Ada", s.Value(domain.WorkflowBrief, domain.FieldName))

	// Re-entering project starts from a clean record.
	require.NoError(t, s.SetWorkflow(domain.WorkflowProject))
	assert.Nil(t, s.Value(domain.WorkflowProject, domain.FieldBudget))
}

func TestSession_CloneIsIndependent(t *testing.T) {
	s := domain.NewSession("s1")
	require.NoError(t, s.SetWorkflow(domain.WorkflowProject))
	require.NoError(t, s.SetValue(domain.WorkflowProject, domain.FieldBudget, 10.0))
	s.Append(domain.UserTurn("hi"))

	c := s.Clone()
	require.NoError(t, c.SetValue(domain.WorkflowProject, domain.FieldBudget, 20.0))
	c.Append(domain.AssistantTurn("hello"))

	assert.Equal(t, 10.0, s.Value(domain.WorkflowProject, domain.FieldBudget))
	assert.Len(t, s.Read(), 1)
}

func TestParseWorkflowName(t *testing.T) {
	w, err := domain.ParseWorkflowName(" Project ")
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowProject, w)

	_, err = domain.ParseWorkflowName("invoice")
	assert.ErrorIs(t, err, domain.ErrUnknownWorkflow)
}
