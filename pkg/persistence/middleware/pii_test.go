package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/joule/pkg/adapters/memory"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{middleware.EmailPattern, `\d{3}-\d{2}-\d{4}`})
	require.NoError(t, err)
	secure := mw(underlying)
	ctx := context.Background()

	session := domain.NewSession("pii")
	_ = session.SetWorkflow(domain.WorkflowBrief)
	_ = session.SetValue(domain.WorkflowBrief, domain.FieldName, "jane@example.com launch")
	session.Append(
		domain.UserTurn("reach me at jane@example.com, ssn 999-99-9999"),
		domain.AssistantTurn("Thanks."),
	)

	require.NoError(t, secure.Save(ctx, "pii", session))

	assert.Equal(t, "reach me at jane@example.com, ssn 999-99-9999", session.History[0].Content,
		"middleware must not modify the caller's session")

	stored, err := underlying.Load(ctx, "pii")
	require.NoError(t, err)
	assert.Equal(t, "reach me at ***, ssn ***", stored.History[0].Content)
	assert.Equal(t, "Thanks.", stored.History[1].Content)
	assert.Equal(t, "jane@example.com launch", stored.Value(domain.WorkflowBrief, domain.FieldName),
		"captured fields are kept")
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_Order(t *testing.T) {
	underlying := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{middleware.EmailPattern})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(underlying, pii, enc)
	ctx := context.Background()

	session := domain.NewSession("chain")
	session.Append(domain.UserTurn("mail a@b.io"))
	require.NoError(t, store.Save(ctx, "chain", session))

	raw, err := underlying.Load(ctx, "chain")
	require.NoError(t, err)
	assert.NotEmpty(t, raw.Sealed)

	loaded, err := store.Load(ctx, "chain")
	require.NoError(t, err)
	assert.Equal(t, "mail ***", loaded.History[0].Content, "masked before sealing")
}
