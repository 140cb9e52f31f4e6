package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/joule/internal/logging"
	"github.com/aretw0/joule/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatApp(t *testing.T, replies ...testutils.Reply) *App {
	t.Helper()
	app, err := NewApp(testConfig(t), WithModel(testutils.NewScriptedModel(replies...)), WithLogger(logging.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestRunChat_ExitCommand(t *testing.T) {
	app := newChatApp(t, testutils.Answer("Hi there!", nil))
	var out bytes.Buffer

	err := RunChat(context.Background(), app.Chat, ChatOptions{
		SessionID: "cli",
		Timezone:  "UTC",
		In:        strings.NewReader("hello\n\nexit\nnever sent\n"),
		Out:       &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Session 'cli' active.")
	assert.Contains(t, out.String(), "Hi there!\n")
	assert.Contains(t, out.String(), ">>> Bye.")

	history, err := app.Sessions.Read(context.Background(), "cli")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestRunChat_EndOfInput(t *testing.T) {
	app := newChatApp(t)
	var out bytes.Buffer

	err := RunChat(context.Background(), app.Chat, ChatOptions{
		SessionID: "cli",
		Timezone:  "UTC",
		In:        strings.NewReader(""),
		Out:       &out,
	})
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, HandleExecutionError(err))
}

func TestRunChat_FailedTurnContinues(t *testing.T) {
	app := newChatApp(t,
		testutils.Fail(errors.New("upstream unavailable")),
		testutils.Answer("Back online.", nil),
	)
	var out bytes.Buffer

	err := RunChat(context.Background(), app.Chat, ChatOptions{
		SessionID: "cli",
		Timezone:  "UTC",
		In:        strings.NewReader("first\nsecond\nquit\n"),
		Out:       &out,
		Render:    func(md string) (string, error) { return "[" + md + "]\n", nil },
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "The turn failed, nothing was recorded")
	assert.Contains(t, out.String(), "[Back online.]")

	history, err := app.Sessions.Read(context.Background(), "cli")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Content)
}

func TestRunChat_Cancelled(t *testing.T) {
	app := newChatApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pr, pw := io.Pipe()
	defer pw.Close()

	err := RunChat(ctx, app.Chat, ChatOptions{SessionID: "cli", In: pr, Out: io.Discard})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, HandleExecutionError(err))
}
