package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/joule/pkg/adapters/memory"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/registry"
	"github.com/aretw0/joule/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestRunner_Execute(t *testing.T) {
	requireShell(t)
	runner := NewRunner()
	runner.Register("greet", "echo", "hello")

	t.Run("Executes Registered Command", func(t *testing.T) {
		result, err := runner.Execute(context.Background(), domain.ToolCall{ID: "call_1", Name: "greet"})
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.Equal(t, "hello", result.Result)
		assert.Equal(t, "call_1", result.ID)
	})

	t.Run("Fails For Unregistered Command", func(t *testing.T) {
		result, err := runner.Execute(context.Background(), domain.ToolCall{ID: "call_2", Name: "hacker_script"})
		assert.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, result.Error, "not registered")
	})

	t.Run("Passes Arguments via Env Vars", func(t *testing.T) {
		runner.Register("echo_env", "sh", "-c", `echo "$JOULE_ARG_MSG $JOULE_ARG_TAGS"`)
		result, err := runner.Execute(context.Background(), domain.ToolCall{
			Name: "echo_env",
			Args: map[string]any{"msg": "; rm -rf /", "tags": []any{"a", "b"}},
		})
		require.NoError(t, err)
		assert.Equal(t, `; rm -rf / ["a","b"]`, result.Result)
	})

	t.Run("Decodes JSON Output", func(t *testing.T) {
		runner.Register("json", "sh", "-c", `echo '{"ok": true}'`)
		result, err := runner.Execute(context.Background(), domain.ToolCall{Name: "json"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"ok": true}, result.Result)
	})

	t.Run("Reports Exit Status And Stderr", func(t *testing.T) {
		runner.Register("crashy", "sh", "-c", "echo 'Something went terribly wrong' >&2; exit 123")
		result, err := runner.Execute(context.Background(), domain.ToolCall{Name: "crashy"})
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, result.Error, "exit status 123")
		assert.Contains(t, result.Error, "Something went terribly wrong")
	})
}

func TestRunner_Cancellation(t *testing.T) {
	requireShell(t)
	runner := NewRunner(WithGracePeriod(500 * time.Millisecond))
	runner.Register("slow", "sleep", "10")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	result, err := runner.Execute(ctx, domain.ToolCall{Name: "slow"})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Error, "deadline exceeded")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunner_ToolsUseSession(t *testing.T) {
	requireShell(t)
	runner := NewRunner(WithRegistry(map[string]ProcessConfig{
		"whoami": {
			Name:        "whoami",
			Command:     "sh",
			Args:        []string{"-c", `echo "$JOULE_SESSION_ID/$GREETING"`},
			Environment: map[string]string{"GREETING": "hi"},
			Description: "Print the session",
		},
		"fail": {Name: "fail", Command: "false"},
	}))

	reg := registry.NewRegistry()
	runner.Tools(reg)

	def, ok := reg.Definition("whoami")
	require.True(t, ok)
	assert.Equal(t, "Print the session", def.Description)
	fail, ok := reg.Definition("fail")
	require.True(t, ok)
	assert.Equal(t, "Run the fail command.", fail.Description)
	assert.Equal(t, "object", fail.Parameters["type"])

	mgr := session.NewManager(memory.NewStore())
	var out any
	err := mgr.Update(context.Background(), "s-42", func(ctx context.Context, _ *domain.Session) error {
		var err error
		out, err = reg.Execute(ctx, "whoami", nil)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "s-42/hi", out)

	_, err = reg.Execute(context.Background(), "fail", nil)
	assert.ErrorContains(t, err, "execution failed")
}

func TestLoadTools(t *testing.T) {
	dir := t.TempDir()

	tools, err := LoadTools(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, tools)

	path := filepath.Join(dir, "tools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tools:
  - name: lookup_client
    command: ./bin/lookup
    args: ["--json"]
    env:
      CRM_URL: http://crm.local
    description: Look up a client in the CRM.
    parameters:
      type: object
      properties:
        client:
          type: string
      required: [client]
  - command: ignored-without-name
`), 0o644))

	tools, err = LoadTools(path)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	cfg := tools["lookup_client"]
	assert.Equal(t, "./bin/lookup", cfg.Command)
	assert.Equal(t, []string{"--json"}, cfg.Args)
	assert.Equal(t, "http://crm.local", cfg.Environment["CRM_URL"])
	assert.Equal(t, "object", cfg.Parameters["type"])

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"tools":[{"name":"x"}]}`), 0o644))
	_, err = LoadTools(bad)
	assert.ErrorContains(t, err, "has no command")
}
