package cli

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/joule/internal/config"
	"github.com/aretw0/joule/internal/logging"
	"github.com/aretw0/joule/internal/testutils"
	"github.com/aretw0/joule/pkg/adapters/redis"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/persistence/middleware"
	"github.com/aretw0/joule/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.ToolsFile = filepath.Join(t.TempDir(), "tools.yaml")
	return cfg
}

func TestNewApp_Turn(t *testing.T) {
	model := testutils.NewScriptedModel(testutils.Answer("Hello! How can I help?", nil))
	app, err := NewApp(testConfig(t), WithModel(model), WithLogger(logging.NewNop()))
	require.NoError(t, err)
	defer app.Close()

	ctx := context.Background()
	resp, err := app.Chat.HandleTurn(ctx, ports.TurnRequest{Query: "hi", SessionID: "s1", Timezone: "UTC"})
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", resp.Answer)

	history, err := app.Sessions.Read(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
	_, ok := app.Tools.Definition("relative_date")
	assert.True(t, ok)
}

func TestNewApp_RequiresLLMSettings(t *testing.T) {
	_, err := NewApp(testConfig(t), WithLogger(logging.NewNop()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm settings missing")
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = "etcd"
	_, err := NewApp(cfg, WithModel(testutils.NewScriptedModel()), WithLogger(logging.NewNop()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}

func TestNewApp_ProcessTools(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.ToolsFile, []byte(`
tools:
  - name: weather
    description: Current weather.
    command: echo
    args: ["sunny"]
`), 0o644))

	app, err := NewApp(cfg, WithModel(testutils.NewScriptedModel()), WithLogger(logging.NewNop()))
	require.NoError(t, err)
	defer app.Close()

	def, ok := app.Tools.Definition("weather")
	require.True(t, ok)
	assert.Equal(t, "Current weather.", def.Description)
}

func TestNewStore_RedisSealedAndRedacted(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	store, locker, closer, err := NewStore(config.Store{
		Backend:        config.BackendRedis,
		Redis:          config.Redis{Addr: mr.Addr()},
		EncryptionKey:  key,
		RedactPatterns: []string{middleware.EmailPattern},
	})
	require.NoError(t, err)
	require.NotNil(t, locker)
	require.NotNil(t, closer)
	defer closer()

	ctx := context.Background()
	s := domain.NewSession("s1")
	s.Append(domain.UserTurn("reach me at jane@example.com"))
	require.NoError(t, store.Save(ctx, "s1", s))

	raw, err := mr.Get(redis.DefaultPrefix + "s:s1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "reach me")
	assert.Contains(t, raw, "sealed")

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded.Read(), 1)
	assert.Equal(t, "reach me at "+middleware.Mask, loaded.Read()[0].Content)
}

func TestNewStore_InvalidKey(t *testing.T) {
	_, _, _, err := NewStore(config.Store{Backend: config.BackendMemory, EncryptionKey: "c2hvcnQ="})
	require.Error(t, err)
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}

func TestNewStore_FileBackend(t *testing.T) {
	dir := t.TempDir()
	store, locker, closer, err := NewStore(config.Store{Backend: config.BackendFile, Path: dir})
	require.NoError(t, err)
	assert.Nil(t, locker)
	assert.Nil(t, closer)

	require.NoError(t, store.Save(context.Background(), "s1", domain.NewSession("s1")))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}
