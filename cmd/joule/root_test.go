package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/joule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "joule version "+strings.TrimSpace(joule.Version)+"\n", out)
}

func TestSessionCommands_FileStore(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "joule.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store:\n  backend: file\n  path: "+filepath.Join(dir, "sessions")+"\n"), 0o644))

	out, err := run(t, "session", "ls", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "No active sessions found.\n", out)

	_, err = run(t, "session", "inspect", "missing", "--config", cfgPath)
	assert.Error(t, err)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := run(t, "session", "ls", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestGraphCommand(t *testing.T) {
	out, err := run(t, "graph")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "project_plan_project")
}
