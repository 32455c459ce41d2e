package config

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnv(t *testing.T) {
	ResetEnv()
	defer ResetEnv()

	home := t.TempDir()
	t.Setenv("DUCKY_HOME", home)
	t.Setenv("DUCKY_DEFAULT_BANG", "w")
	t.Setenv("DUCKY_LISTEN", ":9999")
	t.Setenv("DUCKY_LOG_LEVEL", "debug")
	t.Setenv("DUCKY_SESSION_ID", "sess-123")

	env := Env()

	assert.Equal(t, home, env.Home)
	assert.Equal(t, "w", env.DefaultBang)
	assert.Equal(t, ":9999", env.Listen)
	assert.Equal(t, "debug", env.LogLevel)
	assert.Equal(t, "sess-123", env.SessionID)
}

func TestEnvDefaults(t *testing.T) {
	ResetEnv()
	defer ResetEnv()

	t.Setenv("DUCKY_HOME", "")
	t.Setenv("DUCKY_SESSION_ID", "")

	env := Env()

	assert.Equal(t, ".ducky", filepath.Base(env.Home))
	_, err := uuid.Parse(env.SessionID)
	assert.NoError(t, err, "session id defaults to a uuid")
}

func TestEnvSingleton(t *testing.T) {
	ResetEnv()
	defer ResetEnv()

	env1 := Env()
	env2 := Env()

	// Should return same instance
	assert.Same(t, env1, env2)
}

func TestResetEnv(t *testing.T) {
	defer ResetEnv()

	t.Setenv("DUCKY_DEFAULT_BANG", "first")
	ResetEnv()
	assert.Equal(t, "first", Env().DefaultBang)

	t.Setenv("DUCKY_DEFAULT_BANG", "second")
	ResetEnv()
	assert.Equal(t, "second", Env().DefaultBang)
}

func TestPaths(t *testing.T) {
	ResetEnv()
	defer ResetEnv()

	home := t.TempDir()
	t.Setenv("DUCKY_HOME", home)

	p := GetPaths()
	assert.Equal(t, home, p.Home)
	assert.Equal(t, filepath.Join(home, "data"), p.Data)
	assert.Equal(t, filepath.Join(home, "config.toml"), p.ConfigFile)
	assert.Equal(t, filepath.Join(home, "logs", "ducky.log"), p.LogFile)
	assert.Equal(t, filepath.Join(home, "bangs", "x.json"), Path("bangs", "x.json"))

	require.NoError(t, EnsureDir(p.Data))
	assert.DirExists(t, p.Data)
}
