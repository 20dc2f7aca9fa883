package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "aua", cfg.Name)
	assert.NotEmpty(t, cfg.Memory.DatabasePath)
	assert.NotEmpty(t, cfg.Agent.WorkspaceRoot)
	assert.Equal(t, 2, cfg.Memory.MaxRetries)
	assert.Contains(t, cfg.Agent.SensitiveEnvPatterns, "TOKEN")
	assert.Equal(t, []string{"http", "https"}, cfg.HTTP.AllowedSchemes)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "aua", cfg.Name)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aua.yaml")
	data := `
memory:
  remote_url: "http://127.0.0.1:8844/graph"
  sync_timeout: 5s
  recent_limit: 25
agent:
  workspace_root: "/tmp/aua-workspace"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8844/graph", cfg.Memory.RemoteURL)
	assert.Equal(t, 5*time.Second, cfg.Memory.SyncTimeout)
	assert.Equal(t, 25, cfg.Memory.RecentLimit)
	assert.Equal(t, "/tmp/aua-workspace", cfg.Agent.WorkspaceRoot)
	// Untouched sections keep defaults.
	assert.Equal(t, 2, cfg.Memory.MaxRetries)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("AUA_DB_PATH overrides database path", func(t *testing.T) {
		t.Setenv("AUA_DB_PATH", "/tmp/override.db")

		cfg := Default()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/override.db", cfg.Memory.DatabasePath)
	})

	t.Run("REMOTE_MEMORY_SERVER_URL overrides file value", func(t *testing.T) {
		t.Setenv("REMOTE_MEMORY_SERVER_URL", "http://tunnel.local:9000/graph")

		cfg := Default()
		cfg.Memory.RemoteURL = "http://file-value:1234/graph"
		cfg.applyEnvOverrides()

		assert.Equal(t, "http://tunnel.local:9000/graph", cfg.Memory.RemoteURL)
	})

	t.Run("empty env leaves config untouched", func(t *testing.T) {
		t.Setenv("REMOTE_MEMORY_SERVER_URL", "")

		cfg := Default()
		cfg.Memory.RemoteURL = "http://file-value:1234/graph"
		cfg.applyEnvOverrides()

		assert.Equal(t, "http://file-value:1234/graph", cfg.Memory.RemoteURL)
	})
}

func TestEffectiveRemoteURL(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.EffectiveRemoteURL())

	cfg.Memory.FallbackRemoteURL = "http://fallback:8080/graph"
	assert.Equal(t, "http://fallback:8080/graph", cfg.EffectiveRemoteURL())

	cfg.Memory.RemoteURL = "http://primary:8080/graph"
	assert.Equal(t, "http://primary:8080/graph", cfg.EffectiveRemoteURL())
}

func TestValidate(t *testing.T) {
	t.Run("rejects empty workspace root", func(t *testing.T) {
		cfg := Default()
		cfg.Agent.WorkspaceRoot = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-http remote URL", func(t *testing.T) {
		cfg := Default()
		cfg.Memory.RemoteURL = "ftp://example.com/graph"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive sync timeout", func(t *testing.T) {
		cfg := Default()
		cfg.Memory.SyncTimeout = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("accepts defaults", func(t *testing.T) {
		assert.NoError(t, Default().Validate())
	})
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aua.yaml")
	require.NoError(t, os.WriteFile(path, []byte("memory:\n  remote_url: \"http://a:1/graph\"\n"), 0o644))

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte("memory:\n  remote_url: \"http://b:2/graph\"\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "http://b:2/graph", cfg.Memory.RemoteURL)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
