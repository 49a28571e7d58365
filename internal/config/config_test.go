package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gputweak/gputweak/internal/errors"
	"github.com/gputweak/gputweak/internal/history"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.Empty(t, cfg.Host)
	assert.False(t, cfg.Remote())
	assert.Equal(t, "nvidia-settings", cfg.Tool.Path)
	assert.Empty(t, cfg.Tool.Display)
	assert.Equal(t, 5*time.Second, cfg.Tool.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 60*time.Second, cfg.History.Window)
	assert.Equal(t, []string{"core_temp", "core_use", "memory_use"}, cfg.History.Metrics)
	assert.Equal(t, time.Second, cfg.Monitor.Refresh)
	assert.Equal(t, "auto", cfg.Output.Color)
	assert.NoError(t, Validate(cfg))
}

func TestLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".gputweak.yaml")
	writeFile(t, configPath, `
version: 1
host: gpu-box
tool:
  path: /usr/bin/nvidia-settings
  display: ":1"
  timeout: 3s
poll:
  interval: 500ms
history:
  window: 2m
  metrics: [core_temp, fan_speed]
monitor:
  thresholds:
    warning: 65
    critical: 80
output:
  color: never
`)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "gpu-box", cfg.Host)
	assert.True(t, cfg.Remote())
	assert.Equal(t, "/usr/bin/nvidia-settings", cfg.Tool.Path)
	assert.Equal(t, ":1", cfg.Tool.Display)
	assert.Equal(t, 3*time.Second, cfg.Tool.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Poll.Interval)
	assert.Equal(t, 15*time.Second, cfg.Poll.DeviceTimeout, "unset keys keep defaults")
	assert.Equal(t, 2*time.Minute, cfg.History.Window)
	assert.Equal(t, []history.Metric{history.CoreTemp, history.FanSpeed}, cfg.Metrics())
	assert.Equal(t, 65, cfg.Monitor.Thresholds.Warning)
	assert.Equal(t, "never", cfg.Output.Color)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_EnvOverrides(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".gputweak.yaml")
	writeFile(t, configPath, "tool:\n  display: \":0\"\n")

	t.Setenv("GPUTWEAK_TOOL_DISPLAY", ":2")
	t.Setenv("GPUTWEAK_POLL_INTERVAL", "4s")
	t.Setenv("GPUTWEAK_HOST", "lab@gpu-box")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":2", cfg.Tool.Display)
	assert.Equal(t, 4*time.Second, cfg.Poll.Interval)
	assert.Equal(t, "lab@gpu-box", cfg.Host)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/.gputweak.yaml")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "Config file not found")
}

func TestLoadInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".gputweak.yaml")
	writeFile(t, configPath, "tool: [unclosed\n")

	_, err := Load(configPath)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFind(t *testing.T) {
	t.Run("explicit path exists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		writeFile(t, path, "version: 1")

		got, err := Find(path)
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("explicit path not found", func(t *testing.T) {
		_, err := Find("/nonexistent/config.yaml")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	})

	t.Run("current directory", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, ConfigFileName), "version: 1")
		t.Chdir(dir)

		got, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, ConfigFileName), got)
	})

	t.Run("parent directory", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		root := t.TempDir()
		writeFile(t, filepath.Join(root, ConfigFileName), "version: 1")
		nested := filepath.Join(root, "a", "b")
		require.NoError(t, os.MkdirAll(nested, 0755))
		t.Chdir(nested)

		got, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, ConfigFileName), got)
	})

	t.Run("stops at git root", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		root := t.TempDir()
		writeFile(t, filepath.Join(root, ConfigFileName), "version: 1")
		repo := filepath.Join(root, "repo")
		require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0755))
		nested := filepath.Join(repo, "pkg")
		require.NoError(t, os.MkdirAll(nested, 0755))
		t.Chdir(nested)

		got, err := Find("")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("global config", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		writeFile(t, global, "version: 1")
		t.Chdir(t.TempDir())

		got, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, global, got)
	})
}

func TestLoadOrDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("GPUTWEAK_TOOL_TIMEOUT", "9s")

	cfg, path, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, 9*time.Second, cfg.Tool.Timeout, "env overrides apply without a file")
	assert.Equal(t, "nvidia-settings", cfg.Tool.Path)
}

func TestExpandToolPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NV_BIN", "/opt/nvidia/bin")

	assert.Equal(t, "", ExpandToolPath("", ""))
	assert.Equal(t, home, ExpandToolPath("~", ""))
	assert.Equal(t, filepath.Join(home, "bin/nvidia-settings"), ExpandToolPath("~/bin/nvidia-settings", ""))
	assert.Equal(t, "/opt/nvidia/bin/nvidia-settings", ExpandToolPath("$NV_BIN/nvidia-settings", ""))
	assert.Equal(t, "/usr/bin/nvidia-settings", ExpandToolPath("/usr/bin/nvidia-settings", ""))
	assert.Equal(t, "~other/x", ExpandToolPath("~other/x", ""))
	assert.Equal(t, "~/bin/nvidia-settings", ExpandToolPath("~/bin/nvidia-settings", "gpu-box"),
		"remote paths stay for the remote shell")
}
