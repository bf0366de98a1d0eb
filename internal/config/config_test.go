package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndyXFuture/bilix-meta/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bilix.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Download.VideoConcurrency)
	assert.Equal(t, 10, cfg.Download.PartConcurrency)
	assert.Equal(t, 5, cfg.Download.StreamRetry)
	assert.True(t, cfg.Download.Hierarchy)
	assert.Equal(t, "ffmpeg", cfg.Tools.FFmpeg)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[download]
root = "/media/bilibili"
video_concurrency = 5
speed_limit = 1048576.0

[ledger]
path = "/var/lib/bilix/ledger.db"
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/media/bilibili", cfg.Download.Root)
	assert.Equal(t, 5, cfg.Download.VideoConcurrency)
	assert.Equal(t, 1048576.0, cfg.Download.SpeedLimit)
	assert.Equal(t, "/var/lib/bilix/ledger.db", cfg.Ledger.Path)
	// untouched keys keep their defaults
	assert.Equal(t, 10, cfg.Download.PartConcurrency)
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("BILIX_TEST_SESSDATA", "secret-cookie")
	path := writeConfig(t, `
[auth]
sess_data = "${BILIX_TEST_SESSDATA}"
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-cookie", cfg.Auth.SessData)
}

func TestLoad_MissingEnvVar(t *testing.T) {
	path := writeConfig(t, `
[auth]
sess_data = "${BILIX_TEST_DEFINITELY_UNSET}"
`)
	_, err := config.Load(path)
	require.Error(t, err)

	var cerr *config.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Missing, "BILIX_TEST_DEFINITELY_UNSET")
}

func TestLoad_ValidationErrors(t *testing.T) {
	path := writeConfig(t, `
log_level = "chatty"

[download]
video_concurrency = 0
speed_limit = -1.0
`)
	_, err := config.Load(path)
	require.Error(t, err)

	var cerr *config.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Len(t, cerr.Errors, 3)
}

func TestValidate_Defaults(t *testing.T) {
	assert.Empty(t, config.Default().Validate())
}

func TestConfigError_Message(t *testing.T) {
	err := &config.ConfigError{
		Path:    "bilix.toml",
		Missing: []string{"SESSDATA"},
		Errors:  []string{"download.video_concurrency must be at least 1"},
	}
	msg := err.Error()
	assert.Contains(t, msg, "bilix.toml")
	assert.Contains(t, msg, "SESSDATA")
	assert.Contains(t, msg, "video_concurrency")
}
