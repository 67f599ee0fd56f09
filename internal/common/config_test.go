package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 8085, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, "http://localhost:8085", config.Server.BaseURL)
	assert.Equal(t, "applyforge", config.Queue.QueueName)
	assert.Equal(t, 2, config.Queue.Concurrency)
	assert.Equal(t, 3, config.Queue.MaxReceive)
	assert.Equal(t, 200, config.Generators.QRWidth)
	assert.True(t, config.Generators.ValidatePDF)
	assert.True(t, config.Render.Enabled)
	assert.True(t, config.Scheduler.Enabled)
	assert.Empty(t, config.Webhook.URL, "notifications are disabled until a URL is configured")
	assert.Equal(t, "info", config.Logging.Level)
	assert.False(t, config.IsProduction())
}

func TestLoadFromFiles_LaterFilesOverrideEarlier(t *testing.T) {
	base := writeConfigFile(t, "base.toml", `
environment = "production"

[server]
port = 9000

[queue]
concurrency = 5
`)
	local := writeConfigFile(t, "local.toml", `
[server]
port = 9001
`)

	config, err := LoadFromFiles(base, local)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.True(t, config.IsProduction())
	assert.Equal(t, 9001, config.Server.Port, "the later file wins")
	assert.Equal(t, 5, config.Queue.Concurrency, "values only set in the earlier file survive")
	assert.Equal(t, "localhost", config.Server.Host, "defaults survive when no file sets them")
}

func TestLoadFromFiles_SkipsEmptyPaths(t *testing.T) {
	config, err := LoadFromFiles("", "")
	require.NoError(t, err)
	assert.Equal(t, 8085, config.Server.Port)
}

func TestLoadFromFiles_MissingFileFails(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadFromFiles_InvalidTOMLFails(t *testing.T) {
	bad := writeConfigFile(t, "bad.toml", "[server\nport = nope")
	_, err := LoadFromFiles(bad)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APPLYFORGE_ENV", "production")
	t.Setenv("APPLYFORGE_SERVER_PORT", "7070")
	t.Setenv("APPLYFORGE_SERVER_HOST", "0.0.0.0")
	t.Setenv("APPLYFORGE_BASE_URL", "https://apply.example.com")
	t.Setenv("APPLYFORGE_QUEUE_CONCURRENCY", "8")
	t.Setenv("APPLYFORGE_WEBHOOK_URL", "https://hooks.example.com/offers")
	t.Setenv("APPLYFORGE_LOG_LEVEL", "debug")
	t.Setenv("APPLYFORGE_LOG_OUTPUT", "stdout, file")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, "https://apply.example.com", config.Server.BaseURL)
	assert.Equal(t, 8, config.Queue.Concurrency)
	assert.Equal(t, "https://hooks.example.com/offers", config.Webhook.URL)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, []string{"stdout", "file"}, config.Logging.Output)
}

func TestEnvOverrides_InvalidNumbersIgnored(t *testing.T) {
	t.Setenv("APPLYFORGE_SERVER_PORT", "not-a-port")
	t.Setenv("APPLYFORGE_QUEUE_CONCURRENCY", "many")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 8085, config.Server.Port)
	assert.Equal(t, 2, config.Queue.Concurrency)
}

func TestEnvOverrides_TakePriorityOverFiles(t *testing.T) {
	file := writeConfigFile(t, "config.toml", `
[server]
port = 9000
`)
	t.Setenv("APPLYFORGE_SERVER_PORT", "9100")

	config, err := LoadFromFiles(file)
	require.NoError(t, err)
	assert.Equal(t, 9100, config.Server.Port)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 8085, config.Server.Port, "zero values leave config untouched")
	assert.Equal(t, "localhost", config.Server.Host)

	ApplyFlagOverrides(config, 9999, "127.0.0.1")
	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
}

func TestParseDurationOr(t *testing.T) {
	assert.Equal(t, 5*time.Minute, ParseDurationOr("", 5*time.Minute))
	assert.Equal(t, 5*time.Minute, ParseDurationOr("garbage", 5*time.Minute))
	assert.Equal(t, 30*time.Second, ParseDurationOr("30s", 5*time.Minute))
}
