package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
storage:
  type: minio
jwt:
  secret: s
  expire_hours: 2
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 30*time.Second, cfg.Scoreboard.RefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.Scoreboard.FetchTimeout)
	assert.Equal(t, "scoreboard_changes", cfg.Scoreboard.ChangeChannel)
	assert.Equal(t, "Live", cfg.Contest.InitialStatus)
	assert.Equal(t, 30*time.Second, cfg.Scorer.Timeout)
	assert.False(t, cfg.Auth.AllowAdminRegistration)
}

func TestLoadConfigParsesDurations(t *testing.T) {
	dir := writeConfig(t, `
storage:
  type: minio
scoreboard:
  refresh_interval: 5s
  fetch_timeout: 1500ms
contest:
  initial_status: Not Started
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Scoreboard.RefreshInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.Scoreboard.FetchTimeout)
	assert.Equal(t, "Not Started", cfg.Contest.InitialStatus)
}

func TestLoadConfigRejectsShortSecretInRelease(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
storage:
  type: minio
jwt:
  secret: short
`)

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret is too short")
}

func TestLoadConfigRejectsUnknownContestStatus(t *testing.T) {
	dir := writeConfig(t, `
storage:
  type: minio
contest:
  initial_status: Paused
`)

	_, err := LoadConfig(dir)
	require.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
}
