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

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: debug
database:
  driver: sqlite
  dsn: "file::memory:"
storage:
  type: minio
jwt:
  secret: short
  expire_hours: 2
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, "LS", cfg.Gamification.CertificatePrefix)
	assert.Equal(t, 60, cfg.Gamification.CalendarDays)
	assert.Equal(t, "0 3 * * *", cfg.Jobs.ReconcileCron)
}

func TestLoadConfigRejectsWeakSecretInRelease(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
database:
  driver: postgres
jwt:
  secret: too-short
`)

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Driver: "oracle"}}
	assert.Error(t, cfg.Validate())
}
