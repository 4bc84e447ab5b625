package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vals map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vals[k]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
	assert.NoError(t, s.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pacer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: redis
  redis:
    addr: redis:6379
    lock: true
    lock_ttl: 3s
actuator:
  driver: http
  url: http://device:9000
  timeout: 2s
server:
  port: 9090
watch: true
`), 0644))

	s, err := Load(path, env(map[string]string{
		"PACER_SERVER_PORT":         "7070",
		"PACER_LOG_LEVEL":           "debug",
		"PACER_METRICS_ENABLED":     "true",
		"PACER_ENCRYPTION_FALLBACK": "a,b",
	}))
	require.NoError(t, err)

	assert.Equal(t, "redis", s.Storage.Driver)
	assert.Equal(t, "redis:6379", s.Storage.Redis.Addr)
	assert.Equal(t, "pacer:", s.Storage.Redis.Prefix, "defaults survive partial sections")
	assert.True(t, s.Storage.Redis.Lock)
	assert.Equal(t, 3*time.Second, s.Storage.Redis.LockTTL)
	assert.Equal(t, "http://device:9000", s.Actuator.URL)
	assert.Equal(t, 2*time.Second, s.Actuator.Timeout)
	assert.Equal(t, 7070, s.Server.Port)
	assert.Equal(t, "debug", s.Log.Level)
	assert.True(t, s.Metrics.Enabled)
	assert.True(t, s.Watch)
	assert.Equal(t, []string{"a", "b"}, s.Storage.FallbackKeys)
	assert.NoError(t, s.Validate())
}

func TestLoad_UnknownKeyInFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pacer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  drvier: redis\n"), 0644))

	_, err := Load(path, env(nil))
	assert.ErrorContains(t, err, "drvier")
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), env(nil))
	assert.Error(t, err)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("", env(map[string]string{"PACER_SERVER_PORT": "eighty"}))
	assert.ErrorContains(t, err, "invalid environment")
}

func TestValidate(t *testing.T) {
	s := Default()
	s.Storage.Driver = "floppy"
	s.Actuator.Driver = "http"
	s.Server.Port = 70000

	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.driver")
	assert.Contains(t, err.Error(), "actuator.url")
	assert.Contains(t, err.Error(), "server.port")

	s = Default()
	s.Actuator.Driver = "exec"
	assert.ErrorContains(t, s.Validate(), "actuator.command_file")
}
