package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	wd, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(t.TempDir()))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 500*time.Millisecond, cfg.Serial.StabilizeDelay)
	assert.Equal(t, time.Second, cfg.Link.Timeout)
	assert.Equal(t, 3, cfg.Link.MaxAttempts)
	assert.False(t, cfg.Safety.AllowUnstable)
	assert.Equal(t, 5*time.Second, cfg.Safety.UnstableInterval)
	assert.False(t, cfg.Safety.AllowDigitalWrite)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enable)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
serial:
  port: /dev/ttyUSB3
  stabilizeDelay: 250ms
link:
  timeout: 2s
safety:
  allowUnstable: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB3", cfg.Serial.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Serial.StabilizeDelay)
	assert.Equal(t, 2*time.Second, cfg.Link.Timeout)
	assert.True(t, cfg.Safety.AllowUnstable)
	assert.Equal(t, 115200, cfg.Serial.Baud, "untouched keys keep defaults")
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	wd, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Setenv("PMR171_SERIAL_PORT", "/dev/ttyACM0")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
}
