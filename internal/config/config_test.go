package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/ace128-sensor/internal/ace128"
	"github.com/sweeney/ace128-sensor/internal/gpio"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ace128.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, gpio.DefaultPins, cfg.Pins)
	assert.Equal(t, ace128.FallbackAngle, cfg.FallbackAngle)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
backend: periph
pins: [2, 3, 4, 14, 15, 18, 23, 24]
pull: down
poll: 20ms
debounce: 100ms
heartbeat: 1m
broker: tcp://mqtt.local:1883
fallback_angle: 0
angle_range: centered
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendPeriph, cfg.Backend)
	assert.Equal(t, [ace128.NumPins]int{2, 3, 4, 14, 15, 18, 23, 24}, cfg.Pins)
	assert.Equal(t, "down", cfg.Pull)
	assert.Equal(t, 20*time.Millisecond, cfg.Poll)
	assert.Equal(t, 100*time.Millisecond, cfg.Debounce)
	assert.Equal(t, time.Minute, cfg.Heartbeat)
	assert.Equal(t, "tcp://mqtt.local:1883", cfg.Broker)
	assert.Equal(t, 0.0, cfg.FallbackAngle)
	assert.Equal(t, "centered", cfg.AngleRange)

	// Untouched keys keep defaults
	assert.Equal(t, gpio.DefaultChip, cfg.Chip)
	assert.Equal(t, ":80", cfg.HTTP)
	assert.Equal(t, "ace128-sensor", cfg.ClientID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "pins: [1, 2\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadWrongPinCount(t *testing.T) {
	path := writeConfig(t, "pins: [1, 2, 3]\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, "backend: sysfs\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown backend "sysfs"`)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"duplicate pin", func(c *Config) { c.Pins[7] = c.Pins[0] }, "already used by P1"},
		{"negative pin", func(c *Config) { c.Pins[2] = -1 }, "P3: negative pin"},
		{"bad pull", func(c *Config) { c.Pull = "sideways" }, "unknown pull"},
		{"bad angle range", func(c *Config) { c.AngleRange = "degrees" }, "unknown angle range"},
		{"zero poll", func(c *Config) { c.Poll = 0 }, "poll must be positive"},
		{"negative debounce", func(c *Config) { c.Debounce = -time.Second }, "debounce must not be negative"},
		{"negative heartbeat", func(c *Config) { c.Heartbeat = -time.Second }, "heartbeat must not be negative"},
		{"no broker", func(c *Config) { c.Broker = "" }, "broker is required"},
		{"no chip", func(c *Config) { c.Chip = "" }, "chip is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateNoChipNeededForPeriph(t *testing.T) {
	cfg := Default()
	cfg.Backend = BackendPeriph
	cfg.Chip = ""
	assert.NoError(t, cfg.Validate())
}

func TestDecoderOptions(t *testing.T) {
	cfg := Default()
	cfg.FallbackAngle = 0
	cfg.AngleRange = "centered"

	fake := gpio.NewFakePins([]gpio.Sample{{Code: 0x00}})
	d, err := ace128.New(fake.Pins(), cfg.DecoderOptions()...)
	require.NoError(t, err)

	a, err := d.ReadAngle()
	require.NoError(t, err)
	assert.Equal(t, 0.0, a)
	assert.InDelta(t, ace128.CenteredAngle(0), d.Angle(0), 1e-12)
}
