// Package config loads the daemon configuration from a YAML file.
// Command line flags override file values; see cmd/ace128-sensor.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/ace128-sensor/internal/ace128"
	"github.com/sweeney/ace128-sensor/internal/gpio"
)

// Backend names.
const (
	BackendGPIOCDev = "gpiocdev"
	BackendPeriph   = "periph"
)

// Config is the daemon configuration.
type Config struct {
	Backend string              `yaml:"backend"`
	Chip    string              `yaml:"chip"`
	Pins    [ace128.NumPins]int `yaml:"pins"` // BCM numbers, P1 first
	Pull    string              `yaml:"pull"`

	Poll      time.Duration `yaml:"poll"`
	Debounce  time.Duration `yaml:"debounce"`
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables

	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	HTTP     string `yaml:"http"` // empty disables

	FallbackAngle float64 `yaml:"fallback_angle"`
	AngleRange    string  `yaml:"angle_range"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend:       BackendGPIOCDev,
		Chip:          gpio.DefaultChip,
		Pins:          gpio.DefaultPins,
		Pull:          string(gpio.PullUp),
		Poll:          10 * time.Millisecond,
		Debounce:      50 * time.Millisecond,
		Heartbeat:     15 * time.Minute,
		Broker:        "tcp://192.168.1.200:1883",
		ClientID:      "ace128-sensor",
		HTTP:          ":80",
		FallbackAngle: ace128.FallbackAngle,
		AngleRange:    ace128.RangeZeroToTwoPi.String(),
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks for values the daemon cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendGPIOCDev, BackendPeriph:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.Backend == BackendGPIOCDev && c.Chip == "" {
		errs = append(errs, errors.New("chip is required for the gpiocdev backend"))
	}

	seen := make(map[int]int)
	for i, p := range c.Pins {
		if p < 0 {
			errs = append(errs, fmt.Errorf("P%d: negative pin %d", i+1, p))
		}
		if prev, dup := seen[p]; dup {
			errs = append(errs, fmt.Errorf("P%d: pin %d already used by P%d", i+1, p, prev))
		}
		seen[p] = i + 1
	}

	if _, err := gpio.ParsePull(c.Pull); err != nil {
		errs = append(errs, err)
	}
	if _, err := ace128.ParseAngleRange(c.AngleRange); err != nil {
		errs = append(errs, err)
	}

	if c.Poll <= 0 {
		errs = append(errs, fmt.Errorf("poll must be positive, got %v", c.Poll))
	}
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("debounce must not be negative, got %v", c.Debounce))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("heartbeat must not be negative, got %v", c.Heartbeat))
	}
	if c.Broker == "" {
		errs = append(errs, errors.New("broker is required"))
	}

	return errors.Join(errs...)
}

// DecoderOptions returns the ace128 options for the configured angle policy.
// The config must be valid.
func (c *Config) DecoderOptions() []ace128.Option {
	r, _ := ace128.ParseAngleRange(c.AngleRange)
	return []ace128.Option{
		ace128.WithFallbackAngle(c.FallbackAngle),
		ace128.WithAngleRange(r),
	}
}
