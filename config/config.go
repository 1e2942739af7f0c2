// Package config loads session configuration files. Flags override
// anything set here; the file exists so Verilator artifact paths and
// timeouts don't have to be repeated on every invocation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from strings like "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Verilator holds the three externally produced simulator artifacts.
type Verilator struct {
	Simulator string `yaml:"simulator"`
	BootROM   string `yaml:"boot_rom"`
	OTPImage  string `yaml:"otp_image"`
}

// Config is the on-disk session configuration.
type Config struct {
	// Backend selects the backend kind: virt or verilator.
	Backend string `yaml:"backend"`
	// ClockHz is the virt emulator's modeled core frequency.
	ClockHz uint64 `yaml:"clock_hz"`

	Verilator Verilator `yaml:"verilator"`

	// StartupTimeout bounds the wait for the endpoint announcement.
	StartupTimeout Duration `yaml:"startup_timeout"`
	// ResponseTimeout bounds each wait for a device response.
	ResponseTimeout Duration `yaml:"response_timeout"`
	// GracePeriod bounds graceful backend shutdown before a kill.
	GracePeriod Duration `yaml:"grace_period"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{Backend: "virt"}
}

// Load reads and validates a configuration file.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.Backend != "virt" && cfg.Backend != "verilator" {
		return Config{}, fmt.Errorf("config: unknown backend %q", cfg.Backend)
	}
	return cfg, nil
}
