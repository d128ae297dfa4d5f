// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config provides YAML-based configuration loading for tanklink.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	// Log holds logging configuration
	Log LogConfig `mapstructure:"log"`

	// Link configures the host side connection to a tank
	Link LinkConfig `mapstructure:"link"`

	// Device configures the simulated tank served by `tanklink device`
	Device DeviceConfig `mapstructure:"device"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: list of outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// LinkConfig selects and parameterizes the host transport.
type LinkConfig struct {
	// Kind: rfcomm, serial, tcp, ws or loopback
	Kind string `mapstructure:"kind"`
	// Address is the Bluetooth MAC (rfcomm) or host:port (tcp)
	Address string `mapstructure:"address"`
	// Channel is the RFCOMM channel
	Channel int `mapstructure:"channel"`
	// Port is the serial device path
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
	// URL is the WebSocket endpoint
	URL string `mapstructure:"url"`

	DialTimeoutMS  int    `mapstructure:"dial_timeout_ms"`
	QueueCapacity  int    `mapstructure:"queue_capacity"`
	MaxPayload     uint64 `mapstructure:"max_payload"`
	SwapID         bool   `mapstructure:"swap_id"`
	ReconnectDelay int    `mapstructure:"reconnect_delay_ms"`
}

// DeviceConfig configures the simulated tank.
type DeviceConfig struct {
	// Kind: tcp or ws
	Kind string `mapstructure:"kind"`
	// Listen is the listen address (host:port)
	Listen string `mapstructure:"listen"`
	// Path is the WebSocket upgrade path
	Path string `mapstructure:"path"`
	// TickMS is the scheduler tick period
	TickMS  int           `mapstructure:"tick_ms"`
	Autorun AutorunConfig `mapstructure:"autorun"`
}

// AutorunConfig is the program installed on the tank at startup.
type AutorunConfig struct {
	Looping bool           `mapstructure:"looping"`
	Actions []ActionConfig `mapstructure:"actions"`
}

// ActionConfig is one timed autorun step.
//
// Type: move, stop, lights or buzzer. Duration is a Go duration string
// ("1500ms", "2s") or "infinite". Args are the action's argument bytes
// (move: direction, speed; lights: light, level; buzzer: level).
type ActionConfig struct {
	Type     string `mapstructure:"type"`
	Duration string `mapstructure:"duration"`
	Args     []int  `mapstructure:"args"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Outputs:     []string{"stderr"},
			Development: false,
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/tanklink.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Link: LinkConfig{
			Kind:           "tcp",
			Address:        "127.0.0.1:7420",
			Channel:        1,
			Port:           "/dev/ttyUSB0",
			Baud:           115200,
			URL:            "ws://127.0.0.1:7421/tank",
			DialTimeoutMS:  5000,
			QueueCapacity:  64,
			MaxPayload:     512,
			SwapID:         true,
			ReconnectDelay: 1500,
		},
		Device: DeviceConfig{
			Kind:    "tcp",
			Listen:  "127.0.0.1:7420",
			Path:    "/tank",
			TickMS:  10,
			Autorun: DefaultProgram(),
		},
	}
}

// DefaultProgram returns a short looping patrol: forward, turn, pause.
func DefaultProgram() AutorunConfig {
	return AutorunConfig{
		Looping: true,
		Actions: []ActionConfig{
			{Type: "lights", Duration: "0ms", Args: []int{6, 255}},
			{Type: "move", Duration: "2s", Args: []int{3, 200}},
			{Type: "move", Duration: "600ms", Args: []int{2, 180}},
			{Type: "stop", Duration: "400ms"},
		},
	}
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix TANKLINK and `.`/`-` are replaced with `_`.
// Example: TANKLINK_LINK_KIND=rfcomm
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TANKLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("link.kind", cfg.Link.Kind)
	v.SetDefault("link.address", cfg.Link.Address)
	v.SetDefault("link.channel", cfg.Link.Channel)
	v.SetDefault("link.port", cfg.Link.Port)
	v.SetDefault("link.baud", cfg.Link.Baud)
	v.SetDefault("link.url", cfg.Link.URL)
	v.SetDefault("link.dial_timeout_ms", cfg.Link.DialTimeoutMS)
	v.SetDefault("link.queue_capacity", cfg.Link.QueueCapacity)
	v.SetDefault("link.max_payload", cfg.Link.MaxPayload)
	v.SetDefault("link.swap_id", cfg.Link.SwapID)
	v.SetDefault("link.reconnect_delay_ms", cfg.Link.ReconnectDelay)
	v.SetDefault("device.kind", cfg.Device.Kind)
	v.SetDefault("device.listen", cfg.Device.Listen)
	v.SetDefault("device.path", cfg.Device.Path)
	v.SetDefault("device.tick_ms", cfg.Device.TickMS)
	v.SetDefault("device.autorun.looping", cfg.Device.Autorun.Looping)
	v.SetDefault("device.autorun.actions", cfg.Device.Autorun.Actions)

	// Choose config file
	if path == "" {
		if envPath := os.Getenv("TANKLINK_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tanklink")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".tanklink"))
		}
	}

	// Read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// slices from the file replace the default program instead of merging
	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}

	c.Link.Kind = strings.ToLower(strings.TrimSpace(c.Link.Kind))
	switch c.Link.Kind {
	case "rfcomm", "serial", "tcp", "ws", "loopback":
	default:
		return fmt.Errorf("invalid link.kind: %q", c.Link.Kind)
	}
	if c.Link.Channel < 1 || c.Link.Channel > 30 {
		return fmt.Errorf("invalid link.channel: %d (RFCOMM channels are 1-30)", c.Link.Channel)
	}
	if c.Link.QueueCapacity < 1 {
		return fmt.Errorf("invalid link.queue_capacity: %d", c.Link.QueueCapacity)
	}

	c.Device.Kind = strings.ToLower(strings.TrimSpace(c.Device.Kind))
	switch c.Device.Kind {
	case "tcp", "ws":
	default:
		return fmt.Errorf("invalid device.kind: %q", c.Device.Kind)
	}
	if c.Device.TickMS <= 0 {
		c.Device.TickMS = 10
	}
	for i, a := range c.Device.Autorun.Actions {
		for _, arg := range a.Args {
			if arg < 0 || arg > 255 {
				return fmt.Errorf("device.autorun.actions[%d]: argument %d out of byte range", i, arg)
			}
		}
		if len(a.Args) > 16 {
			return fmt.Errorf("device.autorun.actions[%d]: %d arguments (max 16)", i, len(a.Args))
		}
	}
	return nil
}
