// Package config loads tide configuration from the project's tide.toml and
// TIDE_-prefixed environment variables. Environment values override file
// values; both override the built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the configuration file looked up in the project root.
const FileName = "tide.toml"

// envPrefix namespaces tide environment variables.
const envPrefix = "TIDE_"

// Config holds the tunable settings for a project's server sessions.
type Config struct {
	// Command is the analysis server executable. Default: tsserver.
	Command string `toml:"command"`

	// Args are extra command-line arguments for the server.
	Args []string `toml:"args"`

	// Timeout bounds synchronous request waits. Default: 10s.
	Timeout Duration `toml:"timeout"`

	// Verbose enables verbose server-side logging.
	Verbose bool `toml:"verbose"`

	// MaxFrameSize caps a single inbound message body, in bytes. Zero keeps
	// the built-in limit.
	MaxFrameSize int `toml:"max_frame_size"`

	// Env holds additional environment variables for the server process.
	Env map[string]string `toml:"env"`
}

// Duration wraps time.Duration so TOML and env values can be written as
// "5s" or "1m30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Command: "tsserver",
		Timeout: Duration(10 * time.Second),
	}
}

// Load reads the project's configuration: defaults, then tide.toml if it
// exists, then environment overrides. A missing file is not an error.
func Load(projectRoot string) (*Config, error) {
	cfg := Default()

	path := Path(projectRoot)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	} else {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the config file location for a project root.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, FileName)
}

// applyEnv overlays TIDE_-prefixed environment variables onto the config.
func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(envPrefix + "COMMAND"); ok {
		cfg.Command = v
	}
	if v, ok := os.LookupEnv(envPrefix + "ARGS"); ok {
		cfg.Args = splitArgs(v)
	}
	if v, ok := os.LookupEnv(envPrefix + "TIMEOUT"); ok {
		if err := cfg.Timeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", envPrefix, err)
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "MAX_FRAME_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%sMAX_FRAME_SIZE: invalid size %q", envPrefix, v)
		}
		cfg.MaxFrameSize = n
	}
	if v, ok := os.LookupEnv(envPrefix + "VERBOSE"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sVERBOSE: %w", envPrefix, err)
		}
		cfg.Verbose = parsed
	}
	return nil
}

// splitArgs splits a whitespace-separated argument string.
func splitArgs(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	return fields
}
