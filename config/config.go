// Package config loads niftool configuration from YAML.
//
// A configuration file names the game data directory and the archives
// searched when a file is not present loose under it:
//
//	game_dir: /games/skyrim/Data
//	archives:
//	  - /games/skyrim/Data/meshes.npak
//	  - https://mirror.example/textures.npak
//	log_level: debug
//	max_file_size: 64MiB
//	retry:
//	  initial: 50ms
//	  max: 2s
//
// Relative archive paths are resolved against game_dir. Archives given as
// http or https URLs are read with range requests.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a configuration value is out of range.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the niftool configuration.
type Config struct {
	GameDir     string   `yaml:"game_dir"`
	Archives    []string `yaml:"archives,omitempty"`
	LogLevel    string   `yaml:"log_level,omitempty"`
	MaxFileSize ByteSize `yaml:"max_file_size,omitempty"`
	Retry       Retry    `yaml:"retry,omitempty"`
}

// Retry is the backoff used while a loose file is locked by another process.
type Retry struct {
	Initial time.Duration `yaml:"initial,omitempty"`
	Max     time.Duration `yaml:"max,omitempty"`
}

// ByteSize is a byte count written either as an integer or as a
// human-readable size such as "64MiB".
type ByteSize uint64

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("%w: max_file_size %q: %v", ErrInvalid, s, err)
	}
	*b = ByteSize(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (b ByteSize) MarshalYAML() (any, error) {
	return humanize.IBytes(uint64(b)), nil
}

// String returns the size in IEC units.
func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		GameDir:     ".",
		LogLevel:    "info",
		MaxFileSize: 256 << 20,
		Retry: Retry{
			Initial: 50 * time.Millisecond,
			Max:     2 * time.Second,
		},
	}
}

// LoadFile reads the configuration at path over the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.GameDir == "" {
		return fmt.Errorf("%w: game_dir is empty", ErrInvalid)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Retry.Initial < 0 || c.Retry.Max < 0 {
		return fmt.Errorf("%w: negative retry interval", ErrInvalid)
	}
	if c.Retry.Max > 0 && c.Retry.Initial > c.Retry.Max {
		return fmt.Errorf("%w: retry.initial %s exceeds retry.max %s", ErrInvalid, c.Retry.Initial, c.Retry.Max)
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return level, nil
}

// ArchivePaths returns the archive paths with relative entries joined to
// GameDir. URLs are returned unchanged.
func (c *Config) ArchivePaths() []string {
	paths := make([]string, 0, len(c.Archives))
	for _, p := range c.Archives {
		if !filepath.IsAbs(p) && !strings.Contains(p, "://") {
			p = filepath.Join(c.GameDir, p)
		}
		paths = append(paths, p)
	}
	return paths
}

// NewBackOff returns a factory for the lock-retry policy. The policy has no
// elapsed-time limit.
func (r Retry) NewBackOff() func() backoff.BackOff {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		if r.Initial > 0 {
			b.InitialInterval = r.Initial
		}
		if r.Max > 0 {
			b.MaxInterval = r.Max
		}
		b.MaxElapsedTime = 0
		b.Reset()
		return b
	}
}
