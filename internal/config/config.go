package config

import (
	"bytes"
	"encoding"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sirkon/pcg/internal/engine"
	"github.com/sirkon/pcg/internal/validity"
)

// DumpFormat selects what a dump is written as.
type DumpFormat int

const (
	_ DumpFormat = iota
	DumpFormatJSON
	DumpFormatSQLite
	DumpFormatBoth
)

func (f *DumpFormat) String() string {
	v, err := f.MarshalText()
	if err != nil {
		return fmt.Sprintf("dump-format-invalid(%d)", *f)
	}

	return string(v)
}

var _ encoding.TextUnmarshaler = (*DumpFormat)(nil)

func (f *DumpFormat) UnmarshalText(b []byte) error {
	switch string(b) {
	case "json":
		*f = DumpFormatJSON
		return nil
	case "sqlite":
		*f = DumpFormatSQLite
		return nil
	case "both":
		*f = DumpFormatBoth
		return nil
	default:
		return fmt.Errorf("unknown dump format %q", b)
	}
}

func (f *DumpFormat) MarshalText() ([]byte, error) {
	switch *f {
	case DumpFormatJSON:
		return []byte("json"), nil
	case DumpFormatSQLite:
		return []byte("sqlite"), nil
	case DumpFormatBoth:
		return []byte("both"), nil
	default:
		return nil, fmt.Errorf("cannot marshal invalid DumpFormat(%d)", *f)
	}
}

// JSON checks if JSON files are to be written.
func (f DumpFormat) JSON() bool {
	return f == DumpFormatJSON || f == DumpFormatBoth
}

// SQLite checks if an SQLite database is to be written.
func (f DumpFormat) SQLite() bool {
	return f == DumpFormatSQLite || f == DumpFormatBoth
}

// LogLevel wraps slog.Level to read it from text.
type LogLevel struct {
	slog.Level
}

var _ encoding.TextUnmarshaler = (*LogLevel)(nil)

func (l *LogLevel) UnmarshalText(b []byte) error {
	return l.Level.UnmarshalText(b)
}

func (l LogLevel) MarshalText() ([]byte, error) {
	return l.Level.MarshalText()
}

// Dump configures analysis dumps.
type Dump struct {
	Dir    string     `yaml:"dir"`
	Format DumpFormat `yaml:"format"`
}

// Config is the analysis configuration.
type Config struct {
	Validity      validity.Mode `yaml:"validity"`
	Recording     bool          `yaml:"recording"`
	MaxIterations int           `yaml:"max_iterations"`
	LogLevel      LogLevel      `yaml:"log_level"`
	Dump          Dump          `yaml:"dump"`
	Diverging     []string      `yaml:"diverging"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Validity:      validity.ModeWarn,
		MaxIterations: engine.DefaultMaxIterations,
		LogLevel:      LogLevel{Level: slog.LevelInfo},
		Dump: Dump{
			Format: DumpFormatJSON,
		},
	}
}

// Parse reads a configuration. Missing fields keep their defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.MaxIterations < 0 {
		return nil, fmt.Errorf("max_iterations must not be negative, got %d", cfg.MaxIterations)
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = engine.DefaultMaxIterations
	}

	return cfg, nil
}

// Load reads a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Engine builds an engine configuration. Defaults go before the configured
// diverging functions.
func (c *Config) Engine(logger *slog.Logger, defaults []string, rec engine.Recorder) engine.Config {
	diverging := append(append([]string(nil), defaults...), c.Diverging...)

	return engine.Config{
		Validity:      c.Validity,
		MaxIterations: c.MaxIterations,
		Recording:     c.Recording && rec != nil,
		Recorder:      rec,
		Diverging:     diverging,
		Logger:        logger,
	}
}
