// Package config loads recorder settings from codetracer.toml (or an
// explicit TOML/YAML file) and the CODETRACER_RUBY_RECORDER_* environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/probe"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/snapshot"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/source"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracefile"
)

// FileName is the project config file looked up from the working directory.
const FileName = "codetracer.toml"

// Environment overrides.
const (
	EnvOutDir = "CODETRACER_RUBY_RECORDER_OUT_DIR"
	EnvDebug  = "CODETRACER_RUBY_RECORDER_DEBUG"
	EnvFormat = "CODETRACER_RUBY_RECORDER_FORMAT"
)

// Config holds recorder settings.
type Config struct {
	OutDir      string   `toml:"out_dir" yaml:"out_dir"`
	Format      string   `toml:"format" yaml:"format"`
	MaxDepth    int      `toml:"max_depth" yaml:"max_depth"`
	MaxCount    int      `toml:"max_count" yaml:"max_count"`
	Extension   string   `toml:"extension" yaml:"extension"`
	Ignore      []string `toml:"ignore" yaml:"ignore"`
	Interpreter []string `toml:"interpreter" yaml:"interpreter"`
	ProbeFormat string   `toml:"probe_format" yaml:"probe_format"`
	Debug       bool     `toml:"debug" yaml:"debug"`

	// Path is the file the settings were read from, empty for defaults.
	Path string `toml:"-" yaml:"-"`
}

// Defaults returns the settings used when no file or override is present.
// OutDir stays empty so callers can tell "unset" from an explicit ".".
func Defaults() Config {
	return Config{
		Format:      string(tracefile.FormatJSON),
		MaxDepth:    snapshot.DefaultMaxDepth,
		MaxCount:    snapshot.DefaultMaxCount,
		Extension:   source.DefaultExtension,
		Interpreter: slices.Clone(probe.DefaultInterpreter),
		ProbeFormat: string(probe.FormatNDJSON),
	}
}

// Find walks up from startDir looking for codetracer.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("config: resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("config: stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads explicit when set, otherwise the nearest codetracer.toml above
// startDir, then applies environment overrides and validates the result.
// A missing project file is not an error.
func Load(explicit, startDir string) (Config, error) {
	cfg := Defaults()
	path := explicit
	if path == "" {
		found, ok, err := Find(startDir)
		if err != nil {
			return Config{}, err
		}
		if ok {
			path = found
		}
	}
	if path != "" {
		var err error
		cfg, err = LoadFile(path)
		if err != nil {
			return Config{}, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile decodes a .toml, .yaml or .yml file over the defaults. Unknown
// keys are rejected.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: failed to parse TOML: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Config{}, fmt.Errorf("config: %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("config: %s: failed to parse YAML: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("config: %s: unsupported extension (expected .toml, .yaml or .yml)", path)
	}
	cfg.Path = path
	return cfg, nil
}

// ApplyEnv overrides settings from CODETRACER_RUBY_RECORDER_* variables.
func (c *Config) ApplyEnv() {
	c.OutDir = getenv(EnvOutDir, c.OutDir)
	c.Format = getenv(EnvFormat, c.Format)
	if os.Getenv(EnvDebug) == "1" {
		c.Debug = true
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := tracefile.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("config: format: %w", err)
	}
	if _, err := probe.ParseFormat(c.ProbeFormat); err != nil {
		return fmt.Errorf("config: probe_format: %w", err)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("config: max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.MaxCount < 1 {
		return fmt.Errorf("config: max_count must be positive, got %d", c.MaxCount)
	}
	if len(c.Interpreter) == 0 || strings.TrimSpace(c.Interpreter[0]) == "" {
		return errors.New("config: interpreter must name a command")
	}
	return nil
}

// TraceFormat returns the parsed artifact format.
func (c *Config) TraceFormat() tracefile.Format {
	f, err := tracefile.ParseFormat(c.Format)
	if err != nil {
		return tracefile.FormatJSON
	}
	return f
}

// StreamFormat returns the parsed probe stream format.
func (c *Config) StreamFormat() probe.Format {
	f, err := probe.ParseFormat(c.ProbeFormat)
	if err != nil {
		return probe.FormatNDJSON
	}
	return f
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
