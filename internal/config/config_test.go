package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/probe"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracefile"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvOutDir, EnvDebug, EnvFormat} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
	require.Empty(t, cfg.OutDir)
	require.Equal(t, tracefile.FormatJSON, cfg.TraceFormat())
	require.Equal(t, probe.FormatNDJSON, cfg.StreamFormat())
	require.Equal(t, 10, cfg.MaxDepth)
	require.Equal(t, 5000, cfg.MaxCount)
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	want := filepath.Join(root, FileName)
	writeFile(t, want, "max_depth = 4\n")
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, ok, err := Find(nested)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestLoadTOML(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), `
out_dir = "traces"
format = "binary"
max_depth = 4
ignore = ["vendor/"]
interpreter = ["bundle", "exec", "ruby", "-rcodetracer_probe"]
probe_format = "msgpack"
`)
	sub := filepath.Join(root, "app")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	cfg, err := Load("", sub)
	require.NoError(t, err)
	require.Equal(t, "traces", cfg.OutDir)
	require.Equal(t, tracefile.FormatBinary, cfg.TraceFormat())
	require.Equal(t, 4, cfg.MaxDepth)
	require.Equal(t, 5000, cfg.MaxCount, "unset keys keep their defaults")
	require.Equal(t, []string{"vendor/"}, cfg.Ignore)
	require.Equal(t, []string{"bundle", "exec", "ruby", "-rcodetracer_probe"}, cfg.Interpreter)
	require.Equal(t, probe.FormatMsgpack, cfg.StreamFormat())
	require.Equal(t, filepath.Join(root, FileName), cfg.Path)
}

func TestLoadTOMLRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	writeFile(t, path, "max_depht = 3\n")

	_, err := LoadFile(path)
	require.ErrorContains(t, err, "unknown keys max_depht")
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "recorder.yml")
	writeFile(t, path, "max_count: 20\ndebug: true\nextension: .rbx\n")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	require.Equal(t, 20, cfg.MaxCount)
	require.True(t, cfg.Debug)
	require.Equal(t, ".rbx", cfg.Extension)
	require.Equal(t, 10, cfg.MaxDepth)
}

func TestLoadYAMLRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recorder.yaml")
	writeFile(t, path, "outdir: x\n")

	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestLoadEmptyYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recorder.yaml")
	writeFile(t, path, "")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 10, cfg.MaxDepth)
}

func TestLoadFileUnsupportedExtension(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "recorder.json"))
	require.ErrorContains(t, err, "unsupported extension")
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "c.toml")
	writeFile(t, path, "out_dir = \"from-file\"\nformat = \"json\"\n")
	t.Setenv(EnvOutDir, "from-env")
	t.Setenv(EnvFormat, "binary")
	t.Setenv(EnvDebug, "1")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.OutDir)
	require.Equal(t, tracefile.FormatBinary, cfg.TraceFormat())
	require.True(t, cfg.Debug)
}

func TestDebugEnvRequiresOne(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDebug, "true")

	cfg := Defaults()
	cfg.ApplyEnv()
	require.False(t, cfg.Debug)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"format", func(c *Config) { c.Format = "xml" }, "config: format"},
		{"probe format", func(c *Config) { c.ProbeFormat = "csv" }, "config: probe_format"},
		{"depth", func(c *Config) { c.MaxDepth = 0 }, "max_depth must be positive"},
		{"count", func(c *Config) { c.MaxCount = -1 }, "max_count must be positive"},
		{"interpreter", func(c *Config) { c.Interpreter = nil }, "interpreter must name a command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}
