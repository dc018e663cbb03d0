package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestGetTrimsAndDefaults(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })

	Version = "  "
	GitCommit = " abc123 "
	BuildDate = "2024-01-15T10:30:00Z\n"

	got := Get()
	want := Info{Version: "dev", GitCommit: "abc123", BuildDate: "2024-01-15T10:30:00Z"}
	if got != want {
		t.Fatalf("Get() = %+v, want %+v", got, want)
	}
}

func TestGetDefaultVersion(t *testing.T) {
	if Get().Version == "" {
		t.Fatal("Version should have a default value")
	}
}

func TestColored(t *testing.T) {
	orig := color.NoColor
	t.Cleanup(func() { color.NoColor = orig })
	color.NoColor = true

	tests := []struct {
		in   string
		want string
	}{
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3", "1.2.3"},
		{"1.0.0-beta.1", "1.0.0-beta.1"},
		{"weird", "weird"},
	}
	for _, tt := range tests {
		if got := Colored(tt.in); got != tt.want {
			t.Errorf("Colored(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	color.NoColor = false
	if got := Colored("1.2.3"); got == "1.2.3" {
		t.Errorf("expected escape codes with color enabled, got %q", got)
	}
}

func BenchmarkGet(b *testing.B) {
	for b.Loop() {
		_ = Get()
	}
}
