package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracefile"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracelog"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"trace.json", 20, "trace.json"},
		{"trace_metadata.json", 10, "trace_m..."},
		{"abcdef", 3, "abc"},
		{"abcdefgh", 4, "a..."},
		{"日本語ファイル.rb", 8, "日本..."},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:       "0 B",
		1023:    "1023 B",
		1024:    "1.0 KiB",
		1536:    "1.5 KiB",
		5 << 20: "5.0 MiB",
	}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestProgressModelTracksArtifacts(t *testing.T) {
	files := []string{tracefile.TraceJSON, tracefile.MetadataFile}
	m := NewProgressModel("writing trace", files, nil).(*writeView)

	m.Update(artifactMsg{File: tracefile.TraceJSON, Status: tracefile.StatusWorking})
	if got := m.percent(); got != 0.25 {
		t.Fatalf("percent = %v, want 0.25", got)
	}
	m.Update(artifactMsg{File: tracefile.TraceJSON, Status: tracefile.StatusDone, Bytes: 2048})
	m.Update(artifactMsg{File: tracefile.MetadataFile, Status: tracefile.StatusDone, Bytes: 10})
	m.Update(artifactMsg{File: "unknown.json", Status: tracefile.StatusDone})
	if got := m.percent(); got != 1 {
		t.Fatalf("percent = %v, want 1", got)
	}

	_, cmd := m.Update(closedMsg{})
	if cmd == nil {
		t.Fatal("done should quit")
	}
	view := m.View()
	for _, want := range []string{"done: writing trace", "2.0 KiB", "10 B", tracefile.MetadataFile} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRenderReport(t *testing.T) {
	tr := &tracefile.Trace{
		Dir:      "out",
		Format:   tracefile.FormatJSON,
		Metadata: tracefile.Metadata{Program: "add.rb", Args: []string{}},
	}
	rep := &tracefile.Report{Events: 12, Paths: 1, Calls: 2}
	out := RenderReport(tr, rep, 80)
	for _, want := range []string{"out (json)", "program: add.rb", "events     12", "ok:"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	for i := range maxProblems + 2 {
		rep.Problems = append(rep.Problems, tracefile.Problem{Index: i, Kind: tracelog.EventKindStep, Detail: "path_id 9 out of range [0, 1)"})
	}
	out = RenderReport(tr, rep, 80)
	if !strings.Contains(out, "22 problem(s)") || !strings.Contains(out, "... 2 more") {
		t.Errorf("unexpected problem listing:\n%s", out)
	}
}
