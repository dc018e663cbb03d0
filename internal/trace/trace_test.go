package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"off", LevelOff, false},
		{"ERROR", LevelError, false},
		{" phase ", LevelPhase, false},
		{"detail", LevelDetail, false},
		{"debug", LevelDebug, false},
		{"loud", LevelOff, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestShouldEmit(t *testing.T) {
	if LevelPhase.ShouldEmit(ScopeEvent) {
		t.Error("phase level emits per-notification events")
	}
	if !LevelDetail.ShouldEmit(ScopeEvent) {
		t.Error("detail level drops per-notification events")
	}
	if LevelDetail.ShouldEmit(ScopeValue) {
		t.Error("detail level emits per-value events")
	}
	if !LevelDebug.ShouldEmit(ScopeValue) {
		t.Error("debug level drops per-value events")
	}
	if LevelOff.ShouldEmit(ScopeSession) {
		t.Error("off level emits")
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)

	Point(tr, ScopeEvent, "call", "Foo#bar")
	Point(tr, ScopeValue, "value", "dropped at detail level")

	out := buf.String()
	if !strings.Contains(out, "• call (Foo#bar)") {
		t.Errorf("unexpected text output: %q", out)
	}
	if strings.Contains(out, "dropped") {
		t.Errorf("value-scope event leaked: %q", out)
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatNDJSON)

	span := Begin(tr, ScopePhase, "serialize", 0)
	span.WithExtra("format", "json").End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}
	var end struct {
		Kind   string            `json:"kind"`
		Name   string            `json:"name"`
		Detail string            `json:"detail"`
		Extra  map[string]string `json:"extra"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &end); err != nil {
		t.Fatalf("invalid NDJSON line %q: %v", lines[1], err)
	}
	if end.Kind != "end" || end.Name != "serialize" || end.Detail != "ok" || end.Extra["format"] != "json" {
		t.Errorf("unexpected end event: %+v", end)
	}
}

func TestRingTracerWraps(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(ring, ScopeEvent, name, "")
	}
	snap := ring.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot len = %d, want 3", len(snap))
	}
	for i, want := range []string{"c", "d", "e"} {
		if snap[i].Name != want {
			t.Errorf("snap[%d] = %q, want %q", i, snap[i].Name, want)
		}
	}

	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatText); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 4 || !strings.HasPrefix(buf.String(), "... 2 earlier events dropped\n") {
		t.Errorf("unexpected dump: %q", buf.String())
	}
	if ring.Dropped() != 2 {
		t.Errorf("Dropped = %d, want 2", ring.Dropped())
	}
}

func TestMultiTracerFanOut(t *testing.T) {
	var buf bytes.Buffer
	stream := NewStreamTracer(&buf, LevelDetail, FormatText)
	ring := NewRingTracer(8, LevelDetail)
	multi := NewMultiTracer(LevelDetail, stream, ring)

	Point(multi, ScopeEvent, "return", "")

	if !strings.Contains(buf.String(), "return") {
		t.Errorf("stream did not receive the event: %q", buf.String())
	}
	if len(ring.Snapshot()) != 1 {
		t.Errorf("ring did not receive the event")
	}
	if got, ok := Ring(multi); !ok || got != ring {
		t.Error("Ring did not find the ring tracer inside the multi tracer")
	}
}

func TestNewOff(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.Enabled() {
		t.Error("off tracer is enabled")
	}
	Point(tr, ScopeSession, "ignored", "")
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Error("empty context did not yield Nop")
	}
	ring := NewRingTracer(4, LevelPhase)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Error("tracer was not propagated")
	}
}

func TestHeartbeatStops(t *testing.T) {
	ring := NewRingTracer(64, LevelPhase)
	hb := StartHeartbeat(ring, time.Millisecond, func() string { return "events=7" })
	deadline := time.Now().Add(2 * time.Second)
	for len(ring.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	hb.Stop()
	hb.Stop()

	snap := ring.Snapshot()
	if len(snap) == 0 || snap[0].Kind != KindHeartbeat {
		t.Fatalf("no heartbeat recorded: %+v", snap)
	}
	if snap[0].Detail != "#1 events=7" {
		t.Errorf("detail = %q", snap[0].Detail)
	}
	if StartHeartbeat(Nop, time.Millisecond, nil) != nil {
		t.Error("disabled tracer started a heartbeat")
	}
}
