package observ

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fakeClock(step time.Duration) func() time.Time {
	at := time.Unix(0, 0)
	return func() time.Time {
		at = at.Add(step)
		return at
	}
}

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	tm.now = fakeClock(2 * time.Millisecond)

	if err := tm.Measure("record", func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("disk full")
	if err := tm.Measure("serialize", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Measure returned %v", err)
	}

	rep := tm.Report()
	if len(rep.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(rep.Phases))
	}
	if rep.Phases[0].DurationMS != 2 || rep.Phases[1].DurationMS != 2 {
		t.Fatalf("durations = %+v", rep.Phases)
	}
	if rep.TotalMS != 4 {
		t.Fatalf("total = %v, want 4", rep.TotalMS)
	}
	if rep.Phases[1].Note != "error: disk full" {
		t.Fatalf("note = %q", rep.Phases[1].Note)
	}

	sum := tm.Summary()
	for _, want := range []string{"timings:", "record", "// error: disk full", "total"} {
		if !strings.Contains(sum, want) {
			t.Errorf("summary missing %q:\n%s", want, sum)
		}
	}
}

func TestTimerIgnoresUnknownIndex(t *testing.T) {
	tm := NewTimer()
	tm.End(3, "x")
	if rep := tm.Report(); len(rep.Phases) != 0 || rep.TotalMS != 0 {
		t.Fatalf("report = %+v", rep)
	}
}
