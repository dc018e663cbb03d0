// Package recorder turns execution notifications into a trace event log.
//
// A Tracer subscribes to a probe.Source and registers with a capture
// coordinator. Every handler runs inside a suspension bracket: the channels
// that were enabled are disabled for the duration of the handler and
// restored afterwards, so work done while recording is never recorded.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/capture"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/probe"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/snapshot"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/source"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/trace"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracefile"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracelog"
)

// State is the lifecycle state of a Tracer.
type State uint8

const (
	StateInactive State = iota
	StateActive
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrSessionStopped is returned when a stopped session is activated again.
var ErrSessionStopped = errors.New("recorder: session stopped")

// Options configures a Tracer. Zero values take the defaults.
type Options struct {
	MaxDepth  int
	MaxCount  int
	Extension string
	// Ignore adds path substrings to the default ignore list.
	Ignore []string
	// Debug reports calls, returns and counters to Diagnostics.
	Debug       bool
	Diagnostics trace.Tracer
	// Coordinator receives the tracer as an output client on Start.
	// Defaults to capture.Default.
	Coordinator *capture.Coordinator
}

// Tracer is one recording session.
type Tracer struct {
	mu      sync.Mutex
	sub     probe.Subscription
	rec     *tracelog.Record
	enc     *snapshot.Encoder
	filter  *source.PathFilter
	coord   *capture.Coordinator
	state   State
	tracing bool
	debug   bool
	diag    trace.Tracer

	// goroutine currently inside a handler; RecordEvent from it is dropped
	owner atomic.Uint64
}

// New subscribes a fresh session to src. The session starts inactive.
func New(src probe.Source, opts Options) *Tracer {
	diag := opts.Diagnostics
	if diag == nil {
		diag = trace.Nop
	}
	coord := opts.Coordinator
	if coord == nil {
		coord = capture.Default
	}
	filter := source.NewPathFilter()
	if opts.Extension != "" {
		filter.Extension = opts.Extension
	}
	for _, p := range opts.Ignore {
		filter.Add(p)
	}

	rec := tracelog.NewRecord()
	if opts.Debug {
		rec.SetDiagnostics(diag)
	}
	t := &Tracer{
		rec:    rec,
		filter: filter,
		coord:  coord,
		debug:  opts.Debug,
		diag:   diag,
	}
	encDiag := trace.Nop
	if opts.Debug {
		encDiag = diag
	}
	t.enc = snapshot.NewEncoder(rec, snapshot.Config{
		MaxDepth:    opts.MaxDepth,
		MaxCount:    opts.MaxCount,
		Diagnostics: encDiag,
	})
	t.sub = src.Subscribe(t)
	return t
}

// Record returns the session's event log. Callers must not use it while
// the session is active.
func (t *Tracer) Record() *tracelog.Record { return t.rec }

// State returns the lifecycle state.
func (t *Tracer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Tracing reports whether the session currently accepts output events.
func (t *Tracer) Tracing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracing
}

// Progress summarizes the record so far for heartbeat events.
func (t *Tracer) Progress() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("events=%d steps=%d", t.rec.Len(), t.rec.Steps())
}

// Ignore excludes paths containing substr from call, return and line recording.
func (t *Tracer) Ignore(substr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filter.Add(substr)
}

// Activate enables the call, return and raise channels, then line last so
// the activation itself produces no line event.
func (t *Tracer) Activate() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case StateStopped:
		return ErrSessionStopped
	case StateActive:
		return nil
	}
	t.sub.Enable(probe.ChannelCall)
	t.sub.Enable(probe.ChannelReturn)
	t.sub.Enable(probe.ChannelRaise)
	t.tracing = true
	t.sub.Enable(probe.ChannelLine)
	t.state = StateActive
	return nil
}

// Deactivate disables line first, then the remaining channels.
func (t *Tracer) Deactivate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deactivate()
}

func (t *Tracer) deactivate() {
	t.sub.Disable(probe.ChannelLine)
	t.sub.Disable(probe.ChannelCall)
	t.sub.Disable(probe.ChannelReturn)
	t.sub.Disable(probe.ChannelRaise)
	t.tracing = false
	if t.state == StateActive {
		t.state = StateInactive
	}
}

// Start registers the session for output capture and activates it.
func (t *Tracer) Start() error {
	if t.State() == StateStopped {
		return ErrSessionStopped
	}
	t.coord.Register(t)
	if err := t.Activate(); err != nil {
		t.coord.Unregister(t)
		return err
	}
	return nil
}

// Stop deactivates the session for good and releases the output capture.
// The record stays available for Flush.
func (t *Tracer) Stop() {
	t.mu.Lock()
	if t.state == StateStopped {
		t.mu.Unlock()
		return
	}
	t.deactivate()
	t.state = StateStopped
	t.sub.Close()
	if t.debug {
		paths, funcs, vars, types := t.rec.Counts()
		trace.Pointf(t.diag, trace.ScopeSession, "session stopped",
			"events=%d steps=%d paths=%d functions=%d variables=%d types=%d",
			t.rec.Len(), t.rec.Steps(), paths, funcs, vars, types)
	}
	t.mu.Unlock()
	t.coord.Unregister(t)
}

// Trace runs fn with the session started and always stops it afterwards.
func (t *Tracer) Trace(fn func()) error {
	if err := t.Start(); err != nil {
		return err
	}
	defer t.Stop()
	fn()
	return nil
}

// Flush serializes the record with tracefile.Write.
func (t *Tracer) Flush(ctx context.Context, opts tracefile.Options) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := tracefile.Write(ctx, t.rec, opts); err != nil {
		return fmt.Errorf("recorder: flush: %w", err)
	}
	return nil
}

// RecordTopLevel registers the synthetic <top-level> call at ("", 1).
// It is meant to run before the first Activate.
func (t *Tracer) RecordTopLevel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rec.RegisterCall("", 1, tracelog.TopLevelName, nil)
}
