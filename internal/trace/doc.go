// Package trace is the recorder's diagnostic channel.
//
// It is unrelated to the execution trace the recorder produces: events here
// describe what the recorder itself is doing (launching the program, handling
// notifications, writing artifacts) and are meant for debugging the recorder.
//
// Enable it with command-line flags:
//
//	codetracer-ruby-recorder --trace=- --trace-level=detail record app.rb
//
// or with CODETRACER_RUBY_RECORDER_DEBUG=1, which streams debug-level events
// to stderr.
//
// # Tracers
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to a file or stderr (text or NDJSON)
//   - RingTracer: circular buffer, dumped when the recorder panics
//   - MultiTracer: fan-out to several tracers
//
// # Levels and scopes
//
// LevelPhase shows ScopeSession and ScopePhase events, LevelDetail adds
// ScopeEvent (one per handled notification), LevelDebug adds ScopeValue.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePhase, "serialize", 0)
//	defer span.End("")
package trace
