package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/trace"
)

// setupTracing builds the diagnostic tracer from the --trace* flags and
// attaches it to the command context. With debug on, a debug-level text
// stream to errOut is added on top. The returned cleanup flushes and closes
// everything.
func setupTracing(cmd *cobra.Command, debug bool, errOut io.Writer) (trace.Tracer, func(), error) {
	pf := cmd.Root().PersistentFlags()

	output, err := pf.GetString("trace")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := pf.GetString("trace-level")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := pf.GetString("trace-mode")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := pf.GetInt("trace-ring-size")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, nil, fmt.Errorf("--trace-level: %w", err)
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, nil, fmt.Errorf("--trace-mode: %w", err)
	}
	if output != "" && level == trace.LevelOff {
		level = trace.LevelPhase
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: output,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	if debug {
		dbg := trace.NewStreamTracer(errOut, trace.LevelDebug, trace.FormatText)
		if tracer.Enabled() {
			tracer = trace.NewMultiTracer(trace.LevelDebug, tracer, dbg)
		} else {
			tracer = dbg
		}
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	cleanup := func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(errOut, "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(errOut, "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}

// dumpRingOnPanic writes the ring buffer of tracer, if any, to w when the
// surrounding function panics, then re-panics.
func dumpRingOnPanic(tracer trace.Tracer, w io.Writer) {
	r := recover()
	if r == nil {
		return
	}
	if ring, ok := trace.Ring(tracer); ok {
		fmt.Fprintf(w, "panic: %v\nlast diagnostic events:\n", r)
		_ = ring.Dump(w, trace.FormatText)
	}
	panic(r)
}
