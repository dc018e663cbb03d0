// Package tracefile writes and reads the trace artifacts of a recording:
// the event log (trace.json or trace.bin), trace_metadata.json and
// trace_paths.json.
package tracefile

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/trace"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracelog"
)

// Artifact file names.
const (
	TraceJSON    = "trace.json"
	TraceBinary  = "trace.bin"
	MetadataFile = "trace_metadata.json"
	PathsFile    = "trace_paths.json"
)

// Format selects the encoding of the event log.
type Format string

const (
	FormatJSON   Format = "json"
	FormatBinary Format = "binary"
)

// ParseFormat parses a trace format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "binary", "bin", "msgpack":
		return FormatBinary, nil
	default:
		return "", fmt.Errorf("tracefile: unknown format %q (expected json|binary)", s)
	}
}

// FileName returns the event log file name for f.
func (f Format) FileName() string {
	if f == FormatBinary {
		return TraceBinary
	}
	return TraceJSON
}

// Metadata describes the recorded run.
type Metadata struct {
	Program string   `json:"program"`
	Args    []string `json:"args"`
	Workdir string   `json:"workdir"`
}

// Options configures Write.
type Options struct {
	Dir      string
	Format   Format
	Program  string
	Args     []string
	Progress Sink
}

// Write serializes rec into opts.Dir, creating it if needed. The artifacts
// are written concurrently, each through a temporary file renamed into
// place. The metadata workdir is the current directory at write time.
func Write(ctx context.Context, rec *tracelog.Record, opts Options) error {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	sink := opts.Progress
	if sink == nil {
		sink = nopSink{}
	}

	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "serialize", 0)
	defer span.End(opts.Dir)

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return fmt.Errorf("tracefile: create %s: %w", opts.Dir, err)
	}
	workdir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("tracefile: workdir: %w", err)
	}
	meta := Metadata{Program: opts.Program, Args: opts.Args, Workdir: workdir}
	if meta.Args == nil {
		meta.Args = []string{}
	}

	events := rec.Events()
	paths := rec.Paths()
	artifacts := []struct {
		name   string
		encode func(io.Writer) error
	}{
		{opts.Format.FileName(), func(w io.Writer) error { return encodeEvents(w, events, opts.Format) }},
		{MetadataFile, func(w io.Writer) error { return encodePretty(w, meta) }},
		{PathsFile, func(w io.Writer) error { return encodePretty(w, paths) }},
	}

	for _, a := range artifacts {
		sink.OnEvent(Event{File: a.name, Status: StatusQueued})
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range artifacts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			sink.OnEvent(Event{File: a.name, Status: StatusWorking})
			n, err := writeAtomic(filepath.Join(opts.Dir, a.name), a.encode)
			if err != nil {
				sink.OnEvent(Event{File: a.name, Status: StatusError, Err: err, Elapsed: time.Since(start)})
				return fmt.Errorf("tracefile: write %s: %w", a.name, err)
			}
			sink.OnEvent(Event{File: a.name, Status: StatusDone, Bytes: n, Elapsed: time.Since(start)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		sink.OnEvent(Event{Status: StatusError, Err: err})
		return err
	}
	sink.OnEvent(Event{Status: StatusDone})
	return nil
}

func encodeEvents(w io.Writer, events tracelog.Events, format Format) error {
	if format == FormatBinary {
		return msgpack.NewEncoder(w).Encode(events)
	}
	return encodePretty(w, events)
}

func encodePretty(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writeAtomic encodes into a temp file next to path and renames it over path.
func writeAtomic(path string, encode func(io.Writer) error) (int64, error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return 0, err
	}
	tmp := f.Name()
	ok := false
	defer func() {
		if !ok {
			f.Close()
			os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriter(f)
	cw := &countingWriter{w: bw}
	if err := encode(cw); err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	if err := f.Chmod(0o644); err != nil {
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, err
	}
	ok = true
	return cw.n, nil
}
