package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/trace"
)

// Environment understood by the in-interpreter probe.
const (
	EnvProbeFD     = "CODETRACER_PROBE_FD"
	EnvProbeFormat = "CODETRACER_PROBE_FORMAT"
)

// probeFD is the descriptor of the pipe in the child: first of ExtraFiles.
const probeFD = 3

// DefaultInterpreter is the command the program is run with when none is
// configured. The probe library is loaded with -r.
var DefaultInterpreter = []string{"ruby", "-rcodetracer_probe"}

// LaunchOptions configures Launch.
type LaunchOptions struct {
	Interpreter []string
	Program     string
	Args        []string
	Format      Format
	Dir         string
	Env         []string // appended to os.Environ()
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
}

// Launch runs the program under the interpreter with the probe pipe attached
// and dispatches the stream to d until the child exits and the pipe drains.
// A non-zero exit status is reported in the Outcome, not as an error.
func Launch(ctx context.Context, opts LaunchOptions, d *Dispatcher) (Outcome, error) {
	interp := opts.Interpreter
	if len(interp) == 0 {
		interp = DefaultInterpreter
	}
	if opts.Format == "" {
		opts.Format = FormatNDJSON
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return Outcome{}, fmt.Errorf("probe: pipe: %w", err)
	}

	args := append(append(append([]string{}, interp[1:]...), opts.Program), opts.Args...)
	cmd := exec.CommandContext(ctx, interp[0], args...)
	cmd.Dir = opts.Dir
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	cmd.ExtraFiles = []*os.File{pw}
	cmd.Env = append(os.Environ(), opts.Env...)
	cmd.Env = append(cmd.Env,
		EnvProbeFD+"="+strconv.Itoa(probeFD),
		EnvProbeFormat+"="+string(opts.Format),
	)

	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "launch", 0)
	span.WithExtra("program", opts.Program)
	defer span.End(filepath.Base(interp[0]))

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return Outcome{}, fmt.Errorf("probe: start %s: %w", interp[0], err)
	}
	// the child holds its own copy; EOF arrives once it exits
	pw.Close()

	status := 0
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer pr.Close()
		return d.Run(gctx, NewReader(pr, opts.Format))
	})
	g.Go(func() error {
		err := cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			status = exitErr.ExitCode()
			return nil
		}
		if err != nil {
			return fmt.Errorf("probe: wait: %w", err)
		}
		return nil
	})
	err = g.Wait()
	out := d.Outcome()
	if status != 0 {
		out.Status = status
	}
	return out, err
}

// Replay dispatches a saved probe log. An empty format is inferred from the
// file extension.
func Replay(ctx context.Context, path string, format Format, d *Dispatcher) (Outcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return Outcome{}, fmt.Errorf("probe: open log: %w", err)
	}
	defer f.Close()

	if format == "" {
		format = FormatFromPath(path)
	}
	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "replay", 0)
	span.WithExtra("log", path)
	defer span.End("")

	if err := d.Run(ctx, NewReader(f, format)); err != nil {
		return d.Outcome(), err
	}
	return d.Outcome(), nil
}

// FormatFromPath picks msgpack for .msgpack/.mpk files and NDJSON otherwise.
func FormatFromPath(path string) Format {
	switch filepath.Ext(path) {
	case ".msgpack", ".mpk":
		return FormatMsgpack
	default:
		return FormatNDJSON
	}
}
