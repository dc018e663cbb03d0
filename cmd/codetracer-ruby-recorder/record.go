package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/capture"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/config"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/observ"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/probe"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/recorder"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/trace"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracefile"
)

const recordUsage = "Usage: codetracer-ruby-recorder record [--out-dir DIR] [--format json|binary] <program> [args...]"

var (
	recordOutDir      string
	recordFormat      string
	recordProbeLog    string
	recordProbeFormat string
	recordInterpreter []string
	recordMaxDepth    int
	recordMaxCount    int
	recordIgnore      []string
	recordDebug       bool
)

var recordCmd = &cobra.Command{
	Use:   "record [flags] <program> [program args...]",
	Short: "Run a Ruby program and record its execution trace",
	Long: `record runs <program> under the interpreter with the execution probe
loaded and writes the trace to the output directory. Everything after the
program name is passed to the program. With --probe-log, a saved probe
stream is replayed instead of launching the interpreter.

The probe is a Ruby library, not part of this binary. The default
interpreter, "ruby -rcodetracer_probe", needs codetracer_probe.rb on the
Ruby load path (for example through RUBYLIB). The probe writes its messages
to the descriptor named by CODETRACER_PROBE_FD, framed as
CODETRACER_PROBE_FORMAT (ndjson or msgpack). Any command that honors the
same contract can be given with --interpreter.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRecord,
}

func init() {
	f := recordCmd.Flags()
	f.SetInterspersed(false)
	f.StringVarP(&recordOutDir, "out-dir", "o", "", "trace output directory (default: $CODETRACER_RUBY_RECORDER_OUT_DIR, config out_dir, or .)")
	f.StringVarP(&recordFormat, "format", "f", "", "trace format (json|binary)")
	f.StringVar(&recordProbeLog, "probe-log", "", "replay a saved probe stream instead of launching the program")
	f.StringVar(&recordProbeFormat, "probe-format", "", "probe stream framing (ndjson|msgpack)")
	f.StringArrayVar(&recordInterpreter, "interpreter", nil, "interpreter command and arguments, one per flag (default: ruby -rcodetracer_probe)")
	f.IntVar(&recordMaxDepth, "max-depth", 0, "value snapshot depth budget (default 10)")
	f.IntVar(&recordMaxCount, "max-count", 0, "largest collection expanded in snapshots (default 5000)")
	f.StringArrayVar(&recordIgnore, "ignore", nil, "additional path fragment to exclude (repeatable)")
	f.BoolVar(&recordDebug, "debug", false, "report calls, returns and counters on stderr")
}

// recordSettings is the merged configuration of one record run.
type recordSettings struct {
	cfg       config.Config
	program   string
	args      []string
	outDir    string
	probeLog  string
	heartbeat time.Duration
}

func resolveRecordSettings(cmd *cobra.Command, args []string) (*recordSettings, error) {
	configPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Load(configPath, ".")
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format = recordFormat
	}
	if flags.Changed("probe-format") {
		cfg.ProbeFormat = recordProbeFormat
	}
	if flags.Changed("interpreter") {
		cfg.Interpreter = recordInterpreter
	}
	if flags.Changed("max-depth") {
		cfg.MaxDepth = recordMaxDepth
	}
	if flags.Changed("max-count") {
		cfg.MaxCount = recordMaxCount
	}
	if recordDebug {
		cfg.Debug = true
	}
	cfg.Ignore = append(cfg.Ignore, recordIgnore...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	heartbeat, err := cmd.Root().PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	s := &recordSettings{
		cfg:       cfg,
		program:   args[0],
		args:      args[1:],
		outDir:    cfg.OutDir,
		probeLog:  recordProbeLog,
		heartbeat: heartbeat,
	}
	if flags.Changed("out-dir") {
		s.outDir = recordOutDir
	}
	if s.outDir == "" {
		s.outDir = "."
	}
	return s, nil
}

func runRecord(cmd *cobra.Command, args []string) error {
	errOut := cmd.ErrOrStderr()
	if len(args) == 0 {
		fmt.Fprintln(errOut, recordUsage)
		return &exitError{code: 1}
	}

	timer := observ.NewTimer()
	var s *recordSettings
	if err := timer.Measure("config", func() (err error) {
		s, err = resolveRecordSettings(cmd, args)
		return err
	}); err != nil {
		return err
	}

	diag, cleanupTrace, err := setupTracing(cmd, s.cfg.Debug, errOut)
	if err != nil {
		return err
	}
	defer cleanupTrace()
	defer dumpRingOnPanic(diag, errOut)

	cleanupProf, err := setupProfiling(cmd, errOut)
	if err != nil {
		return err
	}
	defer cleanupProf()

	ctx := cmd.Context()
	session := trace.Begin(diag, trace.ScopeSession, "record", 0)
	session.WithExtra("program", s.program)

	t, outcome, err := recordProgram(ctx, cmd, s, diag, timer)
	if err != nil {
		session.End("error")
		return err
	}
	reportOutcome(diag, outcome)

	opts := tracefile.Options{
		Dir:     s.outDir,
		Format:  s.cfg.TraceFormat(),
		Program: s.program,
		Args:    s.args,
	}
	uiFlag, err := cmd.Root().PersistentFlags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	withUI, err := useProgressUI(uiFlag, quiet)
	if err != nil {
		return err
	}
	err = timer.Measure("serialize", func() error {
		if withUI {
			return flushWithUI(ctx, cmd.OutOrStdout(), t, opts)
		}
		return t.Flush(ctx, opts)
	})
	session.End(fmt.Sprintf("status=%d", outcome.Status))
	if err != nil {
		return err
	}

	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	if timings {
		fmt.Fprint(errOut, timer.Summary())
	}
	return nil
}

// recordProgram runs (or replays) the program with a started session and
// returns the stopped session.
func recordProgram(ctx context.Context, cmd *cobra.Command, s *recordSettings, diag trace.Tracer, timer *observ.Timer) (*recorder.Tracer, probe.Outcome, error) {
	gate := probe.NewGate()
	// a launched child prints its own output; a replayed log prints here
	var base io.Writer = io.Discard
	if s.probeLog != "" {
		base = cmd.OutOrStdout()
	}
	coord := capture.NewCoordinator(capture.StdOps(base))

	t := recorder.New(gate, recorder.Options{
		MaxDepth:    s.cfg.MaxDepth,
		MaxCount:    s.cfg.MaxCount,
		Extension:   s.cfg.Extension,
		Ignore:      s.cfg.Ignore,
		Debug:       s.cfg.Debug,
		Diagnostics: diag,
		Coordinator: coord,
	})
	t.RecordTopLevel()
	if err := t.Start(); err != nil {
		return nil, probe.Outcome{}, err
	}
	defer t.Stop()
	hb := trace.StartHeartbeat(diag, s.heartbeat, t.Progress)
	defer hb.Stop()

	d := probe.NewDispatcher(gate, coord, diag)
	var outcome probe.Outcome
	err := timer.Measure("record", func() (err error) {
		if s.probeLog != "" {
			format := probe.FormatFromPath(s.probeLog)
			if cmd.Flags().Changed("probe-format") {
				format = s.cfg.StreamFormat()
			}
			outcome, err = probe.Replay(ctx, s.probeLog, format, d)
			return err
		}
		outcome, err = probe.Launch(ctx, probe.LaunchOptions{
			Interpreter: s.cfg.Interpreter,
			Program:     s.program,
			Args:        s.args,
			Format:      s.cfg.StreamFormat(),
			Stdin:       os.Stdin,
			Stdout:      cmd.OutOrStdout(),
			Stderr:      cmd.ErrOrStderr(),
		}, d)
		return err
	})
	var streamErr *probe.StreamError
	if errors.As(err, &streamErr) {
		// everything dispatched before the break is kept and written
		trace.Point(diag, trace.ScopeSession, "probe stream ended early", streamErr.Error())
		fmt.Fprintf(cmd.ErrOrStderr(), "%s probe stream ended early, the trace is partial: %v\n", color.YellowString("warning:"), streamErr)
		err = nil
	}
	if err != nil {
		return nil, outcome, err
	}
	if s.probeLog == "" && outcome.Messages == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s no probe messages received; is codetracer_probe on the Ruby load path (RUBYLIB)?\n", color.YellowString("warning:"))
	}
	t.Stop()
	return t, outcome, nil
}

func reportOutcome(diag trace.Tracer, outcome probe.Outcome) {
	if outcome.Skipped > 0 {
		trace.Pointf(diag, trace.ScopePhase, "probe", "skipped %d of %d messages", outcome.Skipped, outcome.Messages)
	}
	if exc := outcome.Exception; exc != nil {
		trace.Point(diag, trace.ScopeSession, "uncaught exception",
			strings.Join(append([]string{exc.Message}, exc.Backtrace...), "\n\t"))
	}
	if outcome.Status != 0 {
		trace.Pointf(diag, trace.ScopeSession, "program exited", "status %d", outcome.Status)
	}
}
