package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/trace"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracefile"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/ui"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <dir>",
	Short: "Check that every id in a recorded trace is declared before use",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		diag, cleanup, err := setupTracing(cmd, false, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer cleanup()

		span := trace.Begin(diag, trace.ScopePhase, "verify", 0)
		t, err := tracefile.Load(args[0])
		if err != nil {
			span.End("load failed")
			return err
		}
		rep := tracefile.Verify(t)
		span.End(fmt.Sprintf("problems=%d", len(rep.Problems)))

		quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
		if err != nil {
			return fmt.Errorf("failed to get quiet flag: %w", err)
		}
		if !quiet || !rep.OK() {
			fmt.Fprint(cmd.OutOrStdout(), ui.RenderReport(t, rep, terminalWidth()))
		}
		if !rep.OK() {
			return &exitError{code: 1}
		}
		return nil
	},
}

func terminalWidth() int {
	if !isTerminal(os.Stdout) {
		return 0
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}
