package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   version.Tool,
	Short: "Record Ruby program executions as replayable traces",
	Long: `codetracer-ruby-recorder runs a Ruby program under an execution probe and
writes every call, return, line, local value and output write to a trace
directory readable by the CodeTracer time-travel debugger.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		mode, err := cmd.Root().PersistentFlags().GetString("color")
		if err != nil {
			return err
		}
		return applyColorMode(mode)
	},
}

// exitError carries a process exit status through cobra without printing.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func init() {
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.String("ui", "auto", "progress UI while writing traces (auto|on|off)")
	pf.String("config", "", "config file (.toml, .yaml or .yml); default: nearest codetracer.toml")

	pf.String("trace", "", "diagnostic trace output (file path or - for stderr)")
	pf.String("trace-level", "off", "diagnostic trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "diagnostic trace storage (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "ring buffer capacity for --trace-mode ring|both")
	pf.Duration("trace-heartbeat", 0, "emit heartbeat events at this interval (0 disables)")

	pf.String("cpu-profile", "", "write a CPU profile of the recorder")
	pf.String("mem-profile", "", "write a heap profile of the recorder")
	pf.String("runtime-trace", "", "write a Go runtime trace of the recorder")
}

func main() {
	rootCmd.Version = version.Get().Version
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintln(os.Stderr, color.RedString("error:")+" "+err.Error())
	return 1
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
