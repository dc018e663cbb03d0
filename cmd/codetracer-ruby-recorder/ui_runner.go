package main

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/recorder"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracefile"
	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/ui"
)

// flushWithUI serializes the session while a progress view follows the
// artifact events.
func flushWithUI(ctx context.Context, out io.Writer, t *recorder.Tracer, opts tracefile.Options) error {
	events := make(chan tracefile.Event, 64)
	errCh := make(chan error, 1)

	go func() {
		o := opts
		o.Progress = tracefile.ChannelSink{Ch: events}
		errCh <- t.Flush(ctx, o)
		close(events)
	}()

	files := []string{opts.Format.FileName(), tracefile.MetadataFile, tracefile.PathsFile}
	model := ui.NewProgressModel("writing trace to "+opts.Dir, files, events)
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil))
	_, uiErr := program.Run()
	err := <-errCh
	if uiErr != nil {
		return uiErr
	}
	return err
}
