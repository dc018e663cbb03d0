// Package ui renders terminal views: live artifact progress while a trace is
// serialized and the summary table printed by `verify`.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracefile"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	statusStyles = map[tracefile.Status]lipgloss.Style{
		tracefile.StatusQueued:  lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		tracefile.StatusWorking: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		tracefile.StatusDone:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		tracefile.StatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
	// share of an artifact counted towards the bar
	statusWeight = map[tracefile.Status]float64{
		tracefile.StatusWorking: 0.5,
		tracefile.StatusDone:    1,
		tracefile.StatusError:   1,
	}
)

// artifact is one output file as the view last saw it.
type artifact struct {
	file   string
	status tracefile.Status
	bytes  int64
}

type artifactMsg tracefile.Event
type closedMsg struct{}

// writeView follows the artifacts of one trace write.
type writeView struct {
	title     string
	events    <-chan tracefile.Event
	spin      spinner.Model
	bar       progress.Model
	artifacts []artifact
	width     int
	closed    bool
	err       error
}

// NewProgressModel returns a Bubble Tea model that follows the artifacts
// named in files until events is closed.
func NewProgressModel(title string, files []string, events <-chan tracefile.Event) tea.Model {
	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	spin.Style = statusStyles[tracefile.StatusWorking]
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(76))

	v := &writeView{title: title, events: events, spin: spin, bar: bar, width: 80}
	for _, f := range files {
		v.artifacts = append(v.artifacts, artifact{file: f, status: tracefile.StatusQueued})
	}
	return v
}

func (v *writeView) Init() tea.Cmd {
	return tea.Batch(v.spin.Tick, v.next)
}

// next blocks for the following artifact event.
func (v *writeView) next() tea.Msg {
	ev, ok := <-v.events
	if !ok {
		return closedMsg{}
	}
	return artifactMsg(ev)
}

func (v *writeView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case artifactMsg:
		return v, tea.Batch(v.apply(tracefile.Event(msg)), v.next)
	case closedMsg:
		v.closed = true
		return v, tea.Quit
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			v.width = msg.Width
			v.bar.Width = msg.Width - 4
		}
	case spinner.TickMsg:
		if !v.closed {
			v.spin, cmd = v.spin.Update(msg)
		}
	case progress.FrameMsg:
		var bar tea.Model
		bar, cmd = v.bar.Update(msg)
		v.bar = bar.(progress.Model)
	}
	return v, cmd
}

// apply folds ev into the artifact list. An error without a file marks the
// whole write as failed.
func (v *writeView) apply(ev tracefile.Event) tea.Cmd {
	if ev.File == "" {
		if ev.Status == tracefile.StatusError {
			v.err = ev.Err
		}
		return nil
	}
	for i := range v.artifacts {
		if a := &v.artifacts[i]; a.file == ev.File {
			a.status, a.bytes = ev.Status, ev.Bytes
			return v.bar.SetPercent(v.percent())
		}
	}
	return nil
}

func (v *writeView) percent() float64 {
	if len(v.artifacts) == 0 {
		return 0
	}
	var sum float64
	for _, a := range v.artifacts {
		sum += statusWeight[a.status]
	}
	return sum / float64(len(v.artifacts))
}

func (v *writeView) View() string {
	if len(v.artifacts) == 0 {
		return ""
	}
	var header string
	switch {
	case v.err != nil:
		header = "failed: " + v.title
	case v.closed:
		header = "done: " + v.title
	default:
		header = v.spin.View() + " " + v.title
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(header) + "\n\n")
	nameWidth := max(v.width-26, 20)
	for _, a := range v.artifacts {
		size := ""
		if a.status == tracefile.StatusDone {
			size = FormatBytes(a.bytes)
		}
		status := statusStyles[a.status].Render(runewidth.FillLeft(string(a.status), 8))
		fmt.Fprintf(&b, "  %s %10s %s\n", status, size, Truncate(a.file, nameWidth))
	}
	b.WriteString("\n")
	if v.closed {
		b.WriteString(v.bar.ViewAs(1))
	} else {
		b.WriteString(v.bar.View())
	}
	return b.String() + "\n"
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	size := float64(n)
	units := "KMGTPE"
	i := -1
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %ciB", size, units[i])
}

// Truncate shortens value to width terminal cells, ending with "...".
func Truncate(value string, width int) string {
	switch {
	case width <= 0 || runewidth.StringWidth(value) <= width:
		return value
	case width <= 3:
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
