package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/metacraft-labs/codetracer-ruby-recorder/internal/tracefile"
)

// maxProblems caps the problem lines printed by RenderReport.
const maxProblems = 20

// RenderReport formats a verify report as a two-column table followed by
// the first problems found. width bounds problem lines; 0 means 80.
func RenderReport(t *tracefile.Trace, rep *tracefile.Report, width int) string {
	if width <= 0 {
		width = 80
	}
	titleStyle := lipgloss.NewStyle().Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	countStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%s)", Truncate(t.Dir, width-12), t.Format)))
	b.WriteByte('\n')
	if t.Metadata.Program != "" {
		cmdline := append([]string{t.Metadata.Program}, t.Metadata.Args...)
		fmt.Fprintf(&b, "program: %s\n", strings.Join(cmdline, " "))
	}

	rows := []struct {
		label string
		n     int
	}{
		{"events", rep.Events},
		{"paths", rep.Paths},
		{"functions", rep.Functions},
		{"variables", rep.Variables},
		{"types", rep.Types},
		{"steps", rep.Steps},
		{"calls", rep.Calls},
		{"returns", rep.Returns},
		{"values", rep.Values},
		{"io events", rep.IO},
		{"errors", rep.Errors},
	}
	labelWidth, countWidth := 0, 0
	for _, r := range rows {
		labelWidth = max(labelWidth, runewidth.StringWidth(r.label))
		countWidth = max(countWidth, len(strconv.Itoa(r.n)))
	}
	for _, r := range rows {
		label := runewidth.FillRight(r.label, labelWidth)
		count := runewidth.FillLeft(strconv.Itoa(r.n), countWidth)
		fmt.Fprintf(&b, "  %s  %s\n", labelStyle.Render(label), countStyle.Render(count))
	}

	if rep.OK() {
		b.WriteString(okStyle.Render("ok: every id is declared before use"))
		b.WriteByte('\n')
		return b.String()
	}
	b.WriteString(errStyle.Render(fmt.Sprintf("%d problem(s)", len(rep.Problems))))
	b.WriteByte('\n')
	for i, p := range rep.Problems {
		if i == maxProblems {
			fmt.Fprintf(&b, "  ... %d more\n", len(rep.Problems)-maxProblems)
			break
		}
		b.WriteString("  " + Truncate(p.String(), width-2) + "\n")
	}
	return b.String()
}
