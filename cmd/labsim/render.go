package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"laborsim.ai/internal/sim/stats"
)

type theme struct {
	Primary lipgloss.Color
	Warn    lipgloss.Color
	Dim     lipgloss.Color
}

var defaultTheme = theme{
	Primary: lipgloss.Color("#00afff"),
	Warn:    lipgloss.Color("#ffaf00"),
	Dim:     lipgloss.Color("#6e7681"),
}

type styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Value lipgloss.Style
	Warn  lipgloss.Style
	Dim   lipgloss.Style
	Box   lipgloss.Style
}

func newStyles(t theme) styles {
	return styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label: lipgloss.NewStyle().Foreground(t.Dim).Width(22),
		Value: lipgloss.NewStyle().Bold(true),
		Warn:  lipgloss.NewStyle().Foreground(t.Warn),
		Dim:   lipgloss.NewStyle().Foreground(t.Dim),
		Box:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Primary).Padding(0, 1),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type kv struct {
	k, v string
}

// renderSummary draws a finished run as a boxed table followed by the
// detected patterns.
func renderSummary(st styles, title string, header []kv, sum stats.Summary) string {
	var lines []string
	lines = append(lines, st.Title.Render(title))
	for _, row := range header {
		lines = append(lines, st.Label.Render(row.k)+st.Value.Render(row.v))
	}
	lines = append(lines, "")
	rows := []kv{
		{"months", fmt.Sprintf("%d", sum.Months)},
		{"unemployment", fmt.Sprintf("%.2f%% -> %.2f%% (peak %.2f%% @%d)", 100*sum.InitialUnemployment, 100*sum.FinalUnemployment, 100*sum.PeakUnemployment, sum.PeakMonth)},
		{"median wage", fmt.Sprintf("%.0f -> %.0f", sum.InitialMedianWage, sum.FinalMedianWage)},
		{"wage gini", fmt.Sprintf("%.3f -> %.3f", sum.InitialGini, sum.FinalGini)},
		{"adopting firms", fmt.Sprintf("%.1f%% -> %.1f%%", 100*sum.InitialAdoptingShare, 100*sum.FinalAdoptingShare)},
		{"frontier level", fmt.Sprintf("%.3f", sum.FinalFrontierLevel)},
		{"hires / layoffs", fmt.Sprintf("%d / %d", sum.TotalHires, sum.TotalLayoffs)},
		{"graduates / dropouts", fmt.Sprintf("%d / %d", sum.TotalGraduates, sum.TotalDropouts)},
	}
	for _, row := range rows {
		lines = append(lines, st.Label.Render(row.k)+st.Value.Render(row.v))
	}
	if len(sum.FinalPolicySupport) > 0 {
		names := make([]string, 0, len(sum.FinalPolicySupport))
		for name := range sum.FinalPolicySupport {
			names = append(names, name)
		}
		sort.Strings(names)
		lines = append(lines, "", st.Title.Render("policy support"))
		for _, name := range names {
			lines = append(lines, st.Label.Render(name)+fmt.Sprintf("%.2f", sum.FinalPolicySupport[name]))
		}
	}
	out := st.Box.Render(strings.Join(lines, "\n"))

	if len(sum.Patterns) == 0 {
		return out + "\n" + st.Dim.Render("no patterns detected") + "\n"
	}
	var b strings.Builder
	b.WriteString(out)
	b.WriteString("\n")
	for _, p := range sum.Patterns {
		b.WriteString(st.Warn.Render(fmt.Sprintf("month %3d  %-20s", p.Month, p.Kind)))
		b.WriteString(" ")
		b.WriteString(p.Description)
		b.WriteString("\n")
	}
	return b.String()
}
