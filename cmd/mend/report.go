package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"codemend/internal/resolve"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7c3aed"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	fixedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")).Bold(true)
	unfixedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#06b6d4"))
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4b5563")).
			Padding(0, 1)
)

// renderReport formats one run for the terminal.
func renderReport(r *resolve.Report, showDiff bool) string {
	var sb strings.Builder

	header := fmt.Sprintf("%s  %s -> %s", titleStyle.Render("mend"), r.Source, r.Target)
	sb.WriteString(header + "\n")
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("run %s, %s", r.RunID, r.Duration.Round(time.Millisecond))) + "\n\n")

	for _, is := range r.Issues {
		if is.Fixed {
			sb.WriteString(fixedStyle.Render("fixed  "))
			sb.WriteString(is.Key)
			sb.WriteString(mutedStyle.Render(fmt.Sprintf("  (%s, %s, %d attempts)", is.Backend, is.Variant, is.Attempts)))
		} else {
			sb.WriteString(unfixedStyle.Render("failed "))
			sb.WriteString(is.Key)
			sb.WriteString(mutedStyle.Render(fmt.Sprintf("  (%d attempts)", is.Attempts)))
		}
		sb.WriteString("\n")
		if showDiff && is.Diff != "" {
			sb.WriteString(renderDiff(is.Diff))
			sb.WriteString("\n")
		}
	}

	summary := fmt.Sprintf("%s fixed, %s unfixed, %d attempts",
		fixedStyle.Render(fmt.Sprint(r.Fixed())),
		unfixedStyle.Render(fmt.Sprint(r.Unfixed())),
		r.Attempts())
	sb.WriteString("\n" + boxStyle.Render(summary))
	return sb.String()
}

// renderDiff colors a unified diff line by line.
func renderDiff(d string) string {
	lines := strings.Split(strings.TrimRight(d, "\n"), "\n")
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
			lines[i] = mutedStyle.Render(l)
		case strings.HasPrefix(l, "@@"):
			lines[i] = hunkStyle.Render(l)
		case strings.HasPrefix(l, "+"):
			lines[i] = addedStyle.Render(l)
		case strings.HasPrefix(l, "-"):
			lines[i] = removedStyle.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}
