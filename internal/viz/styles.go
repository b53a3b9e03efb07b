package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(42)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)

	// Glass panel effect with subtle border
	GlassPanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 2)

	WarningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffaa00"))

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff4444"))
)

// Row is one line of a key/value panel.
type Row struct {
	Label string
	Value string
}

// Panel renders rows under a title inside a rounded box.
func Panel(title string, rows []Row) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(title) + "\n")
	for i, r := range rows {
		b.WriteString(labelStyle.Render(r.Label) + valueStyle.Render(r.Value))
		if i < len(rows)-1 {
			b.WriteString("\n")
		}
	}
	return GlassPanel.Render(b.String())
}

// Warnings renders each message on its own line.
func Warnings(msgs []string) string {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = WarningStyle.Render("! " + m)
	}
	return strings.Join(lines, "\n")
}
