package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines color scheme for the viewer
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Warning   lipgloss.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:      "cyberpunk",
		Primary:   lipgloss.Color("#ff00ff"), // Magenta
		Secondary: lipgloss.Color("#00ffff"), // Cyan
		Accent:    lipgloss.Color("#ffff00"), // Yellow
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#666666"),
		Warning:   lipgloss.Color("#ff8800"),
	}

	ThemeMinimal = Theme{
		Name:      "minimal",
		Primary:   lipgloss.Color("#cccccc"),
		Secondary: lipgloss.Color("#0088ff"),
		Accent:    lipgloss.Color("#ffffff"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#888888"),
		Warning:   lipgloss.Color("#ffaa00"),
	}

	ThemeOcean = Theme{
		Name:      "ocean",
		Primary:   lipgloss.Color("#ff6b6b"),
		Secondary: lipgloss.Color("#00a8cc"),
		Accent:    lipgloss.Color("#ffd700"),
		Text:      lipgloss.Color("#e0f0ff"),
		Muted:     lipgloss.Color("#4488aa"),
		Warning:   lipgloss.Color("#ffcc00"),
	}

	Themes = []Theme{
		ThemeCyberpunk,
		ThemeMinimal,
		ThemeOcean,
	}
)

// GetTheme returns a theme by name
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeCyberpunk
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// CurveStyle colors the i-th curve: the original system first, then the
// controlled loop.
func (t Theme) CurveStyle(i int) lipgloss.Style {
	if i%2 == 0 {
		return lipgloss.NewStyle().Foreground(t.Primary)
	}
	return lipgloss.NewStyle().Foreground(t.Secondary)
}

func (t Theme) MarkerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
}
