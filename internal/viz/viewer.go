package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	viewerCols = 72
	viewerRows = 22

	// canvasStyle padding
	originCol = 2
	originRow = 1
	// stats panel width plus its left border
	statsCols = 43
)

// Viewer is a Bubble Tea model showing an overlay with toggleable marker
// labels.
type Viewer struct {
	overlay  *Overlay
	ann      *Annotations
	points   []Point
	cursor   int
	theme    int
	cols     int
	rows     int
	showHelp bool
	status   string
}

func NewViewer(o *Overlay, ann *Annotations, theme string) Viewer {
	if ann == nil {
		ann = NewAnnotations()
	}
	v := Viewer{
		overlay: o,
		ann:     ann,
		points:  o.Points(),
		cols:    viewerCols,
		rows:    viewerRows,
	}
	for i, t := range Themes {
		if t.Name == theme {
			v.theme = i
		}
	}
	return v
}

// RunViewer blocks until the viewer exits.
func RunViewer(o *Overlay, ann *Annotations, theme string) error {
	p := tea.NewProgram(NewViewer(o, ann, theme), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

func (v Viewer) Init() tea.Cmd { return nil }

func (v Viewer) Annotations() *Annotations { return v.ann }

// Selected returns the marker under the cursor.
func (v Viewer) Selected() (Point, bool) {
	if len(v.points) == 0 {
		return Point{}, false
	}
	return v.points[v.cursor], true
}

func (v Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return v, tea.Quit
		case "right", "l", "tab":
			v.move(1)
		case "left", "h", "shift+tab":
			v.move(-1)
		case "enter", " ":
			if p, ok := v.Selected(); ok {
				v.report(p, v.ann.Toggle(p.Key))
			}
		case "a":
			if v.ann.Len() < len(v.points) {
				v.ann.ShowAll(v.overlay)
				v.status = "all labels shown"
			} else {
				v.ann.HideAll()
				v.status = "all labels hidden"
			}
		case "t":
			v.theme = (v.theme + 1) % len(Themes)
			v.status = "theme: " + Themes[v.theme].Name
		case "?":
			v.showHelp = !v.showHelp
		}
	case tea.MouseMsg:
		if v.showHelp || msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
			return v, nil
		}
		col, row := msg.X-originCol, msg.Y-originRow
		if col < 0 || row < 0 || col >= v.cols || row >= v.rows {
			return v, nil
		}
		t, y := v.projection().Cell(col, row)
		if p, ok := v.ann.Click(v.overlay, t, y); ok {
			v.focus(p.Key)
			v.report(p, v.ann.Visible(p.Key))
		}
	case tea.WindowSizeMsg:
		v.cols = max(20, msg.Width-statsCols-2*originCol)
		v.rows = max(8, msg.Height-2*originRow)
	}
	return v, nil
}

func (v *Viewer) move(d int) {
	if n := len(v.points); n > 0 {
		v.cursor = ((v.cursor+d)%n + n) % n
	}
}

func (v *Viewer) focus(k Key) {
	for i, p := range v.points {
		if p.Key == k {
			v.cursor = i
			return
		}
	}
}

func (v *Viewer) report(p Point, shown bool) {
	state := "hidden"
	if shown {
		state = "shown"
	}
	v.status = fmt.Sprintf("%s: %s", p.Key.Kind, state)
}

func (v Viewer) projection() Projection {
	return Projection{
		XMin: 0, XMax: v.overlay.TMax,
		YMin: v.overlay.YMin, YMax: v.overlay.YMax,
		Cols: v.cols, Rows: v.rows,
	}
}

// render draws axes, curves and markers, one layer each.
func (v Viewer) render() string {
	th := Themes[v.theme]
	proj := v.projection()
	o := v.overlay

	axes := NewCanvas(v.cols, v.rows)
	x0, y0 := proj.Pixel(0, 0)
	x1, _ := proj.Pixel(o.TMax, 0)
	_, yTop := proj.Pixel(0, o.YMax)
	_, yBottom := proj.Pixel(0, o.YMin)
	axes.DrawLine(x0, y0, x1, y0)
	axes.DrawLine(x0, yTop, x0, yBottom)

	layers := []*Canvas{axes}
	styles := []lipgloss.Style{lipgloss.NewStyle().Foreground(th.Muted)}
	for i, c := range o.Curves {
		layer := NewCanvas(v.cols, v.rows)
		ys := make([]float64, len(c.Outputs))
		for j, y := range c.Outputs {
			ys[j] = o.Clip(y)
		}
		layer.Polyline(proj, o.Times, ys)
		layers = append(layers, layer)
		styles = append(styles, th.CurveStyle(i))
	}

	marks := NewCanvas(v.cols, v.rows)
	selected := NewCanvas(v.cols, v.rows)
	sel, hasSel := v.Selected()
	for _, p := range v.points {
		px, py := proj.Pixel(p.Marker.Time, p.Marker.Output)
		if hasSel && p.Key == sel.Key {
			selected.DrawDot(px, py)
			continue
		}
		marks.DrawDot(px, py)
	}
	layers = append(layers, marks, selected)
	styles = append(styles, th.MarkerStyle(), activeStyle)

	return Compose(layers, styles)
}

func (v Viewer) View() string {
	th := Themes[v.theme]
	canvasView := canvasStyle.Render(v.render())

	var s strings.Builder
	s.WriteString(headerStyle.Render("STEP RESPONSE") + "\n")
	for i, c := range v.overlay.Curves {
		s.WriteString(th.CurveStyle(i).Bold(true).Render(c.Label) + "\n")
		if c.Info == nil {
			s.WriteString(WarningStyle.Render("  unstable, no markers") + "\n\n")
			continue
		}
		s.WriteString(labelStyle.Render("  Settling") + valueStyle.Render(fmt.Sprintf("%.4fs", c.Info.SettlingTime)) + "\n")
		s.WriteString(labelStyle.Render("  Overshoot") + valueStyle.Render(fmt.Sprintf("%.2f%%", c.Info.Overshoot())) + "\n")
		s.WriteString(labelStyle.Render("  Final") + valueStyle.Render(fmt.Sprintf("%.4f", c.Info.SteadyState)) + "\n\n")
	}

	if p, ok := v.Selected(); ok {
		s.WriteString(activeStyle.Render("> "+p.Key.Label) + "\n")
		s.WriteString(valueStyle.Render("  "+p.Key.Kind.String()) + "\n\n")
	}

	if shown := v.ann.Shown(v.overlay); len(shown) > 0 {
		s.WriteString("LABELS\n")
		for _, p := range shown {
			s.WriteString(th.MarkerStyle().Render(p.Text()) + "\n")
		}
	}
	if v.status != "" {
		s.WriteString("\n" + labelStyle.Render(v.status) + "\n")
	}
	s.WriteString(helpStyle.Render("←→:Select Enter:Label A:All\nClick:Label T:Theme ?:Help Q:Quit"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if v.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  ←/→ Tab  - Select marker            ║
║  Enter    - Toggle selected label    ║
║  A        - Show or hide all labels  ║
║  Click    - Toggle label at pointer  ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}
