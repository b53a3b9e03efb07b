package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Red,
	asciigraph.DodgerBlue,
	asciigraph.Green,
	asciigraph.Goldenrod,
}

// RenderASCII draws the overlay as a static terminal chart followed by the
// labels ann has visible. A nil ann shows no labels.
func RenderASCII(o *Overlay, ann *Annotations, width, height int) string {
	var (
		data    [][]float64
		legends []string
		colors  []asciigraph.AnsiColor
	)
	for i, c := range o.Curves {
		if len(c.Outputs) == 0 {
			continue
		}
		ys := make([]float64, len(c.Outputs))
		for j, y := range c.Outputs {
			ys[j] = o.Clip(y)
		}
		data = append(data, ys)
		legends = append(legends, c.Label)
		colors = append(colors, seriesColors[i%len(seriesColors)])
	}
	if len(data) == 0 {
		return ""
	}

	chart := asciigraph.PlotMany(data,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.LowerBound(o.YMin),
		asciigraph.UpperBound(o.YMax),
		asciigraph.Precision(3),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(legends...),
		asciigraph.Caption(captionFor(o)),
	)

	var b strings.Builder
	b.WriteString(chart)
	b.WriteString("\n")
	if ann != nil {
		for _, p := range ann.Shown(o) {
			b.WriteString("\n" + p.Text() + "\n")
		}
	}
	return b.String()
}

func captionFor(o *Overlay) string {
	return fmt.Sprintf("Step response, t = 0..%.2fs", o.TMax)
}
