// Package export writes step-response overlays as PNG, SVG or PDF images.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/ptune/internal/viz"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 6 * vg.Inch
	DPI           = 150
)

var ErrFormat = errors.New("export: unsupported image format")

var markerColors = map[viz.MarkerKind]color.Color{
	viz.MarkerSettling: color.RGBA{R: 220, A: 255},
	viz.MarkerPeak:     color.RGBA{G: 160, A: 255},
	viz.MarkerFinal:    color.RGBA{B: 220, A: 255},
}

// Plot builds the overlay figure. Labels of markers visible in ann are drawn
// next to them; a nil ann draws none.
func Plot(o *viz.Overlay, ann *viz.Annotations) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Step response"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Output"
	p.X.Min, p.X.Max = 0, o.TMax
	p.Y.Min, p.Y.Max = o.YMin, o.YMax
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, c := range o.Curves {
		if len(c.Outputs) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(c.Outputs))
		for j, y := range c.Outputs {
			pts[j].X, pts[j].Y = o.Times[j], o.Clip(y)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("export: curve %q: %w", c.Label, err)
		}
		line.LineStyle.Width = vg.Points(2)
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(c.Label, line)

		if c.Info != nil {
			peak, err := plotter.NewLine(plotter.XYs{{X: 0, Y: c.Info.Peak}, {X: o.TMax, Y: c.Info.Peak}})
			if err != nil {
				return nil, err
			}
			peak.LineStyle.Color = color.Gray{Y: 128}
			peak.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
			p.Add(peak)
		}
	}

	for _, m := range o.Points() {
		s, err := plotter.NewScatter(plotter.XYs{{X: m.Marker.Time, Y: m.Marker.Output}})
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(4)
		s.GlyphStyle.Color = markerColors[m.Key.Kind]
		p.Add(s)
	}

	if ann != nil {
		if shown := ann.Shown(o); len(shown) > 0 {
			labels, err := labelsFor(shown)
			if err != nil {
				return nil, err
			}
			p.Add(labels)
		}
	}
	return p, nil
}

func labelsFor(points []viz.Point) (*plotter.Labels, error) {
	data := plotter.XYLabels{
		XYs:    make(plotter.XYs, len(points)),
		Labels: make([]string, len(points)),
	}
	for i, pt := range points {
		data.XYs[i].X, data.XYs[i].Y = pt.Marker.Time, pt.Marker.Output
		data.Labels[i] = pt.Text()
	}
	l, err := plotter.NewLabels(data)
	if err != nil {
		return nil, err
	}
	l.Offset = vg.Point{X: vg.Points(6), Y: vg.Points(6)}
	return l, nil
}

// Write renders the figure in format (png, svg or pdf) to w.
func Write(w io.Writer, o *viz.Overlay, ann *viz.Annotations, format string) error {
	p, err := Plot(o, ann)
	if err != nil {
		return err
	}
	switch format {
	case "png":
		return writePNG(w, p, DefaultWidth, DefaultHeight)
	case "svg", "pdf":
		wt, err := p.WriterTo(DefaultWidth, DefaultHeight, format)
		if err != nil {
			return err
		}
		_, err = wt.WriteTo(w)
		return err
	}
	return fmt.Errorf("%w: %q", ErrFormat, format)
}

// Save writes the figure to path, choosing the format from its extension.
func Save(path string, o *viz.Overlay, ann *viz.Annotations) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format != "png" && format != "svg" && format != "pdf" {
		return fmt.Errorf("%w: %q", ErrFormat, filepath.Ext(path))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("export: create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := Write(bw, o, ann, format); err != nil {
		return err
	}
	return bw.Flush()
}

func writePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	c := vgimg.NewWith(
		vgimg.UseWH(width, height),
		vgimg.UseDPI(DPI),
	)
	p.Draw(draw.New(c))

	pngc := vgimg.PngCanvas{Canvas: c}
	if _, err := pngc.WriteTo(w); err != nil {
		return fmt.Errorf("export: write png: %w", err)
	}
	return nil
}
