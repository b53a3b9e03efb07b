package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = rune(0x2800)

// Canvas is a grid of braille cells. In sub-pixel coordinates it spans
// (Width*2) x (Height*4) with the origin at the top left.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the sub-pixel at (x, y). Points off the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawDot fills the 2x2 sub-pixel block around (x, y).
func (c *Canvas) DrawDot(x, y int) {
	for _, d := range [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		c.Set(x+d[0], y+d[1])
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Projection maps data coordinates onto a canvas.
type Projection struct {
	XMin, XMax float64
	YMin, YMax float64
	Cols, Rows int
}

// Pixel returns the sub-pixel of (x, y).
func (p Projection) Pixel(x, y float64) (int, int) {
	w, h := float64(p.Cols*2-1), float64(p.Rows*4-1)
	px := (x - p.XMin) / (p.XMax - p.XMin) * w
	py := (p.YMax - y) / (p.YMax - p.YMin) * h
	return int(math.Round(px)), int(math.Round(py))
}

// Cell returns the data coordinates at the center of terminal cell
// (col, row).
func (p Projection) Cell(col, row int) (float64, float64) {
	x := p.XMin + (float64(col)+0.5)/float64(p.Cols)*(p.XMax-p.XMin)
	y := p.YMax - (float64(row)+0.5)/float64(p.Rows)*(p.YMax-p.YMin)
	return x, y
}

// Polyline draws xs/ys as connected segments.
func (c *Canvas) Polyline(p Projection, xs, ys []float64) {
	for i := 1; i < len(xs) && i < len(ys); i++ {
		x0, y0 := p.Pixel(xs[i-1], ys[i-1])
		x1, y1 := p.Pixel(xs[i], ys[i])
		c.DrawLine(x0, y0, x1, y1)
	}
}

// Compose renders layers on top of each other. A cell takes the style of
// the last layer that lights it; the dots of all layers are merged.
func Compose(layers []*Canvas, styles []lipgloss.Style) string {
	if len(layers) == 0 {
		return ""
	}
	w, h := layers[0].Width, layers[0].Height
	var b strings.Builder
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			cell, top := blank, -1
			for i, l := range layers {
				if r := l.Grid[row][col]; r != blank {
					cell |= r
					top = i
				}
			}
			if top < 0 || top >= len(styles) {
				b.WriteRune(cell)
				continue
			}
			b.WriteString(styles[top].Render(string(cell)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
