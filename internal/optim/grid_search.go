package optim

import (
	"context"
	"math"

	"github.com/san-kum/ptune/internal/dynamo"
)

// GridSearch scans Points candidates spaced evenly on the search scale of the
// bounds and keeps the cheapest. The seed is unused: the scan is exhaustive.
type GridSearch struct {
	Points  int
	Workers int
}

func NewGridSearch(points int) *GridSearch {
	return &GridSearch{Points: points}
}

func (g *GridSearch) Name() string { return "grid" }

func (g *GridSearch) Search(ctx context.Context, f CostFunc, b Bounds, _ uint64) Point {
	n := g.Points
	if n < 2 {
		n = 400
	}
	tr := newBoxTransform(b)

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = b.Clamp(tr.fromUnit(float64(i) / float64(n-1)))
	}

	costs := make([]float64, n)
	for i := range costs {
		costs[i] = math.Inf(1)
	}
	dynamo.ParallelFor(n, 8, g.Workers, func(start, end int) {
		for i := start; i < end; i++ {
			if ctx.Err() != nil {
				return
			}
			costs[i] = f(xs[i])
		}
	})

	best := argmin(costs)
	if err := ctx.Err(); err != nil {
		return Point{X: xs[best], F: costs[best], Message: "grid: " + err.Error()}
	}
	return Point{X: xs[best], F: costs[best], Converged: true, Message: "grid: scan complete"}
}
