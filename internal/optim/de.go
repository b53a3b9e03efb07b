package optim

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/san-kum/ptune/internal/dynamo"
	"gonum.org/v1/gonum/stat"
)

// GlobalSearch explores the whole interval without a starting point.
type GlobalSearch interface {
	Name() string
	Search(ctx context.Context, f CostFunc, b Bounds, seed uint64) Point
}

// DifferentialEvolution is a best/1 differential evolution over the search
// scale of the bounds (logarithmic for positive intervals). The population is
// initialized by stratified sampling, mutation uses a dithered scale factor
// and out-of-range trials are redrawn uniformly. On a scalar problem binomial
// crossover always keeps the mutant, so there is no recombination rate.
type DifferentialEvolution struct {
	Population  int
	Generations int
	// Mutation is the dither range of the scale factor.
	Mutation [2]float64
	// Tol and Atol stop the search once the population costs satisfy
	// std <= Atol + Tol*|mean|.
	Tol     float64
	Atol    float64
	Workers int
}

func NewDifferentialEvolution() *DifferentialEvolution {
	return &DifferentialEvolution{
		Population:  20,
		Generations: 100,
		Mutation:    [2]float64{0.5, 1},
		Tol:         0.01,
		Atol:        1e-6,
	}
}

func (d *DifferentialEvolution) Name() string { return "de" }

func (d *DifferentialEvolution) Search(ctx context.Context, f CostFunc, b Bounds, seed uint64) Point {
	np := max(d.Population, 4)
	gens := max(d.Generations, 1)
	tr := newBoxTransform(b)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	pop := make([]float64, np)
	for i := range pop {
		pop[i] = (float64(i) + rng.Float64()) / float64(np)
	}
	rng.Shuffle(np, func(i, j int) { pop[i], pop[j] = pop[j], pop[i] })

	energies := d.evaluate(f, tr, pop)
	best := argmin(energies)

	trials := make([]float64, np)
	for gen := 0; gen < gens; gen++ {
		if ctx.Err() != nil {
			return Point{X: tr.fromUnit(pop[best]), F: energies[best], Message: "de: " + ctx.Err().Error()}
		}

		for i := range trials {
			r1, r2 := pick2(rng, np, i)
			scale := d.Mutation[0] + rng.Float64()*(d.Mutation[1]-d.Mutation[0])
			trial := pop[best] + scale*(pop[r1]-pop[r2])
			if trial < 0 || trial > 1 {
				trial = rng.Float64()
			}
			trials[i] = trial
		}

		trialEnergies := d.evaluate(f, tr, trials)
		for i, e := range trialEnergies {
			if e <= energies[i] {
				pop[i], energies[i] = trials[i], e
				if e < energies[best] {
					best = i
				}
			}
		}

		if d.converged(energies) {
			return Point{X: tr.fromUnit(pop[best]), F: energies[best], Converged: true, Message: "de: population converged"}
		}
	}
	return Point{X: tr.fromUnit(pop[best]), F: energies[best], Message: "de: generation limit reached"}
}

func (d *DifferentialEvolution) evaluate(f CostFunc, tr boxTransform, unit []float64) []float64 {
	out := make([]float64, len(unit))
	dynamo.ParallelFor(len(unit), 2, d.Workers, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = f(tr.fromUnit(unit[i]))
		}
	})
	return out
}

func (d *DifferentialEvolution) converged(energies []float64) bool {
	mean, std := stat.MeanStdDev(energies, nil)
	if math.IsNaN(std) {
		return false
	}
	return std <= d.Atol+d.Tol*math.Abs(mean)
}

func argmin(xs []float64) int {
	best := 0
	for i, v := range xs {
		if v < xs[best] {
			best = i
		}
	}
	return best
}

// pick2 draws two distinct indices different from skip.
func pick2(rng *rand.Rand, n, skip int) (int, int) {
	a := rng.IntN(n)
	for a == skip {
		a = rng.IntN(n)
	}
	b := rng.IntN(n)
	for b == skip || b == a {
		b = rng.IntN(n)
	}
	return a, b
}
