package optim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// DefaultPenalty is the cost at or above which a candidate counts as
// infeasible.
const DefaultPenalty = 1e6

// Outcome is the result of Solve. When Found is false Gain and Cost carry no
// information.
type Outcome struct {
	Gain        float64 `json:"gain"`
	Cost        float64 `json:"cost"`
	Found       bool    `json:"found"`
	Converged   bool    `json:"converged"`
	Attempts    int     `json:"attempts"`
	Evaluations int     `json:"evaluations"`
	Message     string  `json:"message"`
}

type Solver struct {
	MaxAttempts int
	Local       *LBFGS
	// Global is the fallback tier; nil disables it.
	Global GlobalSearch
	// Penalty marks infeasible costs; zero selects DefaultPenalty.
	Penalty float64
	Seed    uint64
	// Budget caps the wall time of Solve when positive.
	Budget time.Duration
	Logger *slog.Logger
}

func NewSolver() *Solver {
	return &Solver{
		MaxAttempts: 20,
		Local:       NewLBFGS(),
		Global:      NewDifferentialEvolution(),
		Penalty:     DefaultPenalty,
		Seed:        1,
	}
}

// Solve minimizes f over b. It never fails on non-convergence: the outcome
// reports the best feasible point seen, if any. Only invalid bounds are an
// error.
func (s *Solver) Solve(ctx context.Context, f CostFunc, b Bounds, guess float64) (Outcome, error) {
	if err := b.Validate(); err != nil {
		return Outcome{}, err
	}
	log := s.logger()
	penalty := s.Penalty
	if penalty <= 0 {
		penalty = DefaultPenalty
	}
	local := s.Local
	if local == nil {
		local = NewLBFGS()
	}
	attempts := max(s.MaxAttempts, 1)

	if s.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Budget)
		defer cancel()
	}

	var evals atomic.Int64
	counted := func(x float64) float64 {
		evals.Add(1)
		c := f(x)
		if math.IsNaN(c) {
			return math.Inf(1)
		}
		return c
	}

	rng := rand.New(rand.NewPCG(s.Seed, s.Seed+1))
	tr := newBoxTransform(b)

	var out Outcome
	var best Point
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			out.Message = stopReason(err)
			break
		}
		out.Attempts = attempt + 1

		x0 := b.Clamp(guess)
		if attempt > 0 {
			x0 = tr.fromUnit(rng.Float64())
		}

		p := local.Minimize(counted, b, x0)
		log.Debug("local search", "attempt", out.Attempts, "x0", x0, "x", p.X, "cost", p.F, "converged", p.Converged)

		if !p.Converged || p.F >= penalty {
			p.Converged = false
			if s.Global != nil {
				p = s.global(ctx, counted, b, s.Seed+uint64(attempt), local, penalty, p)
				log.Debug("global search", "attempt", out.Attempts, "method", s.Global.Name(), "x", p.X, "cost", p.F, "converged", p.Converged)
			}
		}

		improved := p.F < penalty && (!out.Found || p.F < best.F)
		if improved {
			best = p
			out.Found = true
		}
		out.Message = p.Message
		if p.Converged && improved {
			out.Converged = true
			break
		}
	}

	if out.Found {
		out.Gain, out.Cost = best.X, best.F
	}
	if !out.Converged && out.Message == "" {
		out.Message = fmt.Sprintf("no converged attempt in %d", out.Attempts)
	}
	out.Evaluations = int(evals.Load())

	log.Info("search finished",
		"found", out.Found, "converged", out.Converged, "gain", out.Gain,
		"cost", out.Cost, "attempts", out.Attempts, "evaluations", out.Evaluations)
	return out, nil
}

// global runs the fallback tier and polishes its best candidate locally. The
// earlier local point is kept when it is cheaper.
func (s *Solver) global(ctx context.Context, f CostFunc, b Bounds, seed uint64, local *LBFGS, penalty float64, prev Point) Point {
	g := s.Global.Search(ctx, f, b, seed)
	if g.F >= penalty {
		g.Converged = false
		if prev.F < g.F {
			return prev
		}
		return g
	}

	polished := local.Minimize(f, b, g.X)
	if polished.F <= g.F {
		polished.Converged = polished.Converged || g.Converged
		polished.Message = g.Message + "; " + polished.Message
		return polished
	}
	return g
}

func (s *Solver) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func stopReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrBudget.Error()
	}
	return err.Error()
}
