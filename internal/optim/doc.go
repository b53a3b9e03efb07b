// Package optim searches a bounded scalar interval for the minimizer of a
// cost function.
//
// A [Solver] runs a sequence of attempts. Each attempt starts with a local,
// derivative-based search ([LBFGS]); when that search does not converge to a
// feasible point the attempt falls back to a [GlobalSearch] over the whole
// interval:
//
//   - [DifferentialEvolution]: seeded population search (default)
//   - [GridSearch]: log-spaced exhaustive scan
//
// The best global candidate is polished with the local search. Attempts stop
// as soon as one converges and improves on every earlier attempt, or after
// MaxAttempts.
//
// # Example
//
//	solver := optim.NewSolver()
//	out, err := solver.Solve(ctx, cost, optim.DefaultBounds(), 1.0)
//	if out.Found {
//		fmt.Println(out.Gain, out.Cost)
//	}
//
// # Thread Safety
//
// A Solver holds configuration only and may be shared. The cost function is
// called concurrently when DifferentialEvolution.Workers > 1 or
// GridSearch.Workers > 1.
package optim
