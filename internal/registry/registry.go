package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/san-kum/ptune/internal/config"
	"github.com/san-kum/ptune/internal/control"
	"github.com/san-kum/ptune/internal/dynamo"
	"github.com/san-kum/ptune/internal/integrators"
	"github.com/san-kum/ptune/internal/lti"
	"github.com/san-kum/ptune/internal/optim"
)

// Registry maps the names used in configuration files and flags to
// simulation methods, integrators and global search strategies.
type Registry struct {
	methods     map[string]func() lti.Simulator
	integrators map[string]func() dynamo.Integrator
	globals     map[string]func(config.SolverConfig) optim.GlobalSearch
}

func New() *Registry {
	r := &Registry{
		methods:     make(map[string]func() lti.Simulator),
		integrators: make(map[string]func() dynamo.Integrator),
		globals:     make(map[string]func(config.SolverConfig) optim.GlobalSearch),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }

	r.methods["zoh"] = func() lti.Simulator { return lti.ZOH{} }
	for name, mk := range r.integrators {
		r.methods[name] = func() lti.Simulator {
			return lti.Integrating{Label: name, Integrator: mk()}
		}
	}

	r.globals["de"] = func(c config.SolverConfig) optim.GlobalSearch {
		de := optim.NewDifferentialEvolution()
		if c.Population > 0 {
			de.Population = c.Population
		}
		if c.Generations > 0 {
			de.Generations = c.Generations
		}
		de.Workers = c.Workers
		return de
	}
	r.globals["grid"] = func(c config.SolverConfig) optim.GlobalSearch {
		g := optim.NewGridSearch(c.GridPoints)
		g.Workers = c.Workers
		return g
	}
	r.globals["none"] = func(config.SolverConfig) optim.GlobalSearch { return nil }

	return r
}

func (r *Registry) GetMethod(name string) (lti.Simulator, error) {
	fn, ok := r.methods[name]
	if !ok {
		return nil, fmt.Errorf("unknown simulation method: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetGlobal(name string, c config.SolverConfig) (optim.GlobalSearch, error) {
	fn, ok := r.globals[name]
	if !ok {
		return nil, fmt.Errorf("unknown global search: %s", name)
	}
	return fn(c), nil
}

func (r *Registry) ListMethods() []string { return sortedKeys(r.methods) }
func (r *Registry) ListGlobals() []string { return sortedKeys(r.globals) }

// Synthesizer assembles a synthesizer from a validated configuration.
func (r *Registry) Synthesizer(cfg *config.Config, logger *slog.Logger) (*control.Synthesizer, error) {
	method, err := r.GetMethod(cfg.Simulation.Method)
	if err != nil {
		return nil, err
	}
	global, err := r.GetGlobal(cfg.Solver.Global, cfg.Solver)
	if err != nil {
		return nil, err
	}

	local := optim.NewLBFGS()
	local.MaxIterations = cfg.Solver.LocalIterations

	opts := lti.DefaultOptions()
	opts.SettlingBand = cfg.Simulation.SettlingBand
	opts.Method = method

	return &control.Synthesizer{
		Solver: &optim.Solver{
			MaxAttempts: cfg.Solver.MaxAttempts,
			Local:       local,
			Global:      global,
			Penalty:     control.PenaltyCost,
			Seed:        cfg.Solver.Seed,
			Budget:      cfg.Solver.Budget,
			Logger:      logger,
		},
		Bounds:       optim.Bounds{Lo: cfg.Solver.LowerBound, Hi: cfg.Solver.UpperBound},
		InitialGuess: cfg.Solver.InitialGuess,
		Options:      opts,
		Logger:       logger,
	}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
