// Package automation runs batches of tuning jobs: scripted scenarios read
// from YAML, sweeps over the settling-time target, and Monte Carlo checks of
// a tuned gain against perturbed plants.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/san-kum/ptune/internal/config"
	"github.com/san-kum/ptune/internal/control"
	"github.com/san-kum/ptune/internal/lti"
	"github.com/san-kum/ptune/internal/registry"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

var ErrInvalidScenario = errors.New("automation: invalid scenario")

// Scenario defines a scripted sequence of tuning jobs
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Jobs        []Job  `yaml:"jobs"`
}

// Job is one tuning problem. Exactly one of Preset, Config and Plant names
// the plant; a positive Target overrides the one it carries.
type Job struct {
	Name   string              `yaml:"name"`
	Preset string              `yaml:"preset,omitempty"`
	Config string              `yaml:"config,omitempty"`
	Plant  *config.PlantConfig `yaml:"plant,omitempty"`
	Target float64             `yaml:"target,omitempty"`
}

// LoadScenario loads a scenario from a YAML file. Job config paths are
// resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidScenario, path, err)
	}
	if len(scenario.Jobs) == 0 {
		return nil, fmt.Errorf("%w: %s: no jobs", ErrInvalidScenario, path)
	}

	dir := filepath.Dir(path)
	for i := range scenario.Jobs {
		if c := scenario.Jobs[i].Config; c != "" && !filepath.IsAbs(c) {
			scenario.Jobs[i].Config = filepath.Join(dir, c)
		}
	}
	return &scenario, nil
}

// Resolve builds the validated configuration of the job.
func (j Job) Resolve() (*config.Config, error) {
	sources := 0
	for _, set := range []bool{j.Preset != "", j.Config != "", j.Plant != nil} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, fmt.Errorf("%w: job %q needs exactly one of preset, config or plant", ErrInvalidScenario, j.Name)
	}

	var cfg *config.Config
	switch {
	case j.Preset != "":
		if cfg = config.GetPreset(j.Preset); cfg == nil {
			return nil, fmt.Errorf("%w: job %q: unknown preset %s", ErrInvalidScenario, j.Name, j.Preset)
		}
	case j.Config != "":
		var err error
		if cfg, err = config.Load(j.Config); err != nil {
			return nil, err
		}
	default:
		cfg = config.DefaultConfig()
		cfg.Plant = *j.Plant
	}

	if j.Name != "" {
		cfg.Name = j.Name
	}
	if j.Target > 0 {
		cfg.Target = j.Target
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// JobResult is the outcome of one job. Result is nil when the job could not
// be set up; Err carries setup and synthesis failures alike.
type JobResult struct {
	Job    string
	Config *config.Config
	Result *control.Result
	Err    error
}

// Tune runs one synthesis for cfg.
func Tune(ctx context.Context, cfg *config.Config, reg *registry.Registry, logger *slog.Logger) (*control.Result, error) {
	plant, err := cfg.TransferFunction()
	if err != nil {
		return nil, err
	}
	syn, err := reg.Synthesizer(cfg, logger)
	if err != nil {
		return nil, err
	}
	return syn.Synthesize(ctx, plant, cfg.Target, cfg.Plant.Closed)
}

// RunScenario executes all jobs in a scenario. A failing job is recorded and
// the next one runs; only cancellation stops the batch.
func RunScenario(ctx context.Context, scenario *Scenario, reg *registry.Registry, logger *slog.Logger) ([]JobResult, error) {
	logger = orDiscard(logger)
	results := make([]JobResult, 0, len(scenario.Jobs))

	for i, job := range scenario.Jobs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		logger.Info("running job", "job", job.Name, "n", i+1, "of", len(scenario.Jobs))

		jr := JobResult{Job: job.Name}
		cfg, err := job.Resolve()
		if err != nil {
			jr.Err = fmt.Errorf("job %d: %w", i+1, err)
			results = append(results, jr)
			continue
		}
		jr.Config = cfg
		jr.Result, jr.Err = Tune(ctx, cfg, reg, logger)
		results = append(results, jr)
	}

	return results, nil
}

// TargetSweep tunes the same plant for evenly spaced targets.
type TargetSweep struct {
	Config *config.Config
	From   float64
	To     float64
	Steps  int
}

// SweepResult holds results from a target sweep
type SweepResult struct {
	Target   float64 `json:"target"`
	Found    bool    `json:"found"`
	Gain     float64 `json:"gain"`
	Achieved float64 `json:"achieved"`
	Cost     float64 `json:"cost"`
}

// RunSweep executes a target sweep
func RunSweep(ctx context.Context, sweep *TargetSweep, reg *registry.Registry, logger *slog.Logger) ([]SweepResult, error) {
	if sweep.Steps < 1 || sweep.From <= 0 || sweep.To < sweep.From {
		return nil, fmt.Errorf("%w: sweep needs 0 < from <= to and steps >= 1", ErrInvalidScenario)
	}

	logger = orDiscard(logger)
	results := make([]SweepResult, 0, sweep.Steps)
	for i, target := range lti.Linspace(sweep.From, sweep.To, max(sweep.Steps, 2))[:sweep.Steps] {
		cfg := *sweep.Config
		cfg.Target = target

		res, err := Tune(ctx, &cfg, reg, logger)
		var synErr *control.SynthesisError
		if err != nil && !errors.As(err, &synErr) {
			return results, err
		}

		sr := SweepResult{Target: target, Achieved: math.NaN()}
		if res != nil && res.Controlled != nil {
			sr.Found, sr.Gain, sr.Cost = true, res.Gain, res.Diagnostics.Cost
			if a := res.Diagnostics.Achieved; a != nil {
				sr.Achieved = a.SettlingTime
			}
		}
		results = append(results, sr)
		logger.Info("sweep", "step", i+1, "of", sweep.Steps, "target", target, "gain", sr.Gain)
	}

	return results, nil
}

// MonteCarloConfig defines a robustness check of a tuned gain: every plant
// coefficient is scaled by an independent factor in [1-Perturbation,
// 1+Perturbation].
type MonteCarloConfig struct {
	Open         lti.TransferFunction
	Gain         float64
	Perturbation float64
	Trials       int
	Seed         uint64
	Options      lti.Options
}

// MonteCarloResult holds the closed loop of one perturbed plant
type MonteCarloResult struct {
	Trial        int
	Plant        lti.TransferFunction
	Stable       bool
	SettlingTime float64
}

// RunMonteCarlo executes Trials closed loops around perturbed plants.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	if cfg.Trials < 1 || cfg.Perturbation < 0 || cfg.Perturbation >= 1 {
		return nil, fmt.Errorf("%w: need trials >= 1 and 0 <= perturbation < 1", ErrInvalidScenario)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5851f42d4c957f2d))
	perturb := func(p []float64) []float64 {
		out := make([]float64, len(p))
		for i, c := range p {
			out[i] = c * (1 + (2*rng.Float64()-1)*cfg.Perturbation)
		}
		return out
	}

	results := make([]MonteCarloResult, 0, cfg.Trials)
	for trial := 0; trial < cfg.Trials; trial++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		plant, err := lti.New(perturb(cfg.Open.Num()), perturb(cfg.Open.Den()))
		if err != nil {
			return results, err
		}
		loop := lti.Feedback(lti.Series(control.PGain(cfg.Gain), plant))

		r := MonteCarloResult{Trial: trial, Plant: plant, SettlingTime: math.NaN()}
		if r.Stable = lti.IsStable(loop); r.Stable {
			if info, err := lti.Characteristics(loop, cfg.Options); err == nil {
				r.SettlingTime = info.SettlingTime
			}
		}
		results = append(results, r)
	}

	return results, nil
}

// MonteCarloStats summarizes Monte Carlo results. The settling-time mean and
// standard deviation cover stable trials only and are NaN when there are
// none.
func MonteCarloStats(results []MonteCarloResult) (stableCount, unstableCount int, meanTs, stdTs float64) {
	var ts []float64
	for _, r := range results {
		if !r.Stable {
			unstableCount++
			continue
		}
		stableCount++
		if !math.IsNaN(r.SettlingTime) {
			ts = append(ts, r.SettlingTime)
		}
	}
	switch len(ts) {
	case 0:
		return stableCount, unstableCount, math.NaN(), math.NaN()
	case 1:
		return stableCount, unstableCount, ts[0], 0
	}
	meanTs, stdTs = stat.MeanStdDev(ts, nil)
	return
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
