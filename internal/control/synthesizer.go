package control

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/san-kum/ptune/internal/lti"
	"github.com/san-kum/ptune/internal/optim"
)

// WarnUnstable is recorded when the uncontrolled loop is unstable.
const WarnUnstable = "original system is unstable; the controller will attempt to stabilize it"

// Synthesizer tunes the gain of a proportional controller in unity feedback
// so the closed-loop settling time matches a target.
type Synthesizer struct {
	Solver       *optim.Solver
	Bounds       optim.Bounds
	InitialGuess float64
	Options      lti.Options
	Logger       *slog.Logger
}

func NewSynthesizer() *Synthesizer {
	return &Synthesizer{
		Solver:       optim.NewSolver(),
		Bounds:       optim.DefaultBounds(),
		InitialGuess: 1.0,
		Options:      lti.DefaultOptions(),
	}
}

// Diagnostics describes how a synthesis went.
type Diagnostics struct {
	SessionID   string        `json:"session_id"`
	Converged   bool          `json:"converged"`
	Cost        float64       `json:"cost"`
	Attempts    int           `json:"attempts"`
	Evaluations int           `json:"evaluations"`
	Message     string        `json:"message,omitempty"`
	Warnings    []string      `json:"warnings,omitempty"`
	Original    *lti.StepInfo `json:"original,omitempty"`
	Achieved    *lti.StepInfo `json:"achieved,omitempty"`
}

// Result is the outcome of Synthesize. Controlled is nil when no gain was
// found.
type Result struct {
	Target      float64
	Gain        float64
	Open        lti.TransferFunction
	Original    lti.TransferFunction
	Controlled  *lti.TransferFunction
	Diagnostics Diagnostics
}

// Synthesize tunes Kp for plant. When closed is true the plant is taken to be
// an already closed unity-feedback loop and its open loop is recovered first.
// A search that finds no stabilizing gain returns a Result with a nil
// Controlled together with a *SynthesisError.
func (s *Synthesizer) Synthesize(ctx context.Context, plant lti.TransferFunction, target float64, closed bool) (*Result, error) {
	id := uuid.NewString()
	log := s.logger().With("session", id)
	log.Debug("synthesis", "state", "init", "plant", plant.String(), "target", target, "closed", closed)

	if err := validateInput(plant, target); err != nil {
		return nil, err
	}

	log.Debug("synthesis", "state", "normalizing")
	open, original := plant, lti.Feedback(plant)
	if closed {
		var err error
		if open, err = lti.RecoverOpenLoop(plant); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		original = plant
	}
	if _, err := lti.Poles(original); err != nil {
		return nil, fmt.Errorf("%w: closed loop %s: %w", ErrInvalidInput, original, err)
	}

	res := &Result{
		Target:      target,
		Open:        open,
		Original:    original,
		Diagnostics: Diagnostics{SessionID: id},
	}
	diag := &res.Diagnostics

	log.Debug("synthesis", "state", "stability_check")
	if !lti.IsStable(original) {
		diag.Warnings = append(diag.Warnings, WarnUnstable)
		log.Warn(WarnUnstable, "system", original.String())
	} else if info, err := lti.Characteristics(original, s.Options); err == nil {
		diag.Original = &info
	}

	log.Debug("synthesis", "state", "searching")
	solver := s.Solver
	if solver == nil {
		solver = optim.NewSolver()
	}
	eval := NewEvaluator(open, target, s.Options)
	out, err := solver.Solve(ctx, eval.Evaluate, s.bounds(), s.initialGuess())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	diag.Attempts = out.Attempts
	diag.Evaluations = eval.Calls()
	diag.Message = out.Message
	diag.Converged = out.Converged

	if !out.Found {
		log.Debug("synthesis", "state", "not_converged", "attempts", out.Attempts)
		best := math.NaN()
		if diag.Evaluations > 0 {
			best = PenaltyCost
		}
		return res, &SynthesisError{Attempts: out.Attempts, Evaluations: diag.Evaluations, BestCost: best, Reason: out.Message}
	}

	controlled := lti.Feedback(lti.Series(PGain(out.Gain), open))
	res.Gain = out.Gain
	res.Controlled = &controlled
	diag.Cost = out.Cost
	if !out.Converged {
		diag.Warnings = append(diag.Warnings, fmt.Sprintf("search did not converge; using best gain found (cost %.4g)", out.Cost))
	}
	if info, err := lti.Characteristics(controlled, s.Options); err == nil {
		diag.Achieved = &info
	} else {
		diag.Warnings = append(diag.Warnings, fmt.Sprintf("controlled response not characterized: %v", err))
	}

	state := "converged"
	if !out.Converged {
		state = "not_converged"
	}
	log.Debug("synthesis", "state", state, "gain", out.Gain, "cost", out.Cost)
	return res, nil
}

func validateInput(plant lti.TransferFunction, target float64) error {
	if math.IsNaN(target) || math.IsInf(target, 0) || target <= 0 {
		return fmt.Errorf("%w: target settling time must be positive and finite, got %g", ErrInvalidInput, target)
	}
	if len(plant.Den()) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, lti.ErrInvalidSystem)
	}
	if !plant.IsProper() {
		return fmt.Errorf("%w: %w", ErrInvalidInput, lti.ErrImproper)
	}
	if plant.IsZero() {
		return fmt.Errorf("%w: plant has zero gain", ErrInvalidInput)
	}
	return nil
}

func (s *Synthesizer) bounds() optim.Bounds {
	if s.Bounds == (optim.Bounds{}) {
		return optim.DefaultBounds()
	}
	return s.Bounds
}

func (s *Synthesizer) initialGuess() float64 {
	if s.InitialGuess > 0 {
		return s.InitialGuess
	}
	return 1.0
}

func (s *Synthesizer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.DiscardHandler)
}
