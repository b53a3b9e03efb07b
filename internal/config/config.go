package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/san-kum/ptune/internal/lti"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTarget          = 2.0
	DefaultMaxAttempts     = 20
	DefaultLowerBound      = 0.001
	DefaultUpperBound      = 1000.0
	DefaultInitialGuess    = 1.0
	DefaultSeed            = 1
	DefaultPopulation      = 20
	DefaultGenerations     = 100
	DefaultGridPoints      = 400
	DefaultLocalIterations = 200
	DefaultSettlingBand    = 0.02
	DefaultVerifyDt        = 0.001
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Name       string           `yaml:"name,omitempty"`
	Plant      PlantConfig      `yaml:"plant"`
	Target     float64          `yaml:"target" validate:"gt=0,finite"`
	Solver     SolverConfig     `yaml:"solver"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// PlantConfig holds transfer-function coefficients, highest power first.
// Closed marks a plant that already includes the unity-feedback loop.
type PlantConfig struct {
	Num    []float64 `yaml:"num" validate:"required,min=1,dive,finite"`
	Den    []float64 `yaml:"den" validate:"required,min=1,dive,finite"`
	Closed bool      `yaml:"closed"`
}

type SolverConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" validate:"gte=1,lte=1000"`
	LowerBound      float64       `yaml:"lower_bound" validate:"gte=0,finite"`
	UpperBound      float64       `yaml:"upper_bound" validate:"gtfield=LowerBound,finite"`
	InitialGuess    float64       `yaml:"initial_guess" validate:"gt=0,finite"`
	Seed            uint64        `yaml:"seed"`
	Global          string        `yaml:"global" validate:"oneof=de grid none"`
	Population      int           `yaml:"population" validate:"gte=4"`
	Generations     int           `yaml:"generations" validate:"gte=1"`
	GridPoints      int           `yaml:"grid_points" validate:"gte=2"`
	Workers         int           `yaml:"workers" validate:"gte=0"`
	LocalIterations int           `yaml:"local_iterations" validate:"gte=1"`
	Budget          time.Duration `yaml:"budget" validate:"gte=0"`
}

// SimulationConfig selects how step responses are computed. Dt and Duration
// drive the closed-loop verification run; a zero Duration follows the
// response horizon.
type SimulationConfig struct {
	Method       string  `yaml:"method" validate:"oneof=zoh euler rk4 rk45"`
	SettlingBand float64 `yaml:"settling_band" validate:"gt=0,lt=1"`
	Dt           float64 `yaml:"dt" validate:"gt=0,finite"`
	Duration     float64 `yaml:"duration" validate:"gte=0,finite"`
}

func DefaultConfig() *Config {
	return &Config{
		Plant: PlantConfig{
			Num: []float64{1},
			Den: []float64{1, -2},
		},
		Target: DefaultTarget,
		Solver: SolverConfig{
			MaxAttempts:     DefaultMaxAttempts,
			LowerBound:      DefaultLowerBound,
			UpperBound:      DefaultUpperBound,
			InitialGuess:    DefaultInitialGuess,
			Seed:            DefaultSeed,
			Global:          "de",
			Population:      DefaultPopulation,
			Generations:     DefaultGenerations,
			GridPoints:      DefaultGridPoints,
			LocalIterations: DefaultLocalIterations,
		},
		Simulation: SimulationConfig{
			Method:       "zoh",
			SettlingBand: DefaultSettlingBand,
			Dt:           DefaultVerifyDt,
		},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

// Validate checks field ranges and that the plant is a proper transfer
// function.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	g, err := c.TransferFunction()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !g.IsProper() {
		return fmt.Errorf("%w: %w: %s", ErrInvalidConfig, lti.ErrImproper, g)
	}
	return nil
}

func (c *Config) TransferFunction() (lti.TransferFunction, error) {
	return lti.New(c.Plant.Num, c.Plant.Den)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
