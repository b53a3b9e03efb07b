package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/ptune/internal/lti"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultMaxAttempts, cfg.Solver.MaxAttempts)
	assert.Equal(t, "de", cfg.Solver.Global)
	assert.Equal(t, "zoh", cfg.Simulation.Method)
	assert.Greater(t, cfg.Solver.UpperBound, cfg.Solver.LowerBound)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero target", func(c *Config) { c.Target = 0 }},
		{"nan target", func(c *Config) { c.Target = math.NaN() }},
		{"empty den", func(c *Config) { c.Plant.Den = nil }},
		{"zero den", func(c *Config) { c.Plant.Den = []float64{0, 0} }},
		{"inf coefficient", func(c *Config) { c.Plant.Num = []float64{math.Inf(1)} }},
		{"improper", func(c *Config) { c.Plant.Num = []float64{1, 0, 0} }},
		{"reversed bounds", func(c *Config) { c.Solver.UpperBound = c.Solver.LowerBound }},
		{"no attempts", func(c *Config) { c.Solver.MaxAttempts = 0 }},
		{"unknown global", func(c *Config) { c.Solver.Global = "anneal" }},
		{"unknown method", func(c *Config) { c.Simulation.Method = "bdf" }},
		{"band too wide", func(c *Config) { c.Simulation.SettlingBand = 1.5 }},
		{"negative budget", func(c *Config) { c.Solver.Budget = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tune.yaml")

	cfg := DefaultConfig()
	cfg.Name = "servo"
	cfg.Plant = PlantConfig{Num: []float64{2}, Den: []float64{1, 3, 0}}
	cfg.Target = 4
	cfg.Solver.Budget = 30 * time.Second
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "plant:\n  num: [1]\n  den: [1, 1]\n  closed: true\ntarget: 3\nsolver:\n  global: grid\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Plant.Closed)
	assert.Equal(t, "grid", cfg.Solver.Global)
	assert.Equal(t, DefaultMaxAttempts, cfg.Solver.MaxAttempts)
	assert.Equal(t, DefaultSettlingBand, cfg.Simulation.SettlingBand)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("target: -1\n"), 0644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	garbled := filepath.Join(dir, "garbled.yaml")
	require.NoError(t, os.WriteFile(garbled, []byte("plant: [\n"), 0644))
	_, err = Load(garbled)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPresets(t *testing.T) {
	names := ListPresets()
	require.NotEmpty(t, names)
	assert.IsIncreasing(t, names)

	for _, name := range names {
		cfg := GetPreset(name)
		require.NotNil(t, cfg, name)
		assert.Equal(t, name, cfg.Name)
		assert.NoError(t, cfg.Validate(), name)
	}

	canonical := GetPreset("unstable_first_order")
	g, err := canonical.TransferFunction()
	require.NoError(t, err)
	assert.False(t, lti.IsStable(g))
	assert.Equal(t, 2.0, canonical.Target)
}

func TestGetPreset_ReturnsCopy(t *testing.T) {
	a := GetPreset("second_order")
	a.Plant.Den[0] = 42
	a.Target = 99

	b := GetPreset("second_order")
	assert.Equal(t, 1.0, b.Plant.Den[0])
	assert.Equal(t, 3.0, b.Target)
}

func TestGetPreset_NotFound(t *testing.T) {
	assert.Nil(t, GetPreset("nonexistent"))
}
