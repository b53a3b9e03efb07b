package config

import "sort"

// Presets are canonical plants with a settling-time target each.
var Presets = map[string]*Config{
	"unstable_first_order": preset("unstable_first_order", []float64{1}, []float64{1, -2}, 2),
	"second_order":         preset("second_order", []float64{1}, []float64{1, 3, 2}, 3),
	"type1_servo":          preset("type1_servo", []float64{1}, []float64{1, 1, 0}, 12),
	"third_order":          preset("third_order", []float64{1}, []float64{1, 3, 3, 1}, 10),
	"lightly_damped":       preset("lightly_damped", []float64{1}, []float64{1, 0.2, 1}, 15),
}

func preset(name string, num, den []float64, target float64) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Plant = PlantConfig{Num: num, Den: den}
	cfg.Target = target
	return cfg
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := *p
	cfg.Plant.Num = append([]float64(nil), p.Plant.Num...)
	cfg.Plant.Den = append([]float64(nil), p.Plant.Den...)
	return &cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
