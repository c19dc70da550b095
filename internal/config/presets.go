package config

import "sort"

var Presets = map[string]*Config{
	"sessile": DefaultConfig(),
	"gravity": gravity(),
	"coarse":  coarse(),
	"wetting": wetting(),
	"drying":  drying(),
}

// gravity adds a uniform -9.81 body acceleration on top of the reduced
// gravity.
func gravity() *Config {
	c := DefaultConfig()
	c.Name = "gravity"
	c.Fluids.Body = -9.81
	return c
}

// coarse is a quick run on levels 3..5.
func coarse() *Config {
	c := DefaultConfig()
	c.Name = "coarse"
	c.Domain.MinLevel, c.Domain.MaxLevel, c.Domain.InitLevel = 3, 5, 5
	c.Solver.TEnd = 0.01
	c.Output.ImageSize, c.Output.MovieSize = 200, 200
	return c
}

func wetting() *Config {
	c := DefaultConfig()
	c.Name = "wetting"
	c.Contact.Angle = 30
	return c
}

func drying() *Config {
	c := DefaultConfig()
	c.Name = "drying"
	c.Contact.Angle = 120
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
