// Package config reads and writes the YAML description of a run.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/dropsim/internal/dynamo"
	"github.com/san-kum/dropsim/internal/mesh"
	"github.com/san-kum/dropsim/internal/ns"
)

var ErrInvalid = errors.New("config: invalid configuration")

const (
	DefaultOutputEvery = 0.0005
	DefaultMovieEvery  = 1e-4
	DefaultLogEvery    = 10
	DefaultImageSize   = 800
	DefaultMovieSize   = 600
	DefaultVortRange   = 5e4
	DefaultGIFFrames   = 100
)

type Config struct {
	Name    string        `yaml:"name,omitempty"`
	Domain  DomainConfig  `yaml:"domain"`
	Fluids  FluidsConfig  `yaml:"fluids"`
	Contact ContactConfig `yaml:"contact"`
	Drop    DropConfig    `yaml:"drop"`
	Solver  SolverConfig  `yaml:"solver"`
	Adapt   AdaptConfig   `yaml:"adapt"`
	Output  OutputConfig  `yaml:"output"`
}

type DomainConfig struct {
	Size         float64     `yaml:"size"`
	MinLevel     int         `yaml:"min_level"`
	MaxLevel     int         `yaml:"max_level"`
	InitLevel    int         `yaml:"init_level"`
	Axisymmetric bool        `yaml:"axisymmetric"`
	Sides        SidesConfig `yaml:"sides"`
}

// SidesConfig names the condition on each side: wall, outflow, axis or
// symmetry.
type SidesConfig struct {
	Left   string `yaml:"left"`
	Right  string `yaml:"right"`
	Bottom string `yaml:"bottom"`
	Top    string `yaml:"top"`
}

type PhaseConfig struct {
	Density   float64 `yaml:"density"`
	Viscosity float64 `yaml:"viscosity"`
}

type FluidsConfig struct {
	Liquid  PhaseConfig `yaml:"liquid"`
	Gas     PhaseConfig `yaml:"gas"`
	Sigma   float64     `yaml:"sigma"`
	Gravity float64     `yaml:"gravity"`
	Body    float64     `yaml:"body"`
}

type ContactConfig struct {
	Angle float64 `yaml:"angle"`
}

type DropConfig struct {
	Radius    float64 `yaml:"radius"`
	PoolDepth float64 `yaml:"pool_depth"`
	Gap       float64 `yaml:"gap"`
}

type SolverConfig struct {
	TEnd      float64 `yaml:"t_end"`
	Dt        float64 `yaml:"dt"`
	DtMax     float64 `yaml:"dt_max"`
	CFL       float64 `yaml:"cfl"`
	Tolerance float64 `yaml:"tolerance"`
	MaxIter   int     `yaml:"max_iter"`
}

type AdaptConfig struct {
	FError float64 `yaml:"f_error"`
	UError float64 `yaml:"u_error"`
}

type OutputConfig struct {
	Dir        string  `yaml:"dir"`
	Every      float64 `yaml:"every"`
	MovieEvery float64 `yaml:"movie_every"`
	LogEvery   int     `yaml:"log_every"`
	ImageSize  int     `yaml:"image_size"`
	MovieSize  int     `yaml:"movie_size"`
	VortRange  float64 `yaml:"vorticity_range"`
	GIFFrames  int     `yaml:"gif_frames"`
	Restart    string  `yaml:"restart"`
}

// DefaultConfig is the sessile drop scenario.
func DefaultConfig() *Config {
	sim := dynamo.DefaultConfig()
	return &Config{
		Name: "sessile",
		Domain: DomainConfig{
			Size:         sim.L0,
			MinLevel:     sim.MinLevel,
			MaxLevel:     sim.MaxLevel,
			InitLevel:    sim.InitLevel,
			Axisymmetric: sim.Axi,
			Sides: SidesConfig{
				Left:   sim.Sides[mesh.Left].String(),
				Right:  sim.Sides[mesh.Right].String(),
				Bottom: sim.Sides[mesh.Bottom].String(),
				Top:    sim.Sides[mesh.Top].String(),
			},
		},
		Fluids: FluidsConfig{
			Liquid:  PhaseConfig{Density: sim.Rho1, Viscosity: sim.Mu1},
			Gas:     PhaseConfig{Density: sim.Rho2, Viscosity: sim.Mu2},
			Sigma:   sim.Sigma,
			Gravity: sim.Gravity,
			Body:    sim.Body,
		},
		Contact: ContactConfig{Angle: sim.Theta},
		Drop: DropConfig{
			Radius:    sim.Radius,
			PoolDepth: sim.PoolDepth,
			Gap:       sim.Gap,
		},
		Solver: SolverConfig{
			TEnd:      sim.TEnd,
			Dt:        sim.DT,
			DtMax:     sim.DTMax,
			CFL:       sim.CFL,
			Tolerance: sim.Tolerance,
			MaxIter:   sim.MaxIter,
		},
		Adapt: AdaptConfig{FError: sim.FError, UError: sim.UError},
		Output: OutputConfig{
			Dir:        ".",
			Every:      DefaultOutputEvery,
			MovieEvery: DefaultMovieEvery,
			LogEvery:   DefaultLogEvery,
			ImageSize:  DefaultImageSize,
			MovieSize:  DefaultMovieSize,
			VortRange:  DefaultVortRange,
			GIFFrames:  DefaultGIFFrames,
			Restart:    "restart",
		},
	}
}

// Load reads path over the defaults, so a file only needs the values it
// changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}

func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func Save(path string, cfg *Config) error {
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Simulation converts the file layout into the solver configuration.
func (c *Config) Simulation() (dynamo.Config, error) {
	var sides [4]ns.Condition
	for side, name := range map[mesh.Side]string{
		mesh.Left:   c.Domain.Sides.Left,
		mesh.Right:  c.Domain.Sides.Right,
		mesh.Bottom: c.Domain.Sides.Bottom,
		mesh.Top:    c.Domain.Sides.Top,
	} {
		cond, err := ns.ParseCondition(name)
		if err != nil {
			return dynamo.Config{}, fmt.Errorf("%w: %s side: %v", ErrInvalid, side, err)
		}
		sides[side] = cond
	}
	return dynamo.Config{
		L0:        c.Domain.Size,
		MinLevel:  c.Domain.MinLevel,
		MaxLevel:  c.Domain.MaxLevel,
		InitLevel: c.Domain.InitLevel,
		Axi:       c.Domain.Axisymmetric,
		Sides:     sides,
		Rho1:      c.Fluids.Liquid.Density,
		Rho2:      c.Fluids.Gas.Density,
		Mu1:       c.Fluids.Liquid.Viscosity,
		Mu2:       c.Fluids.Gas.Viscosity,
		Sigma:     c.Fluids.Sigma,
		Gravity:   c.Fluids.Gravity,
		Body:      c.Fluids.Body,
		Theta:     c.Contact.Angle,
		Radius:    c.Drop.Radius,
		PoolDepth: c.Drop.PoolDepth,
		Gap:       c.Drop.Gap,
		TEnd:      c.Solver.TEnd,
		DT:        c.Solver.Dt,
		DTMax:     c.Solver.DtMax,
		CFL:       c.Solver.CFL,
		Tolerance: c.Solver.Tolerance,
		MaxIter:   c.Solver.MaxIter,
		FError:    c.Adapt.FError,
		UError:    c.Adapt.UError,
	}, nil
}

// Validate checks the solver parameters and the output schedule.
func (c *Config) Validate() error {
	sim, err := c.Simulation()
	if err != nil {
		return err
	}
	if err := sim.Validate(); err != nil {
		return err
	}
	o := c.Output
	switch {
	case o.Every <= 0 || o.MovieEvery <= 0:
		return fmt.Errorf("%w: output intervals %g, %g", ErrInvalid, o.Every, o.MovieEvery)
	case o.LogEvery <= 0:
		return fmt.Errorf("%w: log interval %d", ErrInvalid, o.LogEvery)
	case o.ImageSize <= 0 || o.MovieSize <= 0:
		return fmt.Errorf("%w: image sizes %d, %d", ErrInvalid, o.ImageSize, o.MovieSize)
	case o.VortRange <= 0:
		return fmt.Errorf("%w: vorticity range %g", ErrInvalid, o.VortRange)
	case o.GIFFrames < 0:
		return fmt.Errorf("%w: gif frames %d", ErrInvalid, o.GIFFrames)
	}
	return nil
}
