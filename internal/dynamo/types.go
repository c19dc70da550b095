package dynamo

import (
	"fmt"
	"math"

	"github.com/san-kum/dropsim/internal/adapt"
	"github.com/san-kum/dropsim/internal/heights"
	"github.com/san-kum/dropsim/internal/mesh"
	"github.com/san-kum/dropsim/internal/ns"
	"github.com/san-kum/dropsim/internal/poisson"
	"github.com/san-kum/dropsim/internal/vof"
)

// Config holds every constant of a run. Phase 1 is the liquid.
type Config struct {
	L0        float64
	MinLevel  int
	MaxLevel  int
	InitLevel int
	Axi       bool
	Sides     [4]ns.Condition

	Rho1, Rho2 float64
	Mu1, Mu2   float64
	Sigma      float64
	// Gravity is the axial component of the reduced gravity.
	Gravity float64
	// Body is an extra uniform axial acceleration on every face.
	Body float64
	// Theta is the contact angle in degrees, measured through the liquid.
	Theta float64

	Radius    float64
	PoolDepth float64
	Gap       float64

	TEnd      float64
	DT        float64
	DTMax     float64
	CFL       float64
	Tolerance float64
	MaxIter   int

	FError float64
	UError float64
}

// DefaultConfig is a 2 mm water drop in air on a substrate with a 50
// degree contact angle.
func DefaultConfig() Config {
	const r = 0.005
	return Config{
		L0:        4 * r,
		MinLevel:  5,
		MaxLevel:  7,
		InitLevel: 7,
		Axi:       true,
		Sides:     ns.DefaultSides,
		Rho1:      998,
		Rho2:      1.2,
		Mu1:       1e-3,
		Mu2:       1.8e-5,
		Sigma:     0.0652,
		Gravity:   -9.81,
		Theta:     50,
		Radius:    r,
		PoolDepth: 0,
		Gap:       -r,
		TEnd:      0.3,
		DT:        1e-6,
		DTMax:     1e-5,
		CFL:       0.25,
		Tolerance: 1e-3,
		MaxIter:   100,
		FError:    1e-3,
		UError:    1e-3,
	}
}

func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case c.L0 <= 0:
		return bad("domain size %g", c.L0)
	case c.MinLevel < 0 || c.MinLevel > c.MaxLevel || c.MaxLevel > mesh.MaxDepth:
		return bad("levels [%d, %d]", c.MinLevel, c.MaxLevel)
	case c.InitLevel < c.MinLevel || c.InitLevel > c.MaxLevel:
		return bad("initial level %d outside [%d, %d]", c.InitLevel, c.MinLevel, c.MaxLevel)
	case c.Rho1 <= 0 || c.Rho2 <= 0:
		return bad("densities %g, %g", c.Rho1, c.Rho2)
	case c.Mu1 < 0 || c.Mu2 < 0:
		return bad("viscosities %g, %g", c.Mu1, c.Mu2)
	case c.Sigma < 0:
		return bad("surface tension %g", c.Sigma)
	case math.IsNaN(c.Theta) || c.Theta < 0 || c.Theta > 180:
		return bad("contact angle %g outside [0, 180]", c.Theta)
	case c.Radius <= 0:
		return bad("drop radius %g", c.Radius)
	case c.TEnd <= 0 || c.DT <= 0 || c.DTMax <= 0:
		return bad("times tEnd=%g DT=%g DTMax=%g", c.TEnd, c.DT, c.DTMax)
	case c.CFL <= 0 || c.CFL > 1:
		return bad("CFL %g", c.CFL)
	case c.Tolerance <= 0 || c.MaxIter <= 0:
		return bad("tolerance %g, %d iterations", c.Tolerance, c.MaxIter)
	case c.FError <= 0 || c.UError <= 0:
		return bad("adaptation thresholds %g, %g", c.FError, c.UError)
	}
	for side, cond := range c.Sides {
		if cond == ns.Axis && (!c.Axi || mesh.Side(side) != mesh.Bottom) {
			return bad("axis condition on the %v side", mesh.Side(side))
		}
	}
	return nil
}

// Geometry is positive inside the initial drop, a circle of radius Radius
// centred on the axis at x = PoolDepth + Radius + Gap.
func (c Config) Geometry(x, y float64) float64 {
	xc := c.PoolDepth + c.Radius + c.Gap
	return -((x-xc)*(x-xc) + y*y - c.Radius*c.Radius)
}

// State is the clock of a run.
type State struct {
	T  float64
	I  int
	Dt float64
}

// StepStats reports what happened during one step.
type StepStats struct {
	Dt         float64
	Prediction poisson.Stats
	Projection poisson.Stats
	// Divergence is the largest leaf divergence of the projected face
	// velocity, before adaptation.
	Divergence float64
	Advection  vof.AdvectStats
	Curvature  heights.Stats
	Adapt      adapt.Stats
}

// Converged reports whether both pressure solves met the tolerance.
func (s StepStats) Converged() bool {
	return s.Prediction.Converged && s.Projection.Converged
}

// Observer is called once before the first step and after every step.
type Observer interface {
	OnStep(s *Simulator, st StepStats) error
}

// Scheduler is implemented by observers that must see exact times. The
// step size is shortened so that the clock lands on NextEvent(t).
type Scheduler interface {
	NextEvent(t float64) float64
}

// Metric accumulates a scalar diagnostic over a run.
type Metric interface {
	Name() string
	Observe(s *Simulator, st StepStats)
	Value() float64
	Reset()
}

// Result summarises a run.
type Result struct {
	State    State
	Steps    int
	Failures int
	Metrics  map[string]float64
}
