// Package timestep chooses the step size from the stability limits, a hard
// ceiling and the times at which output is due.
package timestep

import (
	"errors"
	"math"

	"github.com/san-kum/dropsim/internal/mesh"
)

var ErrController = errors.New("timestep: CFL, ceiling and initial step must be positive")

// Controller relaxes the step towards the smallest limit when that limit
// grows. The ceiling counts as a limit and is never exceeded.
type Controller struct {
	CFL     float64
	Ceiling float64

	previous float64
}

// NewController seeds the growth limiter with the initial step.
func NewController(cfl, ceiling, initial float64) (*Controller, error) {
	if cfl <= 0 || ceiling <= 0 || initial <= 0 {
		return nil, ErrController
	}
	return &Controller{CFL: cfl, Ceiling: ceiling, previous: math.Min(initial, ceiling)}, nil
}

// Previous is the last step chosen before alignment with output times.
func (c *Controller) Previous() float64 { return c.previous }

// Restore resets the growth limiter, e.g. after loading a checkpoint.
func (c *Controller) Restore(previous float64) {
	if previous > 0 {
		c.previous = previous
	}
}

// Next returns the step to take from t. limits are the stability bounds
// (non-positive or infinite entries are ignored); next is the following
// time that must be hit exactly, or +Inf.
func (c *Controller) Next(t, next float64, limits ...float64) float64 {
	dt := c.Ceiling
	for _, l := range limits {
		if l > 0 && l < dt {
			dt = l
		}
	}
	if dt > c.previous {
		dt = (c.previous + 0.1*dt) / 1.1
	}
	c.previous = dt
	return Align(t, next, dt)
}

// Align shortens dt so that an integer number of equal steps reaches next.
func Align(t, next, dt float64) float64 {
	if math.IsInf(next, 1) || next <= t {
		return dt
	}
	span := next - t
	n := math.Floor(span / dt)
	if n == 0 {
		return span
	}
	dt1 := span / n
	if dt1 > dt*(1+1e-8) {
		return span / (n + 1)
	}
	return math.Min(dt, dt1)
}

// CFLLimit returns CFL * min(Δ/|u|) over leaves, +Inf at rest.
func CFLLimit(m *mesh.Mesh, u [2]*mesh.Field, cfl float64) float64 {
	rate := m.MaxLeaves(func(l, i, j int) float64 {
		s := math.Max(math.Abs(u[0].At(m, l, i, j)), math.Abs(u[1].At(m, l, i, j)))
		return s / m.Level(l).Delta
	})
	if rate == 0 {
		return math.Inf(1)
	}
	return cfl / rate
}
