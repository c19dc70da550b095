package metrics

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/dropsim/internal/dynamo"
)

// MaxDivergence is the largest divergence left by the projections.
type MaxDivergence struct {
	name    string
	history []float64
}

func NewMaxDivergence() *MaxDivergence {
	return &MaxDivergence{name: "max_divergence"}
}

func (d *MaxDivergence) Name() string { return d.name }

func (d *MaxDivergence) Observe(_ *dynamo.Simulator, st dynamo.StepStats) {
	d.history = append(d.history, st.Divergence)
}

func (d *MaxDivergence) Value() float64 {
	if len(d.history) == 0 {
		return 0
	}
	return floats.Max(d.history)
}

func (d *MaxDivergence) Reset() { d.history = d.history[:0] }

// Convergence is the fraction of steps whose pressure solves both reached
// the tolerance.
type Convergence struct {
	name     string
	failures int
	samples  int
}

func NewConvergence() *Convergence {
	return &Convergence{name: "convergence"}
}

func (c *Convergence) Name() string { return c.name }

func (c *Convergence) Observe(_ *dynamo.Simulator, st dynamo.StepStats) {
	c.samples++
	if !st.Converged() {
		c.failures++
	}
}

func (c *Convergence) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.failures)/float64(c.samples)
}

// Failures is the number of steps that did not converge.
func (c *Convergence) Failures() int { return c.failures }

func (c *Convergence) Reset() {
	c.failures = 0
	c.samples = 0
}

// KineticEnergy is the kinetic energy per radian of both phases at the
// last observed step.
type KineticEnergy struct {
	name    string
	history []float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(s *dynamo.Simulator, _ dynamo.StepStats) {
	k.history = append(k.history, Kinetic(s))
}

func (k *KineticEnergy) Value() float64 {
	if len(k.history) == 0 {
		return 0
	}
	return k.history[len(k.history)-1]
}

// History returns the energy after every observed step.
func (k *KineticEnergy) History() []float64 { return k.history }

func (k *KineticEnergy) Reset() { k.history = k.history[:0] }

// Kinetic sums rho |u|^2 / 2 over the leaves of s.
func Kinetic(s *dynamo.Simulator) float64 {
	m := s.Mesh
	cfg := s.Config()
	u := s.Flow.U
	return m.SumLeaves(func(l, i, j int) float64 {
		c := s.F.At(m, l, i, j)
		rho := c*cfg.Rho1 + (1-c)*cfg.Rho2
		ux, uy := u[0].At(m, l, i, j), u[1].At(m, l, i, j)
		return rho * (ux*ux + uy*uy) / 2 * m.Volume(l, j)
	})
}
