package metrics

import (
	"github.com/san-kum/dropsim/internal/contact"
	"github.com/san-kum/dropsim/internal/dynamo"
)

// probeSampler measures the contact line every few steps. Each measurement
// recomputes the heights, so sampling every step doubles their cost.
type probeSampler struct {
	every   int
	seen    int
	times   []float64
	samples []contact.Probe
}

func (p *probeSampler) observe(s *dynamo.Simulator) {
	p.seen++
	if p.every > 1 && (p.seen-1)%p.every != 0 {
		return
	}
	pr := s.Probe()
	if !pr.OK {
		return
	}
	p.times = append(p.times, s.State().T)
	p.samples = append(p.samples, pr)
}

func (p *probeSampler) reset() {
	p.seen = 0
	p.times = p.times[:0]
	p.samples = p.samples[:0]
}

// ContactAngle is the last apparent contact angle in degrees.
type ContactAngle struct {
	name string
	probeSampler
}

// NewContactAngle samples the angle on every n-th observed step.
func NewContactAngle(every int) *ContactAngle {
	return &ContactAngle{name: "contact_angle", probeSampler: probeSampler{every: every}}
}

func (c *ContactAngle) Name() string { return c.name }

func (c *ContactAngle) Observe(s *dynamo.Simulator, _ dynamo.StepStats) { c.observe(s) }

func (c *ContactAngle) Value() float64 {
	if len(c.samples) == 0 {
		return 0
	}
	return c.samples[len(c.samples)-1].Theta
}

// History returns the sample times and angles.
func (c *ContactAngle) History() (t, theta []float64) {
	theta = make([]float64, len(c.samples))
	for i, p := range c.samples {
		theta[i] = p.Theta
	}
	return c.times, theta
}

func (c *ContactAngle) Reset() { c.reset() }

// WettedRadius is the last radius of the wetted disc on the wall.
type WettedRadius struct {
	name string
	probeSampler
}

func NewWettedRadius(every int) *WettedRadius {
	return &WettedRadius{name: "wetted_radius", probeSampler: probeSampler{every: every}}
}

func (w *WettedRadius) Name() string { return w.name }

func (w *WettedRadius) Observe(s *dynamo.Simulator, _ dynamo.StepStats) { w.observe(s) }

func (w *WettedRadius) Value() float64 {
	if len(w.samples) == 0 {
		return 0
	}
	return w.samples[len(w.samples)-1].Radius
}

func (w *WettedRadius) History() (t, r []float64) {
	r = make([]float64, len(w.samples))
	for i, p := range w.samples {
		r[i] = p.Radius
	}
	return w.times, r
}

func (w *WettedRadius) Reset() { w.reset() }

// Default returns the metrics recorded by every run.
func Default() []dynamo.Metric {
	return []dynamo.Metric{
		NewMassDrift(),
		NewMaxDivergence(),
		NewConvergence(),
		NewKineticEnergy(),
		NewContactAngle(10),
		NewWettedRadius(10),
	}
}
