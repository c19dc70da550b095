package dynamo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"

	"github.com/san-kum/dropsim/internal/adapt"
	"github.com/san-kum/dropsim/internal/contact"
	"github.com/san-kum/dropsim/internal/heights"
	"github.com/san-kum/dropsim/internal/mesh"
	"github.com/san-kum/dropsim/internal/ns"
	"github.com/san-kum/dropsim/internal/tension"
	"github.com/san-kum/dropsim/internal/timestep"
	"github.com/san-kum/dropsim/internal/vof"
)

// Simulator owns the mesh, the fields and the solver components of a run.
type Simulator struct {
	Mesh      *mesh.Mesh
	F         *mesh.Field
	Flow      *ns.Solver
	Heights   *heights.Field
	Curvature *heights.Curvature
	Tension   *tension.Force
	Angle     contact.Angle

	cfg       Config
	adv       *vof.Advector
	clock     *timestep.Controller
	driver    *adapt.Driver
	state     State
	volume0   float64
	failures  int
	ready     bool
	metrics   []Metric
	observers []Observer
}

// New validates cfg and allocates a simulator. Init must be called before
// stepping.
func New(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := mesh.New(cfg.L0, cfg.MinLevel, cfg.MaxLevel, cfg.InitLevel, cfg.Axi)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	angle, err := contact.New(cfg.Theta)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	s := &Simulator{Mesh: m, Angle: angle, cfg: cfg}
	s.F = vof.NewField(m, "f")
	s.Flow, err = ns.New(m, ns.Params{
		Rho1: cfg.Rho1, Rho2: cfg.Rho2,
		Mu1: cfg.Mu1, Mu2: cfg.Mu2,
		Body:      [2]float64{cfg.Body, 0},
		Tolerance: cfg.Tolerance,
		MaxIter:   cfg.MaxIter,
		Sides:     cfg.Sides,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var hc heights.Config
	for side, cond := range cfg.Sides {
		if cond == ns.Wall {
			hc.Walls[side] = true
			hc.Tangential[side] = angle
		}
	}
	s.Heights = heights.New(m, hc)
	s.Curvature = heights.NewCurvature(m)
	s.Tension = tension.New(m, cfg.Sigma, cfg.Rho1, cfg.Rho2, [2]float64{cfg.Gravity, 0})
	s.adv = vof.NewAdvector(m)
	s.clock, err = timestep.NewController(cfg.CFL, cfg.DTMax, cfg.DT)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	s.driver = &adapt.Driver{
		MinLevel: cfg.MinLevel,
		MaxLevel: cfg.MaxLevel,
		Criteria: []adapt.Criterion{
			{Field: s.F, Max: cfg.FError},
			{Field: s.Flow.U[0], Max: cfg.UError},
			{Field: s.Flow.U[1], Max: cfg.UError},
		},
	}
	if err := s.driver.Validate(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return s, nil
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Config() Config { return s.cfg }
func (s *Simulator) State() State   { return s.state }

// InitialVolume is the liquid volume (per radian when axisymmetric) at
// t = 0, carried through checkpoints.
func (s *Simulator) InitialVolume() float64 { return s.volume0 }

// Volume is the current liquid volume.
func (s *Simulator) Volume() float64 { return vof.Volume(s.Mesh, s.F) }

// Failures counts pressure solves that stopped before the tolerance.
func (s *Simulator) Failures() int { return s.failures }

// Init restores the checkpoint at restart when the file exists, and
// otherwise fills the drop from the initial geometry at rest.
func (s *Simulator) Init(restart string) error {
	if restart != "" {
		err := s.RestoreFile(restart)
		if err == nil {
			s.ready = true
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	s.Mesh.Reset(s.cfg.InitLevel)
	for _, f := range s.Mesh.Fields() {
		f.Fill(0)
	}
	// alternate fractions and adaptation until the interface is resolved
	for pass := 0; pass < 2*(s.cfg.MaxLevel+1); pass++ {
		vof.Fractions(s.Mesh, s.F, s.cfg.Geometry)
		if s.driver.Adapt(s.Mesh).Refined == 0 {
			break
		}
	}
	s.state = State{Dt: s.cfg.DT}
	s.volume0 = s.Volume()
	s.ready = true
	return nil
}

// nextEvent is the earliest time an observer or the end of the run must
// be hit exactly.
func (s *Simulator) nextEvent() float64 {
	next := s.cfg.TEnd
	for _, o := range s.observers {
		if sc, ok := o.(Scheduler); ok {
			if t := sc.NextEvent(s.state.T); t > s.state.T && t < next {
				next = t
			}
		}
	}
	return next
}

// Step advances the run by one time step.
func (s *Simulator) Step() (StepStats, error) {
	var st StepStats
	if !s.ready {
		return st, ErrNotInitialized
	}
	if s.state.T >= s.cfg.TEnd {
		return st, ErrFinished
	}
	fail := func(err error) (StepStats, error) {
		return st, &SimulationError{Step: s.state.I, Time: s.state.T, State: s.state, Wrapped: err}
	}

	m := s.Mesh
	target := s.nextEvent()
	dt := s.clock.Next(s.state.T, target,
		timestep.CFLLimit(m, s.Flow.U, s.cfg.CFL),
		tension.CapillaryDt(m, s.cfg.Sigma, s.cfg.Rho1, s.cfg.Rho2),
		s.Flow.ViscousDt(),
	)
	st.Dt = dt

	var err error
	s.Flow.Properties(s.F)
	if st.Prediction, err = s.Flow.Predict(dt); err != nil {
		return fail(err)
	}
	st.Advection = s.adv.Advect(s.F, s.Flow.Uf, dt, s.state.I)

	s.Heights.Compute(s.F)
	st.Curvature = s.Curvature.Compute(s.F, s.Heights)
	s.Tension.Compute(s.F, s.Curvature)
	if st.Projection, err = s.Flow.Advance(s.F, dt, s.Tension); err != nil {
		return fail(err)
	}
	if !st.Converged() {
		s.failures++
	}
	st.Divergence = s.Flow.Divergence()
	if v := s.Flow.MaxVelocity(); math.IsNaN(v) || math.IsInf(v, 0) {
		return fail(ErrUnstable)
	}

	t := s.state.T + dt
	if math.Abs(target-t) <= 1e-9*dt {
		t = target
	}
	s.state = State{T: t, I: s.state.I + 1, Dt: dt}

	st.Adapt = s.driver.Adapt(m)
	return st, nil
}

func (s *Simulator) notify(st StepStats) error {
	for _, o := range s.observers {
		if err := o.OnStep(s, st); err != nil {
			return &SimulationError{Step: s.state.I, Time: s.state.T, State: s.state, Wrapped: err}
		}
	}
	return nil
}

// Run steps until TEnd. Observers see the initial state first. The
// context only aborts the run.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	if !s.ready {
		return nil, ErrNotInitialized
	}
	for _, m := range s.metrics {
		m.Reset()
	}
	result := &Result{Metrics: make(map[string]float64)}
	finish := func() *Result {
		result.State = s.state
		result.Failures = s.failures
		for _, m := range s.metrics {
			result.Metrics[m.Name()] = m.Value()
		}
		return result
	}

	if err := s.notify(StepStats{Dt: s.state.Dt}); err != nil {
		return finish(), err
	}
	for s.state.T < s.cfg.TEnd {
		select {
		case <-ctx.Done():
			return finish(), fmt.Errorf("%w: %v", ErrContextCanceled, ctx.Err())
		default:
		}

		st, err := s.Step()
		if err != nil {
			return finish(), err
		}
		result.Steps++
		for _, m := range s.metrics {
			m.Observe(s, st)
		}
		if err := s.notify(st); err != nil {
			return finish(), err
		}
	}
	return finish(), nil
}

// Probe measures the contact angle and wetted radius on the current mesh.
func (s *Simulator) Probe() contact.Probe {
	s.Heights.Compute(s.F)
	return contact.Measure(s.Mesh, s.F, s.Heights)
}
