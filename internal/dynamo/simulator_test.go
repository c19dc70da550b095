package dynamo

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/san-kum/dropsim/internal/mesh"
	"github.com/san-kum/dropsim/internal/ns"
)

// coarse is the default scenario on levels 3..5 over a short time.
func coarse() Config {
	cfg := DefaultConfig()
	cfg.MinLevel, cfg.MaxLevel, cfg.InitLevel = 3, 5, 5
	cfg.TEnd = 1e-4
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(c *Config)
		ok   bool
	}{
		{"default", func(c *Config) {}, true},
		{"negative density", func(c *Config) { c.Rho1 = -1 }, false},
		{"negative viscosity", func(c *Config) { c.Mu2 = -1e-5 }, false},
		{"angle above 180", func(c *Config) { c.Theta = 181 }, false},
		{"angle NaN", func(c *Config) { c.Theta = math.NaN() }, false},
		{"min above max", func(c *Config) { c.MinLevel = 8 }, false},
		{"init below min", func(c *Config) { c.InitLevel = 4 }, false},
		{"zero CFL", func(c *Config) { c.CFL = 0 }, false},
		{"zero tolerance", func(c *Config) { c.Tolerance = 0 }, false},
		{"planar axis", func(c *Config) { c.Axi = false }, false},
		{"planar walls", func(c *Config) {
			c.Axi = false
			c.Sides[mesh.Bottom] = ns.Symmetry
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid config, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestGeometryCentredOnWall(t *testing.T) {
	cfg := DefaultConfig()
	r := cfg.Radius
	if got := cfg.Geometry(0, 0); math.Abs(got-r*r) > 1e-18 {
		t.Errorf("expected %g at the centre, got %g", r*r, got)
	}
	if cfg.Geometry(1.01*r, 0) >= 0 || cfg.Geometry(0, 1.01*r) >= 0 {
		t.Error("points outside the radius should be in the gas")
	}
}

func TestStepBeforeInit(t *testing.T) {
	s, err := New(coarse())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Step(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := s.Run(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestInitFallsBackToGeometry(t *testing.T) {
	s, err := New(coarse())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Init(filepath.Join(t.TempDir(), "restart")); err != nil {
		t.Fatalf("missing restart should not fail: %v", err)
	}

	r := s.Config().Radius
	want := r * r * r / 3
	if v := s.InitialVolume(); math.Abs(v-want) > 0.02*want {
		t.Errorf("expected hemisphere volume %g, got %g", want, v)
	}
	if s.Mesh.FinestLevel() != 5 {
		t.Errorf("expected the interface on level 5, got %d", s.Mesh.FinestLevel())
	}
	for l, n := range s.Mesh.LevelCounts()[:3] {
		if n != 0 {
			t.Errorf("%d leaves on level %d below the minimum", n, l)
		}
	}
	if s.State().T != 0 || s.State().I != 0 {
		t.Errorf("expected a fresh clock, got %+v", s.State())
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	s, err := New(coarse())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Init(""); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.Step(); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "dump", "dump-3")
	if err := s.DumpFile(path); err != nil {
		t.Fatal(err)
	}

	r, err := New(coarse())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Init(path); err != nil {
		t.Fatal(err)
	}
	if r.State() != s.State() {
		t.Errorf("expected state %+v, got %+v", s.State(), r.State())
	}
	if r.Mesh.Leaves() != s.Mesh.Leaves() {
		t.Errorf("expected %d leaves, got %d", s.Mesh.Leaves(), r.Mesh.Leaves())
	}
	if r.Volume() != s.Volume() || r.InitialVolume() != s.InitialVolume() {
		t.Errorf("volumes differ: %g/%g vs %g/%g", r.Volume(), r.InitialVolume(), s.Volume(), s.InitialVolume())
	}
	for _, f := range s.Mesh.Fields() {
		g := r.Mesh.FieldByName(f.Name)
		for _, c := range s.Mesh.LeafCells() {
			a, b := f.At(s.Mesh, c.Level(), c.I(), c.J()), g.At(r.Mesh, c.Level(), c.I(), c.J())
			if a != b {
				t.Fatalf("%s at %v: expected %g, got %g", f.Name, c, a, b)
			}
		}
	}
}

func TestRestoreRejectsOtherDomain(t *testing.T) {
	s, err := New(coarse())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Init(""); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := s.Dump(&buf); err != nil {
		t.Fatal(err)
	}

	cfg := coarse()
	cfg.L0 *= 2
	other, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := other.Restore(&buf); !errors.Is(err, ErrCheckpoint) {
		t.Errorf("expected ErrCheckpoint, got %v", err)
	}
}

func TestSimulationErrorUnwraps(t *testing.T) {
	err := error(&SimulationError{Step: 7, Time: 1e-3, Wrapped: ErrUnstable})
	if !errors.Is(err, ErrUnstable) {
		t.Error("expected the wrapped error to match")
	}
	var se *SimulationError
	if !errors.As(err, &se) || se.Step != 7 {
		t.Errorf("expected step 7, got %v", err)
	}
}

type counter struct{ calls int }

func (c *counter) OnStep(*Simulator, StepStats) error {
	c.calls++
	return nil
}

func TestRunCanceled(t *testing.T) {
	s, err := New(coarse())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Init(""); err != nil {
		t.Fatal(err)
	}
	obs := &counter{}
	s.AddObserver(obs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := s.Run(ctx)
	if !errors.Is(err, ErrContextCanceled) {
		t.Errorf("expected ErrContextCanceled, got %v", err)
	}
	if res.Steps != 0 || obs.calls != 1 {
		t.Errorf("expected only the initial notification, got %d steps and %d calls", res.Steps, obs.calls)
	}
}

func TestEnsemble(t *testing.T) {
	var cfgs []Config
	for _, theta := range []float64{30, 90} {
		cfg := coarse()
		cfg.Theta = theta
		cfg.TEnd = 5e-6
		cfgs = append(cfgs, cfg)
	}
	counters := make([]*counter, len(cfgs))
	e := &Ensemble{Configs: cfgs, Setup: func(i int, s *Simulator) error {
		counters[i] = &counter{}
		s.AddObserver(counters[i])
		return nil
	}}
	results, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i, res := range results {
		if res.State.T != 5e-6 {
			t.Errorf("member %d: expected to stop at 5e-6, got %g", i, res.State.T)
		}
		if counters[i].calls != res.Steps+1 {
			t.Errorf("member %d: expected %d notifications, got %d", i, res.Steps+1, counters[i].calls)
		}
	}

	bad := coarse()
	bad.Rho2 = 0
	e = &Ensemble{Configs: []Config{coarse(), bad}}
	e.Configs[0].TEnd = 2e-6
	if _, err := e.Run(context.Background()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
