package dynamo

import (
	"bytes"
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// recorder checks every state the run passes through.
type recorder struct {
	steps     []StepStats
	minLevel  int
	maxLevel  int
	badBounds int
	badLevels int
}

func (r *recorder) OnStep(s *Simulator, st StepStats) error {
	m := s.Mesh
	m.ForEachLeaf(func(l, i, j int) {
		if v := s.F.At(m, l, i, j); v < 0 || v > 1 {
			r.badBounds++
		}
	})
	counts := m.LevelCounts()
	for l, n := range counts {
		if n > 0 && (l < r.minLevel || l > r.maxLevel) {
			r.badLevels++
		}
	}
	if s.State().I > 0 {
		r.steps = append(r.steps, st)
	}
	return nil
}

// event makes the run land on a fixed time.
type event struct{ at float64 }

func (e event) OnStep(*Simulator, StepStats) error { return nil }
func (e event) NextEvent(float64) float64         { return e.at }

func leafValues(s *Simulator, name string) []float64 {
	f := s.Mesh.FieldByName(name)
	var out []float64
	for _, c := range s.Mesh.LeafCells() {
		out = append(out, f.At(s.Mesh, c.Level(), c.I(), c.J()))
	}
	return out
}

var _ = Describe("Sessile drop on a coarse mesh", Ordered, func() {
	var (
		cfg Config
		sim *Simulator
		rec *recorder
		res *Result
	)

	BeforeAll(func() {
		cfg = coarse()
		var err error
		sim, err = New(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(sim.Init("")).To(Succeed())
		rec = &recorder{minLevel: cfg.MinLevel, maxLevel: cfg.MaxLevel}
		sim.AddObserver(rec)
		res, err = sim.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
	})

	It("stops exactly at the end time", func() {
		Expect(res.State.T).To(Equal(cfg.TEnd))
		Expect(res.Steps).To(Equal(len(rec.steps)))
		Expect(res.Steps).To(BeNumerically(">", 10))
	})

	It("conserves the liquid volume", func() {
		v0 := sim.InitialVolume()
		Expect(math.Abs(sim.Volume()-v0) / v0).To(BeNumerically("<", 1e-6))
	})

	It("keeps the volume fraction bounded", func() {
		Expect(rec.badBounds).To(BeZero())
	})

	It("never exceeds the step ceiling", func() {
		for _, st := range rec.steps {
			Expect(st.Dt).To(BeNumerically("<=", cfg.DTMax))
			Expect(st.Dt).To(BeNumerically(">", 0))
		}
	})

	It("keeps every leaf within the refinement bounds", func() {
		Expect(rec.badLevels).To(BeZero())
		Expect(sim.Mesh.Balanced()).To(BeTrue())
	})

	It("leaves a divergence-free face velocity when the projection converges", func() {
		for _, st := range rec.steps {
			if st.Projection.Converged {
				Expect(st.Divergence).To(BeNumerically("<=", cfg.Tolerance*(1+1e-6)))
			}
		}
		Expect(res.Failures).To(BeNumerically("<=", res.Steps))
	})

	It("keeps the velocity finite", func() {
		v := sim.Flow.MaxVelocity()
		Expect(math.IsNaN(v) || math.IsInf(v, 0)).To(BeFalse())
	})
})

// angles samples the contact line every few steps.
type angles struct {
	every  int
	theta  []float64
	failed int
}

func (a *angles) OnStep(s *Simulator, _ StepStats) error {
	if s.State().I%a.every != 0 {
		return nil
	}
	if p := s.Probe(); p.OK {
		a.theta = append(a.theta, p.Theta)
	} else {
		a.failed++
	}
	return nil
}

var _ = Describe("Sessile drop relaxing toward its contact angle", Label("long"), Ordered, func() {
	var (
		cfg Config
		sim *Simulator
		rec *recorder
		ang *angles
	)

	BeforeAll(func() {
		cfg = DefaultConfig()
		cfg.MinLevel, cfg.MaxLevel, cfg.InitLevel = 4, 6, 6
		cfg.TEnd = 0.006
		var err error
		sim, err = New(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(sim.Init("")).To(Succeed())
		rec = &recorder{minLevel: cfg.MinLevel, maxLevel: cfg.MaxLevel}
		ang = &angles{every: 20}
		sim.AddObserver(rec)
		sim.AddObserver(ang)
		res, err := sim.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.State.T).To(Equal(cfg.TEnd))
	})

	It("runs hundreds of steps under the ceiling", func() {
		Expect(len(rec.steps)).To(BeNumerically(">=", int(cfg.TEnd/cfg.DTMax)))
		for _, st := range rec.steps {
			Expect(st.Dt).To(BeNumerically("<=", cfg.DTMax))
		}
	})

	It("conserves the liquid volume", func() {
		v0 := sim.InitialVolume()
		Expect(math.Abs(sim.Volume()-v0) / v0).To(BeNumerically("<", 1e-6))
	})

	It("keeps the fraction bounded and the levels in range", func() {
		Expect(rec.badBounds).To(BeZero())
		Expect(rec.badLevels).To(BeZero())
		Expect(sim.Mesh.Balanced()).To(BeTrue())
	})

	It("spreads from 90 degrees toward the imposed angle", func() {
		Expect(len(ang.theta)).To(BeNumerically(">", 10))
		Expect(ang.failed).To(BeNumerically("<=", len(ang.theta)/10))

		Expect(ang.theta[0]).To(BeNumerically("~", 90, 5))
		last := ang.theta[len(ang.theta)-1]
		Expect(last).To(BeNumerically("<", 70))
		Expect(last).To(BeNumerically(">", cfg.Theta-15))
	})
})

var _ = Describe("Restart", func() {
	It("continues a run exactly where an uninterrupted run would be", func() {
		const half = 5e-5
		full := coarse()

		whole, err := New(full)
		Expect(err).NotTo(HaveOccurred())
		Expect(whole.Init("")).To(Succeed())
		whole.AddObserver(event{at: half})
		_, err = whole.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		first := full
		first.TEnd = half
		a, err := New(first)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Init("")).To(Succeed())
		_, err = a.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		var buf bytes.Buffer
		Expect(a.Dump(&buf)).To(Succeed())

		b, err := New(full)
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Restore(&buf)).To(Succeed())
		Expect(b.State().T).To(Equal(half))
		_, err = b.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(b.State()).To(Equal(whole.State()))
		Expect(b.Mesh.Leaves()).To(Equal(whole.Mesh.Leaves()))
		for _, name := range []string{"f", "u.x", "u.y", "p"} {
			want := leafValues(whole, name)
			got := leafValues(b, name)
			Expect(got).To(HaveLen(len(want)))
			for k := range want {
				Expect(got[k]).To(BeNumerically("~", want[k], 1e-9*(1+math.Abs(want[k]))), "%s[%d]", name, k)
			}
		}
	})
})
