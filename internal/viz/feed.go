package viz

import (
	"math"

	"github.com/san-kum/dropsim/internal/contact"
	"github.com/san-kum/dropsim/internal/dynamo"
	"github.com/san-kum/dropsim/internal/vof"
)

// Snapshot is what the live view shows of one step.
type Snapshot struct {
	State    dynamo.State
	TEnd     float64
	L0       float64
	Leaves   int
	Facets   []vof.Segment
	UMax     float64
	Drift    float64
	Failures int
	Probe    contact.Probe
}

// Feed is an observer that hands snapshots to the live view. A snapshot
// the view has not picked up yet is replaced by the newer one, so the run
// never waits for the terminal.
type Feed struct {
	ch    chan Snapshot
	every int
}

// NewFeed takes a snapshot every n steps.
func NewFeed(n int) *Feed {
	return &Feed{ch: make(chan Snapshot, 1), every: max(1, n)}
}

func (f *Feed) Snapshots() <-chan Snapshot { return f.ch }

func (f *Feed) OnStep(s *dynamo.Simulator, _ dynamo.StepStats) error {
	state := s.State()
	if state.I%f.every != 0 {
		return nil
	}
	cfg := s.Config()
	v0 := s.InitialVolume()
	snap := Snapshot{
		State:    state,
		TEnd:     cfg.TEnd,
		L0:       cfg.L0,
		Leaves:   s.Mesh.Leaves(),
		Facets:   vof.Facets(s.Mesh, s.F),
		UMax:     s.Flow.MaxVelocity(),
		Failures: s.Failures(),
		Probe:    s.Probe(),
	}
	if v0 > 0 {
		snap.Drift = math.Abs(s.Volume()-v0) / v0
	}
	select {
	case f.ch <- snap:
	default:
		select {
		case <-f.ch:
		default:
		}
		f.ch <- snap
	}
	return nil
}

// Close tells the view the run is over. No OnStep may follow.
func (f *Feed) Close() { close(f.ch) }
