// Package metrics accumulates scalar diagnostics of a sessile-drop run.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/dropsim/internal/dynamo"
)

// MassDrift is the largest relative change of the liquid volume since
// t = 0.
type MassDrift struct {
	name    string
	history []float64
}

func NewMassDrift() *MassDrift {
	return &MassDrift{name: "mass_drift"}
}

func (m *MassDrift) Name() string { return m.name }

func (m *MassDrift) Observe(s *dynamo.Simulator, _ dynamo.StepStats) {
	v0 := s.InitialVolume()
	if v0 == 0 {
		return
	}
	m.history = append(m.history, math.Abs(s.Volume()-v0)/v0)
}

func (m *MassDrift) Value() float64 {
	if len(m.history) == 0 {
		return 0
	}
	return floats.Max(m.history)
}

// History returns the relative drift after every observed step.
func (m *MassDrift) History() []float64 { return m.history }

func (m *MassDrift) Reset() {
	m.history = m.history[:0]
}
