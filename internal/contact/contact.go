// Package contact imposes a static contact angle at a solid wall through
// the height functions running along the wall, and measures the apparent
// angle of the interface there.
package contact

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/dropsim/internal/heights"
	"github.com/san-kum/dropsim/internal/mesh"
	"github.com/san-kum/dropsim/internal/vof"
)

var ErrAngle = errors.New("contact: angle must lie in [0, 180] degrees")

// Angle is the height boundary rule for a wall with contact angle Theta
// (radians, measured through the liquid).
type Angle struct {
	Theta float64
}

// New validates an angle given in degrees.
func New(degrees float64) (Angle, error) {
	if math.IsNaN(degrees) || degrees < 0 || degrees > 180 {
		return Angle{}, fmt.Errorf("%w: %g", ErrAngle, degrees)
	}
	return Angle{Theta: degrees * math.Pi / 180}, nil
}

// Ghost extrapolates the interface height one cell into the wall so that
// the interface meets the wall at Theta. The slope at the wall is
// -cot(Theta) along the outward direction, which by mirror symmetry holds
// for every side. Undefined interior heights, and angles of 0 or 180
// degrees, give an undefined ghost.
func (a Angle) Ghost(_ mesh.Side, in heights.Height) heights.Height {
	s := math.Sin(a.Theta)
	if !in.Defined() || s < 1e-9 {
		return heights.Height{}
	}
	cot := math.Cos(a.Theta) / s
	return heights.Height{H: in.H + float64(in.O)*cot, O: in.O}
}

func (a Angle) Degrees() float64 { return a.Theta * 180 / math.Pi }

// Probe is the apparent contact line state at the left wall.
type Probe struct {
	Theta  float64 // degrees
	Radius float64 // wetted radius
	OK     bool
}

// Measure returns the apparent contact angle and wetted radius at the wall
// x = 0. The contact line is the outermost interface cell of the wall
// column whose own height lies inside it; cells above it holding only
// debris are skipped. When no cell qualifies, the outermost cell with a
// usable stencil is taken. The y-heights of the first three columns on its
// row are extrapolated to the wall with a parabola, or a straight line
// when only two are defined.
func Measure(m *mesh.Mesh, f *mesh.Field, hf *heights.Field) Probe {
	var wall []mesh.Cell
	for _, c := range m.LeafCells() {
		if c.I() == 0 && vof.IsInterface(f.At(m, c.Level(), 0, c.J())) {
			wall = append(wall, c)
		}
	}
	sort.Slice(wall, func(a, b int) bool {
		return m.Y(wall[a].Level(), wall[a].J()) > m.Y(wall[b].Level(), wall[b].J())
	})

	var fallback Probe
	for _, c := range wall {
		p, inside := measureAt(m, hf, c.Level(), c.J())
		if !p.OK {
			continue
		}
		if inside {
			return p
		}
		if !fallback.OK {
			fallback = p
		}
	}
	return fallback
}

// measureAt extrapolates the heights on row j of level l to the wall and
// reports whether the wall column height falls inside its own cell.
func measureAt(m *mesh.Mesh, hf *heights.Field, l, j int) (Probe, bool) {
	h0 := hf.At(mesh.Y, l, 0, j)
	h1 := hf.At(mesh.Y, l, 1, j)
	h2 := hf.At(mesh.Y, l, 2, j)
	if !h0.Defined() || h1.O != h0.O {
		return Probe{}, false
	}

	// positions are in cells from the centre of column 0; the wall is at -1/2
	slope, wall := h1.H-h0.H, h0.H-(h1.H-h0.H)/2
	if h2.O == h0.O {
		c1 := (h2.H - h0.H) / 2
		c2 := (h2.H - 2*h1.H + h0.H) / 2
		// parabola centred on column 1, evaluated at t = -3/2
		slope = c1 - 3*c2
		wall = h1.H - 1.5*c1 + 2.25*c2
	}
	cos := -float64(h0.O) * slope / math.Sqrt(1+slope*slope)
	return Probe{
		Theta:  math.Acos(cos) * 180 / math.Pi,
		Radius: m.Y(l, j) + wall*m.Level(l).Delta,
		OK:     true,
	}, math.Abs(h0.H) <= 0.5
}
