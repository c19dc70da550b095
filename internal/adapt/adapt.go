// Package adapt refines and coarsens the mesh from a wavelet estimate of
// the interpolation error of selected fields.
package adapt

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/dropsim/internal/mesh"
)

var ErrDriver = errors.New("adapt: invalid driver")

// Criterion refines where the wavelet of Field exceeds Max.
type Criterion struct {
	Field *mesh.Field
	Max   float64
}

// Driver applies the criteria within [MinLevel, MaxLevel].
type Driver struct {
	MinLevel int
	MaxLevel int
	Criteria []Criterion
}

// Stats counts the changes of one adaptation.
type Stats struct {
	Refined   int
	Coarsened int
	Leaves    int
}

func (s Stats) String() string {
	return fmt.Sprintf("refined=%d coarsened=%d leaves=%d", s.Refined, s.Coarsened, s.Leaves)
}

func (d *Driver) Validate(m *mesh.Mesh) error {
	if d.MinLevel < 0 || d.MinLevel > d.MaxLevel || d.MaxLevel > m.MaxLevel {
		return fmt.Errorf("%w: levels [%d, %d] outside [0, %d]", ErrDriver, d.MinLevel, d.MaxLevel, m.MaxLevel)
	}
	for _, c := range d.Criteria {
		if c.Field == nil || c.Max <= 0 {
			return fmt.Errorf("%w: criteria need a field and a positive threshold", ErrDriver)
		}
	}
	return nil
}

// Wavelet is the difference between the leaf value of f and its bilinear
// prediction from the parent level. Level 0 has no prediction.
func Wavelet(m *mesh.Mesh, f *mesh.Field, l, i, j int) float64 {
	if l == 0 {
		return 0
	}
	pred := mesh.RefineBilinear(m, f, l-1, i/2, j/2)
	return math.Abs(f.At(m, l, i, j) - pred[(i&1)+2*(j&1)])
}

const (
	keep int8 = iota
	refine
	coarsen
)

// Adapt synchronises every registered field, refines leaves whose wavelet
// exceeds a threshold (or that lie below MinLevel) and merges sibling
// leaves whose wavelets all lie below two thirds of every threshold.
// Coarsening removes at most one level per call. Refinement and
// coarsening keep the 2:1 balance; registered fields are transferred by
// their prolongation and restriction operators.
func (d *Driver) Adapt(m *mesh.Mesh) Stats {
	m.SyncAll()

	marks := make([][]int8, m.MaxLevel+1)
	for l := range marks {
		marks[l] = make([]int8, m.Level(l).N*m.Level(l).N)
	}
	m.ForEachLeaf(func(l, i, j int) {
		n := m.Level(l).N
		if l < d.MinLevel {
			marks[l][i*n+j] = refine
			return
		}
		small := true
		for _, c := range d.Criteria {
			w := Wavelet(m, c.Field, l, i, j)
			if w > c.Max && l < d.MaxLevel {
				marks[l][i*n+j] = refine
				return
			}
			if w >= 2*c.Max/3 {
				small = false
			}
		}
		if small || l > d.MaxLevel {
			marks[l][i*n+j] = coarsen
		}
	})

	var st Stats
	for _, c := range m.LeafCells() {
		l := c.Level()
		if marks[l][c.I()*m.Level(l).N+c.J()] == refine {
			st.Refined += m.Refine(c)
		}
	}

	for l := m.MaxLevel; l > 0; l-- {
		if l-1 < d.MinLevel {
			break
		}
		lv, parent := m.Level(l), m.Level(l-1)
		for pi := 0; pi < parent.N; pi++ {
			for pj := 0; pj < parent.N; pj++ {
				if parent.State(pi, pj) != mesh.Refined {
					continue
				}
				p := mesh.MakeCell(l-1, pi, pj)
				all := true
				for k := 0; k < 4 && all; k++ {
					ch := p.Child(k)
					all = lv.IsLeaf(ch.I(), ch.J()) && marks[l][ch.I()*lv.N+ch.J()] == coarsen
				}
				if all && m.Coarsen(p) {
					st.Coarsened++
				}
			}
		}
	}

	m.SyncAll()
	st.Leaves = m.Leaves()
	return st
}
