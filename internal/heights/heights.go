// Package heights computes height functions and interface curvature from a
// volume-fraction field.
package heights

import (
	"github.com/san-kum/dropsim/internal/mesh"
	"github.com/san-kum/dropsim/internal/vof"
)

// HalfWidth is the number of cells summed on each side of the centre cell.
const HalfWidth = 3

// Height is the position of the interface along a column, in cell sizes
// relative to the cell centre. O is +1 when the liquid lies on the low
// side of the column, -1 when it lies on the high side and 0 when the
// height is undefined.
type Height struct {
	H float64
	O int8
}

func (h Height) Defined() bool { return h.O != 0 }

// Boundary supplies the ghost height, along a side, from the height of the
// adjacent interior cell.
type Boundary interface {
	Ghost(side mesh.Side, interior Height) Height
}

// Mirror continues heights symmetrically (axis, symmetry planes).
type Mirror struct{}

func (Mirror) Ghost(_ mesh.Side, in Height) Height { return in }

// Config describes how columns interact with the domain sides.
type Config struct {
	// Tangential rules fill the heights running along each side: y-heights
	// for Left/Right, x-heights for Bottom/Top.
	Tangential [4]Boundary
	// Walls are sides that columns may not cross.
	Walls [4]bool
}

// Field holds x- and y-heights on every level.
type Field struct {
	m   *mesh.Mesh
	cfg Config
	h   [2][][]float64
	o   [2][][]int8
}

func New(m *mesh.Mesh, cfg Config) *Field {
	for s, b := range cfg.Tangential {
		if b == nil {
			cfg.Tangential[s] = Mirror{}
		}
	}
	hf := &Field{m: m, cfg: cfg}
	for d := range hf.h {
		hf.h[d] = make([][]float64, m.MaxLevel+1)
		hf.o[d] = make([][]int8, m.MaxLevel+1)
		for l := range hf.h[d] {
			n := m.Level(l).Size()
			hf.h[d][l] = make([]float64, n)
			hf.o[d][l] = make([]int8, n)
		}
	}
	return hf
}

// At returns the d-height of (l, i, j); i or j may be one cell outside the
// domain.
func (hf *Field) At(d mesh.Dim, l, i, j int) Height {
	k := hf.m.Level(l).Index(i, j)
	return Height{H: hf.h[d][l][k], O: hf.o[d][l][k]}
}

// Compute rebuilds all heights from f, which must be synchronised.
func (hf *Field) Compute(f *mesh.Field) {
	m := hf.m
	for l := 0; l <= m.MaxLevel; l++ {
		lv := m.Level(l)
		for _, d := range []mesh.Dim{mesh.X, mesh.Y} {
			hd, od := hf.h[d][l], hf.o[d][l]
			for k := range od {
				od[k] = 0
			}
			off := lv.Offset(d)
			data := f.Data[l]
			mesh.ParallelFor(lv.N, 8, func(start, end int) {
				for i := start; i < end; i++ {
					for j := 0; j < lv.N; j++ {
						if hf.crossesWall(d, lv.N, i, j) {
							continue
						}
						k := lv.Index(i, j)
						h, o := column(data, k, off)
						hd[k], od[k] = h, o
					}
				}
			})
			hf.fillGhosts(d, l)
		}
	}
}

func (hf *Field) crossesWall(d mesh.Dim, n, i, j int) bool {
	p := i
	lo, hi := mesh.Left, mesh.Right
	if d == mesh.Y {
		p = j
		lo, hi = mesh.Bottom, mesh.Top
	}
	return (hf.cfg.Walls[lo] && p-HalfWidth < 0) || (hf.cfg.Walls[hi] && p+HalfWidth >= n)
}

// column sums the fractions of the 2*HalfWidth+1 cells centred on k.
func column(d []float64, k, off int) (float64, int8) {
	const eps = vof.Eps
	var sum float64
	for s := -HalfWidth; s <= HalfWidth; s++ {
		v := d[k+s*off]
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		sum += v
	}
	lo, hi := d[k-HalfWidth*off], d[k+HalfWidth*off]
	switch {
	case lo >= 1-eps && hi <= eps:
		return sum - HalfWidth - 0.5, 1
	case lo <= eps && hi >= 1-eps:
		return HalfWidth + 0.5 - sum, -1
	}
	return 0, 0
}

// fillGhosts applies the tangential rules to the first ghost layer.
func (hf *Field) fillGhosts(d mesh.Dim, l int) {
	lv := hf.m.Level(l)
	hd, od := hf.h[d][l], hf.o[d][l]
	apply := func(side mesh.Side, ghost, interior int) {
		g := hf.cfg.Tangential[side].Ghost(side, Height{H: hd[interior], O: od[interior]})
		hd[ghost], od[ghost] = g.H, g.O
	}
	n := lv.N
	if d == mesh.Y {
		for j := 0; j < n; j++ {
			apply(mesh.Left, lv.Index(-1, j), lv.Index(0, j))
			apply(mesh.Right, lv.Index(n, j), lv.Index(n-1, j))
		}
		return
	}
	for i := 0; i < n; i++ {
		apply(mesh.Bottom, lv.Index(i, -1), lv.Index(i, 0))
		apply(mesh.Top, lv.Index(i, n), lv.Index(i, n-1))
	}
}
