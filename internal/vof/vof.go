// Package vof represents the liquid by its volume fraction and moves it
// with geometric (PLIC) fluxes.
package vof

import "github.com/san-kum/dropsim/internal/mesh"

// Eps separates pure cells from interface cells.
const Eps = 1e-6

// IsInterface reports whether a fraction belongs to a mixed cell.
func IsInterface(c float64) bool { return c > Eps && c < 1-Eps }

// NewField registers a volume-fraction field with VOF-consistent
// prolongation and bounded conservative transfer.
func NewField(m *mesh.Mesh, name string) *mesh.Field {
	f := m.NewField(name, mesh.Symmetric)
	f.Refine = Refine
	f.Lo, f.Hi = 0, 1
	return f
}

// Refine splits a parent by cutting its PLIC reconstruction with the four
// child quadrants. Pure parents are injected.
func Refine(m *mesh.Mesh, f *mesh.Field, l, i, j int) [4]float64 {
	lv := m.Level(l)
	d := f.Data[l]
	c := d[lv.Index(i, j)]
	if c <= 0 || c >= 1 {
		v := clamp(c, 0, 1)
		return [4]float64{v, v, v, v}
	}

	n := Normal(Gather(d, lv, i, j))
	alpha := LineAlpha(c, n)
	var out [4]float64
	for k := range out {
		sx, sy := float64(2*(k&1)-1), float64(2*(k>>1)-1)
		out[k] = RectangleFraction(Coord{sx * n.X, sy * n.Y}, alpha, Coord{0, 0}, Coord{0.5, 0.5})
	}
	return out
}

// LevelSet is positive inside the liquid.
type LevelSet func(x, y float64) float64

// Fractions initialises f on leaves from a level-set function and
// synchronises the field.
func Fractions(m *mesh.Mesh, f *mesh.Field, phi LevelSet) {
	m.ForEachLeaf(func(l, i, j int) {
		d := m.Level(l).Delta
		x0, y0 := float64(i)*d, float64(j)*d
		f.Set(m, l, i, j, SquareFraction([4]float64{
			phi(x0, y0), phi(x0+d, y0), phi(x0+d, y0+d), phi(x0, y0+d),
		}))
	})
	m.Sync(f)
}

// Volume returns the liquid volume per radian (axisymmetric) or area.
func Volume(m *mesh.Mesh, f *mesh.Field) float64 {
	return m.SumLeaves(func(l, i, j int) float64 {
		return f.At(m, l, i, j) * m.Volume(l, j)
	})
}

// Segment is a piece of the reconstructed interface in physical coordinates.
type Segment struct{ A, B Coord }

// Facets returns the PLIC segments of every interface leaf, in leaf order.
func Facets(m *mesh.Mesh, f *mesh.Field) []Segment {
	var out []Segment
	for _, c := range m.LeafCells() {
		l, i, j := c.Level(), c.I(), c.J()
		lv := m.Level(l)
		d := f.Data[l]
		v := d[lv.Index(i, j)]
		if !IsInterface(v) {
			continue
		}
		n := Normal(Gather(d, lv, i, j))
		a, b, ok := LineSegment(n, LineAlpha(v, n))
		if !ok {
			continue
		}
		xc, yc, h := m.X(l, i), m.Y(l, j), lv.Delta
		out = append(out, Segment{
			A: Coord{xc + h*a.X, yc + h*a.Y},
			B: Coord{xc + h*b.X, yc + h*b.Y},
		})
	}
	return out
}
