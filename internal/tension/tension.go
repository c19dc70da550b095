// Package tension computes the interfacial acceleration due to surface
// tension and reduced gravity. Both are written as a potential phi times the
// gradient of the volume fraction, discretised on the same face stencil as
// the pressure gradient so that a static interface is balanced exactly by
// pressure.
package tension

import (
	"math"

	"github.com/san-kum/dropsim/internal/heights"
	"github.com/san-kum/dropsim/internal/mesh"
	"github.com/san-kum/dropsim/internal/vof"
)

// Force holds the physical parameters and the interfacial potential.
type Force struct {
	Sigma      float64
	Rho1, Rho2 float64
	// G is the gravity vector (x, y). Only the density jump across the
	// interface feels it; the hydrostatic part is absorbed by the pressure.
	G [2]float64

	m       *mesh.Mesh
	phi     *mesh.Field
	defined [][]bool
}

func New(m *mesh.Mesh, sigma, rho1, rho2 float64, g [2]float64) *Force {
	t := &Force{
		Sigma: sigma,
		Rho1:  rho1,
		Rho2:  rho2,
		G:     g,
		m:     m,
		phi:   m.NewScratch("phi", mesh.Symmetric),
	}
	t.defined = make([][]bool, m.MaxLevel+1)
	for l := range t.defined {
		t.defined[l] = make([]bool, m.Level(l).Size())
	}
	return t
}

// Rho is the density of a cell or face with volume fraction c.
func (t *Force) Rho(c float64) float64 {
	c = math.Min(1, math.Max(0, c))
	return c*t.Rho1 + (1-c)*t.Rho2
}

// Potential returns phi at (l, i, j) and whether it is defined there.
func (t *Force) Potential(l, i, j int) (float64, bool) {
	k := t.m.Level(l).Index(i, j)
	return t.phi.Data[l][k], t.defined[l][k]
}

// Compute evaluates the potential on interface leaves. Cells whose
// curvature is undefined carry no potential when Sigma is non-zero.
func (t *Force) Compute(f *mesh.Field, c *heights.Curvature) {
	m := t.m
	for l := range t.defined {
		clear(t.defined[l])
	}
	t.phi.Fill(0)
	drho := t.Rho2 - t.Rho1
	m.ForEachLeaf(func(l, i, j int) {
		k := m.Level(l).Index(i, j)
		if !vof.IsInterface(f.Data[l][k]) {
			return
		}
		var phi float64
		if t.Sigma != 0 {
			if !c.Defined(l, i, j) {
				return
			}
			phi = t.Sigma * c.Kappa.Data[l][k]
		}
		phi += drho * (t.G[0]*m.X(l, i) + t.G[1]*m.Y(l, j))
		t.phi.Data[l][k] = phi
		t.defined[l][k] = true
	})
}

// Accelerate adds phi grad(f) / rho to the face acceleration a on every leaf
// face. Where both neighbours carry a potential the face value is their
// mean, otherwise the one defined value is used.
func (t *Force) Accelerate(f *mesh.Field, a *mesh.FaceField) {
	m := t.m
	for _, d := range []mesh.Dim{mesh.X, mesh.Y} {
		ad := a.Component(d)
		m.ForEachLeafFace(d, func(l, i, j int) {
			lv := m.Level(l)
			k := lv.Index(i, j)
			off := lv.Offset(d)
			fd := f.Data[l]
			df := fd[k] - fd[k-off]
			if df == 0 {
				return
			}
			pi, pj := i, j
			if d == mesh.X {
				pi--
			} else {
				pj--
			}
			phi, ok := t.faceValue(l, k, k-off, lv.IsLeaf(i, j), lv.IsLeaf(pi, pj))
			if !ok {
				return
			}
			rho := t.Rho((fd[k] + fd[k-off]) / 2)
			ad[l][k] += phi * df / (rho * lv.Delta)
		})
	}
}

func (t *Force) faceValue(l, k, km int, leaf, leafm bool) (float64, bool) {
	ok := leaf && t.defined[l][k]
	okm := leafm && t.defined[l][km]
	p := t.phi.Data[l]
	switch {
	case ok && okm:
		return (p[k] + p[km]) / 2, true
	case ok:
		return p[k], true
	case okm:
		return p[km], true
	}
	return 0, false
}

// CapillaryDt is the explicit surface tension stability limit on the finest
// leaf level. It is +Inf without surface tension.
func CapillaryDt(m *mesh.Mesh, sigma, rho1, rho2 float64) float64 {
	if sigma <= 0 {
		return math.Inf(1)
	}
	d := m.Level(m.FinestLevel()).Delta
	rho := (rho1 + rho2) / 2
	return math.Sqrt(rho * d * d * d / (math.Pi * sigma))
}
