// Package ns advances the incompressible two-phase Navier-Stokes equations
// with a centered, second-order projection scheme: face velocities are
// predicted at mid-step and made divergence-free, the centered velocity is
// advected and diffused explicitly, interfacial and body accelerations are
// added on faces, and a variable-density pressure projection makes the face
// velocity divergence-free again before the centered velocity is corrected.
package ns

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/dropsim/internal/mesh"
	"github.com/san-kum/dropsim/internal/poisson"
)

var ErrParams = errors.New("ns: invalid fluid parameters")

// Params are the fluid properties and projection settings. Phase 1 (f = 1)
// is the liquid.
type Params struct {
	Rho1, Rho2 float64
	Mu1, Mu2   float64
	// Body is a uniform acceleration applied on every face.
	Body [2]float64

	Tolerance float64
	MaxIter   int
	Sides     [4]Condition
}

func (p Params) Validate() error {
	if p.Rho1 <= 0 || p.Rho2 <= 0 {
		return fmt.Errorf("%w: densities must be positive (%g, %g)", ErrParams, p.Rho1, p.Rho2)
	}
	if p.Mu1 < 0 || p.Mu2 < 0 {
		return fmt.Errorf("%w: negative viscosity", ErrParams)
	}
	if p.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive", ErrParams)
	}
	return nil
}

// Force adds an acceleration to the leaf faces of a given the volume
// fraction f.
type Force interface {
	Accelerate(f *mesh.Field, a *mesh.FaceField)
}

// Solver holds the flow fields. U, P, Pf and G are registered with the
// mesh, so adaptation and checkpoints carry them.
type Solver struct {
	U  [2]*mesh.Field
	P  *mesh.Field
	Pf *mesh.Field
	G  [2]*mesh.Field
	// Uf is the metric-weighted face velocity.
	Uf *mesh.FaceField

	params Params
	m      *mesh.Mesh
	rho    *mesh.Field
	mu     *mesh.Field
	alpha  *mesh.FaceField
	a      *mesh.FaceField
	gf     *mesh.FaceField
	flux   [2]*mesh.FaceField
	div    *mesh.Field
	mgp    *poisson.Solver
	mgpf   *poisson.Solver
}

func New(m *mesh.Mesh, p Params) (*Solver, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Solver{params: p, m: m}

	names := [2]string{"u.x", "u.y"}
	gnames := [2]string{"g.x", "g.y"}
	for d := range s.U {
		bc := velocityBC(p.Sides, mesh.Dim(d))
		s.U[d] = m.NewField(names[d], bc)
		var hbc [4]mesh.Boundary
		for side, b := range bc {
			hbc[side] = b.Homogeneous()
		}
		s.G[d] = m.NewField(gnames[d], hbc)
	}
	s.P = m.NewField("p", pressureBC(p.Sides))
	s.Pf = m.NewField("pf", pressureBC(p.Sides))
	for _, f := range []*mesh.Field{s.P, s.Pf} {
		f.Refine = mesh.RefineBilinear
		f.Conservative = false
	}

	s.Uf = m.NewFaceField("uf")
	s.rho = m.NewScratch("rho", mesh.Symmetric)
	s.mu = m.NewScratch("mu", mesh.Symmetric)
	s.alpha = m.NewFaceField("alpha")
	s.a = m.NewFaceField("a")
	s.gf = m.NewFaceField("gf")
	s.flux = [2]*mesh.FaceField{m.NewFaceField("flux.x"), m.NewFaceField("flux.y")}
	s.div = m.NewScratch("div", mesh.Symmetric)
	s.mgp = poisson.NewSolver(m)
	s.mgpf = poisson.NewSolver(m)
	return s, nil
}

func (s *Solver) Params() Params { return s.params }

// NRelax returns the smoothing sweeps of the pressure and face-pressure
// solvers.
func (s *Solver) NRelax() (p, pf int) { return s.mgp.NRelax, s.mgpf.NRelax }

func (s *Solver) SetNRelax(p, pf int) { s.mgp.NRelax, s.mgpf.NRelax = p, pf }

func (s *Solver) density(c float64) float64 {
	c = math.Min(1, math.Max(0, c))
	return c*s.params.Rho1 + (1-c)*s.params.Rho2
}

func (s *Solver) viscosity(c float64) float64 {
	c = math.Min(1, math.Max(0, c))
	return c*s.params.Mu1 + (1-c)*s.params.Mu2
}

// Properties recomputes density, viscosity and the face coefficient
// alpha = fm/rho on every level from the synchronised fraction f.
func (s *Solver) Properties(f *mesh.Field) {
	m := s.m
	for l := 0; l <= m.MaxLevel; l++ {
		lv := m.Level(l)
		fd := f.Data[l]
		rho, mu := s.rho.Data[l], s.mu.Data[l]
		for k, c := range fd {
			rho[k] = s.density(c)
			mu[k] = s.viscosity(c)
		}
		ax, ay := s.alpha.X[l], s.alpha.Y[l]
		mesh.ParallelFor(lv.N+1, 8, func(start, end int) {
			for i := start; i < end; i++ {
				for j := 0; j <= lv.N; j++ {
					k := lv.Index(i, j)
					ax[k] = m.FmX(l, j) / s.density((fd[k]+fd[k-lv.Stride])/2)
					ay[k] = m.FmY(l, j) / s.density((fd[k]+fd[k-1])/2)
				}
			}
		})
	}
}

func (s *Solver) fm(d mesh.Dim, l, j int) float64 {
	if d == mesh.X {
		return s.m.FmX(l, j)
	}
	return s.m.FmY(l, j)
}

// boundaryFace returns the side a face of dimension d lies on, if any.
func boundaryFace(d mesh.Dim, n, i, j int) (mesh.Side, bool) {
	p := i
	lo, hi := mesh.Left, mesh.Right
	if d == mesh.Y {
		p, lo, hi = j, mesh.Bottom, mesh.Top
	}
	switch p {
	case 0:
		return lo, true
	case n:
		return hi, true
	}
	return 0, false
}

// fixedNormal reports the imposed normal velocity on a boundary face.
func (s *Solver) fixedNormal(d mesh.Dim, n, i, j int) (float64, bool) {
	side, ok := boundaryFace(d, n, i, j)
	if !ok {
		return 0, false
	}
	return s.U[d].BC[side].Fixed()
}

// Predict builds the mid-step face velocity from the centered velocity and
// the previous acceleration, and projects it with the face pressure Pf.
// The result in Uf is the velocity the volume fraction is advected with.
func (s *Solver) Predict(dt float64) (poisson.Stats, error) {
	m := s.m
	s.Uf.Fill(0)
	for _, d := range []mesh.Dim{mesh.X, mesh.Y} {
		t := 1 - d
		ud, ut := s.U[d].Data, s.U[t].Data
		gd := s.G[d].Data
		uf := s.Uf.Component(d)
		m.ForEachLeafFace(d, func(l, i, j int) {
			lv := m.Level(l)
			k := lv.Index(i, j)
			fm := s.fm(d, l, j)
			if v, ok := s.fixedNormal(d, lv.N, i, j); ok {
				uf[l][k] = fm * v
				return
			}
			off, toff := lv.Offset(d), lv.Offset(t)
			un := dt * (ud[l][k] + ud[l][k-off]) / (2 * lv.Delta)
			up := k - off
			if un < 0 {
				up = k
			}
			w := bcg(ud[l], gd[l], k, off, toff, un, ut[l][up], dt, lv.Delta, s.transverse(d, j))
			uf[l][k] = fm * w
		})
	}
	m.RestrictFaces(s.Uf)
	st, _, err := s.project(s.Pf, s.mgpf, dt/2)
	return st, err
}

// transverse reports whether the upwind cell of an x-face of row j has
// open transverse faces; cells on the axis do not.
func (s *Solver) transverse(d mesh.Dim, j int) bool {
	return !(s.m.Axi && d == mesh.X && j == 0)
}

// bcg is the Bell-Colella-Glaz upwind face value of v at face k, with the
// limited slope of the upwind cell, the source term src and the transverse
// upwind correction. un is the normal Courant number.
func bcg(v, src []float64, k, off, toff int, un, vt, dt, delta float64, transverse bool) float64 {
	s, up := 1.0, k-off
	if un < 0 {
		s, up = -1, k
	}
	slope := minmod(v[up]-v[up-off], v[up+off]-v[up])
	w := v[up] + s*(1-s*un)*slope/2
	if src != nil {
		w += (src[k] + src[k-off]) * dt / 4
	}
	if transverse {
		fyy := v[up] - v[up-toff]
		if vt < 0 {
			fyy = v[up+toff] - v[up]
		}
		w -= dt * vt * fyy / (2 * delta)
	}
	return w
}

func minmod(a, b float64) float64 {
	if a*b <= 0 {
		return 0
	}
	if math.Abs(a) < math.Abs(b) {
		return a
	}
	return b
}

// Advance completes a step once the volume fraction f has been advected
// with Uf and synchronised: properties, explicit advection and diffusion of
// the centered velocity, accelerations, projection and correction.
func (s *Solver) Advance(f *mesh.Field, dt float64, forces ...Force) (poisson.Stats, error) {
	s.Properties(f)
	s.advect(dt)
	s.diffuse(dt)
	s.accelerate(f, forces)
	s.faceVelocity(dt)

	st, flux, err := s.project(s.P, s.mgp, dt)
	if err != nil {
		return st, err
	}
	s.correct(flux, dt)
	return st, nil
}

// project makes uf divergence-free with the pressure p:
// div(alpha grad p) = div(uf)/dt, uf -= dt alpha grad p.
func (s *Solver) project(p *mesh.Field, mg *poisson.Solver, dt float64) (poisson.Stats, *mesh.FaceField, error) {
	m := s.m
	m.Divergence(s.Uf, s.div)
	m.ForEachLeaf(func(l, i, j int) {
		k := m.Level(l).Index(i, j)
		s.div.Data[l][k] /= dt
	})
	st, err := mg.Solve(poisson.Problem{
		A:         p,
		B:         s.div,
		Alpha:     s.alpha,
		Tolerance: s.params.Tolerance / dt,
		MaxIter:   s.params.MaxIter,
	})
	if err != nil {
		return st, nil, err
	}
	flux := mg.Flux(p, s.alpha)
	for _, d := range []mesh.Dim{mesh.X, mesh.Y} {
		uf, fl := s.Uf.Component(d), flux.Component(d)
		m.ForEachLeafFace(d, func(l, i, j int) {
			k := m.Level(l).Index(i, j)
			uf[l][k] -= dt * fl[l][k]
		})
	}
	m.RestrictFaces(s.Uf)
	return st, flux, nil
}

// accelerate sets a to the body acceleration plus the given forces.
func (s *Solver) accelerate(f *mesh.Field, forces []Force) {
	m := s.m
	s.a.Fill(0)
	for _, d := range []mesh.Dim{mesh.X, mesh.Y} {
		ad := s.a.Component(d)
		body := s.params.Body[d]
		m.ForEachLeafFace(d, func(l, i, j int) {
			ad[l][m.Level(l).Index(i, j)] = body
		})
	}
	for _, force := range forces {
		force.Accelerate(f, s.a)
	}
	m.RestrictFaces(s.a)
}

// faceVelocity interpolates the provisional centered velocity to faces and
// adds the face acceleration.
func (s *Solver) faceVelocity(dt float64) {
	m := s.m
	for _, d := range []mesh.Dim{mesh.X, mesh.Y} {
		ud := s.U[d].Data
		uf, ad := s.Uf.Component(d), s.a.Component(d)
		m.ForEachLeafFace(d, func(l, i, j int) {
			lv := m.Level(l)
			k := lv.Index(i, j)
			fm := s.fm(d, l, j)
			if v, ok := s.fixedNormal(d, lv.N, i, j); ok {
				uf[l][k] = fm * v
				return
			}
			uf[l][k] = fm * ((ud[l][k]+ud[l][k-lv.Offset(d)])/2 + dt*ad[l][k])
		})
	}
	m.RestrictFaces(s.Uf)
}

// correct computes the centered acceleration g from the face acceleration
// minus the pressure gradient flux, and adds dt*g to the velocity. Boundary
// faces with a free pressure carry no net acceleration: the pressure
// gradient there balances a.
func (s *Solver) correct(flux *mesh.FaceField, dt float64) {
	m := s.m
	for _, d := range []mesh.Dim{mesh.X, mesh.Y} {
		gf, ad, fl := s.gf.Component(d), s.a.Component(d), flux.Component(d)
		m.ForEachLeafFace(d, func(l, i, j int) {
			lv := m.Level(l)
			k := lv.Index(i, j)
			if side, ok := boundaryFace(d, lv.N, i, j); ok {
				if _, fixed := s.P.BC[side].Fixed(); !fixed {
					gf[l][k] = 0
					return
				}
			}
			gf[l][k] = s.fm(d, l, j)*ad[l][k] - fl[l][k]
		})
	}
	m.RestrictFaces(s.gf)

	m.ForEachLeaf(func(l, i, j int) {
		lv := m.Level(l)
		k := lv.Index(i, j)
		for _, d := range []mesh.Dim{mesh.X, mesh.Y} {
			off := lv.Offset(d)
			gf := s.gf.Component(d)[l]
			lo, hi := j, j
			if d == mesh.Y {
				hi = j + 1
			}
			w := s.fm(d, l, lo) + s.fm(d, l, hi)
			g := 0.0
			if w > 0 {
				g = (gf[k] + gf[k+off]) / w
			}
			s.G[d].Data[l][k] = g
			s.U[d].Data[l][k] += dt * g
		}
	})
	m.Sync(s.U[0], s.U[1], s.G[0], s.G[1])
}

// Divergence returns the largest metric divergence of Uf over leaves.
func (s *Solver) Divergence() float64 {
	m := s.m
	m.Divergence(s.Uf, s.div)
	return m.MaxLeaves(func(l, i, j int) float64 {
		return math.Abs(s.div.At(m, l, i, j))
	})
}

// MaxVelocity returns the largest centered speed over leaves.
func (s *Solver) MaxVelocity() float64 {
	m := s.m
	return m.MaxLeaves(func(l, i, j int) float64 {
		return math.Hypot(s.U[0].At(m, l, i, j), s.U[1].At(m, l, i, j))
	})
}

// ViscousDt is the explicit diffusion limit on the finest leaf level, +Inf
// for inviscid fluids.
func (s *Solver) ViscousDt() float64 {
	m := s.m
	ratio := math.Inf(1)
	for _, pair := range [][2]float64{{s.params.Rho1, s.params.Mu1}, {s.params.Rho2, s.params.Mu2}} {
		if pair[1] > 0 {
			ratio = math.Min(ratio, pair[0]/pair[1])
		}
	}
	if math.IsInf(ratio, 1) {
		return ratio
	}
	d := m.Level(m.FinestLevel()).Delta
	return d * d * ratio / 8
}

// Vorticity stores dv/dx - du/dy on leaves in out.
func (s *Solver) Vorticity(out *mesh.Field) {
	m := s.m
	ux, uy := s.U[0].Data, s.U[1].Data
	m.ForEachLeaf(func(l, i, j int) {
		lv := m.Level(l)
		k := lv.Index(i, j)
		dvdx := uy[l][k+lv.Stride] - uy[l][k-lv.Stride]
		dudy := ux[l][k+1] - ux[l][k-1]
		out.Data[l][k] = (dvdx - dudy) / (2 * lv.Delta)
	})
}
