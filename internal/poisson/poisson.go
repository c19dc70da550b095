// Package poisson solves variable-coefficient Poisson problems
//
//	div(alpha grad a) = b
//
// on the leaves of an adaptive mesh with a multigrid V-cycle on the
// correction and red-black Gauss-Seidel smoothing. alpha carries the face
// metric, so the operator is the axisymmetric one when the mesh is.
package poisson

import (
	"errors"
	"math"

	"github.com/san-kum/dropsim/internal/mesh"
)

var ErrProblem = errors.New("poisson: incomplete problem")

const (
	minRelax = 2
	maxRelax = 100
)

// Problem is one elliptic solve.
type Problem struct {
	// A is the unknown; its boundary conditions define the problem's.
	A *mesh.Field
	// B is the right-hand side on leaves.
	B *mesh.Field
	// Alpha is the face coefficient on every active face of every level.
	Alpha *mesh.FaceField

	Tolerance float64
	MaxIter   int
	MinIter   int
}

// Stats reports the outcome of a solve.
type Stats struct {
	Iterations      int
	ResidualInitial float64
	Residual        float64
	NRelax          int
	Converged       bool
}

// Solver owns the multigrid scratch fields. NRelax, the number of smoothing
// sweeps per level, adapts to the observed convergence rate and persists
// across solves.
type Solver struct {
	NRelax int

	m    *mesh.Mesh
	res  *mesh.Field
	da   *mesh.Field
	flux *mesh.FaceField
}

func NewSolver(m *mesh.Mesh) *Solver {
	da := m.NewScratch("da", mesh.Symmetric)
	da.Refine = mesh.RefineBilinear
	da.Conservative = false
	return &Solver{
		NRelax: 4,
		m:      m,
		res:    m.NewScratch("res", mesh.Symmetric),
		da:     da,
		flux:   m.NewFaceField("flux"),
	}
}

// Solve iterates V-cycles until the largest leaf residual falls below the
// tolerance or MaxIter cycles have run. A and its halo are synchronised on
// return. Failure to converge is reported in Stats, not as an error.
func (s *Solver) Solve(p Problem) (Stats, error) {
	if p.A == nil || p.B == nil || p.Alpha == nil {
		return Stats{}, ErrProblem
	}
	if p.MaxIter <= 0 {
		p.MaxIter = 100
	}
	if p.MinIter <= 0 {
		p.MinIter = 1
	}
	if s.NRelax < minRelax {
		s.NRelax = minRelax
	}
	for side, bc := range p.A.BC {
		s.da.BC[side] = bc.Homogeneous()
	}

	st := Stats{}
	resa := s.residual(p)
	st.ResidualInitial = resa
	for st.Iterations < p.MaxIter && (st.Iterations < p.MinIter || resa > p.Tolerance) {
		s.cycle(p)
		resb := resa
		resa = s.residual(p)
		st.Iterations++
		if resa == resb {
			break
		}
		if resa > p.Tolerance {
			switch ratio := resb / resa; {
			case ratio < 1.2 && s.NRelax < maxRelax:
				s.NRelax++
			case ratio > 10 && s.NRelax > minRelax:
				s.NRelax--
			}
		}
	}
	st.Residual = resa
	st.NRelax = s.NRelax
	st.Converged = resa <= p.Tolerance
	return st, nil
}

// Apply stores div(alpha grad a) of the synchronised field a in out, on
// leaves.
func (s *Solver) Apply(a *mesh.Field, alpha *mesh.FaceField, out *mesh.Field) {
	m := s.m
	m.Sync(a)
	m.Divergence(s.Flux(a, alpha), out)
}

// Flux returns alpha grad a on every leaf face, restricted to the faces of
// refined cells. a must be synchronised. The returned field is owned by the
// solver and overwritten by the next call.
func (s *Solver) Flux(a *mesh.Field, alpha *mesh.FaceField) *mesh.FaceField {
	m := s.m
	for _, d := range []mesh.Dim{mesh.X, mesh.Y} {
		fl, al := s.flux.Component(d), alpha.Component(d)
		m.ForEachLeafFace(d, func(l, i, j int) {
			lv := m.Level(l)
			k := lv.Index(i, j)
			v := a.Data[l]
			fl[l][k] = al[l][k] * (v[k] - v[k-lv.Offset(d)]) / lv.Delta
		})
	}
	m.RestrictFaces(s.flux)
	return s.flux
}

// residual stores b - div(alpha grad a) on leaves, restricts it to every
// level and returns its maximum norm.
func (s *Solver) residual(p Problem) float64 {
	m := s.m
	m.Sync(p.A)
	flux := s.Flux(p.A, p.Alpha)
	fx, fy := flux.X, flux.Y
	norm := m.MaxLeaves(func(l, i, j int) float64 {
		lv := m.Level(l)
		k := lv.Index(i, j)
		div := (fx[l][k+lv.Stride] - fx[l][k] + fy[l][k+1] - fy[l][k]) / (m.Cm(l, j) * lv.Delta)
		r := p.B.Data[l][k] - div
		s.res.Data[l][k] = r
		return math.Abs(r)
	})
	m.Restrict(s.res)
	return norm
}

// cycle runs one V-cycle on the correction and adds it to the leaves of A.
func (s *Solver) cycle(p Problem) {
	m := s.m
	for l := 0; l <= m.MaxLevel; l++ {
		if l == 0 {
			clear(s.da.Data[0])
			s.relax(p, 0, 4*s.NRelax)
			continue
		}
		m.ProlongAll(s.da, l)
		m.FillGhosts(s.da, l)
		s.relax(p, l, s.NRelax)
	}
	m.ForEachLeaf(func(l, i, j int) {
		k := m.Level(l).Index(i, j)
		p.A.Data[l][k] += s.da.Data[l][k]
	})
	m.Sync(p.A)
}

// relax smooths the correction on the active cells of level l. Cells of one
// colour only read cells of the other, so each half sweep is parallel and
// deterministic.
func (s *Solver) relax(p Problem, l, sweeps int) {
	m := s.m
	lv := m.Level(l)
	d, r := s.da.Data[l], s.res.Data[l]
	ax, ay := p.Alpha.X[l], p.Alpha.Y[l]
	bc := s.da.BC
	n, stride := lv.N, lv.Stride
	h2 := lv.Delta * lv.Delta

	for sweep := 0; sweep < sweeps; sweep++ {
		for colour := 0; colour < 2; colour++ {
			m.ForEachActive(l, func(i, j int) {
				if (i+j)&1 != colour {
					return
				}
				k := lv.Index(i, j)
				num := -m.Cm(l, j) * h2 * r[k]
				var den float64
				add := func(alpha float64, inside bool, nb float64, b mesh.Boundary) {
					if inside {
						num += alpha * nb
						den += alpha
					} else {
						den += alpha * (1 - b.Slope())
					}
				}
				add(ax[k], i > 0, d[k-stride], bc[mesh.Left])
				add(ax[k+stride], i < n-1, d[k+stride], bc[mesh.Right])
				add(ay[k], j > 0, d[k-1], bc[mesh.Bottom])
				add(ay[k+1], j < n-1, d[k+1], bc[mesh.Top])
				if den > 0 {
					d[k] = num / den
				}
			})
		}
	}
	m.FillGhosts(s.da, l)
}
