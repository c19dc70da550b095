package ns

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/dropsim/internal/heights"
	"github.com/san-kum/dropsim/internal/mesh"
	"github.com/san-kum/dropsim/internal/tension"
	"github.com/san-kum/dropsim/internal/vof"
)

func params() Params {
	return Params{
		Rho1:      2,
		Rho2:      1,
		Tolerance: 1e-10,
		MaxIter:   200,
		Sides:     DefaultSides,
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(p *Params)
		valid bool
	}{
		{"default", func(p *Params) {}, true},
		{"zero density", func(p *Params) { p.Rho2 = 0 }, false},
		{"negative viscosity", func(p *Params) { p.Mu1 = -1 }, false},
		{"zero tolerance", func(p *Params) { p.Tolerance = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params()
			tt.edit(&p)
			err := p.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrParams)
			}
		})
	}
}

func TestBoundaryConditions(t *testing.T) {
	ux := velocityBC(DefaultSides, mesh.X)
	uy := velocityBC(DefaultSides, mesh.Y)
	p := pressureBC(DefaultSides)

	tests := []struct {
		name  string
		bc    mesh.Boundary
		fixed bool
	}{
		{"wall u.x", ux[mesh.Left], true},
		{"wall u.y", uy[mesh.Left], true},
		{"wall p", p[mesh.Left], false},
		{"outflow u.x", ux[mesh.Right], false},
		{"outflow p", p[mesh.Right], true},
		{"axis u.x", ux[mesh.Bottom], false},
		{"axis u.y", uy[mesh.Bottom], true},
		{"symmetry u.x", ux[mesh.Top], false},
		{"symmetry u.y", uy[mesh.Top], true},
	}
	for _, tt := range tests {
		_, fixed := tt.bc.Fixed()
		if fixed != tt.fixed {
			t.Errorf("%s: expected fixed=%v, got %v", tt.name, tt.fixed, fixed)
		}
	}
}

func TestParseCondition(t *testing.T) {
	for c, name := range conditionNames {
		got, err := ParseCondition(name)
		require.NoError(t, err)
		assert.Equal(t, c, got)
		assert.Equal(t, name, c.String())
	}
	_, err := ParseCondition("slip")
	assert.Error(t, err)
}

// A flat interface under gravity is an equilibrium: the interfacial
// acceleration must be balanced by the pressure gradient.
func TestFlatInterfaceStaysAtRest(t *testing.T) {
	for _, axi := range []bool{false, true} {
		m, err := mesh.New(1, 2, 5, 5, axi)
		require.NoError(t, err)
		f := vof.NewField(m, "f")
		vof.Fractions(m, f, func(x, y float64) float64 { return 0.53 - x })

		p := params()
		s, err := New(m, p)
		require.NoError(t, err)
		s.Properties(f)

		hf := heights.New(m, heights.Config{})
		curv := heights.NewCurvature(m)
		force := tension.New(m, 1, p.Rho1, p.Rho2, [2]float64{-1, 0})

		const dt = 1e-3
		for step := 0; step < 5; step++ {
			_, err := s.Predict(dt)
			require.NoError(t, err)
			hf.Compute(f)
			curv.Compute(f, hf)
			force.Compute(f, curv)
			st, err := s.Advance(f, dt, force)
			require.NoError(t, err)
			assert.True(t, st.Converged, "axi=%v step %d: %+v", axi, step, st)
		}
		assert.Less(t, s.MaxVelocity(), 1e-7, "axi=%v", axi)

		// the pressure jump carries the hydrostatic potential of the interface
		lv := m.Level(5)
		jump := s.P.At(m, 5, 2, 7) - s.P.At(m, 5, lv.N-2, 7)
		assert.InDelta(t, -(p.Rho2-p.Rho1)*m.X(5, 16), jump, 1e-6, "axi=%v", axi)
	}
}

func TestProjectionIsDivergenceFree(t *testing.T) {
	m, err := mesh.New(1, 2, 6, 4, true)
	require.NoError(t, err)
	for _, c := range m.LeafCells() {
		if m.X(c.Level(), c.I()) < 0.5 && m.Y(c.Level(), c.J()) < 0.5 {
			m.Refine(c)
		}
	}
	for _, c := range m.LeafCells() {
		if m.X(c.Level(), c.I()) < 0.25 && m.Y(c.Level(), c.J()) < 0.25 {
			m.Refine(c)
		}
	}
	require.True(t, m.Balanced())

	f := vof.NewField(m, "f")
	f.Fill(1)

	p := params()
	p.Rho1, p.Rho2, p.Mu1, p.Mu2 = 1, 1, 1e-3, 1e-3
	p.Tolerance = 1e-6
	s, err := New(m, p)
	require.NoError(t, err)
	m.ForEachLeaf(func(l, i, j int) {
		x, y := m.X(l, i), m.Y(l, j)
		s.U[0].Set(m, l, i, j, math.Sin(math.Pi*x)*math.Cos(math.Pi*y))
		s.U[1].Set(m, l, i, j, y*x)
	})
	m.Sync(s.U[0], s.U[1])
	s.Properties(f)

	const dt = 1e-3
	pst, err := s.Predict(dt)
	require.NoError(t, err)
	require.True(t, pst.Converged, "%+v", pst)
	assert.LessOrEqual(t, s.Divergence(), p.Tolerance*(1+1e-6))

	st, err := s.Advance(f, dt)
	require.NoError(t, err)
	require.True(t, st.Converged, "%+v", st)
	assert.LessOrEqual(t, s.Divergence(), p.Tolerance*(1+1e-6))

	// no flux through the wall or the axis
	m.ForEachLeafFace(mesh.X, func(l, i, j int) {
		if i == 0 && s.Uf.X[l][m.Level(l).Index(i, j)] != 0 {
			t.Errorf("flux through the wall at level %d row %d", l, j)
		}
	})
	m.ForEachLeafFace(mesh.Y, func(l, i, j int) {
		if j == 0 && s.Uf.Y[l][m.Level(l).Index(i, j)] != 0 {
			t.Errorf("flux through the axis at level %d column %d", l, i)
		}
	})
}

func TestVorticityOfSolidRotation(t *testing.T) {
	m, err := mesh.New(1, 2, 4, 4, false)
	require.NoError(t, err)
	s, err := New(m, params())
	require.NoError(t, err)
	m.ForEachLeaf(func(l, i, j int) {
		s.U[0].Set(m, l, i, j, -(m.Y(l, j) - 0.5))
		s.U[1].Set(m, l, i, j, m.X(l, i)-0.5)
	})
	m.Sync(s.U[0], s.U[1])
	w := m.NewScratch("omega", mesh.Symmetric)
	s.Vorticity(w)

	lv := m.Level(4)
	for i := 1; i < lv.N-1; i++ {
		for j := 1; j < lv.N-1; j++ {
			assert.InDelta(t, 2, w.At(m, 4, i, j), 1e-12)
		}
	}
	assert.InDelta(t, math.Hypot(0.5-lv.Delta/2, 0.5-lv.Delta/2), s.MaxVelocity(), 1e-12)
}

func TestViscousDt(t *testing.T) {
	m, err := mesh.New(1, 2, 6, 5, true)
	require.NoError(t, err)
	p := params()
	p.Rho1, p.Mu1, p.Rho2, p.Mu2 = 998, 1e-3, 1.2, 1.8e-5
	s, err := New(m, p)
	require.NoError(t, err)
	d := m.Level(5).Delta
	assert.InEpsilon(t, d*d*(1.2/1.8e-5)/8, s.ViscousDt(), 1e-12)

	m2, err := mesh.New(1, 2, 6, 5, true)
	require.NoError(t, err)
	inviscid, err := New(m2, params())
	require.NoError(t, err)
	assert.True(t, math.IsInf(inviscid.ViscousDt(), 1))
}
