package vof

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/dropsim/internal/mesh"
)

func TestLineAlphaInvertsLineArea(t *testing.T) {
	normals := []Coord{{1, 0}, {0, -1}, {0.3, 0.7}, {-0.6, 0.4}, {-0.5, -0.5}, {0.9, -0.1}}
	for _, n := range normals {
		for _, c := range []float64{0, 1e-4, 0.1, 0.37, 0.5, 0.83, 0.999, 1} {
			got := LineArea(n, LineAlpha(c, n))
			assert.InDelta(t, c, got, 1e-12, "n=%v c=%g", n, c)
		}
	}
}

func TestRectangleFractionWholeCell(t *testing.T) {
	n := Coord{0.25, -0.75}
	alpha := LineAlpha(0.3, n)
	got := RectangleFraction(n, alpha, Coord{-0.5, -0.5}, Coord{0.5, 0.5})
	assert.InDelta(t, 0.3, got, 1e-12)

	// a vertical interface at x = 0 leaves the left half full
	left := RectangleFraction(Coord{1, 0}, 0, Coord{-0.5, -0.5}, Coord{0, 0.5})
	right := RectangleFraction(Coord{1, 0}, 0, Coord{0, -0.5}, Coord{0.5, 0.5})
	assert.InDelta(t, 1, left, 1e-12)
	assert.InDelta(t, 0, right, 1e-12)
}

func TestSquareFraction(t *testing.T) {
	tests := []struct {
		name string
		v    [4]float64
		want float64
	}{
		{"full", [4]float64{1, 1, 1, 1}, 1},
		{"empty", [4]float64{-1, -1, -1, -1}, 0},
		{"half vertical", [4]float64{1, -1, -1, 1}, 0.5},
		{"corner", [4]float64{1, -1, -3, -1}, 0.125},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SquareFraction(tt.v), 1e-12)
		})
	}
}

func TestNormalPointsOutOfLiquid(t *testing.T) {
	tests := []struct {
		name string
		s    Stencil
		want Coord
	}{
		{"liquid left", Stencil{{1, 1, 1}, {0.5, 0.5, 0.5}, {0, 0, 0}}, Coord{1, 0}},
		{"liquid below", Stencil{{1, 0.5, 0}, {1, 0.5, 0}, {1, 0.5, 0}}, Coord{0, 1}},
		{"flat", Stencil{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}}, Coord{1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normal(tt.s)
			assert.InDelta(t, tt.want.X, n.X, 1e-9)
			assert.InDelta(t, tt.want.Y, n.Y, 1e-9)
		})
	}
}

func TestNormalNeverDegenerate(t *testing.T) {
	s := Stencil{{0, 1, 0}, {1, 0.5, 1}, {0, 1, 0}}
	n := Normal(s)
	assert.False(t, math.IsNaN(n.X) || math.IsNaN(n.Y))
	assert.InDelta(t, 1, math.Abs(n.X)+math.Abs(n.Y), 1e-12)
}

func circle(x0, y0, r float64) LevelSet {
	return func(x, y float64) float64 {
		return r*r - (x-x0)*(x-x0) - (y-y0)*(y-y0)
	}
}

func TestFractionsVolume(t *testing.T) {
	const r = 0.3

	planar, err := mesh.New(1, 2, 6, 6, false)
	require.NoError(t, err)
	f := NewField(planar, "f")
	Fractions(planar, f, circle(0, 0, r))
	assert.InDelta(t, math.Pi*r*r/4, Volume(planar, f), 2e-4)

	axi, err := mesh.New(1, 2, 6, 6, true)
	require.NoError(t, err)
	g := NewField(axi, "f")
	Fractions(axi, g, circle(0, 0, r))
	assert.InDelta(t, r*r*r/3, Volume(axi, g), 1e-4)
}

func TestRefineConservesVolume(t *testing.T) {
	for _, axi := range []bool{false, true} {
		m, err := mesh.New(1, 2, 6, 4, axi)
		require.NoError(t, err)
		f := NewField(m, "f")
		Fractions(m, f, circle(0.1, 0.2, 0.37))
		before := Volume(m, f)

		for _, c := range m.LeafCells() {
			if IsInterface(f.At(m, c.Level(), c.I(), c.J())) {
				m.Refine(c)
			}
		}
		m.Sync(f)

		assert.InDelta(t, before, Volume(m, f), 1e-12, "axi=%v", axi)
		m.ForEachLeaf(func(l, i, j int) {
			v := f.At(m, l, i, j)
			if v < 0 || v > 1 {
				t.Errorf("fraction out of bounds: %g", v)
			}
		})
	}
}

func uniformVelocity(m *mesh.Mesh, ux, uy float64) *mesh.FaceField {
	uf := m.NewFaceField("uf")
	m.ForEachLeafFace(mesh.X, func(l, i, j int) {
		uf.X[l][m.Level(l).Index(i, j)] = m.FmX(l, j) * ux
	})
	m.ForEachLeafFace(mesh.Y, func(l, i, j int) {
		uf.Y[l][m.Level(l).Index(i, j)] = m.FmY(l, j) * uy
	})
	m.RestrictFaces(uf)
	return uf
}

func centroidX(m *mesh.Mesh, f *mesh.Field) float64 {
	num := m.SumLeaves(func(l, i, j int) float64 {
		return f.At(m, l, i, j) * m.X(l, i) * m.Volume(l, j)
	})
	return num / Volume(m, f)
}

func TestAdvectTranslation(t *testing.T) {
	m, err := mesh.New(1, 2, 5, 5, false)
	require.NoError(t, err)
	f := NewField(m, "f")
	Fractions(m, f, circle(0.35, 0.5, 0.15))

	v0, x0 := Volume(m, f), centroidX(m, f)
	uf := uniformVelocity(m, 1, 0.5)

	adv := NewAdvector(m)
	h := m.Level(m.MaxLevel).Delta
	dt := 0.25 * h
	const steps = 12
	for s := 0; s < steps; s++ {
		stats := adv.Advect(f, uf, dt, s)
		assert.Less(t, stats.Clipped, 1e-12)
		assert.Positive(t, stats.Interface)
	}

	assert.InDelta(t, v0, Volume(m, f), 1e-12)
	assert.InDelta(t, x0+steps*dt, centroidX(m, f), 0.25*h)
}

func TestAdvectAdaptiveMeshConservesVolume(t *testing.T) {
	for _, axi := range []bool{false, true} {
		m, err := mesh.New(1, 2, 6, 5, axi)
		require.NoError(t, err)
		f := NewField(m, "f")
		Fractions(m, f, circle(0.3, 0.3, 0.15))
		for _, c := range m.LeafCells() {
			x, y := m.X(c.Level(), c.I()), m.Y(c.Level(), c.J())
			if x > 0.35 && x < 0.6 && y > 0.2 && y < 0.45 {
				m.Refine(c)
			}
		}
		m.Sync(f)
		require.True(t, m.Balanced())

		v0 := Volume(m, f)
		uf := uniformVelocity(m, 1, 0)
		adv := NewAdvector(m)
		dt := 0.2 * m.Level(m.MaxLevel).Delta
		for s := 0; s < 10; s++ {
			adv.Advect(f, uf, dt, s)
		}

		assert.InDelta(t, v0, Volume(m, f), 1e-6*v0, "axi=%v", axi)
		m.ForEachLeaf(func(l, i, j int) {
			v := f.At(m, l, i, j)
			if v < 0 || v > 1 {
				t.Errorf("fraction %g out of bounds", v)
			}
		})
	}
}

func TestFacetsOnStraightInterface(t *testing.T) {
	m, err := mesh.New(1, 2, 4, 4, false)
	require.NoError(t, err)
	f := NewField(m, "f")
	Fractions(m, f, func(x, y float64) float64 { return 0.53 - x })

	segs := Facets(m, f)
	require.Len(t, segs, 16)
	for _, s := range segs {
		assert.InDelta(t, 0.53, s.A.X, 1e-9)
		assert.InDelta(t, 0.53, s.B.X, 1e-9)
	}
}

func TestClipReturnsVolumeToInterface(t *testing.T) {
	for _, axi := range []bool{false, true} {
		m, err := mesh.New(1, 2, 5, 5, axi)
		require.NoError(t, err)
		f := NewField(m, "f")
		Fractions(m, f, circle(0.5, 0.5, 0.2))

		// overshoot inside the disc, undershoot outside it
		f.Set(m, 5, 16, 16, 1+3e-4)
		f.Set(m, 5, 2, 2, -1e-4)
		v0 := Volume(m, f)

		adv := NewAdvector(m)
		clipped, restored := adv.clip(f)
		assert.InDelta(t, 3e-4, clipped, 1e-15)
		assert.InDelta(t, v0, Volume(m, f), 1e-14, "axi=%v", axi)
		assert.Positive(t, restored)
		m.ForEachLeaf(func(l, i, j int) {
			v := f.At(m, l, i, j)
			if v < 0 || v > 1 {
				t.Errorf("fraction %g out of bounds", v)
			}
		})
	}
}

func TestClipWithoutInterfaceKeepsPureCells(t *testing.T) {
	m, err := mesh.New(1, 2, 3, 3, false)
	require.NoError(t, err)
	f := NewField(m, "f")
	f.Set(m, 3, 1, 1, 1.5)

	clipped, restored := NewAdvector(m).clip(f)
	assert.Equal(t, 0.5, clipped)
	assert.Zero(t, restored)
	assert.Equal(t, 1.0, f.At(m, 3, 1, 1))
	assert.Zero(t, f.At(m, 3, 0, 0))
}

// rotation builds a discretely divergence-free solid rotation about the
// centre of a uniform planar mesh from a corner stream function.
func rotation(m *mesh.Mesh) *mesh.FaceField {
	l := m.MaxLevel
	h := m.Level(l).Delta
	psi := func(i, j int) float64 {
		x, y := float64(i)*h-0.5, float64(j)*h-0.5
		return 0.5 * (x*x + y*y)
	}
	uf := m.NewFaceField("uf")
	m.ForEachLeafFace(mesh.X, func(l, i, j int) {
		uf.X[l][m.Level(l).Index(i, j)] = (psi(i, j+1) - psi(i, j)) / h
	})
	m.ForEachLeafFace(mesh.Y, func(l, i, j int) {
		uf.Y[l][m.Level(l).Index(i, j)] = -(psi(i+1, j) - psi(i, j)) / h
	})
	m.RestrictFaces(uf)
	return uf
}

func TestAdvectRotationConservesVolume(t *testing.T) {
	m, err := mesh.New(1, 2, 5, 5, false)
	require.NoError(t, err)
	f := NewField(m, "f")
	Fractions(m, f, circle(0.5, 0.7, 0.12))
	v0 := Volume(m, f)

	uf := rotation(m)
	adv := NewAdvector(m)
	// |u| <= 0.5 inside the drop's orbit
	dt := 0.8 * m.Level(m.MaxLevel).Delta
	for s := 0; s < 20; s++ {
		adv.Advect(f, uf, dt, s)
	}

	assert.InDelta(t, v0, Volume(m, f), 1e-13)
	m.ForEachLeaf(func(l, i, j int) {
		v := f.At(m, l, i, j)
		if v < 0 || v > 1 {
			t.Errorf("fraction %g out of bounds", v)
		}
	})
}
