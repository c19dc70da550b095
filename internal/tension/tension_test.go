package tension

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/dropsim/internal/heights"
	"github.com/san-kum/dropsim/internal/mesh"
	"github.com/san-kum/dropsim/internal/vof"
)

func interfaceSetup(t *testing.T, phi vof.LevelSet) (*mesh.Mesh, *mesh.Field, *heights.Curvature) {
	t.Helper()
	m, err := mesh.New(1, 2, 5, 5, false)
	require.NoError(t, err)
	f := vof.NewField(m, "f")
	vof.Fractions(m, f, phi)
	hf := heights.New(m, heights.Config{})
	hf.Compute(f)
	c := heights.NewCurvature(m)
	c.Compute(f, hf)
	return m, f, c
}

func TestFlatInterfaceUnderGravity(t *testing.T) {
	m, f, c := interfaceSetup(t, func(x, y float64) float64 { return 0.53 - x })
	force := New(m, 1, 2, 1, [2]float64{-1, 0})
	force.Compute(f, c)

	a := m.NewFaceField("a")
	force.Accelerate(f, a)

	lv := m.Level(5)
	phi, ok := force.Potential(5, 16, 4)
	require.True(t, ok)
	assert.InDelta(t, m.X(5, 16), phi, 1e-12)

	for j := 0; j < lv.N; j++ {
		var jump float64
		for i := 0; i <= lv.N; i++ {
			k := lv.Index(i, j)
			rho := force.Rho((f.Data[5][k] + f.Data[5][k-lv.Stride]) / 2)
			jump += a.X[5][k] * rho * lv.Delta
		}
		assert.InDelta(t, -phi, jump, 1e-12, "row %d", j)
	}
	for _, v := range a.Y[5] {
		if v != 0 {
			t.Fatalf("expected no tangential acceleration, got %g", v)
		}
	}
}

func TestDropForcePointsInwards(t *testing.T) {
	m, f, c := interfaceSetup(t, func(x, y float64) float64 {
		return 0.3*0.3 - (x-0.5)*(x-0.5) - (y-0.5)*(y-0.5)
	})
	force := New(m, 1, 1, 1, [2]float64{})
	force.Compute(f, c)
	a := m.NewFaceField("a")
	force.Accelerate(f, a)

	lv := m.Level(5)
	j := lv.N / 2
	var right, left float64
	for i := 0; i <= lv.N; i++ {
		v := a.X[5][lv.Index(i, j)]
		if i > lv.N/2 {
			right += v
		} else {
			left += v
		}
	}
	assert.Negative(t, right)
	assert.Positive(t, left)
	assert.InDelta(t, 0, right+left, 1e-6*math.Abs(right))
}

func TestUndefinedCurvatureCarriesNoPotential(t *testing.T) {
	m, err := mesh.New(1, 2, 4, 4, false)
	require.NoError(t, err)
	f := vof.NewField(m, "f")
	f.Set(m, 4, 8, 8, 0.5)
	m.Sync(f)
	c := heights.NewCurvature(m)

	force := New(m, 1, 1, 1, [2]float64{})
	force.Compute(f, c)
	_, ok := force.Potential(4, 8, 8)
	assert.False(t, ok)

	a := m.NewFaceField("a")
	force.Accelerate(f, a)
	for l := range a.X {
		for k := range a.X[l] {
			assert.Zero(t, a.X[l][k])
			assert.Zero(t, a.Y[l][k])
		}
	}
}

func TestCapillaryDt(t *testing.T) {
	m, err := mesh.New(1, 2, 6, 4, false)
	require.NoError(t, err)
	d := m.Level(4).Delta
	want := math.Sqrt(500 * d * d * d / (math.Pi * 0.07))
	assert.InDelta(t, want, CapillaryDt(m, 0.07, 999, 1), 1e-15)

	m.Refine(mesh.MakeCell(4, 3, 3))
	d = m.Level(5).Delta
	assert.InDelta(t, math.Sqrt(500*d*d*d/(math.Pi*0.07)), CapillaryDt(m, 0.07, 999, 1), 1e-15)
	assert.True(t, math.IsInf(CapillaryDt(m, 0, 999, 1), 1))
}
