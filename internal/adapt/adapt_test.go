package adapt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/dropsim/internal/mesh"
	"github.com/san-kum/dropsim/internal/vof"
)

func drop(x, y float64) float64 {
	return 0.16 - x*x - y*y
}

// initialise repeats fraction initialisation and adaptation until no
// more cells are refined.
func initialise(m *mesh.Mesh, f *mesh.Field, d *Driver) {
	for pass := 0; pass < 10; pass++ {
		vof.Fractions(m, f, drop)
		if d.Adapt(m).Refined == 0 {
			return
		}
	}
}

func TestValidate(t *testing.T) {
	m, err := mesh.New(1, 2, 6, 3, false)
	require.NoError(t, err)
	f := vof.NewField(m, "f")

	tests := []struct {
		name  string
		d     Driver
		valid bool
	}{
		{"ok", Driver{MinLevel: 2, MaxLevel: 6, Criteria: []Criterion{{f, 1e-3}}}, true},
		{"inverted", Driver{MinLevel: 5, MaxLevel: 4}, false},
		{"too deep", Driver{MinLevel: 2, MaxLevel: 7}, false},
		{"no field", Driver{MinLevel: 2, MaxLevel: 6, Criteria: []Criterion{{nil, 1e-3}}}, false},
		{"zero threshold", Driver{MinLevel: 2, MaxLevel: 6, Criteria: []Criterion{{f, 0}}}, false},
	}
	for _, tt := range tests {
		err := tt.d.Validate(m)
		if tt.valid {
			assert.NoError(t, err, tt.name)
		} else {
			assert.ErrorIs(t, err, ErrDriver, tt.name)
		}
	}
}

func TestWaveletOfLinearField(t *testing.T) {
	m, err := mesh.New(1, 2, 5, 5, false)
	require.NoError(t, err)
	u := m.NewField("u", mesh.Symmetric)
	m.ForEachLeaf(func(l, i, j int) {
		u.Set(m, l, i, j, m.X(l, i)+2*m.Y(l, j))
	})
	m.Sync(u)

	lv := m.Level(5)
	for i := 2; i < lv.N-2; i++ {
		for j := 2; j < lv.N-2; j++ {
			assert.InDelta(t, 0, Wavelet(m, u, 5, i, j), 1e-12)
		}
	}
	assert.Zero(t, Wavelet(m, u, 0, 0, 0))
}

func TestRefinesAroundInterface(t *testing.T) {
	m, err := mesh.New(1, 3, 7, 3, true)
	require.NoError(t, err)
	f := vof.NewField(m, "f")
	d := &Driver{MinLevel: 3, MaxLevel: 7, Criteria: []Criterion{{f, 1e-3}}}
	require.NoError(t, d.Validate(m))
	initialise(m, f, d)

	assert.True(t, m.Balanced())
	assert.Equal(t, 7, m.FinestLevel())
	counts := m.LevelCounts()
	for l := 0; l < 3; l++ {
		assert.Zero(t, counts[l], "leaves below the minimum level")
	}
	m.ForEachLeaf(func(l, i, j int) {
		if c := f.At(m, l, i, j); c > 0.1 && c < 0.9 && l != 7 {
			t.Errorf("interface cell %v at level %d (f=%g)", mesh.MakeCell(l, i, j), l, c)
		}
	})
	// far from the drop the mesh stays coarse
	far := m.Locate(0.95, 0.95)
	assert.Less(t, far.Level(), 7)
}

func TestAdaptationConservesVolume(t *testing.T) {
	m, err := mesh.New(1, 3, 7, 3, true)
	require.NoError(t, err)
	f := vof.NewField(m, "f")
	initialise(m, f, &Driver{MinLevel: 3, MaxLevel: 7, Criteria: []Criterion{{f, 1e-3}}})
	before := vof.Volume(m, f)

	// lowering the maximum level drops the finest leaves
	st := (&Driver{MinLevel: 3, MaxLevel: 6, Criteria: []Criterion{{f, 1e-3}}}).Adapt(m)
	assert.Positive(t, st.Coarsened)
	assert.Equal(t, 6, m.FinestLevel())
	assert.True(t, m.Balanced())
	assert.InDelta(t, before, vof.Volume(m, f), 1e-12*before)

	// raising the minimum level refines everything coarser
	st = (&Driver{MinLevel: 5, MaxLevel: 6, Criteria: []Criterion{{f, 1e-3}}}).Adapt(m)
	assert.Positive(t, st.Refined)
	assert.True(t, m.Balanced())
	assert.InDelta(t, before, vof.Volume(m, f), 1e-12*before)

	m.ForEachLeaf(func(l, i, j int) {
		if c := f.At(m, l, i, j); c < 0 || c > 1 {
			t.Errorf("fraction out of bounds: %g", c)
		}
	})
}

func TestCoarsensOneLevelPerCall(t *testing.T) {
	m, err := mesh.New(1, 2, 6, 6, false)
	require.NoError(t, err)
	f := vof.NewField(m, "f")
	d := &Driver{MinLevel: 3, MaxLevel: 6, Criteria: []Criterion{{f, 1e-3}}}

	for _, want := range []int{5, 4, 3, 3} {
		st := d.Adapt(m)
		assert.Equal(t, want, m.FinestLevel(), "%v", st)
		assert.Equal(t, 1<<(2*want), st.Leaves)
	}
}

func TestMinimumLevelIsEnforced(t *testing.T) {
	m, err := mesh.New(1, 2, 6, 2, false)
	require.NoError(t, err)
	u := m.NewField("u", mesh.Symmetric)
	u.Fill(0.3)
	d := &Driver{MinLevel: 4, MaxLevel: 6, Criteria: []Criterion{{u, 1e-3}}}

	assert.Equal(t, 16, d.Adapt(m).Refined)
	st := d.Adapt(m)
	assert.Equal(t, 64, st.Refined)
	assert.Equal(t, 256, st.Leaves)
	st = d.Adapt(m)
	assert.Zero(t, st.Refined)
	assert.Zero(t, st.Coarsened)
	assert.InDelta(t, 0.3, u.At(m, 4, 7, 9), 1e-15)
	assert.False(t, math.IsNaN(u.At(m, 4, 0, 0)))
}
