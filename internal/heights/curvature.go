package heights

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dropsim/internal/mesh"
	"github.com/san-kum/dropsim/internal/vof"
)

// Method records how the curvature of an interface cell was obtained.
type Method int8

const (
	Undefined Method = iota
	HeightFunction
	Average
	Fit
)

func (m Method) String() string {
	switch m {
	case HeightFunction:
		return "height"
	case Average:
		return "average"
	case Fit:
		return "fit"
	default:
		return "undefined"
	}
}

// Stats counts interface cells per curvature method.
type Stats struct {
	Interface int
	Height    int
	Average   int
	Fit       int
	Undefined int
}

// Curvature holds the mean curvature (sum of the principal curvatures,
// positive for a convex liquid region) of every interface leaf.
type Curvature struct {
	m      *mesh.Mesh
	Kappa  *mesh.Field
	method [][]int8
}

func NewCurvature(m *mesh.Mesh) *Curvature {
	c := &Curvature{
		m:      m,
		Kappa:  m.NewScratch("kappa", mesh.Symmetric),
		method: make([][]int8, m.MaxLevel+1),
	}
	for l := range c.method {
		c.method[l] = make([]int8, m.Level(l).Size())
	}
	return c
}

// MethodAt returns how the curvature of (l, i, j) was computed.
func (c *Curvature) MethodAt(l, i, j int) Method {
	return Method(c.method[l][c.m.Level(l).Index(i, j)])
}

// Defined reports whether (l, i, j) carries a usable curvature.
func (c *Curvature) Defined(l, i, j int) bool { return c.MethodAt(l, i, j) != Undefined }

// Compute evaluates the curvature of every interface leaf from the heights
// hf (already computed from f). Cells without consistent heights use the
// mean of the height-function curvatures of their neighbours, then a
// parabola fitted to the neighbouring facets; cells where all of these fail
// are left undefined with zero curvature.
func (c *Curvature) Compute(f *mesh.Field, hf *Field) Stats {
	m := c.m
	for l := range c.method {
		for k := range c.method[l] {
			c.method[l][k] = int8(Undefined)
		}
	}
	c.Kappa.Fill(0)

	m.ForEachLeaf(func(l, i, j int) {
		lv := m.Level(l)
		k := lv.Index(i, j)
		if !vof.IsInterface(f.Data[l][k]) {
			return
		}
		n := vof.Normal(vof.Gather(f.Data[l], lv, i, j))
		dims := [2]mesh.Dim{mesh.Y, mesh.X}
		if math.Abs(n.X) > math.Abs(n.Y) {
			dims = [2]mesh.Dim{mesh.X, mesh.Y}
		}
		for _, d := range dims {
			if kappa, ok := c.heightCurvature(hf, d, l, i, j); ok {
				c.Kappa.Data[l][k] = kappa
				c.method[l][k] = int8(HeightFunction)
				return
			}
		}
	})

	var st Stats
	for _, cell := range m.LeafCells() {
		l, i, j := cell.Level(), cell.I(), cell.J()
		lv := m.Level(l)
		k := lv.Index(i, j)
		if !vof.IsInterface(f.Data[l][k]) {
			continue
		}
		st.Interface++
		if Method(c.method[l][k]) == HeightFunction {
			st.Height++
			continue
		}
		if kappa, ok := c.neighbourAverage(l, i, j); ok {
			c.Kappa.Data[l][k] = kappa
			c.method[l][k] = int8(Average)
			st.Average++
			continue
		}
		if kappa, ok := c.parabolaFit(f, l, i, j); ok {
			c.Kappa.Data[l][k] = kappa
			c.method[l][k] = int8(Fit)
			st.Fit++
			continue
		}
		st.Undefined++
	}
	return st
}

func (c *Curvature) heightCurvature(hf *Field, d mesh.Dim, l, i, j int) (float64, bool) {
	m := c.m
	di, dj := 0, 1
	if d == mesh.Y {
		di, dj = 1, 0
	}
	h0 := hf.At(d, l, i, j)
	hm := hf.At(d, l, i-di, j-dj)
	hp := hf.At(d, l, i+di, j+dj)
	if !h0.Defined() || h0.O != hm.O || h0.O != hp.O {
		return 0, false
	}

	delta := m.Level(l).Delta
	o := float64(h0.O)
	hx := (hp.H - hm.H) / 2
	hxx := hp.H - 2*h0.H + hm.H
	q := math.Sqrt(1 + hx*hx)
	kappa := -o * hxx / (delta * q * q * q)

	if m.Axi {
		var r, nr float64
		if d == mesh.Y {
			r = m.Y(l, j) + h0.H*delta
			nr = o / q
		} else {
			r = m.Y(l, j)
			nr = -o * hx / q
		}
		if r <= 1e-3*delta {
			return 0, false
		}
		kappa += nr / r
	}
	return clampKappa(kappa, delta), true
}

func (c *Curvature) neighbourAverage(l, i, j int) (float64, bool) {
	lv := c.m.Level(l)
	var sum float64
	n := 0
	for di := -1; di <= 1; di++ {
		for dj := -1; dj <= 1; dj++ {
			if (di == 0 && dj == 0) || !lv.IsLeaf(i+di, j+dj) {
				continue
			}
			k := lv.Index(i+di, j+dj)
			if Method(c.method[l][k]) == HeightFunction {
				sum += c.Kappa.Data[l][k]
				n++
			}
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// parabolaFit fits b = c0 + c1 a + c2 a² to the facet midpoints of the 3x3
// block, in the frame of the centre normal, weighted by facet length.
func (c *Curvature) parabolaFit(f *mesh.Field, l, i, j int) (float64, bool) {
	m := c.m
	lv := m.Level(l)
	d := f.Data[l]

	n := vof.Normal(vof.Gather(d, lv, i, j))
	norm := math.Hypot(n.X, n.Y)
	nu := vof.Coord{X: n.X / norm, Y: n.Y / norm}
	tu := vof.Coord{X: -nu.Y, Y: nu.X}

	var rows, rhs []float64
	var amin, amax = math.Inf(1), math.Inf(-1)
	for di := -1; di <= 1; di++ {
		for dj := -1; dj <= 1; dj++ {
			v := d[lv.Index(i+di, j+dj)]
			if !vof.IsInterface(v) {
				continue
			}
			p, length, ok := vof.Centroid(v, vof.Normal(vof.Gather(d, lv, i+di, j+dj)))
			if !ok || length < 1e-6 {
				continue
			}
			px, py := float64(di)+p.X, float64(dj)+p.Y
			a := px*tu.X + py*tu.Y
			b := px*nu.X + py*nu.Y
			w := math.Sqrt(length)
			rows = append(rows, w, w*a, w*a*a)
			rhs = append(rhs, w*b)
			amin, amax = math.Min(amin, a), math.Max(amax, a)
		}
	}
	np := len(rhs)
	if np < 3 || amax-amin < 0.5 {
		return 0, false
	}

	var x mat.VecDense
	if err := x.SolveVec(mat.NewDense(np, 3, rows), mat.NewVecDense(np, rhs)); err != nil {
		return 0, false
	}
	c0, c1, c2 := x.AtVec(0), x.AtVec(1), x.AtVec(2)
	if math.IsNaN(c0) || math.IsNaN(c1) || math.IsNaN(c2) {
		return 0, false
	}

	delta := lv.Delta
	q := math.Sqrt(1 + c1*c1)
	kappa := -2 * c2 / (delta * q * q * q)

	if m.Axi {
		r := m.Y(l, j) + c0*nu.Y*delta
		if r <= 1e-3*delta {
			return 0, false
		}
		nr := (nu.Y - c1*tu.Y) / q
		kappa += nr / r
	}
	return clampKappa(kappa, delta), true
}

func clampKappa(kappa, delta float64) float64 {
	limit := 2 / delta
	if kappa > limit {
		return limit
	}
	if kappa < -limit {
		return -limit
	}
	return kappa
}
