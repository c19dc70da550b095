package mesh

import "math"

// Boundary is the strategy filling ghost cells across one side of the
// domain. Ghost values are affine in the mirrored interior value:
// ghost = Slope()*interior + offset(dist).
type Boundary interface {
	// Ghost returns the ghost value for the interior value at distance dist
	// (between the two cell centres).
	Ghost(interior, dist float64) float64
	// Slope is d(ghost)/d(interior), used by implicit smoothers.
	Slope() float64
	// Homogeneous returns the same condition with a zero right-hand side.
	Homogeneous() Boundary
	// Fixed reports the imposed value of a Dirichlet condition.
	Fixed() (float64, bool)
}

// Dirichlet imposes the value on the boundary face.
type Dirichlet struct{ Value float64 }

func (d Dirichlet) Ghost(interior, _ float64) float64 { return 2*d.Value - interior }
func (Dirichlet) Slope() float64                      { return -1 }
func (Dirichlet) Homogeneous() Boundary               { return Dirichlet{} }
func (d Dirichlet) Fixed() (float64, bool)            { return d.Value, true }

// Neumann imposes the outward normal gradient.
type Neumann struct{ Gradient float64 }

func (n Neumann) Ghost(interior, dist float64) float64 { return interior + n.Gradient*dist }
func (Neumann) Slope() float64                         { return 1 }
func (Neumann) Homogeneous() Boundary                  { return Neumann{} }
func (Neumann) Fixed() (float64, bool)                 { return 0, false }

// Symmetric is the zero-gradient condition on all four sides.
var Symmetric = [4]Boundary{Neumann{}, Neumann{}, Neumann{}, Neumann{}}

// RefineFunc computes the four children of parent (l, i, j) of level l.
// Child k = di + 2*dj.
type RefineFunc func(m *Mesh, f *Field, l, i, j int) [4]float64

// Field is a cell-centred scalar held on every level.
type Field struct {
	Name string
	Data [][]float64
	BC   [4]Boundary

	// Refine is the prolongation operator, RefineLinear by default.
	Refine RefineFunc
	// Conservative fields get a metric correction after prolongation so
	// the weighted mean of the children equals the parent.
	Conservative bool
	// Lo and Hi bound the conservative correction.
	Lo, Hi float64
}

// NewField allocates a field and registers it with the mesh; registered
// fields are transferred by adaptation and saved in checkpoints.
func (m *Mesh) NewField(name string, bc [4]Boundary) *Field {
	f := m.NewScratch(name, bc)
	m.fields = append(m.fields, f)
	return f
}

// NewScratch allocates a field that is not registered.
func (m *Mesh) NewScratch(name string, bc [4]Boundary) *Field {
	f := &Field{
		Name:         name,
		Data:         make([][]float64, len(m.levels)),
		BC:           bc,
		Refine:       RefineLinear,
		Conservative: true,
		Lo:           math.Inf(-1),
		Hi:           math.Inf(1),
	}
	for l, lv := range m.levels {
		f.Data[l] = make([]float64, lv.Size())
	}
	return f
}

// Fields returns the registered fields in registration order.
func (m *Mesh) Fields() []*Field { return m.fields }

// FieldByName returns a registered field or nil.
func (m *Mesh) FieldByName(name string) *Field {
	for _, f := range m.fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// At returns the value of (l, i, j).
func (f *Field) At(m *Mesh, l, i, j int) float64 {
	return f.Data[l][m.levels[l].Index(i, j)]
}

func (f *Field) Set(m *Mesh, l, i, j int, v float64) {
	f.Data[l][m.levels[l].Index(i, j)] = v
}

// Fill sets every value of every level, ghosts included.
func (f *Field) Fill(v float64) {
	for _, d := range f.Data {
		for k := range d {
			d[k] = v
		}
	}
}

// CopyFrom copies src into f on all levels.
func (f *Field) CopyFrom(src *Field) {
	for l := range f.Data {
		copy(f.Data[l], src.Data[l])
	}
}

// Sync restricts leaves upwards, prolongs into inactive cells and fills the
// boundary ghosts on every level.
func (m *Mesh) Sync(fields ...*Field) {
	for _, f := range fields {
		m.Restrict(f)
		m.FillGhosts(f, 0)
		for l := 1; l <= m.MaxLevel; l++ {
			m.prolongInactive(f, l)
			m.FillGhosts(f, l)
		}
	}
}

// SyncAll synchronises every registered field.
func (m *Mesh) SyncAll() { m.Sync(m.fields...) }

// Restrict sets every refined cell to the metric-weighted mean of its children.
func (m *Mesh) Restrict(f *Field) {
	for l := m.MaxLevel - 1; l >= 0; l-- {
		lv, fine := m.levels[l], m.levels[l+1]
		d, dc := f.Data[l], f.Data[l+1]
		ParallelFor(lv.N, rowChunk, func(start, end int) {
			for i := start; i < end; i++ {
				for j := 0; j < lv.N; j++ {
					if lv.state[i*lv.N+j] != Refined {
						continue
					}
					w0, w1 := m.Cm(l+1, 2*j), m.Cm(l+1, 2*j+1)
					k := fine.Index(2*i, 2*j)
					s := w0*(dc[k]+dc[k+fine.Stride]) + w1*(dc[k+1]+dc[k+fine.Stride+1])
					d[lv.Index(i, j)] = s / (2 * (w0 + w1))
				}
			}
		})
	}
}

// prolongInactive fills the inactive cells of level l from level l-1.
func (m *Mesh) prolongInactive(f *Field, l int) {
	coarse := m.levels[l-1]
	ParallelFor(coarse.N, rowChunk, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < coarse.N; j++ {
				if coarse.state[i*coarse.N+j] == Refined {
					continue
				}
				m.writeChildren(f, l-1, i, j, f.Refine(m, f, l-1, i, j))
			}
		}
	})
}

// ProlongAll overwrites every cell of level l with the prolongation of
// level l-1, whatever its state.
func (m *Mesh) ProlongAll(f *Field, l int) {
	coarse := m.levels[l-1]
	ParallelFor(coarse.N, rowChunk, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < coarse.N; j++ {
				m.writeChildren(f, l-1, i, j, f.Refine(m, f, l-1, i, j))
			}
		}
	})
}

func (m *Mesh) writeChildren(f *Field, l, i, j int, c [4]float64) {
	if f.Conservative && m.Axi {
		p := f.Data[l][m.levels[l].Index(i, j)]
		w0, w1 := m.Cm(l+1, 2*j), m.Cm(l+1, 2*j+1)
		c = Conserve(p, c, [4]float64{w0, w0, w1, w1}, f.Lo, f.Hi)
	}
	fine := m.levels[l+1]
	d := f.Data[l+1]
	k := fine.Index(2*i, 2*j)
	d[k] = c[0]
	d[k+fine.Stride] = c[1]
	d[k+1] = c[2]
	d[k+fine.Stride+1] = c[3]
}

// Conserve shifts the children so that their w-weighted mean equals parent,
// keeping every value within [lo, hi]. Children already at a bound absorb
// nothing; the remainder is spread over the others.
func Conserve(parent float64, c, w [4]float64, lo, hi float64) [4]float64 {
	var sw float64
	for _, x := range w {
		sw += x
	}
	if sw <= 0 {
		return c
	}
	for iter := 0; iter < 4; iter++ {
		var s, free float64
		for k := range c {
			s += w[k] * c[k]
		}
		defect := parent*sw - s
		if math.Abs(defect) <= 1e-14*sw*(1+math.Abs(parent)) {
			break
		}
		for k := range c {
			if (defect > 0 && c[k] < hi) || (defect < 0 && c[k] > lo) {
				free += w[k]
			}
		}
		if free <= 0 {
			break
		}
		shift := defect / free
		for k := range c {
			if (defect > 0 && c[k] < hi) || (defect < 0 && c[k] > lo) {
				c[k] = math.Min(hi, math.Max(lo, c[k]+shift))
			}
		}
	}
	return c
}

// FillGhosts applies the boundary conditions of f on level l. Corners are
// filled by the bottom/top pass from the left/right ghost columns.
func (m *Mesh) FillGhosts(f *Field, l int) {
	lv := m.levels[l]
	d := f.Data[l]
	n := lv.N
	for k := 0; k < Ghost; k++ {
		src := k
		if src >= n {
			src = n - 1
		}
		dist := float64(2*k+1) * lv.Delta
		for j := 0; j < n; j++ {
			d[lv.Index(-1-k, j)] = f.BC[Left].Ghost(d[lv.Index(src, j)], dist)
			d[lv.Index(n+k, j)] = f.BC[Right].Ghost(d[lv.Index(n-1-src, j)], dist)
		}
	}
	for k := 0; k < Ghost; k++ {
		src := k
		if src >= n {
			src = n - 1
		}
		dist := float64(2*k+1) * lv.Delta
		for i := -Ghost; i < n+Ghost; i++ {
			d[lv.Index(i, -1-k)] = f.BC[Bottom].Ghost(d[lv.Index(i, src)], dist)
			d[lv.Index(i, n+k)] = f.BC[Top].Ghost(d[lv.Index(i, n-1-src)], dist)
		}
	}
}

// RefineLinear prolongs with minmod-limited slopes.
func RefineLinear(m *Mesh, f *Field, l, i, j int) [4]float64 {
	lv := m.levels[l]
	d := f.Data[l]
	k := lv.Index(i, j)
	v := d[k]
	gx := minmod(d[k]-d[k-lv.Stride], d[k+lv.Stride]-d[k]) / 4
	gy := minmod(d[k]-d[k-1], d[k+1]-d[k]) / 4
	return [4]float64{v - gx - gy, v + gx - gy, v - gx + gy, v + gx + gy}
}

// RefineBilinear prolongs with the unlimited bilinear interpolant of the
// parent and its neighbours.
func RefineBilinear(m *Mesh, f *Field, l, i, j int) [4]float64 {
	lv := m.levels[l]
	d := f.Data[l]
	k := lv.Index(i, j)
	s := lv.Stride
	var c [4]float64
	for ch := 0; ch < 4; ch++ {
		di, dj := 2*(ch&1)-1, 2*(ch>>1)-1
		c[ch] = (9*d[k] + 3*(d[k+di*s]+d[k+dj]) + d[k+di*s+dj]) / 16
	}
	return c
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

// Dim is a coordinate direction.
type Dim int

const (
	X Dim = iota
	Y
)

// FaceField holds one value per face on every level. X[l][Index(i, j)] is
// the face between (i-1, j) and (i, j); Y[l][Index(i, j)] the face between
// (i, j-1) and (i, j).
type FaceField struct {
	Name string
	X, Y [][]float64
}

func (m *Mesh) NewFaceField(name string) *FaceField {
	ff := &FaceField{
		Name: name,
		X:    make([][]float64, len(m.levels)),
		Y:    make([][]float64, len(m.levels)),
	}
	for l, lv := range m.levels {
		ff.X[l] = make([]float64, lv.Size())
		ff.Y[l] = make([]float64, lv.Size())
	}
	return ff
}

// Component returns the data of dimension d.
func (ff *FaceField) Component(d Dim) [][]float64 {
	if d == X {
		return ff.X
	}
	return ff.Y
}

func (ff *FaceField) Fill(v float64) {
	for l := range ff.X {
		for k := range ff.X[l] {
			ff.X[l][k] = v
			ff.Y[l][k] = v
		}
	}
}

// Offset returns the index step to the upstream neighbour along d.
func (lv *Level) Offset(d Dim) int {
	if d == X {
		return lv.Stride
	}
	return 1
}

// ForEachLeafFace calls fn for every face of dimension d that touches a
// leaf of the same level, including boundary faces. Faces are visited in
// parallel by rows; fn must only write to the face it is given.
func (m *Mesh) ForEachLeafFace(d Dim, fn func(l, i, j int)) {
	for l := 0; l <= m.MaxLevel; l++ {
		lv := m.levels[l]
		if lv.leaves == 0 {
			continue
		}
		ParallelFor(lv.N+1, rowChunk, func(start, end int) {
			for i := start; i < end; i++ {
				for j := 0; j <= lv.N; j++ {
					if d == X {
						if j == lv.N || !(lv.IsLeaf(i-1, j) || lv.IsLeaf(i, j)) {
							continue
						}
					} else {
						if i == lv.N || !(lv.IsLeaf(i, j-1) || lv.IsLeaf(i, j)) {
							continue
						}
					}
					fn(l, i, j)
				}
			}
		})
	}
}

// RestrictFaces replaces every face adjacent to a refined cell with the
// mean of the two fine faces covering it.
func (m *Mesh) RestrictFaces(ff *FaceField) {
	m.RestrictFacesDim(ff, X)
	m.RestrictFacesDim(ff, Y)
}

// RestrictFacesDim restricts the faces of dimension d only.
func (m *Mesh) RestrictFacesDim(ff *FaceField, d Dim) {
	comp := ff.Component(d)
	for l := m.MaxLevel - 1; l >= 0; l-- {
		lv, fine := m.levels[l], m.levels[l+1]
		c, cf := comp[l], comp[l+1]
		ParallelFor(lv.N+1, rowChunk, func(start, end int) {
			for i := start; i < end; i++ {
				for j := 0; j <= lv.N; j++ {
					k := fine.Index(2*i, 2*j)
					if d == X {
						if j < lv.N && (lv.State(i-1, j) == Refined || lv.State(i, j) == Refined) {
							c[lv.Index(i, j)] = (cf[k] + cf[k+1]) / 2
						}
					} else if i < lv.N && (lv.State(i, j-1) == Refined || lv.State(i, j) == Refined) {
						c[lv.Index(i, j)] = (cf[k] + cf[k+fine.Stride]) / 2
					}
				}
			}
		})
	}
}

// Divergence stores the metric divergence of the face flux ff in out, on
// leaves.
func (m *Mesh) Divergence(ff *FaceField, out *Field) {
	m.ForEachLeaf(func(l, i, j int) {
		lv := m.levels[l]
		k := lv.Index(i, j)
		x, y := ff.X[l], ff.Y[l]
		out.Data[l][k] = (x[k+lv.Stride] - x[k] + y[k+1] - y[k]) / (m.Cm(l, j) * lv.Delta)
	})
}
