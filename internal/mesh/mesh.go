package mesh

import (
	"errors"
	"fmt"
)

// Ghost is the depth of the halo kept around every level.
const Ghost = 3

// MaxDepth bounds MaxLevel so that cell indices fit a Cell handle.
const MaxDepth = 20

var (
	ErrLevels = errors.New("mesh: invalid level range")
	ErrSize   = errors.New("mesh: domain size must be positive")
)

// State of a cell on its level.
type State uint8

const (
	Inactive State = iota
	Leaf
	Refined
)

func (s State) String() string {
	switch s {
	case Leaf:
		return "leaf"
	case Refined:
		return "refined"
	default:
		return "inactive"
	}
}

// Side of the square domain.
type Side int

const (
	Left Side = iota
	Right
	Bottom
	Top
)

var sideNames = [4]string{"left", "right", "bottom", "top"}

func (s Side) String() string { return sideNames[s] }

// Cell is a stable handle packing (level, i, j).
type Cell uint64

func MakeCell(level, i, j int) Cell {
	return Cell(uint64(level)<<48 | uint64(i)<<24 | uint64(j))
}

func (c Cell) Level() int { return int(c >> 48) }
func (c Cell) I() int     { return int(c>>24) & 0xffffff }
func (c Cell) J() int     { return int(c) & 0xffffff }

func (c Cell) Parent() Cell {
	return MakeCell(c.Level()-1, c.I()/2, c.J()/2)
}

// Child returns child k of c, k = di + 2*dj with di, dj in {0, 1}.
func (c Cell) Child(k int) Cell {
	return MakeCell(c.Level()+1, 2*c.I()+(k&1), 2*c.J()+(k>>1))
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.Level(), c.I(), c.J())
}

// Level is one dense layer of the tree.
type Level struct {
	N      int
	Stride int
	Delta  float64

	state  []State
	leaves int
}

// Index returns the position of cell (i, j) in a padded level array.
// Indices in [-Ghost, N+Ghost) are valid.
func (lv *Level) Index(i, j int) int {
	return (i+Ghost)*lv.Stride + j + Ghost
}

func (lv *Level) Size() int { return lv.Stride * lv.Stride }

func (lv *Level) Inside(i, j int) bool {
	return i >= 0 && j >= 0 && i < lv.N && j < lv.N
}

// State returns the state of (i, j); cells outside the domain are Inactive.
func (lv *Level) State(i, j int) State {
	if !lv.Inside(i, j) {
		return Inactive
	}
	return lv.state[i*lv.N+j]
}

func (lv *Level) IsLeaf(i, j int) bool { return lv.State(i, j) == Leaf }

// Leaves returns the number of leaves on the level.
func (lv *Level) Leaves() int { return lv.leaves }

func (lv *Level) set(i, j int, s State) {
	k := i*lv.N + j
	old := lv.state[k]
	if old == Leaf {
		lv.leaves--
	}
	if s == Leaf {
		lv.leaves++
	}
	lv.state[k] = s
}

// Mesh is the adaptive quadtree over [0, L0]^2.
type Mesh struct {
	L0       float64
	MinLevel int
	MaxLevel int
	Axi      bool

	levels []*Level
	fields []*Field
}

// New builds a mesh whose leaves all sit on initLevel.
func New(l0 float64, minLevel, maxLevel, initLevel int, axi bool) (*Mesh, error) {
	if l0 <= 0 {
		return nil, ErrSize
	}
	if minLevel < 0 || maxLevel > MaxDepth || minLevel > maxLevel ||
		initLevel < minLevel || initLevel > maxLevel {
		return nil, fmt.Errorf("%w: min=%d init=%d max=%d", ErrLevels, minLevel, initLevel, maxLevel)
	}

	m := &Mesh{L0: l0, MinLevel: minLevel, MaxLevel: maxLevel, Axi: axi}
	m.levels = make([]*Level, maxLevel+1)
	for l := range m.levels {
		n := 1 << l
		m.levels[l] = &Level{
			N:      n,
			Stride: n + 2*Ghost,
			Delta:  l0 / float64(n),
			state:  make([]State, n*n),
		}
	}
	m.Reset(initLevel)
	return m, nil
}

// Reset makes every cell of level l a leaf, discarding finer levels.
func (m *Mesh) Reset(l int) {
	for k, lv := range m.levels {
		s := Inactive
		switch {
		case k < l:
			s = Refined
		case k == l:
			s = Leaf
		}
		for i := range lv.state {
			lv.state[i] = s
		}
		lv.leaves = 0
		if s == Leaf {
			lv.leaves = lv.N * lv.N
		}
	}
}

func (m *Mesh) Level(l int) *Level { return m.levels[l] }

func (m *Mesh) StateOf(c Cell) State {
	return m.levels[c.Level()].State(c.I(), c.J())
}

// X returns the centre abscissa of column i on level l.
func (m *Mesh) X(l, i int) float64 { return (float64(i) + 0.5) * m.levels[l].Delta }

// Y returns the centre ordinate of row j on level l.
func (m *Mesh) Y(l, j int) float64 { return (float64(j) + 0.5) * m.levels[l].Delta }

// Cm is the volume metric of row j.
func (m *Mesh) Cm(l, j int) float64 {
	if !m.Axi {
		return 1
	}
	return m.Y(l, j)
}

// FmX is the length metric of the x-faces of row j.
func (m *Mesh) FmX(l, j int) float64 {
	if !m.Axi {
		return 1
	}
	return m.Y(l, j)
}

// FmY is the length metric of the y-face below row j.
func (m *Mesh) FmY(l, j int) float64 {
	if !m.Axi {
		return 1
	}
	return float64(j) * m.levels[l].Delta
}

// Volume of cell (l, ·, j) per radian in axisymmetric mode.
func (m *Mesh) Volume(l, j int) float64 {
	d := m.levels[l].Delta
	return m.Cm(l, j) * d * d
}

// Leaves returns the number of leaves.
func (m *Mesh) Leaves() int {
	n := 0
	for _, lv := range m.levels {
		n += lv.leaves
	}
	return n
}

// LevelCounts returns the number of leaves per level.
func (m *Mesh) LevelCounts() []int {
	c := make([]int, len(m.levels))
	for l, lv := range m.levels {
		c[l] = lv.leaves
	}
	return c
}

// FinestLevel returns the deepest level holding a leaf.
func (m *Mesh) FinestLevel() int {
	for l := m.MaxLevel; l > 0; l-- {
		if m.levels[l].leaves > 0 {
			return l
		}
	}
	return 0
}

// LeafCells lists every leaf in level, row, column order.
func (m *Mesh) LeafCells() []Cell {
	out := make([]Cell, 0, m.Leaves())
	for l, lv := range m.levels {
		if lv.leaves == 0 {
			continue
		}
		for i := 0; i < lv.N; i++ {
			for j := 0; j < lv.N; j++ {
				if lv.state[i*lv.N+j] == Leaf {
					out = append(out, MakeCell(l, i, j))
				}
			}
		}
	}
	return out
}

// SetLeaves rebuilds the tree from a list of leaves. Ancestors become
// refined; everything else becomes inactive.
func (m *Mesh) SetLeaves(cells []Cell) error {
	for _, lv := range m.levels {
		for i := range lv.state {
			lv.state[i] = Inactive
		}
		lv.leaves = 0
	}
	for _, c := range cells {
		l := c.Level()
		if l > m.MaxLevel || !m.levels[l].Inside(c.I(), c.J()) {
			return fmt.Errorf("%w: leaf %v outside the tree", ErrLevels, c)
		}
		m.levels[l].set(c.I(), c.J(), Leaf)
		for p := c; p.Level() > 0; {
			p = p.Parent()
			m.levels[p.Level()].set(p.I(), p.J(), Refined)
		}
	}
	return nil
}

// Locate returns the leaf containing the point (x, y), clamped to the domain.
func (m *Mesh) Locate(x, y float64) Cell {
	c := MakeCell(0, 0, 0)
	for l := 0; l <= m.MaxLevel; l++ {
		lv := m.levels[l]
		i := clampIndex(int(x/lv.Delta), lv.N)
		j := clampIndex(int(y/lv.Delta), lv.N)
		c = MakeCell(l, i, j)
		if lv.State(i, j) != Refined {
			break
		}
	}
	return c
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Refine splits the leaf c, first refining coarser neighbours as needed to
// keep the 2:1 balance (diagonals included). It returns the number of cells
// that were split.
func (m *Mesh) Refine(c Cell) int {
	l := c.Level()
	lv := m.levels[l]
	if l >= m.MaxLevel || lv.State(c.I(), c.J()) != Leaf {
		return 0
	}

	n := 0
	if l > 0 {
		for di := -1; di <= 1; di++ {
			for dj := -1; dj <= 1; dj++ {
				i, j := c.I()+di, c.J()+dj
				if lv.Inside(i, j) {
					n += m.activate(MakeCell(l, i, j))
				}
			}
		}
	}

	lv.set(c.I(), c.J(), Refined)
	next := m.levels[l+1]
	for k := 0; k < 4; k++ {
		ch := c.Child(k)
		next.set(ch.I(), ch.J(), Leaf)
	}
	return n + 1
}

// activate refines ancestors of an inactive cell until the cell exists.
func (m *Mesh) activate(c Cell) int {
	if m.StateOf(c) != Inactive {
		return 0
	}
	p := c.Parent()
	return m.activate(p) + m.Refine(p)
}

// CanCoarsen reports whether merging the children of c keeps the tree
// balanced and respects MinLevel.
func (m *Mesh) CanCoarsen(c Cell) bool {
	l := c.Level()
	if l < m.MinLevel || l >= m.MaxLevel {
		return false
	}
	lv := m.levels[l]
	if lv.State(c.I(), c.J()) != Refined {
		return false
	}
	next := m.levels[l+1]
	for k := 0; k < 4; k++ {
		ch := c.Child(k)
		if next.State(ch.I(), ch.J()) != Leaf {
			return false
		}
	}
	for di := -1; di <= 1; di++ {
		for dj := -1; dj <= 1; dj++ {
			i, j := c.I()+di, c.J()+dj
			if (di == 0 && dj == 0) || lv.State(i, j) != Refined {
				continue
			}
			nb := MakeCell(l, i, j)
			for k := 0; k < 4; k++ {
				ch := nb.Child(k)
				if next.State(ch.I(), ch.J()) == Refined {
					return false
				}
			}
		}
	}
	return true
}

// Coarsen merges the four leaf children of c. Values already held by c are
// the restriction of its children, so no transfer is needed.
func (m *Mesh) Coarsen(c Cell) bool {
	if !m.CanCoarsen(c) {
		return false
	}
	next := m.levels[c.Level()+1]
	for k := 0; k < 4; k++ {
		ch := c.Child(k)
		next.set(ch.I(), ch.J(), Inactive)
	}
	m.levels[c.Level()].set(c.I(), c.J(), Leaf)
	return true
}

// Balanced reports whether every leaf differs by at most one level from all
// of its (diagonal included) neighbours.
func (m *Mesh) Balanced() bool {
	for l := 1; l <= m.MaxLevel; l++ {
		lv := m.levels[l]
		for i := 0; i < lv.N; i++ {
			for j := 0; j < lv.N; j++ {
				if lv.state[i*lv.N+j] != Leaf {
					continue
				}
				for di := -1; di <= 1; di++ {
					for dj := -1; dj <= 1; dj++ {
						ni, nj := i+di, j+dj
						if lv.Inside(ni, nj) && lv.State(ni, nj) == Inactive &&
							m.levels[l-1].State(ni/2, nj/2) == Inactive {
							return false
						}
					}
				}
			}
		}
	}
	return true
}
