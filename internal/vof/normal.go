package vof

import (
	"math"

	"github.com/san-kum/dropsim/internal/mesh"
)

// Stencil is the 3x3 block around a cell, Stencil[di+1][dj+1].
type Stencil [3][3]float64

// Gather reads the stencil of (i, j) from a padded level array.
func Gather(d []float64, lv *mesh.Level, i, j int) Stencil {
	var s Stencil
	for di := -1; di <= 1; di++ {
		k := lv.Index(i+di, j-1)
		s[di+1] = [3]float64{d[k], d[k+1], d[k+2]}
	}
	return s
}

func (s *Stencil) at(di, dj int) float64 { return s[di+1][dj+1] }

// Normal returns the interface normal of the centre cell, pointing out of
// the liquid and normalised so that |n.X| + |n.Y| = 1. It uses the
// Mixed-Youngs-Centred estimate, falls back to the Youngs gradient, then to
// the coordinate axis of the largest one-sided difference. A stencil without
// variation yields (1, 0).
func Normal(s Stencil) Coord {
	lo, hi := s[0][0], s[0][0]
	for _, row := range s {
		for _, v := range row {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if hi-lo < 1e-12 {
		return Coord{1, 0}
	}

	if n, ok := mixedYoungsCentred(&s); ok {
		return n
	}
	if n, ok := youngs(&s); ok {
		return n
	}
	return axisNormal(&s)
}

func mixedYoungsCentred(s *Stencil) (Coord, bool) {
	const eps = 1e-30

	ct := s.at(-1, 1) + 2*s.at(0, 1) + s.at(1, 1)
	cb := s.at(-1, -1) + 2*s.at(0, -1) + s.at(1, -1)
	cr := s.at(1, -1) + 2*s.at(1, 0) + s.at(1, 1)
	cl := s.at(-1, -1) + 2*s.at(-1, 0) + s.at(-1, 1)

	// centred estimate from column sums in the dominant direction
	mx0 := 0.5 * (cl - cr)
	my0 := 0.5 * (cb - ct)
	xdom := math.Abs(mx0) > math.Abs(my0)
	if xdom {
		mx0 = math.Copysign(1, mx0)
	} else {
		my0 = math.Copysign(1, my0)
	}

	mx1 := cl - cr + eps
	my1 := cb - ct + eps

	if xdom {
		if math.Abs(my1)/math.Abs(mx1) > math.Abs(my0) {
			mx0, my0 = mx1, my1
		}
	} else if math.Abs(mx1)/math.Abs(my1) > math.Abs(mx0) {
		mx0, my0 = mx1, my1
	}

	return normalize(mx0, my0)
}

func youngs(s *Stencil) (Coord, bool) {
	mx := s.at(-1, -1) + 2*s.at(-1, 0) + s.at(-1, 1) - s.at(1, -1) - 2*s.at(1, 0) - s.at(1, 1)
	my := s.at(-1, -1) + 2*s.at(0, -1) + s.at(1, -1) - s.at(-1, 1) - 2*s.at(0, 1) - s.at(1, 1)
	return normalize(mx, my)
}

func axisNormal(s *Stencil) Coord {
	best, n := -1.0, Coord{1, 0}
	c := s.at(0, 0)
	for _, d := range []struct {
		v float64
		n Coord
	}{
		{c - s.at(1, 0), Coord{1, 0}},
		{c - s.at(-1, 0), Coord{-1, 0}},
		{c - s.at(0, 1), Coord{0, 1}},
		{c - s.at(0, -1), Coord{0, -1}},
	} {
		if d.v > best {
			best, n = d.v, d.n
		}
	}
	return n
}

func normalize(x, y float64) (Coord, bool) {
	m := math.Abs(x) + math.Abs(y)
	if m == 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return Coord{}, false
	}
	return Coord{x / m, y / m}, true
}
