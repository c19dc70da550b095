package vof

import "math"

// Coord is a point or a vector in cell-local or physical coordinates.
type Coord struct{ X, Y float64 }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LineAlpha returns the line constant alpha such that the region n·p <= alpha
// of the unit cell [-1/2, 1/2]^2 has area c. n is normalised so that
// |n.X| + |n.Y| = 1.
func LineAlpha(c float64, n Coord) float64 {
	n1, n2 := math.Abs(n.X), math.Abs(n.Y)
	if n1 > n2 {
		n1, n2 = n2, n1
	}

	c = clamp(c, 0, 1)
	v1 := n1 / 2
	var alpha float64
	switch {
	case c <= v1/n2:
		alpha = math.Sqrt(2 * c * n1 * n2)
	case c <= 1-v1/n2:
		alpha = c*n2 + v1
	default:
		alpha = n1 + n2 - math.Sqrt(2*n1*n2*(1-c))
	}

	if n.X < 0 {
		alpha += n.X
	}
	if n.Y < 0 {
		alpha += n.Y
	}
	return alpha - (n.X+n.Y)/2
}

// LineArea is the inverse of LineAlpha: the area of n·p <= alpha inside the
// unit cell.
func LineArea(n Coord, alpha float64) float64 {
	nx, ny := n.X, n.Y
	alpha += (nx + ny) / 2
	if nx < 0 {
		alpha -= nx
		nx = -nx
	}
	if ny < 0 {
		alpha -= ny
		ny = -ny
	}

	if alpha <= 0 {
		return 0
	}
	if alpha >= nx+ny {
		return 1
	}

	var area float64
	switch {
	case nx < 1e-10:
		area = alpha / ny
	case ny < 1e-10:
		area = alpha / nx
	default:
		v := alpha * alpha
		if a := alpha - nx; a > 0 {
			v -= a * a
		}
		if a := alpha - ny; a > 0 {
			v -= a * a
		}
		area = v / (2 * nx * ny)
	}
	return clamp(area, 0, 1)
}

// RectangleFraction returns the fraction of the rectangle [lo, hi] (in
// cell-local coordinates) lying in n·p <= alpha.
func RectangleFraction(n Coord, alpha float64, lo, hi Coord) float64 {
	alpha -= n.X*(hi.X+lo.X)/2 + n.Y*(hi.Y+lo.Y)/2
	return LineArea(Coord{n.X * (hi.X - lo.X), n.Y * (hi.Y - lo.Y)}, alpha)
}

// LineSegment returns the end points of the line n·p = alpha clipped to the
// unit cell. ok is false when the line misses the cell.
func LineSegment(n Coord, alpha float64) (a, b Coord, ok bool) {
	var p [4]Coord
	k := 0
	add := func(c Coord) {
		for q := 0; q < k; q++ {
			if math.Abs(p[q].X-c.X) < 1e-12 && math.Abs(p[q].Y-c.Y) < 1e-12 {
				return
			}
		}
		p[k] = c
		k++
	}
	for _, s := range []float64{-0.5, 0.5} {
		if math.Abs(n.Y) > 1e-10 {
			if y := (alpha - s*n.X) / n.Y; y >= -0.5 && y <= 0.5 {
				add(Coord{s, y})
			}
		}
		if math.Abs(n.X) > 1e-10 {
			if x := (alpha - s*n.Y) / n.X; x >= -0.5 && x <= 0.5 {
				add(Coord{x, s})
			}
		}
	}
	if k < 2 {
		return Coord{}, Coord{}, false
	}
	return p[0], p[1], true
}

// Centroid returns the midpoint and length of the facet of a cell with
// fraction c and normal n, in cell-local coordinates.
func Centroid(c float64, n Coord) (Coord, float64, bool) {
	a, b, ok := LineSegment(n, LineAlpha(c, n))
	if !ok {
		return Coord{}, 0, false
	}
	return Coord{(a.X + b.X) / 2, (a.Y + b.Y) / 2}, math.Hypot(b.X-a.X, b.Y-a.Y), true
}

// SquareFraction returns the fraction of the unit square where the linear
// interpolant of the corner values is non-negative. Corners are given
// counter-clockwise from (0, 0).
func SquareFraction(v [4]float64) float64 {
	corners := [4]Coord{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	var poly [8]Coord
	np := 0
	for k := 0; k < 4; k++ {
		a, b := corners[k], corners[(k+1)%4]
		va, vb := v[k], v[(k+1)%4]
		if va >= 0 {
			poly[np] = a
			np++
		}
		if (va >= 0) != (vb >= 0) {
			t := va / (va - vb)
			poly[np] = Coord{a.X + t*(b.X-a.X), a.Y + t*(b.Y-a.Y)}
			np++
		}
	}

	var area float64
	for k := 0; k < np; k++ {
		p, q := poly[k], poly[(k+1)%np]
		area += p.X*q.Y - q.X*p.Y
	}
	return clamp(area/2, 0, 1)
}
