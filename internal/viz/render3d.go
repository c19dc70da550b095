package viz

import (
	"math"
	"sort"

	"github.com/san-kum/dropsim/internal/vof"
)

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Camera manages 3D projection to a 2D plane.
type Camera struct {
	Distance         float64
	Near             float64
	RotX, RotY, RotZ float64
	Zoom             float64
}

// NewCamera looks at the unit cube from slightly above.
func NewCamera() *Camera {
	return &Camera{Distance: 5, Near: 0.1, RotX: -0.5, Zoom: 1.0}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// RotatePoint rotates a point around the camera's axes.
func (c *Camera) RotatePoint(p Vec3) Vec3 {
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	p.X, p.Y = p.X*cz-p.Y*sz, p.X*sz+p.Y*cz
	return p
}

// Project converts 3D world coordinates to dot coordinates on a sw x sh
// canvas. It returns x, y, depth, and visibility.
func (c *Camera) Project(p Vec3, sw, sh int) (int, int, float64, bool) {
	rot := c.RotatePoint(p).Scale(c.Zoom)
	dist := c.Distance
	if rot.Z >= dist-c.Near {
		return 0, 0, 0, false
	}
	scale := dist / (dist - rot.Z)
	pScale := math.Min(float64(sw), float64(sh)) / 2.5
	sx := int(rot.X*scale*pScale) + sw/2
	sy := int(-rot.Y*scale*pScale) + sh/2
	return sx, sy, rot.Z, sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

type Edge struct{ Start, End Vec3 }

type Wireframe struct{ Edges []Edge }

func (w *Wireframe) AddEdge(s, e Vec3) { w.Edges = append(w.Edges, Edge{s, e}) }

type projectedEdge struct {
	x1, y1, x2, y2 int
	depth          float64
}

// Render3D draws the wireframe far to near.
func Render3D(c *Canvas, w *Wireframe, cam *Camera) {
	if c == nil || w == nil || cam == nil {
		return
	}
	cw, ch := c.Dots()
	proj := make([]projectedEdge, 0, len(w.Edges))
	for _, e := range w.Edges {
		x1, y1, d1, v1 := cam.Project(e.Start, cw, ch)
		x2, y2, d2, v2 := cam.Project(e.End, cw, ch)
		if v1 || v2 {
			proj = append(proj, projectedEdge{x1, y1, x2, y2, (d1 + d2) / 2})
		}
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].depth < proj[j].depth })
	for _, e := range proj {
		c.DrawLine(e.x1, e.y1, e.x2, e.y2)
	}
}

// Revolve turns the facets of a meridian section into a surface of
// revolution with the given number of meridians. The axial coordinate
// becomes the vertical axis; lengths are divided by scale.
func Revolve(segs []vof.Segment, meridians int, scale float64) *Wireframe {
	w := &Wireframe{}
	at := func(c vof.Coord, phi float64) Vec3 {
		r := c.Y / scale
		return Vec3{r * math.Cos(phi), c.X/scale - 0.5, r * math.Sin(phi)}
	}
	for k := 0; k < meridians; k++ {
		phi := 2 * math.Pi * float64(k) / float64(meridians)
		for _, s := range segs {
			w.AddEdge(at(s.A, phi), at(s.B, phi))
		}
	}
	// the wetted ring on the substrate
	if len(segs) > 0 {
		base := segs[0].A
		for _, s := range segs {
			for _, c := range []vof.Coord{s.A, s.B} {
				if c.X < base.X {
					base = c
				}
			}
		}
		for k := 0; k < 2*meridians; k++ {
			a := 2 * math.Pi * float64(k) / float64(2*meridians)
			b := 2 * math.Pi * float64(k+1) / float64(2*meridians)
			w.AddEdge(at(base, a), at(base, b))
		}
	}
	return w
}
