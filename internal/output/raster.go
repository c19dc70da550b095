package output

import (
	"image"

	"github.com/san-kum/dropsim/internal/mesh"
)

// Mask reports whether a leaf is drawn.
type Mask func(l, i, j int) bool

// Raster samples f on an n x n grid covering the domain, nearest leaf
// value per pixel. x runs left to right and y bottom to top. Pixels whose
// leaf fails mask are drawn black.
func Raster(m *mesh.Mesh, f *mesh.Field, n int, lo, hi float64, cm Colormap, mask Mask) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, n, n), Palette(cm))
	h := m.L0 / float64(n)
	mesh.ParallelFor(n, 16, func(start, end int) {
		for py := start; py < end; py++ {
			y := m.L0 - (float64(py)+0.5)*h
			for px := 0; px < n; px++ {
				x := (float64(px) + 0.5) * h
				c := m.Locate(x, y)
				l, i, j := c.Level(), c.I(), c.J()
				idx := uint8(NoData)
				if mask == nil || mask(l, i, j) {
					idx = index(f.At(m, l, i, j), lo, hi)
				}
				img.Pix[py*img.Stride+px] = idx
			}
		}
	})
	return img
}
