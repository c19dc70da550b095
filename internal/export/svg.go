// Package export renders saved interfaces and probe series as SVG.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/san-kum/dropsim/internal/vof"
)

// ReadFacets parses the interface files written during a run: blocks of
// two "x y" lines separated by blank lines.
func ReadFacets(r io.Reader) ([]vof.Segment, error) {
	var (
		segs []vof.Segment
		pts  []vof.Coord
		line int
	)
	flush := func() error {
		switch len(pts) {
		case 0:
		case 2:
			segs = append(segs, vof.Segment{A: pts[0], B: pts[1]})
		default:
			return fmt.Errorf("export: line %d: segment with %d points", line, len(pts))
		}
		pts = pts[:0]
		return nil
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("export: line %d: expected two coordinates", line)
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("export: line %d: %w", line, err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("export: line %d: %w", line, err)
		}
		pts = append(pts, vof.Coord{X: x, Y: y})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return segs, nil
}

// FacetsSVG draws the interface mirrored about the axis, with the
// substrate along the bottom edge. The view spans the radial range
// [-l0/2, l0/2] and the axial range [0, l0/2].
func FacetsSVG(segs []vof.Segment, l0 float64, size int, stroke string) string {
	w, h := size, size/2
	half := l0 / 2
	scale := float64(w) / (2 * half)
	px := func(c vof.Coord, sign float64) (float64, float64) {
		return float64(w)/2 + sign*c.Y*scale, float64(h) - c.X*scale
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<line x1="0" y1="%d" x2="%d" y2="%d" stroke="#888888" stroke-width="2"/>
<g stroke="%s" stroke-width="1.5" stroke-linecap="round">
`, w, h, w, h, h, w, h, stroke)
	for _, s := range segs {
		for _, sign := range []float64{1, -1} {
			x1, y1 := px(s.A, sign)
			x2, y2 := px(s.B, sign)
			fmt.Fprintf(&sb, "<line x1=\"%.1f\" y1=\"%.1f\" x2=\"%.1f\" y2=\"%.1f\"/>\n", x1, y1, x2, y2)
		}
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// SeriesSVG draws ys against xs as a polyline with ten percent padding.
func SeriesSVG(xs, ys []float64, width, height int, stroke string) string {
	n := min(len(xs), len(ys))
	if n < 2 {
		return ""
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for k := 0; k < n; k++ {
		minX, maxX = min(minX, xs[k]), max(maxX, xs[k])
		minY, maxY = min(minY, ys[k]), max(maxY, ys[k])
	}
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, stroke)
	for k := 0; k < n; k++ {
		x := (xs[k] - minX) / rangeX * float64(width)
		y := float64(height) - (ys[k]-minY)/rangeY*float64(height)
		if k == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
