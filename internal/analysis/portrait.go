package analysis

import "strings"

// Portrait plots ys against xs on a width x height character grid, with
// ten percent padding around the data. The last point is drawn as 'o'.
func Portrait(xs, ys []float64, width, height int) string {
	n := min(len(xs), len(ys))
	if n == 0 || width < 2 || height < 2 {
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

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for k := 0; k < n; k++ {
		col := int((xs[k] - minX) / rangeX * float64(width-1))
		row := height - 1 - int((ys[k]-minY)/rangeY*float64(height-1))
		if row < 0 || row >= height || col < 0 || col >= width {
			continue
		}
		if k == n-1 {
			canvas[row][col] = 'o'
		} else {
			canvas[row][col] = '•'
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
