package mesh

import (
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"
)

var numWorkers = runtime.NumCPU()

// ParallelFor executes a function in parallel over a range [0, n)
func ParallelFor(n, minChunk int, fn func(start, end int)) {
	if n <= minChunk || numWorkers <= 1 {
		fn(0, n)
		return
	}

	workers := numWorkers
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// rowChunk is the minimum number of rows handed to a worker.
const rowChunk = 8

// ForEachLeaf calls fn for every leaf, level by level, rows in parallel.
// fn must only write to the cell it is given.
func (m *Mesh) ForEachLeaf(fn func(l, i, j int)) {
	for l := 0; l <= m.MaxLevel; l++ {
		lv := m.levels[l]
		if lv.leaves == 0 {
			continue
		}
		ParallelFor(lv.N, rowChunk, func(start, end int) {
			for i := start; i < end; i++ {
				row := lv.state[i*lv.N : (i+1)*lv.N]
				for j, s := range row {
					if s == Leaf {
						fn(l, i, j)
					}
				}
			}
		})
	}
}

// ForEachActive calls fn for every leaf or refined cell of level l.
func (m *Mesh) ForEachActive(l int, fn func(i, j int)) {
	lv := m.levels[l]
	ParallelFor(lv.N, rowChunk, func(start, end int) {
		for i := start; i < end; i++ {
			row := lv.state[i*lv.N : (i+1)*lv.N]
			for j, s := range row {
				if s != Inactive {
					fn(i, j)
				}
			}
		}
	})
}

// MaxLeaves returns the largest value of fn over all leaves. fn is expected
// to be non-negative (norms, magnitudes); rows without leaves count as 0.
// Per-row maxima are reduced in row order so the result does not depend on
// scheduling.
func (m *Mesh) MaxLeaves(fn func(l, i, j int) float64) float64 {
	return m.reduceLeaves(fn, floats.Max, func(a, b float64) float64 {
		if b > a {
			return b
		}
		return a
	})
}

// SumLeaves returns the sum of fn over all leaves in a deterministic order.
func (m *Mesh) SumLeaves(fn func(l, i, j int) float64) float64 {
	return m.reduceLeaves(fn, floats.Sum, func(a, b float64) float64 { return a + b })
}

func (m *Mesh) reduceLeaves(fn func(l, i, j int) float64, reduce func([]float64) float64, acc func(a, b float64) float64) float64 {
	var total float64
	for l := 0; l <= m.MaxLevel; l++ {
		lv := m.levels[l]
		if lv.leaves == 0 {
			continue
		}
		rows := make([]float64, lv.N)
		ParallelFor(lv.N, rowChunk, func(start, end int) {
			for i := start; i < end; i++ {
				var r float64
				first := true
				for j := 0; j < lv.N; j++ {
					if lv.state[i*lv.N+j] != Leaf {
						continue
					}
					v := fn(l, i, j)
					if first {
						r, first = v, false
					} else {
						r = acc(r, v)
					}
				}
				rows[i] = r
			}
		})
		total = acc(total, reduce(rows))
	}
	return total
}
