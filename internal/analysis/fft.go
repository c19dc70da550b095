package analysis

import (
	"math"
	"math/cmplx"
	"sort"
)

// FFT is a radix-2 transform; len(data) must be a power of two.
func FFT(data []float64) []complex128 {
	n := len(data)
	if n <= 1 {
		result := make([]complex128, n)
		for i := range data {
			result[i] = complex(data[i], 0)
		}
		return result
	}

	if n%2 != 0 {
		panic("fft requires power of 2 length")
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}

	feven := FFT(even)
	fodd := FFT(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}
	return result
}

func PowerSpectrum(data []float64) []float64 {
	fft := FFT(data)
	ps := make([]float64, len(fft)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(fft[i])
	}
	return ps
}

// Resample interpolates (t, v) linearly onto n evenly spaced times
// spanning the samples. t must be increasing.
func Resample(t, v []float64, n int) []float64 {
	out := make([]float64, n)
	if len(t) == 0 || n == 0 {
		return out
	}
	if len(t) == 1 || n == 1 {
		for i := range out {
			out[i] = v[0]
		}
		return out
	}
	t0, t1 := t[0], t[len(t)-1]
	for i := range out {
		ti := t0 + (t1-t0)*float64(i)/float64(n-1)
		k := sort.SearchFloat64s(t, ti)
		switch {
		case k == 0:
			out[i] = v[0]
		case k >= len(t):
			out[i] = v[len(v)-1]
		default:
			w := (ti - t[k-1]) / (t[k] - t[k-1])
			out[i] = (1-w)*v[k-1] + w*v[k]
		}
	}
	return out
}

// nextPow2 is the smallest power of two not below n.
func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// DominantFrequency returns the frequency of the largest non-constant
// spectral peak of the mean-free series. Fewer than four samples give no
// answer.
func DominantFrequency(t, v []float64) (float64, bool) {
	if len(t) < 4 || len(t) != len(v) || t[len(t)-1] <= t[0] {
		return 0, false
	}
	n := nextPow2(len(t))
	data := Resample(t, v, n)
	mean := 0.0
	for _, x := range data {
		mean += x
	}
	mean /= float64(n)
	for i := range data {
		data[i] -= mean
	}

	ps := PowerSpectrum(data)
	best := 1
	for k := 2; k < len(ps); k++ {
		if ps[k] > ps[best] {
			best = k
		}
	}
	if ps[best] == 0 {
		return 0, false
	}
	// n samples span (n-1) intervals of the resampled grid
	span := (t[len(t)-1] - t[0]) * float64(n) / float64(n-1)
	return float64(best) / span, true
}

// SettlingTime is the first time after which v stays within tol of its
// last value.
func SettlingTime(t, v []float64, tol float64) float64 {
	if len(t) == 0 {
		return 0
	}
	final := v[len(v)-1]
	for k := len(v) - 1; k >= 0; k-- {
		if math.Abs(v[k]-final) > tol {
			if k+1 < len(t) {
				return t[k+1]
			}
			return t[k]
		}
	}
	return t[0]
}
