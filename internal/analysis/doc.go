// Package analysis characterises the relaxation of a drop from probe
// histories.
//
//   - [DominantFrequency]: oscillation frequency of an unevenly sampled series
//   - [PowerSpectrum]: amplitude spectrum of a power-of-two series
//   - [SettlingTime]: time after which a series stays near its final value
//   - [Portrait]: two probe series plotted against each other as ASCII
//
// # Oscillation
//
// A drop released as a hemisphere spreads or retracts towards its
// equilibrium angle while its surface rings at the capillary frequency:
//
//	t, theta, _ := storage.Series(rows)
//	f, ok := analysis.DominantFrequency(t, theta)
package analysis
