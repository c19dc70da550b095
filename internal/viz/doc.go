// Package viz shows a running simulation in the terminal with Bubble Tea.
//
// A [Feed] observes the run and passes [Snapshot] values to the [Model],
// which draws the interface on a braille [Canvas] either as a meridian
// section mirrored about the axis or, after M, as a surface of revolution.
//
// # Key Bindings
//
//	Space - Pause/Resume the view
//	M     - Toggle the 3D view
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
//
// # Recording
//
// G records the canvas as a GIF animation, saved to the current directory
// when recording stops.
package viz
