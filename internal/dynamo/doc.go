// Package dynamo drives a sessile-drop simulation.
//
// The package ties the solver components together and owns the run:
//
//   - [Config]: physical and numerical parameters of a run
//   - [State]: time, step counter and last step size
//   - [Simulator]: initialisation, the stepping loop and checkpoints
//   - [Observer]: hook called after every step (output, logging)
//   - [Metric]: scalar diagnostics accumulated over a run
//   - [Ensemble]: several independent runs in parallel
//
// # Step
//
// One step chooses dt, predicts and projects the face velocity, advects
// the volume fraction, recomputes heights, curvature and the interfacial
// potential, completes the momentum update and adapts the mesh.
//
// # Example
//
//	sim, _ := dynamo.New(dynamo.DefaultConfig())
//	_ = sim.Init("restart")
//	res, err := sim.Run(ctx)
//
// # Thread Safety
//
// A Simulator is NOT safe for concurrent use; its own loops are parallel
// internally. Use [Ensemble] to run several simulations at once.
package dynamo
