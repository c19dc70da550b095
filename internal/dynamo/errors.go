package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidConfig indicates a parameter outside its valid range.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrUnstable indicates the velocity became NaN or infinite.
	ErrUnstable = errors.New("dynamo: simulation unstable (velocity diverged)")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")

	// ErrNotInitialized indicates Step or Run before Init.
	ErrNotInitialized = errors.New("dynamo: simulation not initialized")

	// ErrFinished indicates a step past the end time.
	ErrFinished = errors.New("dynamo: end time reached")

	// ErrCheckpoint indicates a checkpoint that does not match the run.
	ErrCheckpoint = errors.New("dynamo: incompatible checkpoint")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
