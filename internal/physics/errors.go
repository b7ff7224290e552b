package physics

import (
	"errors"
	"fmt"
)

// Domain errors for the simulation pipeline.
var (
	// ErrInvalidRadius indicates a collision radius that is not a positive finite number.
	ErrInvalidRadius = errors.New("physics: collision radius must be positive and finite")

	// ErrInvalidTimestep indicates a negative, NaN or infinite frame delta.
	ErrInvalidTimestep = errors.New("physics: timestep must be finite and non-negative")

	// ErrFrameInFlight indicates a call that must not overlap RunFrame.
	ErrFrameInFlight = errors.New("physics: frame in flight")

	// ErrClosed indicates use of a manager after Close.
	ErrClosed = errors.New("physics: manager closed")

	// ErrInvalidConfig indicates a constructor parameter out of range.
	ErrInvalidConfig = errors.New("physics: invalid config")
)

// FrameError wraps an error with the frame it happened in.
type FrameError struct {
	Frame   uint64
	Wrapped error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d: %v", e.Frame, e.Wrapped)
}

func (e *FrameError) Unwrap() error {
	return e.Wrapped
}
