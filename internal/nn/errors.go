package nn

import (
	"errors"
	"fmt"

	"github.com/born-ml/convnet/internal/tensor"
)

// Error taxonomy of the engine. Both kinds are fatal: nothing in the engine
// retries or recovers from them.
var (
	// ErrConfiguration covers architecture mistakes: input shape unset before
	// adding a layer, a Dense layer followed by Conv or Pool, a terminal layer
	// that is not Dense, or invalid layer geometry.
	ErrConfiguration = errors.New("configuration error")

	// ErrShapeMismatch is matched by *ShapeMismatchError.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// ShapeMismatchError reports a tensor whose shape disagrees with the shape a
// layer was configured for.
//
// Layers raise it as a panic value from Forward and Backward, the way shape
// violations are reported throughout the engine. Network boundaries convert it
// back into an error.
type ShapeMismatchError struct {
	Layer string        // Layer description (e.g. "Conv2D")
	Op    string        // "forward" or "backward"
	Want  tensor.Shape3 // Configured shape
	Got   tensor.Shape3 // Received shape
}

// Error implements the error interface.
func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s %s: expected shape %v, got %v", e.Layer, e.Op, e.Want, e.Got)
}

// Is makes errors.Is(err, ErrShapeMismatch) hold.
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// configErrorf wraps ErrConfiguration with context.
func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func checkShape(layer, op string, want, got tensor.Shape3) {
	if want != got {
		panic(&ShapeMismatchError{Layer: layer, Op: op, Want: want, Got: got})
	}
}
