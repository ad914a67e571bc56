package neuralnet

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotPrimed is panicked when backprop runs on a neuron that has no
	// cached training forward pass for the current example.
	ErrNotPrimed = errors.New("backprop without a preceding training forward pass")

	ErrInvalidParams = errors.New("invalid params")
)

// ShapeError reports a vector whose length does not match what the receiving
// neuron, layer or network was built for.
type ShapeError struct {
	Where string
	Got   int
	Want  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: length %d, want %d", e.Where, e.Got, e.Want)
}

func shapeError(where string, got, want int) error {
	return errors.WithStack(&ShapeError{Where: where, Got: got, Want: want})
}

// IsShapeError reports whether the root cause of err is a *ShapeError.
func IsShapeError(err error) bool {
	_, ok := errors.Cause(err).(*ShapeError)
	return ok
}
