package pros

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch matches any *ShapeMismatchError.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInvalidThreshold matches any *ThresholdError.
	ErrInvalidThreshold = errors.New("invalid threshold")
	// ErrUnknownMethod is returned for a method name outside the registry.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrInvalidVariables covers empty input, unknown or duplicate labels and
	// label lists that do not line up with the grid list.
	ErrInvalidVariables = errors.New("invalid variables")
	// ErrMissingVariable is returned when a method's required input is absent.
	ErrMissingVariable = errors.New("missing variable")
)

// Shape is the (rows, cols) extent of a grid.
type Shape struct {
	Rows, Cols int
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d)", s.Rows, s.Cols)
}

// ShapeMismatchError reports two grids of one computation with different
// extents. Index is the position of the offending grid in the input list, or
// -1 when the mismatch is against the classification result.
type ShapeMismatchError struct {
	Expected Shape
	Actual   Shape
	Index    int
}

func (e *ShapeMismatchError) Error() string {
	return "Variables fields must have the same shape."
}

func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// ThresholdError reports a threshold whose type or arity does not fit the
// selected method.
type ThresholdError struct {
	Method MethodName
	Arity  int // 1 for scalar methods, 2 for pair methods
	Reason string
}

func (e *ThresholdError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("invalid threshold for the method %s: %s", e.Method, e.Reason)
	case e.Arity == 2:
		return fmt.Sprintf("the thresholds for the method %s must be a list/tuple of length two", e.Method)
	default:
		return fmt.Sprintf("the threshold for the method %s must be a float", e.Method)
	}
}

func (e *ThresholdError) Is(target error) bool {
	return target == ErrInvalidThreshold
}
