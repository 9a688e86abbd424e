package pros

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ShapeOf returns the extent of a grid.
func ShapeOf(m mat.Matrix) Shape {
	r, c := m.Dims()
	return Shape{Rows: r, Cols: c}
}

// ValidateShapes checks that every grid has the shape of the first one. It is
// the first check New runs, so no method ever sees inconsistent input.
func ValidateShapes(grids ...*mat.Dense) error {
	if len(grids) == 0 {
		return fmt.Errorf("%w: no fields supplied", ErrInvalidVariables)
	}
	for i, g := range grids {
		if g == nil || g.IsEmpty() {
			return fmt.Errorf("%w: field %d is empty", ErrInvalidVariables, i)
		}
	}
	want := ShapeOf(grids[0])
	for i, g := range grids[1:] {
		if got := ShapeOf(g); got != want {
			return &ShapeMismatchError{Expected: want, Actual: got, Index: i + 1}
		}
	}
	return nil
}
