package pros

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// IntensityLevel counts the breakpoints at or below v. Breakpoints must be
// ascending.
func IntensityLevel(v float64, breakpoints []float64) int {
	return sort.Search(len(breakpoints), func(k int) bool {
		return breakpoints[k] > v
	})
}

// CombinedCode merges a type and an intensity level into one value:
// rain 0–4, sleet 5–9, snow 10–14 with the default breakpoints.
func CombinedCode(t PrecipType, level int) int {
	return t.Offset() + level
}

// Mask combines the classification with a reflectivity grid of the same
// shape. NaN in either input gives NaN in the output. The engine is not
// modified, so repeated calls return equal grids.
func (e *Engine) Mask(refl *mat.Dense) (*mat.Dense, error) {
	if refl == nil || refl.IsEmpty() {
		return nil, &ShapeMismatchError{Expected: e.shape, Index: -1}
	}
	if got := ShapeOf(refl); got != e.shape {
		return nil, &ShapeMismatchError{Expected: e.shape, Actual: got, Index: -1}
	}

	out := mat.NewDense(e.shape.Rows, e.shape.Cols, nil)
	fill(out, e.workers, func(i, j int) float64 {
		r := refl.At(i, j)
		t, ok := e.typeOf(e.result.At(i, j))
		if !ok || math.IsNaN(r) {
			return math.NaN()
		}
		return float64(CombinedCode(t, IntensityLevel(r, e.breakpoints)))
	})
	return out, nil
}
