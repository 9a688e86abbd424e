package pros

import (
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// fill evaluates fn for every cell of dst. With more than one worker the
// rows are split into contiguous bands; bands never touch the same cell.
func fill(dst *mat.Dense, workers int, fn cellFunc) {
	rows, cols := dst.Dims()
	if workers <= 1 || rows < 2 {
		fillRows(dst, 0, rows, cols, fn)
		return
	}

	band := (rows + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < rows; start += band {
		end := min(start+band, rows)
		g.Go(func() error {
			fillRows(dst, start, end, cols, fn)
			return nil
		})
	}
	_ = g.Wait()
}

func fillRows(dst *mat.Dense, start, end, cols int, fn cellFunc) {
	for i := start; i < end; i++ {
		for j := range cols {
			dst.Set(i, j, fn(i, j))
		}
	}
}
