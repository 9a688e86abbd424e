package domain

import (
	"fmt"
	"math"

	"github.com/couchcryptid/storm-data-pros/internal/pros"
	"gonum.org/v1/gonum/mat"
)

// ClassifyJob runs the classifier on a job and, when the job carries
// reflectivity, the combined mask. The notices are also recorded on the
// returned grid.
func ClassifyJob(job GridJob, opts ...pros.Option) (ClassifiedGrid, []pros.Notice, error) {
	e, err := NewEngine(job, opts...)
	if err != nil {
		return ClassifiedGrid{}, nil, err
	}
	grid, err := Export(job, e)
	if err != nil {
		return ClassifiedGrid{}, nil, err
	}
	return grid, grid.Notices, nil
}

// NewEngine builds the classification engine for a job.
func NewEngine(job GridJob, opts ...pros.Option) (*pros.Engine, error) {
	fields := make([]*mat.Dense, len(job.Fields))
	for k, f := range job.Fields {
		d, err := toDense(f)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", k, err)
		}
		fields[k] = d
	}

	return pros.New(pros.Config{
		Fields:    fields,
		Labels:    job.Labels,
		Method:    job.Method,
		Threshold: job.Threshold,
	}, opts...)
}

// Export turns an engine built from job into its wire form, masking with the
// job's reflectivity when present.
func Export(job GridJob, e *pros.Engine) (ClassifiedGrid, error) {
	shape := e.Shape()
	grid := ClassifiedGrid{
		ID:            job.ID,
		Method:        string(e.Method().Name()),
		Rows:          shape.Rows,
		Cols:          shape.Cols,
		Probabilistic: e.Probabilistic(),
		Result:        fromDense(e.Result()),
		Notices:       e.Notices(),
		Geo:           job.Geo,
		ProcessedAt:   clock.Now().UTC(),
	}
	if f := e.SnowFraction(); f != nil {
		grid.SnowFraction = fromDense(f)
	}

	masked, err := MaskJob(job, e)
	if err != nil {
		return ClassifiedGrid{}, err
	}
	if masked != nil {
		grid.Combined = toCodes(masked)
	}
	return grid, nil
}

// MaskJob applies the job's reflectivity to e. It returns nil when the job
// has none.
func MaskJob(job GridJob, e *pros.Engine) (*mat.Dense, error) {
	if len(job.Reflectivity) == 0 {
		return nil, nil
	}
	refl, err := toDense(job.Reflectivity)
	if err != nil {
		return nil, fmt.Errorf("reflectivity: %w", err)
	}
	masked, err := e.Mask(refl)
	if err != nil {
		return nil, fmt.Errorf("reflectivity: %w", err)
	}
	return masked, nil
}

// toDense converts nested rows into a grid, reading NoDataValue as NaN. An
// empty grid yields nil so the engine reports it.
func toDense(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, nil
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidJob, i, len(row), cols)
		}
		for _, v := range row {
			if v == NoDataValue {
				v = math.NaN()
			}
			data = append(data, v)
		}
	}
	return mat.NewDense(len(rows), cols, data), nil
}

func fromDense(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		row := mat.Row(nil, i, m)
		for j, v := range row {
			if math.IsNaN(v) {
				row[j] = NoDataValue
			}
		}
		out[i] = row
	}
	return out
}

func toCodes(m *mat.Dense) [][]int {
	r, c := m.Dims()
	out := make([][]int, r)
	for i := range out {
		out[i] = make([]int, c)
		for j := range out[i] {
			v := m.At(i, j)
			if math.IsNaN(v) {
				out[i][j] = NoDataValue
				continue
			}
			out[i][j] = int(v)
		}
	}
	return out
}
