package domain

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/storm-data-pros/internal/pros"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// referenceJob is a 3×1 column: warm on top, cold at the bottom.
func referenceJob(method string, threshold any) GridJob {
	return GridJob{
		ID:        "ref",
		Method:    method,
		Threshold: threshold,
		Labels:    []string{"tair", "tdew", "dem"},
		Fields: [][][]float64{
			{{20}, {2}, {-1}},
			{{20}, {0}, {-1}},
			{{0}, {1500}, {3000}},
		},
	}
}

func TestClassifyJob(t *testing.T) {
	fixed := time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	job := referenceJob("dual_ta", []any{0.0, 3.0})
	job.Reflectivity = [][]float64{{0.2}, {2}, {6}}
	job.Geo = &pros.GeoReference{OriginX: 10, OriginY: 47, PixelWidth: 0.01, PixelHeight: -0.01, EPSG: 4326}

	grid, notices, err := ClassifyJob(job)
	require.NoError(t, err)
	assert.Empty(t, notices)
	assert.Equal(t, "ref", grid.ID)
	assert.Equal(t, "dual_ta", grid.Method)
	assert.Equal(t, 3, grid.Rows)
	assert.Equal(t, 1, grid.Cols)
	assert.False(t, grid.Probabilistic)
	assert.Equal(t, [][]float64{{0}, {1}, {2}}, grid.Result)
	assert.Equal(t, [][]int{{0}, {6}, {12}}, grid.Combined)
	assert.Nil(t, grid.SnowFraction)
	assert.Equal(t, job.Geo, grid.Geo)
	assert.Equal(t, fixed, grid.ProcessedAt)
}

func TestClassifyJob_KSIsProbabilistic(t *testing.T) {
	grid, _, err := ClassifyJob(referenceJob("ks", nil))
	require.NoError(t, err)
	assert.True(t, grid.Probabilistic)
	assert.InDelta(t, 0.0, grid.Result[0][0], 1e-6)
	assert.InDelta(t, pros.KSProbability(2, 0), grid.Result[1][0], 1e-12)
	assert.Nil(t, grid.Combined)
}

func TestClassifyJob_LinearKeepsSnowFraction(t *testing.T) {
	grid, _, err := ClassifyJob(referenceJob("linear_tr", []float64{0, 4}))
	require.NoError(t, err)
	require.NotNil(t, grid.SnowFraction)
	assert.Equal(t, [][]float64{{0}, {0.5}, {1}}, grid.SnowFraction)
}

func TestClassifyJob_MissingElevationNotice(t *testing.T) {
	job := referenceJob("single_tw", 1.5)
	job.Labels = job.Labels[:2]
	job.Fields = job.Fields[:2]

	grid, notices, err := ClassifyJob(job)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, pros.NoticeMissingElevation, notices[0].Code)
	assert.Equal(t, notices, grid.Notices)
}

func TestClassifyJob_NoData(t *testing.T) {
	job := referenceJob("single_ta", 1.0)
	job.Fields[0][1][0] = NoDataValue
	job.Reflectivity = [][]float64{{NoDataValue}, {2}, {6}}

	grid, _, err := ClassifyJob(job)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0}, {NoDataValue}, {2}}, grid.Result)
	assert.Equal(t, [][]int{{NoDataValue}, {NoDataValue}, {12}}, grid.Combined)
}

func TestClassifyJob_Errors(t *testing.T) {
	t.Run("ragged field", func(t *testing.T) {
		job := referenceJob("ks", nil)
		job.Fields[1] = [][]float64{{20}, {0, 1}, {-1}}
		_, _, err := ClassifyJob(job)
		assert.ErrorIs(t, err, ErrInvalidJob)
		assert.Contains(t, err.Error(), "field 1")
	})

	t.Run("shape mismatch", func(t *testing.T) {
		job := referenceJob("ks", nil)
		job.Fields[2] = [][]float64{{0}}
		_, _, err := ClassifyJob(job)
		assert.ErrorIs(t, err, pros.ErrShapeMismatch)
	})

	t.Run("reflectivity shape", func(t *testing.T) {
		job := referenceJob("ks", nil)
		job.Reflectivity = [][]float64{{1, 2}}
		_, _, err := ClassifyJob(job)
		assert.ErrorIs(t, err, pros.ErrShapeMismatch)
		assert.Contains(t, err.Error(), "reflectivity")
	})

	t.Run("no fields", func(t *testing.T) {
		_, _, err := ClassifyJob(GridJob{Method: "ks"})
		assert.ErrorIs(t, err, pros.ErrInvalidVariables)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, _, err := ClassifyJob(referenceJob("thermal", nil))
		assert.ErrorIs(t, err, pros.ErrUnknownMethod)
	})

	t.Run("bad threshold", func(t *testing.T) {
		_, _, err := ClassifyJob(referenceJob("dual_tw", 2.0))
		assert.ErrorIs(t, err, pros.ErrInvalidThreshold)
	})
}

func TestClassifyJob_Options(t *testing.T) {
	job := referenceJob("dual_ta", []float64{0, 3})
	job.Reflectivity = [][]float64{{25}, {25}, {25}}

	grid, _, err := ClassifyJob(job, pros.WithBreakpoints(20), pros.WithWorkers(2))
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1}, {6}, {11}}, grid.Combined)
}

type captureWriter struct{ rasters []pros.Raster }

func (w *captureWriter) WriteRaster(_ context.Context, r pros.Raster) error {
	w.rasters = append(w.rasters, r)
	return nil
}

func TestNewEngine_SaveAndMask(t *testing.T) {
	job := referenceJob("linear_tr", []float64{0, 3})
	job.Fields[0][0][0] = NoDataValue
	job.Reflectivity = [][]float64{{0.2}, {2}, {6}}

	e, err := NewEngine(job)
	require.NoError(t, err)

	w := &captureWriter{}
	geo := pros.GeoReference{OriginX: 10, OriginY: 47, PixelWidth: 0.01, PixelHeight: -0.01}
	require.NoError(t, e.Save(context.Background(), w, "ref_result", geo))
	require.Len(t, w.rasters, 1)
	assert.Equal(t, "ref_result", w.rasters[0].Name)
	assert.True(t, math.IsNaN(w.rasters[0].Data.At(0, 0)))
	assert.Equal(t, 1.0, w.rasters[0].Data.At(1, 0))
	assert.Equal(t, geo, w.rasters[0].Geo)

	masked, err := MaskJob(job, e)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(masked.At(0, 0)))
	assert.Equal(t, []float64{6, 12}, []float64{masked.At(1, 0), masked.At(2, 0)})

	grid, err := Export(job, e)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{NoDataValue}, {6}, {12}}, grid.Combined)
	assert.Equal(t, [][]float64{{NoDataValue}, {1}, {2}}, grid.Result)
}

func TestMaskJob_NoReflectivity(t *testing.T) {
	job := referenceJob("dual_ta", []float64{0, 3})
	e, err := NewEngine(job)
	require.NoError(t, err)

	masked, err := MaskJob(job, e)
	require.NoError(t, err)
	assert.Nil(t, masked)

	job.Reflectivity = [][]float64{{1}, {1, 2}, {1}}
	_, err = MaskJob(job, e)
	assert.ErrorIs(t, err, ErrInvalidJob)
}
