package pros

import (
	"context"
	"errors"

	"gonum.org/v1/gonum/mat"
)

// GeoReference places a grid on the ground. It is supplied by the caller's
// raster I/O layer; the engine only passes it through.
type GeoReference struct {
	OriginX     float64 `json:"origin_x"`     // x of the upper-left corner
	OriginY     float64 `json:"origin_y"`     // y of the upper-left corner
	PixelWidth  float64 `json:"pixel_width"`  // cell size along x
	PixelHeight float64 `json:"pixel_height"` // cell size along y, negative for north-up
	EPSG        int     `json:"epsg,omitempty"`
}

// GeoTransform returns the affine transform in GDAL order.
func (g GeoReference) GeoTransform() [6]float64 {
	return [6]float64{g.OriginX, g.PixelWidth, 0, g.OriginY, 0, g.PixelHeight}
}

// Raster is a grid handed to an external writer.
type Raster struct {
	Name string
	Data *mat.Dense
	Geo  GeoReference
}

// ResultWriter persists rasters. Implementations live outside this package.
type ResultWriter interface {
	WriteRaster(ctx context.Context, r Raster) error
}

// Save hands a copy of the classification result to w under name.
func (e *Engine) Save(ctx context.Context, w ResultWriter, name string, geo GeoReference) error {
	if w == nil {
		return errors.New("pros: nil result writer")
	}
	return w.WriteRaster(ctx, Raster{Name: name, Data: e.Result(), Geo: geo})
}
