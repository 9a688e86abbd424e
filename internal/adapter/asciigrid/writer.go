// Package asciigrid writes rasters in the ESRI ASCII grid format.
package asciigrid

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/storm-data-pros/internal/pros"
)

// NoDataValue is written for NaN cells.
const NoDataValue = -9999

// Writer stores each raster as <dir>/<name>.asc. It implements
// pros.ResultWriter.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Path returns the file a raster named name is written to.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name+".asc")
}

// WriteRaster writes r through a temporary file and renames it into place.
func (w *Writer) WriteRaster(ctx context.Context, r pros.Raster) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Name == "" || filepath.Base(r.Name) != r.Name {
		return fmt.Errorf("invalid raster name %q", r.Name)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, r.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	if err := Encode(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", r.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), w.Path(r.Name))
}

// Encode writes the header and rows of r to out. A raster without a
// geo-reference gets unit cells anchored at the origin.
func Encode(out io.Writer, r pros.Raster) error {
	if r.Data == nil || r.Data.IsEmpty() {
		return errors.New("empty raster")
	}
	rows, cols := r.Data.Dims()

	g := r.Geo
	dx, dy := g.PixelWidth, math.Abs(g.PixelHeight)
	if dx == 0 || dy == 0 {
		dx, dy = 1, 1
	}
	yll := g.OriginY - float64(rows)*dy
	if g.PixelHeight == 0 && g.PixelWidth == 0 {
		yll = g.OriginY
	}

	bw := bufio.NewWriter(out)
	fmt.Fprintf(bw, "ncols %d\n", cols)
	fmt.Fprintf(bw, "nrows %d\n", rows)
	fmt.Fprintf(bw, "xllcorner %s\n", formatFloat(g.OriginX))
	fmt.Fprintf(bw, "yllcorner %s\n", formatFloat(yll))
	if dx == dy {
		fmt.Fprintf(bw, "cellsize %s\n", formatFloat(dx))
	} else {
		fmt.Fprintf(bw, "dx %s\n", formatFloat(dx))
		fmt.Fprintf(bw, "dy %s\n", formatFloat(dy))
	}
	fmt.Fprintf(bw, "NODATA_value %d\n", NoDataValue)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				bw.WriteByte(' ')
			}
			v := r.Data.At(i, j)
			if math.IsNaN(v) {
				bw.WriteString(strconv.Itoa(NoDataValue))
				continue
			}
			bw.WriteString(formatFloat(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
