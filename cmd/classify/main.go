// Command classify runs precipitation-type classification on job files
// without Kafka. It prints a per-type summary for each job and can write the
// result, snow-fraction and combined-mask grids as ESRI ASCII rasters.
//
// Usage:
//
//	go run ./cmd/classify \
//	  -jobs data/mock/reference_jobs.json \
//	  -out /tmp/pros \
//	  -workers 4
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/storm-data-pros/internal/adapter/asciigrid"
	"github.com/couchcryptid/storm-data-pros/internal/domain"
	"github.com/couchcryptid/storm-data-pros/internal/pros"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	jobsPath := flag.String("jobs", "", "JSON file holding one job or an array of jobs")
	outDir := flag.String("out", "", "directory for ASCII rasters (optional)")
	method := flag.String("method", "ks", "method for jobs that name none")
	workers := flag.Int("workers", 1, "row bands classified in parallel")
	resultOut := flag.String("result-out", "", "write classified grids to this file (optional)")
	format := flag.String("format", "json", "encoding for -result-out: json or msgpack")
	flag.Parse()

	if *jobsPath == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -jobs")
	}

	enc, err := domain.ParseEncoding(*format)
	if err != nil {
		return err
	}

	jobs, err := loadJobs(*jobsPath)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}

	var writer *asciigrid.Writer
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			return err
		}
		writer = asciigrid.NewWriter(*outDir)
	}

	ctx := context.Background()
	grids := make([]domain.ClassifiedGrid, 0, len(jobs))
	for i, job := range jobs {
		job = domain.WithDefaults(job, fmt.Sprintf("job-%d", i), *method)
		e, err := domain.NewEngine(job, pros.WithWorkers(*workers))
		if err != nil {
			return fmt.Errorf("classify %s: %w", job.ID, err)
		}
		grid, err := domain.Export(job, e)
		if err != nil {
			return fmt.Errorf("classify %s: %w", job.ID, err)
		}
		for _, n := range grid.Notices {
			log.Printf("%s: %s", job.ID, n.Message)
		}
		printSummary(grid)

		if writer != nil {
			if err := writeRasters(ctx, writer, job, e); err != nil {
				return fmt.Errorf("write rasters for %s: %w", job.ID, err)
			}
		}
		grids = append(grids, grid)
	}

	if *resultOut != "" {
		data, err := domain.Marshal(grids, enc)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*resultOut, data, 0o600); err != nil {
			return err
		}
		log.Printf("wrote %d results: %s", len(grids), *resultOut)
	}
	return nil
}

// loadJobs accepts a single job object or an array of jobs.
func loadJobs(path string) ([]domain.GridJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var job domain.GridJob
		if err := json.Unmarshal(data, &job); err != nil {
			return nil, err
		}
		return []domain.GridJob{job}, nil
	}
	var jobs []domain.GridJob
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// writeRasters saves the result through the engine, then the snow fraction
// and combined mask when the job produced them.
func writeRasters(ctx context.Context, w *asciigrid.Writer, job domain.GridJob, e *pros.Engine) error {
	var geo pros.GeoReference
	if job.Geo != nil {
		geo = *job.Geo
	}

	name := job.ID + "_result"
	if err := e.Save(ctx, w, name, geo); err != nil {
		return err
	}
	log.Printf("wrote %s", filepath.Base(w.Path(name)))

	masked, err := domain.MaskJob(job, e)
	if err != nil {
		return err
	}
	extra := []pros.Raster{
		{Name: job.ID + "_snow_fraction", Data: e.SnowFraction(), Geo: geo},
		{Name: job.ID + "_combined", Data: masked, Geo: geo},
	}
	for _, r := range extra {
		if r.Data == nil {
			continue
		}
		if err := w.WriteRaster(ctx, r); err != nil {
			return err
		}
		log.Printf("wrote %s", filepath.Base(w.Path(r.Name)))
	}
	return nil
}

func printSummary(grid domain.ClassifiedGrid) {
	fmt.Printf("\n=== %s (%s, %dx%d) ===\n", grid.ID, grid.Method, grid.Rows, grid.Cols)

	var rain, sleet, snow, nodata int
	var sum float64
	for _, row := range grid.Result {
		for _, v := range row {
			if v == domain.NoDataValue || math.IsNaN(v) {
				nodata++
				continue
			}
			if grid.Probabilistic {
				sum += v
				switch pros.DefaultBands.Classify(v) {
				case pros.Rain:
					rain++
				case pros.Sleet:
					sleet++
				case pros.Snow:
					snow++
				}
				continue
			}
			switch v {
			case 0:
				rain++
			case 1:
				sleet++
			case 2:
				snow++
			}
		}
	}
	fmt.Printf("rain=%d sleet=%d snow=%d nodata=%d\n", rain, sleet, snow, nodata)
	if grid.Probabilistic {
		if n := rain + sleet + snow; n > 0 {
			fmt.Printf("mean snow probability: %.3f\n", sum/float64(n))
		}
	}
	if grid.Combined != nil {
		codes := map[int]int{}
		for _, row := range grid.Combined {
			for _, c := range row {
				codes[c]++
			}
		}
		fmt.Print("combined codes:")
		for c := 0; c <= pros.CombinedCode(pros.Snow, len(pros.DefaultBreakpoints)); c++ {
			if n := codes[c]; n > 0 {
				fmt.Printf(" %d=%d", c, n)
			}
		}
		fmt.Println()
	}
}
