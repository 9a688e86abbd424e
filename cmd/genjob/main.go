// Command genjob generates synthetic classification jobs over an alpine
// elevation profile. Jobs can be written to a JSON file, published to the
// source topic, or both. One job is generated per method unless -method is
// set.
//
// Usage:
//
//	go run ./cmd/genjob \
//	  -rows 200 -cols 300 \
//	  -out data/mock/synthetic_jobs.json \
//	  -brokers localhost:9092 -topic precipitation-grid-jobs -encoding msgpack
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	kafkaadapter "github.com/couchcryptid/storm-data-pros/internal/adapter/kafka"
	"github.com/couchcryptid/storm-data-pros/internal/domain"
	"github.com/couchcryptid/storm-data-pros/internal/pros"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// lapseRate is the standard atmosphere temperature drop in °C per metre.
const lapseRate = 0.0065

// defaultThresholds pairs each method with a plausible threshold.
var defaultThresholds = map[pros.MethodName]any{
	pros.MethodKS:       nil,
	pros.MethodSingleTa: 1.0,
	pros.MethodSingleTw: 1.5,
	pros.MethodLinearTr: []float64{0, 3},
	pros.MethodDualTa:   []float64{0, 3},
	pros.MethodDualTw:   []float64{0, 3},
}

type profile struct {
	rows, cols int
	seaLevelT  float64
	peak       float64
	rng        *rand.Rand
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rows := flag.Int("rows", 64, "grid rows")
	cols := flag.Int("cols", 64, "grid columns")
	seaLevelT := flag.Float64("sea-level-temp", 8, "air temperature at 0 m in °C")
	peak := flag.Float64("peak", 3500, "highest elevation in metres")
	seed := flag.Uint64("seed", 1, "random seed")
	method := flag.String("method", "", "generate only this method")
	out := flag.String("out", "", "output path for the JSON job file")
	brokers := flag.String("brokers", "", "comma-separated Kafka brokers to publish to")
	topic := flag.String("topic", "precipitation-grid-jobs", "topic to publish to")
	encoding := flag.String("encoding", "json", "payload encoding when publishing: json or msgpack")
	createTopic := flag.Bool("create-topic", false, "create the topic before publishing")
	flag.Parse()

	if *out == "" && *brokers == "" {
		flag.Usage()
		return fmt.Errorf("nothing to do: set -out, -brokers or both")
	}
	if *rows < 1 || *cols < 1 {
		return fmt.Errorf("grid must be at least 1x1, got %dx%d", *rows, *cols)
	}
	enc, err := domain.ParseEncoding(*encoding)
	if err != nil {
		return err
	}

	methods := pros.MethodNames
	if *method != "" {
		name := pros.MethodName(strings.ToLower(*method))
		m, err := pros.ParseMethod(string(name), defaultThresholds[name])
		if err != nil {
			return err
		}
		methods = []pros.MethodName{m.Name()}
	}

	p := profile{
		rows:      *rows,
		cols:      *cols,
		seaLevelT: *seaLevelT,
		peak:      *peak,
		rng:       rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)),
	}
	tair, tdew, dem, refl := p.generate()

	jobs := make([]domain.GridJob, 0, len(methods))
	for _, m := range methods {
		jobs = append(jobs, domain.GridJob{
			ID:           fmt.Sprintf("synthetic-%s-%dx%d", m, *rows, *cols),
			Method:       string(m),
			Threshold:    defaultThresholds[m],
			Labels:       []string{"tair", "tdew", "dem"},
			Fields:       [][][]float64{tair, tdew, dem},
			Reflectivity: refl,
			Geo: &pros.GeoReference{
				OriginX:     10,
				OriginY:     47,
				PixelWidth:  0.01,
				PixelHeight: -0.01,
				EPSG:        4326,
			},
		})
	}
	log.Printf("generated %d jobs on a %dx%d grid", len(jobs), *rows, *cols)

	if *out != "" {
		if err := writeJSON(*out, jobs); err != nil {
			return fmt.Errorf("writing job file: %w", err)
		}
		log.Printf("wrote job file: %s", *out)
	}

	if *brokers != "" {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := publish(ctx, sharedcfg.ParseBrokers(*brokers), *topic, enc, *createTopic, jobs); err != nil {
			return fmt.Errorf("publishing: %w", err)
		}
		log.Printf("published %d jobs to %s as %s", len(jobs), *topic, enc)
	}
	return nil
}

// generate builds a ridge that rises towards the centre column, cooling with
// height. Dew point depression and reflectivity carry seeded noise.
func (p profile) generate() (tair, tdew, dem, refl [][]float64) {
	tair = make([][]float64, p.rows)
	tdew = make([][]float64, p.rows)
	dem = make([][]float64, p.rows)
	refl = make([][]float64, p.rows)
	for i := range p.rows {
		tair[i] = make([]float64, p.cols)
		tdew[i] = make([]float64, p.cols)
		dem[i] = make([]float64, p.cols)
		refl[i] = make([]float64, p.cols)
		for j := range p.cols {
			x := float64(j)/float64(max(p.cols-1, 1))*2 - 1
			z := p.peak * math.Exp(-4*x*x) * (0.6 + 0.4*float64(i)/float64(max(p.rows-1, 1)))
			t := p.seaLevelT - lapseRate*z + p.rng.NormFloat64()*0.5
			dem[i][j] = round(z, 1)
			tair[i][j] = round(t, 2)
			tdew[i][j] = round(t-p.rng.Float64()*4, 2)
			refl[i][j] = round(p.rng.Float64()*25, 2)
		}
	}
	return tair, tdew, dem, refl
}

func round(v float64, places int) float64 {
	f := math.Pow10(places)
	return math.Round(v*f) / f
}

func publish(ctx context.Context, brokers []string, topic string, enc domain.Encoding, create bool, jobs []domain.GridJob) error {
	if create {
		if err := kafkaadapter.CreateTopics(brokers, 1, topic); err != nil {
			return err
		}
	}

	w := kafkaadapter.NewTopicWriter(brokers, topic, slog.Default())
	defer w.Close()

	events := make([]domain.OutputEvent, 0, len(jobs))
	for _, job := range jobs {
		value, err := domain.Marshal(job, enc)
		if err != nil {
			return err
		}
		events = append(events, domain.OutputEvent{
			Key:     []byte(job.ID),
			Value:   value,
			Headers: map[string]string{domain.HeaderContentType: enc.ContentType()},
		})
	}
	return w.LoadBatch(ctx, events)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
