package pros

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidOption is returned by New for out-of-range engine options.
var ErrInvalidOption = errors.New("invalid engine option")

// NoticeCode identifies a non-fatal condition raised during construction.
type NoticeCode string

// NoticeMissingElevation: a wet-bulb method ran without an elevation grid.
const NoticeMissingElevation NoticeCode = "missing_elevation"

const missingElevationMessage = "Since no DEM is supplied, wet bulb temperature " +
	"calculations will assume a constant pressure of 1013.25 hPa."

// Notice is an informational condition. It never blocks a result.
type Notice struct {
	Code    NoticeCode `json:"code"`
	Message string     `json:"message"`
}

func (n Notice) String() string { return n.Message }

// Config bundles the inputs of one classification run. Labels run parallel
// to Fields; Threshold shape depends on Method (see ParseMethod).
type Config struct {
	Fields    []*mat.Dense
	Labels    []string
	Method    string
	Threshold any
}

// ProbabilityBands turn a probability of snow into a category: below Low is
// rain, above High is snow, anything between is sleet.
type ProbabilityBands struct {
	Low, High float64
}

// Classify bands a probability of snow.
func (b ProbabilityBands) Classify(p float64) PrecipType {
	switch {
	case p < b.Low:
		return Rain
	case p > b.High:
		return Snow
	default:
		return Sleet
	}
}

var (
	// DefaultBreakpoints bin reflectivity into intensity levels 0–4.
	DefaultBreakpoints = []float64{1, 5, 10, 15}
	// DefaultBands are the ks probability bands used by Mask.
	DefaultBands = ProbabilityBands{Low: 0.3, High: 0.7}
)

type options struct {
	logger      *slog.Logger
	workers     int
	breakpoints []float64
	bands       ProbabilityBands
}

// Option tunes an Engine.
type Option func(*options)

// WithLogger routes notices and debug output to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithWorkers sets how many row bands are computed concurrently.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithBreakpoints replaces the reflectivity breakpoints used by Mask. They
// must be strictly ascending and at most four, so a level never spills into
// the next type's block.
func WithBreakpoints(b ...float64) Option {
	return func(o *options) { o.breakpoints = slices.Clone(b) }
}

// WithProbabilityBands replaces the ks bands used by Mask.
func WithProbabilityBands(low, high float64) Option {
	return func(o *options) { o.bands = ProbabilityBands{Low: low, High: high} }
}

func (o *options) validate() error {
	if o.workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidOption, o.workers)
	}
	if err := ValidateBreakpoints(o.breakpoints); err != nil {
		return err
	}
	b := o.bands
	if math.IsNaN(b.Low) || math.IsNaN(b.High) || b.Low < 0 || b.High > 1 || b.Low > b.High {
		return fmt.Errorf("%w: probability bands must satisfy 0 <= low <= high <= 1", ErrInvalidOption)
	}
	return nil
}

// ValidateBreakpoints checks a reflectivity breakpoint list.
func ValidateBreakpoints(b []float64) error {
	if len(b) == 0 || len(b) >= typeOffset {
		return fmt.Errorf("%w: need between 1 and %d breakpoints, got %d", ErrInvalidOption, typeOffset-1, len(b))
	}
	if floats.HasNaN(b) {
		return fmt.Errorf("%w: breakpoints contain NaN", ErrInvalidOption)
	}
	for i, v := range b {
		if i > 0 && v <= b[i-1] {
			return fmt.Errorf("%w: breakpoints must be strictly ascending", ErrInvalidOption)
		}
	}
	return nil
}

// Engine holds one immutable classification result.
type Engine struct {
	method      Method
	shape       Shape
	result      *mat.Dense
	fraction    *mat.Dense
	notices     []Notice
	breakpoints []float64
	bands       ProbabilityBands
	workers     int
}

// New validates cfg and runs the selected method. Every fatal check runs
// before any cell is computed: shapes first, then the method and threshold,
// then the variable labels.
func New(cfg Config, opts ...Option) (*Engine, error) {
	o := options{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		workers:     1,
		breakpoints: DefaultBreakpoints,
		bands:       DefaultBands,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	if err := ValidateShapes(cfg.Fields...); err != nil {
		return nil, err
	}
	method, err := ParseMethod(cfg.Method, cfg.Threshold)
	if err != nil {
		return nil, err
	}
	vs, err := NewVariableSet(cfg.Fields, cfg.Labels)
	if err != nil {
		return nil, err
	}
	if err := vs.require(method.Name(), method.Requires()...); err != nil {
		return nil, err
	}

	e := &Engine{
		method:      method,
		shape:       ShapeOf(cfg.Fields[0]),
		breakpoints: o.breakpoints,
		bands:       o.bands,
		workers:     o.workers,
	}

	if method.WetBulb() && !vs.Has(Elevation) {
		n := Notice{Code: NoticeMissingElevation, Message: missingElevationMessage}
		e.notices = append(e.notices, n)
		o.logger.Warn(n.Message, "method", method.Name())
	}

	e.result = mat.NewDense(e.shape.Rows, e.shape.Cols, nil)
	fill(e.result, e.workers, classifier(method, vs))

	if lt, ok := method.(LinearTr); ok {
		t := vs[AirTemperature]
		e.fraction = mat.NewDense(e.shape.Rows, e.shape.Cols, nil)
		fill(e.fraction, e.workers, func(i, j int) float64 {
			return SnowFraction(t.At(i, j), lt.Low, lt.High)
		})
	}

	o.logger.Debug("precipitation type classified",
		"method", method.Name(),
		"rows", e.shape.Rows,
		"cols", e.shape.Cols,
		"workers", e.workers,
	)
	return e, nil
}

// Method returns the validated method selection.
func (e *Engine) Method() Method { return e.method }

// Shape returns the grid extent shared by inputs and result.
func (e *Engine) Shape() Shape { return e.shape }

// Probabilistic reports whether Result holds probabilities instead of categories.
func (e *Engine) Probabilistic() bool {
	_, ok := e.method.(KoistinenSaltikoff)
	return ok
}

// Result returns a copy of the classification grid.
func (e *Engine) Result() *mat.Dense {
	return mat.DenseCopyOf(e.result)
}

// SnowFraction returns a copy of the linear_tr mixing fraction, or nil for
// other methods.
func (e *Engine) SnowFraction() *mat.Dense {
	if e.fraction == nil {
		return nil
	}
	return mat.DenseCopyOf(e.fraction)
}

// Notices returns the informational conditions raised during construction.
func (e *Engine) Notices() []Notice {
	return slices.Clone(e.notices)
}

// TypeAt returns the precipitation type of one cell, banding ks
// probabilities. ok is false for NaN cells.
func (e *Engine) TypeAt(i, j int) (PrecipType, bool) {
	return e.typeOf(e.result.At(i, j))
}

func (e *Engine) typeOf(v float64) (PrecipType, bool) {
	if math.IsNaN(v) {
		return 0, false
	}
	if e.Probabilistic() {
		return e.bands.Classify(v), true
	}
	return PrecipType(v), true
}
