package pros

import (
	"math"

	"github.com/couchcryptid/storm-data-pros/internal/psychro"
	"gonum.org/v1/gonum/mat"
)

// PrecipType is the categorical output of the deterministic methods.
type PrecipType int

const (
	Rain PrecipType = iota
	Sleet
	Snow
)

// typeOffset is the combined-code spacing between precipitation types.
const typeOffset = 5

func (p PrecipType) String() string {
	switch p {
	case Rain:
		return "rain"
	case Sleet:
		return "sleet"
	case Snow:
		return "snow"
	default:
		return "unknown"
	}
}

// Offset is the base of the type's block in the combined code.
func (p PrecipType) Offset() int {
	return int(p) * typeOffset
}

// cellFunc computes one output cell.
type cellFunc func(i, j int) float64

// KSProbability is the Koistinen–Saltikoff probability of snow for an air
// temperature and dew point.
func KSProbability(t, td float64) float64 {
	if math.IsNaN(t) || math.IsNaN(td) {
		return math.NaN()
	}
	rh := psychro.RelativeHumidity(t, td)
	return 1 - 1/(1+math.Exp(22-2.7*t-0.2*rh))
}

// singleThreshold: below th is snow, anything else rain.
func singleThreshold(v, th float64) float64 {
	switch {
	case math.IsNaN(v):
		return math.NaN()
	case v < th:
		return float64(Snow)
	default:
		return float64(Rain)
	}
}

func dualThreshold(v, low, high float64) float64 {
	switch {
	case math.IsNaN(v):
		return math.NaN()
	case v < low:
		return float64(Snow)
	case v > high:
		return float64(Rain)
	default:
		return float64(Sleet)
	}
}

// SnowFraction is the linear_tr mixing fraction: 1 at or below low, 0 at or
// above high.
func SnowFraction(v, low, high float64) float64 {
	if math.IsNaN(v) {
		return math.NaN()
	}
	return math.Min(1, math.Max(0, (high-v)/(high-low)))
}

// wetBulbAt derives wet-bulb temperature lazily per cell so that it shares
// the row-band parallelism of the classifier. z may be nil.
func wetBulbAt(t, td, z *mat.Dense) cellFunc {
	return func(i, j int) float64 {
		p := psychro.StandardPressure
		if z != nil {
			p = psychro.PressureFromElevation(z.At(i, j))
		}
		v := t.At(i, j)
		return psychro.WetBulb(v, psychro.RelativeHumidity(v, td.At(i, j)), p)
	}
}

// classifier selects the per-cell computation for a method.
func classifier(m Method, vs VariableSet) cellFunc {
	t := vs[AirTemperature]
	switch m := m.(type) {
	case KoistinenSaltikoff:
		td := vs[DewPointTemperature]
		return func(i, j int) float64 {
			return KSProbability(t.At(i, j), td.At(i, j))
		}
	case SingleTa:
		return func(i, j int) float64 {
			return singleThreshold(t.At(i, j), m.Threshold)
		}
	case SingleTw:
		tw := wetBulbAt(t, vs[DewPointTemperature], vs[Elevation])
		return func(i, j int) float64 {
			return singleThreshold(tw(i, j), m.Threshold)
		}
	case LinearTr:
		// Categories follow dual_ta; only the snow fraction differs.
		return func(i, j int) float64 {
			return dualThreshold(t.At(i, j), m.Low, m.High)
		}
	case DualTa:
		return func(i, j int) float64 {
			return dualThreshold(t.At(i, j), m.Low, m.High)
		}
	case DualTw:
		tw := wetBulbAt(t, vs[DewPointTemperature], vs[Elevation])
		return func(i, j int) float64 {
			return dualThreshold(tw(i, j), m.Low, m.High)
		}
	default:
		panic("pros: unhandled method " + string(m.Name()))
	}
}
