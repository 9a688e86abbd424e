package pros

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// MethodName identifies a discrimination method on the wire.
type MethodName string

const (
	MethodKS       MethodName = "ks"
	MethodSingleTa MethodName = "single_ta"
	MethodSingleTw MethodName = "single_tw"
	MethodLinearTr MethodName = "linear_tr"
	MethodDualTa   MethodName = "dual_ta"
	MethodDualTw   MethodName = "dual_tw"
)

// MethodNames lists the registry in a stable order.
var MethodNames = []MethodName{
	MethodKS, MethodSingleTa, MethodSingleTw, MethodLinearTr, MethodDualTa, MethodDualTw,
}

// Method is a validated method selection. The set of implementations is
// closed; each carries its own threshold payload.
type Method interface {
	Name() MethodName
	// Requires lists the variables that must be present.
	Requires() []Variable
	// WetBulb reports whether the method works on derived wet-bulb temperature.
	WetBulb() bool
	sealed()
}

// KoistinenSaltikoff yields a probability of snow from air temperature and
// relative humidity.
type KoistinenSaltikoff struct{}

// SingleTa splits rain from snow at one air temperature.
type SingleTa struct{ Threshold float64 }

// SingleTw splits rain from snow at one wet-bulb temperature.
type SingleTw struct{ Threshold float64 }

// LinearTr grades from snow at Low to rain at High, retaining the snow fraction.
type LinearTr struct{ Low, High float64 }

// DualTa cuts air temperature into snow, sleet and rain.
type DualTa struct{ Low, High float64 }

// DualTw cuts wet-bulb temperature into snow, sleet and rain.
type DualTw struct{ Low, High float64 }

func (KoistinenSaltikoff) Name() MethodName { return MethodKS }
func (SingleTa) Name() MethodName           { return MethodSingleTa }
func (SingleTw) Name() MethodName           { return MethodSingleTw }
func (LinearTr) Name() MethodName           { return MethodLinearTr }
func (DualTa) Name() MethodName             { return MethodDualTa }
func (DualTw) Name() MethodName             { return MethodDualTw }

func (KoistinenSaltikoff) Requires() []Variable { return []Variable{AirTemperature, DewPointTemperature} }
func (SingleTa) Requires() []Variable           { return []Variable{AirTemperature} }
func (SingleTw) Requires() []Variable           { return []Variable{AirTemperature, DewPointTemperature} }
func (LinearTr) Requires() []Variable           { return []Variable{AirTemperature} }
func (DualTa) Requires() []Variable             { return []Variable{AirTemperature} }
func (DualTw) Requires() []Variable             { return []Variable{AirTemperature, DewPointTemperature} }

func (KoistinenSaltikoff) WetBulb() bool { return false }
func (SingleTa) WetBulb() bool           { return false }
func (SingleTw) WetBulb() bool           { return true }
func (LinearTr) WetBulb() bool           { return false }
func (DualTa) WetBulb() bool             { return false }
func (DualTw) WetBulb() bool             { return true }

func (KoistinenSaltikoff) sealed() {}
func (SingleTa) sealed()           {}
func (SingleTw) sealed()           {}
func (LinearTr) sealed()           {}
func (DualTa) sealed()             {}
func (DualTw) sealed()             {}

// ParseMethod validates a method name and its threshold. The threshold of
// ks is ignored; single_* take a number; linear_tr and dual_* take a pair.
func ParseMethod(name string, threshold any) (Method, error) {
	m := MethodName(strings.ToLower(strings.TrimSpace(name)))
	switch m {
	case MethodKS:
		return KoistinenSaltikoff{}, nil
	case MethodSingleTa, MethodSingleTw:
		th, ok := toFloat(threshold)
		if !ok {
			return nil, &ThresholdError{Method: m, Arity: 1}
		}
		if math.IsNaN(th) {
			return nil, &ThresholdError{Method: m, Arity: 1, Reason: "threshold is NaN"}
		}
		if m == MethodSingleTa {
			return SingleTa{Threshold: th}, nil
		}
		return SingleTw{Threshold: th}, nil
	case MethodLinearTr, MethodDualTa, MethodDualTw:
		pair, ok := toPair(threshold)
		if !ok {
			return nil, &ThresholdError{Method: m, Arity: 2}
		}
		low, high := pair[0], pair[1]
		if math.IsNaN(low) || math.IsNaN(high) {
			return nil, &ThresholdError{Method: m, Arity: 2, Reason: "threshold is NaN"}
		}
		switch m {
		case MethodLinearTr:
			if low >= high {
				return nil, &ThresholdError{Method: m, Arity: 2, Reason: "low must be below high"}
			}
			return LinearTr{Low: low, High: high}, nil
		case MethodDualTa:
			if low > high {
				return nil, &ThresholdError{Method: m, Arity: 2, Reason: "low must not exceed high"}
			}
			return DualTa{Low: low, High: high}, nil
		default:
			if low > high {
				return nil, &ThresholdError{Method: m, Arity: 2, Reason: "low must not exceed high"}
			}
			return DualTw{Low: low, High: high}, nil
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toPair(v any) ([2]float64, bool) {
	switch x := v.(type) {
	case [2]float64:
		return x, true
	case []float64:
		if len(x) == 2 {
			return [2]float64{x[0], x[1]}, true
		}
	case []int:
		if len(x) == 2 {
			return [2]float64{float64(x[0]), float64(x[1])}, true
		}
	case []any:
		if len(x) != 2 {
			return [2]float64{}, false
		}
		lo, ok1 := toFloat(x[0])
		hi, ok2 := toFloat(x[1])
		if ok1 && ok2 {
			return [2]float64{lo, hi}, true
		}
	}
	return [2]float64{}, false
}
