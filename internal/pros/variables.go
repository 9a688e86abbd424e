package pros

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Variable names a physical quantity carried by an input grid.
type Variable string

const (
	AirTemperature      Variable = "air_temperature"       // °C
	DewPointTemperature Variable = "dew_point_temperature" // °C
	Elevation           Variable = "elevation"             // metres
)

// aliases maps the short raster-file labels onto the variable vocabulary.
var aliases = map[string]Variable{
	"air_temperature":       AirTemperature,
	"tair":                  AirTemperature,
	"dew_point_temperature": DewPointTemperature,
	"tdew":                  DewPointTemperature,
	"elevation":             Elevation,
	"dem":                   Elevation,
}

// ParseVariable resolves a label, accepting the short aliases tair, tdew and dem.
func ParseVariable(label string) (Variable, error) {
	v, ok := aliases[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return "", fmt.Errorf("%w: unknown variable %q", ErrInvalidVariables, label)
	}
	return v, nil
}

// VariableSet maps each supplied variable to its grid. All grids share one
// shape; NewVariableSet does not re-check that, ValidateShapes does.
type VariableSet map[Variable]*mat.Dense

// NewVariableSet pairs an ordered grid list with a parallel label list.
func NewVariableSet(fields []*mat.Dense, labels []string) (VariableSet, error) {
	if len(fields) != len(labels) {
		return nil, fmt.Errorf("%w: %d fields but %d labels", ErrInvalidVariables, len(fields), len(labels))
	}
	vs := make(VariableSet, len(fields))
	for i, label := range labels {
		v, err := ParseVariable(label)
		if err != nil {
			return nil, err
		}
		if _, dup := vs[v]; dup {
			return nil, fmt.Errorf("%w: variable %s supplied twice", ErrInvalidVariables, v)
		}
		vs[v] = fields[i]
	}
	return vs, nil
}

// Has reports whether v was supplied.
func (vs VariableSet) Has(v Variable) bool {
	_, ok := vs[v]
	return ok
}

// require returns an error naming the first absent variable.
func (vs VariableSet) require(m MethodName, vars ...Variable) error {
	for _, v := range vars {
		if !vs.Has(v) {
			return fmt.Errorf("%w: method %s needs %s", ErrMissingVariable, m, v)
		}
	}
	return nil
}
