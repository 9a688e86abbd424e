// Package psychro converts between the moisture variables the precipitation
// type methods need: relative humidity, dew point, station pressure and
// wet-bulb temperature. Temperatures are in °C, pressures in hPa, relative
// humidity in percent and elevation in metres.
package psychro

import "math"

// StandardPressure is the mean sea-level pressure assumed when no elevation
// is available.
const StandardPressure = 1013.25

// Magnus coefficients (Alduchov & Eskridge 1996) over liquid water.
const (
	magnusA  = 17.625
	magnusB  = 243.04
	magnusE0 = 6.1094
)

// psychrometer coefficient for a ventilated psychrometer, hPa/K.
const psychroCoeff = 0.00066

// SaturationVaporPressure returns the saturation vapour pressure in hPa.
func SaturationVaporPressure(t float64) float64 {
	return magnusE0 * math.Exp(magnusA*t/(magnusB+t))
}

// RelativeHumidity returns the relative humidity in percent for an air
// temperature and dew point.
func RelativeHumidity(t, td float64) float64 {
	return 100 * math.Exp(magnusA*td/(magnusB+td)-magnusA*t/(magnusB+t))
}

// DewPoint inverts RelativeHumidity.
func DewPoint(t, rh float64) float64 {
	g := math.Log(rh/100) + magnusA*t/(magnusB+t)
	return magnusB * g / (magnusA - g)
}

// PressureFromElevation returns the standard-atmosphere station pressure at
// elevation z, reduced from StandardPressure with a 15 °C surface temperature
// and a 6.5 K/km lapse rate.
func PressureFromElevation(z float64) float64 {
	const lapse = 0.0065
	const t0 = 288.15
	return StandardPressure * math.Pow(1-lapse*z/(t0+lapse*z), 5.257)
}

// WetBulb solves the psychrometric equation
//
//	es(Tw) - A·(1 + 0.00115·Tw)·p·(T - Tw) = rh/100 · es(T)
//
// for Tw by bisection. The residual is monotonic in Tw and the root lies
// between the dew point and the air temperature.
func WetBulb(t, rh, p float64) float64 {
	if math.IsNaN(t) || math.IsNaN(rh) || math.IsNaN(p) {
		return math.NaN()
	}
	if rh >= 100 {
		return t
	}
	e := rh / 100 * SaturationVaporPressure(t)
	residual := func(tw float64) float64 {
		return SaturationVaporPressure(tw) - psychroCoeff*(1+0.00115*tw)*p*(t-tw) - e
	}

	lo, hi := t-60, t+1
	if rh > 0 {
		lo = DewPoint(t, rh) - 1
	}
	for range 80 {
		mid := (lo + hi) / 2
		if residual(mid) > 0 {
			hi = mid
		} else {
			lo = mid
		}
		if hi-lo < 1e-9 {
			break
		}
	}
	return (lo + hi) / 2
}
