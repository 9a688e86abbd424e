// Package pros classifies precipitation type on a grid.
//
// # Inputs
//
// A run takes co-registered grids of air temperature (°C), dew point (°C) and,
// optionally, elevation (m), labelled air_temperature, dew_point_temperature
// and elevation (or tair, tdew, dem). All grids must share one shape.
//
// # Methods
//
//	ks         Koistinen–Saltikoff probability of snow, 1 - 1/(1+exp(22-2.7T-0.2RH))
//	single_ta  T < threshold is snow, otherwise rain
//	single_tw  the same on wet-bulb temperature
//	linear_tr  as dual_ta, and keeps the snow fraction
//	dual_ta    T < low snow, T > high rain, sleet between
//	dual_tw    the same on wet-bulb temperature
//
// Wet-bulb temperature is solved from the psychrometric equation at the
// station pressure implied by elevation, or at 1013.25 hPa when no elevation
// grid is given. The latter raises a NoticeMissingElevation notice.
//
// Deterministic methods emit 0 (rain), 1 (sleet) or 2 (snow).
//
// # Combined codes
//
// Mask adds a reflectivity-derived intensity level to a per-type offset:
//
//	rain   0 + level
//	sleet  5 + level
//	snow  10 + level
//
// The level is the number of breakpoints at or below the reflectivity value
// (default 1, 5, 10, 15, giving levels 0–4). ks probabilities are banded
// first: below 0.3 rain, above 0.7 snow, sleet between.
package pros
