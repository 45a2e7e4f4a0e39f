package core

import "math"

// Boltzmann's constant times the reference temperature (290 K), in W/Hz.
// The thermal noise floor of a band of width B Hz is kT0 * B.
const kT0 = 1.3803e-23 * 290.0

// DbmToW converts a power level in dBm to watts.
func DbmToW(dbm float64) float64 {
	return math.Pow(10.0, dbm/10.0) / 1000.0
}

// WToDbm converts a power level in watts to dBm.
func WToDbm(w float64) float64 {
	return 10.0 * math.Log10(w*1000.0)
}

// DbToRatio converts a dB value to a linear ratio.
func DbToRatio(db float64) float64 {
	return math.Pow(10.0, db/10.0)
}

// RatioToDb converts a linear ratio to dB.
func RatioToDb(ratio float64) float64 {
	return 10.0 * math.Log10(ratio)
}
