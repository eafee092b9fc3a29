package domain

const (
	gasConstantDryAir = 287.05  // J/(kg·K), R/Md
	gasConstantVapour = 461.495 // J/(kg·K), R/Mv
	celsiusToKelvin   = 273.15
)

// Herman Wobus polynomial coefficients, see https://wahiduddin.net/calc/density_altitude.htm.
var wobusCoefficients = [...]float64{
	0.99999683,
	-0.90826951e-2,
	0.78736169e-4,
	-0.61117958e-6,
	0.43884187e-8,
	-0.29883885e-10,
	0.21874425e-12,
	-0.17892321e-14,
	0.11112018e-16,
	-0.30994571e-19,
}

const wobusES0 = 6.1078

// SaturationVapourPressure returns the saturation vapour pressure of water in hPa
// for an air temperature in °C.
func SaturationVapourPressure(tempC float64) float64 {
	// Horner evaluation from the highest-order term down.
	pol := 0.0
	for i := len(wobusCoefficients) - 1; i >= 0; i-- {
		pol = wobusCoefficients[i] + tempC*pol
	}
	p2 := pol * pol
	p4 := p2 * p2
	return wobusES0 / (p4 * p4)
}

// HumidAirDensity returns the density of humid air in kg/m³.
// relHumidityPct is 0–100 and pressureHPa is the total (station) pressure.
func HumidAirDensity(tempC, relHumidityPct, pressureHPa float64) float64 {
	vapour := relHumidityPct / 100 * SaturationVapourPressure(tempC) // hPa
	dry := pressureHPa - vapour                                     // hPa

	tempK := tempC + celsiusToKelvin
	return (dry*100)/(gasConstantDryAir*tempK) + (vapour*100)/(gasConstantVapour*tempK)
}
