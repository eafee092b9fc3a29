package domain

// TipSpeedRatio returns λ, the ratio of blade-tip speed to wind speed.
// It is 0 in calm air.
func TipSpeedRatio(tipSpeed, windSpeed float64) float64 {
	if windSpeed <= 0 {
		return 0
	}
	return tipSpeed / windSpeed
}

// InputPowerKW returns the kinetic power of the wind crossing the swept area, in kW.
func InputPowerKW(area, airDensity, windSpeed float64) float64 {
	return area * airDensity * windSpeed * windSpeed * windSpeed / 2 / 1000
}

// OutputPowerKW converts the wind's input power into generated electrical power.
//
// Outside the cut-in/cut-out window the turbine is idle. Inside it the power curve
// is used when one is present, otherwise inputKW is scaled by the power coefficient.
// Past the last curve point the curve's final value holds up to cut-out.
// The result never exceeds the rated power.
func (s WindTurbineSpec) OutputPowerKW(inputKW, windSpeed float64) float64 {
	if windSpeed < s.CutInSpeed || windSpeed > s.CutOutSpeed {
		return 0
	}

	var out float64
	if n := len(s.PowerCurve); n > 0 {
		if last := s.PowerCurve[n-1]; windSpeed > last.WindSpeed {
			out = last.PowerKW
		} else {
			out = s.PowerCurve.At(windSpeed)
		}
	} else {
		out = s.PowerCoefficient * inputKW
	}
	return min(out, s.RatedPowerKW)
}

// At linearly interpolates the curve at windSpeed. It returns 0 outside the
// tabulated range and for an empty curve.
func (c PowerCurve) At(windSpeed float64) float64 {
	if len(c) == 0 || windSpeed < c[0].WindSpeed || windSpeed > c[len(c)-1].WindSpeed {
		return 0
	}
	for i := 1; i < len(c); i++ {
		lo, hi := c[i-1], c[i]
		if windSpeed <= hi.WindSpeed {
			frac := (windSpeed - lo.WindSpeed) / (hi.WindSpeed - lo.WindSpeed)
			return lo.PowerKW + frac*(hi.PowerKW-lo.PowerKW)
		}
	}
	// Single-point curve.
	return c[0].PowerKW
}
