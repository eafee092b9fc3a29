package domain

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// BetzLimit is the theoretical maximum power coefficient of any wind turbine (16/27).
const BetzLimit = 16.0 / 27.0

// ErrInvalidSpec is wrapped by every ConstructionError.
var ErrInvalidSpec = errors.New("invalid wind turbine spec")

// ConstructionError reports the first field that failed validation in NewWindTurbineSpec.
type ConstructionError struct {
	Field  string
	Reason string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidSpec, e.Field, e.Reason)
}

func (e *ConstructionError) Unwrap() error { return ErrInvalidSpec }

// PowerPoint is one row of a power curve: electrical output at a given wind speed.
type PowerPoint struct {
	WindSpeed float64 `json:"wind_speed_ms" yaml:"wind_speed_ms"`
	PowerKW   float64 `json:"power_kw" yaml:"power_kw"`
}

// PowerCurve maps wind speed to power output, sorted by strictly increasing wind speed.
type PowerCurve []PowerPoint

// WindTurbineSpec holds the nameplate and siting data of one turbine.
//
// Build it with NewWindTurbineSpec and treat the result as read-only: the derived
// values are recomputed on every call and nothing is cached.
type WindTurbineSpec struct {
	Manufacturer string `json:"manufacturer" yaml:"manufacturer"`
	Model        string `json:"model" yaml:"model"`

	Latitude  float64 `json:"latitude" yaml:"latitude"`   // decimal degrees
	Longitude float64 `json:"longitude" yaml:"longitude"` // decimal degrees

	RatedPowerKW     float64    `json:"rated_power_kw" yaml:"rated_power_kw"`
	RatedWindSpeed   float64    `json:"rated_wind_speed_ms" yaml:"rated_wind_speed_ms"`
	HubHeight        float64    `json:"hub_height_m" yaml:"hub_height_m"`
	PowerCoefficient float64    `json:"power_coefficient" yaml:"power_coefficient"`
	PowerInput       []float64  `json:"power_input_ms,omitempty" yaml:"power_input_ms"`
	PowerCurve       PowerCurve `json:"power_curve,omitempty" yaml:"power_curve"`
	RotorDiameter    float64    `json:"rotor_diameter_m" yaml:"rotor_diameter_m"`

	CutInSpeed  float64 `json:"cut_in_speed_ms" yaml:"cut_in_speed_ms"`
	CutOutSpeed float64 `json:"cut_out_speed_ms" yaml:"cut_out_speed_ms"`

	// Rotor speed range during power production.
	MinSpeed float64 `json:"min_speed_rpm" yaml:"min_speed_rpm"`
	MaxSpeed float64 `json:"max_speed_rpm" yaml:"max_speed_rpm"`
}

// NewWindTurbineSpec validates s and returns a copy whose slices are not shared
// with the caller.
func NewWindTurbineSpec(s WindTurbineSpec) (WindTurbineSpec, error) {
	if err := s.validate(); err != nil {
		return WindTurbineSpec{}, err
	}
	s.PowerInput = slices.Clone(s.PowerInput)
	s.PowerCurve = slices.Clone(s.PowerCurve)
	return s, nil
}

// Area returns the rotor swept area in square metres.
func (s WindTurbineSpec) Area() float64 {
	r := s.RotorDiameter / 2
	return math.Pi * r * r
}

// MinTipSpeed returns the linear blade-tip speed in m/s at the minimum rotor speed.
func (s WindTurbineSpec) MinTipSpeed() float64 {
	return tipSpeed(s.RotorDiameter, s.MinSpeed)
}

// MaxTipSpeed returns the linear blade-tip speed in m/s at the maximum rotor speed.
func (s WindTurbineSpec) MaxTipSpeed() float64 {
	return tipSpeed(s.RotorDiameter, s.MaxSpeed)
}

// tipSpeed converts rpm to rad/s and multiplies by the tip radius.
func tipSpeed(diameter, rpm float64) float64 {
	return (2 * math.Pi / 60) * (diameter / 2) * rpm
}

func (s WindTurbineSpec) validate() error {
	if strings.TrimSpace(s.Manufacturer) == "" {
		return invalid("manufacturer", "is required")
	}
	if strings.TrimSpace(s.Model) == "" {
		return invalid("model", "is required")
	}

	for _, f := range []struct {
		name string
		v    float64
	}{
		{"latitude", s.Latitude},
		{"longitude", s.Longitude},
		{"rated_power", s.RatedPowerKW},
		{"rated_wind_speed", s.RatedWindSpeed},
		{"hub_height", s.HubHeight},
		{"power_coefficient", s.PowerCoefficient},
		{"rotor_diameter", s.RotorDiameter},
		{"cut_in_speed", s.CutInSpeed},
		{"cut_out_speed", s.CutOutSpeed},
		{"min_speed", s.MinSpeed},
		{"max_speed", s.MaxSpeed},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return invalid(f.name, "must be a finite number")
		}
	}

	switch {
	case s.Latitude < -90 || s.Latitude > 90:
		return invalid("latitude", fmt.Sprintf("%g outside [-90, 90]", s.Latitude))
	case s.Longitude < -180 || s.Longitude > 180:
		return invalid("longitude", fmt.Sprintf("%g outside [-180, 180]", s.Longitude))
	case s.RotorDiameter <= 0:
		return invalid("rotor_diameter", "must be positive")
	case s.HubHeight <= 0:
		return invalid("hub_height", "must be positive")
	case s.RatedPowerKW <= 0:
		return invalid("rated_power", "must be positive")
	case s.MinSpeed < 0:
		return invalid("min_speed", "must not be negative")
	case s.MinSpeed > s.MaxSpeed:
		return invalid("max_speed", fmt.Sprintf("%g rpm below min_speed %g rpm", s.MaxSpeed, s.MinSpeed))
	case s.CutInSpeed < 0:
		return invalid("cut_in_speed", "must not be negative")
	case s.CutInSpeed >= s.RatedWindSpeed:
		return invalid("rated_wind_speed", fmt.Sprintf("%g m/s not above cut_in_speed %g m/s", s.RatedWindSpeed, s.CutInSpeed))
	case s.RatedWindSpeed >= s.CutOutSpeed:
		return invalid("cut_out_speed", fmt.Sprintf("%g m/s not above rated_wind_speed %g m/s", s.CutOutSpeed, s.RatedWindSpeed))
	case s.PowerCoefficient < 0 || s.PowerCoefficient > BetzLimit:
		return invalid("power_coefficient", fmt.Sprintf("%g outside [0, %.3f]", s.PowerCoefficient, BetzLimit))
	}

	for i, v := range s.PowerInput {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return invalid("power_input", fmt.Sprintf("sample %d (%g) must be a non-negative finite number", i, v))
		}
	}
	return s.PowerCurve.validate()
}

func (c PowerCurve) validate() error {
	for i, p := range c {
		if math.IsNaN(p.WindSpeed) || math.IsNaN(p.PowerKW) || math.IsInf(p.WindSpeed, 0) || math.IsInf(p.PowerKW, 0) {
			return invalid("power_curve", fmt.Sprintf("point %d must be finite", i))
		}
		if p.WindSpeed < 0 || p.PowerKW < 0 {
			return invalid("power_curve", fmt.Sprintf("point %d must not be negative", i))
		}
		if i > 0 && p.WindSpeed <= c[i-1].WindSpeed {
			return invalid("power_curve", fmt.Sprintf("wind speed must increase strictly (point %d)", i))
		}
	}
	return nil
}

func invalid(field, reason string) error {
	return &ConstructionError{Field: field, Reason: reason}
}
