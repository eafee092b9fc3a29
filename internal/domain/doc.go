// Package domain models wind turbines and the per-hour yield computed for them.
//
// # Turbine Record
//
// [WindTurbineSpec] carries a turbine's nameplate and siting data. It is built once
// through [NewWindTurbineSpec], which rejects physically impossible values with a
// [*ConstructionError], and is read-only afterwards. Three geometric values are
// derived on demand:
//
//	Area()        = π · (D/2)²                 [m²]
//	MinTipSpeed() = (2π/60) · (D/2) · n_min    [m/s]
//	MaxTipSpeed() = (2π/60) · (D/2) · n_max    [m/s]
//
// where D is the rotor diameter in metres and n the rotor speed in rpm.
//
// # Units
//
// Field names and JSON/YAML tags carry the unit: power in kW, wind speeds in m/s,
// lengths in m, rotor speeds in rpm, coordinates in WGS-84 decimal degrees.
// Forecast temperatures are °C, pressure hPa and relative humidity percent.
//
// # Power Model
//
// For every forecast hour the report applies:
//
//	ρ     = p_dry/(Rd·T) + p_vap/(Rv·T)   humid air density, Wobus vapour pressure
//	P_in  = A · ρ · v³ / 2                kinetic power of the wind [kW]
//	P_out = curve(v) or Cp · P_in          zero outside [cut-in, cut-out], capped at rated power
//	λ     = tip speed / v
//
// Energy sums P_out over the hourly samples, one hour each.
//
// # ID Generation
//
// Turbine and report IDs are SHA-256 based and deterministic, so re-running the
// same forecast through the pipeline produces the same report ID.
package domain
