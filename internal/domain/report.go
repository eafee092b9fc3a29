package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// nonSlugRe matches runs of characters that are not allowed in an ID slug.
var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// YieldSample is the computed output of one turbine for one forecast hour.
type YieldSample struct {
	Time          time.Time `json:"time"`
	WindSpeed     float64   `json:"wind_speed_ms"`
	AirDensity    float64   `json:"air_density_kgm3"`
	InputPowerKW  float64   `json:"input_power_kw"`
	OutputPowerKW float64   `json:"output_power_kw"`
	MinTSR        float64   `json:"min_tip_speed_ratio"`
	MaxTSR        float64   `json:"max_tip_speed_ratio"`
}

// TurbineReport is the per-turbine result of one pipeline run, destined for the sink.
type TurbineReport struct {
	ID        string `json:"id"`
	RunID     string `json:"run_id"`
	TurbineID string `json:"turbine_id"`

	Manufacturer string  `json:"manufacturer"`
	Model        string  `json:"model"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RatedPowerKW float64 `json:"rated_power_kw"`

	SweptArea   float64 `json:"swept_area_m2"`
	MinTipSpeed float64 `json:"min_tip_speed_ms"`
	MaxTipSpeed float64 `json:"max_tip_speed_ms"`

	Samples        []YieldSample `json:"samples"`
	EnergyKWh      float64       `json:"energy_kwh"`
	CapacityFactor float64       `json:"capacity_factor"`
	ProducingHours int           `json:"producing_hours"`

	ForecastStart time.Time `json:"forecast_start"`
	ForecastEnd   time.Time `json:"forecast_end"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// TurbineID returns a stable identifier for a turbine from its model and location.
func TurbineID(s WindTurbineSpec) string {
	return idWithPrefix(s.Model, fmt.Sprintf("%s|%s|%.4f|%.4f", s.Manufacturer, s.Model, s.Latitude, s.Longitude))
}

// BuildReport applies the turbine's power model to every hour of the forecast.
// Hours whose results are not finite are skipped. Each sample is treated as one
// hour of operation when summing energy.
func BuildReport(spec WindTurbineSpec, forecast WeatherForecast, runID string) TurbineReport {
	area := spec.Area()
	minTip, maxTip := spec.MinTipSpeed(), spec.MaxTipSpeed()

	report := TurbineReport{
		RunID:        runID,
		TurbineID:    TurbineID(spec),
		Manufacturer: spec.Manufacturer,
		Model:        spec.Model,
		Latitude:     spec.Latitude,
		Longitude:    spec.Longitude,
		RatedPowerKW: spec.RatedPowerKW,
		SweptArea:    area,
		MinTipSpeed:  minTip,
		MaxTipSpeed:  maxTip,
		Samples:      make([]YieldSample, 0, len(forecast.Hourly)),
		ProcessedAt:  clock.Now(),
	}

	for _, h := range forecast.Hourly {
		rho := HumidAirDensity(h.Temperature, h.RelativeHumidity, h.SurfacePressure)
		in := InputPowerKW(area, rho, h.WindSpeed)
		out := spec.OutputPowerKW(in, h.WindSpeed)

		sample := YieldSample{
			Time:          h.Time,
			WindSpeed:     h.WindSpeed,
			AirDensity:    rho,
			InputPowerKW:  in,
			OutputPowerKW: out,
			MinTSR:        TipSpeedRatio(minTip, h.WindSpeed),
			MaxTSR:        TipSpeedRatio(maxTip, h.WindSpeed),
		}
		// Physically impossible weather is dropped like a missing hour.
		if !sample.finite() {
			continue
		}
		report.Samples = append(report.Samples, sample)
		report.EnergyKWh += out
		if out > 0 {
			report.ProducingHours++
		}
	}

	if n := len(report.Samples); n > 0 {
		report.ForecastStart = report.Samples[0].Time
		report.ForecastEnd = report.Samples[n-1].Time
		report.CapacityFactor = report.EnergyKWh / (spec.RatedPowerKW * float64(n))
	}
	report.ID = idWithPrefix(spec.Model, fmt.Sprintf("%s|%s|%d",
		report.TurbineID, report.ForecastStart.UTC().Format(time.RFC3339), len(report.Samples)))

	return report
}

func (s YieldSample) finite() bool {
	for _, v := range []float64{s.WindSpeed, s.AirDensity, s.InputPowerKW, s.OutputPowerKW, s.MinTSR, s.MaxTSR} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// idWithPrefix hashes input and prefixes the short hash with a slug of prefix.
// Deterministic IDs let downstream consumers upsert idempotently.
func idWithPrefix(prefix, input string) string {
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	slug := strings.Trim(nonSlugRe.ReplaceAllString(strings.ToLower(prefix), "-"), "-")
	if slug == "" {
		return short
	}
	return slug + "-" + short
}
