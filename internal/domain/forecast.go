package domain

import (
	"context"
	"time"
)

// HourlyWeather is one hourly forecast sample at hub level.
type HourlyWeather struct {
	Time             time.Time `json:"time"`
	RelativeHumidity float64   `json:"relative_humidity_pct"` // at 2 m
	SurfacePressure  float64   `json:"surface_pressure_hpa"`
	WindSpeed        float64   `json:"wind_speed_ms"`  // at 120 m
	Temperature      float64   `json:"temperature_c"` // at 120 m
}

// WeatherForecast is the hourly forecast for one location.
type WeatherForecast struct {
	Latitude         float64         `json:"latitude"`
	Longitude        float64         `json:"longitude"`
	Elevation        float64         `json:"elevation_m"`
	Timezone         string          `json:"timezone,omitempty"`
	UTCOffsetSeconds int             `json:"utc_offset_seconds"`
	Hourly           []HourlyWeather `json:"hourly"`
}

// Forecaster retrieves weather forecasts for a coordinate pair.
type Forecaster interface {
	Forecast(ctx context.Context, lat, lon float64) (WeatherForecast, error)
}

// SiteForecast pairs a turbine with the forecast for its location.
type SiteForecast struct {
	Turbine  WindTurbineSpec
	Forecast WeatherForecast
}
