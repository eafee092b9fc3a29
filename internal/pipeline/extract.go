package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/wind-yield-etl/internal/domain"
	"github.com/couchcryptid/wind-yield-etl/internal/observability"
)

// FleetExtractor implements Extractor by fetching a forecast for each turbine.
type FleetExtractor struct {
	turbines   []domain.WindTurbineSpec
	forecaster domain.Forecaster
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewFleetExtractor creates an extractor over a fixed set of turbines.
func NewFleetExtractor(turbines []domain.WindTurbineSpec, forecaster domain.Forecaster, logger *slog.Logger, metrics *observability.Metrics) *FleetExtractor {
	metrics.FleetSize.Set(float64(len(turbines)))
	return &FleetExtractor{
		turbines:   turbines,
		forecaster: forecaster,
		logger:     logger,
		metrics:    metrics,
	}
}

// ExtractBatch fetches forecasts sequentially. A failing site is skipped; the
// batch fails only when no site could be fetched.
func (e *FleetExtractor) ExtractBatch(ctx context.Context) ([]domain.SiteForecast, error) {
	sites := make([]domain.SiteForecast, 0, len(e.turbines))
	var lastErr error

	for _, t := range e.turbines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		forecast, err := e.forecaster.Forecast(ctx, t.Latitude, t.Longitude)
		if err != nil {
			e.logger.Warn("forecast failed, skipping turbine",
				"error", err,
				"model", t.Model,
				"lat", t.Latitude,
				"lon", t.Longitude,
			)
			e.metrics.ForecastErrors.Inc()
			lastErr = err
			continue
		}
		e.metrics.ForecastsFetched.Inc()
		sites = append(sites, domain.SiteForecast{Turbine: t, Forecast: forecast})
	}

	if len(sites) == 0 && lastErr != nil {
		return nil, fmt.Errorf("all %d forecasts failed: %w", len(e.turbines), lastErr)
	}
	return sites, nil
}
