package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/wind-yield-etl/internal/domain"
)

// YieldTransformer implements Transformer by applying the turbine power model
// to each forecast hour.
type YieldTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates a YieldTransformer.
func NewTransformer(logger *slog.Logger) *YieldTransformer {
	return &YieldTransformer{logger: logger}
}

func (t *YieldTransformer) Transform(_ context.Context, site domain.SiteForecast, runID string) (domain.TurbineReport, error) {
	if len(site.Forecast.Hourly) == 0 {
		return domain.TurbineReport{}, errors.New("forecast has no hourly samples")
	}

	report := domain.BuildReport(site.Turbine, site.Forecast, runID)
	if len(report.Samples) == 0 {
		return domain.TurbineReport{}, errors.New("forecast has no usable hourly samples")
	}
	t.logger.Debug("report built",
		"report_id", report.ID,
		"turbine_id", report.TurbineID,
		"energy_kwh", report.EnergyKWh,
		"capacity_factor", report.CapacityFactor,
	)
	return report, nil
}
