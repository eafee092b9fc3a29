package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wind-yield-etl/internal/adapter/openmeteo"
	"github.com/couchcryptid/wind-yield-etl/internal/domain"
	"github.com/couchcryptid/wind-yield-etl/internal/fleet"
	"github.com/couchcryptid/wind-yield-etl/internal/pipeline"
)

func TestYieldTransformer_WithRecordedForecast(t *testing.T) {
	fl, err := fleet.Load(filepath.Join("..", "..", "fleet.yaml"))
	require.NoError(t, err)
	require.Len(t, fl.Turbines, 4)

	data, err := os.ReadFile(filepath.Join("..", "..", "data", "mock", "openmeteo_forecast.json"))
	require.NoError(t, err)
	forecast, err := openmeteo.DecodeResponse(data)
	require.NoError(t, err)
	require.Len(t, forecast.Hourly, 11, "one null hour is dropped")

	tfm := pipeline.NewTransformer(discardLogger())
	for _, turbine := range fl.Turbines {
		report, err := tfm.Transform(context.Background(), domain.SiteForecast{Turbine: turbine.Spec, Forecast: forecast}, "fixture")
		require.NoError(t, err, turbine.Name)

		require.Len(t, report.Samples, 11)
		assert.Equal(t, turbine.ID, report.TurbineID)
		assert.Equal(t, 8, report.ProducingHours, turbine.Name)

		for _, s := range report.Samples {
			switch {
			case s.WindSpeed < turbine.Spec.CutInSpeed, s.WindSpeed > turbine.Spec.CutOutSpeed:
				assert.Equal(t, 0.0, s.OutputPowerKW, "%s at %.1f m/s", turbine.Name, s.WindSpeed)
			case s.WindSpeed >= turbine.Spec.RatedWindSpeed:
				assert.Equal(t, 2300.0, s.OutputPowerKW, "%s at %.1f m/s", turbine.Name, s.WindSpeed)
			default:
				assert.Greater(t, s.OutputPowerKW, 0.0)
				assert.Less(t, s.OutputPowerKW, 2300.0)
			}
			assert.InDelta(t, 1.27, s.AirDensity, 0.03)
		}

		assert.Greater(t, report.CapacityFactor, 0.0)
		assert.LessOrEqual(t, report.CapacityFactor, 1.0)
	}
}
