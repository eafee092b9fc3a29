package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wind-yield-etl/internal/domain"
	"github.com/couchcryptid/wind-yield-etl/internal/observability"
	"github.com/couchcryptid/wind-yield-etl/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	sites []domain.SiteForecast
	err   error
}

func (m *mockExtractor) ExtractBatch(_ context.Context) ([]domain.SiteForecast, error) {
	return m.sites, m.err
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, site domain.SiteForecast, runID string) (domain.TurbineReport, error) {
	if m.err != nil {
		return domain.TurbineReport{}, m.err
	}
	return domain.TurbineReport{ID: site.Turbine.Model, RunID: runID}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.TurbineReport
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, reports []domain.TurbineReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, reports...)
	return nil
}

func (m *mockLoader) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loaded)
}

type mockForecaster struct {
	failLat  float64
	forecast domain.WeatherForecast
}

func (m *mockForecaster) Forecast(_ context.Context, lat, _ float64) (domain.WeatherForecast, error) {
	if lat == m.failLat {
		return domain.WeatherForecast{}, errors.New("upstream unavailable")
	}
	return m.forecast, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sites(models ...string) []domain.SiteForecast {
	out := make([]domain.SiteForecast, len(models))
	for i, m := range models {
		out[i] = domain.SiteForecast{Turbine: domain.WindTurbineSpec{Model: m}}
	}
	return out
}

func testSpec(t *testing.T, lat float64) domain.WindTurbineSpec {
	t.Helper()
	spec, err := domain.NewWindTurbineSpec(domain.WindTurbineSpec{
		Manufacturer:     "Siemens",
		Model:            "SWT-2.3-93",
		Latitude:         lat,
		Longitude:        7.40,
		RatedPowerKW:     2300,
		RatedWindSpeed:   13,
		HubHeight:        133,
		PowerCoefficient: 0.4,
		RotorDiameter:    93,
		CutInSpeed:       4,
		CutOutSpeed:      25,
		MinSpeed:         6,
		MaxSpeed:         16,
	})
	require.NoError(t, err)
	return spec
}

// --- Pipeline tests ---

func TestPipeline_RunCycle_HappyPath(t *testing.T) {
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(&mockExtractor{sites: sites("a", "b")}, &mockTransformer{}, ldr, discardLogger(), metrics, time.Hour)

	require.Error(t, p.CheckReadiness(context.Background()))
	require.NoError(t, p.RunCycle(context.Background()))

	require.Len(t, ldr.loaded, 2)
	assert.Equal(t, "a", ldr.loaded[0].ID)
	assert.NotEmpty(t, ldr.loaded[0].RunID)
	assert.Equal(t, ldr.loaded[0].RunID, ldr.loaded[1].RunID, "one run ID per cycle")
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ReportsProduced))
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_RunCycle_DistinctRunIDs(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{sites: sites("a")}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), time.Hour)

	require.NoError(t, p.RunCycle(context.Background()))
	require.NoError(t, p.RunCycle(context.Background()))

	require.Len(t, ldr.loaded, 2)
	assert.NotEqual(t, ldr.loaded[0].RunID, ldr.loaded[1].RunID)
}

func TestPipeline_RunCycle_TransformError(t *testing.T) {
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(&mockExtractor{sites: sites("a")}, &mockTransformer{err: errors.New("bad forecast")}, ldr, discardLogger(), metrics, time.Hour)

	err := p.RunCycle(context.Background())
	require.Error(t, err)
	assert.Empty(t, ldr.loaded)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TransformErrors))
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_RunCycle_StageErrors(t *testing.T) {
	t.Run("extract", func(t *testing.T) {
		p := pipeline.New(&mockExtractor{err: errors.New("boom")}, &mockTransformer{}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), time.Hour)
		require.EqualError(t, p.RunCycle(context.Background()), "boom")
	})

	t.Run("load", func(t *testing.T) {
		p := pipeline.New(&mockExtractor{sites: sites("a")}, &mockTransformer{}, &mockLoader{err: errors.New("broker down")}, discardLogger(), observability.NewMetricsForTesting(), time.Hour)
		require.EqualError(t, p.RunCycle(context.Background()), "broker down")
		assert.Error(t, p.CheckReadiness(context.Background()))
	})
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(&mockExtractor{sites: sites("a")}, &mockTransformer{}, ldr, discardLogger(), metrics, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_RepeatsEveryInterval(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{sites: sites("a")}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	assert.Eventually(t, func() bool { return ldr.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)
}

func TestPipeline_Run_RetriesAfterFailure(t *testing.T) {
	ldr := &mockLoader{}
	ext := &mockExtractor{err: errors.New("offline")}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// The first cycle fails; the retry after the 200ms backoff fails again,
	// and the pipeline never sleeps for the full hour interval.
	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
}

// --- stage implementation tests ---

func TestFleetExtractor_SkipsFailingSites(t *testing.T) {
	forecast := domain.WeatherForecast{Hourly: []domain.HourlyWeather{{WindSpeed: 9}}}
	turbines := []domain.WindTurbineSpec{testSpec(t, 53.88), testSpec(t, 54.00), testSpec(t, 54.10)}
	metrics := observability.NewMetricsForTesting()

	e := pipeline.NewFleetExtractor(turbines, &mockForecaster{failLat: 54.00, forecast: forecast}, discardLogger(), metrics)
	got, err := e.ExtractBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, 53.88, got[0].Turbine.Latitude)
	assert.Equal(t, 54.10, got[1].Turbine.Latitude)
	assert.Equal(t, forecast, got[0].Forecast)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ForecastsFetched))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ForecastErrors))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.FleetSize))
}

func TestFleetExtractor_AllFail(t *testing.T) {
	turbines := []domain.WindTurbineSpec{testSpec(t, 53.88)}
	e := pipeline.NewFleetExtractor(turbines, &mockForecaster{failLat: 53.88}, discardLogger(), observability.NewMetricsForTesting())

	_, err := e.ExtractBatch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 1 forecasts failed")
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestYieldTransformer_Transform(t *testing.T) {
	spec := testSpec(t, 53.88)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	site := domain.SiteForecast{
		Turbine: spec,
		Forecast: domain.WeatherForecast{Hourly: []domain.HourlyWeather{
			{Time: start, RelativeHumidity: 80, SurfacePressure: 1013, WindSpeed: 18, Temperature: 8},
		}},
	}

	tfm := pipeline.NewTransformer(discardLogger())
	report, err := tfm.Transform(context.Background(), site, "run-7")
	require.NoError(t, err)

	assert.Equal(t, "run-7", report.RunID)
	assert.Equal(t, domain.TurbineID(spec), report.TurbineID)
	assert.Equal(t, 2300.0, report.EnergyKWh)
	assert.Equal(t, 1.0, report.CapacityFactor)
}

func TestYieldTransformer_EmptyForecast(t *testing.T) {
	tfm := pipeline.NewTransformer(discardLogger())
	_, err := tfm.Transform(context.Background(), domain.SiteForecast{Turbine: testSpec(t, 53.88)}, "run-7")
	require.Error(t, err)
}

func TestYieldTransformer_OnlyNonFiniteHours(t *testing.T) {
	site := domain.SiteForecast{
		Turbine: testSpec(t, 53.88),
		Forecast: domain.WeatherForecast{Hourly: []domain.HourlyWeather{
			{Time: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), RelativeHumidity: 80, SurfacePressure: 1013, WindSpeed: 9, Temperature: -273.15},
		}},
	}

	_, err := pipeline.NewTransformer(discardLogger()).Transform(context.Background(), site, "run-7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable hourly samples")
}

func TestMultiLoader(t *testing.T) {
	a, b := &mockLoader{}, &mockLoader{err: errors.New("disk full")}
	c := &mockLoader{}
	reports := []domain.TurbineReport{{ID: "r1"}}

	err := pipeline.MultiLoader{a, b, c}.LoadBatch(context.Background(), reports)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, reports, a.loaded)
	assert.Equal(t, reports, c.loaded, "later loaders still run")

	require.NoError(t, pipeline.MultiLoader{a}.LoadBatch(context.Background(), reports))
}
