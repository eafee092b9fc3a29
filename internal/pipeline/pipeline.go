package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/wind-yield-etl/internal/domain"
	"github.com/couchcryptid/wind-yield-etl/internal/observability"
)

// Extractor retrieves the forecast for every turbine in the fleet.
type Extractor interface {
	ExtractBatch(ctx context.Context) ([]domain.SiteForecast, error)
}

// Transformer converts a site forecast into a turbine report.
type Transformer interface {
	Transform(ctx context.Context, site domain.SiteForecast, runID string) (domain.TurbineReport, error)
}

// Loader writes reports to a destination.
type Loader interface {
	LoadBatch(ctx context.Context, reports []domain.TurbineReport) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline orchestrates the periodic extract-transform-load cycle over the fleet.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	interval    time.Duration
}

// New creates a Pipeline that runs a cycle every interval.
func New(e Extractor, t Transformer, l Loader, logger *slog.Logger, metrics *observability.Metrics, interval time.Duration) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		interval:    interval,
	}
}

// CheckReadiness returns nil once a cycle has loaded at least one report.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not produced any reports yet")
	}
	return nil
}

// Run executes cycles until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		wait := p.interval
		if err := p.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			p.logger.Error("cycle failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = nextBackoff(backoff, maxBackoff)
		} else {
			backoff = initialBackoff
		}

		if !sleepWithContext(ctx, wait) {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// RunCycle performs one extract-transform-load pass and returns the first
// stage-level failure. Individual transform failures are logged and skipped.
func (p *Pipeline) RunCycle(ctx context.Context) error {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)

	sites, err := p.extractor.ExtractBatch(ctx)
	if err != nil {
		return err
	}

	reports := make([]domain.TurbineReport, 0, len(sites))
	for _, site := range sites {
		report, err := p.transformer.Transform(ctx, site, runID)
		if err != nil {
			logger.Warn("transform failed, skipping turbine",
				"error", err,
				"model", site.Turbine.Model,
				"lat", site.Turbine.Latitude,
				"lon", site.Turbine.Longitude,
			)
			p.metrics.TransformErrors.Inc()
			continue
		}
		reports = append(reports, report)
	}

	if len(reports) == 0 {
		return errors.New("no reports produced")
	}

	if err := p.loader.LoadBatch(ctx, reports); err != nil {
		return err
	}

	p.metrics.ReportsProduced.Add(float64(len(reports)))
	p.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	logger.Info("cycle complete", "reports", len(reports), "duration", time.Since(start))
	return nil
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
