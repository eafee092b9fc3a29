// Package store persists turbine reports and their hourly samples in SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/couchcryptid/wind-yield-etl/internal/domain"
)

// ErrNotFound is returned when no reports exist for a turbine.
var ErrNotFound = errors.New("no reports found")

type reportRecord struct {
	ID             string `gorm:"primaryKey"`
	RunID          string `gorm:"index"`
	TurbineID      string `gorm:"index"`
	Manufacturer   string
	Model          string
	Latitude       float64
	Longitude      float64
	RatedPowerKW   float64
	SweptArea      float64
	MinTipSpeed    float64
	MaxTipSpeed    float64
	EnergyKWh      float64
	CapacityFactor float64
	ProducingHours int
	ForecastStart  time.Time
	ForecastEnd    time.Time
	ProcessedAt    time.Time      `gorm:"index"`
	Samples        []sampleRecord `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`
}

func (reportRecord) TableName() string { return "turbine_reports" }

type sampleRecord struct {
	ID            uint   `gorm:"primaryKey"`
	ReportID      string `gorm:"index"`
	SampleTime    time.Time
	WindSpeed     float64
	AirDensity    float64
	InputPowerKW  float64
	OutputPowerKW float64
	MinTSR        float64
	MaxTSR        float64
}

func (sampleRecord) TableName() string { return "yield_samples" }

// Store is a gorm-backed report repository. It implements pipeline.Loader.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to (or creates) the SQLite database at path and migrates the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}
	// SQLite serialises writers; one connection avoids "database is locked".
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&reportRecord{}, &sampleRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate report store: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// LoadBatch stores reports, replacing any earlier report with the same ID.
func (s *Store) LoadBatch(ctx context.Context, reports []domain.TurbineReport) error {
	if len(reports) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range reports {
			rec := toRecord(reports[i])
			if err := tx.Where("report_id = ?", rec.ID).Delete(&sampleRecord{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&reportRecord{}, "id = ?", rec.ID).Error; err != nil {
				return err
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store reports: %w", err)
	}
	s.logger.Debug("reports stored", "count", len(reports))
	return nil
}

// ListByTurbine returns up to limit reports for a turbine, most recently processed first.
func (s *Store) ListByTurbine(ctx context.Context, turbineID string, limit int) ([]domain.TurbineReport, error) {
	var recs []reportRecord
	err := s.db.WithContext(ctx).
		Preload("Samples", func(db *gorm.DB) *gorm.DB { return db.Order("sample_time ASC") }).
		Where("turbine_id = ?", turbineID).
		Order("processed_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list reports for %s: %w", turbineID, err)
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}

	reports := make([]domain.TurbineReport, len(recs))
	for i := range recs {
		reports[i] = fromRecord(recs[i])
	}
	return reports, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(r domain.TurbineReport) reportRecord {
	rec := reportRecord{
		ID:             r.ID,
		RunID:          r.RunID,
		TurbineID:      r.TurbineID,
		Manufacturer:   r.Manufacturer,
		Model:          r.Model,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		RatedPowerKW:   r.RatedPowerKW,
		SweptArea:      r.SweptArea,
		MinTipSpeed:    r.MinTipSpeed,
		MaxTipSpeed:    r.MaxTipSpeed,
		EnergyKWh:      r.EnergyKWh,
		CapacityFactor: r.CapacityFactor,
		ProducingHours: r.ProducingHours,
		ForecastStart:  r.ForecastStart,
		ForecastEnd:    r.ForecastEnd,
		ProcessedAt:    r.ProcessedAt,
		Samples:        make([]sampleRecord, len(r.Samples)),
	}
	for i, smp := range r.Samples {
		rec.Samples[i] = sampleRecord{
			ReportID:      r.ID,
			SampleTime:    smp.Time,
			WindSpeed:     smp.WindSpeed,
			AirDensity:    smp.AirDensity,
			InputPowerKW:  smp.InputPowerKW,
			OutputPowerKW: smp.OutputPowerKW,
			MinTSR:        smp.MinTSR,
			MaxTSR:        smp.MaxTSR,
		}
	}
	return rec
}

func fromRecord(rec reportRecord) domain.TurbineReport {
	r := domain.TurbineReport{
		ID:             rec.ID,
		RunID:          rec.RunID,
		TurbineID:      rec.TurbineID,
		Manufacturer:   rec.Manufacturer,
		Model:          rec.Model,
		Latitude:       rec.Latitude,
		Longitude:      rec.Longitude,
		RatedPowerKW:   rec.RatedPowerKW,
		SweptArea:      rec.SweptArea,
		MinTipSpeed:    rec.MinTipSpeed,
		MaxTipSpeed:    rec.MaxTipSpeed,
		EnergyKWh:      rec.EnergyKWh,
		CapacityFactor: rec.CapacityFactor,
		ProducingHours: rec.ProducingHours,
		ForecastStart:  rec.ForecastStart.UTC(),
		ForecastEnd:    rec.ForecastEnd.UTC(),
		ProcessedAt:    rec.ProcessedAt.UTC(),
		Samples:        make([]domain.YieldSample, len(rec.Samples)),
	}
	for i, smp := range rec.Samples {
		r.Samples[i] = domain.YieldSample{
			Time:          smp.SampleTime.UTC(),
			WindSpeed:     smp.WindSpeed,
			AirDensity:    smp.AirDensity,
			InputPowerKW:  smp.InputPowerKW,
			OutputPowerKW: smp.OutputPowerKW,
			MinTSR:        smp.MinTSR,
			MaxTSR:        smp.MaxTSR,
		}
	}
	return r
}
