// Command genmock turns a fleet file and a recorded Open-Meteo response into
// turbine report fixtures. It runs the same domain code as the service with a
// frozen clock so the output is reproducible.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -fleet fleet.yaml \
//	  -forecast data/mock/openmeteo_forecast.json \
//	  -out data/mock/turbine_reports.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wind-yield-etl/internal/adapter/openmeteo"
	"github.com/couchcryptid/wind-yield-etl/internal/domain"
	"github.com/couchcryptid/wind-yield-etl/internal/fleet"
)

const fixtureRunID = "genmock"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	fleetPath := flag.String("fleet", "fleet.yaml", "path to the fleet file")
	forecastPath := flag.String("forecast", "", "path to a recorded Open-Meteo JSON response")
	out := flag.String("out", "", "output path for the report fixture")
	flag.Parse()

	if *forecastPath == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -forecast, -out")
	}

	fl, err := fleet.Load(*fleetPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(*forecastPath)
	if err != nil {
		return fmt.Errorf("read forecast: %w", err)
	}
	forecast, err := openmeteo.DecodeResponse(data)
	if err != nil {
		return err
	}
	log.Printf("forecast: %d usable hours", len(forecast.Hourly))

	// Set a fixed clock for reproducible ProcessedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.March, 1, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	// Every turbine shares the recorded forecast; fixtures exercise the
	// power model, not the upstream lookup.
	reports := make([]domain.TurbineReport, 0, len(fl.Turbines))
	for _, t := range fl.Turbines {
		r := domain.BuildReport(t.Spec, forecast, fixtureRunID)
		reports = append(reports, r)
		log.Printf("%s: %.1f kWh, capacity factor %.3f, %d producing hours",
			t.Name, r.EnergyKWh, r.CapacityFactor, r.ProducingHours)
	}

	if err := writeJSON(*out, reports); err != nil {
		return fmt.Errorf("writing report fixture: %w", err)
	}
	log.Printf("wrote report fixture: %s", *out)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
