// Package fleet loads a wind park definition from a YAML file.
package fleet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/wind-yield-etl/internal/domain"
)

// Location is a WGS-84 coordinate pair in decimal degrees.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Site places one turbine of a named model.
type Site struct {
	Name      string  `yaml:"name"`
	Model     string  `yaml:"model"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// LocationFile places one turbine of a model at every row of a CSV file.
type LocationFile struct {
	Model     string `yaml:"model"`
	CSV       string `yaml:"csv"`
	HasHeader bool   `yaml:"has_header"`
}

// File is the on-disk shape of a fleet definition.
//
//	models:
//	  swt-2.3-93:
//	    manufacturer: Siemens
//	    model: SWT-2.3-93
//	    ...
//	sites:
//	  - {name: T01, model: swt-2.3-93, latitude: 53.88, longitude: 7.40}
//	locations:
//	  - {model: swt-2.3-93, csv: park.csv, has_header: true}
type File struct {
	Models    map[string]domain.WindTurbineSpec `yaml:"models"`
	Sites     []Site                            `yaml:"sites"`
	Locations []LocationFile                    `yaml:"locations"`
}

// Turbine is a validated turbine with the site name it was declared under.
type Turbine struct {
	ID   string
	Name string
	Spec domain.WindTurbineSpec
}

// Fleet is an ordered, validated set of turbines.
type Fleet struct {
	Turbines []Turbine
}

// Load reads a fleet file. Unknown keys are rejected. Relative CSV paths
// resolve against the file's directory.
func Load(path string) (*Fleet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fleet file: %w", err)
	}
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse fleet file: %w", err)
	}
	return Build(f, filepath.Dir(path))
}

// Build validates every site of f against its model template.
func Build(f File, baseDir string) (*Fleet, error) {
	sites := append([]Site(nil), f.Sites...)

	for _, lf := range f.Locations {
		csvPath := lf.CSV
		if !filepath.IsAbs(csvPath) {
			csvPath = filepath.Join(baseDir, csvPath)
		}
		locs, err := ReadLocationsCSV(csvPath, lf.HasHeader)
		if err != nil {
			return nil, err
		}
		for i, loc := range locs {
			sites = append(sites, Site{
				Name:      fmt.Sprintf("%s#%d", filepath.Base(lf.CSV), i+1),
				Model:     lf.Model,
				Latitude:  loc.Latitude,
				Longitude: loc.Longitude,
			})
		}
	}

	if len(sites) == 0 {
		return nil, errors.New("fleet has no turbines")
	}

	fl := &Fleet{Turbines: make([]Turbine, 0, len(sites))}
	seen := make(map[string]string, len(sites))
	for i, site := range sites {
		name := site.Name
		if name == "" {
			name = fmt.Sprintf("site-%d", i+1)
		}

		tmpl, ok := f.Models[site.Model]
		if !ok {
			return nil, fmt.Errorf("site %s: unknown model %q", name, site.Model)
		}
		tmpl.Latitude = site.Latitude
		tmpl.Longitude = site.Longitude

		spec, err := domain.NewWindTurbineSpec(tmpl)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", name, err)
		}

		id := domain.TurbineID(spec)
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("site %s: same model and location as site %s", name, prev)
		}
		seen[id] = name

		fl.Turbines = append(fl.Turbines, Turbine{ID: id, Name: name, Spec: spec})
	}
	return fl, nil
}

// Lookup returns the turbine with the given ID.
func (f *Fleet) Lookup(id string) (Turbine, bool) {
	for _, t := range f.Turbines {
		if t.ID == id {
			return t, true
		}
	}
	return Turbine{}, false
}

// Specs returns the turbine specs in fleet order.
func (f *Fleet) Specs() []domain.WindTurbineSpec {
	specs := make([]domain.WindTurbineSpec, len(f.Turbines))
	for i, t := range f.Turbines {
		specs[i] = t.Spec
	}
	return specs
}

// ReadLocationsCSV reads latitude,longitude rows, skipping the first row when hasHeader is set.
func ReadLocationsCSV(path string, hasHeader bool) ([]Location, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open locations csv: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = 2
	r.TrimLeadingSpace = true

	var locs []Location
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read locations csv %s: %w", path, err)
		}
		if line == 1 && hasHeader {
			continue
		}

		lat, errLat := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if errLat != nil || errLon != nil {
			return nil, fmt.Errorf("read locations csv %s: line %d: invalid coordinates %q", path, line, rec)
		}
		locs = append(locs, Location{Latitude: lat, Longitude: lon})
	}
	return locs, nil
}
