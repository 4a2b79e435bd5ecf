// Package scenarios runs declarative resolution scenarios written in YAML
// against the session engine. Each scenario brings its own catalog and
// reference year so results do not depend on the wall clock.
package scenarios

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/evsession/core/extract"
	"github.com/kilianp07/evsession/core/model"
)

type VehicleDef struct {
	Brand      string  `yaml:"brand"`
	Model      string  `yaml:"model"`
	BatteryKWh float64 `yaml:"battery_kwh"`
	ModelYear  int     `yaml:"model_year,omitempty"`
}

func (v VehicleDef) ToModel() model.VehicleRecord {
	return model.VehicleRecord{Brand: v.Brand, Model: v.Model, BatteryKWh: v.BatteryKWh, ModelYear: v.ModelYear}
}

// Expected lists the assertions of a scenario. Empty fields are not
// checked. A feature mapped to null must be unknown.
type Expected struct {
	Outcome   model.OutcomeKind   `yaml:"outcome"`
	Stage     string              `yaml:"stage,omitempty"`
	Vehicle   string              `yaml:"vehicle,omitempty"`
	Missing   []string            `yaml:"missing,omitempty"`
	Questions int                 `yaml:"questions,omitempty"`
	Features  map[string]*float64 `yaml:"features,omitempty"`
}

type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Year        int            `yaml:"year"`
	Catalog     []VehicleDef   `yaml:"catalog,omitempty"`
	Text        string         `yaml:"text,omitempty"`
	Fields      extract.Fields `yaml:"fields,omitempty"`
	Expected    Expected       `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = filepath.Base(path)
	}
	if sc.Year <= 0 {
		return nil, fmt.Errorf("%s: year is required", path)
	}
	return &sc, nil
}

// LoadGlob loads every file matching pattern, sorted by path.
func LoadGlob(pattern string) ([]*Scenario, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	out := make([]*Scenario, 0, len(files))
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}
