package model

import "fmt"

// VehicleQuery holds the free-text brand and model extracted upstream.
// Either field may be empty.
type VehicleQuery struct {
	Brand string `json:"brand,omitempty"`
	Model string `json:"model,omitempty"`
}

// Empty reports whether the query lacks a brand or a model.
func (q VehicleQuery) Empty() bool { return q.Brand == "" || q.Model == "" }

// VehicleRecord is a row of the reference catalog. Records are never
// modified once loaded.
type VehicleRecord struct {
	Brand      string  `json:"brand"`
	Model      string  `json:"model"`
	BatteryKWh float64 `json:"battery_capacity_kwh"` // usable battery capacity in kWh
	ModelYear  int     `json:"model_year,omitempty"` // 0 when the catalog has no year
	Variant    string  `json:"variant,omitempty"`
	Segment    string  `json:"segment,omitempty"`
}

// HasModelYear reports whether the record carries a model year.
func (r VehicleRecord) HasModelYear() bool { return r.ModelYear > 0 }

// Validate checks that the record can be used for resolution.
// In particular BatteryKWh must be positive.
func (r VehicleRecord) Validate() error {
	if r.Brand == "" || r.Model == "" {
		return fmt.Errorf("brand and model are required")
	}
	if r.BatteryKWh <= 0 {
		return fmt.Errorf("battery capacity must be positive")
	}
	if r.ModelYear < 0 {
		return fmt.Errorf("model year must not be negative")
	}
	return nil
}

func (r VehicleRecord) String() string {
	if r.HasModelYear() {
		return fmt.Sprintf("%s %s (%d, %.1f kWh)", r.Brand, r.Model, r.ModelYear, r.BatteryKWh)
	}
	return fmt.Sprintf("%s %s (%.1f kWh)", r.Brand, r.Model, r.BatteryKWh)
}
