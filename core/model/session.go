package model

import (
	"bytes"
	"encoding/json"
)

// Feature names understood by the scoring model. They must not change.
const (
	FeatureBatteryCapacity  = "Battery Capacity (kWh)"
	FeatureSoCDiff          = "SoC_diff"
	FeatureDuration         = "Charging Duration (hours)"
	FeatureEnergyEstSoC     = "Energy_est_SoC"
	FeatureChargingRate     = "Charging_Rate"
	FeaturePowerProxy       = "Power_proxy"
	FeatureChargeEfficiency = "Charge_Efficiency"
	FeatureEnergyPerSoC     = "Energy_per_SoC"
	FeatureVehicleAge       = "Vehicle Age (years)"
)

// RawSessionInput gathers whatever the user supplied about a session.
type RawSessionInput struct {
	BatteryKWh    Value `json:"battery_capacity_kwh"`
	SoCStartPct   Value `json:"soc_start_pct"`
	SoCEndPct     Value `json:"soc_end_pct"`
	SoCDiff       Value `json:"soc_diff"`
	DurationHours Value `json:"charging_duration_hours"`
	VehicleYear   Value `json:"vehicle_year"`
}

// WithSoCBounds sets the start and end percentages and computes SoCDiff
// right away when both are known. A previously known SoCDiff is kept when
// the bounds are incomplete.
func (r RawSessionInput) WithSoCBounds(start, end Value) RawSessionInput {
	r.SoCStartPct = start
	r.SoCEndPct = end
	s, okS := start.Get()
	e, okE := end.Get()
	if okS && okE {
		r.SoCDiff = Known(e - s)
	}
	return r
}

// SessionInfo is the derived feature set handed to the scoring model.
type SessionInfo struct {
	BatteryKWh       Value `json:"battery_capacity_kwh"`
	SoCDiff          Value `json:"soc_diff"`
	DurationHours    Value `json:"charging_duration_hours"`
	EnergyEstSoC     Value `json:"energy_est_soc"`
	ChargingRate     Value `json:"charging_rate"`
	ChargeEfficiency Value `json:"charge_efficiency"`
	EnergyPerSoC     Value `json:"energy_per_soc"`
	PowerProxy       Value `json:"power_proxy"`
	VehicleAgeYears  Value `json:"vehicle_age_years"`
}

// Feature is one named entry of a FeatureVector.
type Feature struct {
	Name  string
	Value Value
}

// FeatureVector is the fixed-order mapping sent to the scoring model.
type FeatureVector []Feature

// Features returns the session as a FeatureVector in scoring order.
func (s SessionInfo) Features() FeatureVector {
	return FeatureVector{
		{FeatureBatteryCapacity, s.BatteryKWh},
		{FeatureSoCDiff, s.SoCDiff},
		{FeatureDuration, s.DurationHours},
		{FeatureEnergyEstSoC, s.EnergyEstSoC},
		{FeatureChargingRate, s.ChargingRate},
		{FeaturePowerProxy, s.PowerProxy},
		{FeatureChargeEfficiency, s.ChargeEfficiency},
		{FeatureEnergyPerSoC, s.EnergyPerSoC},
		{FeatureVehicleAge, s.VehicleAgeYears},
	}
}

// Lookup returns the value registered under name.
func (fv FeatureVector) Lookup(name string) (Value, bool) {
	for _, f := range fv {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Names lists the feature names in order.
func (fv FeatureVector) Names() []string {
	out := make([]string, len(fv))
	for i, f := range fv {
		out[i] = f.Name
	}
	return out
}

// MarshalJSON writes an object whose keys keep the vector order.
func (fv FeatureVector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fv {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
