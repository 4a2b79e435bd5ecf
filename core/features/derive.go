// Package features computes the derived physical attributes of a charging
// session from whatever raw inputs are known. Partial results are normal: a
// field whose inputs are unknown stays unknown.
package features

import "github.com/kilianp07/evsession/core/model"

// DefaultChargeEfficiency is the charger-to-battery efficiency used when no
// better figure is available.
const DefaultChargeEfficiency = 0.92

// Derive builds a SessionInfo from raw inputs and an optional catalog match.
// Values supplied in raw always win over values taken from the vehicle
// record. A non-positive defaultEfficiency selects DefaultChargeEfficiency.
func Derive(raw model.RawSessionInput, matched *model.VehicleRecord, currentYear int, defaultEfficiency float64) model.SessionInfo {
	s := model.SessionInfo{
		BatteryKWh:    raw.BatteryKWh,
		SoCDiff:       raw.SoCDiff,
		DurationHours: raw.DurationHours,
	}
	if y, ok := raw.VehicleYear.Get(); ok {
		s.VehicleAgeYears = model.Known(float64(currentYear) - y)
	}

	if matched != nil {
		if !s.BatteryKWh.IsKnown() && matched.BatteryKWh > 0 {
			s.BatteryKWh = model.Known(matched.BatteryKWh)
		}
		if !s.VehicleAgeYears.IsKnown() && matched.HasModelYear() {
			s.VehicleAgeYears = model.Known(float64(currentYear - matched.ModelYear))
		}
	}

	if b, ok := s.BatteryKWh.Get(); ok {
		s.EnergyPerSoC = model.Known(b / 100)
	}
	if d, ok := s.SoCDiff.Get(); ok {
		if per, ok := s.EnergyPerSoC.Get(); ok {
			s.EnergyEstSoC = model.Known(d * per)
		}
	}
	s.ChargingRate = ChargingRate(s.EnergyEstSoC, s.DurationHours)

	if defaultEfficiency <= 0 {
		defaultEfficiency = DefaultChargeEfficiency
	}
	s.ChargeEfficiency = model.Known(defaultEfficiency)

	// no independent power measurement exists yet
	s.PowerProxy = s.ChargingRate
	return s
}

// ChargingRate returns energy/duration in kW. It is unknown when either input
// is unknown or when the duration is not strictly positive.
func ChargingRate(energyKWh, durationHours model.Value) model.Value {
	e, okE := energyKWh.Get()
	h, okH := durationHours.Get()
	if !okE || !okH || h <= 0 {
		return model.Unknown()
	}
	return model.Known(e / h)
}
