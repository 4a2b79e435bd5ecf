// Package completeness decides which critical session fields are still
// missing and phrases one question for each of them.
package completeness

import "github.com/kilianp07/evsession/core/model"

// Field identifies a critical session attribute.
type Field string

const (
	FieldBatteryCapacity  Field = "battery_capacity"
	FieldSoCDiff          Field = "soc_diff"
	FieldChargingDuration Field = "charging_duration"
	FieldVehicleAge       Field = "vehicle_age"
)

type check struct {
	field    Field
	question string
	value    func(model.SessionInfo) model.Value
}

// checks are evaluated in this order and the questions keep it.
var checks = []check{
	{
		field:    FieldBatteryCapacity,
		question: "What is the battery capacity of your vehicle in kWh?",
		value:    func(s model.SessionInfo) model.Value { return s.BatteryKWh },
	},
	{
		field:    FieldSoCDiff,
		question: "What were the state of charge percentages at the start and at the end of the session?",
		value:    func(s model.SessionInfo) model.Value { return s.SoCDiff },
	},
	{
		field:    FieldChargingDuration,
		question: "How long did the charging session last, in hours?",
		value:    func(s model.SessionInfo) model.Value { return s.DurationHours },
	},
	{
		field:    FieldVehicleAge,
		question: "What is the model year of your vehicle?",
		value:    func(s model.SessionInfo) model.Value { return s.VehicleAgeYears },
	},
}

// CriticalFields lists the fields checked by Evaluate, in order.
func CriticalFields() []Field {
	out := make([]Field, len(checks))
	for i, c := range checks {
		out[i] = c.field
	}
	return out
}

// Question returns the question asked when f is missing.
func Question(f Field) string {
	for _, c := range checks {
		if c.field == f {
			return c.question
		}
	}
	return ""
}

// Missing returns the critical fields that are unknown in s.
func Missing(s model.SessionInfo) []Field {
	var out []Field
	for _, c := range checks {
		if !c.value(s).IsKnown() {
			out = append(out, c.field)
		}
	}
	return out
}

// Evaluate returns one question per missing critical field. The result is
// empty exactly when the session can be scored.
func Evaluate(s model.SessionInfo) []string {
	var out []string
	for _, c := range checks {
		if !c.value(s).IsKnown() {
			out = append(out, c.question)
		}
	}
	return out
}
