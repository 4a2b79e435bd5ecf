// Package extract turns loosely typed extraction results into a session
// query. The language layer that fills Fields is not trusted: every value is
// coerced defensively and anything that cannot be read as a number becomes
// unknown instead of failing the request.
package extract

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/kilianp07/evsession/core/model"
	"github.com/kilianp07/evsession/core/session"
)

// Keys understood by ToQuery.
const (
	KeyBrand         = "brand"
	KeyModel         = "model"
	KeyBatteryKWh    = "battery_capacity_kwh"
	KeySoCStartPct   = "soc_start_pct"
	KeySoCEndPct     = "soc_end_pct"
	KeyDurationHours = "charging_duration_hours"
	KeyVehicleYear   = "vehicle_year"
)

// Fields holds the raw result of an extraction step.
type Fields map[string]any

// ToQuery coerces f into a session query.
func ToQuery(f Fields) session.Query {
	return session.Query{
		Brand:         Text(f[KeyBrand]),
		Model:         Text(f[KeyModel]),
		BatteryKWh:    Number(f[KeyBatteryKWh]),
		SoCStartPct:   Number(f[KeySoCStartPct]),
		SoCEndPct:     Number(f[KeySoCEndPct]),
		DurationHours: Number(f[KeyDurationHours]),
		VehicleYear:   Year(f[KeyVehicleYear]),
	}
}

// Text returns v when it is a string, trimmed, and "" otherwise.
func Text(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// Number reads v as a float. Strings may use a comma as decimal separator.
func Number(v any) model.Value {
	switch n := v.(type) {
	case float64:
		return model.Known(n)
	case float32:
		return model.Known(float64(n))
	case int:
		return model.Known(float64(n))
	case int32:
		return model.Known(float64(n))
	case int64:
		return model.Known(float64(n))
	case uint:
		return model.Known(float64(n))
	case json.Number:
		return parseNumber(string(n))
	case model.Value:
		return n
	case string:
		return parseNumber(n)
	}
	return model.Unknown()
}

// Year reads v as a calendar year. Fractional years are rejected.
func Year(v any) model.Value {
	y := Number(v)
	f, ok := y.Get()
	if !ok || f != math.Trunc(f) {
		return model.Unknown()
	}
	return y
}

func parseNumber(s string) model.Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Unknown()
	}
	s = strings.Replace(s, ",", ".", 1)
	if !isDecimal(s) {
		return model.Unknown()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return model.Unknown()
	}
	return model.Known(f)
}

// isDecimal reports whether s only holds characters of a plain decimal
// number. ParseFloat alone would also take hex floats, underscores and
// spelled-out infinities.
func isDecimal(s string) bool {
	return strings.Trim(s, "0123456789+-.eE") == ""
}
