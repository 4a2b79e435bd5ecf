package extract

import (
	"regexp"
	"strings"
)

var (
	batteryRe  = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*kwh`)
	percentRe  = regexp.MustCompile(`(\d{1,3}(?:[.,]\d+)?)\s*%`)
	durationRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:hours|hour|hrs|hr|horas|hora|h)\b`)
	yearRe     = regexp.MustCompile(`\b(20\d{2})\b`)
)

// FromText pulls session numbers out of free text: a battery capacity
// followed by "kWh", the first two percentages as start and end SoC, a
// duration followed by an hour unit and a 20xx year. Brand and model are
// left to a richer extractor.
func FromText(text string) Fields {
	lower := strings.ToLower(text)
	f := Fields{}
	if m := batteryRe.FindStringSubmatch(lower); m != nil {
		f[KeyBatteryKWh] = m[1]
	}
	if m := percentRe.FindAllStringSubmatch(lower, 2); len(m) == 2 {
		f[KeySoCStartPct] = m[0][1]
		f[KeySoCEndPct] = m[1][1]
	}
	if m := durationRe.FindStringSubmatch(lower); m != nil {
		f[KeyDurationHours] = m[1]
	}
	if m := yearRe.FindStringSubmatch(lower); m != nil {
		f[KeyVehicleYear] = m[1]
	}
	return f
}

// Merge returns a copy of base where every key of override that holds a
// non-nil value replaces the base entry.
func Merge(base, override Fields) Fields {
	out := make(Fields, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if v != nil {
			out[k] = v
		}
	}
	return out
}
