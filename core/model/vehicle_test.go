package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVehicleRecordValidate(t *testing.T) {
	ok := VehicleRecord{Brand: "Tesla", Model: "Model 3", BatteryKWh: 57.5, ModelYear: 2021}
	assert.NoError(t, ok.Validate())
	assert.True(t, ok.HasModelYear())

	assert.Error(t, VehicleRecord{Model: "Model 3", BatteryKWh: 57.5}.Validate())
	assert.Error(t, VehicleRecord{Brand: "Tesla", Model: "Model 3"}.Validate())
	assert.Error(t, VehicleRecord{Brand: "Tesla", Model: "Model 3", BatteryKWh: 50, ModelYear: -1}.Validate())
	assert.False(t, VehicleRecord{Brand: "Renault", Model: "Zoe", BatteryKWh: 52}.HasModelYear())
}

func TestVehicleQueryEmpty(t *testing.T) {
	assert.True(t, VehicleQuery{}.Empty())
	assert.True(t, VehicleQuery{Brand: "Kia"}.Empty())
	assert.True(t, VehicleQuery{Model: "EV6"}.Empty())
	assert.False(t, VehicleQuery{Brand: "Kia", Model: "EV6"}.Empty())
}

func TestValueKnownUnknown(t *testing.T) {
	var zero Value
	assert.False(t, zero.IsKnown())

	v := Known(0)
	f, ok := v.Get()
	assert.True(t, ok)
	assert.Equal(t, 0.0, f)

	assert.False(t, Known(math.NaN()).IsKnown())
	assert.False(t, Known(math.Inf(1)).IsKnown())
	assert.Equal(t, 3.5, Unknown().OrElse(3.5))
	assert.Equal(t, Known(2), Unknown().Or(Known(2)))
	assert.Equal(t, Known(1), Known(1).Or(Known(2)))
	assert.Equal(t, "unknown", Unknown().String())
	assert.Equal(t, "0.75", Known(0.75).String())
}

func TestValueJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Value `json:"a"`
		B Value `json:"b"`
	}{A: Known(1.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null}`, string(b))

	var out struct {
		A Value `json:"a"`
		B Value `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":2,"b":null}`), &out))
	assert.Equal(t, Known(2), out.A)
	assert.False(t, out.B.IsKnown())
	assert.Error(t, json.Unmarshal([]byte(`{"a":"x"}`), &out))
}

func TestWithSoCBounds(t *testing.T) {
	raw := RawSessionInput{}.WithSoCBounds(Known(20), Known(60))
	assert.Equal(t, Known(40), raw.SoCDiff)

	raw = RawSessionInput{SoCDiff: Known(15)}.WithSoCBounds(Known(20), Unknown())
	assert.Equal(t, Known(15), raw.SoCDiff)

	raw = RawSessionInput{}.WithSoCBounds(Unknown(), Known(80))
	assert.False(t, raw.SoCDiff.IsKnown())
}

func TestFeatureVectorOrderAndJSON(t *testing.T) {
	s := SessionInfo{BatteryKWh: Known(75), SoCDiff: Known(40)}
	fv := s.Features()
	assert.Equal(t, []string{
		"Battery Capacity (kWh)",
		"SoC_diff",
		"Charging Duration (hours)",
		"Energy_est_SoC",
		"Charging_Rate",
		"Power_proxy",
		"Charge_Efficiency",
		"Energy_per_SoC",
		"Vehicle Age (years)",
	}, fv.Names())

	v, ok := fv.Lookup(FeatureBatteryCapacity)
	require.True(t, ok)
	assert.Equal(t, Known(75), v)
	_, ok = fv.Lookup("missing")
	assert.False(t, ok)

	b, err := json.Marshal(fv)
	require.NoError(t, err)
	want := `{"Battery Capacity (kWh)":75,"SoC_diff":40,"Charging Duration (hours)":null,` +
		`"Energy_est_SoC":null,"Charging_Rate":null,"Power_proxy":null,"Charge_Efficiency":null,` +
		`"Energy_per_SoC":null,"Vehicle Age (years)":null}`
	assert.Equal(t, want, string(b))
}

func TestOutcomeKinds(t *testing.T) {
	outcomes := []Outcome{AskMissing{Questions: []string{"q"}}, ReadyToPredict{}}
	kinds := make([]OutcomeKind, 0, len(outcomes))
	for _, o := range outcomes {
		switch o.(type) {
		case AskMissing, ReadyToPredict:
			kinds = append(kinds, o.Kind())
		}
	}
	assert.Equal(t, []OutcomeKind{KindAskMissing, KindPredict}, kinds)
}
