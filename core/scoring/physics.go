package scoring

import (
	"context"
	"fmt"

	"github.com/kilianp07/evsession/core/model"
)

// Physics is a baseline scorer that needs no trained model: the energy
// drawn from the charger is the energy stored in the battery divided by the
// charge efficiency.
type Physics struct {
	// Efficiency overrides the Charge_Efficiency feature when positive.
	Efficiency float64
}

// Score implements Scorer.
func (p Physics) Score(ctx context.Context, features model.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, Wrap("physics", err)
	}
	energy, ok := lookup(features, model.FeatureEnergyEstSoC)
	if !ok {
		return 0, Wrap("physics", fmt.Errorf("feature %q is unknown", model.FeatureEnergyEstSoC))
	}
	eff := p.Efficiency
	if eff <= 0 {
		eff, ok = lookup(features, model.FeatureChargeEfficiency)
		if !ok || eff <= 0 {
			return 0, Wrap("physics", fmt.Errorf("feature %q is unknown", model.FeatureChargeEfficiency))
		}
	}
	return energy / eff, nil
}

func lookup(fv model.FeatureVector, name string) (float64, bool) {
	v, ok := fv.Lookup(name)
	if !ok {
		return 0, false
	}
	return v.Get()
}

// Name returns "physics".
func (Physics) Name() string { return "physics" }
