package scenarios

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/kilianp07/evsession/core/catalog"
	"github.com/kilianp07/evsession/core/extract"
	"github.com/kilianp07/evsession/core/model"
	"github.com/kilianp07/evsession/core/session"
)

const tolerance = 1e-6

// Result is the outcome of one scenario. It passed when Failures is empty.
type Result struct {
	Name     string
	Decision session.Decision
	Failures []string
}

func (r Result) Passed() bool { return len(r.Failures) == 0 }

// Run decides the scenario input and checks it against the expectations.
func Run(sc *Scenario) Result {
	recs := make([]model.VehicleRecord, len(sc.Catalog))
	for i, v := range sc.Catalog {
		recs[i] = v.ToModel()
	}
	vehicles := catalog.NewStatic(recs)
	now := time.Date(sc.Year, time.July, 1, 0, 0, 0, 0, time.UTC)
	engine := session.New(vehicles, session.WithClock(func() time.Time { return now }))

	fields := sc.Fields
	if sc.Text != "" {
		fields = extract.Merge(extract.FromText(sc.Text), sc.Fields)
	}
	q := extract.ToQuery(fields)
	d := engine.Decide(q)
	res := Result{Name: sc.Name, Decision: d}
	fail := func(format string, args ...any) {
		res.Failures = append(res.Failures, fmt.Sprintf(format, args...))
	}

	exp := sc.Expected
	if exp.Outcome != "" && d.Outcome.Kind() != exp.Outcome {
		fail("outcome: got %s, want %s", d.Outcome.Kind(), exp.Outcome)
	}
	if exp.Stage != "" && d.Stage(q) != exp.Stage {
		fail("stage: got %s, want %s", d.Stage(q), exp.Stage)
	}
	if exp.Vehicle != "" {
		got := ""
		if d.Vehicle != nil {
			got = d.Vehicle.Record.Brand + " " + d.Vehicle.Record.Model
		}
		if got != exp.Vehicle {
			fail("vehicle: got %q, want %q", got, exp.Vehicle)
		}
	}
	if exp.Missing != nil {
		got := make([]string, len(d.Missing))
		for i, f := range d.Missing {
			got[i] = string(f)
		}
		if !slices.Equal(got, exp.Missing) {
			fail("missing: got %v, want %v", got, exp.Missing)
		}
	}
	if exp.Questions > 0 {
		n := 0
		if ask, ok := d.Outcome.(model.AskMissing); ok {
			n = len(ask.Questions)
		}
		if n != exp.Questions {
			fail("questions: got %d, want %d", n, exp.Questions)
		}
	}

	names := make([]string, 0, len(exp.Features))
	for name := range exp.Features {
		names = append(names, name)
	}
	sort.Strings(names)
	fv := d.Session.Features()
	for _, name := range names {
		want := exp.Features[name]
		v, ok := fv.Lookup(name)
		if !ok {
			fail("feature %q does not exist", name)
			continue
		}
		got, known := v.Get()
		switch {
		case want == nil && known:
			fail("%s: got %v, want unknown", name, got)
		case want != nil && !known:
			fail("%s: unknown, want %v", name, *want)
		case want != nil && math.Abs(got-*want) > tolerance:
			fail("%s: got %v, want %v", name, got, *want)
		}
	}
	return res
}
