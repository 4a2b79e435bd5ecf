package catalog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evsession/core/model"
)

func sampleRecords() []model.VehicleRecord {
	return []model.VehicleRecord{
		{Brand: "Tesla", Model: "Model 3", BatteryKWh: 57.5, ModelYear: 2021},
		{Brand: "Škoda", Model: "Enyaq iV 80", BatteryKWh: 77, ModelYear: 2022},
		{Brand: "Tesla", Model: "Model Y", BatteryKWh: 75, ModelYear: 2022},
	}
}

func TestNewNormalizesAndKeepsOrder(t *testing.T) {
	recs := sampleRecords()
	cat := New(recs)
	require.Equal(t, 3, cat.Len())
	e := cat.Entries()
	assert.Equal(t, "skoda", e[1].Brand)
	assert.Equal(t, "enyaq iv 80", e[1].Model)
	assert.Equal(t, recs, cat.Records())
	assert.Equal(t, []string{"Tesla", "Škoda"}, cat.Brands())

	// the snapshot does not alias the input slice
	recs[0].Brand = "changed"
	assert.Equal(t, "Tesla", cat.Records()[0].Brand)
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Entries())
	assert.Empty(t, c.Records())
}

func TestStaticProvider(t *testing.T) {
	p := NewStatic(sampleRecords())
	assert.Same(t, p.Snapshot(), p.Snapshot())
}

func TestAtomicProviderSwap(t *testing.T) {
	a := NewAtomic(New(sampleRecords()))
	old := a.Snapshot()
	require.Equal(t, 3, old.Len())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := a.Snapshot()
			assert.NotNil(t, snap)
			_ = snap.Len()
		}()
	}
	a.Store(New(sampleRecords()[:1]))
	wg.Wait()

	assert.Equal(t, 1, a.Snapshot().Len())
	assert.Equal(t, 3, old.Len())

	a.Store(nil)
	assert.Equal(t, 0, a.Snapshot().Len())
}
