// Package catalog holds the read-only vehicle reference data used by the
// resolver. A Catalog is an immutable snapshot; providers hand out one
// snapshot per request so that a reload never changes data under a reader.
package catalog

import (
	"errors"
	"sync/atomic"

	"github.com/kilianp07/evsession/core/model"
	"github.com/kilianp07/evsession/core/normalize"
)

var (
	// ErrEmptyCatalog is returned when a catalog source yields no usable record.
	ErrEmptyCatalog = errors.New("catalog is empty")
	// ErrUnsupportedFormat is returned for unknown catalog file formats.
	ErrUnsupportedFormat = errors.New("unsupported catalog format")
)

// Entry is a catalog record along with its normalized brand and model.
type Entry struct {
	Record model.VehicleRecord
	Brand  string
	Model  string
}

// Catalog is an ordered, immutable list of vehicle records.
type Catalog struct {
	entries []Entry
}

// New copies records into a new snapshot. Record order is preserved and is
// the tie-break order used by the resolver.
func New(records []model.VehicleRecord) *Catalog {
	entries := make([]Entry, len(records))
	for i, r := range records {
		entries[i] = Entry{
			Record: r,
			Brand:  normalize.Normalize(r.Brand),
			Model:  normalize.Normalize(r.Model),
		}
	}
	return &Catalog{entries: entries}
}

// Len returns the number of records. A nil catalog is empty.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Entries returns the normalized entries. Callers must not modify the slice.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	return c.entries
}

// Records returns a copy of the records in catalog order.
func (c *Catalog) Records() []model.VehicleRecord {
	out := make([]model.VehicleRecord, c.Len())
	for i, e := range c.Entries() {
		out[i] = e.Record
	}
	return out
}

// Brands returns the distinct brands in order of first appearance.
func (c *Catalog) Brands() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range c.Entries() {
		if seen[e.Brand] {
			continue
		}
		seen[e.Brand] = true
		out = append(out, e.Record.Brand)
	}
	return out
}

// Provider supplies the current catalog snapshot.
type Provider interface {
	Snapshot() *Catalog
}

// Static always returns the same snapshot.
type Static struct {
	cat *Catalog
}

// NewStatic wraps records in a Static provider.
func NewStatic(records []model.VehicleRecord) Static {
	return Static{cat: New(records)}
}

// Snapshot returns the wrapped catalog.
func (s Static) Snapshot() *Catalog { return s.cat }

// Atomic is a Provider whose snapshot can be replaced at runtime. Readers
// never block and keep the snapshot they obtained.
type Atomic struct {
	cur atomic.Pointer[Catalog]
}

// NewAtomic creates an Atomic provider seeded with cat.
func NewAtomic(cat *Catalog) *Atomic {
	a := &Atomic{}
	a.Store(cat)
	return a
}

// Snapshot returns the current catalog.
func (a *Atomic) Snapshot() *Catalog { return a.cur.Load() }

// Store replaces the current catalog.
func (a *Atomic) Store(cat *Catalog) {
	if cat == nil {
		cat = New(nil)
	}
	a.cur.Store(cat)
}
