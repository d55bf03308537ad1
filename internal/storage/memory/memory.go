// Package memory holds an in-memory implementation of every domain store,
// used by tests. Transactions clone the whole state and swap it back in on
// commit, so a failed transaction leaves no trace and all access serializes
// on one mutex.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"fieldstock/internal/domain/catalog"
	"fieldstock/internal/domain/crews"
	"fieldstock/internal/domain/fault"
	"fieldstock/internal/domain/locations"
	"fieldstock/internal/domain/snapshots"
	"fieldstock/internal/domain/stock"
)

type invKey struct {
	materialID int64
	locationID int64
}

type state struct {
	materials   map[int64]catalog.Material
	locations   map[int64]locations.Location
	inventories map[invKey]stock.Inventory
	movements   []stock.Movement
	crews       map[int64]crews.Crew
	members     []crews.Member
	snapshots   map[string]snapshots.Snapshot

	materialSeq int64
	locationSeq int64
	crewSeq     int64
	movementSeq int64
	snapshotSeq int64
}

func newState() *state {
	return &state{
		materials:   map[int64]catalog.Material{},
		locations:   map[int64]locations.Location{},
		inventories: map[invKey]stock.Inventory{},
		crews:       map[int64]crews.Crew{},
		snapshots:   map[string]snapshots.Snapshot{},
	}
}

// clone copies the state shallowly per row. Rows are treated as immutable
// values and replaced wholesale on write, so sharing their inner slices
// between clones is safe.
func (s *state) clone() *state {
	c := &state{
		materials:   make(map[int64]catalog.Material, len(s.materials)),
		locations:   make(map[int64]locations.Location, len(s.locations)),
		inventories: make(map[invKey]stock.Inventory, len(s.inventories)),
		movements:   make([]stock.Movement, len(s.movements)),
		crews:       make(map[int64]crews.Crew, len(s.crews)),
		members:     make([]crews.Member, len(s.members)),
		snapshots:   make(map[string]snapshots.Snapshot, len(s.snapshots)),
		materialSeq: s.materialSeq,
		locationSeq: s.locationSeq,
		crewSeq:     s.crewSeq,
		movementSeq: s.movementSeq,
		snapshotSeq: s.snapshotSeq,
	}
	for k, v := range s.materials {
		c.materials[k] = v
	}
	for k, v := range s.locations {
		c.locations[k] = v
	}
	for k, v := range s.inventories {
		c.inventories[k] = v
	}
	copy(c.movements, s.movements)
	for k, v := range s.crews {
		c.crews[k] = v
	}
	copy(c.members, s.members)
	for k, v := range s.snapshots {
		c.snapshots[k] = v
	}
	return c
}

// crewWithLocation joins the crew row with its location, mirroring the SQL
// store's read shape.
func (s *state) crewWithLocation(id int64) (*crews.Crew, error) {
	c, ok := s.crews[id]
	if !ok {
		return nil, fault.NotFound("crew %d", id)
	}
	ref := strconv.FormatInt(id, 10)
	for _, l := range s.locations {
		if l.Kind == locations.KindCrew && l.RefID != nil && *l.RefID == ref {
			c.LocationID = l.ID
			return &c, nil
		}
	}
	return nil, fault.NotFound("location for crew %d", id)
}

// DB is the shared root. Handles for the individual store interfaces hang off
// it and all observe the same data.
type DB struct {
	mu sync.Mutex
	st *state
}

func New() *DB { return &DB{st: newState()} }

// view runs fn against the given transaction state, or against the live
// state under the lock when st is nil.
func (d *DB) view(st *state, fn func(*state) error) error {
	if st != nil {
		return fn(st)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d.st)
}

// tx clones the state, runs fn on the clone and commits it iff fn succeeds.
func (d *DB) tx(fn func(*state) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	clone := d.st.clone()
	if err := fn(clone); err != nil {
		return err
	}
	d.st = clone
	return nil
}

// SeedMaterial inserts a material row, assigning an id when absent.
func (d *DB) SeedMaterial(m catalog.Material) catalog.Material {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m.ID == 0 {
		d.st.materialSeq++
		m.ID = d.st.materialSeq
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.Active = true
	d.st.materials[m.ID] = m
	return m
}

// SeedLocation inserts a location row, assigning an id when absent.
func (d *DB) SeedLocation(l locations.Location) locations.Location {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l.ID == 0 {
		d.st.locationSeq++
		l.ID = d.st.locationSeq
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	l.Active = true
	d.st.locations[l.ID] = l
	return l
}

// SeedWarehouse inserts the single warehouse location.
func (d *DB) SeedWarehouse(name string) locations.Location {
	return d.SeedLocation(locations.Location{Kind: locations.KindWarehouse, Name: name})
}

// SeedTechnician inserts a technician location keyed by the technician id.
func (d *DB) SeedTechnician(technicianID, name string) locations.Location {
	ref := technicianID
	return d.SeedLocation(locations.Location{Kind: locations.KindTechnician, RefID: &ref, Name: name})
}

// Materials implements the catalog lookup the stock ledger needs.
type Materials struct{ db *DB }

func (d *DB) Materials() *Materials { return &Materials{db: d} }

func (m *Materials) GetByID(ctx context.Context, id int64) (*catalog.Material, error) {
	var out *catalog.Material
	err := m.db.view(nil, func(st *state) error {
		row, ok := st.materials[id]
		if !ok {
			return fault.NotFound("material %d", id)
		}
		out = &row
		return nil
	})
	return out, err
}

// Locations implements the location lookups the stock ledger needs.
type Locations struct{ db *DB }

func (d *DB) Locations() *Locations { return &Locations{db: d} }

func (l *Locations) GetByID(ctx context.Context, id int64) (*locations.Location, error) {
	var out *locations.Location
	err := l.db.view(nil, func(st *state) error {
		row, ok := st.locations[id]
		if !ok {
			return fault.NotFound("location %d", id)
		}
		out = &row
		return nil
	})
	return out, err
}

func (l *Locations) ByKindRef(ctx context.Context, kind locations.Kind, refID string) (*locations.Location, error) {
	var out *locations.Location
	err := l.db.view(nil, func(st *state) error {
		for _, row := range st.locations {
			if row.Kind == kind && row.RefID != nil && *row.RefID == refID {
				out = &row
				return nil
			}
		}
		return fault.NotFound("location %s/%s", kind, refID)
	})
	return out, err
}

// Warehouse returns the single warehouse location.
func (l *Locations) Warehouse(ctx context.Context) (*locations.Location, error) {
	var out *locations.Location
	err := l.db.view(nil, func(st *state) error {
		for _, row := range st.locations {
			if row.Kind == locations.KindWarehouse {
				out = &row
				return nil
			}
		}
		return fault.NotFound("warehouse location")
	})
	return out, err
}
