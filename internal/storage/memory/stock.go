package memory

import (
	"context"
	"sort"
	"time"

	"fieldstock/internal/domain/stock"
)

// StockStore implements stock.Store. A nil st means the handle is bound to
// the live database; a non-nil st means it is scoped to an open transaction.
type StockStore struct {
	db *DB
	st *state
}

func (d *DB) Stock() *StockStore { return &StockStore{db: d} }

func (s *StockStore) WithinTx(ctx context.Context, fn func(stock.Store) error) error {
	if s.st != nil {
		return fn(s)
	}
	return s.db.tx(func(st *state) error {
		return fn(&StockStore{db: s.db, st: st})
	})
}

func (s *StockStore) QtyForUpdate(ctx context.Context, materialID, locationID int64) (float64, error) {
	var qty float64
	err := s.db.view(s.st, func(st *state) error {
		qty = st.inventories[invKey{materialID, locationID}].Qty
		return nil
	})
	return qty, err
}

func (s *StockStore) AddQty(ctx context.Context, materialID, locationID int64, delta float64, minStock *float64) error {
	return s.db.view(s.st, func(st *state) error {
		key := invKey{materialID, locationID}
		inv, ok := st.inventories[key]
		if !ok {
			inv = stock.Inventory{MaterialID: materialID, LocationID: locationID, MinStock: minStock}
		}
		inv.Qty += delta
		st.inventories[key] = inv
		return nil
	})
}

func (s *StockStore) SetQty(ctx context.Context, materialID, locationID int64, qty float64) error {
	return s.db.view(s.st, func(st *state) error {
		key := invKey{materialID, locationID}
		inv, ok := st.inventories[key]
		if !ok {
			inv = stock.Inventory{MaterialID: materialID, LocationID: locationID}
		}
		inv.Qty = qty
		st.inventories[key] = inv
		return nil
	})
}

func (s *StockStore) InsertMovement(ctx context.Context, m *stock.Movement) error {
	return s.db.view(s.st, func(st *state) error {
		st.movementSeq++
		m.ID = st.movementSeq
		m.CreatedAt = time.Now()
		st.movements = append(st.movements, *m)
		return nil
	})
}

func (s *StockStore) Holdings(ctx context.Context, locationID int64) ([]stock.Inventory, error) {
	var out []stock.Inventory
	err := s.db.view(s.st, func(st *state) error {
		for _, inv := range st.inventories {
			if inv.LocationID == locationID && inv.Qty > 0 {
				out = append(out, inv)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].MaterialID < out[j].MaterialID })
	return out, err
}

func (s *StockStore) ListInventory(ctx context.Context, f stock.InventoryFilter) ([]stock.Inventory, error) {
	var out []stock.Inventory
	err := s.db.view(s.st, func(st *state) error {
		for _, inv := range st.inventories {
			if f.MaterialID != nil && inv.MaterialID != *f.MaterialID {
				continue
			}
			if f.LocationID != nil && inv.LocationID != *f.LocationID {
				continue
			}
			out = append(out, inv)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].MaterialID < out[j].MaterialID
	})
	return out, err
}

func matchMovement(m stock.Movement, f stock.MovementFilter) bool {
	if f.MaterialID != nil && m.MaterialID != *f.MaterialID {
		return false
	}
	if f.LocationID != nil {
		fromHit := m.FromLocationID != nil && *m.FromLocationID == *f.LocationID
		toHit := m.ToLocationID != nil && *m.ToLocationID == *f.LocationID
		if !fromHit && !toHit {
			return false
		}
	}
	if f.Kind != nil && m.Kind != *f.Kind {
		return false
	}
	if f.OrderID != nil && (m.OrderID == nil || *m.OrderID != *f.OrderID) {
		return false
	}
	if f.From != nil && m.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !m.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}

func (s *StockStore) ListMovements(ctx context.Context, f stock.MovementFilter) ([]stock.Movement, error) {
	var out []stock.Movement
	err := s.db.view(s.st, func(st *state) error {
		// Newest first, matching the SQL store's ordering.
		for i := len(st.movements) - 1; i >= 0; i-- {
			m := st.movements[i]
			if !matchMovement(m, f) {
				continue
			}
			out = append(out, m)
			if f.Limit > 0 && len(out) == f.Limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func (s *StockStore) LocationStats(ctx context.Context) ([]stock.LocationStats, error) {
	var out []stock.LocationStats
	err := s.db.view(s.st, func(st *state) error {
		byLoc := map[int64]*stock.LocationStats{}
		for _, inv := range st.inventories {
			ls, ok := byLoc[inv.LocationID]
			if !ok {
				ls = &stock.LocationStats{LocationID: inv.LocationID}
				byLoc[inv.LocationID] = ls
			}
			if inv.Qty > 0 {
				ls.DistinctMaterials++
			}
			ls.TotalQty += inv.Qty
		}
		for _, m := range st.movements {
			for _, side := range []*int64{m.FromLocationID, m.ToLocationID} {
				if side == nil {
					continue
				}
				if ls, ok := byLoc[*side]; ok {
					ls.MovementCount++
				}
				if m.FromLocationID != nil && m.ToLocationID != nil && *m.FromLocationID == *m.ToLocationID {
					break
				}
			}
		}
		for _, ls := range byLoc {
			out = append(out, *ls)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out, err
}

func (s *StockStore) MovementCounts(ctx context.Context, from, to time.Time) (map[stock.MovementKind]int64, error) {
	out := map[stock.MovementKind]int64{}
	err := s.db.view(s.st, func(st *state) error {
		for _, m := range st.movements {
			if m.CreatedAt.Before(from) || !m.CreatedAt.Before(to) {
				continue
			}
			out[m.Kind]++
		}
		return nil
	})
	return out, err
}

func (s *StockStore) LowStock(ctx context.Context) ([]stock.Inventory, error) {
	var out []stock.Inventory
	err := s.db.view(s.st, func(st *state) error {
		for _, inv := range st.inventories {
			if inv.MinStock != nil && inv.Qty <= *inv.MinStock {
				out = append(out, inv)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].MaterialID < out[j].MaterialID })
	return out, err
}
