package memory

import (
	"context"

	"fieldstock/internal/domain/crews"
	"fieldstock/internal/domain/fault"
	"fieldstock/internal/domain/locations"
	"fieldstock/internal/domain/reconfigure"
	"fieldstock/internal/domain/stock"
)

// ReconfigStore implements reconfigure.Store by handing out crew and stock
// stores bound to the same transaction state.
type ReconfigStore struct {
	db *DB
	st *state
}

func (d *DB) Reconfigure() *ReconfigStore { return &ReconfigStore{db: d} }

func (r *ReconfigStore) WithinTx(ctx context.Context, fn func(reconfigure.Store) error) error {
	if r.st != nil {
		return fn(r)
	}
	return r.db.tx(func(st *state) error {
		return fn(&ReconfigStore{db: r.db, st: st})
	})
}

func (r *ReconfigStore) Crews() crews.Store { return &CrewStore{db: r.db, st: r.st} }

func (r *ReconfigStore) Stock() stock.Store { return &StockStore{db: r.db, st: r.st} }

func (r *ReconfigStore) Warehouse(ctx context.Context) (*locations.Location, error) {
	var out *locations.Location
	err := r.db.view(r.st, func(st *state) error {
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
