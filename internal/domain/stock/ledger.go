package stock

import (
	"context"
	"log/slog"
	"math"
	"time"

	"fieldstock/internal/domain/catalog"
	"fieldstock/internal/domain/fault"
	"fieldstock/internal/domain/locations"
	"fieldstock/internal/infra/metrics"
)

// Materials is the slice of the catalog the ledger needs.
type Materials interface {
	GetByID(ctx context.Context, id int64) (*catalog.Material, error)
}

// Locations resolves location rows for validation and technician routing.
type Locations interface {
	GetByID(ctx context.Context, id int64) (*locations.Location, error)
	ByKindRef(ctx context.Context, kind locations.Kind, refID string) (*locations.Location, error)
}

// CrewLocator resolves a technician's active crew location for pooled
// material. Implemented by the crew registry with a fresh query per call.
type CrewLocator interface {
	ActiveCrewLocationID(ctx context.Context, technicianID string) (int64, error)
}

// SnapshotTaker captures crew membership for an order. Its errors are logged
// and swallowed by ConsumeBatch, never propagated.
type SnapshotTaker interface {
	Capture(ctx context.Context, orderID, employeeID string) error
}

// Ledger owns the current-quantity table and the movement log. Every mutating
// call runs one transaction and either fully commits or fully rolls back.
type Ledger struct {
	store     Store
	materials Materials
	locations Locations
	crews     CrewLocator
	snapshots SnapshotTaker
	log       *slog.Logger
}

func NewLedger(store Store, materials Materials, locs Locations, crews CrewLocator, snapshots SnapshotTaker, log *slog.Logger) *Ledger {
	return &Ledger{
		store:     store,
		materials: materials,
		locations: locs,
		crews:     crews,
		snapshots: snapshots,
		log:       log,
	}
}

// minStockFor returns the threshold a lazily created inventory row gets:
// the material default at the warehouse, nothing anywhere else.
func minStockFor(m *catalog.Material, l *locations.Location) *float64 {
	if l.Kind == locations.KindWarehouse {
		v := m.DefaultMinStock
		return &v
	}
	return nil
}

// Transfer moves qty of a material between two locations. The source loses
// the full quantity; the destination gains qty minus the damaged part, which
// leaves circulation with its own DAMAGED movement.
func (l *Ledger) Transfer(ctx context.Context, materialID, fromID, toID int64, qty, damagedQty float64, technicianID *string) error {
	if qty <= 0 {
		return fault.Invalid("transfer quantity %v must be positive", qty)
	}
	if damagedQty < 0 {
		return fault.Invalid("damaged quantity %v is negative", damagedQty)
	}
	if damagedQty > qty {
		return fault.Invalid("damaged quantity %v exceeds transfer quantity %v", damagedQty, qty)
	}
	if fromID == toID {
		return fault.Invalid("transfer source and destination are the same location %d", fromID)
	}

	mat, err := l.materials.GetByID(ctx, materialID)
	if err != nil {
		return err
	}
	if _, err := l.locations.GetByID(ctx, fromID); err != nil {
		return err
	}
	toLoc, err := l.locations.GetByID(ctx, toID)
	if err != nil {
		return err
	}

	good := qty - damagedQty

	err = l.store.WithinTx(ctx, func(s Store) error {
		cur, err := s.QtyForUpdate(ctx, materialID, fromID)
		if err != nil {
			return err
		}
		if cur < qty {
			return fault.InsufficientStock("material %d at location %d: have %v, need %v", materialID, fromID, cur, qty)
		}
		if err := s.AddQty(ctx, materialID, fromID, -qty, nil); err != nil {
			return err
		}
		if good > 0 {
			if err := s.AddQty(ctx, materialID, toID, good, minStockFor(mat, toLoc)); err != nil {
				return err
			}
			if err := s.InsertMovement(ctx, &Movement{
				MaterialID:     materialID,
				FromLocationID: &fromID,
				ToLocationID:   &toID,
				Qty:            good,
				Kind:           MoveTransfer,
				TechnicianID:   technicianID,
			}); err != nil {
				return err
			}
		}
		if damagedQty > 0 {
			if err := s.InsertMovement(ctx, &Movement{
				MaterialID:     materialID,
				FromLocationID: &fromID,
				Qty:            damagedQty,
				Kind:           MoveDamaged,
				TechnicianID:   technicianID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if good > 0 {
		metrics.MovementsTotal.WithLabelValues(string(MoveTransfer)).Inc()
	}
	if damagedQty > 0 {
		metrics.MovementsTotal.WithLabelValues(string(MoveDamaged)).Inc()
	}
	return nil
}

// Consume decrements stock at exactly one location and records the order and
// technician on the movement. It never touches the warehouse implicitly.
func (l *Ledger) Consume(ctx context.Context, materialID, locationID int64, qty float64, orderID, technicianID string, kind ConsumeKind) error {
	moveKind, err := movementKindFor(kind)
	if err != nil {
		return err
	}
	if qty <= 0 {
		return fault.Invalid("consume quantity %v must be positive", qty)
	}
	if _, err := l.materials.GetByID(ctx, materialID); err != nil {
		return err
	}
	if _, err := l.locations.GetByID(ctx, locationID); err != nil {
		return err
	}

	err = l.store.WithinTx(ctx, func(s Store) error {
		return consumeOne(ctx, s, materialID, locationID, qty, orderID, technicianID, moveKind)
	})
	if err != nil {
		return err
	}
	metrics.MovementsTotal.WithLabelValues(string(moveKind)).Inc()
	return nil
}

func movementKindFor(kind ConsumeKind) (MovementKind, error) {
	switch kind {
	case ConsumeUsed:
		return MoveConsumption, nil
	case ConsumeDamaged:
		return MoveDamaged, nil
	default:
		return "", fault.Invalid("unsupported consume kind %q", kind)
	}
}

func consumeOne(ctx context.Context, s Store, materialID, locationID int64, qty float64, orderID, technicianID string, kind MovementKind) error {
	cur, err := s.QtyForUpdate(ctx, materialID, locationID)
	if err != nil {
		return err
	}
	if cur < qty {
		return fault.InsufficientStock("material %d at location %d: have %v, need %v", materialID, locationID, cur, qty)
	}
	if err := s.AddQty(ctx, materialID, locationID, -qty, nil); err != nil {
		return err
	}
	return s.InsertMovement(ctx, &Movement{
		MaterialID:     materialID,
		FromLocationID: &locationID,
		Qty:            qty,
		Kind:           kind,
		OrderID:        &orderID,
		TechnicianID:   &technicianID,
	})
}

// resolvedItem is a batch line with its acting location already decided.
type resolvedItem struct {
	BatchItem
	locationID int64
}

// locationResolvers is the ownership-keyed strategy table for routing batch
// consumption: individual material comes off the technician's own location,
// pooled material off the technician's active crew location.
func (l *Ledger) locationResolvers() map[catalog.Ownership]func(context.Context, string) (int64, error) {
	return map[catalog.Ownership]func(context.Context, string) (int64, error){
		catalog.OwnershipIndividual: func(ctx context.Context, technicianID string) (int64, error) {
			loc, err := l.locations.ByKindRef(ctx, locations.KindTechnician, technicianID)
			if err != nil {
				return 0, err
			}
			return loc.ID, nil
		},
		catalog.OwnershipPooled: func(ctx context.Context, technicianID string) (int64, error) {
			return l.crews.ActiveCrewLocationID(ctx, technicianID)
		},
	}
}

// ConsumeBatch applies all items in one transaction: any failure rolls back
// every item. On success it lazily captures the order's crew snapshot; a
// snapshot failure is logged and swallowed.
func (l *Ledger) ConsumeBatch(ctx context.Context, items []BatchItem, orderID, technicianID string) error {
	if len(items) == 0 {
		return fault.Invalid("batch is empty")
	}
	if orderID == "" {
		return fault.Invalid("order id is empty")
	}
	if technicianID == "" {
		return fault.Invalid("technician id is empty")
	}

	resolvers := l.locationResolvers()
	resolved := make([]resolvedItem, 0, len(items))
	for _, it := range items {
		if it.UsedQty < 0 || it.DamagedQty < 0 {
			return fault.Invalid("material %d: negative quantity", it.MaterialID)
		}
		if it.UsedQty == 0 && it.DamagedQty == 0 {
			return fault.Invalid("material %d: nothing to consume", it.MaterialID)
		}
		mat, err := l.materials.GetByID(ctx, it.MaterialID)
		if err != nil {
			return err
		}
		resolve, ok := resolvers[mat.Ownership]
		if !ok {
			return fault.Invalid("material %d: unsupported ownership %q", it.MaterialID, mat.Ownership)
		}
		locID, err := resolve(ctx, technicianID)
		if err != nil {
			return err
		}
		resolved = append(resolved, resolvedItem{BatchItem: it, locationID: locID})
	}

	err := l.store.WithinTx(ctx, func(s Store) error {
		for _, it := range resolved {
			if it.UsedQty > 0 {
				if err := consumeOne(ctx, s, it.MaterialID, it.locationID, it.UsedQty, orderID, technicianID, MoveConsumption); err != nil {
					return err
				}
			}
			if it.DamagedQty > 0 {
				if err := consumeOne(ctx, s, it.MaterialID, it.locationID, it.DamagedQty, orderID, technicianID, MoveDamaged); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.BatchConsumptionsTotal.Inc()
	for _, it := range resolved {
		if it.UsedQty > 0 {
			metrics.MovementsTotal.WithLabelValues(string(MoveConsumption)).Inc()
		}
		if it.DamagedQty > 0 {
			metrics.MovementsTotal.WithLabelValues(string(MoveDamaged)).Inc()
		}
	}

	// Snapshot capture happens after commit so its failure can never undo the
	// consumption and a consumption rollback never leaves a stray snapshot.
	if l.snapshots != nil {
		if err := l.snapshots.Capture(ctx, orderID, technicianID); err != nil {
			l.log.Error("order snapshot capture failed", "order_id", orderID, "technician_id", technicianID, "err", err)
		}
	}
	return nil
}

// Adjust corrects stock by a signed delta and logs one ADJUSTMENT movement
// with the absolute quantity, from = to = the adjusted location.
func (l *Ledger) Adjust(ctx context.Context, materialID, locationID int64, delta float64) error {
	if delta == 0 {
		return fault.Invalid("adjustment delta is zero")
	}
	mat, err := l.materials.GetByID(ctx, materialID)
	if err != nil {
		return err
	}
	loc, err := l.locations.GetByID(ctx, locationID)
	if err != nil {
		return err
	}

	err = l.store.WithinTx(ctx, func(s Store) error {
		cur, err := s.QtyForUpdate(ctx, materialID, locationID)
		if err != nil {
			return err
		}
		if cur+delta < 0 {
			return fault.InsufficientStock("material %d at location %d: have %v, adjust by %v", materialID, locationID, cur, delta)
		}
		if err := s.AddQty(ctx, materialID, locationID, delta, minStockFor(mat, loc)); err != nil {
			return err
		}
		return s.InsertMovement(ctx, &Movement{
			MaterialID:     materialID,
			FromLocationID: &locationID,
			ToLocationID:   &locationID,
			Qty:            math.Abs(delta),
			Kind:           MoveAdjustment,
		})
	})
	if err != nil {
		return err
	}
	metrics.MovementsTotal.WithLabelValues(string(MoveAdjustment)).Inc()
	return nil
}

/* Reads */

func (l *Ledger) InventoryByLocation(ctx context.Context, locationID int64) ([]Inventory, error) {
	id := locationID
	return l.store.ListInventory(ctx, InventoryFilter{LocationID: &id})
}

func (l *Ledger) Inventory(ctx context.Context, f InventoryFilter) ([]Inventory, error) {
	return l.store.ListInventory(ctx, f)
}

func (l *Ledger) Movements(ctx context.Context, f MovementFilter) ([]Movement, error) {
	return l.store.ListMovements(ctx, f)
}

func (l *Ledger) Stats(ctx context.Context) ([]LocationStats, error) {
	return l.store.LocationStats(ctx)
}

func (l *Ledger) MovementCounts(ctx context.Context, from, to time.Time) (map[MovementKind]int64, error) {
	return l.store.MovementCounts(ctx, from, to)
}

func (l *Ledger) LowStock(ctx context.Context) ([]Inventory, error) {
	return l.store.LowStock(ctx)
}
