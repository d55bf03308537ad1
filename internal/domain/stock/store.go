package stock

import (
	"context"
	"time"
)

// Store is the persistence surface of the ledger. The pgx implementation is
// Repo; tests run against the in-memory store. Mutating methods are only
// called from inside WithinTx.
type Store interface {
	// WithinTx runs fn against a transaction-scoped store and commits iff fn
	// returns nil. A store that is already transaction-scoped runs fn on itself.
	WithinTx(ctx context.Context, fn func(Store) error) error

	// QtyForUpdate reads the current quantity for the pair and locks the row
	// until the transaction ends. A missing row reads as zero.
	QtyForUpdate(ctx context.Context, materialID, locationID int64) (float64, error)
	// AddQty applies a delta to the pair, creating the row with the given
	// min-stock threshold when it does not exist yet.
	AddQty(ctx context.Context, materialID, locationID int64, delta float64, minStock *float64) error
	// SetQty overwrites the pair's quantity. Used to zero a source row during
	// crew reconfiguration.
	SetQty(ctx context.Context, materialID, locationID int64, qty float64) error
	InsertMovement(ctx context.Context, m *Movement) error

	// Holdings lists the pairs with qty > 0 at a location, ordered by material.
	Holdings(ctx context.Context, locationID int64) ([]Inventory, error)
	ListInventory(ctx context.Context, f InventoryFilter) ([]Inventory, error)
	ListMovements(ctx context.Context, f MovementFilter) ([]Movement, error)
	LocationStats(ctx context.Context) ([]LocationStats, error)
	MovementCounts(ctx context.Context, from, to time.Time) (map[MovementKind]int64, error)
	// LowStock lists warehouse rows at or below their min-stock threshold.
	LowStock(ctx context.Context) ([]Inventory, error)
}
