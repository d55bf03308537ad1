package stock

import "time"

// MovementKind tags one row of the append-only ledger.
type MovementKind string

const (
	MoveTransfer    MovementKind = "transfer"
	MoveConsumption MovementKind = "consumption"
	MoveAdjustment  MovementKind = "adjustment"
	MoveDamaged     MovementKind = "damaged"
)

// ConsumeKind distinguishes used material from material broken on the job.
type ConsumeKind string

const (
	ConsumeUsed    ConsumeKind = "used"
	ConsumeDamaged ConsumeKind = "damaged"
)

// Inventory is the current quantity of one material at one location.
// MinStock is set only for warehouse rows.
type Inventory struct {
	MaterialID int64
	LocationID int64
	Qty        float64
	MinStock   *float64
}

// Movement is immutable once written. Qty is always positive; the direction
// lives in the from/to pair (nil "to" means the material left circulation).
type Movement struct {
	ID             int64
	MaterialID     int64
	FromLocationID *int64
	ToLocationID   *int64
	Qty            float64
	Kind           MovementKind
	OrderID        *string
	TechnicianID   *string
	CreatedAt      time.Time
}

// BatchItem is one line of a batched order consumption.
type BatchItem struct {
	MaterialID int64
	UsedQty    float64
	DamagedQty float64
}

type MovementFilter struct {
	MaterialID *int64
	LocationID *int64 // matches either side of the movement
	Kind       *MovementKind
	OrderID    *string
	From       *time.Time
	To         *time.Time
	Limit      int
}

type InventoryFilter struct {
	MaterialID *int64
	LocationID *int64
}

// LocationStats aggregates ledger activity per location.
type LocationStats struct {
	LocationID        int64
	DistinctMaterials int64
	TotalQty          float64
	MovementCount     int64
}
