package catalog

import "time"

type Unit string

const (
	UnitPcs   Unit = "pcs"
	UnitMeter Unit = "m"
	UnitKg    Unit = "kg"
)

// Ownership controls where batch consumption takes stock from: individual
// materials live at the technician's own location, pooled materials at the
// technician's active crew location.
type Ownership string

const (
	OwnershipIndividual Ownership = "individual"
	OwnershipPooled     Ownership = "pooled"
)

func (o Ownership) Valid() bool {
	return o == OwnershipIndividual || o == OwnershipPooled
}

type Material struct {
	ID              int64
	Name            string
	Unit            Unit
	Category        string
	Ownership       Ownership
	DefaultMinStock float64
	ImageKeys       []string
	Active          bool
	CreatedAt       time.Time
}
