package locations

import "time"

// Kind tells what a location belongs to. The warehouse is a singleton with a
// null reference; technician and crew locations carry the external reference
// of their owner (opaque technician id, crew id).
type Kind string

const (
	KindWarehouse  Kind = "warehouse"
	KindTechnician Kind = "technician"
	KindCrew       Kind = "crew"
)

type Location struct {
	ID        int64
	Kind      Kind
	RefID     *string
	Name      string
	Active    bool
	CreatedAt time.Time
}
