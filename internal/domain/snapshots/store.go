package snapshots

import "context"

type Store interface {
	Get(ctx context.Context, orderID string) (*Snapshot, error)
	GetMany(ctx context.Context, orderIDs []string) ([]Snapshot, error)
	// Insert persists the snapshot unless one already exists for the order id;
	// it reports whether the row was actually written.
	Insert(ctx context.Context, s *Snapshot) (bool, error)
}
