package memory

import (
	"context"
	"sort"
	"time"

	"fieldstock/internal/domain/fault"
	"fieldstock/internal/domain/snapshots"
)

// SnapshotStore implements snapshots.Store.
type SnapshotStore struct{ db *DB }

func (d *DB) Snapshots() *SnapshotStore { return &SnapshotStore{db: d} }

func (s *SnapshotStore) Get(ctx context.Context, orderID string) (*snapshots.Snapshot, error) {
	var out *snapshots.Snapshot
	err := s.db.view(nil, func(st *state) error {
		snap, ok := st.snapshots[orderID]
		if !ok {
			return fault.NotFound("snapshot for order %s", orderID)
		}
		out = &snap
		return nil
	})
	return out, err
}

func (s *SnapshotStore) GetMany(ctx context.Context, orderIDs []string) ([]snapshots.Snapshot, error) {
	var out []snapshots.Snapshot
	err := s.db.view(nil, func(st *state) error {
		for _, id := range orderIDs {
			if snap, ok := st.snapshots[id]; ok {
				out = append(out, snap)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, err
}

func (s *SnapshotStore) Insert(ctx context.Context, snap *snapshots.Snapshot) (bool, error) {
	created := false
	err := s.db.view(nil, func(st *state) error {
		if _, exists := st.snapshots[snap.OrderID]; exists {
			return nil
		}
		st.snapshotSeq++
		row := *snap
		row.ID = st.snapshotSeq
		row.CreatedAt = time.Now()
		st.snapshots[snap.OrderID] = row
		created = true
		return nil
	})
	return created, err
}
