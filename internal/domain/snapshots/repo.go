package snapshots

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"fieldstock/internal/domain/fault"
	"fieldstock/internal/infra/db"
)

type Repo struct{ q db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{q: q} }

const snapshotCols = `id, order_id, employee_id, crew_id, crew_name, member_ids, members, created_at`

func scanSnapshot(row pgx.Row) (*Snapshot, error) {
	var s Snapshot
	var members []byte
	if err := row.Scan(
		&s.ID,
		&s.OrderID,
		&s.EmployeeID,
		&s.CrewID,
		&s.CrewName,
		&s.MemberIDs,
		&members,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(members) > 0 {
		if err := json.Unmarshal(members, &s.Members); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func (r *Repo) Get(ctx context.Context, orderID string) (*Snapshot, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+snapshotCols+` FROM order_snapshots WHERE order_id = $1
	`, orderID)
	s, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("snapshot for order %s", orderID)
	}
	return s, err
}

func (r *Repo) GetMany(ctx context.Context, orderIDs []string) ([]Snapshot, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+snapshotCols+` FROM order_snapshots
		WHERE order_id = ANY($1)
		ORDER BY order_id
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *Repo) Insert(ctx context.Context, s *Snapshot) (bool, error) {
	members, err := json.Marshal(s.Members)
	if err != nil {
		return false, err
	}
	memberIDs := s.MemberIDs
	if memberIDs == nil {
		memberIDs = []string{}
	}
	tag, err := r.q.Exec(ctx, `
		INSERT INTO order_snapshots (order_id, employee_id, crew_id, crew_name, member_ids, members)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (order_id) DO NOTHING
	`, s.OrderID, s.EmployeeID, s.CrewID, s.CrewName, memberIDs, members)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
