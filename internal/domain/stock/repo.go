package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldstock/internal/infra/db"
)

// Repo is the pgx-backed Store. Constructed from the pool it opens its own
// transactions; constructed from a Querier it is transaction-scoped and
// WithinTx reuses the enclosing transaction.
type Repo struct {
	q    db.Querier
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{q: pool, pool: pool} }

func NewTxRepo(q db.Querier) *Repo { return &Repo{q: q} }

func (r *Repo) WithinTx(ctx context.Context, fn func(Store) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repo{q: tx})
	})
}

func (r *Repo) QtyForUpdate(ctx context.Context, materialID, locationID int64) (float64, error) {
	var qty float64
	err := r.q.QueryRow(ctx, `
		SELECT qty FROM inventories
		WHERE material_id = $1 AND location_id = $2
		FOR UPDATE
	`, materialID, locationID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return qty, err
}

func (r *Repo) AddQty(ctx context.Context, materialID, locationID int64, delta float64, minStock *float64) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventories (material_id, location_id, qty, min_stock)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (material_id, location_id)
		DO UPDATE SET qty = inventories.qty + EXCLUDED.qty
	`, materialID, locationID, delta, minStock)
	return err
}

func (r *Repo) SetQty(ctx context.Context, materialID, locationID int64, qty float64) error {
	_, err := r.q.Exec(ctx, `
		UPDATE inventories SET qty = $3
		WHERE material_id = $1 AND location_id = $2
	`, materialID, locationID, qty)
	return err
}

func (r *Repo) InsertMovement(ctx context.Context, m *Movement) error {
	row := r.q.QueryRow(ctx, `
		INSERT INTO movements (material_id, from_location_id, to_location_id, qty, kind, order_id, technician_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at
	`, m.MaterialID, m.FromLocationID, m.ToLocationID, m.Qty, string(m.Kind), m.OrderID, m.TechnicianID)
	return row.Scan(&m.ID, &m.CreatedAt)
}

func (r *Repo) Holdings(ctx context.Context, locationID int64) ([]Inventory, error) {
	rows, err := r.q.Query(ctx, `
		SELECT material_id, location_id, qty, min_stock
		FROM inventories
		WHERE location_id = $1 AND qty > 0
		ORDER BY material_id
	`, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInventories(rows)
}

func (r *Repo) ListInventory(ctx context.Context, f InventoryFilter) ([]Inventory, error) {
	q := `SELECT material_id, location_id, qty, min_stock FROM inventories`
	var where []string
	var args []any
	if f.MaterialID != nil {
		args = append(args, *f.MaterialID)
		where = append(where, fmt.Sprintf("material_id = $%d", len(args)))
	}
	if f.LocationID != nil {
		args = append(args, *f.LocationID)
		where = append(where, fmt.Sprintf("location_id = $%d", len(args)))
	}
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}
	q += ` ORDER BY location_id, material_id`

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInventories(rows)
}

func (r *Repo) ListMovements(ctx context.Context, f MovementFilter) ([]Movement, error) {
	q := `
		SELECT id, material_id, from_location_id, to_location_id, qty, kind, order_id, technician_id, created_at
		FROM movements`
	var where []string
	var args []any
	if f.MaterialID != nil {
		args = append(args, *f.MaterialID)
		where = append(where, fmt.Sprintf("material_id = $%d", len(args)))
	}
	if f.LocationID != nil {
		args = append(args, *f.LocationID)
		where = append(where, fmt.Sprintf("(from_location_id = $%d OR to_location_id = $%d)", len(args), len(args)))
	}
	if f.Kind != nil {
		args = append(args, string(*f.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if f.OrderID != nil {
		args = append(args, *f.OrderID)
		where = append(where, fmt.Sprintf("order_id = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}
	q += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(
			&m.ID,
			&m.MaterialID,
			&m.FromLocationID,
			&m.ToLocationID,
			&m.Qty,
			&m.Kind,
			&m.OrderID,
			&m.TechnicianID,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) LocationStats(ctx context.Context) ([]LocationStats, error) {
	rows, err := r.q.Query(ctx, `
		SELECT i.location_id,
		       COUNT(*) FILTER (WHERE i.qty > 0),
		       COALESCE(SUM(i.qty), 0),
		       COALESCE((
		           SELECT COUNT(*) FROM movements m
		           WHERE m.from_location_id = i.location_id OR m.to_location_id = i.location_id
		       ), 0)
		FROM inventories i
		GROUP BY i.location_id
		ORDER BY i.location_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LocationStats
	for rows.Next() {
		var s LocationStats
		if err := rows.Scan(&s.LocationID, &s.DistinctMaterials, &s.TotalQty, &s.MovementCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) MovementCounts(ctx context.Context, from, to time.Time) (map[MovementKind]int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT kind, COUNT(*)
		FROM movements
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY kind
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[MovementKind]int64{}
	for rows.Next() {
		var kind MovementKind
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[kind] = n
	}
	return out, rows.Err()
}

func (r *Repo) LowStock(ctx context.Context) ([]Inventory, error) {
	rows, err := r.q.Query(ctx, `
		SELECT material_id, location_id, qty, min_stock
		FROM inventories
		WHERE min_stock IS NOT NULL AND qty <= min_stock
		ORDER BY material_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInventories(rows)
}

func collectInventories(rows pgx.Rows) ([]Inventory, error) {
	var out []Inventory
	for rows.Next() {
		var inv Inventory
		if err := rows.Scan(&inv.MaterialID, &inv.LocationID, &inv.Qty, &inv.MinStock); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
