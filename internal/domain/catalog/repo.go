package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"fieldstock/internal/domain/fault"
	"fieldstock/internal/infra/db"
)

type Repo struct{ q db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{q: q} }

const materialCols = `id, name, unit, category, ownership, default_min_stock, image_keys, active, created_at`

func scanMaterial(row pgx.Row) (*Material, error) {
	var m Material
	if err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Unit,
		&m.Category,
		&m.Ownership,
		&m.DefaultMinStock,
		&m.ImageKeys,
		&m.Active,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) Create(ctx context.Context, name string, unit Unit, category string, ownership Ownership, defaultMinStock float64, imageKeys []string) (*Material, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fault.Invalid("material name is empty")
	}
	if !ownership.Valid() {
		return nil, fault.Invalid("unsupported ownership %q", ownership)
	}
	if defaultMinStock < 0 {
		return nil, fault.Invalid("default min stock %v is negative", defaultMinStock)
	}
	if imageKeys == nil {
		imageKeys = []string{}
	}
	row := r.q.QueryRow(ctx, `
		INSERT INTO materials (name, unit, category, ownership, default_min_stock, image_keys, active)
		VALUES ($1,$2,$3,$4,$5,$6,TRUE)
		RETURNING `+materialCols+`
	`, name, string(unit), category, string(ownership), defaultMinStock, imageKeys)
	return scanMaterial(row)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Material, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+materialCols+` FROM materials WHERE id = $1
	`, id)
	m, err := scanMaterial(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("material %d", id)
	}
	return m, err
}

func (r *Repo) List(ctx context.Context, onlyActive bool) ([]Material, error) {
	q := `SELECT ` + materialCols + ` FROM materials`
	if onlyActive {
		q += ` WHERE active = TRUE`
	}
	q += ` ORDER BY category, name`

	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// SearchByName matches materials by name or category fragment, case-insensitive.
func (r *Repo) SearchByName(ctx context.Context, q string, onlyActive bool) ([]Material, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	like := "%" + strings.ToLower(q) + "%"

	base := `
		SELECT ` + materialCols + ` FROM materials
		WHERE (LOWER(name) LIKE $1 OR LOWER(category) LIKE $1)
	`
	if onlyActive {
		base += ` AND active = TRUE`
	}
	base += ` ORDER BY category, name`

	rows, err := r.q.Query(ctx, base, like)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Update changes descriptive fields only. Unit and ownership are part of the
// material's identity once movements reference it and stay immutable.
func (r *Repo) Update(ctx context.Context, id int64, name, category string, defaultMinStock float64, imageKeys []string) (*Material, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fault.Invalid("material name is empty")
	}
	if defaultMinStock < 0 {
		return nil, fault.Invalid("default min stock %v is negative", defaultMinStock)
	}
	if imageKeys == nil {
		imageKeys = []string{}
	}
	row := r.q.QueryRow(ctx, `
		UPDATE materials
		SET name=$2, category=$3, default_min_stock=$4, image_keys=$5
		WHERE id=$1
		RETURNING `+materialCols+`
	`, id, name, category, defaultMinStock, imageKeys)
	m, err := scanMaterial(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("material %d", id)
	}
	return m, err
}

// SetActive soft-deletes or restores a material. Deactivation is refused while
// any location still holds stock of it.
func (r *Repo) SetActive(ctx context.Context, id int64, active bool) (*Material, error) {
	if !active {
		var held float64
		if err := r.q.QueryRow(ctx, `
			SELECT COALESCE(SUM(qty), 0) FROM inventories WHERE material_id = $1
		`, id).Scan(&held); err != nil {
			return nil, err
		}
		if held > 0 {
			return nil, fault.Conflict("material %d still has %v units in stock", id, held)
		}
	}
	row := r.q.QueryRow(ctx, `
		UPDATE materials SET active=$2 WHERE id=$1
		RETURNING `+materialCols+`
	`, id, active)
	m, err := scanMaterial(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("material %d", id)
	}
	return m, err
}
