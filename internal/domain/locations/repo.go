package locations

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fieldstock/internal/domain/fault"
	"fieldstock/internal/infra/db"
)

type Repo struct{ q db.Querier }

func NewRepo(q db.Querier) *Repo { return &Repo{q: q} }

const locationCols = `id, kind, ref_id, name, active, created_at`

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func scanLocation(row pgx.Row) (*Location, error) {
	var l Location
	if err := row.Scan(&l.ID, &l.Kind, &l.RefID, &l.Name, &l.Active, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// EnsureWarehouse creates the single warehouse location. A second call is a
// Conflict; the schema enforces the singleton with a partial unique index.
func (r *Repo) EnsureWarehouse(ctx context.Context, name string) (*Location, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fault.Invalid("warehouse name is empty")
	}
	row := r.q.QueryRow(ctx, `
		INSERT INTO locations (kind, ref_id, name, active)
		VALUES ($1, NULL, $2, TRUE)
		RETURNING `+locationCols+`
	`, string(KindWarehouse), name)
	l, err := scanLocation(row)
	if isUniqueViolation(err) {
		return nil, fault.Conflict("warehouse already exists")
	}
	return l, err
}

func (r *Repo) CreateTechnician(ctx context.Context, technicianID, name string) (*Location, error) {
	if strings.TrimSpace(technicianID) == "" {
		return nil, fault.Invalid("technician id is empty")
	}
	row := r.q.QueryRow(ctx, `
		INSERT INTO locations (kind, ref_id, name, active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING `+locationCols+`
	`, string(KindTechnician), technicianID, name)
	l, err := scanLocation(row)
	if isUniqueViolation(err) {
		return nil, fault.Conflict("technician %s already has a location", technicianID)
	}
	return l, err
}

// CreateCrewLocation is called by the crew registry inside the crew-creating
// transaction; a crew location never exists without its crew.
func (r *Repo) CreateCrewLocation(ctx context.Context, crewRef, name string) (*Location, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO locations (kind, ref_id, name, active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING `+locationCols+`
	`, string(KindCrew), crewRef, name)
	l, err := scanLocation(row)
	if isUniqueViolation(err) {
		return nil, fault.Conflict("crew %s already has a location", crewRef)
	}
	return l, err
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Location, error) {
	row := r.q.QueryRow(ctx, `SELECT `+locationCols+` FROM locations WHERE id = $1`, id)
	l, err := scanLocation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("location %d", id)
	}
	return l, err
}

func (r *Repo) Warehouse(ctx context.Context) (*Location, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+locationCols+` FROM locations WHERE kind = $1
	`, string(KindWarehouse))
	l, err := scanLocation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("warehouse location")
	}
	return l, err
}

func (r *Repo) ByKindRef(ctx context.Context, kind Kind, refID string) (*Location, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+locationCols+` FROM locations WHERE kind = $1 AND ref_id = $2
	`, string(kind), refID)
	l, err := scanLocation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("%s location for %s", kind, refID)
	}
	return l, err
}

func (r *Repo) List(ctx context.Context, kind *Kind, onlyActive bool) ([]Location, error) {
	q := `SELECT ` + locationCols + ` FROM locations`
	var args []any
	var where []string
	if kind != nil {
		args = append(args, string(*kind))
		where = append(where, `kind = $1`)
	}
	if onlyActive {
		where = append(where, `active = TRUE`)
	}
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}
	q += ` ORDER BY kind, name`

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *Repo) SetActive(ctx context.Context, id int64, active bool) (*Location, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE locations SET active=$2 WHERE id=$1
		RETURNING `+locationCols+`
	`, id, active)
	l, err := scanLocation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("location %d", id)
	}
	return l, err
}

// Delete removes a location that holds no stock, dropping its zero-quantity
// inventory rows with it. A location with remaining stock is a Conflict.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	var held float64
	if err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(qty), 0) FROM inventories WHERE location_id = $1
	`, id).Scan(&held); err != nil {
		return err
	}
	if held > 0 {
		return fault.Conflict("location %d still holds %v units", id, held)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM inventories WHERE location_id = $1`, id); err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("location %d", id)
	}
	return nil
}
