package crews

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldstock/internal/domain/fault"
	"fieldstock/internal/domain/locations"
	"fieldstock/internal/infra/db"
)

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

const crewCols = `c.id, c.name, c.leader_id, c.description, c.active, c.created_at, l.id`

const crewJoin = `
	FROM crews c
	JOIN locations l ON l.kind = 'crew' AND l.ref_id = c.id::text
`

func scanCrew(row pgx.Row) (*Crew, error) {
	var c Crew
	if err := row.Scan(&c.ID, &c.Name, &c.LeaderID, &c.Description, &c.Active, &c.CreatedAt, &c.LocationID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) GetCrew(ctx context.Context, id int64) (*Crew, error) {
	row := r.q.QueryRow(ctx, `SELECT `+crewCols+crewJoin+`WHERE c.id = $1`, id)
	c, err := scanCrew(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("crew %d", id)
	}
	return c, err
}

func (r *Repo) ListCrews(ctx context.Context, onlyActive bool) ([]Crew, error) {
	q := `SELECT ` + crewCols + crewJoin
	if onlyActive {
		q += `WHERE c.active = TRUE`
	}
	q += ` ORDER BY c.name`

	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Crew
	for rows.Next() {
		c, err := scanCrew(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *Repo) InsertCrew(ctx context.Context, name string, leaderID *string, description string) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO crews (name, leader_id, description, active)
		VALUES ($1,$2,$3,TRUE)
		RETURNING id
	`, name, leaderID, description).Scan(&id)
	return id, err
}

func (r *Repo) UpdateCrewRow(ctx context.Context, id int64, name string, leaderID *string, description string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE crews SET name=$2, leader_id=$3, description=$4 WHERE id=$1
	`, id, name, leaderID, description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("crew %d", id)
	}
	return nil
}

func (r *Repo) SetCrewActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.q.Exec(ctx, `UPDATE crews SET active=$2 WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("crew %d", id)
	}
	return nil
}

func (r *Repo) Members(ctx context.Context, crewID int64) ([]Member, error) {
	rows, err := r.q.Query(ctx, `
		SELECT crew_id, technician_id, role
		FROM crew_members
		WHERE crew_id = $1
		ORDER BY role DESC, technician_id
	`, crewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.CrewID, &m.TechnicianID, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) InsertMember(ctx context.Context, m Member) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO crew_members (crew_id, technician_id, role)
		VALUES ($1,$2,$3)
	`, m.CrewID, m.TechnicianID, m.Role)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fault.Conflict("technician %s is already in crew %d", m.TechnicianID, m.CrewID)
	}
	return err
}

func (r *Repo) DeleteMember(ctx context.Context, crewID int64, technicianID string) error {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM crew_members WHERE crew_id = $1 AND technician_id = $2
	`, crewID, technicianID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("technician %s in crew %d", technicianID, crewID)
	}
	return nil
}

func (r *Repo) ActiveCrewsByTechnicians(ctx context.Context, technicianIDs []string) (map[string]int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT cm.technician_id, cm.crew_id
		FROM crew_members cm
		JOIN crews c ON c.id = cm.crew_id
		WHERE c.active = TRUE AND cm.technician_id = ANY($1)
	`, technicianIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var tech string
		var crewID int64
		if err := rows.Scan(&tech, &crewID); err != nil {
			return nil, err
		}
		out[tech] = crewID
	}
	return out, rows.Err()
}

func (r *Repo) ActiveCrewOf(ctx context.Context, technicianID string) (*Crew, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+crewCols+crewJoin+`
		JOIN crew_members cm ON cm.crew_id = c.id
		WHERE c.active = TRUE AND cm.technician_id = $1
	`, technicianID)
	c, err := scanCrew(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("active crew for technician %s", technicianID)
	}
	return c, err
}

func (r *Repo) InsertCrewLocation(ctx context.Context, crewID int64, name string) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO locations (kind, ref_id, name, active)
		VALUES ($1, $2::text, $3, TRUE)
		RETURNING id
	`, string(locations.KindCrew), crewID, name).Scan(&id)
	return id, err
}

func (r *Repo) SetCrewLocationActive(ctx context.Context, crewID int64, active bool) error {
	_, err := r.q.Exec(ctx, `
		UPDATE locations SET active=$3 WHERE kind=$1 AND ref_id=$2::text
	`, string(locations.KindCrew), crewID, active)
	return err
}

func (r *Repo) RenameCrewLocation(ctx context.Context, crewID int64, name string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE locations SET name=$3 WHERE kind=$1 AND ref_id=$2::text
	`, string(locations.KindCrew), crewID, name)
	return err
}
