package reconfigure

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldstock/internal/domain/crews"
	"fieldstock/internal/domain/locations"
	"fieldstock/internal/domain/stock"
	"fieldstock/internal/infra/db"
)

// Repo composes the crew, stock and location repositories over one querier so
// the whole reconfiguration shares a single transaction.
type Repo struct {
	q    db.Querier
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{q: pool, pool: pool} }

func (r *Repo) WithinTx(ctx context.Context, fn func(Store) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repo{q: tx})
	})
}

func (r *Repo) Crews() crews.Store { return crews.NewTxRepo(r.q) }

func (r *Repo) Stock() stock.Store { return stock.NewTxRepo(r.q) }

func (r *Repo) Warehouse(ctx context.Context) (*locations.Location, error) {
	return locations.NewRepo(r.q).Warehouse(ctx)
}
