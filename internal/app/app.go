// Package app is the composition root: it wires the domain services over one
// connection pool for the surrounding transport layer to consume.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"fieldstock/internal/config"
	"fieldstock/internal/domain/catalog"
	"fieldstock/internal/domain/crews"
	"fieldstock/internal/domain/fault"
	"fieldstock/internal/domain/locations"
	"fieldstock/internal/domain/reconfigure"
	"fieldstock/internal/domain/snapshots"
	"fieldstock/internal/domain/stock"
)

type App struct {
	Catalog     *catalog.Repo
	Locations   *locations.Repo
	Crews       *crews.Registry
	Snapshots   *snapshots.Service
	Ledger      *stock.Ledger
	Reconfigure *reconfigure.Engine

	log *slog.Logger
}

func New(pool *pgxpool.Pool, cfg config.Config, log *slog.Logger) *App {
	materials := catalog.NewRepo(pool)
	locs := locations.NewRepo(pool)
	registry := crews.NewRegistry(crews.NewRepo(pool), log)
	snapSvc := snapshots.NewService(snapshots.NewRepo(pool), registry, log)
	ledger := stock.NewLedger(stock.NewRepo(pool), materials, locs, registry, snapSvc, log)
	engine := reconfigure.NewEngine(reconfigure.NewRepo(pool), cfg.Reconfigure.DestinationWarnShare, log)

	return &App{
		Catalog:     materials,
		Locations:   locs,
		Crews:       registry,
		Snapshots:   snapSvc,
		Ledger:      ledger,
		Reconfigure: engine,
		log:         log,
	}
}

// Bootstrap makes sure the single warehouse location exists and reports
// warehouse rows already at or under their minimum stock.
func (a *App) Bootstrap(ctx context.Context, warehouseName string) error {
	wh, err := a.Locations.EnsureWarehouse(ctx, warehouseName)
	if errors.Is(err, fault.ErrConflict) {
		wh, err = a.Locations.Warehouse(ctx)
	}
	if err != nil {
		return err
	}
	a.log.Info("warehouse ready", "location_id", wh.ID, "name", wh.Name)

	low, err := a.Ledger.LowStock(ctx)
	if err != nil {
		return err
	}
	for _, inv := range low {
		a.log.Warn("low stock", "material_id", inv.MaterialID, "qty", inv.Qty, "min_stock", *inv.MinStock)
	}
	return nil
}
