package reconfigure_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldstock/internal/domain/catalog"
	"fieldstock/internal/domain/crews"
	"fieldstock/internal/domain/fault"
	"fieldstock/internal/domain/locations"
	"fieldstock/internal/domain/reconfigure"
	"fieldstock/internal/domain/stock"
	"fieldstock/internal/storage/memory"
)

type fixture struct {
	db     *memory.DB
	engine *reconfigure.Engine
	crews  *crews.Registry

	warehouse locations.Location
	material  catalog.Material
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		db:        db,
		engine:    reconfigure.NewEngine(db.Reconfigure(), 0.8, log),
		crews:     crews.NewRegistry(db.Crews(), log),
		warehouse: db.SeedWarehouse("Main warehouse"),
		material:  db.SeedMaterial(catalog.Material{Name: "Cable", Unit: catalog.UnitMeter, Ownership: catalog.OwnershipPooled}),
	}
}

func (f *fixture) stockCrew(t *testing.T, crew *crews.Crew, qty float64) {
	t.Helper()
	require.NoError(t, f.db.Stock().AddQty(context.Background(), f.material.ID, crew.LocationID, qty, nil))
}

func (f *fixture) qtyAt(t *testing.T, locationID int64) float64 {
	t.Helper()
	invs, err := f.db.Stock().ListInventory(context.Background(), stock.InventoryFilter{
		MaterialID: &f.material.ID,
		LocationID: &locationID,
	})
	require.NoError(t, err)
	if len(invs) == 0 {
		return 0
	}
	return invs[0].Qty
}

func TestReconfigureMovesStockToLeaderNewCrew(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.crews.CreateCrew(ctx, crews.CreateCrewParams{Name: "C1", LeaderID: "T", MemberIDs: []string{"X"}})
	require.NoError(t, err)
	f.stockCrew(t, old, 50)

	res, err := f.engine.Reconfigure(ctx, reconfigure.Input{
		OldCrewIDs: []int64{old.ID},
		NewCrews: []reconfigure.CrewConfig{
			{Name: "N1", LeaderID: "T", MemberIDs: []string{"Y"}},
			{Name: "N2", LeaderID: "Z", MemberIDs: []string{"X"}},
		},
		DeactivateOld: true,
	})
	require.NoError(t, err)
	require.Len(t, res.NewCrewIDs, 2)

	// All 50 units followed the old leader into N1.
	n1, err := f.crews.Get(ctx, res.NewCrewIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 50.0, f.qtyAt(t, n1.LocationID))
	assert.Equal(t, 0.0, f.qtyAt(t, old.LocationID))

	// The old crew and its location are inactive.
	gotOld, err := f.crews.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.False(t, gotOld.Active)
	loc, err := f.db.Locations().GetByID(ctx, old.LocationID)
	require.NoError(t, err)
	assert.False(t, loc.Active)

	// One TRANSFER movement per moved material.
	kind := stock.MoveTransfer
	moves, err := f.db.Stock().ListMovements(ctx, stock.MovementFilter{Kind: &kind})
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, 50.0, moves[0].Qty)

	assert.Equal(t, 1, res.Summary.DistinctMaterials)
	assert.Equal(t, 50.0, res.Summary.TotalQty)
}

func TestPreviewLeaderlessCrewReportsWarehouseWithoutWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.crews.CreateCrew(ctx, crews.CreateCrewParams{Name: "C1", LeaderID: "T", MemberIDs: []string{"X"}})
	require.NoError(t, err)
	require.NoError(t, f.crews.RemoveMember(ctx, old.ID, "T"))
	f.stockCrew(t, old, 20)

	plan, err := f.engine.Preview(ctx, reconfigure.Input{
		OldCrewIDs: []int64{old.ID},
		NewCrews:   []reconfigure.CrewConfig{{Name: "N1", LeaderID: "Z"}},
	})
	require.NoError(t, err)

	require.Len(t, plan.Moves, 1)
	assert.Equal(t, "warehouse", plan.Moves[0].Destination)
	assert.Equal(t, 20.0, plan.Moves[0].Qty)
	require.NotEmpty(t, plan.Warnings)
	assert.Contains(t, plan.Warnings[0], "no leader")

	// Nothing was persisted.
	assert.Equal(t, 20.0, f.qtyAt(t, old.LocationID))
	assert.Equal(t, 0.0, f.qtyAt(t, f.warehouse.ID))
	all, err := f.crews.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestReconfigurePerformsWarehouseFallbackTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.crews.CreateCrew(ctx, crews.CreateCrewParams{Name: "C1", LeaderID: "T", MemberIDs: []string{"X"}})
	require.NoError(t, err)
	require.NoError(t, f.crews.RemoveMember(ctx, old.ID, "T"))
	f.stockCrew(t, old, 20)

	res, err := f.engine.Reconfigure(ctx, reconfigure.Input{
		OldCrewIDs:    []int64{old.ID},
		NewCrews:      []reconfigure.CrewConfig{{Name: "N1", LeaderID: "Z"}},
		DeactivateOld: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 20.0, f.qtyAt(t, f.warehouse.ID))
	assert.Equal(t, 0.0, f.qtyAt(t, old.LocationID))
	require.NotEmpty(t, res.Warnings)
}

func TestReconfigureAppliesResolutionList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c1, err := f.crews.CreateCrew(ctx, crews.CreateCrewParams{Name: "C1", LeaderID: "T1"})
	require.NoError(t, err)
	c2, err := f.crews.CreateCrew(ctx, crews.CreateCrewParams{Name: "C2", LeaderID: "T2"})
	require.NoError(t, err)
	f.stockCrew(t, c1, 10)
	f.stockCrew(t, c2, 30)

	res, err := f.engine.Reconfigure(ctx, reconfigure.Input{
		OldCrewIDs: []int64{c1.ID, c2.ID},
		NewCrews: []reconfigure.CrewConfig{
			{Name: "N1", LeaderID: "T1", MemberIDs: []string{"T2"}},
		},
		Resolutions: []reconfigure.Resolution{
			{ConflictingLeaders: []string{"T1", "T2"}, WinnerLeaderID: "T1"},
		},
		DeactivateOld: true,
	})
	require.NoError(t, err)

	n1, err := f.crews.Get(ctx, res.NewCrewIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 40.0, f.qtyAt(t, n1.LocationID))
}

func TestReconfigureUnknownWinnerAbortsEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.crews.CreateCrew(ctx, crews.CreateCrewParams{Name: "C1", LeaderID: "T"})
	require.NoError(t, err)
	f.stockCrew(t, old, 10)

	_, err = f.engine.Reconfigure(ctx, reconfigure.Input{
		OldCrewIDs: []int64{old.ID},
		NewCrews:   []reconfigure.CrewConfig{{Name: "N1", LeaderID: "Z"}},
		Resolutions: []reconfigure.Resolution{
			{ConflictingLeaders: []string{"T"}, WinnerLeaderID: "NOBODY"},
		},
		DeactivateOld: true,
	})
	require.ErrorIs(t, err, fault.ErrInvalid)

	// Nothing persisted: stock untouched, no new crews, old crew still active.
	assert.Equal(t, 10.0, f.qtyAt(t, old.LocationID))
	all, err := f.crews.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	gotOld, err := f.crews.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.True(t, gotOld.Active)
}

func TestReconfigureMissingOldCrewAborts(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Reconfigure(context.Background(), reconfigure.Input{
		OldCrewIDs: []int64{999},
		NewCrews:   []reconfigure.CrewConfig{{Name: "N1", LeaderID: "Z"}},
	})
	require.ErrorIs(t, err, fault.ErrNotFound)
}

func TestReconfigureConflictOutsideSetAborts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.crews.CreateCrew(ctx, crews.CreateCrewParams{Name: "C1", LeaderID: "T"})
	require.NoError(t, err)
	_, err = f.crews.CreateCrew(ctx, crews.CreateCrewParams{Name: "Bystander", LeaderID: "B"})
	require.NoError(t, err)
	f.stockCrew(t, old, 10)

	// B belongs to a crew that is not being disbanded.
	_, err = f.engine.Reconfigure(ctx, reconfigure.Input{
		OldCrewIDs:    []int64{old.ID},
		NewCrews:      []reconfigure.CrewConfig{{Name: "N1", LeaderID: "T", MemberIDs: []string{"B"}}},
		DeactivateOld: true,
	})
	require.ErrorIs(t, err, fault.ErrConflict)

	assert.Equal(t, 10.0, f.qtyAt(t, old.LocationID))
	gotOld, err := f.crews.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.True(t, gotOld.Active)
}
