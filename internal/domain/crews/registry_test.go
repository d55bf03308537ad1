package crews_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldstock/internal/domain/crews"
	"fieldstock/internal/domain/fault"
	"fieldstock/internal/storage/memory"
)

func newRegistry(t *testing.T) (*memory.DB, *crews.Registry) {
	t.Helper()
	db := memory.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return db, crews.NewRegistry(db.Crews(), log)
}

func TestCreateCrewMakesLocationAndLeaderMember(t *testing.T) {
	db, reg := newRegistry(t)
	ctx := context.Background()

	crew, err := reg.CreateCrew(ctx, crews.CreateCrewParams{
		Name:      "Alpha",
		LeaderID:  "T-1",
		MemberIDs: []string{"T-2", "T-3"},
	})
	require.NoError(t, err)
	assert.True(t, crew.Active)
	assert.NotZero(t, crew.LocationID)

	loc, err := db.Locations().GetByID(ctx, crew.LocationID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", loc.Name)
	assert.True(t, loc.Active)

	members, err := reg.MembersOf(ctx, crew.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)

	roles := map[string]string{}
	for _, m := range members {
		roles[m.TechnicianID] = m.Role
	}
	assert.Equal(t, crews.RoleLeader, roles["T-1"])
	assert.Equal(t, crews.RoleMember, roles["T-2"])
}

func TestCreateCrewRejectsTechnicianInAnotherActiveCrew(t *testing.T) {
	_, reg := newRegistry(t)
	ctx := context.Background()

	_, err := reg.CreateCrew(ctx, crews.CreateCrewParams{Name: "Alpha", LeaderID: "T-1"})
	require.NoError(t, err)

	_, err = reg.CreateCrew(ctx, crews.CreateCrewParams{Name: "Beta", LeaderID: "T-9", MemberIDs: []string{"T-1"}})
	require.ErrorIs(t, err, fault.ErrConflict)
}

func TestCreateCrewAllowsTechnicianFromDeactivatedCrew(t *testing.T) {
	_, reg := newRegistry(t)
	ctx := context.Background()

	old, err := reg.CreateCrew(ctx, crews.CreateCrewParams{Name: "Alpha", LeaderID: "T-1"})
	require.NoError(t, err)
	require.NoError(t, reg.DeactivateCrew(ctx, old.ID))

	_, err = reg.CreateCrew(ctx, crews.CreateCrewParams{Name: "Beta", LeaderID: "T-1"})
	require.NoError(t, err)
}

func TestRemoveLastMemberIsRejected(t *testing.T) {
	_, reg := newRegistry(t)
	ctx := context.Background()

	crew, err := reg.CreateCrew(ctx, crews.CreateCrewParams{Name: "Solo", LeaderID: "T-1"})
	require.NoError(t, err)

	err = reg.RemoveMember(ctx, crew.ID, "T-1")
	require.ErrorIs(t, err, fault.ErrInvalid)

	// Crew and membership are untouched.
	members, err := reg.MembersOf(ctx, crew.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	got, err := reg.Get(ctx, crew.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
}

func TestRemoveLeaderClearsLeaderField(t *testing.T) {
	_, reg := newRegistry(t)
	ctx := context.Background()

	crew, err := reg.CreateCrew(ctx, crews.CreateCrewParams{Name: "Alpha", LeaderID: "T-1", MemberIDs: []string{"T-2"}})
	require.NoError(t, err)

	require.NoError(t, reg.RemoveMember(ctx, crew.ID, "T-1"))

	got, err := reg.Get(ctx, crew.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LeaderID)
}

func TestAddMemberRejectsDuplicatesAndInactiveCrew(t *testing.T) {
	_, reg := newRegistry(t)
	ctx := context.Background()

	crew, err := reg.CreateCrew(ctx, crews.CreateCrewParams{Name: "Alpha", LeaderID: "T-1"})
	require.NoError(t, err)

	err = reg.AddMember(ctx, crew.ID, "T-1", crews.RoleMember)
	require.ErrorIs(t, err, fault.ErrConflict)

	require.NoError(t, reg.DeactivateCrew(ctx, crew.ID))
	err = reg.AddMember(ctx, crew.ID, "T-2", crews.RoleMember)
	require.ErrorIs(t, err, fault.ErrInvalid)
}

func TestDeactivateCrewIsIdempotentAndDisablesLocation(t *testing.T) {
	db, reg := newRegistry(t)
	ctx := context.Background()

	crew, err := reg.CreateCrew(ctx, crews.CreateCrewParams{Name: "Alpha", LeaderID: "T-1"})
	require.NoError(t, err)

	require.NoError(t, reg.DeactivateCrew(ctx, crew.ID))
	require.NoError(t, reg.DeactivateCrew(ctx, crew.ID))

	got, err := reg.Get(ctx, crew.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	loc, err := db.Locations().GetByID(ctx, crew.LocationID)
	require.NoError(t, err)
	assert.False(t, loc.Active)
}

func TestUpdateCrewRenamesLocationAndChecksLeader(t *testing.T) {
	db, reg := newRegistry(t)
	ctx := context.Background()

	crew, err := reg.CreateCrew(ctx, crews.CreateCrewParams{Name: "Alpha", LeaderID: "T-1", MemberIDs: []string{"T-2"}})
	require.NoError(t, err)

	outsider := "T-9"
	_, err = reg.UpdateCrew(ctx, crew.ID, "Alpha", "", &outsider)
	require.ErrorIs(t, err, fault.ErrInvalid)

	newLeader := "T-2"
	updated, err := reg.UpdateCrew(ctx, crew.ID, "Bravo", "night shift", &newLeader)
	require.NoError(t, err)
	require.NotNil(t, updated.LeaderID)
	assert.Equal(t, "T-2", *updated.LeaderID)

	loc, err := db.Locations().GetByID(ctx, crew.LocationID)
	require.NoError(t, err)
	assert.Equal(t, "Bravo", loc.Name)
}

func TestActiveCrewForTechnicianIsFreshPerCall(t *testing.T) {
	_, reg := newRegistry(t)
	ctx := context.Background()

	crew, err := reg.CreateCrew(ctx, crews.CreateCrewParams{Name: "Alpha", LeaderID: "T-1"})
	require.NoError(t, err)

	got, err := reg.ActiveCrewForTechnician(ctx, "T-1")
	require.NoError(t, err)
	assert.Equal(t, crew.ID, got.ID)

	require.NoError(t, reg.DeactivateCrew(ctx, crew.ID))

	_, err = reg.ActiveCrewForTechnician(ctx, "T-1")
	require.ErrorIs(t, err, fault.ErrNotFound)
}
