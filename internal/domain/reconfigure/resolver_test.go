package reconfigure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldstock/internal/domain/crews"
	"fieldstock/internal/domain/fault"
	"fieldstock/internal/domain/stock"
)

func crewWithLeader(id int64, leaderID string) *crews.Crew {
	c := &crews.Crew{ID: id, Name: "old", Active: true, LocationID: id * 100}
	if leaderID != "" {
		c.LeaderID = &leaderID
	}
	return c
}

func TestResolveTargetLeaderlessGoesToWarehouse(t *testing.T) {
	target, warnings, err := resolveTarget(crewWithLeader(1, ""), Input{
		NewCrews: []CrewConfig{{Name: "N1", LeaderID: "T-1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, TargetWarehouse, target.Kind)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "no leader")
}

func TestResolveTargetResolutionListWinsOverConfigScan(t *testing.T) {
	in := Input{
		NewCrews: []CrewConfig{
			{Name: "N1", LeaderID: "T-1"}, // config scan would pick this
			{Name: "N2", LeaderID: "T-2"},
		},
		Resolutions: []Resolution{
			{ConflictingLeaders: []string{"T-1"}, WinnerLeaderID: "T-2"},
		},
	}
	target, warnings, err := resolveTarget(crewWithLeader(1, "T-1"), in)
	require.NoError(t, err)
	assert.Equal(t, TargetNewCrew, target.Kind)
	assert.Equal(t, 1, target.CrewIndex)
	assert.Empty(t, warnings)
}

func TestResolveTargetFirstResolutionWins(t *testing.T) {
	in := Input{
		NewCrews: []CrewConfig{
			{Name: "N1", LeaderID: "T-2"},
			{Name: "N2", LeaderID: "T-3"},
		},
		Resolutions: []Resolution{
			{ConflictingLeaders: []string{"T-1"}, WinnerLeaderID: "T-2"},
			{ConflictingLeaders: []string{"T-1"}, WinnerLeaderID: "T-3"},
		},
	}
	target, _, err := resolveTarget(crewWithLeader(1, "T-1"), in)
	require.NoError(t, err)
	assert.Equal(t, 0, target.CrewIndex)
}

func TestResolveTargetUnknownWinnerFails(t *testing.T) {
	in := Input{
		NewCrews: []CrewConfig{{Name: "N1", LeaderID: "T-1"}},
		Resolutions: []Resolution{
			{ConflictingLeaders: []string{"T-1"}, WinnerLeaderID: "T-99"},
		},
	}
	_, _, err := resolveTarget(crewWithLeader(1, "T-1"), in)
	require.ErrorIs(t, err, fault.ErrInvalid)
}

func TestResolveTargetConfigScanMatchesLeaderOrMember(t *testing.T) {
	in := Input{
		NewCrews: []CrewConfig{
			{Name: "N1", LeaderID: "T-9"},
			{Name: "N2", LeaderID: "T-8", MemberIDs: []string{"T-1"}},
		},
	}
	// The old leader appears only as a member of the second config.
	target, warnings, err := resolveTarget(crewWithLeader(1, "T-1"), in)
	require.NoError(t, err)
	assert.Equal(t, TargetNewCrew, target.Kind)
	assert.Equal(t, 1, target.CrewIndex)
	assert.Empty(t, warnings)
}

func TestResolveTargetFallsBackToWarehouseWithWarning(t *testing.T) {
	in := Input{
		NewCrews: []CrewConfig{{Name: "N1", LeaderID: "T-9"}},
	}
	target, warnings, err := resolveTarget(crewWithLeader(1, "T-1"), in)
	require.NoError(t, err)
	assert.Equal(t, TargetWarehouse, target.Kind)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "could not determine destination")
}

func TestBuildPlanAggregatesAndWarnsOnSkew(t *testing.T) {
	in := Input{NewCrews: []CrewConfig{{Name: "N1", LeaderID: "T-1"}}}
	states := []oldCrewState{
		{
			crew:   crewWithLeader(1, "T-1"),
			target: Target{Kind: TargetNewCrew, CrewIndex: 0},
			holdings: []stock.Inventory{
				{MaterialID: 10, LocationID: 100, Qty: 90},
				{MaterialID: 11, LocationID: 100, Qty: 5},
			},
		},
		{
			crew:     crewWithLeader(2, ""),
			target:   Target{Kind: TargetWarehouse},
			holdings: []stock.Inventory{{MaterialID: 10, LocationID: 200, Qty: 5}},
		},
	}

	plan := buildPlan(states, in, 0.8)

	assert.Len(t, plan.Moves, 3)
	assert.Equal(t, 2, plan.Summary.DistinctMaterials)
	assert.Equal(t, 100.0, plan.Summary.TotalQty)
	assert.Equal(t, 2, plan.Summary.CrewsAffected)

	// N1 takes 95% of the total, above the 80% threshold.
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], `"N1"`)
}

func TestBuildPlanSkipsEmptyHoldings(t *testing.T) {
	in := Input{NewCrews: []CrewConfig{{Name: "N1", LeaderID: "T-1"}}}
	states := []oldCrewState{
		{
			crew:     crewWithLeader(1, "T-1"),
			target:   Target{Kind: TargetNewCrew, CrewIndex: 0},
			holdings: []stock.Inventory{{MaterialID: 10, LocationID: 100, Qty: 0}},
		},
	}

	plan := buildPlan(states, in, 0.8)
	assert.Empty(t, plan.Moves)
	assert.Zero(t, plan.Summary.TotalQty)
}
