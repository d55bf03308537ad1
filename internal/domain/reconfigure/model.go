package reconfigure

// CrewConfig describes one crew to be created by a reconfiguration.
type CrewConfig struct {
	Name        string
	LeaderID    string
	MemberIDs   []string
	Description string
}

// Resolution settles a contested leader: when several old crews share the
// conflicting leaders below, the new crew led by WinnerLeaderID takes the
// stock. Resolutions apply in input order, first match wins.
type Resolution struct {
	ConflictingLeaders []string
	WinnerLeaderID     string
}

// Input is one reconfiguration request: disband the old crews and route their
// stock to the new crews (or the warehouse).
type Input struct {
	OldCrewIDs    []int64
	NewCrews      []CrewConfig
	Resolutions   []Resolution
	DeactivateOld bool
}

// TargetKind says where a disbanded crew's stock goes.
type TargetKind string

const (
	TargetWarehouse TargetKind = "warehouse"
	TargetNewCrew   TargetKind = "new_crew"
)

// Target is the resolved destination for one old crew. CrewIndex points into
// Input.NewCrews and is meaningful only when Kind is TargetNewCrew.
type Target struct {
	Kind      TargetKind
	CrewIndex int
}

// Move is one planned (or executed) redistribution: the entire quantity of a
// material leaving an old crew's location.
type Move struct {
	MaterialID     int64
	FromCrewID     int64
	FromLocationID int64
	Qty            float64
	Target         Target
	// Destination is a display label: the new crew's name or "warehouse".
	Destination string
}

// Summary aggregates a plan for preview output.
type Summary struct {
	DistinctMaterials int
	TotalQty          float64
	CrewsAffected     int
}

// Plan is the outcome of resolution plus redistribution, real or simulated.
type Plan struct {
	Moves    []Move
	Summary  Summary
	Warnings []string
}

// Result is returned by Reconfigure after the transaction commits.
type Result struct {
	Plan
	NewCrewIDs         []int64
	DeactivatedCrewIDs []int64
}
