package snapshots

import "time"

// MemberDetail is the frozen membership record of one technician at capture
// time, kept denormalized so historical reads never join mutable crew tables.
type MemberDetail struct {
	TechnicianID string `json:"technician_id"`
	Role         string `json:"role"`
}

// Snapshot is write-once per order id. Crew fields are null when the employee
// had no active crew at capture time; the row still exists so later calls
// short-circuit without re-querying the registry.
type Snapshot struct {
	ID         int64
	OrderID    string
	EmployeeID string
	CrewID     *int64
	CrewName   *string
	MemberIDs  []string
	Members    []MemberDetail
	CreatedAt  time.Time
}
