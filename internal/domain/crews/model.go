package crews

import "time"

const (
	RoleLeader = "leader"
	RoleMember = "member"
)

// Crew is a named group of technicians sharing a pooled stock location.
// LocationID points at the crew's location row; exactly one active crew
// location exists per active crew.
type Crew struct {
	ID          int64
	Name        string
	LeaderID    *string
	Description string
	Active      bool
	LocationID  int64
	CreatedAt   time.Time
}

type Member struct {
	CrewID       int64
	TechnicianID string
	Role         string
}
