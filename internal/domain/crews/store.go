package crews

import "context"

// Store is the persistence surface of the crew registry. Crew rows and their
// locations change together, so the location side of a crew lives here too.
type Store interface {
	WithinTx(ctx context.Context, fn func(Store) error) error

	GetCrew(ctx context.Context, id int64) (*Crew, error)
	ListCrews(ctx context.Context, onlyActive bool) ([]Crew, error)
	InsertCrew(ctx context.Context, name string, leaderID *string, description string) (int64, error)
	UpdateCrewRow(ctx context.Context, id int64, name string, leaderID *string, description string) error
	SetCrewActive(ctx context.Context, id int64, active bool) error

	Members(ctx context.Context, crewID int64) ([]Member, error)
	InsertMember(ctx context.Context, m Member) error
	DeleteMember(ctx context.Context, crewID int64, technicianID string) error

	// ActiveCrewsByTechnicians maps each technician to the active crew that
	// currently holds them. Always a fresh query, never cached.
	ActiveCrewsByTechnicians(ctx context.Context, technicianIDs []string) (map[string]int64, error)
	ActiveCrewOf(ctx context.Context, technicianID string) (*Crew, error)

	InsertCrewLocation(ctx context.Context, crewID int64, name string) (int64, error)
	SetCrewLocationActive(ctx context.Context, crewID int64, active bool) error
	RenameCrewLocation(ctx context.Context, crewID int64, name string) error
}
