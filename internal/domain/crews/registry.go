package crews

import (
	"context"
	"log/slog"
	"strings"

	"fieldstock/internal/domain/fault"
)

type CreateCrewParams struct {
	Name        string
	LeaderID    string // empty means no leader
	MemberIDs   []string
	Description string
	// ExcludeCrewIDs are crews whose active membership does not count as a
	// conflict. The reconfiguration engine passes the crews it is about to
	// disband.
	ExcludeCrewIDs []int64
}

// Registry enforces the membership rules: a technician is in at most one
// active crew, a crew never drops to zero members, and a crew's location
// changes state together with the crew.
type Registry struct {
	store Store
	log   *slog.Logger
}

func NewRegistry(store Store, log *slog.Logger) *Registry {
	return &Registry{store: store, log: log}
}

// Create runs the crew-creation logic against a transaction-scoped store.
// Exported so the reconfiguration engine can create crews inside its own
// transaction.
func Create(ctx context.Context, s Store, p CreateCrewParams) (*Crew, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fault.Invalid("crew name is empty")
	}

	// Leader first, then members, duplicates collapsed.
	var techs []string
	seen := map[string]bool{}
	if p.LeaderID != "" {
		techs = append(techs, p.LeaderID)
		seen[p.LeaderID] = true
	}
	for _, id := range p.MemberIDs {
		if id == "" {
			return nil, fault.Invalid("empty technician id in member list")
		}
		if !seen[id] {
			techs = append(techs, id)
			seen[id] = true
		}
	}
	if len(techs) == 0 {
		return nil, fault.Invalid("crew %q has no members", p.Name)
	}

	held, err := s.ActiveCrewsByTechnicians(ctx, techs)
	if err != nil {
		return nil, err
	}
	excluded := map[int64]bool{}
	for _, id := range p.ExcludeCrewIDs {
		excluded[id] = true
	}
	for _, tech := range techs {
		if crewID, ok := held[tech]; ok && !excluded[crewID] {
			return nil, fault.Conflict("technician %s already belongs to active crew %d", tech, crewID)
		}
	}

	var leaderID *string
	if p.LeaderID != "" {
		leaderID = &p.LeaderID
	}
	crewID, err := s.InsertCrew(ctx, p.Name, leaderID, p.Description)
	if err != nil {
		return nil, err
	}
	for _, tech := range techs {
		role := RoleMember
		if tech == p.LeaderID {
			role = RoleLeader
		}
		if err := s.InsertMember(ctx, Member{CrewID: crewID, TechnicianID: tech, Role: role}); err != nil {
			return nil, err
		}
	}
	locID, err := s.InsertCrewLocation(ctx, crewID, p.Name)
	if err != nil {
		return nil, err
	}

	return &Crew{
		ID:          crewID,
		Name:        p.Name,
		LeaderID:    leaderID,
		Description: p.Description,
		Active:      true,
		LocationID:  locID,
	}, nil
}

func (r *Registry) CreateCrew(ctx context.Context, p CreateCrewParams) (*Crew, error) {
	var created *Crew
	err := r.store.WithinTx(ctx, func(s Store) error {
		var err error
		created, err = Create(ctx, s, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("crew created", "crew_id", created.ID, "name", created.Name, "members", len(p.MemberIDs))
	return created, nil
}

func (r *Registry) AddMember(ctx context.Context, crewID int64, technicianID, role string) error {
	if technicianID == "" {
		return fault.Invalid("technician id is empty")
	}
	if role == "" {
		role = RoleMember
	}
	return r.store.WithinTx(ctx, func(s Store) error {
		crew, err := s.GetCrew(ctx, crewID)
		if err != nil {
			return err
		}
		if !crew.Active {
			return fault.Invalid("crew %d is inactive", crewID)
		}
		held, err := s.ActiveCrewsByTechnicians(ctx, []string{technicianID})
		if err != nil {
			return err
		}
		if heldCrew, ok := held[technicianID]; ok {
			if heldCrew == crewID {
				return fault.Conflict("technician %s is already in crew %d", technicianID, crewID)
			}
			return fault.Conflict("technician %s already belongs to active crew %d", technicianID, heldCrew)
		}
		return s.InsertMember(ctx, Member{CrewID: crewID, TechnicianID: technicianID, Role: role})
	})
}

func (r *Registry) RemoveMember(ctx context.Context, crewID int64, technicianID string) error {
	return r.store.WithinTx(ctx, func(s Store) error {
		crew, err := s.GetCrew(ctx, crewID)
		if err != nil {
			return err
		}
		members, err := s.Members(ctx, crewID)
		if err != nil {
			return err
		}
		found := false
		for _, m := range members {
			if m.TechnicianID == technicianID {
				found = true
				break
			}
		}
		if !found {
			return fault.NotFound("technician %s in crew %d", technicianID, crewID)
		}
		if len(members) == 1 {
			return fault.Invalid("cannot remove the last member of crew %d", crewID)
		}
		if err := s.DeleteMember(ctx, crewID, technicianID); err != nil {
			return err
		}
		// A removed leader leaves the crew leaderless.
		if crew.LeaderID != nil && *crew.LeaderID == technicianID {
			return s.UpdateCrewRow(ctx, crewID, crew.Name, nil, crew.Description)
		}
		return nil
	})
}

// DeactivateCrew is idempotent: re-invoking on an inactive crew still forces
// the crew's location inactive in case a prior run left it behind.
func (r *Registry) DeactivateCrew(ctx context.Context, crewID int64) error {
	return r.store.WithinTx(ctx, func(s Store) error {
		if _, err := s.GetCrew(ctx, crewID); err != nil {
			return err
		}
		if err := s.SetCrewActive(ctx, crewID, false); err != nil {
			return err
		}
		return s.SetCrewLocationActive(ctx, crewID, false)
	})
}

func (r *Registry) UpdateCrew(ctx context.Context, crewID int64, name, description string, leaderID *string) (*Crew, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fault.Invalid("crew name is empty")
	}
	var updated *Crew
	err := r.store.WithinTx(ctx, func(s Store) error {
		crew, err := s.GetCrew(ctx, crewID)
		if err != nil {
			return err
		}
		if leaderID != nil {
			members, err := s.Members(ctx, crewID)
			if err != nil {
				return err
			}
			isMember := false
			for _, m := range members {
				if m.TechnicianID == *leaderID {
					isMember = true
					break
				}
			}
			if !isMember {
				return fault.Invalid("leader %s is not a member of crew %d", *leaderID, crewID)
			}
		}
		if err := s.UpdateCrewRow(ctx, crewID, name, leaderID, description); err != nil {
			return err
		}
		if name != crew.Name {
			if err := s.RenameCrewLocation(ctx, crewID, name); err != nil {
				return err
			}
		}
		updated, err = s.GetCrew(ctx, crewID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Registry) List(ctx context.Context, onlyActive bool) ([]Crew, error) {
	return r.store.ListCrews(ctx, onlyActive)
}

func (r *Registry) Get(ctx context.Context, crewID int64) (*Crew, error) {
	return r.store.GetCrew(ctx, crewID)
}

func (r *Registry) MembersOf(ctx context.Context, crewID int64) ([]Member, error) {
	if _, err := r.store.GetCrew(ctx, crewID); err != nil {
		return nil, err
	}
	return r.store.Members(ctx, crewID)
}

func (r *Registry) ActiveCrewForTechnician(ctx context.Context, technicianID string) (*Crew, error) {
	return r.store.ActiveCrewOf(ctx, technicianID)
}

// ActiveCrewLocationID serves the stock ledger's pooled-material routing.
func (r *Registry) ActiveCrewLocationID(ctx context.Context, technicianID string) (int64, error) {
	crew, err := r.store.ActiveCrewOf(ctx, technicianID)
	if err != nil {
		return 0, err
	}
	return crew.LocationID, nil
}
