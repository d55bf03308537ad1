package memory

import (
	"context"
	"sort"
	"strconv"
	"time"

	"fieldstock/internal/domain/crews"
	"fieldstock/internal/domain/fault"
	"fieldstock/internal/domain/locations"
)

// CrewStore implements crews.Store.
type CrewStore struct {
	db *DB
	st *state
}

func (d *DB) Crews() *CrewStore { return &CrewStore{db: d} }

func (c *CrewStore) WithinTx(ctx context.Context, fn func(crews.Store) error) error {
	if c.st != nil {
		return fn(c)
	}
	return c.db.tx(func(st *state) error {
		return fn(&CrewStore{db: c.db, st: st})
	})
}

func (c *CrewStore) GetCrew(ctx context.Context, id int64) (*crews.Crew, error) {
	var out *crews.Crew
	err := c.db.view(c.st, func(st *state) error {
		crew, err := st.crewWithLocation(id)
		if err != nil {
			return err
		}
		out = crew
		return nil
	})
	return out, err
}

func (c *CrewStore) ListCrews(ctx context.Context, onlyActive bool) ([]crews.Crew, error) {
	var out []crews.Crew
	err := c.db.view(c.st, func(st *state) error {
		for id, crew := range st.crews {
			if onlyActive && !crew.Active {
				continue
			}
			full, err := st.crewWithLocation(id)
			if err != nil {
				return err
			}
			out = append(out, *full)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (c *CrewStore) InsertCrew(ctx context.Context, name string, leaderID *string, description string) (int64, error) {
	var id int64
	err := c.db.view(c.st, func(st *state) error {
		st.crewSeq++
		id = st.crewSeq
		st.crews[id] = crews.Crew{
			ID:          id,
			Name:        name,
			LeaderID:    leaderID,
			Description: description,
			Active:      true,
			CreatedAt:   time.Now(),
		}
		return nil
	})
	return id, err
}

func (c *CrewStore) UpdateCrewRow(ctx context.Context, id int64, name string, leaderID *string, description string) error {
	return c.db.view(c.st, func(st *state) error {
		crew, ok := st.crews[id]
		if !ok {
			return fault.NotFound("crew %d", id)
		}
		crew.Name = name
		crew.LeaderID = leaderID
		crew.Description = description
		st.crews[id] = crew
		return nil
	})
}

func (c *CrewStore) SetCrewActive(ctx context.Context, id int64, active bool) error {
	return c.db.view(c.st, func(st *state) error {
		crew, ok := st.crews[id]
		if !ok {
			return fault.NotFound("crew %d", id)
		}
		crew.Active = active
		st.crews[id] = crew
		return nil
	})
}

func (c *CrewStore) Members(ctx context.Context, crewID int64) ([]crews.Member, error) {
	var out []crews.Member
	err := c.db.view(c.st, func(st *state) error {
		for _, m := range st.members {
			if m.CrewID == crewID {
				out = append(out, m)
			}
		}
		return nil
	})
	return out, err
}

func (c *CrewStore) InsertMember(ctx context.Context, m crews.Member) error {
	return c.db.view(c.st, func(st *state) error {
		for _, existing := range st.members {
			if existing.CrewID == m.CrewID && existing.TechnicianID == m.TechnicianID {
				return fault.Conflict("technician %s is already in crew %d", m.TechnicianID, m.CrewID)
			}
		}
		st.members = append(st.members, m)
		return nil
	})
}

func (c *CrewStore) DeleteMember(ctx context.Context, crewID int64, technicianID string) error {
	return c.db.view(c.st, func(st *state) error {
		for i, m := range st.members {
			if m.CrewID == crewID && m.TechnicianID == technicianID {
				st.members = append(st.members[:i:i], st.members[i+1:]...)
				return nil
			}
		}
		return fault.NotFound("technician %s in crew %d", technicianID, crewID)
	})
}

func (c *CrewStore) ActiveCrewsByTechnicians(ctx context.Context, technicianIDs []string) (map[string]int64, error) {
	out := map[string]int64{}
	err := c.db.view(c.st, func(st *state) error {
		wanted := map[string]bool{}
		for _, id := range technicianIDs {
			wanted[id] = true
		}
		for _, m := range st.members {
			if !wanted[m.TechnicianID] {
				continue
			}
			if crew, ok := st.crews[m.CrewID]; ok && crew.Active {
				out[m.TechnicianID] = m.CrewID
			}
		}
		return nil
	})
	return out, err
}

func (c *CrewStore) ActiveCrewOf(ctx context.Context, technicianID string) (*crews.Crew, error) {
	var out *crews.Crew
	err := c.db.view(c.st, func(st *state) error {
		for _, m := range st.members {
			if m.TechnicianID != technicianID {
				continue
			}
			crew, ok := st.crews[m.CrewID]
			if !ok || !crew.Active {
				continue
			}
			full, err := st.crewWithLocation(m.CrewID)
			if err != nil {
				return err
			}
			out = full
			return nil
		}
		return fault.NotFound("active crew for technician %s", technicianID)
	})
	return out, err
}

func (c *CrewStore) InsertCrewLocation(ctx context.Context, crewID int64, name string) (int64, error) {
	var id int64
	err := c.db.view(c.st, func(st *state) error {
		ref := strconv.FormatInt(crewID, 10)
		st.locationSeq++
		id = st.locationSeq
		st.locations[id] = locations.Location{
			ID:        id,
			Kind:      locations.KindCrew,
			RefID:     &ref,
			Name:      name,
			Active:    true,
			CreatedAt: time.Now(),
		}
		return nil
	})
	return id, err
}

func (c *CrewStore) SetCrewLocationActive(ctx context.Context, crewID int64, active bool) error {
	return c.updateCrewLocation(crewID, func(l *locations.Location) { l.Active = active })
}

func (c *CrewStore) RenameCrewLocation(ctx context.Context, crewID int64, name string) error {
	return c.updateCrewLocation(crewID, func(l *locations.Location) { l.Name = name })
}

func (c *CrewStore) updateCrewLocation(crewID int64, mutate func(*locations.Location)) error {
	return c.db.view(c.st, func(st *state) error {
		ref := strconv.FormatInt(crewID, 10)
		for id, l := range st.locations {
			if l.Kind == locations.KindCrew && l.RefID != nil && *l.RefID == ref {
				mutate(&l)
				st.locations[id] = l
				return nil
			}
		}
		return fault.NotFound("location for crew %d", crewID)
	})
}
