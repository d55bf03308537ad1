package snapshots

import (
	"context"
	"errors"
	"log/slog"

	"fieldstock/internal/domain/crews"
	"fieldstock/internal/domain/fault"
	"fieldstock/internal/infra/metrics"
)

// CrewSource is the slice of the crew registry the snapshot service reads.
type CrewSource interface {
	ActiveCrewForTechnician(ctx context.Context, technicianID string) (*crews.Crew, error)
	MembersOf(ctx context.Context, crewID int64) ([]crews.Member, error)
}

// Service captures crew membership at the first material consumption for an
// order and serves it back for historical reporting.
type Service struct {
	store Store
	crews CrewSource
	log   *slog.Logger
}

func NewService(store Store, crews CrewSource, log *slog.Logger) *Service {
	return &Service{store: store, crews: crews, log: log}
}

// GetOrCreate returns the existing snapshot for the order, or captures one
// from the employee's current crew. A snapshot is never overwritten: when the
// employee has no active crew, a row with null crew fields is still persisted
// so future calls short-circuit.
func (s *Service) GetOrCreate(ctx context.Context, orderID, employeeID string) (*Snapshot, error) {
	if orderID == "" {
		return nil, fault.Invalid("order id is empty")
	}
	if employeeID == "" {
		return nil, fault.Invalid("employee id is empty")
	}

	existing, err := s.store.Get(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, fault.ErrNotFound) {
		return nil, err
	}

	snap := &Snapshot{OrderID: orderID, EmployeeID: employeeID}
	crew, err := s.crews.ActiveCrewForTechnician(ctx, employeeID)
	switch {
	case err == nil:
		members, err := s.crews.MembersOf(ctx, crew.ID)
		if err != nil {
			return nil, err
		}
		snap.CrewID = &crew.ID
		snap.CrewName = &crew.Name
		for _, m := range members {
			snap.MemberIDs = append(snap.MemberIDs, m.TechnicianID)
			snap.Members = append(snap.Members, MemberDetail{TechnicianID: m.TechnicianID, Role: m.Role})
		}
	case errors.Is(err, fault.ErrNotFound):
		// No active crew: persist the null-crew snapshot.
	default:
		return nil, err
	}

	created, err := s.store.Insert(ctx, snap)
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost the race against a concurrent first consumer; their write wins.
		return s.store.Get(ctx, orderID)
	}
	metrics.SnapshotsCreatedTotal.Inc()
	s.log.Info("order snapshot captured", "order_id", orderID, "employee_id", employeeID, "crew", snap.CrewID != nil)
	return s.store.Get(ctx, orderID)
}

// Capture adapts GetOrCreate for the stock ledger's fire-and-forget trigger.
func (s *Service) Capture(ctx context.Context, orderID, employeeID string) error {
	_, err := s.GetOrCreate(ctx, orderID, employeeID)
	return err
}

func (s *Service) Get(ctx context.Context, orderID string) (*Snapshot, error) {
	return s.store.Get(ctx, orderID)
}

func (s *Service) GetForOrders(ctx context.Context, orderIDs []string) ([]Snapshot, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	return s.store.GetMany(ctx, orderIDs)
}
