package reconfigure

import (
	"context"
	"log/slog"
	"strings"

	"fieldstock/internal/domain/crews"
	"fieldstock/internal/domain/fault"
	"fieldstock/internal/domain/locations"
	"fieldstock/internal/domain/stock"
	"fieldstock/internal/infra/metrics"
)

// Store is the persistence surface the engine runs on: the crew and stock
// stores scoped to the same transaction, plus the warehouse location.
type Store interface {
	WithinTx(ctx context.Context, fn func(Store) error) error
	Crews() crews.Store
	Stock() stock.Store
	Warehouse(ctx context.Context) (*locations.Location, error)
}

// Engine disbands crews and redistributes their material to successor crews.
// Preview simulates, Reconfigure commits; both share the same resolution and
// planning code so they cannot drift apart.
type Engine struct {
	store     Store
	warnShare float64
	log       *slog.Logger
}

func NewEngine(store Store, warnShare float64, log *slog.Logger) *Engine {
	return &Engine{store: store, warnShare: warnShare, log: log}
}

func validateInput(in Input) error {
	if len(in.OldCrewIDs) == 0 {
		return fault.Invalid("no old crews given")
	}
	seen := map[int64]bool{}
	for _, id := range in.OldCrewIDs {
		if seen[id] {
			return fault.Invalid("crew %d listed twice in old crews", id)
		}
		seen[id] = true
	}
	for i, cfg := range in.NewCrews {
		if strings.TrimSpace(cfg.Name) == "" {
			return fault.Invalid("new crew #%d has no name", i+1)
		}
	}
	return nil
}

// resolveStates loads each old crew, resolves its target and reads its
// holdings. With lock set, every holding row is re-read under a row lock so
// the plan built from these states is exact for the rest of the transaction.
func (e *Engine) resolveStates(ctx context.Context, s Store, in Input, lock bool) ([]oldCrewState, []string, error) {
	var states []oldCrewState
	var warnings []string
	for _, id := range in.OldCrewIDs {
		crew, err := s.Crews().GetCrew(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		target, warns, err := resolveTarget(crew, in)
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, warns...)

		holdings, err := s.Stock().Holdings(ctx, crew.LocationID)
		if err != nil {
			return nil, nil, err
		}
		if lock {
			for i := range holdings {
				qty, err := s.Stock().QtyForUpdate(ctx, holdings[i].MaterialID, crew.LocationID)
				if err != nil {
					return nil, nil, err
				}
				holdings[i].Qty = qty
			}
		}
		states = append(states, oldCrewState{crew: crew, target: target, holdings: holdings})
	}
	return states, warnings, nil
}

// Preview resolves targets and simulates the redistribution without writing
// anything.
func (e *Engine) Preview(ctx context.Context, in Input) (*Plan, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	states, warnings, err := e.resolveStates(ctx, e.store, in, false)
	if err != nil {
		return nil, err
	}
	plan := buildPlan(states, in, e.warnShare)
	plan.Warnings = append(warnings, plan.Warnings...)
	return &plan, nil
}

// Reconfigure creates the new crews, moves every old crew's stock to its
// resolved target and optionally deactivates the old crews, all in one
// transaction. Any failure leaves nothing persisted.
func (e *Engine) Reconfigure(ctx context.Context, in Input) (*Result, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var res Result
	err := e.store.WithinTx(ctx, func(s Store) error {
		states, warnings, err := e.resolveStates(ctx, s, in, true)
		if err != nil {
			return err
		}

		// New crews first: conflict validation must not trip over members of
		// the crews being disbanded.
		newIDs := make([]int64, len(in.NewCrews))
		newLocs := make([]int64, len(in.NewCrews))
		for i, cfg := range in.NewCrews {
			created, err := crews.Create(ctx, s.Crews(), crews.CreateCrewParams{
				Name:           cfg.Name,
				LeaderID:       cfg.LeaderID,
				MemberIDs:      cfg.MemberIDs,
				Description:    cfg.Description,
				ExcludeCrewIDs: in.OldCrewIDs,
			})
			if err != nil {
				return err
			}
			newIDs[i], newLocs[i] = created.ID, created.LocationID
		}

		wh, err := s.Warehouse(ctx)
		if err != nil {
			return err
		}

		plan := buildPlan(states, in, e.warnShare)
		plan.Warnings = append(warnings, plan.Warnings...)

		for _, mv := range plan.Moves {
			destLoc := wh.ID
			if mv.Target.Kind == TargetNewCrew {
				destLoc = newLocs[mv.Target.CrewIndex]
			}
			if err := s.Stock().SetQty(ctx, mv.MaterialID, mv.FromLocationID, 0); err != nil {
				return err
			}
			if err := s.Stock().AddQty(ctx, mv.MaterialID, destLoc, mv.Qty, nil); err != nil {
				return err
			}
			from := mv.FromLocationID
			to := destLoc
			if err := s.Stock().InsertMovement(ctx, &stock.Movement{
				MaterialID:     mv.MaterialID,
				FromLocationID: &from,
				ToLocationID:   &to,
				Qty:            mv.Qty,
				Kind:           stock.MoveTransfer,
			}); err != nil {
				return err
			}
		}

		if in.DeactivateOld {
			for _, st := range states {
				if err := s.Crews().SetCrewActive(ctx, st.crew.ID, false); err != nil {
					return err
				}
				if err := s.Crews().SetCrewLocationActive(ctx, st.crew.ID, false); err != nil {
					return err
				}
				res.DeactivatedCrewIDs = append(res.DeactivatedCrewIDs, st.crew.ID)
			}
		}

		res.Plan = plan
		res.NewCrewIDs = newIDs
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ReconfigurationsTotal.Inc()
	e.log.Info("crews reconfigured",
		"old_crews", len(in.OldCrewIDs),
		"new_crews", len(res.NewCrewIDs),
		"moves", len(res.Moves),
		"total_qty", res.Summary.TotalQty,
	)
	return &res, nil
}
