package reconfigure

import (
	"fmt"

	"fieldstock/internal/domain/crews"
	"fieldstock/internal/domain/stock"
)

// oldCrewState is one disbanded crew with its resolved target and current
// holdings, the unit the planner works over.
type oldCrewState struct {
	crew     *crews.Crew
	target   Target
	holdings []stock.Inventory
}

// buildPlan turns resolved targets and holdings into the full move list. It
// is pure: preview returns it as-is, execution replays it against the store.
// A destination accumulating more than warnShare of the total quantity gets a
// non-blocking warning appended.
func buildPlan(states []oldCrewState, in Input, warnShare float64) Plan {
	var p Plan
	materials := map[int64]bool{}
	perDest := map[string]float64{}
	var destOrder []string

	for _, st := range states {
		dest := destinationLabel(st.target, in)
		for _, inv := range st.holdings {
			if inv.Qty <= 0 {
				continue
			}
			if _, seen := perDest[dest]; !seen {
				destOrder = append(destOrder, dest)
			}
			p.Moves = append(p.Moves, Move{
				MaterialID:     inv.MaterialID,
				FromCrewID:     st.crew.ID,
				FromLocationID: st.crew.LocationID,
				Qty:            inv.Qty,
				Target:         st.target,
				Destination:    dest,
			})
			materials[inv.MaterialID] = true
			perDest[dest] += inv.Qty
			p.Summary.TotalQty += inv.Qty
		}
	}

	p.Summary.DistinctMaterials = len(materials)
	p.Summary.CrewsAffected = len(states)

	if p.Summary.TotalQty > 0 && warnShare > 0 {
		for _, dest := range destOrder {
			share := perDest[dest] / p.Summary.TotalQty
			if share > warnShare {
				p.Warnings = append(p.Warnings, fmt.Sprintf(
					"destination %q receives %.0f%% of redistributed stock", dest, share*100))
			}
		}
	}
	return p
}

func destinationLabel(t Target, in Input) string {
	if t.Kind == TargetWarehouse {
		return "warehouse"
	}
	return in.NewCrews[t.CrewIndex].Name
}
