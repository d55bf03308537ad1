package reconfigure

import (
	"fmt"

	"fieldstock/internal/domain/crews"
	"fieldstock/internal/domain/fault"
)

// A resolverRule inspects the old crew's leader and either picks a target or
// passes. Rules run in a fixed order and the first one that picks wins, which
// keeps the routing decision auditable rule by rule.
type resolverRule func(leaderID string, in Input) (*Target, error)

func resolverRules() []resolverRule {
	return []resolverRule{
		resolveByResolutionList,
		resolveByNewCrewConfig,
	}
}

// resolveByResolutionList applies the caller-supplied conflict resolutions:
// the first resolution naming the old leader as conflicting routes the stock
// to the new crew led by that resolution's winner.
func resolveByResolutionList(leaderID string, in Input) (*Target, error) {
	for _, res := range in.Resolutions {
		if !contains(res.ConflictingLeaders, leaderID) {
			continue
		}
		for i, cfg := range in.NewCrews {
			if cfg.LeaderID == res.WinnerLeaderID {
				return &Target{Kind: TargetNewCrew, CrewIndex: i}, nil
			}
		}
		return nil, fault.Invalid("resolution winner %s does not lead any new crew", res.WinnerLeaderID)
	}
	return nil, nil
}

// resolveByNewCrewConfig routes to the first new crew that keeps the old
// leader, either as its leader or as a plain member.
func resolveByNewCrewConfig(leaderID string, in Input) (*Target, error) {
	for i, cfg := range in.NewCrews {
		if cfg.LeaderID == leaderID || contains(cfg.MemberIDs, leaderID) {
			return &Target{Kind: TargetNewCrew, CrewIndex: i}, nil
		}
	}
	return nil, nil
}

// resolveTarget decides where an old crew's stock goes. It never fails to
// produce a target: stock that cannot be mapped to a new crew falls back to
// the warehouse with a warning rather than being dropped.
func resolveTarget(old *crews.Crew, in Input) (Target, []string, error) {
	if old.LeaderID == nil || *old.LeaderID == "" {
		warn := fmt.Sprintf("crew %d (%s) has no leader; stock moves to warehouse", old.ID, old.Name)
		return Target{Kind: TargetWarehouse}, []string{warn}, nil
	}
	for _, rule := range resolverRules() {
		t, err := rule(*old.LeaderID, in)
		if err != nil {
			return Target{}, nil, err
		}
		if t != nil {
			return *t, nil, nil
		}
	}
	warn := fmt.Sprintf("crew %d (%s): could not determine destination for leader %s, moved to warehouse", old.ID, old.Name, *old.LeaderID)
	return Target{Kind: TargetWarehouse}, []string{warn}, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
