package dispatch

import (
	"fmt"

	"flightline/internal/domain"
)

// DefaultReallocationDelay is the estimated delay, in days, imposed on the
// source mission per resource removed.
const DefaultReallocationDelay = 1

// PlanPolicy tunes planning; zero values keep the defaults.
type PlanPolicy struct {
	DelayDays             int
	MaintenanceMarginDays int
}

func (p PlanPolicy) delay() int {
	if p.DelayDays > 0 {
		return p.DelayDays
	}
	return DefaultReallocationDelay
}

type candidate struct {
	id       string
	findings []domain.Finding
}

// Plan proposes moving the best-suited pilot and drone from the source
// mission to a strictly higher-priority target mission. Planning never
// mutates anything: the returned plan is in state proposed and must be
// confirmed by the caller before execution.
func Plan(s Snapshot, sourceID, targetID string, policy PlanPolicy) (domain.ReallocationPlan, error) {
	source, ok := s.Missions[sourceID]
	if !ok {
		return domain.ReallocationPlan{}, fmt.Errorf("mission %s: %w", sourceID, ErrNotFound)
	}
	target, ok := s.Missions[targetID]
	if !ok {
		return domain.ReallocationPlan{}, fmt.Errorf("mission %s: %w", targetID, ErrNotFound)
	}
	if domain.PriorityRank(target.Priority) <= domain.PriorityRank(source.Priority) {
		return domain.ReallocationPlan{}, fmt.Errorf("mission %s (%s) to %s (%s): %w",
			sourceID, source.Priority, targetID, target.Priority, ErrPriorityInversion)
	}

	opts := Options{VacatingMission: sourceID, MaintenanceMarginDays: policy.MaintenanceMarginDays}
	pilotIDs := s.PilotsAssignedTo(sourceID)
	droneIDs := s.DronesAssignedTo(sourceID)
	if len(pilotIDs) == 0 && len(droneIDs) == 0 {
		return domain.ReallocationPlan{}, fmt.Errorf("mission %s holds nothing to move: %w", sourceID, ErrNoEligibleResources)
	}

	bestPilot, err := bestCandidate(s, targetID, pilotIDs, nil, opts)
	if err != nil {
		return domain.ReallocationPlan{}, err
	}
	bestDrone, err := bestCandidate(s, targetID, nil, droneIDs, opts)
	if err != nil {
		return domain.ReallocationPlan{}, err
	}
	if bestPilot == nil && bestDrone == nil {
		return domain.ReallocationPlan{}, fmt.Errorf("every candidate has critical findings against %s: %w", targetID, ErrNoEligibleResources)
	}

	var moves []domain.ResourceMove
	if bestPilot != nil {
		moves = append(moves, move(domain.KindPilot, *bestPilot, len(pilotIDs), policy))
	}
	if bestDrone != nil {
		moves = append(moves, move(domain.KindDrone, *bestDrone, len(droneIDs), policy))
	}
	return domain.ReallocationPlan{
		SourceMissionID: sourceID,
		TargetMissionID: targetID,
		Moves:           moves,
		Status:          domain.PlanProposed,
	}, nil
}

// bestCandidate ranks candidates of one kind by finding count ascending, id
// ascending on ties; candidates with critical findings are never proposed.
// Exactly one of pilotIDs/droneIDs is populated per call.
func bestCandidate(s Snapshot, targetID string, pilotIDs, droneIDs []string, opts Options) (*candidate, error) {
	var best *candidate
	consider := func(id string, findings []domain.Finding) {
		if HasCritical(findings) {
			return
		}
		if best == nil || len(findings) < len(best.findings) {
			best = &candidate{id: id, findings: findings}
		}
	}
	for _, id := range pilotIDs {
		pilotID := id
		findings, err := DetectWith(s, domain.AssignmentRequest{MissionID: targetID, PilotID: &pilotID}, opts)
		if err != nil {
			return nil, err
		}
		consider(id, findings)
	}
	for _, id := range droneIDs {
		droneID := id
		findings, err := DetectWith(s, domain.AssignmentRequest{MissionID: targetID, DroneID: &droneID}, opts)
		if err != nil {
			return nil, err
		}
		consider(id, findings)
	}
	return best, nil
}

// move builds the plan entry for one resource. When the source mission keeps
// no alternative of the same kind the delay is indeterminate (the mission may
// stall entirely), never silently defaulted.
func move(kind string, c candidate, assignedOfKind int, policy PlanPolicy) domain.ResourceMove {
	m := domain.ResourceMove{
		ResourceKind: kind,
		ResourceID:   c.id,
		Findings:     c.findings,
	}
	if assignedOfKind <= 1 {
		m.DelayIndeterminate = true
	} else {
		m.DelayDays = policy.delay()
	}
	return m
}

// PlanMutations expands a plan into its ordered release+assign mutation
// pairs. Priors for each release come from the snapshot; each assign assumes
// its release already applied. The store checks every pair member
// individually (compare-and-set per mutation, not per plan).
func PlanMutations(s Snapshot, p domain.ReallocationPlan) ([]domain.Mutation, error) {
	targetID := p.TargetMissionID
	var muts []domain.Mutation
	for _, mv := range p.Moves {
		switch mv.ResourceKind {
		case domain.KindPilot:
			pl, ok := s.Pilots[mv.ResourceID]
			if !ok {
				return nil, fmt.Errorf("pilot %s: %w", mv.ResourceID, ErrNotFound)
			}
			muts = append(muts,
				domain.Mutation{
					Kind:         domain.MutationUnassignPilot,
					ResourceID:   pl.ID,
					PriorStatus:  pl.Status,
					PriorMission: pl.MissionID,
				},
				domain.Mutation{
					Kind:        domain.MutationAssignPilot,
					ResourceID:  pl.ID,
					MissionID:   &targetID,
					PriorStatus: domain.StatusAvailable,
				})
		case domain.KindDrone:
			d, ok := s.Drones[mv.ResourceID]
			if !ok {
				return nil, fmt.Errorf("drone %s: %w", mv.ResourceID, ErrNotFound)
			}
			muts = append(muts,
				domain.Mutation{
					Kind:         domain.MutationUnassignDrone,
					ResourceID:   d.ID,
					PriorStatus:  d.Status,
					PriorMission: d.MissionID,
				},
				domain.Mutation{
					Kind:        domain.MutationAssignDrone,
					ResourceID:  d.ID,
					MissionID:   &targetID,
					PriorStatus: domain.StatusAvailable,
				})
		default:
			return nil, fmt.Errorf("unknown resource kind %s", mv.ResourceKind)
		}
	}
	return muts, nil
}

// EnsurePlanTransition validates a plan status change.
func EnsurePlanTransition(oldStatus, newStatus string) error {
	switch oldStatus {
	case domain.PlanProposed:
		if newStatus == domain.PlanConfirmed || newStatus == domain.PlanRejected {
			return nil
		}
	case domain.PlanConfirmed:
		if newStatus == domain.PlanExecuted || newStatus == domain.PlanPartiallyExecuted {
			return nil
		}
	case domain.PlanPartiallyExecuted:
		// manual reconciliation completes the second move
		if newStatus == domain.PlanExecuted {
			return nil
		}
	}
	return fmt.Errorf("invalid plan status transition %s -> %s", oldStatus, newStatus)
}
