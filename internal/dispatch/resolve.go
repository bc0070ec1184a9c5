package dispatch

import (
	"flightline/internal/domain"
)

// Resolution outcomes.
const (
	OutcomeCommitted     = "committed"
	OutcomeBlocked       = "blocked"
	OutcomeNeedsOverride = "needs_override"
)

// Resolution is the resolver's verdict on an assignment request. Mutations is
// populated only for a committed outcome; applying it is the caller's job.
type Resolution struct {
	Outcome   string            `json:"outcome" enum:"committed,blocked,needs_override"`
	Findings  []domain.Finding  `json:"findings,omitempty"`
	Mutations []domain.Mutation `json:"mutations,omitempty"`
}

// Resolve runs detection and applies the admission policy: any critical
// finding blocks regardless of the override flag; warning-only findings
// require override; otherwise the assignment mutations are emitted.
func Resolve(s Snapshot, req domain.AssignmentRequest) (Resolution, error) {
	return ResolveWith(s, req, Options{})
}

// ResolveWith is Resolve with explicit detection options.
func ResolveWith(s Snapshot, req domain.AssignmentRequest, opts Options) (Resolution, error) {
	findings, err := DetectWith(s, req, opts)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{Findings: findings}
	switch {
	case HasCritical(findings):
		res.Outcome = OutcomeBlocked
	case len(findings) > 0 && !req.Override:
		res.Outcome = OutcomeNeedsOverride
	default:
		res.Outcome = OutcomeCommitted
		res.Mutations = assignmentMutations(s, req)
	}
	return res, nil
}

func assignmentMutations(s Snapshot, req domain.AssignmentRequest) []domain.Mutation {
	missionID := req.MissionID
	var muts []domain.Mutation
	if req.PilotID != nil {
		p := s.Pilots[*req.PilotID]
		muts = append(muts, domain.Mutation{
			Kind:         domain.MutationAssignPilot,
			ResourceID:   p.ID,
			MissionID:    &missionID,
			PriorStatus:  p.Status,
			PriorMission: p.MissionID,
		})
	}
	if req.DroneID != nil {
		d := s.Drones[*req.DroneID]
		muts = append(muts, domain.Mutation{
			Kind:         domain.MutationAssignDrone,
			ResourceID:   d.ID,
			MissionID:    &missionID,
			PriorStatus:  d.Status,
			PriorMission: d.MissionID,
		})
	}
	return muts
}
