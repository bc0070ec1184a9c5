package dispatch_test

import (
	"testing"

	"flightline/internal/dispatch"
	"flightline/internal/domain"
)

func TestResolveCleanCommits(t *testing.T) {
	s := fixtureSnapshot()
	res, err := dispatch.Resolve(s, domain.AssignmentRequest{
		MissionID: "M1", PilotID: strp("P1"), DroneID: strp("D1"),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Outcome != dispatch.OutcomeCommitted {
		t.Fatalf("expected committed, got %s (%+v)", res.Outcome, res.Findings)
	}
	if len(res.Mutations) != 2 {
		t.Fatalf("expected pilot and drone mutations, got %+v", res.Mutations)
	}
	pm, dm := res.Mutations[0], res.Mutations[1]
	if pm.Kind != domain.MutationAssignPilot || pm.ResourceID != "P1" || *pm.MissionID != "M1" {
		t.Fatalf("bad pilot mutation: %+v", pm)
	}
	if pm.PriorStatus != domain.StatusAvailable || pm.PriorMission != nil {
		t.Fatalf("pilot priors should come from the snapshot: %+v", pm)
	}
	if dm.Kind != domain.MutationAssignDrone || dm.ResourceID != "D1" {
		t.Fatalf("bad drone mutation: %+v", dm)
	}
}

func TestResolveBlockedOnCritical(t *testing.T) {
	s := fixtureSnapshot()
	p := s.Pilots["P1"]
	p.Status = domain.StatusAssigned
	p.MissionID = strp("M1")
	s.Pilots["P1"] = p

	// Override must never bypass a critical finding.
	res, err := dispatch.Resolve(s, domain.AssignmentRequest{MissionID: "M2", PilotID: strp("P1"), Override: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Outcome != dispatch.OutcomeBlocked {
		t.Fatalf("expected blocked, got %s", res.Outcome)
	}
	if len(res.Mutations) != 0 {
		t.Fatalf("blocked resolution must carry no mutations: %+v", res.Mutations)
	}
	if len(res.Findings) != 1 || res.Findings[0].Code != domain.CodeDoubleBooking {
		t.Fatalf("expected double_booking finding, got %+v", res.Findings)
	}
}

func TestResolveWarningsNeedOverride(t *testing.T) {
	s := fixtureSnapshot()
	p := s.Pilots["P1"]
	p.Location = "Delhi"
	s.Pilots["P1"] = p

	res, err := dispatch.Resolve(s, domain.AssignmentRequest{MissionID: "M1", PilotID: strp("P1")})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Outcome != dispatch.OutcomeNeedsOverride {
		t.Fatalf("expected needs_override, got %s", res.Outcome)
	}
	if len(res.Mutations) != 0 {
		t.Fatalf("no mutations before override: %+v", res.Mutations)
	}

	res, err = dispatch.Resolve(s, domain.AssignmentRequest{MissionID: "M1", PilotID: strp("P1"), Override: true})
	if err != nil {
		t.Fatalf("resolve with override: %v", err)
	}
	if res.Outcome != dispatch.OutcomeCommitted {
		t.Fatalf("expected committed with override, got %s", res.Outcome)
	}
	if len(res.Findings) != 1 {
		t.Fatalf("override keeps the findings on record: %+v", res.Findings)
	}
	if len(res.Mutations) != 1 {
		t.Fatalf("expected one pilot mutation, got %+v", res.Mutations)
	}
}
