package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"flightline/internal/config"
	"flightline/internal/db"
	"flightline/internal/dispatch"
	"flightline/internal/domain"
	"flightline/internal/engine"
	"flightline/internal/migrate"
	"flightline/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("fleet-1")
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func strp(s string) *string { return &s }

func seedMission(t *testing.T, env testEnv, id, priority string) {
	t.Helper()
	_, err := env.Engine.CreateMission(env.Ctx, domain.Mission{
		ID:             id,
		Name:           "survey " + id,
		Priority:       priority,
		RequiredSkills: []string{"Mapping"},
		RequiredCerts:  []string{"DGCA"},
		StartDate:      "2026-03-01",
		EndDate:        "2026-03-05",
	}, "tester")
	if err != nil {
		t.Fatalf("create mission %s: %v", id, err)
	}
}

func seedPilot(t *testing.T, env testEnv, id, location string) {
	t.Helper()
	_, err := env.Engine.CreatePilot(env.Ctx, domain.Pilot{
		ID:             id,
		Name:           "pilot " + id,
		Location:       location,
		Skills:         []string{"Mapping"},
		Certifications: []string{"DGCA"},
	}, "tester")
	if err != nil {
		t.Fatalf("create pilot %s: %v", id, err)
	}
}

func seedDrone(t *testing.T, env testEnv, id string) {
	t.Helper()
	_, err := env.Engine.CreateDrone(env.Ctx, domain.Drone{
		ID:             id,
		Model:          "Skylark X4",
		Capabilities:   []string{"RGB"},
		MaintenanceDue: "2026-12-01",
	}, "tester")
	if err != nil {
		t.Fatalf("create drone %s: %v", id, err)
	}
}

func countEvents(t *testing.T, env testEnv, evtType string) int {
	t.Helper()
	var n int
	err := env.Engine.DB.QueryRowContext(env.Ctx, `SELECT count(*) FROM events WHERE type=?`, evtType).Scan(&n)
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	return n
}

func TestCommitAssignmentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	seedMission(t, env, "M1", domain.PriorityNormal)
	seedPilot(t, env, "P1", "")
	seedDrone(t, env, "D1")

	res, err := env.Engine.CommitAssignment(env.Ctx, domain.AssignmentRequest{
		MissionID: "M1", PilotID: strp("P1"), DroneID: strp("D1"),
	}, "tester")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if res.Outcome != dispatch.OutcomeCommitted {
		t.Fatalf("expected committed, got %s (%+v)", res.Outcome, res.Findings)
	}
	p, err := env.Engine.Repo.GetPilot(env.Ctx, "P1")
	if err != nil {
		t.Fatalf("get pilot: %v", err)
	}
	if p.Status != domain.StatusAssigned || p.MissionID == nil || *p.MissionID != "M1" {
		t.Fatalf("pilot not assigned: %+v", p)
	}
	d, err := env.Engine.Repo.GetDrone(env.Ctx, "D1")
	if err != nil {
		t.Fatalf("get drone: %v", err)
	}
	if d.Status != domain.StatusAssigned || d.MissionID == nil || *d.MissionID != "M1" {
		t.Fatalf("drone not assigned: %+v", d)
	}
	m, err := env.Engine.Repo.GetMission(env.Ctx, "M1")
	if err != nil {
		t.Fatalf("get mission: %v", err)
	}
	if m.PilotID == nil || *m.PilotID != "P1" || m.DroneID == nil || *m.DroneID != "D1" {
		t.Fatalf("mission refs not set: %+v", m)
	}
	if countEvents(t, env, "pilot.assigned") != 1 || countEvents(t, env, "drone.assigned") != 1 {
		t.Fatalf("expected assignment events")
	}
}

func TestCommitBlockedByDoubleBooking(t *testing.T) {
	env := newTestEnv(t)
	seedMission(t, env, "M1", domain.PriorityNormal)
	seedMission(t, env, "M2", domain.PriorityHigh)
	seedPilot(t, env, "P1", "")

	if _, err := env.Engine.CommitAssignment(env.Ctx, domain.AssignmentRequest{MissionID: "M1", PilotID: strp("P1")}, "tester"); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	res, err := env.Engine.CommitAssignment(env.Ctx, domain.AssignmentRequest{MissionID: "M2", PilotID: strp("P1")}, "tester")
	if !errors.Is(err, engine.ErrValidationBlocked) {
		t.Fatalf("expected ErrValidationBlocked, got %v", err)
	}
	if len(res.Findings) != 1 || res.Findings[0].Code != domain.CodeDoubleBooking {
		t.Fatalf("expected double_booking finding, got %+v", res.Findings)
	}
	// the blocked attempt must not have touched the row
	p, _ := env.Engine.Repo.GetPilot(env.Ctx, "P1")
	if p.MissionID == nil || *p.MissionID != "M1" {
		t.Fatalf("pilot moved despite block: %+v", p)
	}
}

func TestCommitRequiresOverrideForWarnings(t *testing.T) {
	env := newTestEnv(t)
	seedMission(t, env, "M1", domain.PriorityNormal)
	seedPilot(t, env, "P1", "Delhi")

	res, err := env.Engine.CommitAssignment(env.Ctx, domain.AssignmentRequest{MissionID: "M1", PilotID: strp("P1")}, "tester")
	if !errors.Is(err, engine.ErrOverrideRequired) {
		t.Fatalf("expected ErrOverrideRequired, got %v", err)
	}
	if res.Outcome != dispatch.OutcomeNeedsOverride {
		t.Fatalf("expected needs_override, got %s", res.Outcome)
	}
	p, _ := env.Engine.Repo.GetPilot(env.Ctx, "P1")
	if p.Status != domain.StatusAvailable {
		t.Fatalf("pilot mutated without override: %+v", p)
	}

	res, err = env.Engine.CommitAssignment(env.Ctx, domain.AssignmentRequest{MissionID: "M1", PilotID: strp("P1"), Override: true}, "tester")
	if err != nil {
		t.Fatalf("commit with override: %v", err)
	}
	if res.Outcome != dispatch.OutcomeCommitted || len(res.Findings) != 1 {
		t.Fatalf("override commit should keep findings on record: %+v", res)
	}
}

func TestValidateAssignmentIsReadOnly(t *testing.T) {
	env := newTestEnv(t)
	seedMission(t, env, "M1", domain.PriorityNormal)
	seedPilot(t, env, "P1", "Delhi")

	findings, err := env.Engine.ValidateAssignment(env.Ctx, domain.AssignmentRequest{MissionID: "M1", PilotID: strp("P1")})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(findings) != 1 || findings[0].Code != domain.CodeLocationMismatch {
		t.Fatalf("expected location finding, got %+v", findings)
	}
	p, _ := env.Engine.Repo.GetPilot(env.Ctx, "P1")
	if p.Status != domain.StatusAvailable || p.MissionID != nil {
		t.Fatalf("validate must not mutate: %+v", p)
	}
}

func TestSetPilotStatusReleasesAssignment(t *testing.T) {
	env := newTestEnv(t)
	seedMission(t, env, "M1", domain.PriorityNormal)
	seedPilot(t, env, "P1", "")
	if _, err := env.Engine.CommitAssignment(env.Ctx, domain.AssignmentRequest{MissionID: "M1", PilotID: strp("P1")}, "tester"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	p, err := env.Engine.SetPilotStatus(env.Ctx, "P1", domain.StatusUnavailable, "tester")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if p.Status != domain.StatusUnavailable || p.MissionID != nil {
		t.Fatalf("assignment not released: %+v", p)
	}
	m, _ := env.Engine.Repo.GetMission(env.Ctx, "M1")
	if m.PilotID != nil {
		t.Fatalf("mission still references released pilot: %+v", m)
	}
	// assigned is never directly settable
	if _, err := env.Engine.SetPilotStatus(env.Ctx, "P1", domain.StatusAssigned, "tester"); err == nil {
		t.Fatalf("expected error setting assigned directly")
	}
}

func TestSetDroneStatusMaintenance(t *testing.T) {
	env := newTestEnv(t)
	seedMission(t, env, "M1", domain.PriorityNormal)
	seedDrone(t, env, "D1")
	if _, err := env.Engine.CommitAssignment(env.Ctx, domain.AssignmentRequest{MissionID: "M1", DroneID: strp("D1")}, "tester"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	d, err := env.Engine.SetDroneStatus(env.Ctx, "D1", domain.StatusMaintenance, "tester")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if d.Status != domain.StatusMaintenance || d.MissionID != nil {
		t.Fatalf("assignment not released: %+v", d)
	}
	if _, err := env.Engine.SetDroneStatus(env.Ctx, "D1", domain.StatusUnavailable, "tester"); err == nil {
		t.Fatalf("unavailable is not a drone status")
	}
}

func TestReallocationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	seedMission(t, env, "M1", domain.PriorityNormal)
	seedMission(t, env, "M2", domain.PriorityUrgent)
	seedPilot(t, env, "P1", "")
	seedPilot(t, env, "P2", "")
	seedDrone(t, env, "D1")
	for _, req := range []domain.AssignmentRequest{
		{MissionID: "M1", PilotID: strp("P1"), DroneID: strp("D1")},
		{MissionID: "M1", PilotID: strp("P2")},
	} {
		if _, err := env.Engine.CommitAssignment(env.Ctx, req, "tester"); err != nil {
			t.Fatalf("staffing M1: %v", err)
		}
	}

	plan, err := env.Engine.PlanReallocation(env.Ctx, "M1", "M2", "tester")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.ID == "" || plan.Status != domain.PlanProposed {
		t.Fatalf("expected proposed plan with id, got %+v", plan)
	}
	if len(plan.Moves) != 2 {
		t.Fatalf("expected pilot and drone moves, got %+v", plan.Moves)
	}
	// nothing moves until confirmation
	p, _ := env.Engine.Repo.GetPilot(env.Ctx, "P1")
	if *p.MissionID != "M1" {
		t.Fatalf("planning must not mutate: %+v", p)
	}

	plan, err = env.Engine.ConfirmReallocation(env.Ctx, plan.ID, "tester")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if plan.Status != domain.PlanExecuted {
		t.Fatalf("expected executed, got %s", plan.Status)
	}
	p, _ = env.Engine.Repo.GetPilot(env.Ctx, "P1")
	if p.MissionID == nil || *p.MissionID != "M2" {
		t.Fatalf("pilot not moved: %+v", p)
	}
	d, _ := env.Engine.Repo.GetDrone(env.Ctx, "D1")
	if d.MissionID == nil || *d.MissionID != "M2" {
		t.Fatalf("drone not moved: %+v", d)
	}
	m2, _ := env.Engine.Repo.GetMission(env.Ctx, "M2")
	if m2.PilotID == nil || *m2.PilotID != "P1" || m2.DroneID == nil || *m2.DroneID != "D1" {
		t.Fatalf("target refs not set: %+v", m2)
	}
	for _, evt := range []string{"plan.proposed", "plan.confirmed", "plan.executed"} {
		if countEvents(t, env, evt) != 1 {
			t.Fatalf("expected one %s event", evt)
		}
	}
	// a finished plan cannot be confirmed again
	if _, err := env.Engine.ConfirmReallocation(env.Ctx, plan.ID, "tester"); err == nil {
		t.Fatalf("expected transition error on re-confirm")
	}
}

func TestConfirmRefusesDriftedResource(t *testing.T) {
	env := newTestEnv(t)
	seedMission(t, env, "M1", domain.PriorityNormal)
	seedMission(t, env, "M2", domain.PriorityUrgent)
	seedPilot(t, env, "P1", "")
	seedDrone(t, env, "D1")
	if _, err := env.Engine.CommitAssignment(env.Ctx, domain.AssignmentRequest{
		MissionID: "M1", PilotID: strp("P1"), DroneID: strp("D1"),
	}, "tester"); err != nil {
		t.Fatalf("staffing M1: %v", err)
	}
	plan, err := env.Engine.PlanReallocation(env.Ctx, "M1", "M2", "tester")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	// the pilot drifts away between proposal and confirmation
	if _, err := env.Engine.SetPilotStatus(env.Ctx, "P1", domain.StatusUnavailable, "tester"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if _, err := env.Engine.ConfirmReallocation(env.Ctx, plan.ID, "tester"); !errors.Is(err, repo.ErrStaleSnapshot) {
		t.Fatalf("expected ErrStaleSnapshot, got %v", err)
	}
	p, _ := env.Engine.Repo.GetPilot(env.Ctx, "P1")
	if p.Status != domain.StatusUnavailable || p.MissionID != nil {
		t.Fatalf("drifted pilot must not be force-moved: %+v", p)
	}
	d, _ := env.Engine.Repo.GetDrone(env.Ctx, "D1")
	if d.MissionID == nil || *d.MissionID != "M1" {
		t.Fatalf("nothing may apply when a move fails re-validation: %+v", d)
	}
	stored, err := env.Engine.Repo.GetPlan(env.Ctx, plan.ID)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if stored.Status != domain.PlanConfirmed {
		t.Fatalf("refused confirm should leave the plan confirmed, got %s", stored.Status)
	}

	// restoring the source staffing makes the same plan confirmable again
	if _, err := env.Engine.SetPilotStatus(env.Ctx, "P1", domain.StatusAvailable, "tester"); err != nil {
		t.Fatalf("restore status: %v", err)
	}
	if _, err := env.Engine.CommitAssignment(env.Ctx, domain.AssignmentRequest{MissionID: "M1", PilotID: strp("P1")}, "tester"); err != nil {
		t.Fatalf("restore assignment: %v", err)
	}
	stored, err = env.Engine.ConfirmReallocation(env.Ctx, plan.ID, "tester")
	if err != nil {
		t.Fatalf("retry confirm: %v", err)
	}
	if stored.Status != domain.PlanExecuted {
		t.Fatalf("expected executed, got %s", stored.Status)
	}
	p, _ = env.Engine.Repo.GetPilot(env.Ctx, "P1")
	d, _ = env.Engine.Repo.GetDrone(env.Ctx, "D1")
	if p.MissionID == nil || *p.MissionID != "M2" || d.MissionID == nil || *d.MissionID != "M2" {
		t.Fatalf("resources not moved on retry: pilot=%+v drone=%+v", p, d)
	}
}

func TestReallocationPriorityInversion(t *testing.T) {
	env := newTestEnv(t)
	seedMission(t, env, "M1", domain.PriorityUrgent)
	seedMission(t, env, "M2", domain.PriorityNormal)
	seedPilot(t, env, "P1", "")
	if _, err := env.Engine.CommitAssignment(env.Ctx, domain.AssignmentRequest{MissionID: "M1", PilotID: strp("P1")}, "tester"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := env.Engine.PlanReallocation(env.Ctx, "M1", "M2", "tester"); !errors.Is(err, dispatch.ErrPriorityInversion) {
		t.Fatalf("expected ErrPriorityInversion, got %v", err)
	}
}

func TestRejectReallocation(t *testing.T) {
	env := newTestEnv(t)
	seedMission(t, env, "M1", domain.PriorityNormal)
	seedMission(t, env, "M2", domain.PriorityUrgent)
	seedPilot(t, env, "P1", "")
	if _, err := env.Engine.CommitAssignment(env.Ctx, domain.AssignmentRequest{MissionID: "M1", PilotID: strp("P1")}, "tester"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	plan, err := env.Engine.PlanReallocation(env.Ctx, "M1", "M2", "tester")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	plan, err = env.Engine.RejectReallocation(env.Ctx, plan.ID, "tester")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if plan.Status != domain.PlanRejected {
		t.Fatalf("expected rejected, got %s", plan.Status)
	}
	p, _ := env.Engine.Repo.GetPilot(env.Ctx, "P1")
	if *p.MissionID != "M1" {
		t.Fatalf("rejection must not move anything: %+v", p)
	}
	if _, err := env.Engine.ConfirmReallocation(env.Ctx, plan.ID, "tester"); err == nil {
		t.Fatalf("expected transition error confirming a rejected plan")
	}
}

func TestCreateMissionValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateMission(env.Ctx, domain.Mission{
		ID: "M1", Priority: domain.PriorityNormal, StartDate: "2026-03-05", EndDate: "2026-03-01",
	}, "tester")
	if err == nil {
		t.Fatalf("expected end-before-start error")
	}
	_, err = env.Engine.CreateMission(env.Ctx, domain.Mission{
		ID: "M1", Priority: "asap", StartDate: "2026-03-01", EndDate: "2026-03-05",
	}, "tester")
	if err == nil {
		t.Fatalf("expected invalid priority error")
	}
	_, err = env.Engine.CreateMission(env.Ctx, domain.Mission{
		ID: "M1", Priority: domain.PriorityNormal, StartDate: "2026-03-01", EndDate: "2026-03-05",
		RequiredSkills: []string{"Juggling"},
	}, "tester")
	if err == nil {
		t.Fatalf("expected unknown skill error")
	}
}

func TestCreatePilotValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreatePilot(env.Ctx, domain.Pilot{ID: "P1", Name: "x", Skills: []string{"Juggling"}}, "tester")
	if err == nil {
		t.Fatalf("expected unknown skill error")
	}
	_, err = env.Engine.CreatePilot(env.Ctx, domain.Pilot{ID: "P1", Name: "x", Status: domain.StatusAssigned}, "tester")
	if err == nil {
		t.Fatalf("expected rejection of assigned at create")
	}
	// default location comes from config
	p, err := env.Engine.CreatePilot(env.Ctx, domain.Pilot{ID: "P1", Name: "x", Skills: []string{"Mapping"}}, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Location != "Bangalore" {
		t.Fatalf("expected default location, got %q", p.Location)
	}
}
