package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"flightline/internal/config"
	"flightline/internal/dispatch"
	"flightline/internal/domain"
	"flightline/internal/events"
	"flightline/internal/repo"
)

var (
	ErrValidationBlocked = errors.New("assignment blocked by critical findings")
	ErrOverrideRequired  = errors.New("warning findings require explicit override")
	ErrPartiallyExecuted = errors.New("reallocation partially executed; manual reconciliation required")
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowStr() string {
	return e.now().UTC().Format(time.RFC3339)
}

// Snapshot takes the point-in-time read all evaluations run against.
func (e Engine) Snapshot(ctx context.Context) (dispatch.Snapshot, error) {
	return e.Repo.LoadSnapshot(ctx, e.now().UTC())
}

func (e Engine) detectOptions() dispatch.Options {
	opts := dispatch.Options{}
	if e.Config != nil {
		opts.MaintenanceMarginDays = e.Config.Policy.MaintenanceMarginDays
	}
	return opts
}

func (e Engine) planPolicy() dispatch.PlanPolicy {
	p := dispatch.PlanPolicy{}
	if e.Config != nil {
		p.DelayDays = e.Config.Policy.ReallocationDelayDays
		p.MaintenanceMarginDays = e.Config.Policy.MaintenanceMarginDays
	}
	return p
}

// ValidateAssignment runs detection only; nothing is committed.
func (e Engine) ValidateAssignment(ctx context.Context, req domain.AssignmentRequest) ([]domain.Finding, error) {
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return dispatch.DetectWith(snap, req, e.detectOptions())
}

// CommitAssignment resolves the request and, when admissible, applies its
// mutations atomically. The resolution is returned even on blocked and
// override-required outcomes so the caller can render the findings.
func (e Engine) CommitAssignment(ctx context.Context, req domain.AssignmentRequest, actorID string) (dispatch.Resolution, error) {
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return dispatch.Resolution{}, err
	}
	res, err := dispatch.ResolveWith(snap, req, e.detectOptions())
	if err != nil {
		return res, err
	}
	switch res.Outcome {
	case dispatch.OutcomeBlocked:
		return res, fmt.Errorf("%d finding(s) against mission %s: %w", len(res.Findings), req.MissionID, ErrValidationBlocked)
	case dispatch.OutcomeNeedsOverride:
		return res, fmt.Errorf("%d finding(s) against mission %s: %w", len(res.Findings), req.MissionID, ErrOverrideRequired)
	}
	// Both resource mutations of one request commit or fail together.
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback()
	now := e.nowStr()
	for _, m := range res.Mutations {
		if err := e.Repo.ApplyMutationTx(ctx, tx, m, now); err != nil {
			return res, err
		}
		if err := e.appendMutationEvent(ctx, tx, m, actorID); err != nil {
			return res, err
		}
	}
	if err := tx.Commit(); err != nil {
		return res, err
	}
	return res, nil
}

func (e Engine) appendMutationEvent(ctx context.Context, tx *sql.Tx, m domain.Mutation, actorID string) error {
	var evtType, kind string
	payload := events.EventPayload{}
	switch m.Kind {
	case domain.MutationAssignPilot:
		evtType, kind = "pilot.assigned", domain.KindPilot
		payload["mission_id"] = strPtr(m.MissionID)
	case domain.MutationAssignDrone:
		evtType, kind = "drone.assigned", domain.KindDrone
		payload["mission_id"] = strPtr(m.MissionID)
	case domain.MutationUnassignPilot:
		evtType, kind = "pilot.unassigned", domain.KindPilot
		payload["mission_id"] = strPtr(m.PriorMission)
	case domain.MutationUnassignDrone:
		evtType, kind = "drone.unassigned", domain.KindDrone
		payload["mission_id"] = strPtr(m.PriorMission)
	default:
		return fmt.Errorf("unknown mutation kind %s", m.Kind)
	}
	return e.Events.Append(ctx, tx, evtType, kind, m.ResourceID, actorID, payload)
}

// PlanReallocation proposes moving resources from source to a strictly
// higher-priority target. The plan is persisted in state proposed and
// executes nothing until confirmed.
func (e Engine) PlanReallocation(ctx context.Context, sourceID, targetID, actorID string) (domain.ReallocationPlan, error) {
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return domain.ReallocationPlan{}, err
	}
	plan, err := dispatch.Plan(snap, sourceID, targetID, e.planPolicy())
	if err != nil {
		return domain.ReallocationPlan{}, err
	}
	plan.ID = uuid.New().String()
	now := e.nowStr()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return plan, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertPlanTx(ctx, tx, plan); err != nil {
		return plan, err
	}
	if err := e.Events.Append(ctx, tx, "plan.proposed", "plan", plan.ID, actorID, events.EventPayload{
		"source_mission_id": sourceID,
		"target_mission_id": targetID,
		"moves":             len(plan.Moves),
	}); err != nil {
		return plan, err
	}
	if err := tx.Commit(); err != nil {
		return plan, err
	}
	return plan, nil
}

// ConfirmReallocation transitions a proposed plan to confirmed, re-validates
// every move against a fresh snapshot, and executes the mutations one
// compare-and-set commit at a time. A plan left confirmed or partially
// executed by an earlier attempt can be confirmed again to resume; moves
// whose resource already reached the target are skipped then.
func (e Engine) ConfirmReallocation(ctx context.Context, planID, actorID string) (domain.ReallocationPlan, error) {
	plan, err := e.Repo.GetPlan(ctx, planID)
	if err != nil {
		return plan, err
	}
	switch plan.Status {
	case domain.PlanConfirmed, domain.PlanPartiallyExecuted:
		// resuming an earlier confirm that stopped short
	default:
		if err := dispatch.EnsurePlanTransition(plan.Status, domain.PlanConfirmed); err != nil {
			return plan, err
		}
		if err := e.setPlanStatus(ctx, &plan, domain.PlanConfirmed, actorID, nil); err != nil {
			return plan, err
		}
	}
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return plan, err
	}
	pending := pendingMoves(snap, plan)
	if err := e.revalidateMoves(snap, plan, pending); err != nil {
		return plan, err
	}
	remainder := plan
	remainder.Moves = pending
	muts, err := dispatch.PlanMutations(snap, remainder)
	if err != nil {
		return plan, err
	}
	if err := e.executePlan(ctx, &plan, muts, actorID); err != nil {
		return plan, err
	}
	return plan, nil
}

// pendingMoves drops moves whose resource already holds the target
// assignment, so a resumed confirm only replays what is left.
func pendingMoves(snap dispatch.Snapshot, plan domain.ReallocationPlan) []domain.ResourceMove {
	var pending []domain.ResourceMove
	for _, mv := range plan.Moves {
		switch mv.ResourceKind {
		case domain.KindPilot:
			if p, ok := snap.Pilots[mv.ResourceID]; ok && p.MissionID != nil && *p.MissionID == plan.TargetMissionID {
				continue
			}
		case domain.KindDrone:
			if d, ok := snap.Drones[mv.ResourceID]; ok && d.MissionID != nil && *d.MissionID == plan.TargetMissionID {
				continue
			}
		}
		pending = append(pending, mv)
	}
	return pending
}

// revalidateMoves re-runs detection for each pending move against the fresh
// snapshot. A resource that drifted since the plan was proposed refuses the
// confirm instead of being force-moved: it must still hold its source
// assignment, and no critical finding may stand against the target.
func (e Engine) revalidateMoves(snap dispatch.Snapshot, plan domain.ReallocationPlan, moves []domain.ResourceMove) error {
	opts := e.detectOptions()
	opts.VacatingMission = plan.SourceMissionID
	for _, mv := range moves {
		id := mv.ResourceID
		req := domain.AssignmentRequest{MissionID: plan.TargetMissionID}
		switch mv.ResourceKind {
		case domain.KindPilot:
			p, ok := snap.Pilots[id]
			if !ok {
				return fmt.Errorf("pilot %s: %w", id, dispatch.ErrNotFound)
			}
			if p.Status != domain.StatusAssigned || p.MissionID == nil || *p.MissionID != plan.SourceMissionID {
				return fmt.Errorf("pilot %s no longer assigned to mission %s: %w", id, plan.SourceMissionID, repo.ErrStaleSnapshot)
			}
			req.PilotID = &id
		case domain.KindDrone:
			d, ok := snap.Drones[id]
			if !ok {
				return fmt.Errorf("drone %s: %w", id, dispatch.ErrNotFound)
			}
			if d.Status != domain.StatusAssigned || d.MissionID == nil || *d.MissionID != plan.SourceMissionID {
				return fmt.Errorf("drone %s no longer assigned to mission %s: %w", id, plan.SourceMissionID, repo.ErrStaleSnapshot)
			}
			req.DroneID = &id
		default:
			return fmt.Errorf("unknown resource kind %s", mv.ResourceKind)
		}
		findings, err := dispatch.DetectWith(snap, req, opts)
		if err != nil {
			return err
		}
		if dispatch.HasCritical(findings) {
			return fmt.Errorf("%d finding(s) against mission %s for %s %s: %w",
				len(findings), plan.TargetMissionID, mv.ResourceKind, id, ErrValidationBlocked)
		}
	}
	return nil
}

// executePlan applies the mutations one commit at a time. A failure before
// anything applied leaves the plan status untouched and retryable; a failure
// after the first applied mutation marks the plan partially executed and is
// surfaced, never rolled back silently.
func (e Engine) executePlan(ctx context.Context, plan *domain.ReallocationPlan, muts []domain.Mutation, actorID string) error {
	applied := 0
	for _, m := range muts {
		if err := e.applyPlanMutation(ctx, m, actorID); err != nil {
			if applied == 0 {
				return err
			}
			markErr := e.setPlanStatus(ctx, plan, domain.PlanPartiallyExecuted, actorID, events.EventPayload{
				"applied": applied,
				"total":   len(muts),
				"failed":  m.Kind,
				"cause":   err.Error(),
			})
			if markErr != nil {
				return markErr
			}
			return fmt.Errorf("applied %d of %d mutations (%s %s failed: %w): %w",
				applied, len(muts), m.Kind, m.ResourceID, err, ErrPartiallyExecuted)
		}
		applied++
	}
	return e.setPlanStatus(ctx, plan, domain.PlanExecuted, actorID, events.EventPayload{"moves": len(plan.Moves)})
}

// RejectReallocation discards a proposed plan; no mutation is produced.
func (e Engine) RejectReallocation(ctx context.Context, planID, actorID string) (domain.ReallocationPlan, error) {
	plan, err := e.Repo.GetPlan(ctx, planID)
	if err != nil {
		return plan, err
	}
	if err := dispatch.EnsurePlanTransition(plan.Status, domain.PlanRejected); err != nil {
		return plan, err
	}
	if err := e.setPlanStatus(ctx, &plan, domain.PlanRejected, actorID, nil); err != nil {
		return plan, err
	}
	return plan, nil
}

func (e Engine) applyPlanMutation(ctx context.Context, m domain.Mutation, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.ApplyMutationTx(ctx, tx, m, e.nowStr()); err != nil {
		return err
	}
	if err := e.appendMutationEvent(ctx, tx, m, actorID); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) setPlanStatus(ctx context.Context, plan *domain.ReallocationPlan, status, actorID string, payload events.EventPayload) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := e.nowStr()
	if err := e.Repo.UpdatePlanStatusTx(ctx, tx, plan.ID, status, now); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "plan."+status, "plan", plan.ID, actorID, payload); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	plan.Status = status
	plan.UpdatedAt = now
	return nil
}

func strPtr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
