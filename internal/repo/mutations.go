package repo

import (
	"context"
	"database/sql"
	"fmt"

	"flightline/internal/domain"
)

// ApplyMutationTx applies one mutation with its compare-and-set
// precondition: the resource row must still carry the status and mission the
// snapshot assumed, otherwise ErrStaleSnapshot. The mission back-reference is
// kept in step in the same transaction.
func (r Repo) ApplyMutationTx(ctx context.Context, tx *sql.Tx, m domain.Mutation, now string) error {
	switch m.Kind {
	case domain.MutationAssignPilot:
		if m.MissionID == nil {
			return fmt.Errorf("%s requires a mission id", m.Kind)
		}
		if err := casUpdate(ctx, tx, "pilots", m, domain.StatusAssigned, m.MissionID, now); err != nil {
			return err
		}
		return setMissionRef(ctx, tx, "pilot_id", *m.MissionID, &m.ResourceID, now)
	case domain.MutationAssignDrone:
		if m.MissionID == nil {
			return fmt.Errorf("%s requires a mission id", m.Kind)
		}
		if err := casUpdate(ctx, tx, "drones", m, domain.StatusAssigned, m.MissionID, now); err != nil {
			return err
		}
		return setMissionRef(ctx, tx, "drone_id", *m.MissionID, &m.ResourceID, now)
	case domain.MutationUnassignPilot:
		if err := casUpdate(ctx, tx, "pilots", m, domain.StatusAvailable, nil, now); err != nil {
			return err
		}
		if m.PriorMission != nil {
			return setMissionRef(ctx, tx, "pilot_id", *m.PriorMission, nil, now)
		}
		return nil
	case domain.MutationUnassignDrone:
		if err := casUpdate(ctx, tx, "drones", m, domain.StatusAvailable, nil, now); err != nil {
			return err
		}
		if m.PriorMission != nil {
			return setMissionRef(ctx, tx, "drone_id", *m.PriorMission, nil, now)
		}
		return nil
	default:
		return fmt.Errorf("unknown mutation kind %s", m.Kind)
	}
}

func casUpdate(ctx context.Context, tx *sql.Tx, table string, m domain.Mutation, newStatus string, newMission *string, now string) error {
	query := fmt.Sprintf(`UPDATE %s SET status=?, mission_id=?, updated_at=? WHERE id=? AND status=? AND mission_id IS ?`, table)
	res, err := tx.ExecContext(ctx, query, newStatus, nullablePtr(newMission), now, m.ResourceID, m.PriorStatus, nullablePtr(m.PriorMission))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT 1 FROM %s WHERE id=?`, table), m.ResourceID).Scan(&one)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%s %s: %w", m.Kind, m.ResourceID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%s %s: %w", m.Kind, m.ResourceID, ErrStaleSnapshot)
	}
	return nil
}

func setMissionRef(ctx context.Context, tx *sql.Tx, column, missionID string, resourceID *string, now string) error {
	query := fmt.Sprintf(`UPDATE missions SET %s=?, updated_at=? WHERE id=?`, column)
	res, err := tx.ExecContext(ctx, query, nullablePtr(resourceID), now, missionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mission %s: %w", missionID, ErrNotFound)
	}
	return nil
}

// SetPilotStateTx overwrites a pilot's status and mission reference without
// preconditions; used for roster maintenance, not for assignment commits.
func (r Repo) SetPilotStateTx(ctx context.Context, tx *sql.Tx, id, status string, missionID *string, now string) error {
	res, err := tx.ExecContext(ctx, `UPDATE pilots SET status=?, mission_id=?, updated_at=? WHERE id=?`,
		status, nullablePtr(missionID), now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDroneStateTx is SetPilotStateTx for drones.
func (r Repo) SetDroneStateTx(ctx context.Context, tx *sql.Tx, id, status string, missionID *string, now string) error {
	res, err := tx.ExecContext(ctx, `UPDATE drones SET status=?, mission_id=?, updated_at=? WHERE id=?`,
		status, nullablePtr(missionID), now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearMissionRefTx drops a mission's back-reference to a resource kind.
func (r Repo) ClearMissionRefTx(ctx context.Context, tx *sql.Tx, kind, missionID, now string) error {
	column := "pilot_id"
	if kind == domain.KindDrone {
		column = "drone_id"
	}
	return setMissionRef(ctx, tx, column, missionID, nil, now)
}

// SetDroneMaintenanceDue updates the maintenance due date.
func (r Repo) SetDroneMaintenanceDue(ctx context.Context, id, due, now string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE drones SET maintenance_due=?, updated_at=? WHERE id=?`,
		nullable(due), now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
