package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flightline/internal/domain"
	"flightline/internal/events"
)

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func (e Engine) defaultLocation(loc string) string {
	if loc != "" {
		return loc
	}
	if e.Config != nil {
		return e.Config.Fleet.DefaultLocation
	}
	return ""
}

// CreatePilot registers a pilot. New pilots start available; assignment only
// happens through an assignment request.
func (e Engine) CreatePilot(ctx context.Context, p domain.Pilot, actorID string) (domain.Pilot, error) {
	if p.ID == "" {
		return p, errors.New("pilot id is required")
	}
	if p.Name == "" {
		return p, errors.New("pilot name is required")
	}
	if p.Status == "" {
		p.Status = domain.StatusAvailable
	}
	if p.Status == domain.StatusAssigned {
		return p, errors.New("new pilots cannot start assigned; submit an assignment request")
	}
	p.Location = e.defaultLocation(p.Location)
	if e.Config != nil {
		for _, s := range p.Skills {
			if !e.Config.KnownSkill(s) {
				return p, fmt.Errorf("unknown skill %s", s)
			}
		}
		for _, c := range p.Certifications {
			if !e.Config.KnownCertification(c) {
				return p, fmt.Errorf("unknown certification %s", c)
			}
		}
	}
	now := e.nowStr()
	p.MissionID = nil
	p.CreatedAt = now
	p.UpdatedAt = now
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertPilotTx(ctx, tx, p); err != nil {
		return p, err
	}
	if err := e.Events.Append(ctx, tx, "pilot.created", domain.KindPilot, p.ID, actorID, events.EventPayload{"name": p.Name}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

// CreateDrone registers a drone.
func (e Engine) CreateDrone(ctx context.Context, d domain.Drone, actorID string) (domain.Drone, error) {
	if d.ID == "" {
		return d, errors.New("drone id is required")
	}
	if d.Model == "" {
		return d, errors.New("drone model is required")
	}
	if d.Status == "" {
		d.Status = domain.StatusAvailable
	}
	if d.Status == domain.StatusAssigned {
		return d, errors.New("new drones cannot start assigned; submit an assignment request")
	}
	if d.MaintenanceDue != "" && !validDate(d.MaintenanceDue) {
		return d, fmt.Errorf("maintenance_due %s is not a date (YYYY-MM-DD)", d.MaintenanceDue)
	}
	d.Location = e.defaultLocation(d.Location)
	now := e.nowStr()
	d.MissionID = nil
	d.CreatedAt = now
	d.UpdatedAt = now
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return d, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertDroneTx(ctx, tx, d); err != nil {
		return d, err
	}
	if err := e.Events.Append(ctx, tx, "drone.created", domain.KindDrone, d.ID, actorID, events.EventPayload{"model": d.Model}); err != nil {
		return d, err
	}
	if err := tx.Commit(); err != nil {
		return d, err
	}
	return d, nil
}

// CreateMission registers a mission with empty resource slots.
func (e Engine) CreateMission(ctx context.Context, m domain.Mission, actorID string) (domain.Mission, error) {
	if m.ID == "" {
		return m, errors.New("mission id is required")
	}
	if m.Priority == "" {
		m.Priority = domain.PriorityNormal
	}
	if domain.PriorityRank(m.Priority) == 0 {
		return m, fmt.Errorf("invalid priority %s", m.Priority)
	}
	if !validDate(m.StartDate) || !validDate(m.EndDate) {
		return m, errors.New("start_date and end_date are required (YYYY-MM-DD)")
	}
	if m.EndDate < m.StartDate {
		return m, errors.New("end_date before start_date")
	}
	if e.Config != nil {
		for _, s := range m.RequiredSkills {
			if !e.Config.KnownSkill(s) {
				return m, fmt.Errorf("unknown required skill %s", s)
			}
		}
		for _, c := range m.RequiredCerts {
			if !e.Config.KnownCertification(c) {
				return m, fmt.Errorf("unknown required certification %s", c)
			}
		}
	}
	m.Location = e.defaultLocation(m.Location)
	now := e.nowStr()
	m.PilotID = nil
	m.DroneID = nil
	m.CreatedAt = now
	m.UpdatedAt = now
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return m, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertMissionTx(ctx, tx, m); err != nil {
		return m, err
	}
	if err := e.Events.Append(ctx, tx, "mission.created", "mission", m.ID, actorID, events.EventPayload{
		"priority": m.Priority,
		"location": m.Location,
	}); err != nil {
		return m, err
	}
	if err := tx.Commit(); err != nil {
		return m, err
	}
	return m, nil
}

// SetPilotStatus moves a pilot to available or unavailable, releasing any
// current assignment so the status/mission invariant holds. Assigned is not a
// settable status; it only results from a committed assignment.
func (e Engine) SetPilotStatus(ctx context.Context, id, status, actorID string) (domain.Pilot, error) {
	if status != domain.StatusAvailable && status != domain.StatusUnavailable {
		return domain.Pilot{}, fmt.Errorf("invalid pilot status %s; one of: available, unavailable", status)
	}
	p, err := e.Repo.GetPilot(ctx, id)
	if err != nil {
		return p, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()
	now := e.nowStr()
	if err := e.Repo.SetPilotStateTx(ctx, tx, id, status, nil, now); err != nil {
		return p, err
	}
	if p.MissionID != nil {
		if err := e.Repo.ClearMissionRefTx(ctx, tx, domain.KindPilot, *p.MissionID, now); err != nil {
			return p, err
		}
	}
	if err := e.Events.Append(ctx, tx, "pilot.status", domain.KindPilot, id, actorID, events.EventPayload{
		"from": p.Status,
		"to":   status,
	}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	p.Status = status
	p.MissionID = nil
	p.UpdatedAt = now
	return p, nil
}

// SetDroneStatus moves a drone to available or maintenance, releasing any
// current assignment.
func (e Engine) SetDroneStatus(ctx context.Context, id, status, actorID string) (domain.Drone, error) {
	if status != domain.StatusAvailable && status != domain.StatusMaintenance {
		return domain.Drone{}, fmt.Errorf("invalid drone status %s; one of: available, maintenance", status)
	}
	d, err := e.Repo.GetDrone(ctx, id)
	if err != nil {
		return d, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return d, err
	}
	defer tx.Rollback()
	now := e.nowStr()
	if err := e.Repo.SetDroneStateTx(ctx, tx, id, status, nil, now); err != nil {
		return d, err
	}
	if d.MissionID != nil {
		if err := e.Repo.ClearMissionRefTx(ctx, tx, domain.KindDrone, *d.MissionID, now); err != nil {
			return d, err
		}
	}
	if err := e.Events.Append(ctx, tx, "drone.status", domain.KindDrone, id, actorID, events.EventPayload{
		"from": d.Status,
		"to":   status,
	}); err != nil {
		return d, err
	}
	if err := tx.Commit(); err != nil {
		return d, err
	}
	d.Status = status
	d.MissionID = nil
	d.UpdatedAt = now
	return d, nil
}

// SetDroneMaintenanceDue updates the next maintenance date.
func (e Engine) SetDroneMaintenanceDue(ctx context.Context, id, due, actorID string) (domain.Drone, error) {
	if due != "" && !validDate(due) {
		return domain.Drone{}, fmt.Errorf("maintenance_due %s is not a date (YYYY-MM-DD)", due)
	}
	if err := e.Repo.SetDroneMaintenanceDue(ctx, id, due, e.nowStr()); err != nil {
		return domain.Drone{}, err
	}
	return e.Repo.GetDrone(ctx, id)
}
