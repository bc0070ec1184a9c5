package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"flightline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// ErrStaleSnapshot means a mutation's compare-and-set precondition failed:
// the record changed after the snapshot was taken. The caller must refresh
// and re-run detection.
var ErrStaleSnapshot = errors.New("state changed since snapshot; refresh and retry")

func marshalList(in []string) string {
	if len(in) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(in)
	return string(b)
}

func unmarshalList(in string) []string {
	if in == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(in), &out)
	return out
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullablePtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// --- pilots ---

func (r Repo) InsertPilot(ctx context.Context, p domain.Pilot) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO pilots(id,name,location,skills_json,certifications_json,status,mission_id,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.Location, marshalList(p.Skills), marshalList(p.Certifications), p.Status, nullablePtr(p.MissionID), p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) InsertPilotTx(ctx context.Context, tx *sql.Tx, p domain.Pilot) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO pilots(id,name,location,skills_json,certifications_json,status,mission_id,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.Location, marshalList(p.Skills), marshalList(p.Certifications), p.Status, nullablePtr(p.MissionID), p.CreatedAt, p.UpdatedAt)
	return err
}

func scanPilot(scan func(dest ...any) error) (domain.Pilot, error) {
	var p domain.Pilot
	var skills, certs string
	var mission sql.NullString
	err := scan(&p.ID, &p.Name, &p.Location, &skills, &certs, &p.Status, &mission, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.Skills = unmarshalList(skills)
	p.Certifications = unmarshalList(certs)
	if mission.Valid {
		p.MissionID = &mission.String
	}
	return p, nil
}

const pilotCols = `id,name,location,skills_json,certifications_json,status,mission_id,created_at,updated_at`

func (r Repo) GetPilot(ctx context.Context, id string) (domain.Pilot, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+pilotCols+` FROM pilots WHERE id=?`, id)
	return scanPilot(row.Scan)
}

// PilotFilter narrows ListPilots. Skill matches case-insensitively against
// any of the pilot's skills.
type PilotFilter struct {
	Skill    string
	Location string
	Status   string
}

func (r Repo) ListPilots(ctx context.Context, f PilotFilter) ([]domain.Pilot, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if f.Location != "" {
		clauses = append(clauses, "LOWER(location)=LOWER(?)")
		args = append(args, f.Location)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	query := `SELECT ` + pilotCols + ` FROM pilots WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Pilot
	for rows.Next() {
		p, err := scanPilot(rows.Scan)
		if err != nil {
			return nil, err
		}
		if f.Skill != "" && !matchesAny(p.Skills, f.Skill) {
			continue
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// --- drones ---

func (r Repo) InsertDrone(ctx context.Context, d domain.Drone) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO drones(id,model,location,capabilities_json,status,mission_id,maintenance_due,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		d.ID, d.Model, d.Location, marshalList(d.Capabilities), d.Status, nullablePtr(d.MissionID), nullable(d.MaintenanceDue), d.CreatedAt, d.UpdatedAt)
	return err
}

func (r Repo) InsertDroneTx(ctx context.Context, tx *sql.Tx, d domain.Drone) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO drones(id,model,location,capabilities_json,status,mission_id,maintenance_due,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		d.ID, d.Model, d.Location, marshalList(d.Capabilities), d.Status, nullablePtr(d.MissionID), nullable(d.MaintenanceDue), d.CreatedAt, d.UpdatedAt)
	return err
}

func scanDrone(scan func(dest ...any) error) (domain.Drone, error) {
	var d domain.Drone
	var caps string
	var mission, due sql.NullString
	err := scan(&d.ID, &d.Model, &d.Location, &caps, &d.Status, &mission, &due, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	d.Capabilities = unmarshalList(caps)
	if mission.Valid {
		d.MissionID = &mission.String
	}
	if due.Valid {
		d.MaintenanceDue = due.String
	}
	return d, nil
}

const droneCols = `id,model,location,capabilities_json,status,mission_id,maintenance_due,created_at,updated_at`

func (r Repo) GetDrone(ctx context.Context, id string) (domain.Drone, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+droneCols+` FROM drones WHERE id=?`, id)
	return scanDrone(row.Scan)
}

// DroneFilter narrows ListDrones.
type DroneFilter struct {
	Capability string
	Location   string
	Status     string
}

func (r Repo) ListDrones(ctx context.Context, f DroneFilter) ([]domain.Drone, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if f.Location != "" {
		clauses = append(clauses, "LOWER(location)=LOWER(?)")
		args = append(args, f.Location)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	query := `SELECT ` + droneCols + ` FROM drones WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Drone
	for rows.Next() {
		d, err := scanDrone(rows.Scan)
		if err != nil {
			return nil, err
		}
		if f.Capability != "" && !matchesAny(d.Capabilities, f.Capability) {
			continue
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// --- missions ---

func (r Repo) InsertMission(ctx context.Context, m domain.Mission) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO missions(id,name,location,priority,required_skills_json,required_certs_json,start_date,end_date,pilot_id,drone_id,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, nullable(m.Name), m.Location, m.Priority, marshalList(m.RequiredSkills), marshalList(m.RequiredCerts),
		m.StartDate, m.EndDate, nullablePtr(m.PilotID), nullablePtr(m.DroneID), m.CreatedAt, m.UpdatedAt)
	return err
}

func (r Repo) InsertMissionTx(ctx context.Context, tx *sql.Tx, m domain.Mission) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO missions(id,name,location,priority,required_skills_json,required_certs_json,start_date,end_date,pilot_id,drone_id,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, nullable(m.Name), m.Location, m.Priority, marshalList(m.RequiredSkills), marshalList(m.RequiredCerts),
		m.StartDate, m.EndDate, nullablePtr(m.PilotID), nullablePtr(m.DroneID), m.CreatedAt, m.UpdatedAt)
	return err
}

func scanMission(scan func(dest ...any) error) (domain.Mission, error) {
	var m domain.Mission
	var name, pilot, drone sql.NullString
	var skills, certs string
	err := scan(&m.ID, &name, &m.Location, &m.Priority, &skills, &certs, &m.StartDate, &m.EndDate, &pilot, &drone, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	if name.Valid {
		m.Name = name.String
	}
	m.RequiredSkills = unmarshalList(skills)
	m.RequiredCerts = unmarshalList(certs)
	if pilot.Valid {
		m.PilotID = &pilot.String
	}
	if drone.Valid {
		m.DroneID = &drone.String
	}
	return m, nil
}

const missionCols = `id,name,location,priority,required_skills_json,required_certs_json,start_date,end_date,pilot_id,drone_id,created_at,updated_at`

func (r Repo) GetMission(ctx context.Context, id string) (domain.Mission, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+missionCols+` FROM missions WHERE id=?`, id)
	return scanMission(row.Scan)
}

// MissionFilter narrows ListMissions.
type MissionFilter struct {
	Location string
	Priority string
}

func (r Repo) ListMissions(ctx context.Context, f MissionFilter) ([]domain.Mission, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if f.Location != "" {
		clauses = append(clauses, "LOWER(location)=LOWER(?)")
		args = append(args, f.Location)
	}
	if f.Priority != "" {
		clauses = append(clauses, "priority=?")
		args = append(args, f.Priority)
	}
	query := `SELECT ` + missionCols + ` FROM missions WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY start_date ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Mission
	for rows.Next() {
		m, err := scanMission(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// --- events ---

func (r Repo) LatestEvents(ctx context.Context, n int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if n <= 0 {
		n = 20
	}
	args = append(args, n)
	query := `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY id DESC LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func matchesAny(have []string, want string) bool {
	for _, h := range have {
		if strings.Contains(strings.ToLower(h), strings.ToLower(want)) {
			return true
		}
	}
	return false
}
