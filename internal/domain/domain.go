package domain

// Resource statuses. Pilots use available/assigned/unavailable,
// drones use available/assigned/maintenance.
const (
	StatusAvailable   = "available"
	StatusAssigned    = "assigned"
	StatusUnavailable = "unavailable"
	StatusMaintenance = "maintenance"
)

// Mission priorities, ascending.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Finding severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Finding codes.
const (
	CodeDoubleBooking       = "double_booking"
	CodeResourceUnavailable = "resource_unavailable"
	CodeCertMismatch        = "cert_mismatch"
	CodeSkillMismatch       = "skill_mismatch"
	CodeMaintenanceActive   = "maintenance_active"
	CodeMaintenanceDueSoon  = "maintenance_due_soon"
	CodeLocationMismatch    = "location_mismatch"
)

// Resource kinds.
const (
	KindPilot = "pilot"
	KindDrone = "drone"
)

type Pilot struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Location       string   `json:"location"`
	Skills         []string `json:"skills,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
	Status         string   `json:"status" enum:"available,assigned,unavailable"`
	MissionID      *string  `json:"mission_id,omitempty"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
	UpdatedAt      string   `json:"updated_at" format:"date-time"`
}

type Drone struct {
	ID             string   `json:"id"`
	Model          string   `json:"model"`
	Location       string   `json:"location"`
	Capabilities   []string `json:"capabilities,omitempty"`
	Status         string   `json:"status" enum:"available,assigned,maintenance"`
	MissionID      *string  `json:"mission_id,omitempty"`
	MaintenanceDue string   `json:"maintenance_due,omitempty" format:"date"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
	UpdatedAt      string   `json:"updated_at" format:"date-time"`
}

type Mission struct {
	ID             string   `json:"id"`
	Name           string   `json:"name,omitempty"`
	Location       string   `json:"location"`
	Priority       string   `json:"priority" enum:"normal,high,urgent"`
	RequiredSkills []string `json:"required_skills,omitempty"`
	RequiredCerts  []string `json:"required_certs,omitempty"`
	StartDate      string   `json:"start_date" format:"date"`
	EndDate        string   `json:"end_date" format:"date"`
	PilotID        *string  `json:"pilot_id,omitempty"`
	DroneID        *string  `json:"drone_id,omitempty"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
	UpdatedAt      string   `json:"updated_at" format:"date-time"`
}

// Finding is a single detected rule violation for a proposed assignment.
type Finding struct {
	Severity     string `json:"severity" enum:"critical,warning"`
	Code         string `json:"code" enum:"double_booking,resource_unavailable,cert_mismatch,skill_mismatch,maintenance_active,maintenance_due_soon,location_mismatch"`
	Message      string `json:"message"`
	ResourceKind string `json:"resource_kind" enum:"pilot,drone"`
	ResourceID   string `json:"resource_id"`
	MissionID    string `json:"mission_id"`
}

// AssignmentRequest proposes assigning a pilot and/or a drone to a mission.
// Override acknowledges warning-level findings; it never bypasses criticals.
type AssignmentRequest struct {
	MissionID string  `json:"mission_id"`
	PilotID   *string `json:"pilot_id,omitempty"`
	DroneID   *string `json:"drone_id,omitempty"`
	Override  bool    `json:"override,omitempty"`
}

// Mutation kinds.
const (
	MutationAssignPilot   = "assign_pilot"
	MutationAssignDrone   = "assign_drone"
	MutationUnassignPilot = "unassign_pilot"
	MutationUnassignDrone = "unassign_drone"
)

// Mutation is a self-contained state change command. PriorStatus and
// PriorMission carry the snapshot assumptions the store verifies before
// applying (compare-and-set).
type Mutation struct {
	Kind         string  `json:"kind" enum:"assign_pilot,assign_drone,unassign_pilot,unassign_drone"`
	ResourceID   string  `json:"resource_id"`
	MissionID    *string `json:"mission_id,omitempty"`
	PriorStatus  string  `json:"prior_status"`
	PriorMission *string `json:"prior_mission,omitempty"`
}

// Reallocation plan statuses.
const (
	PlanProposed          = "proposed"
	PlanConfirmed         = "confirmed"
	PlanExecuted          = "executed"
	PlanRejected          = "rejected"
	PlanPartiallyExecuted = "partially_executed"
)

// ResourceMove is one resource transfer within a reallocation plan.
// DelayIndeterminate is set when the source mission keeps no alternative
// resource of the same kind and may stall entirely.
type ResourceMove struct {
	ResourceKind       string    `json:"resource_kind" enum:"pilot,drone"`
	ResourceID         string    `json:"resource_id"`
	Findings           []Finding `json:"findings,omitempty"`
	DelayDays          int       `json:"delay_days,omitempty"`
	DelayIndeterminate bool      `json:"delay_indeterminate,omitempty"`
}

type ReallocationPlan struct {
	ID              string         `json:"id"`
	SourceMissionID string         `json:"source_mission_id"`
	TargetMissionID string         `json:"target_mission_id"`
	Moves           []ResourceMove `json:"moves"`
	Status          string         `json:"status" enum:"proposed,confirmed,executed,rejected,partially_executed"`
	CreatedAt       string         `json:"created_at" format:"date-time"`
	UpdatedAt       string         `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// PriorityRank orders mission priorities; unknown values rank lowest.
func PriorityRank(p string) int {
	switch p {
	case PriorityNormal:
		return 1
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	default:
		return 0
	}
}
