package server

import (
	"flightline/internal/domain"
)

// Request payloads

type CreatePilotRequest struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Location       string   `json:"location,omitempty"`
	Skills         []string `json:"skills,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
	Status         string   `json:"status,omitempty" enum:",available,unavailable"`
}

type CreateDroneRequest struct {
	ID             string   `json:"id"`
	Model          string   `json:"model"`
	Location       string   `json:"location,omitempty"`
	Capabilities   []string `json:"capabilities,omitempty"`
	Status         string   `json:"status,omitempty" enum:",available,maintenance"`
	MaintenanceDue string   `json:"maintenance_due,omitempty" format:"date"`
}

type CreateMissionRequest struct {
	ID             string   `json:"id"`
	Name           string   `json:"name,omitempty"`
	Location       string   `json:"location,omitempty"`
	Priority       string   `json:"priority,omitempty" enum:",normal,high,urgent"`
	RequiredSkills []string `json:"required_skills,omitempty"`
	RequiredCerts  []string `json:"required_certs,omitempty"`
	StartDate      string   `json:"start_date" format:"date"`
	EndDate        string   `json:"end_date" format:"date"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type SetMaintenanceDueRequest struct {
	MaintenanceDue string `json:"maintenance_due" format:"date"`
}

type AssignmentRequestBody struct {
	MissionID string  `json:"mission_id"`
	PilotID   *string `json:"pilot_id,omitempty"`
	DroneID   *string `json:"drone_id,omitempty"`
	Override  bool    `json:"override,omitempty"`
}

func (b AssignmentRequestBody) toDomain() domain.AssignmentRequest {
	return domain.AssignmentRequest{
		MissionID: b.MissionID,
		PilotID:   b.PilotID,
		DroneID:   b.DroneID,
		Override:  b.Override,
	}
}

type CreatePlanRequest struct {
	SourceMissionID string `json:"source_mission_id"`
	TargetMissionID string `json:"target_mission_id"`
}

// Response payloads

type ValidationResponse struct {
	Findings []domain.Finding `json:"findings"`
}

type FleetStatusResponse struct {
	FleetID  string         `json:"fleet_id"`
	Pilots   map[string]int `json:"pilots"`
	Drones   map[string]int `json:"drones"`
	Missions map[string]int `json:"missions"`
}
