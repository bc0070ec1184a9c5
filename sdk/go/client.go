package flightlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Flightline HTTP API client.
type Client struct {
	BaseURL    string
	ActorID    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Pilot represents the API pilot model.
type Pilot struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Location       string   `json:"location"`
	Skills         []string `json:"skills"`
	Certifications []string `json:"certifications"`
	Status         string   `json:"status"`
	MissionID      *string  `json:"mission_id,omitempty"`
}

// Drone represents the API drone model.
type Drone struct {
	ID             string   `json:"id"`
	Model          string   `json:"model"`
	Location       string   `json:"location"`
	Capabilities   []string `json:"capabilities"`
	Status         string   `json:"status"`
	MissionID      *string  `json:"mission_id,omitempty"`
	MaintenanceDue string   `json:"maintenance_due,omitempty"`
}

// Mission represents the API mission model.
type Mission struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Location       string   `json:"location"`
	Priority       string   `json:"priority"`
	RequiredSkills []string `json:"required_skills"`
	RequiredCerts  []string `json:"required_certs"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	PilotID        *string  `json:"pilot_id,omitempty"`
	DroneID        *string  `json:"drone_id,omitempty"`
}

// Finding is a single rule violation or warning.
type Finding struct {
	Code         string `json:"code"`
	Severity     string `json:"severity"`
	Message      string `json:"message"`
	ResourceKind string `json:"resource_kind,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
}

// Resolution is the outcome of an assignment request.
type Resolution struct {
	Outcome  string    `json:"outcome"`
	Findings []Finding `json:"findings"`
}

// ResourceMove is one proposed movement inside a reallocation plan.
type ResourceMove struct {
	ResourceKind       string    `json:"resource_kind"`
	ResourceID         string    `json:"resource_id"`
	Findings           []Finding `json:"findings,omitempty"`
	DelayDays          int       `json:"delay_days,omitempty"`
	DelayIndeterminate bool      `json:"delay_indeterminate,omitempty"`
}

// ReallocationPlan is a two-phase plan: proposed until confirmed or rejected.
type ReallocationPlan struct {
	ID              string         `json:"id"`
	SourceMissionID string         `json:"source_mission_id"`
	TargetMissionID string         `json:"target_mission_id"`
	Moves           []ResourceMove `json:"moves"`
	Status          string         `json:"status"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreatePilot registers a pilot.
func (c *Client) CreatePilot(ctx context.Context, p Pilot) (Pilot, error) {
	var resp Pilot
	err := c.do(ctx, http.MethodPost, "v0/pilots", p, &resp)
	return resp, err
}

// GetPilot fetches a pilot by id.
func (c *Client) GetPilot(ctx context.Context, id string) (Pilot, error) {
	var resp Pilot
	err := c.do(ctx, http.MethodGet, "v0/pilots/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListPilots returns pilots matching the given filters; empty values match all.
func (c *Client) ListPilots(ctx context.Context, skill, location, status string) ([]Pilot, error) {
	var resp []Pilot
	err := c.do(ctx, http.MethodGet, "v0/pilots"+query(map[string]string{
		"skill": skill, "location": location, "status": status,
	}), nil, &resp)
	return resp, err
}

// SetPilotStatus sets a pilot available or unavailable, releasing any assignment.
func (c *Client) SetPilotStatus(ctx context.Context, id, status string) (Pilot, error) {
	var resp Pilot
	err := c.do(ctx, http.MethodPatch, "v0/pilots/"+url.PathEscape(id)+"/status",
		map[string]any{"status": status}, &resp)
	return resp, err
}

// CreateDrone registers a drone.
func (c *Client) CreateDrone(ctx context.Context, d Drone) (Drone, error) {
	var resp Drone
	err := c.do(ctx, http.MethodPost, "v0/drones", d, &resp)
	return resp, err
}

// GetDrone fetches a drone by id.
func (c *Client) GetDrone(ctx context.Context, id string) (Drone, error) {
	var resp Drone
	err := c.do(ctx, http.MethodGet, "v0/drones/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListDrones returns drones matching the given filters; empty values match all.
func (c *Client) ListDrones(ctx context.Context, capability, location, status string) ([]Drone, error) {
	var resp []Drone
	err := c.do(ctx, http.MethodGet, "v0/drones"+query(map[string]string{
		"capability": capability, "location": location, "status": status,
	}), nil, &resp)
	return resp, err
}

// SetDroneStatus sets a drone available or into maintenance, releasing any assignment.
func (c *Client) SetDroneStatus(ctx context.Context, id, status string) (Drone, error) {
	var resp Drone
	err := c.do(ctx, http.MethodPatch, "v0/drones/"+url.PathEscape(id)+"/status",
		map[string]any{"status": status}, &resp)
	return resp, err
}

// SetDroneMaintenanceDue sets the next maintenance date.
func (c *Client) SetDroneMaintenanceDue(ctx context.Context, id, due string) (Drone, error) {
	var resp Drone
	err := c.do(ctx, http.MethodPatch, "v0/drones/"+url.PathEscape(id)+"/maintenance",
		map[string]any{"maintenance_due": due}, &resp)
	return resp, err
}

// CreateMission registers a mission.
func (c *Client) CreateMission(ctx context.Context, m Mission) (Mission, error) {
	var resp Mission
	err := c.do(ctx, http.MethodPost, "v0/missions", m, &resp)
	return resp, err
}

// GetMission fetches a mission by id.
func (c *Client) GetMission(ctx context.Context, id string) (Mission, error) {
	var resp Mission
	err := c.do(ctx, http.MethodGet, "v0/missions/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListMissions returns missions matching the given filters; empty values match all.
func (c *Client) ListMissions(ctx context.Context, location, priority string) ([]Mission, error) {
	var resp []Mission
	err := c.do(ctx, http.MethodGet, "v0/missions"+query(map[string]string{
		"location": location, "priority": priority,
	}), nil, &resp)
	return resp, err
}

// ValidateAssignment reports findings for a pairing without committing it.
func (c *Client) ValidateAssignment(ctx context.Context, missionID string, pilotID, droneID *string) ([]Finding, error) {
	var resp struct {
		Findings []Finding `json:"findings"`
	}
	err := c.do(ctx, http.MethodPost, "v0/assignments/validate",
		assignmentBody(missionID, pilotID, droneID, false), &resp)
	return resp.Findings, err
}

// CommitAssignment validates and commits a pairing. Refused assignments
// surface as an APIError with the findings in the response body.
func (c *Client) CommitAssignment(ctx context.Context, missionID string, pilotID, droneID *string, override bool) (Resolution, error) {
	var resp Resolution
	err := c.do(ctx, http.MethodPost, "v0/assignments",
		assignmentBody(missionID, pilotID, droneID, override), &resp)
	return resp, err
}

// PlanReallocation proposes moving resources from source to target.
func (c *Client) PlanReallocation(ctx context.Context, sourceMissionID, targetMissionID string) (ReallocationPlan, error) {
	var resp ReallocationPlan
	err := c.do(ctx, http.MethodPost, "v0/reallocations", map[string]any{
		"source_mission_id": sourceMissionID,
		"target_mission_id": targetMissionID,
	}, &resp)
	return resp, err
}

// GetReallocation fetches a plan by id.
func (c *Client) GetReallocation(ctx context.Context, id string) (ReallocationPlan, error) {
	var resp ReallocationPlan
	err := c.do(ctx, http.MethodGet, "v0/reallocations/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ConfirmReallocation confirms and executes a proposed plan.
func (c *Client) ConfirmReallocation(ctx context.Context, id string) (ReallocationPlan, error) {
	var resp ReallocationPlan
	err := c.do(ctx, http.MethodPost, "v0/reallocations/"+url.PathEscape(id)+"/confirm", nil, &resp)
	return resp, err
}

// RejectReallocation rejects a proposed plan.
func (c *Client) RejectReallocation(ctx context.Context, id string) (ReallocationPlan, error) {
	var resp ReallocationPlan
	err := c.do(ctx, http.MethodPost, "v0/reallocations/"+url.PathEscape(id)+"/reject", nil, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func assignmentBody(missionID string, pilotID, droneID *string, override bool) map[string]any {
	body := map[string]any{"mission_id": missionID}
	if pilotID != nil {
		body["pilot_id"] = *pilotID
	}
	if droneID != nil {
		body["drone_id"] = *droneID
	}
	if override {
		body["override"] = true
	}
	return body
}

func query(params map[string]string) string {
	v := url.Values{}
	for k, val := range params {
		if val != "" {
			v.Set(k, val)
		}
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.ActorID != "" {
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
