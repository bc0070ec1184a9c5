package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"flightline/internal/config"
	"flightline/internal/db"
	"flightline/internal/domain"
	"flightline/internal/engine"
	"flightline/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("fleet-1"))
	e.Now = func() time.Time { return time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC) }
	handler, err := New(Config{Engine: e, BasePath: "/v0"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func seedRoster(t *testing.T, srv *testServer) {
	t.Helper()
	client := srv.Client()
	for _, req := range []struct {
		path string
		body map[string]any
	}{
		{"/v0/missions", map[string]any{
			"id": "M1", "priority": "normal",
			"required_skills": []string{"Mapping"}, "required_certs": []string{"DGCA"},
			"start_date": "2026-03-01", "end_date": "2026-03-05",
		}},
		{"/v0/missions", map[string]any{
			"id": "M2", "priority": "urgent",
			"required_skills": []string{"Mapping"}, "required_certs": []string{"DGCA"},
			"start_date": "2026-03-02", "end_date": "2026-03-06",
		}},
		{"/v0/pilots", map[string]any{
			"id": "P1", "name": "Asha",
			"skills": []string{"Mapping"}, "certifications": []string{"DGCA"},
		}},
		{"/v0/drones", map[string]any{
			"id": "D1", "model": "Skylark X4",
			"capabilities": []string{"RGB"}, "maintenance_due": "2026-12-01",
		}},
	} {
		res, data := doJSON(t, client, http.MethodPost, srv.URL+req.path, req.body)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("seed %s status %d: %s", req.path, res.StatusCode, string(data))
		}
	}
}

func TestHealth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}

func TestAssignmentFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	seedRoster(t, srv)
	client := srv.Client()

	// validate is read-only and reports no findings for a clean pairing
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/assignments/validate", map[string]any{
		"mission_id": "M1", "pilot_id": "P1", "drone_id": "D1",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("validate status %d: %s", res.StatusCode, string(data))
	}
	var vr ValidationResponse
	if err := json.Unmarshal(data, &vr); err != nil {
		t.Fatalf("unmarshal validation: %v", err)
	}
	if len(vr.Findings) != 0 {
		t.Fatalf("expected no findings: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/assignments", map[string]any{
		"mission_id": "M1", "pilot_id": "P1", "drone_id": "D1",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("commit status %d: %s", res.StatusCode, string(data))
	}

	// a double booking is refused with the findings in the error envelope
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/assignments", map[string]any{
		"mission_id": "M2", "pilot_id": "P1",
	})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "validation_blocked" {
		t.Fatalf("expected validation_blocked, got %s", envelope.Error.Code)
	}
	if envelope.Error.Details["findings"] == nil {
		t.Fatalf("expected findings in details: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/pilots/P1", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get pilot status %d", res.StatusCode)
	}
	var p domain.Pilot
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal pilot: %v", err)
	}
	if p.Status != domain.StatusAssigned || p.MissionID == nil || *p.MissionID != "M1" {
		t.Fatalf("pilot state after commit: %s", string(data))
	}
}

func TestAssignmentOverrideRequired(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	seedRoster(t, srv)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/pilots", map[string]any{
		"id": "P9", "name": "Meera", "location": "Delhi",
		"skills": []string{"Mapping"}, "certifications": []string{"DGCA"},
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create pilot status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/assignments", map[string]any{
		"mission_id": "M1", "pilot_id": "P9",
	})
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/assignments", map[string]any{
		"mission_id": "M1", "pilot_id": "P9", "override": true,
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("override commit status %d: %s", res.StatusCode, string(data))
	}
}

func TestReallocationFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	seedRoster(t, srv)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/assignments", map[string]any{
		"mission_id": "M1", "pilot_id": "P1", "drone_id": "D1",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("staffing status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/reallocations", map[string]any{
		"source_mission_id": "M1", "target_mission_id": "M2",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("plan status %d: %s", res.StatusCode, string(data))
	}
	var plan domain.ReallocationPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		t.Fatalf("unmarshal plan: %v", err)
	}
	if plan.Status != domain.PlanProposed || len(plan.Moves) != 2 {
		t.Fatalf("unexpected plan: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/reallocations/"+plan.ID+"/confirm", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("confirm status %d: %s", res.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, &plan); err != nil {
		t.Fatalf("unmarshal confirmed plan: %v", err)
	}
	if plan.Status != domain.PlanExecuted {
		t.Fatalf("expected executed, got %s", plan.Status)
	}

	// inverted direction is refused
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/reallocations", map[string]any{
		"source_mission_id": "M2", "target_mission_id": "M1",
	})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 priority inversion, got %d: %s", res.StatusCode, string(data))
	}
}

func TestEventsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	seedRoster(t, srv)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/events?type=pilot.created", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events status %d: %s", res.StatusCode, string(data))
	}
	var events []domain.Event
	if err := json.Unmarshal(data, &events); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(events) != 1 || events[0].EntityID != "P1" {
		t.Fatalf("expected one pilot.created event: %s", string(data))
	}
}

func TestNotFoundEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/pilots/ghost", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Error.Code != "not_found" {
		t.Fatalf("expected not_found code, got %q", envelope.Error.Code)
	}
}
