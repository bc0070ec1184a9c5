package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"flightline/internal/config"
	"flightline/internal/db"
	"flightline/internal/engine"
	"flightline/internal/migrate"
	"flightline/internal/server"
)

func main() {
	workspace := "/tmp/flightline-smoke"
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		panic(err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		panic(err)
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		panic(err)
	}
	cfg := config.Default("smoke-fleet")
	e := engine.New(conn, cfg)
	h, err := server.New(server.Config{Engine: e, BasePath: "/v0"})
	if err != nil {
		panic(err)
	}
	ts := httptest.NewServer(h)
	defer ts.Close()

	post(ts.URL+"/v0/missions", map[string]any{
		"id": "M1", "priority": "urgent",
		"required_skills": []string{"Mapping"},
		"start_date":      "2026-09-01", "end_date": "2026-09-05",
	})
	post(ts.URL+"/v0/pilots", map[string]any{
		"id": "P1", "name": "Asha",
		"skills": []string{"Mapping"}, "certifications": []string{"DGCA"},
	})
	post(ts.URL+"/v0/drones", map[string]any{
		"id": "D1", "model": "Skylark X4",
		"capabilities": []string{"RGB"}, "maintenance_due": "2027-01-01",
	})
	post(ts.URL+"/v0/assignments", map[string]any{
		"mission_id": "M1", "pilot_id": "P1", "drone_id": "D1",
	})
}

func post(url string, body map[string]any) {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer res.Body.Close()
	var resp any
	_ = json.NewDecoder(res.Body).Decode(&resp)
	fmt.Printf("POST %s status=%d resp=%v\n", url, res.StatusCode, resp)
}
