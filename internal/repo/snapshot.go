package repo

import (
	"context"
	"time"

	"flightline/internal/dispatch"
	"flightline/internal/domain"
)

// LoadSnapshot reads every pilot, drone and mission into an immutable
// snapshot for the dispatch core. One wholesale read; no caching.
func (r Repo) LoadSnapshot(ctx context.Context, today time.Time) (dispatch.Snapshot, error) {
	s := dispatch.Snapshot{
		Pilots:   map[string]domain.Pilot{},
		Drones:   map[string]domain.Drone{},
		Missions: map[string]domain.Mission{},
		Today:    today,
	}
	pilots, err := r.ListPilots(ctx, PilotFilter{})
	if err != nil {
		return s, err
	}
	for _, p := range pilots {
		s.Pilots[p.ID] = p
	}
	drones, err := r.ListDrones(ctx, DroneFilter{})
	if err != nil {
		return s, err
	}
	for _, d := range drones {
		s.Drones[d.ID] = d
	}
	missions, err := r.ListMissions(ctx, MissionFilter{})
	if err != nil {
		return s, err
	}
	for _, m := range missions {
		s.Missions[m.ID] = m
	}
	return s, nil
}
