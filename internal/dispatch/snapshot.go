// Package dispatch is the assignment validation and reallocation planning
// core. Everything here is a pure function over an immutable Snapshot; the
// caller supplies the snapshot, applies the returned mutations, and feeds the
// next snapshot back in.
package dispatch

import (
	"errors"
	"sort"
	"time"

	"flightline/internal/domain"
)

var (
	ErrNotFound            = errors.New("not found in snapshot")
	ErrPriorityInversion   = errors.New("target priority must exceed source priority")
	ErrNoEligibleResources = errors.New("no eligible resources to reallocate")
)

// Snapshot is a point-in-time view of all records. It is never mutated by
// this package.
type Snapshot struct {
	Pilots   map[string]domain.Pilot
	Drones   map[string]domain.Drone
	Missions map[string]domain.Mission
	Today    time.Time
}

// PilotsAssignedTo returns ids of pilots assigned to a mission, sorted.
func (s Snapshot) PilotsAssignedTo(missionID string) []string {
	var ids []string
	for id, p := range s.Pilots {
		if p.Status == domain.StatusAssigned && p.MissionID != nil && *p.MissionID == missionID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// DronesAssignedTo returns ids of drones assigned to a mission, sorted.
func (s Snapshot) DronesAssignedTo(missionID string) []string {
	var ids []string
	for id, d := range s.Drones {
		if d.Status == domain.StatusAssigned && d.MissionID != nil && *d.MissionID == missionID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
