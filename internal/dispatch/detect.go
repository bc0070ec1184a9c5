package dispatch

import (
	"fmt"
	"sort"
	"strings"

	"flightline/internal/domain"
)

// DefaultMaintenanceMargin is the safety margin, in days past the mission
// start, within which a due maintenance raises a warning.
const DefaultMaintenanceMargin = 7

// Options tune a detection run.
type Options struct {
	// VacatingMission suppresses the double-booking check for a resource whose
	// current assignment is the mission being vacated by a reallocation.
	VacatingMission string
	// MaintenanceMarginDays overrides DefaultMaintenanceMargin; zero keeps the
	// default.
	MaintenanceMarginDays int
}

func (o Options) margin() int {
	if o.MaintenanceMarginDays > 0 {
		return o.MaintenanceMarginDays
	}
	return DefaultMaintenanceMargin
}

// resource is the kind-neutral view the rules evaluate.
type resource struct {
	kind           string
	id             string
	label          string
	location       string
	status         string
	missionID      *string
	skills         []string
	certifications []string
	maintenanceDue string
}

type ruleContext struct {
	mission domain.Mission
	res     resource
	opts    Options
}

type rule struct {
	code string
	run  func(rc ruleContext) []domain.Finding
}

// Rules run in this order for every resource in the request. The order is
// part of the contract: output must be stable across runs.
var rules = []rule{
	{domain.CodeDoubleBooking, checkDoubleBooking},
	{domain.CodeResourceUnavailable, checkUnavailable},
	{domain.CodeCertMismatch, checkCertMismatch},
	{domain.CodeSkillMismatch, checkSkillMismatch},
	{domain.CodeMaintenanceActive, checkMaintenance},
	{domain.CodeLocationMismatch, checkLocationMismatch},
}

// Detect evaluates a proposed assignment against the snapshot and returns
// every applicable finding, ordered. It never short-circuits: a single
// request can yield findings across severities.
func Detect(s Snapshot, req domain.AssignmentRequest) ([]domain.Finding, error) {
	return DetectWith(s, req, Options{})
}

// DetectWith is Detect with explicit options.
func DetectWith(s Snapshot, req domain.AssignmentRequest, opts Options) ([]domain.Finding, error) {
	mission, ok := s.Missions[req.MissionID]
	if !ok {
		return nil, fmt.Errorf("mission %s: %w", req.MissionID, ErrNotFound)
	}
	var resources []resource
	if req.PilotID != nil {
		p, ok := s.Pilots[*req.PilotID]
		if !ok {
			return nil, fmt.Errorf("pilot %s: %w", *req.PilotID, ErrNotFound)
		}
		resources = append(resources, resource{
			kind:           domain.KindPilot,
			id:             p.ID,
			label:          p.Name,
			location:       p.Location,
			status:         p.Status,
			missionID:      p.MissionID,
			skills:         p.Skills,
			certifications: p.Certifications,
		})
	}
	if req.DroneID != nil {
		d, ok := s.Drones[*req.DroneID]
		if !ok {
			return nil, fmt.Errorf("drone %s: %w", *req.DroneID, ErrNotFound)
		}
		resources = append(resources, resource{
			kind:           domain.KindDrone,
			id:             d.ID,
			label:          d.Model,
			location:       d.Location,
			status:         d.Status,
			missionID:      d.MissionID,
			maintenanceDue: d.MaintenanceDue,
		})
	}
	var findings []domain.Finding
	for _, res := range resources {
		rc := ruleContext{mission: mission, res: res, opts: opts}
		for _, r := range rules {
			findings = append(findings, r.run(rc)...)
		}
	}
	return findings, nil
}

// HasCritical reports whether any finding is critical.
func HasCritical(findings []domain.Finding) bool {
	for _, f := range findings {
		if f.Severity == domain.SeverityCritical {
			return true
		}
	}
	return false
}

func (rc ruleContext) finding(severity, code, message string) []domain.Finding {
	return []domain.Finding{{
		Severity:     severity,
		Code:         code,
		Message:      message,
		ResourceKind: rc.res.kind,
		ResourceID:   rc.res.id,
		MissionID:    rc.mission.ID,
	}}
}

// A resource already assigned is double-booked, even when the current
// assignment is the requested mission itself: idempotent re-assignment forces
// explicit release first. Drones in maintenance are handled by the
// maintenance check, not here.
func checkDoubleBooking(rc ruleContext) []domain.Finding {
	if rc.res.status != domain.StatusAssigned || rc.res.missionID == nil {
		return nil
	}
	if rc.opts.VacatingMission != "" && *rc.res.missionID == rc.opts.VacatingMission {
		return nil
	}
	msg := fmt.Sprintf("%s %s (%s) already assigned to %s", rc.res.kind, rc.res.id, rc.res.label, *rc.res.missionID)
	return rc.finding(domain.SeverityCritical, domain.CodeDoubleBooking, msg)
}

func checkUnavailable(rc ruleContext) []domain.Finding {
	if rc.res.kind != domain.KindPilot || rc.res.status != domain.StatusUnavailable {
		return nil
	}
	msg := fmt.Sprintf("pilot %s (%s) is unavailable", rc.res.id, rc.res.label)
	return rc.finding(domain.SeverityCritical, domain.CodeResourceUnavailable, msg)
}

func checkCertMismatch(rc ruleContext) []domain.Finding {
	if rc.res.kind != domain.KindPilot {
		return nil
	}
	missing := missingFrom(rc.mission.RequiredCerts, rc.res.certifications)
	if len(missing) == 0 {
		return nil
	}
	msg := fmt.Sprintf("pilot %s lacks required certifications: %s", rc.res.id, strings.Join(missing, ", "))
	return rc.finding(domain.SeverityCritical, domain.CodeCertMismatch, msg)
}

func checkSkillMismatch(rc ruleContext) []domain.Finding {
	if rc.res.kind != domain.KindPilot {
		return nil
	}
	missing := missingFrom(rc.mission.RequiredSkills, rc.res.skills)
	if len(missing) == 0 {
		return nil
	}
	msg := fmt.Sprintf("pilot %s lacks required skills: %s", rc.res.id, strings.Join(missing, ", "))
	return rc.finding(domain.SeverityWarning, domain.CodeSkillMismatch, msg)
}

// A drone in maintenance blocks unconditionally. Otherwise a maintenance due
// before mission start plus the safety margin warns; unparsable dates are
// skipped rather than guessed at.
func checkMaintenance(rc ruleContext) []domain.Finding {
	if rc.res.kind != domain.KindDrone {
		return nil
	}
	if rc.res.status == domain.StatusMaintenance {
		msg := fmt.Sprintf("drone %s is currently in maintenance", rc.res.id)
		return rc.finding(domain.SeverityCritical, domain.CodeMaintenanceActive, msg)
	}
	due, okDue := parseDate(rc.res.maintenanceDue)
	start, okStart := parseDate(rc.mission.StartDate)
	if !okDue || !okStart {
		return nil
	}
	if due.Before(start.AddDate(0, 0, rc.opts.margin())) {
		msg := fmt.Sprintf("drone %s maintenance due %s, within %d days of mission start %s",
			rc.res.id, rc.res.maintenanceDue, rc.opts.margin(), rc.mission.StartDate)
		return rc.finding(domain.SeverityWarning, domain.CodeMaintenanceDueSoon, msg)
	}
	return nil
}

func checkLocationMismatch(rc ruleContext) []domain.Finding {
	if rc.res.location == rc.mission.Location {
		return nil
	}
	verb := "travel coordination"
	if rc.res.kind == domain.KindDrone {
		verb = "transport"
	}
	msg := fmt.Sprintf("%s %s in %s, mission in %s - requires %s",
		rc.res.kind, rc.res.id, rc.res.location, rc.mission.Location, verb)
	return rc.finding(domain.SeverityWarning, domain.CodeLocationMismatch, msg)
}

// missingFrom returns required entries absent from have, sorted.
func missingFrom(required, have []string) []string {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	var missing []string
	for _, r := range required {
		if !set[r] {
			missing = append(missing, r)
		}
	}
	sort.Strings(missing)
	return missing
}
