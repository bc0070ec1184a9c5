package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"flightline/internal/dispatch"
	"flightline/internal/domain"
	"flightline/internal/engine"
	"flightline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"stale_snapshot"`
	Message string         `json:"message" example:"state changed since snapshot; refresh and retry"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Flightline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors are 400 bad_request; 422 is
			// reserved for rule findings.
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	hcfg := huma.DefaultConfig("Flightline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerStatus(group, cfg.Engine)
	registerPilots(group, cfg.Engine)
	registerDrones(group, cfg.Engine)
	registerMissions(group, cfg.Engine)
	registerAssignments(group, cfg.Engine)
	registerReallocations(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handleError maps engine and store errors onto the envelope. Findings that
// accompany a refused assignment ride along in details so clients can render
// them without a second call.
func handleError(err error, findings []domain.Finding) huma.StatusError {
	if err == nil {
		return nil
	}
	var details map[string]any
	if len(findings) > 0 {
		details = map[string]any{"findings": findings}
	}
	switch {
	case errors.Is(err, engine.ErrValidationBlocked):
		return newAPIError(http.StatusUnprocessableEntity, "validation_blocked", err.Error(), details)
	case errors.Is(err, engine.ErrOverrideRequired):
		return newAPIError(http.StatusConflict, "override_required", err.Error(), details)
	case errors.Is(err, engine.ErrPartiallyExecuted):
		return newAPIError(http.StatusConflict, "partially_executed", err.Error(), details)
	case errors.Is(err, repo.ErrStaleSnapshot):
		return newAPIError(http.StatusConflict, "stale_snapshot", err.Error(), details)
	case errors.Is(err, dispatch.ErrPriorityInversion):
		return newAPIError(http.StatusUnprocessableEntity, "priority_inversion", err.Error(), nil)
	case errors.Is(err, dispatch.ErrNoEligibleResources):
		return newAPIError(http.StatusUnprocessableEntity, "no_eligible_resources", err.Error(), nil)
	case errors.Is(err, repo.ErrNotFound), errors.Is(err, dispatch.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required") ||
		strings.Contains(lowered, "unknown") || strings.Contains(lowered, "cannot") ||
		strings.Contains(lowered, "before") || strings.Contains(lowered, "transition") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_blocked"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// actorOrDefault reads the optional X-Actor-Id header.
func actorOrDefault(actor string) string {
	if actor == "" {
		return "api"
	}
	return actor
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Flightline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerStatus(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "fleet-status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Fleet status counts",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body FleetStatusResponse `json:"body"`
	}, error) {
		snap, err := e.Snapshot(ctx)
		if err != nil {
			return nil, handleError(err, nil)
		}
		resp := FleetStatusResponse{
			Pilots:   map[string]int{},
			Drones:   map[string]int{},
			Missions: map[string]int{},
		}
		if e.Config != nil {
			resp.FleetID = e.Config.Fleet.ID
		}
		for _, p := range snap.Pilots {
			resp.Pilots[p.Status]++
		}
		for _, d := range snap.Drones {
			resp.Drones[d.Status]++
		}
		for _, m := range snap.Missions {
			resp.Missions[m.Priority]++
		}
		return &struct {
			Body FleetStatusResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func registerPilots(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-pilot",
		Method:        http.MethodPost,
		Path:          "/pilots",
		Summary:       "Register pilot",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ActorID string             `header:"X-Actor-Id"`
		Body    CreatePilotRequest `json:"body"`
	}) (*struct {
		Body domain.Pilot `json:"body"`
	}, error) {
		p, err := e.CreatePilot(ctx, domain.Pilot{
			ID:             input.Body.ID,
			Name:           input.Body.Name,
			Location:       input.Body.Location,
			Skills:         input.Body.Skills,
			Certifications: input.Body.Certifications,
			Status:         input.Body.Status,
		}, actorOrDefault(input.ActorID))
		if err != nil {
			return nil, handleError(err, nil)
		}
		return &struct {
			Body domain.Pilot `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-pilots",
		Method:      http.MethodGet,
		Path:        "/pilots",
		Summary:     "List pilots",
	}, func(ctx context.Context, input *struct {
		Skill    string `query:"skill"`
		Location string `query:"location"`
		Status   string `query:"status"`
	}) (*struct {
		Body []domain.Pilot `json:"body"`
	}, error) {
		items, err := e.Repo.ListPilots(ctx, repo.PilotFilter{
			Skill: input.Skill, Location: input.Location, Status: input.Status,
		})
		if err != nil {
			return nil, handleError(err, nil)
		}
		if items == nil {
			items = []domain.Pilot{}
		}
		return &struct {
			Body []domain.Pilot `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-pilot",
		Method:      http.MethodGet,
		Path:        "/pilots/{id}",
		Summary:     "Get pilot",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Pilot `json:"body"`
	}, error) {
		p, err := e.Repo.GetPilot(ctx, input.ID)
		if err != nil {
			return nil, handleError(err, nil)
		}
		return &struct {
			Body domain.Pilot `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-pilot-status",
		Method:      http.MethodPatch,
		Path:        "/pilots/{id}/status",
		Summary:     "Set pilot status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID      string           `path:"id"`
		ActorID string           `header:"X-Actor-Id"`
		Body    SetStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Pilot `json:"body"`
	}, error) {
		p, err := e.SetPilotStatus(ctx, input.ID, input.Body.Status, actorOrDefault(input.ActorID))
		if err != nil {
			return nil, handleError(err, nil)
		}
		return &struct {
			Body domain.Pilot `json:"body"`
		}{Body: p}, nil
	})
}

func registerDrones(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-drone",
		Method:        http.MethodPost,
		Path:          "/drones",
		Summary:       "Register drone",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ActorID string             `header:"X-Actor-Id"`
		Body    CreateDroneRequest `json:"body"`
	}) (*struct {
		Body domain.Drone `json:"body"`
	}, error) {
		d, err := e.CreateDrone(ctx, domain.Drone{
			ID:             input.Body.ID,
			Model:          input.Body.Model,
			Location:       input.Body.Location,
			Capabilities:   input.Body.Capabilities,
			Status:         input.Body.Status,
			MaintenanceDue: input.Body.MaintenanceDue,
		}, actorOrDefault(input.ActorID))
		if err != nil {
			return nil, handleError(err, nil)
		}
		return &struct {
			Body domain.Drone `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-drones",
		Method:      http.MethodGet,
		Path:        "/drones",
		Summary:     "List drones",
	}, func(ctx context.Context, input *struct {
		Capability string `query:"capability"`
		Location   string `query:"location"`
		Status     string `query:"status"`
	}) (*struct {
		Body []domain.Drone `json:"body"`
	}, error) {
		items, err := e.Repo.ListDrones(ctx, repo.DroneFilter{
			Capability: input.Capability, Location: input.Location, Status: input.Status,
		})
		if err != nil {
			return nil, handleError(err, nil)
		}
		if items == nil {
			items = []domain.Drone{}
		}
		return &struct {
			Body []domain.Drone `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-drone",
		Method:      http.MethodGet,
		Path:        "/drones/{id}",
		Summary:     "Get drone",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Drone `json:"body"`
	}, error) {
		d, err := e.Repo.GetDrone(ctx, input.ID)
		if err != nil {
			return nil, handleError(err, nil)
		}
		return &struct {
			Body domain.Drone `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-drone-status",
		Method:      http.MethodPatch,
		Path:        "/drones/{id}/status",
		Summary:     "Set drone status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID      string           `path:"id"`
		ActorID string           `header:"X-Actor-Id"`
		Body    SetStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Drone `json:"body"`
	}, error) {
		d, err := e.SetDroneStatus(ctx, input.ID, input.Body.Status, actorOrDefault(input.ActorID))
		if err != nil {
			return nil, handleError(err, nil)
		}
		return &struct {
			Body domain.Drone `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-drone-maintenance",
		Method:      http.MethodPatch,
		Path:        "/drones/{id}/maintenance",
		Summary:     "Set drone maintenance due date",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID      string                   `path:"id"`
		ActorID string                   `header:"X-Actor-Id"`
		Body    SetMaintenanceDueRequest `json:"body"`
	}) (*struct {
		Body domain.Drone `json:"body"`
	}, error) {
		d, err := e.SetDroneMaintenanceDue(ctx, input.ID, input.Body.MaintenanceDue, actorOrDefault(input.ActorID))
		if err != nil {
			return nil, handleError(err, nil)
		}
		return &struct {
			Body domain.Drone `json:"body"`
		}{Body: d}, nil
	})
}

func registerMissions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-mission",
		Method:        http.MethodPost,
		Path:          "/missions",
		Summary:       "Register mission",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ActorID string               `header:"X-Actor-Id"`
		Body    CreateMissionRequest `json:"body"`
	}) (*struct {
		Body domain.Mission `json:"body"`
	}, error) {
		m, err := e.CreateMission(ctx, domain.Mission{
			ID:             input.Body.ID,
			Name:           input.Body.Name,
			Location:       input.Body.Location,
			Priority:       input.Body.Priority,
			RequiredSkills: input.Body.RequiredSkills,
			RequiredCerts:  input.Body.RequiredCerts,
			StartDate:      input.Body.StartDate,
			EndDate:        input.Body.EndDate,
		}, actorOrDefault(input.ActorID))
		if err != nil {
			return nil, handleError(err, nil)
		}
		return &struct {
			Body domain.Mission `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-missions",
		Method:      http.MethodGet,
		Path:        "/missions",
		Summary:     "List missions",
	}, func(ctx context.Context, input *struct {
		Location string `query:"location"`
		Priority string `query:"priority"`
	}) (*struct {
		Body []domain.Mission `json:"body"`
	}, error) {
		items, err := e.Repo.ListMissions(ctx, repo.MissionFilter{
			Location: input.Location, Priority: input.Priority,
		})
		if err != nil {
			return nil, handleError(err, nil)
		}
		if items == nil {
			items = []domain.Mission{}
		}
		return &struct {
			Body []domain.Mission `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-mission",
		Method:      http.MethodGet,
		Path:        "/missions/{id}",
		Summary:     "Get mission",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Mission `json:"body"`
	}, error) {
		m, err := e.Repo.GetMission(ctx, input.ID)
		if err != nil {
			return nil, handleError(err, nil)
		}
		return &struct {
			Body domain.Mission `json:"body"`
		}{Body: m}, nil
	})
}

func registerAssignments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "validate-assignment",
		Method:      http.MethodPost,
		Path:        "/assignments/validate",
		Summary:     "Validate assignment without committing",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body AssignmentRequestBody `json:"body"`
	}) (*struct {
		Body ValidationResponse `json:"body"`
	}, error) {
		if input.Body.MissionID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "mission_id is required", nil)
		}
		findings, err := e.ValidateAssignment(ctx, input.Body.toDomain())
		if err != nil {
			return nil, handleError(err, nil)
		}
		if findings == nil {
			findings = []domain.Finding{}
		}
		return &struct {
			Body ValidationResponse `json:"body"`
		}{Body: ValidationResponse{Findings: findings}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "commit-assignment",
		Method:        http.MethodPost,
		Path:          "/assignments",
		Summary:       "Commit assignment",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ActorID string                `header:"X-Actor-Id"`
		Body    AssignmentRequestBody `json:"body"`
	}) (*struct {
		Body dispatch.Resolution `json:"body"`
	}, error) {
		if input.Body.MissionID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "mission_id is required", nil)
		}
		if input.Body.PilotID == nil && input.Body.DroneID == nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "pilot_id or drone_id is required", nil)
		}
		res, err := e.CommitAssignment(ctx, input.Body.toDomain(), actorOrDefault(input.ActorID))
		if err != nil {
			return nil, handleError(err, res.Findings)
		}
		return &struct {
			Body dispatch.Resolution `json:"body"`
		}{Body: res}, nil
	})
}

func registerReallocations(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "plan-reallocation",
		Method:        http.MethodPost,
		Path:          "/reallocations",
		Summary:       "Propose reallocation plan",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ActorID string            `header:"X-Actor-Id"`
		Body    CreatePlanRequest `json:"body"`
	}) (*struct {
		Body domain.ReallocationPlan `json:"body"`
	}, error) {
		if input.Body.SourceMissionID == "" || input.Body.TargetMissionID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "source_mission_id and target_mission_id are required", nil)
		}
		plan, err := e.PlanReallocation(ctx, input.Body.SourceMissionID, input.Body.TargetMissionID, actorOrDefault(input.ActorID))
		if err != nil {
			return nil, handleError(err, nil)
		}
		return &struct {
			Body domain.ReallocationPlan `json:"body"`
		}{Body: plan}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-reallocations",
		Method:      http.MethodGet,
		Path:        "/reallocations",
		Summary:     "List reallocation plans",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:",proposed,confirmed,executed,rejected,partially_executed"`
	}) (*struct {
		Body []domain.ReallocationPlan `json:"body"`
	}, error) {
		items, err := e.Repo.ListPlans(ctx, input.Status)
		if err != nil {
			return nil, handleError(err, nil)
		}
		if items == nil {
			items = []domain.ReallocationPlan{}
		}
		return &struct {
			Body []domain.ReallocationPlan `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-reallocation",
		Method:      http.MethodGet,
		Path:        "/reallocations/{id}",
		Summary:     "Get reallocation plan",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.ReallocationPlan `json:"body"`
	}, error) {
		plan, err := e.Repo.GetPlan(ctx, input.ID)
		if err != nil {
			return nil, handleError(err, nil)
		}
		return &struct {
			Body domain.ReallocationPlan `json:"body"`
		}{Body: plan}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "confirm-reallocation",
		Method:      http.MethodPost,
		Path:        "/reallocations/{id}/confirm",
		Summary:     "Confirm and execute reallocation plan",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ID      string `path:"id"`
		ActorID string `header:"X-Actor-Id"`
	}) (*struct {
		Body domain.ReallocationPlan `json:"body"`
	}, error) {
		plan, err := e.ConfirmReallocation(ctx, input.ID, actorOrDefault(input.ActorID))
		if err != nil {
			return nil, handleError(err, nil)
		}
		return &struct {
			Body domain.ReallocationPlan `json:"body"`
		}{Body: plan}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-reallocation",
		Method:      http.MethodPost,
		Path:        "/reallocations/{id}/reject",
		Summary:     "Reject reallocation plan",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ID      string `path:"id"`
		ActorID string `header:"X-Actor-Id"`
	}) (*struct {
		Body domain.ReallocationPlan `json:"body"`
	}, error) {
		plan, err := e.RejectReallocation(ctx, input.ID, actorOrDefault(input.ActorID))
		if err != nil {
			return nil, handleError(err, nil)
		}
		return &struct {
			Body domain.ReallocationPlan `json:"body"`
		}{Body: plan}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Latest events",
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"20"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		items, err := e.Repo.LatestEvents(ctx, input.Limit, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err, nil)
		}
		if items == nil {
			items = []domain.Event{}
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})
}
