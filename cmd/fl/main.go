package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"flightline/internal/config"
	"flightline/internal/db"
	"flightline/internal/domain"
	"flightline/internal/engine"
	"flightline/internal/migrate"
	"flightline/internal/repo"
	"flightline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "fl",
	Short: "Flightline CLI",
	Long: `Flightline coordinates drone fleet operations deterministically.
- Roster: pilots, drones, and missions live in the workspace database.
- Assignments: every request is validated against the rule set; critical
  findings block, warnings need an explicit --override.
- Reallocation: 'fl reallocate plan' proposes moving resources to a
  higher-priority mission; nothing moves until 'fl reallocate confirm'.
- Event log: every state change is recorded, view with 'fl log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("FLIGHTLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(pilotCmd())
	rootCmd.AddCommand(droneCmd())
	rootCmd.AddCommand(missionCmd())
	rootCmd.AddCommand(assignCmd())
	rootCmd.AddCommand(reallocateCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var fleetID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default flightline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(fleetID)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&fleetID, "fleet-id", "fleet", "fleet identifier")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show fleet status counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				snap, err := e.Snapshot(ctx)
				if err != nil {
					return err
				}
				pilots := map[string]int{}
				drones := map[string]int{}
				missions := map[string]int{}
				for _, p := range snap.Pilots {
					pilots[p.Status]++
				}
				for _, d := range snap.Drones {
					drones[d.Status]++
				}
				for _, m := range snap.Missions {
					missions[m.Priority]++
				}
				out := map[string]any{
					"fleet_id": e.Config.Fleet.ID,
					"pilots":   pilots,
					"drones":   drones,
					"missions": missions,
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("Fleet: %s\n", e.Config.Fleet.ID)
				fmt.Println("Pilots:")
				for status, c := range pilots {
					fmt.Printf("  %s: %d\n", status, c)
				}
				fmt.Println("Drones:")
				for status, c := range drones {
					fmt.Printf("  %s: %d\n", status, c)
				}
				fmt.Println("Missions by priority:")
				for prio, c := range missions {
					fmt.Printf("  %s: %d\n", prio, c)
				}
				return nil
			})
		},
	}
	return cmd
}

func pilotCmd() *cobra.Command {
	pilot := &cobra.Command{Use: "pilot", Short: "Manage pilots"}
	pilot.AddCommand(pilotAddCmd())
	pilot.AddCommand(pilotListCmd())
	pilot.AddCommand(pilotShowCmd())
	pilot.AddCommand(pilotSetStatusCmd())
	return pilot
}

func pilotAddCmd() *cobra.Command {
	var p domain.Pilot
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a pilot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				created, err := e.CreatePilot(ctx, p, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSON(created)
			})
		},
	}
	cmd.Flags().StringVar(&p.ID, "id", "", "pilot id")
	cmd.Flags().StringVar(&p.Name, "name", "", "pilot name")
	cmd.Flags().StringVar(&p.Location, "location", "", "home location (defaults from config)")
	cmd.Flags().StringArrayVar(&p.Skills, "skill", []string{}, "skill (repeatable)")
	cmd.Flags().StringArrayVar(&p.Certifications, "cert", []string{}, "certification (repeatable)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func pilotListCmd() *cobra.Command {
	var filter repo.PilotFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pilots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListPilots(ctx, filter)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				t := newTable("ID", "NAME", "LOCATION", "SKILLS", "CERTS", "STATUS", "MISSION")
				for _, p := range items {
					t.AppendRow(table.Row{
						p.ID, p.Name, p.Location,
						strings.Join(p.Skills, ","), strings.Join(p.Certifications, ","),
						p.Status, strOrDash(p.MissionID),
					})
				}
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter.Skill, "skill", "", "filter by skill")
	cmd.Flags().StringVar(&filter.Location, "location", "", "filter by location")
	cmd.Flags().StringVar(&filter.Status, "status", "", "filter by status")
	return cmd
}

func pilotShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a pilot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				p, err := r.GetPilot(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	return cmd
}

func pilotSetStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "set-status <id>",
		Short: "Set pilot status (available or unavailable); releases any assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.SetPilotStatus(ctx, args[0], status, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "available or unavailable")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func droneCmd() *cobra.Command {
	drone := &cobra.Command{Use: "drone", Short: "Manage drones"}
	drone.AddCommand(droneAddCmd())
	drone.AddCommand(droneListCmd())
	drone.AddCommand(droneShowCmd())
	drone.AddCommand(droneSetStatusCmd())
	drone.AddCommand(droneSetMaintenanceCmd())
	return drone
}

func droneAddCmd() *cobra.Command {
	var d domain.Drone
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a drone",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				created, err := e.CreateDrone(ctx, d, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSON(created)
			})
		},
	}
	cmd.Flags().StringVar(&d.ID, "id", "", "drone id")
	cmd.Flags().StringVar(&d.Model, "model", "", "drone model")
	cmd.Flags().StringVar(&d.Location, "location", "", "home location (defaults from config)")
	cmd.Flags().StringArrayVar(&d.Capabilities, "capability", []string{}, "capability (repeatable)")
	cmd.Flags().StringVar(&d.MaintenanceDue, "maintenance-due", "", "next maintenance date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func droneListCmd() *cobra.Command {
	var filter repo.DroneFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List drones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListDrones(ctx, filter)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				t := newTable("ID", "MODEL", "LOCATION", "CAPABILITIES", "STATUS", "MISSION", "MAINT DUE")
				for _, d := range items {
					t.AppendRow(table.Row{
						d.ID, d.Model, d.Location,
						strings.Join(d.Capabilities, ","),
						d.Status, strOrDash(d.MissionID), d.MaintenanceDue,
					})
				}
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter.Capability, "capability", "", "filter by capability")
	cmd.Flags().StringVar(&filter.Location, "location", "", "filter by location")
	cmd.Flags().StringVar(&filter.Status, "status", "", "filter by status")
	return cmd
}

func droneShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a drone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				d, err := r.GetDrone(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	return cmd
}

func droneSetStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "set-status <id>",
		Short: "Set drone status (available or maintenance); releases any assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.SetDroneStatus(ctx, args[0], status, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "available or maintenance")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func droneSetMaintenanceCmd() *cobra.Command {
	var due string
	cmd := &cobra.Command{
		Use:   "set-maintenance <id>",
		Short: "Set next maintenance date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.SetDroneMaintenanceDue(ctx, args[0], due, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "next maintenance date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func missionCmd() *cobra.Command {
	mission := &cobra.Command{Use: "mission", Short: "Manage missions"}
	mission.AddCommand(missionAddCmd())
	mission.AddCommand(missionListCmd())
	mission.AddCommand(missionShowCmd())
	return mission
}

func missionAddCmd() *cobra.Command {
	var m domain.Mission
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				created, err := e.CreateMission(ctx, m, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSON(created)
			})
		},
	}
	cmd.Flags().StringVar(&m.ID, "id", "", "mission id")
	cmd.Flags().StringVar(&m.Name, "name", "", "mission name")
	cmd.Flags().StringVar(&m.Location, "location", "", "mission location (defaults from config)")
	cmd.Flags().StringVar(&m.Priority, "priority", "normal", "normal, high, or urgent")
	cmd.Flags().StringArrayVar(&m.RequiredSkills, "require-skill", []string{}, "required skill (repeatable)")
	cmd.Flags().StringArrayVar(&m.RequiredCerts, "require-cert", []string{}, "required certification (repeatable)")
	cmd.Flags().StringVar(&m.StartDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&m.EndDate, "end", "", "end date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func missionListCmd() *cobra.Command {
	var filter repo.MissionFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List missions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListMissions(ctx, filter)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				t := newTable("ID", "NAME", "LOCATION", "PRIORITY", "START", "END", "PILOT", "DRONE")
				for _, m := range items {
					t.AppendRow(table.Row{
						m.ID, m.Name, m.Location, m.Priority,
						m.StartDate, m.EndDate,
						strOrDash(m.PilotID), strOrDash(m.DroneID),
					})
				}
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter.Location, "location", "", "filter by location")
	cmd.Flags().StringVar(&filter.Priority, "priority", "", "filter by priority")
	return cmd
}

func missionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				m, err := r.GetMission(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(m)
			})
		},
	}
	return cmd
}

func assignCmd() *cobra.Command {
	var missionID, pilotID, droneID string
	var checkOnly, override bool
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Validate and commit an assignment",
		Long: `Validates the requested pairing against the rule set. Critical findings
block the assignment; warnings require --override. With --check-only nothing
is committed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if missionID == "" {
				return fmt.Errorf("--mission required")
			}
			if pilotID == "" && droneID == "" {
				return fmt.Errorf("--pilot or --drone required")
			}
			req := domain.AssignmentRequest{MissionID: missionID, Override: override}
			if pilotID != "" {
				req.PilotID = &pilotID
			}
			if droneID != "" {
				req.DroneID = &droneID
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if checkOnly {
					findings, err := e.ValidateAssignment(ctx, req)
					if err != nil {
						return err
					}
					if viper.GetBool("json") {
						return printJSON(map[string]any{"findings": findings})
					}
					printFindings(findings)
					return nil
				}
				res, err := e.CommitAssignment(ctx, req, viper.GetString("actor-id"))
				if errors.Is(err, engine.ErrValidationBlocked) || errors.Is(err, engine.ErrOverrideRequired) {
					if viper.GetBool("json") {
						return printJSON(res)
					}
					printFindings(res.Findings)
					return err
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				printFindings(res.Findings)
				color.Green("committed: mission %s", missionID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&missionID, "mission", "", "mission id")
	cmd.Flags().StringVar(&pilotID, "pilot", "", "pilot id")
	cmd.Flags().StringVar(&droneID, "drone", "", "drone id")
	cmd.Flags().BoolVar(&checkOnly, "check-only", false, "validate without committing")
	cmd.Flags().BoolVar(&override, "override", false, "acknowledge warning findings")
	return cmd
}

func reallocateCmd() *cobra.Command {
	re := &cobra.Command{Use: "reallocate", Short: "Plan and execute reallocations"}
	re.AddCommand(reallocatePlanCmd())
	re.AddCommand(reallocateConfirmCmd())
	re.AddCommand(reallocateRejectCmd())
	re.AddCommand(reallocateListCmd())
	re.AddCommand(reallocateShowCmd())
	return re
}

func reallocatePlanCmd() *cobra.Command {
	var sourceID, targetID string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Propose moving resources to a higher-priority mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sourceID == "" || targetID == "" {
				return fmt.Errorf("--from and --to required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				plan, err := e.PlanReallocation(ctx, sourceID, targetID, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(plan)
				}
				printPlan(plan)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sourceID, "from", "", "source mission id")
	cmd.Flags().StringVar(&targetID, "to", "", "target mission id")
	return cmd
}

func reallocateConfirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm <plan-id>",
		Short: "Confirm and execute a proposed plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				plan, err := e.ConfirmReallocation(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(plan)
				}
				printPlan(plan)
				return nil
			})
		},
	}
	return cmd
}

func reallocateRejectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reject <plan-id>",
		Short: "Reject a proposed plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				plan, err := e.RejectReallocation(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSON(plan)
			})
		},
	}
	return cmd
}

func reallocateListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reallocation plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListPlans(ctx, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				t := newTable("ID", "FROM", "TO", "MOVES", "STATUS", "UPDATED")
				for _, p := range items {
					t.AppendRow(table.Row{
						p.ID, p.SourceMissionID, p.TargetMissionID,
						len(p.Moves), p.Status, p.UpdatedAt,
					})
				}
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by plan status")
	return cmd
}

func reallocateShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show a reallocation plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				plan, err := r.GetPlan(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(plan)
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Inspect the event log"}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				t := newTable("ID", "TS", "TYPE", "ENTITY", "ACTOR", "PAYLOAD")
				for _, e := range events {
					t.AppendRow(table.Row{
						e.ID, e.TS, e.Type,
						e.EntityKind + "/" + e.EntityID,
						e.ActorID, e.Payload,
					})
				}
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Flightline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	return fn(ctx, engine.New(conn, cfg))
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func strOrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func newTable(headers ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row(headers))
	return t
}

func printFindings(findings []domain.Finding) {
	if len(findings) == 0 {
		fmt.Println("no findings")
		return
	}
	for _, f := range findings {
		tag := color.YellowString("[%s]", f.Severity)
		if f.Severity == domain.SeverityCritical {
			tag = color.RedString("[%s]", f.Severity)
		}
		fmt.Printf("%s %s: %s\n", tag, f.Code, f.Message)
	}
}

func printPlan(plan domain.ReallocationPlan) {
	fmt.Printf("Plan %s (%s): %s -> %s\n", plan.ID, plan.Status, plan.SourceMissionID, plan.TargetMissionID)
	for _, mv := range plan.Moves {
		delay := fmt.Sprintf("+%dd delay", mv.DelayDays)
		if mv.DelayIndeterminate {
			delay = "delay indeterminate (last " + mv.ResourceKind + " on source)"
		}
		fmt.Printf("  move %s %s (%s)\n", mv.ResourceKind, mv.ResourceID, delay)
		printFindings(mv.Findings)
	}
}
