package config_test

import (
	"strings"
	"testing"

	"flightline/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default("fleet-1")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Fleet.ID != "fleet-1" {
		t.Fatalf("fleet id: %q", cfg.Fleet.ID)
	}
	if cfg.Policy.MaintenanceMarginDays != 7 || cfg.Policy.ReallocationDelayDays != 1 {
		t.Fatalf("default policy: %+v", cfg.Policy)
	}
	if !cfg.KnownSkill("Mapping") || cfg.KnownSkill("Juggling") {
		t.Fatalf("skill catalog lookup broken")
	}
	if !cfg.KnownCertification("DGCA") {
		t.Fatalf("certification catalog lookup broken")
	}
}

func TestFromYAMLValidation(t *testing.T) {
	if _, err := config.FromYAML([]byte("fleet:\n  id: \"\"\n")); err == nil {
		t.Fatalf("expected missing fleet id error")
	}
	_, err := config.FromYAML([]byte("fleet:\n  id: f1\npolicy:\n  reallocation_delay_days: 0\n"))
	if err == nil || !strings.Contains(err.Error(), "reallocation_delay_days") {
		t.Fatalf("expected delay validation error, got %v", err)
	}
	if _, err := config.FromYAML([]byte("fleet: [nope")); err == nil {
		t.Fatalf("expected yaml parse error")
	}
}

func TestGenerateDefaultParses(t *testing.T) {
	cfg, err := config.FromYAML([]byte(config.GenerateDefault("fleet-9")))
	if err != nil {
		t.Fatalf("generated default should parse: %v", err)
	}
	if cfg.Fleet.DefaultLocation != "Bangalore" {
		t.Fatalf("default location: %q", cfg.Fleet.DefaultLocation)
	}
}

func TestEmptyCatalogAcceptsEverything(t *testing.T) {
	cfg, err := config.FromYAML([]byte("fleet:\n  id: f1\npolicy:\n  reallocation_delay_days: 1\n"))
	if err != nil {
		t.Fatalf("minimal config: %v", err)
	}
	if !cfg.KnownSkill("anything") || !cfg.KnownCertification("anything") {
		t.Fatalf("empty catalog should accept everything")
	}
}
