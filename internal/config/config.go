package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models flightline.yml.
type Config struct {
	Fleet struct {
		ID              string `yaml:"id"`
		DefaultLocation string `yaml:"default_location"`
	} `yaml:"fleet"`
	Policy struct {
		MaintenanceMarginDays int `yaml:"maintenance_margin_days"`
		ReallocationDelayDays int `yaml:"reallocation_delay_days"`
	} `yaml:"policy"`
	Catalog struct {
		Skills         map[string]CatalogEntry `yaml:"skills"`
		Certifications map[string]CatalogEntry `yaml:"certifications"`
		Capabilities   map[string]CatalogEntry `yaml:"capabilities"`
	} `yaml:"catalog"`
}

type CatalogEntry struct {
	Description string `yaml:"description"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create with fl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default("fleet"), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Fleet.ID == "" {
		return fmt.Errorf("config.fleet.id is required")
	}
	if c.Policy.MaintenanceMarginDays < 0 {
		return fmt.Errorf("config.policy.maintenance_margin_days must be >= 0")
	}
	if c.Policy.ReallocationDelayDays < 1 {
		return fmt.Errorf("config.policy.reallocation_delay_days must be >= 1")
	}
	for name := range c.Catalog.Skills {
		if name == "" {
			return fmt.Errorf("config.catalog.skills contains empty skill name")
		}
	}
	for name := range c.Catalog.Certifications {
		if name == "" {
			return fmt.Errorf("config.catalog.certifications contains empty certification name")
		}
	}
	for name := range c.Catalog.Capabilities {
		if name == "" {
			return fmt.Errorf("config.catalog.capabilities contains empty capability name")
		}
	}
	return nil
}

// KnownSkill reports whether a skill is in the catalog; an empty catalog
// accepts everything.
func (c *Config) KnownSkill(name string) bool {
	if len(c.Catalog.Skills) == 0 {
		return true
	}
	_, ok := c.Catalog.Skills[name]
	return ok
}

// KnownCertification reports whether a certification is in the catalog.
func (c *Config) KnownCertification(name string) bool {
	if len(c.Catalog.Certifications) == 0 {
		return true
	}
	_, ok := c.Catalog.Certifications[name]
	return ok
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "flightline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(fleetID string) string {
	return fmt.Sprintf(defaultTemplate, fleetID)
}

// Default returns the default Config struct for a fleet.
func Default(fleetID string) *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(fmt.Sprintf(defaultTemplate, fleetID)), &cfg)
	cfg.Fleet.ID = fleetID
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `fleet:
  id: %s
  default_location: Bangalore

policy:
  maintenance_margin_days: 7
  reallocation_delay_days: 1

catalog:
  skills:
    Mapping:
      description: "Aerial survey and orthomosaic mapping"
    Inspection:
      description: "Infrastructure and asset inspection"
    Surveillance:
      description: "Perimeter and event surveillance"
    Agriculture:
      description: "Crop health and spraying operations"

  certifications:
    DGCA:
      description: "DGCA remote pilot certificate"
    Night-Ops:
      description: "Night operations endorsement"
    BVLOS:
      description: "Beyond visual line of sight clearance"

  capabilities:
    RGB:
      description: "Standard RGB camera"
    Thermal:
      description: "Thermal imaging payload"
    LiDAR:
      description: "LiDAR scanning payload"
    Zoom:
      description: "Optical zoom camera"
`
