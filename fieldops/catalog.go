// Package fieldops wires the step-gated workflow engine to the daily work of
// a field service captain: checking in, executing customer jobs, and
// checking out.
package fieldops

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/deepnoodle-ai/captain"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ServiceStep is one instruction a captain ticks off while performing a
// service.
type ServiceStep struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Instruction string `json:"instruction" yaml:"instruction"`
	Icon        string `json:"icon,omitempty" yaml:"icon,omitempty"`
	ImageURL    string `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	VideoURL    string `json:"video_url,omitempty" yaml:"video_url,omitempty"`
	Required    bool   `json:"required" yaml:"required"`
}

// ServiceConfig describes a service offering and the evidence its execution
// must capture.
type ServiceConfig struct {
	ID                string        `json:"id" yaml:"id"`
	Name              string        `json:"name" yaml:"name"`
	Icon              string        `json:"icon,omitempty" yaml:"icon,omitempty"`
	MinBeforeImages   int           `json:"min_before_images" yaml:"min_before_images"`
	MaxBeforeImages   int           `json:"max_before_images" yaml:"max_before_images"`
	MinAfterImages    int           `json:"min_after_images" yaml:"min_after_images"`
	MaxAfterImages    int           `json:"max_after_images" yaml:"max_after_images"`
	EstimatedDuration int           `json:"estimated_duration" yaml:"estimated_duration"` // minutes
	Steps             []ServiceStep `json:"steps" yaml:"steps"`
}

// ChecklistItems converts the service steps to checklist items.
func (s *ServiceConfig) ChecklistItems() []captain.ChecklistItem {
	items := make([]captain.ChecklistItem, len(s.Steps))
	for i, step := range s.Steps {
		items[i] = captain.ChecklistItem{
			ID:       step.ID,
			Name:     step.Title,
			Icon:     step.Icon,
			Required: step.Required,
		}
	}
	return items
}

// Duration returns the estimated duration of the service.
func (s *ServiceConfig) Duration() time.Duration {
	return time.Duration(s.EstimatedDuration) * time.Minute
}

// AppConfig holds operational limits. Radii are in meters.
type AppConfig struct {
	CheckInRadius      float64 `json:"check_in_radius" yaml:"check_in_radius"`
	JobStartRadius     float64 `json:"job_start_radius" yaml:"job_start_radius"`
	MaxOdometerReading float64 `json:"max_odometer_reading" yaml:"max_odometer_reading"`
	WorkHoursStart     int     `json:"work_hours_start" yaml:"work_hours_start"`
	WorkHoursEnd       int     `json:"work_hours_end" yaml:"work_hours_end"`
}

// WithinWorkHours reports whether t falls inside the working day.
func (c AppConfig) WithinWorkHours(t time.Time) bool {
	return t.Hour() >= c.WorkHoursStart && t.Hour() < c.WorkHoursEnd
}

// Catalog is the configuration a deployment is driven by.
type Catalog struct {
	App       AppConfig               `json:"app" yaml:"app"`
	Materials []captain.ChecklistItem `json:"materials" yaml:"materials"`
	Services  []*ServiceConfig        `json:"services" yaml:"services"`
}

// DefaultCatalog returns the built-in catalog of services and materials.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the catalog for definitions that could never run.
func (c *Catalog) Validate() error {
	if c.App.MaxOdometerReading < 0 {
		return captain.NewError(captain.ErrorTypeConfiguration, "max odometer reading must not be negative")
	}
	if c.App.WorkHoursStart < 0 || c.App.WorkHoursEnd > 24 || c.App.WorkHoursStart > c.App.WorkHoursEnd {
		return captain.NewError(captain.ErrorTypeConfiguration,
			fmt.Sprintf("invalid work hours %d-%d", c.App.WorkHoursStart, c.App.WorkHoursEnd))
	}
	if _, err := captain.NewChecklist(c.Materials, false); err != nil {
		return fmt.Errorf("materials: %w", err)
	}
	seen := map[string]bool{}
	for _, s := range c.Services {
		if s.ID == "" {
			return captain.NewError(captain.ErrorTypeConfiguration, "service id required")
		}
		if seen[s.ID] {
			return captain.NewError(captain.ErrorTypeConfiguration, fmt.Sprintf("duplicate service id: %q", s.ID))
		}
		seen[s.ID] = true
		if _, err := JobExecutionWorkflow(s); err != nil {
			return fmt.Errorf("service %q: %w", s.ID, err)
		}
	}
	return nil
}

// Service returns the service with the given id.
func (c *Catalog) Service(id string) (*ServiceConfig, bool) {
	for _, s := range c.Services {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}
