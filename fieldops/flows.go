package fieldops

import (
	"fmt"

	"github.com/deepnoodle-ai/captain"
)

// Step and field names used by the built-in flows.
const (
	StepBeforeImages = "before_images"
	StepServiceSteps = "service_steps"
	StepAfterImages  = "after_images"
	StepComplete     = "complete"

	StepSelfie    = "selfie"
	StepMaterials = "materials"
	StepOdometer  = "odometer"

	StepClosingReading = "closing_reading"
	StepCheckOut       = "check_out"

	FieldOpeningOdometer = "opening_odometer"
	FieldClosingOdometer = "closing_odometer"
	FieldClosingFuel     = "closing_fuel"
)

// Workflow names of the built-in flows.
const (
	JobFlow      = "job"
	CheckInFlow  = "check-in"
	CheckOutFlow = "check-out"
)

// JobExecutionWorkflow builds the four step job flow for a service: before
// images, the service steps in order, after images, and a summary.
func JobExecutionWorkflow(service *ServiceConfig) (*captain.Workflow, error) {
	if service == nil {
		return nil, captain.NewError(captain.ErrorTypeConfiguration, "service required")
	}
	return captain.New(captain.Options{
		Name:        JobFlow,
		Description: service.Name,
		Steps: []*captain.Step{
			{
				Name:      StepBeforeImages,
				Label:     "Before Photos",
				Kind:      captain.StepKindImages,
				MinImages: service.MinBeforeImages,
				MaxImages: service.MaxBeforeImages,
			},
			{
				Name:       StepServiceSteps,
				Label:      "Service Steps",
				Kind:       captain.StepKindChecklist,
				Checklist:  service.ID,
				Sequential: true,
			},
			{
				Name:      StepAfterImages,
				Label:     "After Photos",
				Kind:      captain.StepKindImages,
				MinImages: service.MinAfterImages,
				MaxImages: service.MaxAfterImages,
			},
			{
				Name:  StepComplete,
				Label: "Complete",
				Kind:  captain.StepKindSummary,
			},
		},
		Checklists: map[string][]captain.ChecklistItem{
			service.ID: service.ChecklistItems(),
		},
	})
}

// CheckInWorkflow builds the start of day flow: one selfie, the materials
// checklist, and the opening odometer reading.
func CheckInWorkflow(c *Catalog) (*captain.Workflow, error) {
	return captain.New(captain.Options{
		Name:        CheckInFlow,
		Description: "Start of day check-in",
		Steps: []*captain.Step{
			{Name: StepSelfie, Label: "Selfie", Kind: captain.StepKindImages, MinImages: 1, MaxImages: 1},
			{Name: StepMaterials, Label: "Materials", Kind: captain.StepKindChecklist, Checklist: StepMaterials},
			{
				Name:  StepOdometer,
				Label: "Odometer",
				Kind:  captain.StepKindNumeric,
				Field: FieldOpeningOdometer,
				Max:   c.App.MaxOdometerReading,
			},
		},
		Checklists: map[string][]captain.ChecklistItem{
			StepMaterials: c.Materials,
		},
	})
}

// CheckOutOptions selects how the closing reading is taken.
type CheckOutOptions struct {
	// TrackFuel records a closing fuel percentage instead of the closing
	// odometer reading.
	TrackFuel bool
}

// CheckOutWorkflow builds the end of day flow: the closing reading and a
// summary that takes optional notes.
func CheckOutWorkflow(c *Catalog, opts CheckOutOptions) (*captain.Workflow, error) {
	reading := &captain.Step{
		Name:  StepClosingReading,
		Label: "Closing Odometer",
		Kind:  captain.StepKindNumeric,
		Field: FieldClosingOdometer,
		Max:   c.App.MaxOdometerReading,
	}
	if opts.TrackFuel {
		reading = &captain.Step{
			Name:      StepClosingReading,
			Label:     "Fuel Level",
			Kind:      captain.StepKindNumeric,
			Field:     FieldClosingFuel,
			Max:       100,
			AllowZero: true,
		}
	}
	return captain.New(captain.Options{
		Name:        CheckOutFlow,
		Description: "End of day check-out",
		Steps: []*captain.Step{
			reading,
			{Name: StepCheckOut, Label: "Check Out", Kind: captain.StepKindSummary},
		},
	})
}

// WorkflowFor returns the named built-in flow. Job flows need a service.
func WorkflowFor(c *Catalog, flow, serviceID string, opts CheckOutOptions) (*captain.Workflow, error) {
	switch flow {
	case JobFlow:
		service, ok := c.Service(serviceID)
		if !ok {
			return nil, fmt.Errorf("unknown service %q", serviceID)
		}
		return JobExecutionWorkflow(service)
	case CheckInFlow:
		return CheckInWorkflow(c)
	case CheckOutFlow:
		return CheckOutWorkflow(c, opts)
	}
	return nil, fmt.Errorf("unknown flow %q", flow)
}
