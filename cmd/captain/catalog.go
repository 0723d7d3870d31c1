package main

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/captain"
	"github.com/deepnoodle-ai/captain/fieldops"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newServicesCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the services in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, s := range cfg.catalog.Services {
				fmt.Fprintf(out, "%s %s\n", color.CyanString("%-14s", s.ID), s.Name)
				fmt.Fprintf(out, "  before photos %d-%d, after photos %d-%d, %d steps, ~%s\n",
					s.MinBeforeImages, s.MaxBeforeImages, s.MinAfterImages, s.MaxAfterImages,
					len(s.Steps), s.Duration())
			}
			return nil
		},
	}
}

func newStepsCmd(cfg *config) *cobra.Command {
	var (
		flow      string
		service   string
		trackFuel bool
	)
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "Print the steps of a built-in flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := fieldops.WorkflowFor(cfg.catalog, flow, service, fieldops.CheckOutOptions{TrackFuel: trackFuel})
			if err != nil {
				return err
			}
			printWorkflow(cmd, w)
			return nil
		},
	}
	cmd.Flags().StringVar(&flow, "flow", fieldops.JobFlow, "Flow: job, check-in or check-out")
	cmd.Flags().StringVar(&service, "service", "car_wash", "Service for the job flow")
	cmd.Flags().BoolVar(&trackFuel, "track-fuel", false, "Take a fuel percentage at check-out")
	return cmd
}

func newValidateCmd(cfg *config) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a workflow definition file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("workflow file is required")
			}
			w, err := captain.LoadFile(file)
			if err != nil {
				return err
			}
			printWorkflow(cmd, w)
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ %s is valid", file))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the YAML workflow definition (required)")
	return cmd
}

func printWorkflow(cmd *cobra.Command, w *captain.Workflow) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, color.CyanString("Workflow: %s", w.Name()))
	if w.Description() != "" {
		fmt.Fprintf(out, "Description: %s\n", w.Description())
	}
	for i, step := range w.Steps() {
		fmt.Fprintf(out, "%d. %s %s\n", i+1, color.New(color.Bold).Sprint(step.DisplayLabel()), color.HiBlackString("(%s)", step.Kind))
		if rule := gateRule(w, step); rule != "" {
			fmt.Fprintf(out, "   %s\n", rule)
		}
	}
}

// gateRule describes what a step needs before it can be left.
func gateRule(w *captain.Workflow, step *captain.Step) string {
	switch step.Kind {
	case captain.StepKindImages:
		if step.MaxImages > 0 {
			return fmt.Sprintf("%d-%d photos", step.MinImages, step.MaxImages)
		}
		return fmt.Sprintf("at least %d photos", step.MinImages)
	case captain.StepKindChecklist:
		checklist, ok := w.ChecklistFor(step.Name)
		if !ok {
			return ""
		}
		var items []string
		for _, item := range checklist.Items() {
			label := item.Name
			if item.HasQuantity && item.MinQuantity > 0 {
				label = fmt.Sprintf("%s >= %g%s", label, item.MinQuantity, item.Unit)
			}
			if !item.Required {
				label += " (optional)"
			}
			items = append(items, label)
		}
		order := ""
		if step.Sequential {
			order = "in order: "
		}
		return order + strings.Join(items, ", ")
	case captain.StepKindNumeric:
		rule := step.Field + " > 0"
		if step.AllowZero {
			rule = step.Field + " >= 0"
		}
		if step.Max > 0 {
			rule += fmt.Sprintf(", <= %g", step.Max)
		}
		return rule
	case captain.StepKindScript:
		return step.Condition
	}
	return ""
}
