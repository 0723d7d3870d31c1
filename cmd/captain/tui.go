package main

import (
	"fmt"

	"github.com/deepnoodle-ai/captain/fieldops"
	"github.com/deepnoodle-ai/captain/session"
	"github.com/deepnoodle-ai/captain/tui"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newTUICmd(cfg *config) *cobra.Command {
	script := &session.Script{}
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Work through a flow interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := script.Validate(); err != nil {
				return err
			}
			ctx := commandContext(cmd)
			b, err := cfg.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			journal := journalCallbacks(cfg, b)
			runner := &session.Runner{
				Catalog:    cfg.catalog,
				Repository: b.repo,
				Store:      b.store,
				Callbacks:  journal,
				Logger:     cfg.logger,
				Now:        cfg.now,
			}
			c, err := runner.Start(ctx, script)
			if err != nil {
				return err
			}
			if err := tui.Run(ctx, c, tui.Options{Rating: script.Flow == fieldops.JobFlow}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s at %s (%s)\n", color.CyanString(c.RecordID()),
				c.Status(), c.Step().Name, c.Workflow().Name())
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&script.Flow, "flow", "", "Built-in flow: job, check-in or check-out")
	flags.StringVar(&script.Workflow, "workflow", "", "Workflow definition file, instead of --flow")
	flags.StringVar(&script.Job, "job", "", "Job ID for the job flow")
	flags.StringVar(&script.Captain, "captain", "", "Captain ID (default: the sample captain)")
	flags.StringVar(&script.RecordID, "record", "", "Record ID for workflow definition runs")
	flags.BoolVar(&script.TrackFuel, "track-fuel", false, "Take a fuel percentage at check-out")
	return cmd
}
