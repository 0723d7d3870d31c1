package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/deepnoodle-ai/captain"
	"github.com/deepnoodle-ai/captain/session"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRunCmd(cfg *config) *cobra.Command {
	var (
		file    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a scripted session against a flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("session file is required")
			}
			script, err := session.LoadFile(file)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			b, err := cfg.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			out := cmd.OutOrStdout()
			journal := journalCallbacks(cfg, b)
			runner := &session.Runner{
				Catalog:    cfg.catalog,
				Repository: b.repo,
				Store:      b.store,
				Callbacks:  captain.NewCallbackChain(&printer{out: out}, journal),
				Logger:     cfg.logger,
				Now:        cfg.now,
			}

			start := time.Now()
			result, err := runner.Run(ctx, script)
			if result != nil {
				printResult(out, result, time.Since(start))
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the YAML session script (required)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort the replay after this long")
	return cmd
}

func journalCallbacks(cfg *config, b *backend) *captain.JournalCallbacks {
	journal := captain.NewJournalCallbacks(b.journal)
	journal.OnError = func(err error) {
		cfg.logger.Warn("journal append failed", "error", err)
	}
	return journal
}

// printer writes each transition as it happens.
type printer struct {
	out io.Writer
}

func (p *printer) OnAdvanced(ctx context.Context, e *captain.TransitionEvent) {
	fmt.Fprintln(p.out, color.GreenString("→ %s -> %s", e.FromStep, e.ToStep))
}

func (p *printer) OnBlocked(ctx context.Context, e *captain.TransitionEvent) {
	fmt.Fprintln(p.out, color.YellowString("✗ %s is not complete", e.FromStep))
}

func (p *printer) OnRetreated(ctx context.Context, e *captain.TransitionEvent) {
	fmt.Fprintln(p.out, color.BlueString("← %s -> %s", e.FromStep, e.ToStep))
}

func (p *printer) OnExitRequested(ctx context.Context, e *captain.TransitionEvent) {
	fmt.Fprintln(p.out, color.YellowString("? exit requested at %s", e.FromStep))
}

func (p *printer) OnExited(ctx context.Context, e *captain.TransitionEvent) {
	fmt.Fprintln(p.out, color.BlueString("■ saved at %s", e.FromStep))
}

func (p *printer) OnCompleted(ctx context.Context, e *captain.TransitionEvent) {
	fmt.Fprintln(p.out, color.GreenString("✓ %s completed", e.Workflow))
}

func printResult(out io.Writer, result *session.Result, duration time.Duration) {
	fmt.Fprintln(out, color.CyanString("\n=== Session Results ==="))
	fmt.Fprintf(out, "Record: %s\n", result.RecordID)
	fmt.Fprintf(out, "Workflow: %s\n", result.Workflow)
	fmt.Fprintf(out, "Step: %d (%s)\n", result.Index+1, result.Step)
	switch result.Status {
	case captain.StatusCompleted:
		fmt.Fprintln(out, color.GreenString("Status: %s", result.Status))
	case captain.StatusExited:
		fmt.Fprintln(out, color.BlueString("Status: %s", result.Status))
	default:
		fmt.Fprintln(out, color.YellowString("Status: %s", result.Status))
	}
	fmt.Fprintf(out, "Duration: %v\n", duration.Round(time.Millisecond))
}
