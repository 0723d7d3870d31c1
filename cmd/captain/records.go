package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deepnoodle-ai/captain/fieldops"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newJobsCmd(cfg *config) *cobra.Command {
	var captainID string
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List a captain's jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			b, err := cfg.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			jobs, err := b.repo.ListJobs(ctx, captainID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs")
				return nil
			}
			for _, job := range jobs {
				fmt.Fprintf(out, "%s %s %-22s %s, %s\n", job.ID, job.ScheduledAt.Format("15:04"),
					job.ServiceName, job.CustomerName, jobStatus(job.Status))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&captainID, "captain", fieldops.SampleCaptain().ID, "Captain ID")
	return cmd
}

func jobStatus(s fieldops.JobStatus) string {
	switch s {
	case fieldops.JobCompleted:
		return color.GreenString(string(s))
	case fieldops.JobOngoing:
		return color.YellowString(string(s))
	case fieldops.JobCancelled:
		return color.RedString(string(s))
	}
	return string(s)
}

func newAttendanceCmd(cfg *config) *cobra.Command {
	var (
		captainID string
		month     string
	)
	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Print a captain's attendance calendar for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			today := cfg.now()
			first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
			if month != "" {
				t, err := time.ParseInLocation("2006-01", month, today.Location())
				if err != nil {
					return fmt.Errorf("invalid month %q: want YYYY-MM", month)
				}
				first = t
			}

			ctx := commandContext(cmd)
			b, err := cfg.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			m, err := fieldops.LoadMonth(ctx, b.repo, captainID, first.Year(), first.Month(), today)
			if err != nil {
				return err
			}
			printMonth(cmd, m)
			return nil
		},
	}
	cmd.Flags().StringVar(&captainID, "captain", fieldops.SampleCaptain().ID, "Captain ID")
	cmd.Flags().StringVar(&month, "month", "", "Month as YYYY-MM (default: current month)")
	return cmd
}

func printMonth(cmd *cobra.Command, m *fieldops.Month) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, color.CyanString("%s %d", m.Month, m.Year))
	fmt.Fprintln(out, "Su Mo Tu We Th Fr Sa")

	var line strings.Builder
	line.WriteString(strings.Repeat("   ", int(m.Offset)))
	for _, day := range m.Days {
		line.WriteString(dayCell(day))
		if day.Date.Weekday() == time.Saturday {
			fmt.Fprintln(out, strings.TrimRight(line.String(), " "))
			line.Reset()
			continue
		}
		line.WriteString(" ")
	}
	if line.Len() > 0 {
		fmt.Fprintln(out, strings.TrimRight(line.String(), " "))
	}

	fmt.Fprintf(out, "\nPresent: %d  Half days: %d  Absent: %d  Hours: %.1f\n",
		m.Present, m.HalfDays, m.Absent, m.Hours)
}

func dayCell(day fieldops.Day) string {
	cell := fmt.Sprintf("%2d", day.Date.Day())
	switch day.Status {
	case fieldops.DayPresent:
		return color.GreenString(cell)
	case fieldops.DayHalfDay:
		return color.YellowString(cell)
	case fieldops.DayAbsent:
		return color.RedString(cell)
	case fieldops.DayPending:
		return color.New(color.Bold).Sprint(cell)
	case fieldops.DayWeekend, fieldops.DayFuture:
		return color.HiBlackString(cell)
	}
	return cell
}

func newHistoryCmd(cfg *config) *cobra.Command {
	var recordID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the journal of transitions for a record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if recordID == "" {
				return fmt.Errorf("record id is required")
			}
			if cfg.DataDir == "" {
				return fmt.Errorf("history requires --data-dir")
			}
			ctx := commandContext(cmd)
			b, err := cfg.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			entries, err := b.journal.History(ctx, recordID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No history for %s\n", recordID)
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s %-15s %s -> %s\n", e.Time.Format(time.RFC3339), e.Event, e.FromStep, e.ToStep)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&recordID, "record", "", "Record ID (required)")
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
