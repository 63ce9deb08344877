package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tvbhpc/pkg/model"
	"tvbhpc/pkg/store"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the local job ledger",
	}
	cmd.PersistentFlags().Bool("json", false, "Output as JSON")
	cmd.AddCommand(
		newJobsListCmd(),
		newJobsShowCmd(),
		newJobsLogsCmd(),
		newJobsWatchCmd(),
	)
	return cmd
}

func newJobsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireLedger(); err != nil {
				return err
			}

			jobs, err := a.ledger.ListJobs(context.Background())
			if err != nil {
				return fmt.Errorf("listing jobs: %w", err)
			}
			if kind, _ := cmd.Flags().GetString("kind"); kind != "" {
				jobs = filterKind(jobs, model.JobKind(kind))
			}
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(jobs) > limit {
				jobs = jobs[:limit]
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return writeJSON(a.out, jobs)
			}
			printJobTable(a.out, jobs)
			return nil
		},
	}
	cmd.Flags().String("kind", "", "Only show jobs of this kind: setup, workflow, local")
	cmd.Flags().Int("limit", 20, "Maximum number of jobs to show (0 for all)")
	return cmd
}

func filterKind(jobs []*model.JobRecord, kind model.JobKind) []*model.JobRecord {
	var out []*model.JobRecord
	for _, j := range jobs {
		if j.Kind == kind {
			out = append(out, j)
		}
	}
	return out
}

func printJobTable(w io.Writer, jobs []*model.JobRecord) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSITE\tSTATE\tSUBMITTED\tLOCATION")
	for _, j := range jobs {
		site := j.Site
		if site == "" {
			site = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(j.ID), j.Kind, site, j.State, humanize.Time(j.SubmittedAt), location(j))
	}
	tw.Flush()
}

func location(j *model.JobRecord) string {
	switch {
	case j.ResultsDir != "":
		return j.ResultsDir
	case j.MountPoint != "":
		return j.MountPoint
	default:
		return j.URL
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newJobsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job (ID or unique ID prefix)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireLedger(); err != nil {
				return err
			}

			job, err := resolveJob(context.Background(), a.ledger, args[0])
			if err != nil {
				return err
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return writeJSON(a.out, job)
			}
			printJob(a.out, job)
			return nil
		},
	}
}

func printJob(w io.Writer, j *model.JobRecord) {
	fmt.Fprintf(w, "ID:          %s\n", j.ID)
	fmt.Fprintf(w, "Kind:        %s\n", j.Kind)
	if j.Site != "" {
		fmt.Fprintf(w, "Site:        %s\n", j.Site)
		fmt.Fprintf(w, "Project:     %s\n", j.Project)
	}
	fmt.Fprintf(w, "State:       %s\n", j.State)
	fmt.Fprintf(w, "Executable:  %s\n", j.Executable)
	if j.URL != "" {
		fmt.Fprintf(w, "URL:         %s\n", j.URL)
	}
	if j.MountPoint != "" {
		fmt.Fprintf(w, "Working dir: %s\n", j.MountPoint)
	}
	fmt.Fprintf(w, "Submitted:   %s (%s)\n", j.SubmittedAt.Local().Format("01.02.2006, 15:04:05"), humanize.Time(j.SubmittedAt))
	if !j.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Finished:    %s (%s)\n", j.FinishedAt.Local().Format("01.02.2006, 15:04:05"), humanize.Time(j.FinishedAt))
	}
	if j.ResultsDir != "" {
		fmt.Fprintf(w, "Results:     %s\n", j.ResultsDir)
	}
	if j.Error != "" {
		fmt.Fprintf(w, "Error:       %s\n", j.Error)
	}
}

// resolveJob finds a job by ID or unique ID prefix.
func resolveJob(ctx context.Context, s store.Store, ref string) (*model.JobRecord, error) {
	if job, err := s.GetJob(ctx, ref); err == nil {
		return job, nil
	}
	jobs, err := s.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	var match *model.JobRecord
	for _, j := range jobs {
		if !strings.HasPrefix(j.ID, ref) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("job prefix %q is ambiguous", ref)
		}
		match = j
	}
	if match == nil {
		return nil, fmt.Errorf("job %s: %w", ref, store.ErrNotFound)
	}
	return match, nil
}

func newJobsLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs <id>",
		Short: "Print the captured output of a local run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireLedger(); err != nil {
				return err
			}

			ctx := context.Background()
			job, err := resolveJob(ctx, a.ledger, args[0])
			if err != nil {
				return err
			}
			logs, err := a.ledger.GetJobLog(ctx, job.ID)
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, logs)
			return nil
		},
	}
}

func newJobsWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream ledger changes (etcd ledger only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireLedger(); err != nil {
				return err
			}
			w, ok := a.ledger.(store.Watcher)
			if !ok {
				return fmt.Errorf("ledger backend %q cannot be watched, use etcd", a.cfg.Ledger.Backend)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			jsonOut, _ := cmd.Flags().GetBool("json")
			for ev := range w.WatchJobs(ctx) {
				if jsonOut {
					if err := writeJSON(a.out, ev); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(a.out, "%-6s %s %-8s %-10s %s\n",
					ev.Type, shortID(ev.Job.ID), ev.Job.Kind, ev.Job.State, location(ev.Job))
			}
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
