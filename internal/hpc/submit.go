package hpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"tvbhpc/pkg/model"
)

// SiteConnector opens a client for a site name.
type SiteConnector interface {
	Connect(ctx context.Context, site string) (Client, error)
}

// Request is one workflow launch.
type Request struct {
	Site       string
	Project    string
	Executable string   // workflow file name as seen in the job working directory
	Inputs     []string // local files uploaded before the job starts
	Monitor    bool
}

// Submitter drives a launch end to end.
type Submitter struct {
	connector   SiteConnector
	provisioner *Provisioner
	monitor     *Monitor
	sites       model.SiteTable
	layout      model.EnvironmentLayout
	ledger      *Ledger
	out         io.Writer
	logger      *slog.Logger
}

func NewSubmitter(s Settings, connector SiteConnector, provisioner *Provisioner, monitor *Monitor) *Submitter {
	return &Submitter{
		connector:   connector,
		provisioner: provisioner,
		monitor:     monitor,
		sites:       s.Sites,
		layout:      s.Layout,
		ledger:      s.Ledger,
		out:         s.Out,
		logger:      s.logger(),
	}
}

// WorkflowDescription runs executable inside the prepared environment.
func (s *Submitter) WorkflowDescription(site, project, executable string) model.JobDescription {
	cmd := strings.Join([]string{
		s.sites.Lookup(site).ModuleLoadCommand(),
		s.layout.ActivateCommand(),
		"python " + executable,
	}, " && ")
	return model.NewJobDescription(cmd, project)
}

// Submit connects to the site, ensures the environment is ready and launches
// the workflow. Every condition the user can act on is reported on the
// output writer and returned as an Outcome with a nil error.
func (s *Submitter) Submit(ctx context.Context, req Request) (Outcome, error) {
	client, err := s.connector.Connect(ctx, req.Site)
	if err != nil {
		fmt.Fprintf(s.out, "Could not connect to %s, stopping execution.\n", req.Site)
		if errors.Is(err, ErrSiteUnavailable) {
			return OutcomeSiteUnavailable, nil
		}
		return OutcomeAuthFailed, nil
	}

	fmt.Fprintf(s.out, "Accessing storages on %s...\n", req.Site)
	home, err := FindHomeStorage(ctx, client, s.layout.StorageName)
	if err != nil {
		if errors.Is(err, ErrHomeStorageNotFound) {
			fmt.Fprintf(s.out, "Could not find a %s storage on %s, stopping execution.\n", s.layout.StorageName, req.Site)
			return OutcomeNoHomeStorage, nil
		}
		fmt.Fprintf(s.out, "Could not access storages on %s: %v, stopping execution.\n", req.Site, err)
		return OutcomeRemoteError, nil
	}
	s.logger.Debug("found home storage", "url", home.ResourceURL())

	if r := s.provisioner.CheckEnvironment(ctx, home); r.Ready {
		fmt.Fprintln(s.out, "Environment is already prepared, it won't be recreated.")
	} else {
		s.logger.Info("environment not ready", "reason", r.Reason, "detail", r.Detail)
		if err := s.provisioner.Prepare(ctx, client, req.Site, req.Project); err != nil {
			if errors.Is(err, ErrSetupFailed) {
				return OutcomeSetupFailed, nil
			}
			fmt.Fprintf(s.out, "Could not set up the environment: %v, stopping execution.\n", err)
			return OutcomeRemoteError, nil
		}
	}

	fmt.Fprintln(s.out, "Launching workflow...")
	desc := s.WorkflowDescription(req.Site, req.Project, req.Executable)
	job, err := client.NewJob(ctx, desc, req.Inputs)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return OutcomeRemoteError, fmt.Errorf("uploading inputs: %w", err)
		}
		fmt.Fprintf(s.out, "Could not launch the workflow: %v\n", err)
		return OutcomeRemoteError, nil
	}

	mount := reportRunning(ctx, s.out, s.logger, req.Site, job)
	rec := s.ledger.Submitted(ctx, model.JobKindWorkflow, req.Site, req.Project, desc, job.URL(), mount)
	fmt.Fprintln(s.out, "Finished remote launch.")

	if !req.Monitor {
		fmt.Fprintf(s.out, "You can monitor it with: tvb-hpc monitor %s %s\n", job.URL(), req.Site)
		return OutcomeLaunched, nil
	}
	return s.monitor.Monitor(ctx, job, rec)
}

// Attach opens an already launched job on site and monitors it.
func (s *Submitter) Attach(ctx context.Context, site, jobURL string) (Outcome, error) {
	client, err := s.connector.Connect(ctx, site)
	if err != nil {
		fmt.Fprintf(s.out, "Could not connect to %s, stopping execution.\n", site)
		if errors.Is(err, ErrSiteUnavailable) {
			return OutcomeSiteUnavailable, nil
		}
		return OutcomeAuthFailed, nil
	}
	job, err := client.Job(ctx, jobURL)
	if err != nil {
		fmt.Fprintf(s.out, "Could not open job %s: %v\n", jobURL, err)
		return OutcomeRemoteError, nil
	}
	return s.monitor.Monitor(ctx, job, nil)
}
