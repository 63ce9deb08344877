package hpc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"

	"tvbhpc/pkg/model"
)

// Provisioner keeps the Python virtual environment on the home storage in
// line with the local package version.
type Provisioner struct {
	sites  model.SiteTable
	layout model.EnvironmentLayout
	ledger *Ledger
	out    io.Writer
	logger *slog.Logger
}

func NewProvisioner(s Settings) *Provisioner {
	return &Provisioner{
		sites:  s.Sites,
		layout: s.Layout,
		ledger: s.Ledger,
		out:    s.Out,
		logger: s.logger(),
	}
}

// CheckEnvironment inspects the home storage. The checks stop at the first
// negative answer. A missing environment directory is created on the way;
// the virtual environment itself is left to the setup job. Inspection errors
// are reported as not ready.
func (p *Provisioner) CheckEnvironment(ctx context.Context, home Storage) model.Readiness {
	l := p.layout

	root, err := home.ListDir(ctx, "")
	if err != nil {
		p.logger.Warn("listing home storage failed", "error", err)
		fmt.Fprintf(p.out, "Could not list the %s storage, will recreate the environment: %v\n", l.StorageName, err)
		return model.NotReady(model.ReasonInspectionError, err.Error())
	}
	if !model.ContainsDir(root, l.EnvDir) {
		if err := home.Mkdir(ctx, l.EnvDir); err != nil {
			p.logger.Warn("creating environment directory failed", "dir", l.EnvDir, "error", err)
		}
		fmt.Fprintf(p.out, "Environment directory not found in %s, will be created.\n", l.StorageName)
		return model.NotReady(model.ReasonMissingEnvDir, l.EnvDir)
	}

	envDir, err := home.ListDir(ctx, l.EnvDir)
	if err != nil {
		p.logger.Warn("listing environment directory failed", "dir", l.EnvDir, "error", err)
		fmt.Fprintf(p.out, "Could not list %s, will recreate the environment: %v\n", l.EnvDir, err)
		return model.NotReady(model.ReasonInspectionError, err.Error())
	}
	if !model.ContainsDir(envDir, l.VenvPath()) {
		fmt.Fprintf(p.out, "Environment not found in %s, will be created.\n", l.StorageName)
		return model.NotReady(model.ReasonMissingVenv, l.VenvPath())
	}

	sitePackages, err := home.ListDir(ctx, l.SitePackagesPath())
	if err != nil {
		fmt.Fprintf(p.out, "Could not find site-packages in the environment, will recreate it: %v\n", err)
		return model.NotReady(model.ReasonInspectionError, err.Error())
	}

	remote, found := installedVersion(sitePackages, l.DistInfoPrefix())
	if !found {
		fmt.Fprintf(p.out, "Could not find %s installed in the environment, will recreate it.\n", l.Package)
		return model.NotReady(model.ReasonMissingPackage, l.Package)
	}
	if remote == l.PackageVersion {
		return model.ReadyEnvironment()
	}
	if !pep440Version.MatchString(remote) {
		fmt.Fprintf(p.out, "Could not read the version of %s installed in the environment, will recreate it.\n", l.Package)
		return model.NotReady(model.ReasonInspectionError, fmt.Sprintf("malformed version %q", remote))
	}
	fmt.Fprintf(p.out, "Found %s version %s of %s installed in the environment, will recreate it with %s.\n",
		relativeAge(remote, l.PackageVersion), remote, l.Package, l.PackageVersion)
	return model.NotReady(model.ReasonVersionMismatch, fmt.Sprintf("remote %s, local %s", remote, l.PackageVersion))
}

// pep440Version matches the normalized version pip writes into dist-info names.
var pep440Version = regexp.MustCompile(`(?i)^v?(\d+!)?\d+(\.\d+)*((a|b|rc)\d+)?(\.post\d+)?(\.dev\d+)?(\+[a-z0-9]+(\.[a-z0-9]+)*)?$`)

// relativeAge says whether remote is older or newer than local, "another"
// when the two cannot be ordered.
func relativeAge(remote, local string) string {
	rv, err := version.NewVersion(remote)
	if err != nil {
		return "another"
	}
	lv, err := version.NewVersion(local)
	if err != nil {
		return "another"
	}
	switch rv.Compare(lv) {
	case -1:
		return "an older"
	case 1:
		return "a newer"
	}
	return "another"
}

// IsEnvironmentReady reports whether the workflow can run without a setup job.
func (p *Provisioner) IsEnvironmentReady(ctx context.Context, home Storage) bool {
	return p.CheckEnvironment(ctx, home).Ready
}

// installedVersion finds "<prefix><version>.dist-info" among the entries.
func installedVersion(entries []model.RemoteEntry, prefix string) (string, bool) {
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".dist-info") {
			continue
		}
		return strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".dist-info"), true
	}
	return "", false
}

// SetupDescription is the job that recreates the environment from scratch
// and installs the local package version. It runs on a login node.
func (p *Provisioner) SetupDescription(site, project string) model.JobDescription {
	l := p.layout
	cmd := strings.Join([]string{
		p.sites.Lookup(site).ModuleLoadCommand(),
		l.CreateEnvCommand(),
		l.ActivateCommand(),
		l.InstallCommand(),
	}, " && ")
	return model.NewJobDescription(cmd, project).Interactive()
}

// Prepare submits the setup job and waits for it. A FAILED job yields
// ErrSetupFailed.
func (p *Provisioner) Prepare(ctx context.Context, client Client, site, project string) error {
	fmt.Fprintf(p.out, "Preparing environment in your %s folder...\n", p.layout.StorageName)

	desc := p.SetupDescription(site, project)
	job, err := client.NewJob(ctx, desc, nil)
	if err != nil {
		return fmt.Errorf("submitting setup job: %w", err)
	}

	mount := reportRunning(ctx, p.out, p.logger, site, job)
	fmt.Fprintln(p.out, "Waiting for job to finish...")
	rec := p.ledger.Submitted(ctx, model.JobKindSetup, site, project, desc, job.URL(), mount)

	status, err := job.Poll(ctx)
	if err != nil {
		p.ledger.Finished(ctx, rec, status, err.Error())
		return fmt.Errorf("polling setup job: %w", err)
	}
	p.ledger.Finished(ctx, rec, status, "")

	if status == model.JobFailed {
		fmt.Fprintln(p.out, "Encountered an error during environment setup, stopping execution.")
		return ErrSetupFailed
	}
	fmt.Fprintln(p.out, "Successfully finished the environment setup.")
	return nil
}

// reportRunning prints where a job runs and when it was submitted and
// returns the working directory mount point.
func reportRunning(ctx context.Context, out io.Writer, logger *slog.Logger, site string, job Job) string {
	var mount string
	if wd, err := job.WorkingDir(ctx); err != nil {
		logger.Warn("job working directory unavailable", "job", job.URL(), "error", err)
	} else if mount, err = wd.MountPoint(ctx); err != nil {
		logger.Warn("reading mount point failed", "job", job.URL(), "error", err)
	}
	fmt.Fprintf(out, "Job is running at %s: %s. Submission time is: %s.\n",
		site, mount, FormatSubmissionTime(job.SubmissionTime()))
	return mount
}
