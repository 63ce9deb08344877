// Package hpc runs a compiled workflow on a UNICORE site: connect, locate the
// home storage, make sure the Python environment is ready, submit the job,
// optionally wait for it and stage out its results.
//
// Progress is reported as plain lines on the configured writer (stdout in the
// CLI); diagnostics go to the slog logger.
package hpc

import (
	"context"
	"io"
	"log/slog"
	"time"

	"tvbhpc/pkg/model"
	"tvbhpc/pkg/unicore"
)

// Client is a connection to one site.
type Client interface {
	Storages(ctx context.Context, num, offset int) ([]Storage, error)
	NewJob(ctx context.Context, desc model.JobDescription, inputs []string) (Job, error)
	Job(ctx context.Context, url string) (Job, error)
}

// Storage is a remote file area: a home storage or a job working directory.
type Storage interface {
	ResourceURL() string
	MountPoint(ctx context.Context) (string, error)
	ListDir(ctx context.Context, dir string) ([]model.RemoteEntry, error)
	Mkdir(ctx context.Context, dir string) error
	Download(ctx context.Context, path string, w io.Writer) error
}

// Job is a handle to a submitted job.
type Job interface {
	URL() string
	SubmissionTime() string
	WorkingDir(ctx context.Context) (Storage, error)
	// Poll blocks until the job is SUCCESSFUL or FAILED.
	Poll(ctx context.Context) (model.JobStatus, error)
}

// Settings are shared by the flow components.
type Settings struct {
	Sites  model.SiteTable
	Layout model.EnvironmentLayout
	Out    io.Writer
	Logger *slog.Logger
	Ledger *Ledger
}

func (s Settings) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

// NewUnicoreClient wraps a UNICORE site client. Jobs created through it poll
// every interval.
func NewUnicoreClient(c *unicore.Client, interval time.Duration) Client {
	return &unicoreClient{c: c, interval: interval}
}

type unicoreClient struct {
	c        *unicore.Client
	interval time.Duration
}

func (u *unicoreClient) Storages(ctx context.Context, num, offset int) ([]Storage, error) {
	page, err := u.c.Storages(ctx, num, offset)
	if err != nil {
		return nil, err
	}
	out := make([]Storage, len(page))
	for i, s := range page {
		out[i] = s
	}
	return out, nil
}

func (u *unicoreClient) NewJob(ctx context.Context, desc model.JobDescription, inputs []string) (Job, error) {
	j, err := u.c.NewJob(ctx, desc, inputs)
	if err != nil {
		return nil, err
	}
	return &unicoreJob{j: j, interval: u.interval}, nil
}

func (u *unicoreClient) Job(ctx context.Context, url string) (Job, error) {
	j, err := u.c.Job(ctx, url)
	if err != nil {
		return nil, err
	}
	return &unicoreJob{j: j, interval: u.interval}, nil
}

type unicoreJob struct {
	j        *unicore.Job
	interval time.Duration
}

func (u *unicoreJob) URL() string            { return u.j.URL() }
func (u *unicoreJob) SubmissionTime() string { return u.j.SubmissionTime() }

func (u *unicoreJob) WorkingDir(ctx context.Context) (Storage, error) {
	wd, err := u.j.WorkingDir(ctx)
	if err != nil {
		return nil, err
	}
	return wd, nil
}

func (u *unicoreJob) Poll(ctx context.Context) (model.JobStatus, error) {
	return u.j.Poll(ctx, u.interval)
}
