// Package local runs compiled workflows on the researcher's machine.
package local

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"tvbhpc/internal/local/executor"
	"tvbhpc/pkg/model"
	"tvbhpc/pkg/store"
)

// Executor runs a container spec to completion.
type Executor interface {
	Run(ctx context.Context, spec executor.Spec) (*executor.Result, error)
}

// Runner executes a workflow file in a container and records the run in the
// ledger. A nil store disables recording.
type Runner struct {
	exec   Executor
	store  store.Store
	image  string
	out    io.Writer
	logger *slog.Logger
}

func NewRunner(exec Executor, s store.Store, image string, out io.Writer, logger *slog.Logger) *Runner {
	return &Runner{exec: exec, store: s, image: image, out: out, logger: logger}
}

// Run executes workflowPath with python inside the runner's image, with the
// workflow directory as working directory. The returned record holds the
// final state; a non-zero exit code is a FAILED run, not an error.
func (r *Runner) Run(ctx context.Context, workflowPath string) (*model.JobRecord, error) {
	abs, err := filepath.Abs(workflowPath)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(abs)

	job := &model.JobRecord{
		ID:          uuid.NewString(),
		Kind:        model.JobKindLocal,
		Executable:  "python " + name,
		MountPoint:  filepath.Dir(abs),
		State:       model.JobRunning,
		SubmittedAt: time.Now().UTC(),
	}
	r.record(ctx, job, true)

	fmt.Fprintf(r.out, "Running %s locally in %s...\n", name, r.image)
	res, err := r.exec.Run(ctx, executor.Spec{
		Image:   r.image,
		HostDir: filepath.Dir(abs),
		Command: []string{"python", name},
	})

	var output string
	switch {
	case err != nil:
		r.logger.Warn("local run failed", "workflow", name, "error", err)
		job.Finish(model.JobFailed, err.Error())
	case res.ExitCode != 0:
		output = res.Output
		job.Finish(model.JobFailed, fmt.Sprintf("exit code %d", res.ExitCode))
	default:
		output = res.Output
		job.Finish(model.JobSuccessful, "")
	}
	r.record(ctx, job, false)

	if output != "" {
		io.WriteString(r.out, output)
		if r.store != nil {
			if err := r.store.SaveJobLog(ctx, job.ID, output); err != nil {
				r.logger.Warn("saving job log failed", "id", job.ID, "error", err)
			}
		}
	}

	if job.State == model.JobFailed {
		fmt.Fprintln(r.out, "Job finished with errors.")
	} else {
		fmt.Fprintln(r.out, "Job finished with success.")
	}
	return job, err
}

func (r *Runner) record(ctx context.Context, job *model.JobRecord, create bool) {
	if r.store == nil {
		return
	}
	var err error
	if create {
		err = r.store.CreateJob(ctx, job)
	} else {
		err = r.store.UpdateJob(ctx, job)
	}
	if err != nil {
		r.logger.Warn("ledger: failed to record local run", "id", job.ID, "error", err)
	}
}
