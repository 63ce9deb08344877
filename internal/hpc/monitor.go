package hpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"tvbhpc/pkg/model"
)

// Monitor waits for a workflow job and stages out its results.
type Monitor struct {
	stager *Stager
	ledger *Ledger
	out    io.Writer
	logger *slog.Logger
}

func NewMonitor(s Settings, stager *Stager) *Monitor {
	return &Monitor{
		stager: stager,
		ledger: s.Ledger,
		out:    s.Out,
		logger: s.logger(),
	}
}

// Monitor blocks until job is terminal. A FAILED job is reported and its
// results are left on the site; any other terminal status triggers stage-out.
// Only local failures during stage-out are returned as errors. rec is the
// ledger record of job; when nil it is looked up by the job URL.
func (m *Monitor) Monitor(ctx context.Context, job Job, rec *model.JobRecord) (Outcome, error) {
	if rec == nil {
		rec = m.ledger.Lookup(ctx, job.URL())
	}

	fmt.Fprintln(m.out, "Waiting for job to finish...")
	status, err := job.Poll(ctx)
	if err != nil {
		m.logger.Warn("polling failed", "job", job.URL(), "status", status, "error", err)
		fmt.Fprintf(m.out, "Could not follow the job: %v\n", err)
		return OutcomeRemoteError, nil
	}
	m.ledger.Finished(ctx, rec, status, "")

	if status == model.JobFailed {
		fmt.Fprintln(m.out, "Job finished with errors.")
		return OutcomeJobFailed, nil
	}

	fmt.Fprintln(m.out, "Job finished with success. Staging out the results...")
	dir, err := m.stager.StageOut(ctx, job)
	var (
		remoteErr *RemoteError
		multiErr  *MultipleResultsDirsError
	)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoResultsDir), errors.As(err, &multiErr):
		fmt.Fprintf(m.out, "Could not identify the results directory: %v\n", err)
		return OutcomeResultsAmbiguous, nil
	case errors.As(err, &remoteErr):
		fmt.Fprintf(m.out, "Could not stage out the results: %v\n", err)
		return OutcomeRemoteError, nil
	default:
		return OutcomeRemoteError, fmt.Errorf("staging out %s: %w", job.URL(), err)
	}

	m.ledger.Staged(ctx, rec, dir)
	fmt.Fprintln(m.out, "Finished execution.")
	return OutcomeStaged, nil
}
