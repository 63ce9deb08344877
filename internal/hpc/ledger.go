package hpc

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tvbhpc/pkg/model"
	"tvbhpc/pkg/store"
)

// Ledger records submitted jobs in a store. A nil *Ledger, or one without a
// store, records nothing. Store failures are logged and never returned.
type Ledger struct {
	store  store.Store
	logger *slog.Logger
}

func NewLedger(s store.Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = Settings{}.logger()
	}
	return &Ledger{store: s, logger: logger}
}

func (l *Ledger) enabled() bool {
	return l != nil && l.store != nil
}

// Submitted creates the record of a freshly submitted job. The returned
// record is usable even when nothing is stored.
func (l *Ledger) Submitted(ctx context.Context, kind model.JobKind, site, project string, desc model.JobDescription, jobURL, mountPoint string) *model.JobRecord {
	rec := &model.JobRecord{
		ID:          uuid.NewString(),
		Kind:        kind,
		Site:        site,
		Project:     project,
		Executable:  desc[model.ExecutableKey],
		URL:         jobURL,
		MountPoint:  mountPoint,
		State:       model.JobQueued,
		SubmittedAt: time.Now().UTC(),
	}
	if !l.enabled() {
		return rec
	}
	if err := l.store.CreateJob(ctx, rec); err != nil {
		l.logger.Warn("ledger: failed to record job", "url", jobURL, "error", err)
	}
	return rec
}

// Lookup returns the record of the job at jobURL, or nil.
func (l *Ledger) Lookup(ctx context.Context, jobURL string) *model.JobRecord {
	if !l.enabled() {
		return nil
	}
	rec, err := store.FindByURL(ctx, l.store, jobURL)
	if err != nil {
		l.logger.Debug("ledger: no record for job", "url", jobURL, "error", err)
		return nil
	}
	return rec
}

// Finished stores a terminal state. rec may be nil.
func (l *Ledger) Finished(ctx context.Context, rec *model.JobRecord, state model.JobStatus, errMsg string) {
	if rec == nil {
		return
	}
	rec.Finish(state, errMsg)
	l.update(ctx, rec)
}

// Staged stores the local results directory. rec may be nil.
func (l *Ledger) Staged(ctx context.Context, rec *model.JobRecord, dir string) {
	if rec == nil {
		return
	}
	rec.ResultsDir = dir
	l.update(ctx, rec)
}

func (l *Ledger) update(ctx context.Context, rec *model.JobRecord) {
	if !l.enabled() {
		return
	}
	if err := l.store.UpdateJob(ctx, rec); err != nil {
		l.logger.Warn("ledger: failed to update job", "id", rec.ID, "error", err)
	}
}
