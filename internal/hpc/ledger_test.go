package hpc

import (
	"context"
	"testing"

	"tvbhpc/pkg/model"
)

func TestLedger_NilIsNoop(t *testing.T) {
	var l *Ledger
	ctx := context.Background()

	rec := l.Submitted(ctx, model.JobKindSetup, "JUSUF", "p", model.NewJobDescription("true", "p"), "u", "/m")
	if rec == nil || rec.ID == "" || rec.Executable != "true" || rec.State != model.JobQueued {
		t.Fatalf("Submitted() = %+v", rec)
	}
	l.Finished(ctx, rec, model.JobFailed, "boom")
	if rec.State != model.JobFailed || rec.FinishedAt.IsZero() {
		t.Errorf("Finished() did not update record: %+v", rec)
	}
	l.Staged(ctx, nil, "dir")
	if got := l.Lookup(ctx, "u"); got != nil {
		t.Errorf("Lookup() = %+v, want nil", got)
	}

	empty := NewLedger(nil, nil)
	if got := empty.Lookup(ctx, "u"); got != nil {
		t.Errorf("Lookup() on storeless ledger = %+v", got)
	}
}
