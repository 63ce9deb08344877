package local

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tvbhpc/internal/local/executor"
	"tvbhpc/internal/logging"
	"tvbhpc/pkg/model"
	"tvbhpc/pkg/store"
)

type fakeExecutor struct {
	res  *executor.Result
	err  error
	spec executor.Spec
}

func (f *fakeExecutor) Run(ctx context.Context, spec executor.Spec) (*executor.Result, error) {
	f.spec = spec
	return f.res, f.err
}

func TestRunner_Run(t *testing.T) {
	tests := []struct {
		name      string
		res       *executor.Result
		err       error
		wantState model.JobStatus
		wantLog   string
		wantOut   string
	}{
		{
			name:      "success",
			res:       &executor.Result{Output: "simulated 1000 steps\n"},
			wantState: model.JobSuccessful,
			wantLog:   "simulated 1000 steps\n",
			wantOut:   "Job finished with success.",
		},
		{
			name:      "non-zero exit",
			res:       &executor.Result{ExitCode: 1, Output: "Traceback\n"},
			wantState: model.JobFailed,
			wantLog:   "Traceback\n",
			wantOut:   "Job finished with errors.",
		},
		{
			name:      "docker unavailable",
			err:       errors.New("cannot connect to the docker daemon"),
			wantState: model.JobFailed,
			wantOut:   "Job finished with errors.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			wf := filepath.Join(dir, "sim.py")
			os.WriteFile(wf, []byte("print('hi')"), 0644)

			db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"))
			if err != nil {
				t.Fatal(err)
			}
			defer db.Close()

			var out bytes.Buffer
			exec := &fakeExecutor{res: tt.res, err: tt.err}
			r := NewRunner(exec, db, "python:3.9", &out, logging.Discard())

			job, err := r.Run(context.Background(), wf)
			if (err != nil) != (tt.err != nil) {
				t.Fatalf("Run() error = %v, want %v", err, tt.err)
			}
			if job.State != tt.wantState {
				t.Errorf("State = %v, want %v", job.State, tt.wantState)
			}

			if exec.spec.HostDir != dir || exec.spec.Image != "python:3.9" {
				t.Errorf("spec = %+v", exec.spec)
			}
			if strings.Join(exec.spec.Command, " ") != "python sim.py" {
				t.Errorf("Command = %v", exec.spec.Command)
			}

			stored, err := db.GetJob(context.Background(), job.ID)
			if err != nil {
				t.Fatalf("GetJob() error = %v", err)
			}
			if stored.State != tt.wantState || stored.Kind != model.JobKindLocal || stored.FinishedAt.IsZero() {
				t.Errorf("stored = %+v", stored)
			}

			logs, err := db.GetJobLog(context.Background(), job.ID)
			if tt.wantLog == "" {
				if !errors.Is(err, store.ErrNotFound) {
					t.Errorf("GetJobLog() = %q, %v; want not found", logs, err)
				}
			} else if logs != tt.wantLog {
				t.Errorf("logs = %q, want %q", logs, tt.wantLog)
			}

			if !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("output missing %q:\n%s", tt.wantOut, out.String())
			}
		})
	}
}

func TestRunner_NoLedger(t *testing.T) {
	wf := filepath.Join(t.TempDir(), "sim.py")
	os.WriteFile(wf, nil, 0644)

	r := NewRunner(&fakeExecutor{res: &executor.Result{}}, nil, "python:3.9", &bytes.Buffer{}, logging.Discard())
	job, err := r.Run(context.Background(), wf)
	if err != nil || job.State != model.JobSuccessful {
		t.Errorf("Run() = %+v, %v", job, err)
	}
}
