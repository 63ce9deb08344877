package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tvbhpc/pkg/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger", "jobs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesFile(t *testing.T) {
	s := newTestStore(t)
	if _, err := os.Stat(s.Path()); err != nil {
		t.Errorf("ledger file not created: %v", err)
	}
}

func TestSQLiteStore_CreateGetUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	submitted := time.Date(2024, 3, 1, 9, 15, 42, 0, time.UTC)
	job := &model.JobRecord{
		ID:          "a1",
		Kind:        model.JobKindWorkflow,
		Site:        "JUSUF",
		Project:     "icei-hbp",
		Executable:  "python wf.py",
		URL:         "https://hpc/JUSUF/rest/core/jobs/1",
		State:       model.JobQueued,
		SubmittedAt: submitted,
	}
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	got, err := s.GetJob(ctx, "a1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got.Site != "JUSUF" || got.State != model.JobQueued || !got.SubmittedAt.Equal(submitted) {
		t.Errorf("GetJob() = %+v", got)
	}
	if !got.FinishedAt.IsZero() {
		t.Errorf("FinishedAt = %v, want zero", got.FinishedAt)
	}

	job.Finish(model.JobSuccessful, "")
	job.ResultsDir = "results"
	if err := s.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob() error = %v", err)
	}
	got, _ = s.GetJob(ctx, "a1")
	if got.State != model.JobSuccessful || got.ResultsDir != "results" || got.FinishedAt.IsZero() {
		t.Errorf("after update: %+v", got)
	}
}

func TestSQLiteStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob() error = %v, want ErrNotFound", err)
	}
	if err := s.UpdateJob(ctx, &model.JobRecord{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateJob() error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetJobLog(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJobLog() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_ListJobsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new", "mid"} {
		offset := map[string]time.Duration{"old": 0, "mid": time.Hour, "new": 2 * time.Hour}[id]
		err := s.CreateJob(ctx, &model.JobRecord{
			ID:          id,
			Kind:        model.JobKindLocal,
			URL:         "u" + string(rune('0'+i)),
			State:       model.JobRunning,
			SubmittedAt: base.Add(offset),
		})
		if err != nil {
			t.Fatalf("CreateJob(%s) error = %v", id, err)
		}
	}

	jobs, err := s.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	var ids []string
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	want := []string{"new", "mid", "old"}
	if len(ids) != 3 || ids[0] != want[0] || ids[1] != want[1] || ids[2] != want[2] {
		t.Errorf("ListJobs() order = %v, want %v", ids, want)
	}

	found, err := FindByURL(ctx, s, "u2")
	if err != nil || found.ID != "mid" {
		t.Errorf("FindByURL() = %v, %v; want mid", found, err)
	}
	if _, err := FindByURL(ctx, s, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByURL(nope) error = %v", err)
	}
}

func TestSQLiteStore_FindJobByURL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, rec := range []*model.JobRecord{
		{ID: "first", Kind: model.JobKindWorkflow, URL: "https://site/rest/core/jobs/a", State: model.JobFailed, SubmittedAt: base},
		{ID: "resubmitted", Kind: model.JobKindWorkflow, URL: "https://site/rest/core/jobs/a", State: model.JobQueued, SubmittedAt: base.Add(time.Minute)},
		{ID: "other", Kind: model.JobKindSetup, URL: "https://site/rest/core/jobs/b", State: model.JobQueued, SubmittedAt: base.Add(time.Hour)},
	} {
		if err := s.CreateJob(ctx, rec); err != nil {
			t.Fatalf("CreateJob(%s) error = %v", rec.ID, err)
		}
	}

	var _ URLFinder = s
	got, err := s.FindJobByURL(ctx, "https://site/rest/core/jobs/a")
	if err != nil {
		t.Fatalf("FindJobByURL() error = %v", err)
	}
	if got.ID != "resubmitted" || got.State != model.JobQueued {
		t.Errorf("FindJobByURL() = %+v, want the newest record", got)
	}
	if _, err := s.FindJobByURL(ctx, "https://site/rest/core/jobs/c"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindJobByURL(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_JobLogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveJobLog(ctx, "j", "first"); err != nil {
		t.Fatalf("SaveJobLog() error = %v", err)
	}
	if err := s.SaveJobLog(ctx, "j", "second"); err != nil {
		t.Fatalf("SaveJobLog() overwrite error = %v", err)
	}
	got, err := s.GetJobLog(ctx, "j")
	if err != nil || got != "second" {
		t.Errorf("GetJobLog() = %q, %v; want second", got, err)
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(Options{Backend: BackendNone}, nil)
	if err != nil || s != nil {
		t.Errorf("Open(none) = %v, %v; want nil, nil", s, err)
	}

	if _, err := Open(Options{Backend: "redis"}, nil); err == nil {
		t.Error("Open(redis) should fail")
	}
	if _, err := Open(Options{Backend: BackendEtcd}, nil); err == nil {
		t.Error("Open(etcd) without endpoints should fail")
	}

	s, err = Open(Options{Path: filepath.Join(t.TempDir(), "jobs.db")}, nil)
	if err != nil {
		t.Fatalf("Open(default) error = %v", err)
	}
	defer s.Close()
	if _, ok := s.(*SQLiteStore); !ok {
		t.Errorf("default backend = %T, want *SQLiteStore", s)
	}
}
