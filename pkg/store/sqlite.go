package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tvbhpc/pkg/model"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
  id           TEXT PRIMARY KEY,
  kind         TEXT NOT NULL,
  site         TEXT,
  project      TEXT,
  executable   TEXT,
  url          TEXT,
  mount_point  TEXT,
  state        TEXT,
  error        TEXT,
  results_dir  TEXT,
  submitted_at TEXT,
  finished_at  TEXT
);
CREATE INDEX IF NOT EXISTS idx_jobs_url ON jobs(url);
CREATE TABLE IF NOT EXISTS job_logs (
  job_id  TEXT PRIMARY KEY,
  content TEXT
);`

// SQLiteStore is the default, per-user ledger.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the ledger database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) CreateJob(ctx context.Context, job *model.JobRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO jobs
		(id, kind, site, project, executable, url, mount_point, state, error, results_dir, submitted_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Kind), job.Site, job.Project, job.Executable, job.URL, job.MountPoint,
		string(job.State), job.Error, job.ResultsDir, formatTime(job.SubmittedAt), formatTime(job.FinishedAt))
	if err != nil {
		return fmt.Errorf("inserting job %s: %w", job.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, job *model.JobRecord) error {
	res, err := s.db.ExecContext(ctx, `UPDATE jobs SET
		kind = ?, site = ?, project = ?, executable = ?, url = ?, mount_point = ?, state = ?,
		error = ?, results_dir = ?, submitted_at = ?, finished_at = ?
		WHERE id = ?`,
		string(job.Kind), job.Site, job.Project, job.Executable, job.URL, job.MountPoint, string(job.State),
		job.Error, job.ResultsDir, formatTime(job.SubmittedAt), formatTime(job.FinishedAt), job.ID)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", job.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s: %w", job.ID, ErrNotFound)
	}
	return nil
}

const selectJob = `SELECT id, kind, site, project, executable, url, mount_point, state, error,
	results_dir, submitted_at, finished_at FROM jobs`

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.JobRecord, error) {
	row := s.db.QueryRowContext(ctx, selectJob+` WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return job, err
}

// FindJobByURL returns the newest record of the remote job at url.
func (s *SQLiteStore) FindJobByURL(ctx context.Context, url string) (*model.JobRecord, error) {
	row := s.db.QueryRowContext(ctx, selectJob+` WHERE url = ? ORDER BY submitted_at DESC, rowid DESC LIMIT 1`, url)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job at %s: %w", url, ErrNotFound)
	}
	return job, err
}

func (s *SQLiteStore) ListJobs(ctx context.Context) ([]*model.JobRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectJob+` ORDER BY submitted_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*model.JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *SQLiteStore) SaveJobLog(ctx context.Context, jobID string, logs string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO job_logs (job_id, content) VALUES (?, ?)
		ON CONFLICT(job_id) DO UPDATE SET content = excluded.content`, jobID, logs)
	return err
}

func (s *SQLiteStore) GetJobLog(ctx context.Context, jobID string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM job_logs WHERE job_id = ?`, jobID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("log for job %s: %w", jobID, ErrNotFound)
	}
	return content, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (*model.JobRecord, error) {
	var (
		job                 model.JobRecord
		kind, state         string
		site, project, exe  sql.NullString
		url, mount, errMsg  sql.NullString
		results             sql.NullString
		submitted, finished sql.NullString
	)
	if err := sc.Scan(&job.ID, &kind, &site, &project, &exe, &url, &mount, &state, &errMsg,
		&results, &submitted, &finished); err != nil {
		return nil, err
	}
	job.Kind = model.JobKind(kind)
	job.State = model.JobStatus(state)
	job.Site = site.String
	job.Project = project.String
	job.Executable = exe.String
	job.URL = url.String
	job.MountPoint = mount.String
	job.Error = errMsg.String
	job.ResultsDir = results.String
	job.SubmittedAt = parseTime(submitted.String)
	job.FinishedAt = parseTime(finished.String)
	return &job, nil
}

// timeLayout is fixed width so that timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
