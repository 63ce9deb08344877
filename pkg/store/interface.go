package store

import (
	"context"
	"errors"

	"tvbhpc/pkg/model"
)

// ErrNotFound is returned when a job or log is not in the ledger.
var ErrNotFound = errors.New("not found")

// JobEventType is the kind of change seen on the ledger.
type JobEventType int

const (
	JobCreate JobEventType = iota
	JobUpdate
	JobDelete
)

func (t JobEventType) String() string {
	switch t {
	case JobCreate:
		return "create"
	case JobUpdate:
		return "update"
	case JobDelete:
		return "delete"
	}
	return "unknown"
}

// JobEvent is one change of a ledger record.
type JobEvent struct {
	Type JobEventType
	Job  *model.JobRecord
}

// Store is the job ledger: every job this tool starts is recorded here
// together with its state transitions.
type Store interface {
	// CreateJob records a newly submitted job.
	CreateJob(ctx context.Context, job *model.JobRecord) error

	// GetJob returns a single record, or ErrNotFound.
	GetJob(ctx context.Context, id string) (*model.JobRecord, error)

	// UpdateJob overwrites an existing record.
	UpdateJob(ctx context.Context, job *model.JobRecord) error

	// ListJobs returns all records, most recently submitted first.
	ListJobs(ctx context.Context) ([]*model.JobRecord, error)

	SaveJobLog(ctx context.Context, jobID string, logs string) error
	GetJobLog(ctx context.Context, jobID string) (string, error)

	Close() error
}

// Watcher is implemented by ledgers that can stream changes.
type Watcher interface {
	WatchJobs(ctx context.Context) <-chan JobEvent
}

// URLFinder is implemented by stores that index jobs by their remote URL.
type URLFinder interface {
	FindJobByURL(ctx context.Context, url string) (*model.JobRecord, error)
}

// FindByURL returns the record of the remote job at url, or ErrNotFound.
// Stores without an index are scanned.
func FindByURL(ctx context.Context, s Store, url string) (*model.JobRecord, error) {
	if f, ok := s.(URLFinder); ok {
		return f.FindJobByURL(ctx, url)
	}
	jobs, err := s.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		if j.URL == url {
			return j, nil
		}
	}
	return nil, ErrNotFound
}
