package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"tvbhpc/pkg/model"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Key layout of the shared ledger.
const (
	JobKeyPrefix = "/tvb-hpc/jobs/"
	LogKeyPrefix = "/tvb-hpc/logs/"
)

// EtcdManager keeps the ledger in etcd so several workstations of a lab can
// see each other's submissions.
type EtcdManager struct {
	client *clientv3.Client
	logger *slog.Logger
}

// NewEtcdManager connects to the etcd cluster.
func NewEtcdManager(endpoints []string, logger *slog.Logger) (*EtcdManager, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to etcd: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EtcdManager{client: cli, logger: logger}, nil
}

func (e *EtcdManager) CreateJob(ctx context.Context, job *model.JobRecord) error {
	return e.putValue(ctx, JobKeyPrefix+job.ID, job)
}

func (e *EtcdManager) GetJob(ctx context.Context, id string) (*model.JobRecord, error) {
	resp, err := e.client.Get(ctx, JobKeyPrefix+id)
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	var job model.JobRecord
	if err := json.Unmarshal(resp.Kvs[0].Value, &job); err != nil {
		return nil, fmt.Errorf("decoding job %s: %w", id, err)
	}
	return &job, nil
}

func (e *EtcdManager) UpdateJob(ctx context.Context, job *model.JobRecord) error {
	return e.putValue(ctx, JobKeyPrefix+job.ID, job)
}

func (e *EtcdManager) ListJobs(ctx context.Context) ([]*model.JobRecord, error) {
	resp, err := e.client.Get(ctx, JobKeyPrefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	jobs := make([]*model.JobRecord, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var job model.JobRecord
		if err := json.Unmarshal(kv.Value, &job); err != nil {
			e.logger.Warn("skipping undecodable ledger entry", "key", string(kv.Key), "error", err)
			continue
		}
		jobs = append(jobs, &job)
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].SubmittedAt.After(jobs[j].SubmittedAt) })
	return jobs, nil
}

// WatchJobs turns etcd watch events on the job prefix into ledger events.
// The channel is closed when ctx is done.
func (e *EtcdManager) WatchJobs(ctx context.Context) <-chan JobEvent {
	eventChan := make(chan JobEvent)

	go func() {
		defer close(eventChan)
		watchChan := e.client.Watch(ctx, JobKeyPrefix, clientv3.WithPrefix())

		for watchResp := range watchChan {
			for _, ev := range watchResp.Events {
				var eventType JobEventType
				switch {
				case ev.Type == clientv3.EventTypeDelete:
					eventType = JobDelete
				case ev.IsCreate():
					eventType = JobCreate
				default:
					eventType = JobUpdate
				}

				job := &model.JobRecord{ID: string(ev.Kv.Key[len(JobKeyPrefix):])}
				if eventType != JobDelete {
					if err := json.Unmarshal(ev.Kv.Value, job); err != nil {
						e.logger.Warn("failed to decode watched job", "key", string(ev.Kv.Key), "error", err)
						continue
					}
				}

				select {
				case eventChan <- JobEvent{Type: eventType, Job: job}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return eventChan
}

func (e *EtcdManager) SaveJobLog(ctx context.Context, jobID string, logs string) error {
	data := map[string]string{
		"job_id":  jobID,
		"content": logs,
	}
	return e.putValue(ctx, LogKeyPrefix+jobID, data)
}

func (e *EtcdManager) GetJobLog(ctx context.Context, jobID string) (string, error) {
	resp, err := e.client.Get(ctx, LogKeyPrefix+jobID)
	if err != nil {
		return "", err
	}
	if len(resp.Kvs) == 0 {
		return "", fmt.Errorf("log for job %s: %w", jobID, ErrNotFound)
	}

	var data map[string]string
	if err := json.Unmarshal(resp.Kvs[0].Value, &data); err != nil {
		return "", err
	}
	return data["content"], nil
}

func (e *EtcdManager) Close() error {
	return e.client.Close()
}

// putValue stores val as JSON under key.
func (e *EtcdManager) putValue(ctx context.Context, key string, val interface{}) error {
	bytes, err := json.Marshal(val)
	if err != nil {
		return err
	}
	_, err = e.client.Put(ctx, key, string(bytes))
	return err
}
