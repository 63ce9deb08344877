package unicore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"tvbhpc/pkg/model"
)

// Job is a handle to a submitted job. Its properties are a snapshot taken on
// the last Refresh.
type Job struct {
	t     *Transport
	url   string
	props jobProperties
}

type link struct {
	Href string `json:"href"`
}

type jobProperties struct {
	Status         string `json:"status"`
	StatusMessage  string `json:"statusMessage"`
	SubmissionTime string `json:"submissionTime"`
	ExitCode       string `json:"exitCode"`
	Links          struct {
		WorkingDirectory link `json:"workingDirectory"`
	} `json:"_links"`
}

// OpenJob loads the job at jobURL.
func OpenJob(ctx context.Context, t *Transport, jobURL string) (*Job, error) {
	j := &Job{t: t, url: jobURL}
	if err := j.Refresh(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Job) URL() string { return j.url }

// Refresh reloads the job properties.
func (j *Job) Refresh(ctx context.Context) error {
	var props jobProperties
	if err := j.t.getJSON(ctx, j.url, &props); err != nil {
		return fmt.Errorf("reading job %s: %w", j.url, err)
	}
	j.props = props
	return nil
}

func (j *Job) Status() model.JobStatus {
	if j.props.Status == "" {
		return model.JobUndefined
	}
	return model.JobStatus(j.props.Status)
}

func (j *Job) StatusMessage() string { return j.props.StatusMessage }

// SubmissionTime is the raw timestamp reported by the site,
// e.g. "2024-03-01T10:15:42+0100".
func (j *Job) SubmissionTime() string { return j.props.SubmissionTime }

// WorkingDir returns the job's working directory storage.
func (j *Job) WorkingDir(ctx context.Context) (*Storage, error) {
	if j.props.Links.WorkingDirectory.Href == "" {
		if err := j.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	href := j.props.Links.WorkingDirectory.Href
	if href == "" {
		return nil, fmt.Errorf("job %s has no working directory", j.url)
	}
	return NewStorage(j.t, href), nil
}

// Start releases a job that was submitted on hold.
func (j *Job) Start(ctx context.Context) error {
	if _, err := j.t.postJSON(ctx, j.url+"/actions/start", map[string]string{}); err != nil {
		return fmt.Errorf("starting job %s: %w", j.url, err)
	}
	return nil
}

// Delete removes the job and its working directory from the site.
func (j *Job) Delete(ctx context.Context) error {
	req, err := j.t.newRequest(ctx, http.MethodDelete, j.url, nil)
	if err != nil {
		return err
	}
	resp, err := j.t.do(req)
	if err != nil {
		return fmt.Errorf("deleting job %s: %w", j.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Poll blocks until the job reaches a terminal status, refreshing every
// interval. It only returns early when ctx is done or a refresh fails.
func (j *Job) Poll(ctx context.Context, interval time.Duration) (model.JobStatus, error) {
	for {
		if err := j.Refresh(ctx); err != nil {
			return j.Status(), err
		}
		if st := j.Status(); st.Terminal() {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return j.Status(), ctx.Err()
		case <-time.After(interval):
		}
	}
}
