package model

import "time"

// Keys of a UNICORE job description understood by this tool.
const (
	ExecutableKey  = "Executable"
	ProjectKey     = "Project"
	JobTypeKey     = "Job type"
	InteractiveJob = "interactive"
)

// JobDescription is the JSON document posted to a site's jobs endpoint.
// Built fresh for every submission and never mutated afterwards.
type JobDescription map[string]string

// NewJobDescription builds a batch job description.
func NewJobDescription(executable, project string) JobDescription {
	return JobDescription{
		ExecutableKey: executable,
		ProjectKey:    project,
	}
}

// Interactive returns a copy tagged as an interactive job (runs on a login node).
func (d JobDescription) Interactive() JobDescription {
	out := make(JobDescription, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	out[JobTypeKey] = InteractiveJob
	return out
}

// JobStatus mirrors the UNICORE job status strings.
type JobStatus string

const (
	JobUndefined  JobStatus = "UNDEFINED"
	JobReady      JobStatus = "READY"
	JobQueued     JobStatus = "QUEUED"
	JobStagingIn  JobStatus = "STAGINGIN"
	JobRunning    JobStatus = "RUNNING"
	JobStagingOut JobStatus = "STAGINGOUT"
	JobSuccessful JobStatus = "SUCCESSFUL"
	JobFailed     JobStatus = "FAILED"
)

// Terminal reports whether no further transition can happen.
func (s JobStatus) Terminal() bool {
	return s == JobSuccessful || s == JobFailed
}

// JobKind says what a ledger record was submitted for.
type JobKind string

const (
	JobKindSetup    JobKind = "setup"
	JobKindWorkflow JobKind = "workflow"
	JobKindLocal    JobKind = "local"
)

// JobRecord is the ledger entry kept for every job this tool starts.
type JobRecord struct {
	ID         string    `json:"id"`
	Kind       JobKind   `json:"kind"`
	Site       string    `json:"site,omitempty"`
	Project    string    `json:"project,omitempty"`
	Executable string    `json:"executable"`
	URL        string    `json:"url,omitempty"`        // remote job resource
	MountPoint string    `json:"mount_point,omitempty"` // remote working directory
	State      JobStatus `json:"state"`
	Error      string    `json:"error,omitempty"`
	ResultsDir string    `json:"results_dir,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
}

// Finish stamps a terminal state on the record.
func (r *JobRecord) Finish(state JobStatus, errMsg string) {
	r.State = state
	r.Error = errMsg
	r.FinishedAt = time.Now().UTC()
}
