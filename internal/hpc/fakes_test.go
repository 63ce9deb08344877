package hpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"tvbhpc/pkg/model"
)

type fakeStorage struct {
	url      string
	mount    string
	dirs     map[string][]model.RemoteEntry
	listErr  map[string]error
	files    map[string]string
	mkdirs   []string
	listed   []string
	fetched  []string
	mkdirErr error
}

func newFakeStorage(url string) *fakeStorage {
	return &fakeStorage{
		url:     url,
		mount:   "/p/home/jusers/someone",
		dirs:    map[string][]model.RemoteEntry{},
		listErr: map[string]error{},
		files:   map[string]string{},
	}
}

func (s *fakeStorage) ResourceURL() string { return s.url }

func (s *fakeStorage) MountPoint(ctx context.Context) (string, error) { return s.mount, nil }

func (s *fakeStorage) ListDir(ctx context.Context, dir string) ([]model.RemoteEntry, error) {
	dir = model.CleanRemotePath(dir)
	s.listed = append(s.listed, dir)
	if err := s.listErr[dir]; err != nil {
		return nil, err
	}
	entries, ok := s.dirs[dir]
	if !ok {
		return nil, fmt.Errorf("404 %s", dir)
	}
	return entries, nil
}

func (s *fakeStorage) Mkdir(ctx context.Context, dir string) error {
	s.mkdirs = append(s.mkdirs, dir)
	return s.mkdirErr
}

func (s *fakeStorage) Download(ctx context.Context, p string, w io.Writer) error {
	content, ok := s.files[p]
	if !ok {
		return fmt.Errorf("404 %s", p)
	}
	s.fetched = append(s.fetched, p)
	_, err := io.WriteString(w, content)
	return err
}

type fakeJob struct {
	url       string
	submitted string
	status    model.JobStatus
	pollErr   error
	wd        *fakeStorage
	polls     int
}

func (j *fakeJob) URL() string            { return j.url }
func (j *fakeJob) SubmissionTime() string { return j.submitted }

func (j *fakeJob) WorkingDir(ctx context.Context) (Storage, error) {
	if j.wd == nil {
		return nil, errors.New("no working directory")
	}
	return j.wd, nil
}

func (j *fakeJob) Poll(ctx context.Context) (model.JobStatus, error) {
	j.polls++
	return j.status, j.pollErr
}

type submission struct {
	desc   model.JobDescription
	inputs []string
}

type fakeClient struct {
	storages    []Storage
	storagesErr error
	offsets     []int
	jobs        []*fakeJob
	submissions []submission
	newJobErr   error
}

func (c *fakeClient) Storages(ctx context.Context, num, offset int) ([]Storage, error) {
	c.offsets = append(c.offsets, offset)
	if c.storagesErr != nil {
		return nil, c.storagesErr
	}
	if offset >= len(c.storages) {
		return nil, nil
	}
	end := min(offset+num, len(c.storages))
	return c.storages[offset:end], nil
}

func (c *fakeClient) NewJob(ctx context.Context, desc model.JobDescription, inputs []string) (Job, error) {
	c.submissions = append(c.submissions, submission{desc: desc, inputs: inputs})
	if c.newJobErr != nil {
		return nil, c.newJobErr
	}
	if len(c.jobs) == 0 {
		return nil, errors.New("no more fake jobs")
	}
	j := c.jobs[0]
	c.jobs = c.jobs[1:]
	return j, nil
}

func (c *fakeClient) Job(ctx context.Context, url string) (Job, error) {
	for _, j := range c.jobs {
		if j.url == url {
			return j, nil
		}
	}
	return nil, fmt.Errorf("404 %s", url)
}

type fakeResolver struct {
	sites map[string]string
	err   error
	calls int
}

func (r *fakeResolver) SiteURLs(ctx context.Context) (map[string]string, error) {
	r.calls++
	return r.sites, r.err
}

// recordingDialer returns client for every site and counts calls.
type recordingDialer struct {
	client Client
	err    error
	calls  []string
}

func (d *recordingDialer) dial(ctx context.Context, siteURL string) (Client, error) {
	d.calls = append(d.calls, siteURL)
	if d.err != nil {
		return nil, d.err
	}
	return d.client, nil
}

func testLayout() model.EnvironmentLayout {
	return model.EnvironmentLayout{
		StorageName:    "HOME",
		EnvDir:         "tvb_xircuits",
		EnvName:        "venv",
		PythonVersion:  "3.9",
		Package:        "tvb-ext-xircuits",
		PackageVersion: "1.0.0",
		PipLibraries:   []string{"tvb-data"},
	}
}

func testSettings(out io.Writer) Settings {
	return Settings{
		Sites:  model.NewSiteTable(map[string]string{"DAINT-CSCS": "cray-python", "JUSUF": "Python"}),
		Layout: testLayout(),
		Out:    out,
	}
}

// readyHome returns a home storage holding an environment with the given
// package version installed.
func readyHome(installed string) *fakeStorage {
	home := newFakeStorage("https://site/rest/core/storages/HOME")
	home.dirs[""] = []model.RemoteEntry{model.Directory("tvb_xircuits"), model.File(".bashrc")}
	home.dirs["tvb_xircuits"] = []model.RemoteEntry{model.Directory("tvb_xircuits/venv")}
	sp := "tvb_xircuits/venv/lib/python3.9/site-packages"
	home.dirs[sp] = []model.RemoteEntry{
		model.Directory(sp + "/numpy"),
		model.Directory(sp + "/tvb_ext_xircuits-" + installed + ".dist-info"),
		model.Directory(sp + "/tvb_ext_xircuits"),
	}
	return home
}

func contains(out fmt.Stringer, s string) bool {
	return strings.Contains(out.String(), s)
}
