package unicore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tvbhpc/pkg/model"
)

// Client talks to the core services of one site.
type Client struct {
	t       *Transport
	baseURL string
	info    clientInfo
}

type clientInfo struct {
	Client struct {
		Role struct {
			Selected string `json:"selected"`
		} `json:"role"`
		DN string `json:"dn"`
	} `json:"client"`
}

// NewClient connects to a site's base URL and checks that the transport's
// credentials are accepted.
func NewClient(ctx context.Context, t *Transport, siteURL string) (*Client, error) {
	c := &Client{t: t, baseURL: strings.TrimRight(siteURL, "/")}

	if err := t.getJSON(ctx, c.baseURL, &c.info); err != nil {
		if IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusForbidden) {
			return nil, &AuthenticationError{URL: c.baseURL, Reason: err.Error()}
		}
		return nil, err
	}
	if c.info.Client.Role.Selected == "anonymous" {
		return nil, &AuthenticationError{URL: c.baseURL, Reason: "credentials were not accepted (anonymous role)"}
	}
	return c, nil
}

// BaseURL returns the site's core services URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Role returns the role the server assigned to the caller.
func (c *Client) Role() string { return c.info.Client.Role.Selected }

// Storages returns one page of the site's storages.
func (c *Client) Storages(ctx context.Context, num, offset int) ([]*Storage, error) {
	q := url.Values{}
	q.Set("num", strconv.Itoa(num))
	q.Set("offset", strconv.Itoa(offset))

	var doc struct {
		Storages []string `json:"storages"`
	}
	if err := c.t.getJSON(ctx, c.baseURL+"/storages?"+q.Encode(), &doc); err != nil {
		return nil, fmt.Errorf("listing storages: %w", err)
	}

	storages := make([]*Storage, 0, len(doc.Storages))
	for _, u := range doc.Storages {
		storages = append(storages, NewStorage(c.t, u))
	}
	return storages, nil
}

// NewJob submits desc. When inputs are given the job is created on hold,
// the files are uploaded into its working directory and the job is started.
func (c *Client) NewJob(ctx context.Context, desc model.JobDescription, inputs []string) (*Job, error) {
	payload := make(map[string]string, len(desc)+1)
	for k, v := range desc {
		payload[k] = v
	}
	if len(inputs) > 0 {
		payload["haveClientStageIn"] = "true"
	}

	location, err := c.t.postJSON(ctx, c.baseURL+"/jobs", payload)
	if err != nil {
		return nil, fmt.Errorf("submitting job: %w", err)
	}
	if location == "" {
		return nil, fmt.Errorf("submitting job: server did not return a job location")
	}

	job, err := OpenJob(ctx, c.t, location)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return job, nil
	}

	if err := c.stageIn(ctx, job, inputs); err != nil {
		// A job that never starts stays on hold on the site.
		if derr := job.Delete(context.WithoutCancel(ctx)); derr != nil {
			c.t.logger.Warn("could not delete held job", "job", job.URL(), "err", derr)
		}
		return nil, err
	}
	return job, nil
}

func (c *Client) stageIn(ctx context.Context, job *Job, inputs []string) error {
	wd, err := job.WorkingDir(ctx)
	if err != nil {
		return err
	}
	for _, in := range inputs {
		if err := wd.Upload(ctx, in, ""); err != nil {
			return fmt.Errorf("staging in %s: %w", in, err)
		}
	}
	return job.Start(ctx)
}

// Job opens an existing job by URL.
func (c *Client) Job(ctx context.Context, jobURL string) (*Job, error) {
	return OpenJob(ctx, c.t, jobURL)
}
