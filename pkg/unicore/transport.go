// Package unicore is a small client for the UNICORE REST API: registry
// lookup, storages, file transfer and job management.
package unicore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const defaultUserAgent = "tvb-hpc"

// Option configures a Transport.
type Option func(*Transport)

// Transport carries the credentials and HTTP settings shared by every
// object obtained from it. It is immutable after creation.
type Transport struct {
	token      string
	userAgent  string
	headers    map[string]string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTransport creates a transport authenticating with a bearer token.
// No client-side timeout is set: long listings and downloads block until the
// server answers.
func NewTransport(token string, opts ...Option) *Transport {
	t := &Transport{
		token:      token,
		userAgent:  defaultUserAgent,
		headers:    make(map[string]string),
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) {
		t.httpClient = c
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(t *Transport) {
		t.userAgent = ua
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(t *Transport) {
		t.headers[key] = value
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

func (t *Transport) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// do sends req once. Any status >= 400 is turned into an *APIError and the
// body is closed; otherwise the caller owns resp.Body.
func (t *Transport) do(req *http.Request) (*http.Response, error) {
	t.logger.Debug("unicore request", "method", req.Method, "url", req.URL.String())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: req.URL.String(), Err: err}
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Method:     req.Method,
			URL:        req.URL.String(),
			Message:    errorMessage(resp.Body),
		}
	}
	return resp, nil
}

// errorMessage extracts the server's explanation from an error body.
func errorMessage(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 64<<10))
	var errResp struct {
		ErrorMessage string `json:"errorMessage"`
		Message      string `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.ErrorMessage != "" {
			return errResp.ErrorMessage
		}
		if errResp.Message != "" {
			return errResp.Message
		}
	}
	return strings.TrimSpace(string(body))
}

func (t *Transport) getJSON(ctx context.Context, url string, out any) error {
	req, err := t.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := t.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}

// postJSON posts payload and returns the Location header of the answer, if any.
func (t *Transport) postJSON(ctx context.Context, url string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := t.newRequest(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.Header.Get("Location"), nil
}
