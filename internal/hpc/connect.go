package hpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"tvbhpc/pkg/unicore"
)

// TokenProvider supplies the bearer token used for every UNICORE request.
type TokenProvider interface {
	Token() (string, error)
}

// EnvToken reads the token from an environment variable.
type EnvToken string

func (e EnvToken) Token() (string, error) {
	v := strings.TrimSpace(os.Getenv(string(e)))
	if v == "" {
		return "", fmt.Errorf("environment variable %s is not set", string(e))
	}
	return v, nil
}

// FileToken reads the token from a file.
type FileToken string

func (f FileToken) Token() (string, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", fmt.Errorf("token file %s is empty", string(f))
	}
	return v, nil
}

// StaticToken is a fixed token.
type StaticToken string

func (s StaticToken) Token() (string, error) { return string(s), nil }

// SiteResolver maps site names to their core services URL.
type SiteResolver interface {
	SiteURLs(ctx context.Context) (map[string]string, error)
}

// Dialer creates an authenticated client for a site URL.
type Dialer func(ctx context.Context, siteURL string) (Client, error)

// UnicoreDialer dials sites with t; jobs poll every interval.
func UnicoreDialer(t *unicore.Transport, interval time.Duration) Dialer {
	return func(ctx context.Context, siteURL string) (Client, error) {
		c, err := unicore.NewClient(ctx, t, siteURL)
		if err != nil {
			return nil, err
		}
		return NewUnicoreClient(c, interval), nil
	}
}

// Connector resolves a site name and authenticates to it.
type Connector struct {
	resolver SiteResolver
	dial     Dialer
	out      io.Writer
	logger   *slog.Logger
}

func NewConnector(resolver SiteResolver, dial Dialer, out io.Writer, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = Settings{}.logger()
	}
	return &Connector{resolver: resolver, dial: dial, out: out, logger: logger}
}

// NewUnicoreConnector builds a Connector that talks to the UNICORE registry
// at registryURL with the token from tokens.
func NewUnicoreConnector(tokens TokenProvider, registryURL string, interval time.Duration, out io.Writer, logger *slog.Logger, opts ...unicore.Option) (*Connector, error) {
	token, err := tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	t := unicore.NewTransport(token, append([]unicore.Option{unicore.WithLogger(logger)}, opts...)...)
	return NewConnector(unicore.NewRegistry(t, registryURL), UnicoreDialer(t, interval), out, logger), nil
}

// Connect returns a client for site. A site missing from the registry yields
// ErrSiteUnavailable; any failure while creating the client yields
// ErrAuthenticationFailed. Both are reported on the output writer.
func (c *Connector) Connect(ctx context.Context, site string) (Client, error) {
	fmt.Fprintf(c.out, "Connecting to %s...\n", site)

	sites, err := c.resolver.SiteURLs(ctx)
	if err != nil {
		c.logger.Warn("registry lookup failed", "site", site, "error", err)
		fmt.Fprintf(c.out, "Site %s seems to be down for the moment.\n", site)
		return nil, fmt.Errorf("%w: %s: %v", ErrSiteUnavailable, site, err)
	}
	siteURL, ok := sites[site]
	if !ok {
		fmt.Fprintf(c.out, "Site %s seems to be down for the moment.\n", site)
		return nil, fmt.Errorf("%w: %s", ErrSiteUnavailable, site)
	}
	c.logger.Debug("resolved site", "site", site, "url", siteURL)

	client, err := c.dial(ctx, siteURL)
	if err != nil {
		var authErr *unicore.AuthenticationError
		if errors.As(err, &authErr) {
			c.logger.Info("credentials rejected", "site", site, "reason", authErr.Reason)
		} else {
			c.logger.Warn("client creation failed", "site", site, "error", err)
		}
		fmt.Fprintf(c.out, "Authentication to %s failed, you might not have permissions to access it.\n", site)
		return nil, fmt.Errorf("%w: %s: %v", ErrAuthenticationFailed, site, err)
	}

	fmt.Fprintf(c.out, "Authenticated to %s with success.\n", site)
	return client, nil
}
