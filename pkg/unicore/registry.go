package unicore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// DefaultRegistryURL is the EBRAINS (HBP) shared registry.
const DefaultRegistryURL = "https://unicore.fz-juelich.de/HBP/rest/registries/default_registry"

const coreServicesType = "CoreServices"

// Registry lists the sites federated under one UNICORE registry.
type Registry struct {
	t   *Transport
	url string
}

func NewRegistry(t *Transport, registryURL string) *Registry {
	return &Registry{t: t, url: registryURL}
}

type registryEntry struct {
	Href string `json:"href"`
	Type string `json:"type"`
}

// SiteURLs maps site name to the base URL of its core services.
// Sites that are temporarily down are simply absent from the registry.
func (r *Registry) SiteURLs(ctx context.Context) (map[string]string, error) {
	var doc struct {
		Entries []registryEntry `json:"entries"`
	}
	if err := r.t.getJSON(ctx, r.url, &doc); err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	sites := make(map[string]string)
	for _, e := range doc.Entries {
		if e.Type != coreServicesType {
			continue
		}
		name, ok := siteNameFromHref(e.Href)
		if !ok {
			continue
		}
		sites[name] = e.Href
	}
	return sites, nil
}

// siteNameFromHref takes "https://host/SITE/rest/core" to "SITE".
func siteNameFromHref(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(parts) - 1; i > 0; i-- {
		if parts[i] == "rest" {
			return parts[i-1], true
		}
	}
	return "", false
}
