package model

import "sort"

// Site is a named UNICORE endpoint together with the environment module
// that provides Python on it.
type Site struct {
	Name   string
	Module string
}

// ModuleLoadCommand returns the shell fragment that loads the site's Python module.
// Unknown sites get a bare "module load".
func (s Site) ModuleLoadCommand() string {
	if s.Module == "" {
		return "module load"
	}
	return "module load " + s.Module
}

// SiteTable is an immutable lookup of per-site settings.
type SiteTable struct {
	sites map[string]Site
}

// NewSiteTable copies modules (site name -> module) into a table.
func NewSiteTable(modules map[string]string) SiteTable {
	t := SiteTable{sites: make(map[string]Site, len(modules))}
	for name, mod := range modules {
		t.sites[name] = Site{Name: name, Module: mod}
	}
	return t
}

// Lookup returns the site entry, or a site without module when unknown.
func (t SiteTable) Lookup(name string) Site {
	if s, ok := t.sites[name]; ok {
		return s
	}
	return Site{Name: name}
}

// Known reports whether the table has an entry for name.
func (t SiteTable) Known(name string) bool {
	_, ok := t.sites[name]
	return ok
}

// Names returns the configured site names, sorted.
func (t SiteTable) Names() []string {
	names := make([]string, 0, len(t.sites))
	for name := range t.sites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
