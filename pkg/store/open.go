package store

import (
	"fmt"
	"log/slog"
)

// Ledger backends.
const (
	BackendSQLite = "sqlite"
	BackendEtcd   = "etcd"
	BackendNone   = "none"
)

// Options selects and configures a ledger backend.
type Options struct {
	Backend   string
	Path      string   // sqlite database file
	Endpoints []string // etcd cluster
}

// Open returns the configured ledger. The "none" backend yields a nil Store.
func Open(opts Options, logger *slog.Logger) (Store, error) {
	switch opts.Backend {
	case "", BackendSQLite:
		s, err := NewSQLiteStore(opts.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendEtcd:
		if len(opts.Endpoints) == 0 {
			return nil, fmt.Errorf("etcd ledger needs at least one endpoint")
		}
		e, err := NewEtcdManager(opts.Endpoints, logger)
		if err != nil {
			return nil, err
		}
		return e, nil
	case BackendNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown ledger backend %q", opts.Backend)
}
