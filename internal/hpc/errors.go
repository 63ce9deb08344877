package hpc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSiteUnavailable means the registry has no entry for the site.
	ErrSiteUnavailable = errors.New("site unavailable")

	// ErrAuthenticationFailed means the site rejected the credentials or
	// the client could not be created.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrHomeStorageNotFound means no storage matched the home storage name.
	ErrHomeStorageNotFound = errors.New("home storage not found")

	// ErrSetupFailed means the environment setup job ended FAILED.
	ErrSetupFailed = errors.New("environment setup failed")

	// ErrNoResultsDir means the job working directory holds no subdirectory.
	ErrNoResultsDir = errors.New("no results directory in job working directory")
)

// MultipleResultsDirsError is returned when the working directory holds more
// than one subdirectory and the results directory cannot be identified.
type MultipleResultsDirsError struct {
	Dirs []string
}

func (e *MultipleResultsDirsError) Error() string {
	return fmt.Sprintf("multiple result directories found: %s", strings.Join(e.Dirs, ", "))
}

// RemoteError marks a failed interaction with the site, as opposed to a
// local failure.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
