package hpc

import "fmt"

// Outcome is how a submission ended. Every handled condition maps to one
// outcome; only unexpected failures are returned as errors.
type Outcome int

const (
	OutcomeLaunched Outcome = iota
	OutcomeStaged
	OutcomeSiteUnavailable
	OutcomeAuthFailed
	OutcomeNoHomeStorage
	OutcomeSetupFailed
	OutcomeRemoteError
	OutcomeJobFailed
	OutcomeResultsAmbiguous
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLaunched:
		return "launched"
	case OutcomeStaged:
		return "staged"
	case OutcomeSiteUnavailable:
		return "site unavailable"
	case OutcomeAuthFailed:
		return "authentication failed"
	case OutcomeNoHomeStorage:
		return "home storage not found"
	case OutcomeSetupFailed:
		return "environment setup failed"
	case OutcomeRemoteError:
		return "remote error"
	case OutcomeJobFailed:
		return "job failed"
	case OutcomeResultsAmbiguous:
		return "results ambiguous"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Success reports whether the workflow job was launched or its results staged.
func (o Outcome) Success() bool {
	return o == OutcomeLaunched || o == OutcomeStaged
}
