package unicore

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from a UNICORE service.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unicore: %s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("unicore: %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
}

// NetworkError wraps a transport-level failure (DNS, TLS, connection reset...).
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("unicore: network error on %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AuthenticationError means the site rejected the supplied credentials.
type AuthenticationError struct {
	URL    string
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("unicore: authentication to %s failed: %s", e.URL, e.Reason)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// IsNotFound reports a 404 from the service.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}
