package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors the engine classifies per the error taxonomy in spec
// section 7. Use errors.Is against these, never string matching.
var (
	// ErrNotAuthenticated is returned by the credential manager's
	// current_bearer() contract when no valid token is available. The
	// engine surfaces this as PermissionOrAuth.
	ErrNotAuthenticated = errors.New("remote: not authenticated")

	// ErrPermission marks a 401/403 response from the API: PermissionOrAuth
	// in the error taxonomy.
	ErrPermission = errors.New("remote: permission denied")

	// ErrTransient marks a retryable network or 5xx/429 response:
	// TransientRemote in the error taxonomy.
	ErrTransient = errors.New("remote: transient failure")

	// ErrNotFound marks a 404 response.
	ErrNotFound = errors.New("remote: item not found")
)

// APIError wraps a non-2xx HTTP response from the remote API.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
	Err        error // one of the sentinels above
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote: %s returned %d: %s", e.Path, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error for
// errors.Is-based classification by the engine.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrPermission
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return ErrTransient
	default:
		return fmt.Errorf("remote: unexpected status %d", status)
	}
}

// isRetryable reports whether an HTTP status code should be retried by
// the client's backoff loop (spec section 7: TransientRemote).
func isRetryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
