package livescore

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError captures a non-success response from the remote game store.
type HTTPError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "remote game store request failed"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status=%d)", e.Operation, msg, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Operation, msg)
}

// AsHTTPError attempts to unwrap an error into an HTTPError.
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// IsNotFound reports whether the error is a 404 from the store, typically a
// stale id after a concurrent deletion.
func IsNotFound(err error) bool {
	httpErr, ok := AsHTTPError(err)
	return ok && httpErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether the store rejected the session.
func IsUnauthorized(err error) bool {
	httpErr, ok := AsHTTPError(err)
	return ok && httpErr.StatusCode == http.StatusUnauthorized
}
