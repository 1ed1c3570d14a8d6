package scim

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a remote directory failure. Callers branch on the kind
// instead of matching error text.
type ErrorKind int

const (
	// KindUnauthorized means the bearer token was rejected. Fatal to a whole
	// batch, never retried per entity.
	KindUnauthorized ErrorKind = iota
	// KindNotFound means the referenced remote resource is gone. The next
	// sync attempt re-creates or re-links it.
	KindNotFound
	// KindConflict means the operation collided with existing or concurrently
	// modified remote state.
	KindConflict
	// KindTransient covers network errors, timeouts and 5xx responses.
	KindTransient
	// KindMalformed covers remaining 4xx responses: a client-side bug or
	// schema drift, surfaced immediately and not retried.
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	default:
		return "malformed"
	}
}

// APIError is the typed failure returned by every client call that reaches
// the remote directory and fails.
type APIError struct {
	Kind   ErrorKind
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("remote directory: %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("remote directory: %s (status %d): %s", e.Kind, e.Status, e.Detail)
}

// classifyStatus maps an HTTP status code to an ErrorKind.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status >= 500:
		return KindTransient
	default:
		return KindMalformed
	}
}

func isKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

func IsUnauthorized(err error) bool { return isKind(err, KindUnauthorized) }
func IsNotFound(err error) bool     { return isKind(err, KindNotFound) }
func IsConflict(err error) bool     { return isKind(err, KindConflict) }
func IsTransient(err error) bool    { return isKind(err, KindTransient) }
func IsMalformed(err error) bool    { return isKind(err, KindMalformed) }
