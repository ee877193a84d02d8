package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

type ErrorKind string

const (
	KindNetwork    ErrorKind = "network_error"
	KindTimeout    ErrorKind = "timeout_error"
	KindAuth       ErrorKind = "auth_error"
	KindValidation ErrorKind = "validation_error"
	KindServer     ErrorKind = "server_error"
	KindNotFound   ErrorKind = "not_found_error"
	KindPermission ErrorKind = "permission_error"
	KindRateLimit  ErrorKind = "rate_limit_error"
	KindUnknown    ErrorKind = "unknown_error"
)

// Retryable reports whether the client may retry a request that failed with k.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindServer, KindRateLimit:
		return true
	}
	return false
}

// Error is the classified failure of a remote call.
type Error struct {
	Kind       ErrorKind
	Status     int
	Retryable  bool
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, status int, message string, err error) *Error {
	return &Error{
		Kind:      kind,
		Status:    status,
		Retryable: kind.Retryable(),
		Message:   message,
		Err:       err,
	}
}

// KindForStatus maps a non-2xx HTTP status to its error kind.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusBadRequest:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusForbidden:
		return KindPermission
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= 500 && status <= 599:
		return KindServer
	}
	return KindUnknown
}

// KindOf extracts the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

func IsKind(err error, kinds ...ErrorKind) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, k := range kinds {
		if apiErr.Kind == k {
			return true
		}
	}
	return false
}
