package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrBackendUnavailable indicates the model server could not be reached at
// all (connection failure or timeout). Check with errors.Is.
var ErrBackendUnavailable = errors.New("chat backend unavailable")

// BackendError indicates the model server was reachable but the request
// failed (unknown model, malformed request, server-side failure).
type BackendError struct {
	Detail string
}

func (e *BackendError) Error() string {
	return "chat backend error: " + e.Detail
}

// unavailablePatterns are substrings that mark an error as a connectivity
// failure rather than a server-side rejection.
var unavailablePatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"dial tcp",
	"timeout",
	"deadline exceeded",
	"server not responding",
}

// classify converts a raw transport/SDK error into the package taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Join(ErrBackendUnavailable, err)
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range unavailablePatterns {
		if strings.Contains(msg, pattern) {
			return errors.Join(ErrBackendUnavailable, err)
		}
	}

	return &BackendError{Detail: err.Error()}
}
