// SPDX-License-Identifier: MIT

package lers

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrAuthFailed  = errors.New("lers: authentication rejected")
	ErrNotFound    = errors.New("lers: resource not found")
	ErrUnavailable = errors.New("lers: host unreachable or transport failure")
	ErrUpstream    = errors.New("lers: server internal error (5xx)")
	ErrBadResponse = errors.New("lers: invalid response format or malformed data")
	ErrTimeout     = errors.New("lers: request timed out")
	ErrCapability  = errors.New("lers: vendor capability not available")
)

// APIError wraps a sentinel error with call context.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error // nested lower-level error (e.g. net.Error)
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("lers: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}
