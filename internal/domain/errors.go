package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals a malformed request parameter.
	ErrValidation = errors.New("invalid parameter")
	// ErrForbidden signals a requester without entitlement to the content.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound signals a missing resource. Also used for product ids outside
	// the caller's entitlements so their existence is not confirmed.
	ErrNotFound = errors.New("not found")
	// ErrLimitExceeded signals a page offset beyond the index pagination ceiling.
	ErrLimitExceeded = errors.New("page limit exceeded")
	// ErrItemNotFound signals a missing item in the index.
	ErrItemNotFound = errors.New("item not found")
	// ErrIndexUnavailable signals that the index rejected or could not serve the request.
	ErrIndexUnavailable = errors.New("index unavailable")
)

// ParameterError wraps ErrValidation with the offending parameter name.
type ParameterError struct {
	Param  string
	Reason string
}

func (e *ParameterError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Param)
	}
	return fmt.Sprintf("%s %s: %s", ErrValidation.Error(), e.Param, e.Reason)
}

func (e *ParameterError) Unwrap() error { return ErrValidation }

// NewParameterError creates a validation error for a named request parameter.
func NewParameterError(param, reason string) error {
	return &ParameterError{Param: param, Reason: reason}
}

// ForbiddenError wraps ErrForbidden with a human-readable reason.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s: %s", ErrForbidden.Error(), e.Reason)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// NewForbidden creates an authorization error.
func NewForbidden(reason string) error {
	return &ForbiddenError{Reason: reason}
}

// NotFoundError wraps ErrNotFound with a human-readable reason.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotFound.Error(), e.Reason)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound creates a not-found error.
func NewNotFound(reason string) error {
	return &NotFoundError{Reason: reason}
}
