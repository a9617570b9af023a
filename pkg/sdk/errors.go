package newsdex

import "github.com/kailas-cloud/newsdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation       = domain.ErrValidation
	ErrForbidden        = domain.ErrForbidden
	ErrNotFound         = domain.ErrNotFound
	ErrLimitExceeded    = domain.ErrLimitExceeded
	ErrIndexUnavailable = domain.ErrIndexUnavailable
)
