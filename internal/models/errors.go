package models

import (
	"errors"
	"fmt"
)

// Validation errors are raised before any local or provider mutation.
var (
	ErrNotFound            = errors.New("room not found")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrInvalidOperation    = errors.New("invalid operation for this room kind")
	ErrNoSharedTenant      = errors.New("users do not share a tenant")
	ErrProviderUnavailable = errors.New("messaging provider unavailable")
)

// HasMembersError blocks group deletion while memberships remain.
type HasMembersError struct {
	Count int
}

func (e *HasMembersError) Error() string {
	return fmt.Sprintf("group still has %d members", e.Count)
}
