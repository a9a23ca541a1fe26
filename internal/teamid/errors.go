package teamid

import (
	"errors"
	"fmt"
)

var (
	// ErrAllocation matches every *AllocationError.
	ErrAllocation = errors.New("team id allocation failed")

	// ErrAllocationExhausted is returned when every probe hit an existing team id.
	ErrAllocationExhausted = errors.New("team id allocation exhausted")

	// ErrMalformedTeamID means a stored team id did not have a numeric suffix.
	ErrMalformedTeamID = errors.New("malformed team id")
)

// AllocationError reports a failed read or query against the registration store.
type AllocationError struct {
	Op  string
	Err error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("team id allocation: %s: %v", e.Op, e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

func (e *AllocationError) Is(target error) bool {
	return target == ErrAllocation
}
