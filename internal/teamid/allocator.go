// Package teamid hands out human-readable sequential team ids such as IN25-007.
//
// The allocator only proposes a candidate that did not exist when it looked.
// The unique index on registrations.team_id is what actually guarantees
// uniqueness; callers must treat a duplicate-key insert as retryable and
// allocate again.
package teamid

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Store is the read side of the registration table the allocator needs.
type Store interface {
	// LatestTeamID returns the team id of the most recently created
	// registration whose id starts with prefix+"-", or "" when there is none.
	LatestTeamID(ctx context.Context, prefix string) (string, error)

	TeamIDExists(ctx context.Context, teamID string) (bool, error)
}

const defaultMaxProbes = 10

type Allocator struct {
	store     Store
	prefix    string
	maxProbes int
}

func NewAllocator(store Store, prefix string, maxProbes int) *Allocator {
	if maxProbes <= 0 {
		maxProbes = defaultMaxProbes
	}

	return &Allocator{
		store:     store,
		prefix:    prefix,
		maxProbes: maxProbes,
	}
}

func (a *Allocator) Prefix() string {
	return a.prefix
}

// Allocate returns the next team id that is not currently stored.
// Store failures are returned as *AllocationError and are not retried here;
// only a detected collision causes another probe.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	highest := 0

	for probe := 0; probe < a.maxProbes; probe++ {
		latest, err := a.store.LatestTeamID(ctx, a.prefix)
		if err != nil {
			return "", &AllocationError{Op: "read latest team id", Err: err}
		}

		n, err := a.Ordinal(latest)
		if err != nil {
			return "", &AllocationError{Op: "parse latest team id", Err: err}
		}

		// A collision means something at or above the last candidate exists
		// even if it is not the newest row, so never propose it again.
		highest = max(highest, n)
		candidate := a.Format(highest + 1)

		exists, err := a.store.TeamIDExists(ctx, candidate)
		if err != nil {
			return "", &AllocationError{Op: "check team id " + candidate, Err: err}
		}

		if !exists {
			return candidate, nil
		}

		highest++
	}

	return "", fmt.Errorf("%w: %d consecutive collisions", ErrAllocationExhausted, a.maxProbes)
}

// Format renders ordinal n with the allocator's prefix, zero-padded to three digits.
func (a *Allocator) Format(n int) string {
	return fmt.Sprintf("%s-%03d", a.prefix, n)
}

// Ordinal parses the numeric suffix of teamID. The empty string is ordinal 0.
func (a *Allocator) Ordinal(teamID string) (int, error) {
	if teamID == "" {
		return 0, nil
	}

	suffix, ok := strings.CutPrefix(teamID, a.prefix+"-")
	if !ok {
		return 0, fmt.Errorf("%w: %q does not start with %q", ErrMalformedTeamID, teamID, a.prefix+"-")
	}

	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q has non-numeric suffix", ErrMalformedTeamID, teamID)
	}

	return n, nil
}
