package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicateTeamID is returned when an insert hit the unique index on team_id.
	ErrDuplicateTeamID = errors.New("team id already taken")

	// ErrDuplicateEmail is returned when the team leader already registered.
	ErrDuplicateEmail = errors.New("leader email already registered")

	// ErrNotPending is returned when a status change targets a registration that was already decided.
	ErrNotPending = errors.New("registration is not pending")
)

const (
	uniqueViolation = "23505"

	teamIDIndex      = "idx_registrations_team_id"
	leaderEmailIndex = "idx_registrations_leader_email"
)

// classifyInsertError maps unique violations to the package sentinels and leaves other errors untouched.
func classifyInsertError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}

	switch pgErr.ConstraintName {
	case teamIDIndex:
		return ErrDuplicateTeamID
	case leaderEmailIndex:
		return ErrDuplicateEmail
	default:
		return err
	}
}
