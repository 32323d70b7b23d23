package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Unique constraints callers tell apart.
const (
	ConstraintProfileWallet   = "profiles_wallet_address_key"
	ConstraintProfileUsername = "profiles_username_key"
	ConstraintProfileCode     = "profiles_referral_code_key"
	ConstraintVoteOnce        = "votes_clip_voter_key"
)

// ConflictError is a unique violation on a named constraint. It matches
// ErrConflict.
type ConflictError struct {
	Constraint string
}

func (e *ConflictError) Error() string {
	if e.Constraint == "" {
		return ErrConflict.Error()
	}
	return ErrConflict.Error() + ": " + e.Constraint
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ConflictOn reports whether err is a unique violation on constraint.
func ConflictOn(err error, constraint string) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Constraint == constraint
}

const uniqueViolation = "23505"

// mapErr translates driver errors into the package sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &ConflictError{Constraint: pgErr.ConstraintName}
	}
	return err
}
