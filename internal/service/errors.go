package service

import (
	"errors"
	"fmt"
	"time"

	"noizlabs/internal/repository"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrMissingFields       = errors.New("missing required fields")
	ErrInvalidWallet       = errors.New("invalid wallet address")
	ErrInvalidChallenge    = errors.New("invalid challenge message")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrIPAlreadyRegistered = errors.New("ip already registered to another wallet")
	ErrInvalidLoginToken   = errors.New("invalid or expired login token")

	ErrUnknownAction   = errors.New("unknown action")
	ErrInvalidClip     = errors.New("invalid clip")
	ErrInvalidVote     = errors.New("invalid vote")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidTask     = errors.New("invalid task")
	ErrInvalidReferral = errors.New("invalid referral")
	ErrTooOld          = errors.New("too old")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrAlreadyAwarded  = errors.New("already awarded")

	ErrAlreadyCheckedIn = errors.New("already checked in")

	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryClosed   = errors.New("category has expired")
	ErrClipNotFound     = errors.New("clip not found")
	ErrClipExists       = errors.New("you already have a clip in this category")
	ErrSelfVote         = errors.New("cannot vote for your own clip")
	ErrAlreadyVoted     = errors.New("already voted for this clip")
	ErrInvalidName      = errors.New("invalid name")
	ErrFileTooLarge     = errors.New("file too large")
	ErrUnsupportedMedia = errors.New("unsupported media type")

	ErrInvalidUsername     = errors.New("invalid username")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrInvalidReferralCode = errors.New("invalid referral code")
	ErrSelfReferral        = errors.New("cannot use your own code")
	ErrAlreadyReferred     = errors.New("already referred")

	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskAlreadyCompleted = errors.New("task already completed")
	ErrTaskRequirements     = errors.New("task requirements not met")
)

// LimitError is returned when the caller's sliding window is full.
type LimitError struct {
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *LimitError) Is(target error) bool {
	return target == ErrRateLimited
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, repository.ErrConflict)
}
