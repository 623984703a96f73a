package services

import (
	stderrors "errors"

	"github.com/abrezinsky/scoretally/internal/errors"
	"github.com/abrezinsky/scoretally/internal/repository"
)

// Service errors
var (
	ErrNoSession          = errors.Identity("no session")
	ErrIdentityNotFound   = errors.Identity("identity not found")
	ErrEventNotFound      = errors.Identity("event not found")
	ErrInvalidCredentials = errors.Identity("invalid username or password")
	ErrUnknownRole        = errors.InvalidInput("unknown role")
	ErrEventInactive      = errors.Conflict("event is not active")
	ErrNotJudge           = errors.Forbidden("only judges can score")
	ErrEventMissing       = errors.NotFound("event not found")
	ErrContestNotFound    = errors.NotFound("contest not found")
	ErrParticipantMissing = errors.NotFound("participant not found")
	ErrCriterionMissing   = errors.NotFound("criterion not found")
	ErrJudgeNotFound      = errors.NotFound("judge not found")
	ErrAwardNotFound      = errors.NotFound("award not found")
	ErrNoAccess           = errors.Forbidden("participant is not assigned to this judge")
)

// storeError wraps a repository failure. ErrNotFound becomes notFound when
// given, so callers can name what was missing.
func storeError(err error, msg string, notFound *errors.Error) error {
	if notFound != nil && stderrors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return errors.Store(err, msg)
}
