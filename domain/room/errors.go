package room

import (
	"errors"
	"fmt"
	"time"
)

// AuthReason identifies why authentication failed.
type AuthReason string

const (
	WrongPassword AuthReason = "wrong_password"
	Banned        AuthReason = "banned"
	LockedOut     AuthReason = "locked_out"
)

// AuthError is returned when a join or admin login is refused.
type AuthError struct {
	Reason     AuthReason
	RetryAfter time.Duration
}

func (e *AuthError) Error() string {
	if e.Reason == LockedOut && e.RetryAfter > 0 {
		return fmt.Sprintf("authentication failed: %s, retry in %s", e.Reason, e.RetryAfter.Round(time.Second))
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// Is matches another AuthError with the same reason.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Reason == e.Reason
}

// AuthorizationReason identifies which right the requester lacked.
type AuthorizationReason string

const (
	NotOwner  AuthorizationReason = "not_owner"
	NotAdmin  AuthorizationReason = "not_admin"
	NotMember AuthorizationReason = "not_member"
)

// AuthorizationError is returned when an authenticated requester may not
// perform the operation.
type AuthorizationError struct {
	Reason AuthorizationReason
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized: %s", e.Reason)
}

// Is matches another AuthorizationError with the same reason.
func (e *AuthorizationError) Is(target error) bool {
	t, ok := target.(*AuthorizationError)
	return ok && t.Reason == e.Reason
}

// NotFoundKind identifies what was missing.
type NotFoundKind string

const (
	RoomNotFound        NotFoundKind = "room"
	MessageNotFound     NotFoundKind = "message"
	ParticipantNotFound NotFoundKind = "participant"
	PageNotFound        NotFoundKind = "page"
)

// NotFoundError is returned when the referenced entity no longer exists.
type NotFoundError struct {
	Kind NotFoundKind
	Key  string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Kind)
	}
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// Is matches another NotFoundError of the same kind.
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	return ok && t.Kind == e.Kind
}

// ValidationReason identifies the rejected input.
type ValidationReason string

const (
	EmptyField    ValidationReason = "empty_field"
	DuplicateName ValidationReason = "duplicate_name"
	TooLong       ValidationReason = "too_long"
	TooMany       ValidationReason = "too_many"
	InvalidTarget ValidationReason = "invalid_target"
)

// ValidationError is returned for malformed requests.
type ValidationError struct {
	Reason ValidationReason
	Field  string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid request: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches another ValidationError with the same reason.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Reason == e.Reason
}

// Sentinels for errors.Is checks.
var (
	ErrWrongPassword = &AuthError{Reason: WrongPassword}
	ErrBanned        = &AuthError{Reason: Banned}
	ErrLockedOut     = &AuthError{Reason: LockedOut}

	ErrNotOwner  = &AuthorizationError{Reason: NotOwner}
	ErrNotAdmin  = &AuthorizationError{Reason: NotAdmin}
	ErrNotMember = &AuthorizationError{Reason: NotMember}

	ErrRoomNotFound        = &NotFoundError{Kind: RoomNotFound}
	ErrMessageNotFound     = &NotFoundError{Kind: MessageNotFound}
	ErrParticipantNotFound = &NotFoundError{Kind: ParticipantNotFound}
	ErrPageNotFound        = &NotFoundError{Kind: PageNotFound}

	ErrEmptyField    = &ValidationError{Reason: EmptyField}
	ErrDuplicateName = &ValidationError{Reason: DuplicateName}
	ErrTooLong       = &ValidationError{Reason: TooLong}
	ErrTooMany       = &ValidationError{Reason: TooMany}
	ErrInvalidTarget = &ValidationError{Reason: InvalidTarget}
)

// Code returns the wire code for err, or "internal" for unknown errors.
func Code(err error) string {
	var authErr *AuthError
	var authzErr *AuthorizationError
	var notFound *NotFoundError
	var invalid *ValidationError
	switch {
	case errors.As(err, &authErr):
		return string(authErr.Reason)
	case errors.As(err, &authzErr):
		return string(authzErr.Reason)
	case errors.As(err, &notFound):
		return string(notFound.Kind) + "_not_found"
	case errors.As(err, &invalid):
		return string(invalid.Reason)
	}
	return "internal"
}
