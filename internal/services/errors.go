package services

import "errors"

// Failure taxonomy surfaced by the admission, moderation and pipeline
// services. Handlers translate these into HTTP responses; everything else is
// an internal error.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrPasswordExpired = errors.New("password expired")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrRateLimited     = errors.New("provider rate limited")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
)

// ModerationError is returned when the watchdog rejects a prompt. Reason is
// the model's own explanation and is meant to be shown to the user verbatim.
type ModerationError struct {
	Reason string
}

func (e *ModerationError) Error() string {
	return "prompt rejected by moderation: " + e.Reason
}

// AsModerationError unwraps a moderation rejection if err carries one.
func AsModerationError(err error) (*ModerationError, bool) {
	var me *ModerationError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}
