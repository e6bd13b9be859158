package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without
// leaking infrastructure details.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("forbidden")
	ErrDownstream = errors.New("downstream failure")

	// OTP verification outcomes. Expired stays distinct from invalid so
	// clients can offer a resend specifically; used stays distinct so an
	// at-least-once transport replaying a successful verify gets a stable
	// answer instead of a second account or token.
	ErrInvalidCode = errors.New("invalid code")
	ErrExpiredCode = errors.New("code expired")
	ErrCodeUsed    = errors.New("code already used")

	// ErrState marks an operation attempted from the wrong lifecycle state,
	// e.g. a resend with no pending registration draft.
	ErrState = errors.New("invalid state")

	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("wrong password")
	ErrUnverified         = errors.New("email not verified")
)
