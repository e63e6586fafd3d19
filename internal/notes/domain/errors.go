package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures so the HTTP layer can map them to status codes
// once, per route group.
type Kind int

const (
	KindDependency Kind = iota // store, mail or another collaborator failed
	KindValidation             // the request was malformed or incomplete
	KindConflict               // the request clashes with existing state
	KindNotFound               // the addressed record does not exist for this caller
	KindAuth                   // the credentials presented were not accepted
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	default:
		return "dependency"
	}
}

// Error is the error type returned by services. Message is safe to show to
// clients; Err carries internal detail.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }
func Conflict(msg string) *Error   { return &Error{Kind: KindConflict, Message: msg} }
func NotFound(msg string) *Error   { return &Error{Kind: KindNotFound, Message: msg} }
func Auth(msg string) *Error       { return &Error{Kind: KindAuth, Message: msg} }

// Dependency wraps a collaborator failure.
func Dependency(msg string, err error) *Error {
	return &Error{Kind: KindDependency, Message: msg, Err: err}
}

// Dependencyf is Dependency with a formatted internal context.
func Dependencyf(err error, format string, args ...any) *Error {
	return &Error{Kind: KindDependency, Message: "Server error", Err: fmt.Errorf(format+": %w", append(args, err)...)}
}

// KindOf returns the kind of the first *Error in err's chain. Anything else,
// including nil, is a dependency failure.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindDependency
}

// MessageOf returns the client-safe message for err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "Server error"
}

// Sentinel errors. Compare with errors.Is.
var (
	ErrMissingFields      = Validation("Email, Name and Date of Birth are required")
	ErrInvalidEmail       = Validation("Invalid email address")
	ErrEmailRequired      = Validation("Email is required")
	ErrOTPRequired        = Validation("Email and OTP are required")
	ErrIDTokenRequired    = Validation("idToken is required")
	ErrContentRequired    = Validation("Content is required")
	ErrContentTooLong     = Validation("Content is too long")
	ErrCodeRequired       = Validation("Code is required")
	ErrFederationDisabled = Validation("Google sign-in is not configured")

	ErrEmailInUse       = Conflict("Email already in use")
	ErrIdentityConflict = Conflict("Account linked to a different Google account")

	ErrUnknownUser  = NotFound("Invalid credentials")
	ErrNoteNotFound = NotFound("Note not found")
	ErrUserNotFound = NotFound("User not found")

	ErrInvalidOTP             = Auth("Invalid or expired OTP")
	ErrInvalidIDToken         = Auth("Invalid Google token")
	ErrMissingEmailClaim      = Auth("Invalid token payload")
	ErrEmailNotVerified       = Auth("Google account email is not verified")
	ErrInvalidAuthenticator   = Auth("Invalid authenticator code")
	ErrAuthenticatorEnabled   = Conflict("Authenticator already enabled")
	ErrAuthenticatorNotActive = Validation("Authenticator is not enabled")
	ErrAuthenticatorNoEnroll  = Validation("Authenticator enrollment not started")
)
