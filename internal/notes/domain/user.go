package domain

import "time"

// OTPTTL is how long an emailed one-time code stays valid.
const OTPTTL = 10 * time.Minute

type User struct {
	ID            string
	Email         string // unique, never changed after creation
	Name          string
	DOB           string     // free-form, as entered at signup
	GoogleSubject *string    // Google "sub", bound at most once
	OTPCode       *string    // pending 6-digit code; set and cleared together with OTPExpiresAt
	OTPExpiresAt  *time.Time // exclusive end of the code's validity window
	TOTPSecret    *string    // sealed authenticator secret
	TOTPEnabledAt *time.Time // nil until the authenticator is confirmed
	NoteIDs       []string   // owned notes in creation order
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPendingOTP reports whether a code is outstanding at now.
func (u User) HasPendingOTP(now time.Time) bool {
	return u.OTPCode != nil && u.OTPExpiresAt != nil && now.Before(*u.OTPExpiresAt)
}

// GoogleLinked reports whether a Google account is bound.
func (u User) GoogleLinked() bool {
	return u.GoogleSubject != nil && *u.GoogleSubject != ""
}

// AuthenticatorEnabled reports whether authenticator sign-in is active.
func (u User) AuthenticatorEnabled() bool {
	return u.TOTPEnabledAt != nil && u.TOTPSecret != nil
}
