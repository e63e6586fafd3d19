package notesdk

import "time"

// ============================================================================
// Accounts
// ============================================================================

type SignupRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	DOB   string `json:"dob"`
}

type SignupResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type LoginRequest struct {
	Email string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyOTPResponse is returned by both code-based sign-in routes.
type VerifyOTPResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	Name    string `json:"name"`
	DOB     string `json:"dob"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
}

type GoogleLoginResponse struct {
	Message string     `json:"message"`
	Token   string     `json:"token"`
	User    GoogleUser `json:"user"`
}

type GoogleUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type ProfileResponse struct {
	ID                   string `json:"id"`
	Email                string `json:"email"`
	Name                 string `json:"name"`
	DOB                  string `json:"dob"`
	GoogleLinked         bool   `json:"googleLinked"`
	AuthenticatorEnabled bool   `json:"authenticatorEnabled"`
}

// ============================================================================
// Authenticator
// ============================================================================

type AuthenticatorEnrollResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
	Issuer     string `json:"issuer"`
	Account    string `json:"account"`
}

type AuthenticatorCodeRequest struct {
	Code string `json:"code"`
}

type AuthenticatorSignInRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ============================================================================
// Notes
// ============================================================================

type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type NoteRequest struct {
	Content string `json:"content"`
}

type NoteResponse struct {
	Message string `json:"message"`
	Note    Note   `json:"note"`
}

type NotesResponse struct {
	Notes []Note `json:"notes"`
}

// ============================================================================
// Common
// ============================================================================

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response. Error is set only for
// server-side failures.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database   string `json:"database"`
	GoogleKeys string `json:"googleKeys"`
}
