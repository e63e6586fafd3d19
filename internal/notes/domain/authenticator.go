package domain

// AuthenticatorEnrollment is handed to the user once, when an authenticator
// app is being set up.
type AuthenticatorEnrollment struct {
	Secret     string // base32 TOTP secret
	OTPAuthURL string // otpauth:// URL for QR codes
	Issuer     string
	Account    string
}
