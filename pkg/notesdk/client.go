package notesdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the notes API. It performs the unauthenticated
// calls and creates Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client for the service at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Signup registers an account and emails a sign-in code. It returns the new
// user's id.
func (c *SDKClient) Signup(ctx context.Context, email, name, dob string) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/users/signup", "", SignupRequest{
		Email: email,
		Name:  name,
		DOB:   dob,
	})
	if err != nil {
		return "", err
	}

	var out SignupResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return "", err
	}
	return out.UserID, nil
}

// Login emails a fresh sign-in code, replacing any pending one.
func (c *SDKClient) Login(ctx context.Context, email string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/users/login", "", LoginRequest{Email: email})
	if err != nil {
		return err
	}

	var out MessageResponse
	return decodeJSON(resp, &out, http.StatusOK)
}

// VerifyOTP exchanges an emailed code for a session.
func (c *SDKClient) VerifyOTP(ctx context.Context, email, otp string) (*Session, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/users/verify-otp", "", VerifyOTPRequest{
		Email: email,
		OTP:   otp,
	})
	if err != nil {
		return nil, err
	}

	var out VerifyOTPResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &Session{client: c, token: out.Token, Name: out.Name, DOB: out.DOB}, nil
}

// VerifyAuthenticator exchanges an authenticator app code for a session.
func (c *SDKClient) VerifyAuthenticator(ctx context.Context, email, code string) (*Session, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/users/verify-authenticator", "", AuthenticatorSignInRequest{
		Email: email,
		Code:  code,
	})
	if err != nil {
		return nil, err
	}

	var out VerifyOTPResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &Session{client: c, token: out.Token, Name: out.Name, DOB: out.DOB}, nil
}

// GoogleLogin exchanges a Google ID token for a session, creating the
// account on first use.
func (c *SDKClient) GoogleLogin(ctx context.Context, idToken string) (*Session, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/users/google", "", GoogleLoginRequest{IDToken: idToken})
	if err != nil {
		return nil, err
	}

	var out GoogleLoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &Session{client: c, token: out.Token, Email: out.User.Email, Name: out.User.Name}, nil
}

// NewSessionFromToken wraps a previously issued token.
func (c *SDKClient) NewSessionFromToken(token string) *Session {
	return &Session{client: c, token: token}
}

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/livez", "", nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetReadiness checks if the service is ready. A degraded service returns
// an *APIError with status 503.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/readyz", "", nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}
