package http_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	httpapi "github.com/aussiebroadwan/notes/internal/notes/http"
	"github.com/aussiebroadwan/notes/internal/notes/notestest"
	"github.com/aussiebroadwan/notes/pkg/googleid"
	"github.com/aussiebroadwan/notes/pkg/httpx"
	"github.com/aussiebroadwan/notes/pkg/notesdk"
)

// call sends a JSON request through the router and decodes the response
// body into out when out is non-nil.
func call(t *testing.T, h http.Handler, method, path, token string, in, out any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if in != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(in))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var er notesdk.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er), rec.Body.String())
	return er.Message
}

// signIn signs up email and returns a session token.
func signIn(t *testing.T, h *notestest.Harness, email string) string {
	t.Helper()
	var su notesdk.SignupResponse
	rec := call(t, h.Router, http.MethodPost, "/api/users/signup", "",
		notesdk.SignupRequest{Email: email, Name: "Ada", DOB: "1990-01-01"}, &su)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "OTP sent to email", su.Message)
	require.NotEmpty(t, su.UserID)

	var vr notesdk.VerifyOTPResponse
	rec = call(t, h.Router, http.MethodPost, "/api/users/verify-otp", "",
		notesdk.VerifyOTPRequest{Email: email, OTP: h.Mailer.LastCode(t, email)}, &vr)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Signup successful", vr.Message)
	require.Equal(t, "Ada", vr.Name)
	require.Equal(t, "1990-01-01", vr.DOB)
	require.NotEmpty(t, vr.Token)
	return vr.Token
}

func TestSignupLoginFlow(t *testing.T) {
	h := notestest.New(t)
	signIn(t, h, "ada@example.com")

	var msg notesdk.MessageResponse
	rec := call(t, h.Router, http.MethodPost, "/api/users/login", "", notesdk.LoginRequest{Email: "ada@example.com"}, &msg)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OTP sent successfully", msg.Message)

	var vr notesdk.VerifyOTPResponse
	code := h.Mailer.LastCode(t, "ada@example.com")
	rec = call(t, h.Router, http.MethodPost, "/api/users/verify-otp", "", notesdk.VerifyOTPRequest{Email: "ada@example.com", OTP: code}, &vr)
	require.Equal(t, http.StatusOK, rec.Code)

	// Codes work once.
	rec = call(t, h.Router, http.MethodPost, "/api/users/verify-otp", "", notesdk.VerifyOTPRequest{Email: "ada@example.com", OTP: code}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid or expired OTP", message(t, rec))
}

func TestUserErrors(t *testing.T) {
	h := notestest.New(t)
	signIn(t, h, "ada@example.com")

	cases := []struct {
		name string
		path string
		body any
		want string
	}{
		{"signup missing fields", "/api/users/signup", notesdk.SignupRequest{Email: "x@example.com"}, "Email, Name and Date of Birth are required"},
		{"signup email in use", "/api/users/signup", notesdk.SignupRequest{Email: "ada@example.com", Name: "A", DOB: "1990"}, "Email already in use"},
		{"login missing email", "/api/users/login", notesdk.LoginRequest{}, "Email is required"},
		{"login unknown", "/api/users/login", notesdk.LoginRequest{Email: "ghost@example.com"}, "Invalid credentials"},
		{"verify missing", "/api/users/verify-otp", notesdk.VerifyOTPRequest{Email: "ada@example.com"}, "Email and OTP are required"},
		{"google missing token", "/api/users/google", notesdk.GoogleLoginRequest{}, "idToken is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := call(t, h.Router, http.MethodPost, tc.path, "", tc.body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, tc.want, message(t, rec))
		})
	}
}

func TestEmptyBodyReportsMissingFields(t *testing.T) {
	h := notestest.New(t)

	req := httptest.NewRequest(http.MethodPost, "/api/users/signup", nil)
	rec := httptest.NewRecorder()
	h.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Email, Name and Date of Birth are required", message(t, rec))
}

func TestMalformedJSON(t *testing.T) {
	h := notestest.New(t)

	req := httptest.NewRequest(http.MethodPost, "/api/users/login", bytes.NewBufferString(`{"email":`))
	rec := httptest.NewRecorder()
	h.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid JSON body", message(t, rec))
}

func TestDependencyFailureIs500(t *testing.T) {
	h := notestest.New(t)
	h.Mailer.Fail(errors.New("smtp unreachable"))

	var er notesdk.ErrorResponse
	rec := call(t, h.Router, http.MethodPost, "/api/users/signup", "",
		notesdk.SignupRequest{Email: "ada@example.com", Name: "Ada", DOB: "1990"}, &er)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Server error", er.Message)
	require.Contains(t, er.Error, "smtp unreachable")
}

func TestNotesRoundTrip(t *testing.T) {
	h := notestest.New(t)
	tok := signIn(t, h, "ada@example.com")

	var created notesdk.NoteResponse
	rec := call(t, h.Router, http.MethodPost, "/api/notes", tok, notesdk.NoteRequest{Content: "X"}, &created)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "Note created", created.Message)
	require.Equal(t, "X", created.Note.Content)
	id := created.Note.ID

	var list notesdk.NotesResponse
	call(t, h.Router, http.MethodGet, "/api/notes", tok, nil, &list)
	require.Len(t, list.Notes, 1)
	require.Equal(t, id, list.Notes[0].ID)
	require.Equal(t, "X", list.Notes[0].Content)

	var updated notesdk.NoteResponse
	rec = call(t, h.Router, http.MethodPut, "/api/notes/"+id, tok, notesdk.NoteRequest{Content: "Y"}, &updated)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Note updated", updated.Message)

	call(t, h.Router, http.MethodGet, "/api/notes", tok, nil, &list)
	require.Equal(t, "Y", list.Notes[0].Content)

	var msg notesdk.MessageResponse
	rec = call(t, h.Router, http.MethodDelete, "/api/notes/"+id, tok, nil, &msg)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Note deleted", msg.Message)

	list = notesdk.NotesResponse{}
	call(t, h.Router, http.MethodGet, "/api/notes", tok, nil, &list)
	require.NotNil(t, list.Notes)
	require.Empty(t, list.Notes)
}

func TestNotesValidationAndOwnership(t *testing.T) {
	h := notestest.New(t)
	a := signIn(t, h, "a@example.com")
	b := signIn(t, h, "b@example.com")

	rec := call(t, h.Router, http.MethodPost, "/api/notes", a, notesdk.NoteRequest{Content: "  "}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Content is required", message(t, rec))

	var created notesdk.NoteResponse
	call(t, h.Router, http.MethodPost, "/api/notes", a, notesdk.NoteRequest{Content: "private"}, &created)

	rec = call(t, h.Router, http.MethodPut, "/api/notes/"+created.Note.ID, b, notesdk.NoteRequest{Content: "mine"}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Note not found", message(t, rec))

	rec = call(t, h.Router, http.MethodDelete, "/api/notes/"+created.Note.ID, b, nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var list notesdk.NotesResponse
	call(t, h.Router, http.MethodGet, "/api/notes", b, nil, &list)
	require.Empty(t, list.Notes)

	call(t, h.Router, http.MethodGet, "/api/notes", a, nil, &list)
	require.Len(t, list.Notes, 1)
}

func TestProtectedRoutesRejectBadTokens(t *testing.T) {
	h := notestest.New(t)
	expired := h.Token(t, "user-1", time.Now().Add(-2*time.Hour), time.Hour)

	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"no header", "", "Not authorized, no token"},
		{"malformed header", "Token abc", "Not authorized, no token"},
		{"garbage token", "Bearer not.a.jwt", "Not authorized, token failed"},
		{"expired token", "Bearer " + expired, "Not authorized, token failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.Router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Equal(t, tc.want, message(t, rec))
			require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
		})
	}
}

func TestGoogleLogin(t *testing.T) {
	h := notestest.New(t)
	h.Google.Add("good", googleid.Identity{Subject: "g-1", Email: "grace@example.com", EmailVerified: true, Name: "Grace"})
	h.Google.Add("other", googleid.Identity{Subject: "g-2", Email: "grace@example.com", EmailVerified: true, Name: "Grace"})

	var gr notesdk.GoogleLoginResponse
	rec := call(t, h.Router, http.MethodPost, "/api/users/google", "", notesdk.GoogleLoginRequest{IDToken: "good"}, &gr)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Login successful", gr.Message)
	require.Equal(t, "grace@example.com", gr.User.Email)
	require.Equal(t, "Grace", gr.User.Name)

	var profile notesdk.ProfileResponse
	rec = call(t, h.Router, http.MethodGet, "/api/users/me", gr.Token, nil, &profile)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, profile.GoogleLinked)

	rec = call(t, h.Router, http.MethodPost, "/api/users/google", "", notesdk.GoogleLoginRequest{IDToken: "other"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Account linked to a different Google account", message(t, rec))

	rec = call(t, h.Router, http.MethodPost, "/api/users/google", "", notesdk.GoogleLoginRequest{IDToken: "forged"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfile(t *testing.T) {
	h := notestest.New(t)
	tok := signIn(t, h, "ada@example.com")

	var p notesdk.ProfileResponse
	rec := call(t, h.Router, http.MethodGet, "/api/users/me", tok, nil, &p)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ada@example.com", p.Email)
	require.Equal(t, "Ada", p.Name)
	require.False(t, p.GoogleLinked)
	require.False(t, p.AuthenticatorEnabled)

	ghost := h.Token(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", time.Now(), time.Hour)
	rec = call(t, h.Router, http.MethodGet, "/api/users/me", ghost, nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthenticatorRoutes(t *testing.T) {
	h := notestest.New(t)
	tok := signIn(t, h, "ada@example.com")

	var enr notesdk.AuthenticatorEnrollResponse
	rec := call(t, h.Router, http.MethodPost, "/api/users/authenticator/enroll", tok, nil, &enr)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, enr.Secret)
	require.Equal(t, "ada@example.com", enr.Account)

	rec = call(t, h.Router, http.MethodPost, "/api/users/authenticator/confirm", tok, notesdk.AuthenticatorCodeRequest{}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Code is required", message(t, rec))

	rec = call(t, h.Router, http.MethodPost, "/api/users/verify-authenticator", "",
		notesdk.AuthenticatorSignInRequest{Email: "ada@example.com", Code: "123456"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid authenticator code", message(t, rec))
}

func TestHealth(t *testing.T) {
	h := notestest.New(t)

	var live notesdk.HealthResponse
	rec := call(t, h.Router, http.MethodGet, "/livez", "", nil, &live)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	var ready notesdk.HealthResponse
	rec = call(t, h.Router, http.MethodGet, "/readyz", "", nil, &ready)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "disabled", ready.Checks.GoogleKeys)
}

func TestReadyzDegradedWhenStoreClosed(t *testing.T) {
	h := notestest.New(t)
	require.NoError(t, h.Store.Close())

	var ready notesdk.HealthResponse
	rec := call(t, h.Router, http.MethodGet, "/readyz", "", nil, &ready)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "degraded", ready.Status)
}

func TestAuthRateLimit(t *testing.T) {
	strict := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	lenient := httpx.RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}
	h := notestest.New(t, notestest.WithLimits(httpapi.Limits{Auth: strict, Notes: lenient, Health: lenient}))

	for range 2 {
		rec := call(t, h.Router, http.MethodPost, "/api/users/login", "", notesdk.LoginRequest{Email: "ghost@example.com"}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec := call(t, h.Router, http.MethodPost, "/api/users/login", "", notesdk.LoginRequest{Email: "ghost@example.com"}, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, httpx.MsgTooManyRequests, message(t, rec))
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Case and padding variants of the same address share the budget.
	rec = call(t, h.Router, http.MethodPost, "/api/users/login", "", notesdk.LoginRequest{Email: " GHOST@Example.com "}, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Another account from the same address has its own budget.
	rec = call(t, h.Router, http.MethodPost, "/api/users/login", "", notesdk.LoginRequest{Email: "other@example.com"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := notestest.New(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/notes", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	h.Router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDHeader(t *testing.T) {
	h := notestest.New(t)

	rec := call(t, h.Router, http.MethodGet, "/livez", "", nil, nil)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
