package notesdk

import (
	"context"
	"net/http"
	"net/url"
)

// Session is a signed-in user. Tokens are not refreshed; when one lapses the
// service answers 401 and the user signs in again.
type Session struct {
	client *SDKClient
	token  string

	// Filled from the sign-in response where the route returns them.
	Email string
	Name  string
	DOB   string
}

// Token returns the bearer token.
func (s *Session) Token() string { return s.token }

func (s *Session) do(ctx context.Context, method, path string, in, out any, expected int) error {
	resp, err := s.client.doRequest(ctx, method, path, s.token, in)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out, expected)
}

// ============================================================================
// Account
// ============================================================================

// Profile returns the signed-in user's account.
func (s *Session) Profile(ctx context.Context) (*ProfileResponse, error) {
	var out ProfileResponse
	if err := s.do(ctx, http.MethodGet, "/api/users/me", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnrollAuthenticator starts authenticator app setup. The returned secret
// is shown once.
func (s *Session) EnrollAuthenticator(ctx context.Context) (*AuthenticatorEnrollResponse, error) {
	var out AuthenticatorEnrollResponse
	if err := s.do(ctx, http.MethodPost, "/api/users/authenticator/enroll", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmAuthenticator activates a pending enrollment.
func (s *Session) ConfirmAuthenticator(ctx context.Context, code string) error {
	var out MessageResponse
	return s.do(ctx, http.MethodPost, "/api/users/authenticator/confirm",
		AuthenticatorCodeRequest{Code: code}, &out, http.StatusOK)
}

// RemoveAuthenticator disables authenticator sign-in.
func (s *Session) RemoveAuthenticator(ctx context.Context, code string) error {
	var out MessageResponse
	return s.do(ctx, http.MethodDelete, "/api/users/authenticator",
		AuthenticatorCodeRequest{Code: code}, &out, http.StatusOK)
}

// ============================================================================
// Notes
// ============================================================================

// ListNotes returns the user's notes, oldest first.
func (s *Session) ListNotes(ctx context.Context) ([]Note, error) {
	var out NotesResponse
	if err := s.do(ctx, http.MethodGet, "/api/notes", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Notes, nil
}

func (s *Session) CreateNote(ctx context.Context, content string) (*Note, error) {
	var out NoteResponse
	if err := s.do(ctx, http.MethodPost, "/api/notes", NoteRequest{Content: content}, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out.Note, nil
}

func (s *Session) UpdateNote(ctx context.Context, id, content string) (*Note, error) {
	var out NoteResponse
	err := s.do(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(id), NoteRequest{Content: content}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out.Note, nil
}

func (s *Session) DeleteNote(ctx context.Context, id string) error {
	var out MessageResponse
	return s.do(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), nil, &out, http.StatusOK)
}
