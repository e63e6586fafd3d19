package http

import (
	"net/http"

	"github.com/aussiebroadwan/notes/internal/notes/service"
	"github.com/aussiebroadwan/notes/pkg/httpx"
	"github.com/aussiebroadwan/notes/pkg/notesdk"
)

// UsersHandler serves sign-up, sign-in and the profile.
type UsersHandler struct {
	OTP       *service.OTPService
	Federated *service.FederatedService
	Users     *service.UserService
}

// HandleSignup handles POST /api/users/signup
//
//	@Summary		Sign up
//	@Description	Creates an account and emails a 6-digit code valid for 10 minutes.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		notesdk.SignupRequest	true	"Account details"
//	@Success		201		{object}	notesdk.SignupResponse
//	@Failure		400		{object}	notesdk.ErrorResponse	"Missing fields or email already in use"
//	@Failure		429		{object}	notesdk.ErrorResponse
//	@Failure		500		{object}	notesdk.ErrorResponse
//	@Router			/api/users/signup [post].
func (h *UsersHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req notesdk.SignupRequest
	if !decode(w, r, &req) {
		return
	}

	id, err := h.OTP.IssueSignup(r.Context(), service.SignupInput{
		Email: req.Email,
		Name:  req.Name,
		DOB:   req.DOB,
	})
	if err != nil {
		writeError(w, r, err, userStatuses)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, notesdk.SignupResponse{
		Message: "OTP sent to email",
		UserID:  id,
	})
}

// HandleLogin handles POST /api/users/login
//
//	@Summary		Request a sign-in code
//	@Description	Emails a new code, replacing any code still pending.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		notesdk.LoginRequest	true	"Account email"
//	@Success		200		{object}	notesdk.MessageResponse
//	@Failure		400		{object}	notesdk.ErrorResponse	"Missing email or unknown account"
//	@Failure		429		{object}	notesdk.ErrorResponse
//	@Failure		500		{object}	notesdk.ErrorResponse
//	@Router			/api/users/login [post].
func (h *UsersHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req notesdk.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.OTP.IssueSignin(r.Context(), req.Email); err != nil {
		writeError(w, r, err, userStatuses)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "OTP sent successfully")
}

// HandleVerifyOTP handles POST /api/users/verify-otp
//
//	@Summary		Verify a sign-in code
//	@Description	Exchanges a pending code for a session token. Each code works once.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		notesdk.VerifyOTPRequest	true	"Email and code"
//	@Success		200		{object}	notesdk.VerifyOTPResponse
//	@Failure		400		{object}	notesdk.ErrorResponse	"Missing fields or invalid/expired code"
//	@Failure		429		{object}	notesdk.ErrorResponse
//	@Failure		500		{object}	notesdk.ErrorResponse
//	@Router			/api/users/verify-otp [post].
func (h *UsersHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req notesdk.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}

	sess, err := h.OTP.Verify(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(w, r, err, userStatuses)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, notesdk.VerifyOTPResponse{
		Message: "Signup successful",
		Token:   sess.Token,
		Name:    sess.User.Name,
		DOB:     sess.User.DOB,
	})
}

// HandleGoogle handles POST /api/users/google
//
//	@Summary		Sign in with Google
//	@Description	Verifies a Google ID token and returns a session token, creating the account on first use.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		notesdk.GoogleLoginRequest	true	"Google ID token"
//	@Success		200		{object}	notesdk.GoogleLoginResponse
//	@Failure		400		{object}	notesdk.ErrorResponse	"Missing or invalid token, or account linked to another Google account"
//	@Failure		429		{object}	notesdk.ErrorResponse
//	@Failure		500		{object}	notesdk.ErrorResponse
//	@Router			/api/users/google [post].
func (h *UsersHandler) HandleGoogle(w http.ResponseWriter, r *http.Request) {
	var req notesdk.GoogleLoginRequest
	if !decode(w, r, &req) {
		return
	}

	sess, err := h.Federated.Login(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, r, err, userStatuses)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, notesdk.GoogleLoginResponse{
		Message: "Login successful",
		Token:   sess.Token,
		User: notesdk.GoogleUser{
			Email: sess.User.Email,
			Name:  sess.User.Name,
		},
	})
}

// HandleProfile handles GET /api/users/me
//
//	@Summary		Current user
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	notesdk.ProfileResponse
//	@Failure		401	{object}	notesdk.ErrorResponse
//	@Failure		404	{object}	notesdk.ErrorResponse	"Account no longer exists"
//	@Router			/api/users/me [get].
func (h *UsersHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	u, err := h.Users.Profile(r.Context(), uid)
	if err != nil {
		writeError(w, r, err, accountStatuses)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, notesdk.ProfileResponse{
		ID:                   u.ID,
		Email:                u.Email,
		Name:                 u.Name,
		DOB:                  u.DOB,
		GoogleLinked:         u.GoogleLinked(),
		AuthenticatorEnabled: u.AuthenticatorEnabled(),
	})
}
