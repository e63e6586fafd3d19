package http

import (
	"net/http"

	"github.com/aussiebroadwan/notes/internal/notes/service"
	"github.com/aussiebroadwan/notes/pkg/httpx"
	"github.com/aussiebroadwan/notes/pkg/notesdk"
	"github.com/aussiebroadwan/notes/pkg/slogx"
)

// AuthenticatorHandler serves authenticator app setup and sign-in.
type AuthenticatorHandler struct {
	Authenticator *service.AuthenticatorService
}

// HandleEnroll handles POST /api/users/authenticator/enroll
//
//	@Summary		Start authenticator setup
//	@Description	Generates a TOTP secret. Sign-in with it works only after confirmation.
//	@Tags			Authenticator
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	notesdk.AuthenticatorEnrollResponse
//	@Failure		400	{object}	notesdk.ErrorResponse	"Authenticator already enabled"
//	@Failure		401	{object}	notesdk.ErrorResponse
//	@Failure		500	{object}	notesdk.ErrorResponse
//	@Router			/api/users/authenticator/enroll [post].
func (h *AuthenticatorHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	enr, err := h.Authenticator.Enroll(r.Context(), uid)
	if err != nil {
		writeError(w, r, err, accountStatuses)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, notesdk.AuthenticatorEnrollResponse{
		Secret:     enr.Secret,
		OTPAuthURL: enr.OTPAuthURL,
		Issuer:     enr.Issuer,
		Account:    enr.Account,
	})
}

// HandleConfirm handles POST /api/users/authenticator/confirm
//
//	@Summary		Confirm authenticator setup
//	@Tags			Authenticator
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		notesdk.AuthenticatorCodeRequest	true	"Current code"
//	@Success		200		{object}	notesdk.MessageResponse
//	@Failure		400		{object}	notesdk.ErrorResponse	"Bad code or nothing to confirm"
//	@Failure		401		{object}	notesdk.ErrorResponse
//	@Router			/api/users/authenticator/confirm [post].
func (h *AuthenticatorHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req notesdk.AuthenticatorCodeRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.Authenticator.Confirm(r.Context(), uid, req.Code); err != nil {
		writeError(w, r, err, accountStatuses)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Authenticator enabled")
}

// HandleRemove handles DELETE /api/users/authenticator
//
//	@Summary		Remove authenticator
//	@Tags			Authenticator
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		notesdk.AuthenticatorCodeRequest	true	"Current code"
//	@Success		200		{object}	notesdk.MessageResponse
//	@Failure		400		{object}	notesdk.ErrorResponse	"Bad code or not enabled"
//	@Failure		401		{object}	notesdk.ErrorResponse
//	@Router			/api/users/authenticator [delete].
func (h *AuthenticatorHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req notesdk.AuthenticatorCodeRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.Authenticator.Remove(r.Context(), uid, req.Code); err != nil {
		writeError(w, r, err, accountStatuses)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Authenticator removed")
}

// HandleSignIn handles POST /api/users/verify-authenticator
//
//	@Summary		Sign in with an authenticator code
//	@Tags			Authenticator
//	@Accept			json
//	@Produce		json
//	@Param			request	body		notesdk.AuthenticatorSignInRequest	true	"Email and code"
//	@Success		200		{object}	notesdk.VerifyOTPResponse
//	@Failure		400		{object}	notesdk.ErrorResponse	"Missing fields or invalid code"
//	@Failure		429		{object}	notesdk.ErrorResponse
//	@Router			/api/users/verify-authenticator [post].
func (h *AuthenticatorHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req notesdk.AuthenticatorSignInRequest
	if !decode(w, r, &req) {
		return
	}

	sess, err := h.Authenticator.SignIn(r.Context(), req.Email, req.Code)
	if err != nil {
		writeError(w, r, err, userStatuses)
		return
	}

	slogx.FromContext(r.Context()).Info("authenticator sign-in", "user_id", sess.User.ID)
	httpx.WriteJSON(w, http.StatusOK, notesdk.VerifyOTPResponse{
		Message: "Login successful",
		Token:   sess.Token,
		Name:    sess.User.Name,
		DOB:     sess.User.DOB,
	})
}
