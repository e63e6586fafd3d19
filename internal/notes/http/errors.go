package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/notes/internal/notes/domain"
	"github.com/aussiebroadwan/notes/pkg/httpx"
	"github.com/aussiebroadwan/notes/pkg/notesdk"
	"github.com/aussiebroadwan/notes/pkg/slogx"
)

const (
	msgServerError = "Server error"
	msgBadJSON     = "Invalid JSON body"
)

// statusMap maps error kinds to HTTP statuses for one route group.
// Dependency failures are always 500 and are not listed.
type statusMap map[domain.Kind]int

var (
	// The sign-in routes answer every client failure with 400.
	userStatuses = statusMap{
		domain.KindValidation: http.StatusBadRequest,
		domain.KindConflict:   http.StatusBadRequest,
		domain.KindNotFound:   http.StatusBadRequest,
		domain.KindAuth:       http.StatusBadRequest,
	}

	// Routes acting on the signed-in account.
	accountStatuses = statusMap{
		domain.KindValidation: http.StatusBadRequest,
		domain.KindConflict:   http.StatusBadRequest,
		domain.KindNotFound:   http.StatusNotFound,
		domain.KindAuth:       http.StatusBadRequest,
	}

	noteStatuses = statusMap{
		domain.KindValidation: http.StatusBadRequest,
		domain.KindConflict:   http.StatusConflict,
		domain.KindNotFound:   http.StatusNotFound,
		domain.KindAuth:       http.StatusUnauthorized,
	}
)

// writeError writes err as an ErrorResponse. Dependency failures are logged
// and carry their detail in the "error" field.
func writeError(w http.ResponseWriter, r *http.Request, err error, statuses statusMap) {
	kind := domain.KindOf(err)
	if kind == domain.KindDependency {
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, notesdk.ErrorResponse{
			Message: msgServerError,
			Error:   dependencyDetail(err),
		})
		return
	}

	status, ok := statuses[kind]
	if !ok {
		status = http.StatusBadRequest
	}
	httpx.WriteMessage(w, status, domain.MessageOf(err))
}

func dependencyDetail(err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Err != nil {
		return de.Err.Error()
	}
	return err.Error()
}

// decode reads the JSON body into dst, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		slogx.FromContext(r.Context()).Debug("bad request body", "err", err)
		httpx.WriteMessage(w, http.StatusBadRequest, msgBadJSON)
		return false
	}
	return true
}

// userID returns the authenticated user, answering 401 itself when the
// route was not wrapped in AuthnMiddleware.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteMessage(w, http.StatusUnauthorized, "Not authorized, no token")
		return "", false
	}
	return id, true
}
