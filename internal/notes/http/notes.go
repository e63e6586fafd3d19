package http

import (
	"net/http"

	"github.com/aussiebroadwan/notes/internal/notes/domain"
	"github.com/aussiebroadwan/notes/internal/notes/service"
	"github.com/aussiebroadwan/notes/pkg/httpx"
	"github.com/aussiebroadwan/notes/pkg/notesdk"
)

// NotesHandler serves the signed-in user's notes.
type NotesHandler struct {
	Notes *service.NoteService
}

func toNote(n domain.Note) notesdk.Note {
	return notesdk.Note{
		ID:        n.ID,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// HandleList handles GET /api/notes
//
//	@Summary		List notes
//	@Description	Returns the caller's notes, oldest first.
//	@Tags			Notes
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	notesdk.NotesResponse
//	@Failure		401	{object}	notesdk.ErrorResponse
//	@Failure		500	{object}	notesdk.ErrorResponse
//	@Router			/api/notes [get].
func (h *NotesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	notes, err := h.Notes.List(r.Context(), uid)
	if err != nil {
		writeError(w, r, err, noteStatuses)
		return
	}

	out := notesdk.NotesResponse{Notes: make([]notesdk.Note, 0, len(notes))}
	for _, n := range notes {
		out.Notes = append(out.Notes, toNote(n))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleCreate handles POST /api/notes
//
//	@Summary		Create a note
//	@Tags			Notes
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		notesdk.NoteRequest	true	"Note content"
//	@Success		201		{object}	notesdk.NoteResponse
//	@Failure		400		{object}	notesdk.ErrorResponse	"Empty content"
//	@Failure		401		{object}	notesdk.ErrorResponse
//	@Failure		500		{object}	notesdk.ErrorResponse
//	@Router			/api/notes [post].
func (h *NotesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req notesdk.NoteRequest
	if !decode(w, r, &req) {
		return
	}

	n, err := h.Notes.Create(r.Context(), uid, req.Content)
	if err != nil {
		writeError(w, r, err, noteStatuses)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, notesdk.NoteResponse{Message: "Note created", Note: toNote(n)})
}

// HandleUpdate handles PUT /api/notes/{id}
//
//	@Summary		Update a note
//	@Tags			Notes
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			request	body		notesdk.NoteRequest	true	"New content"
//	@Success		200		{object}	notesdk.NoteResponse
//	@Failure		400		{object}	notesdk.ErrorResponse	"Empty content"
//	@Failure		401		{object}	notesdk.ErrorResponse
//	@Failure		404		{object}	notesdk.ErrorResponse	"Note not found"
//	@Router			/api/notes/{id} [put].
func (h *NotesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req notesdk.NoteRequest
	if !decode(w, r, &req) {
		return
	}

	n, err := h.Notes.Update(r.Context(), uid, r.PathValue("id"), req.Content)
	if err != nil {
		writeError(w, r, err, noteStatuses)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, notesdk.NoteResponse{Message: "Note updated", Note: toNote(n)})
}

// HandleDelete handles DELETE /api/notes/{id}
//
//	@Summary		Delete a note
//	@Tags			Notes
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	notesdk.MessageResponse
//	@Failure		401	{object}	notesdk.ErrorResponse
//	@Failure		404	{object}	notesdk.ErrorResponse	"Note not found"
//	@Router			/api/notes/{id} [delete].
func (h *NotesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	if err := h.Notes.Delete(r.Context(), uid, r.PathValue("id")); err != nil {
		writeError(w, r, err, noteStatuses)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Note deleted")
}
