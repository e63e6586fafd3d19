package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/notes/internal/notes/domain"
	"github.com/aussiebroadwan/notes/internal/notes/store"
	"github.com/aussiebroadwan/notes/pkg/idx"
)

// MaxNoteBytes bounds note content.
const MaxNoteBytes = 64 << 10

// NoteService manages a user's notes. Every operation is scoped to the
// calling user; another user's note is indistinguishable from a missing one.
type NoteService struct {
	Store store.Store
	Now   func() time.Time
}

// Create stores a note and appends it to the owner's note list atomically.
func (s *NoteService) Create(ctx context.Context, userID, content string) (domain.Note, error) {
	if err := validateContent(content); err != nil {
		return domain.Note{}, err
	}

	now := clock(s.Now)
	n := domain.Note{
		ID:        idx.NewAt(now).String(),
		OwnerID:   userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Notes().CreateNote(ctx, n); err != nil {
			return err
		}
		return tx.Notes().AppendNoteRef(ctx, userID, n.ID)
	})
	if err != nil {
		return domain.Note{}, domain.Dependencyf(err, "create note")
	}
	return n, nil
}

// List returns the user's notes, oldest first.
func (s *NoteService) List(ctx context.Context, userID string) ([]domain.Note, error) {
	notes, err := s.Store.Notes().ListNotes(ctx, userID)
	if err != nil {
		return nil, domain.Dependencyf(err, "list notes")
	}
	return notes, nil
}

// Update replaces the content of one of the user's notes.
func (s *NoteService) Update(ctx context.Context, userID, noteID, content string) (domain.Note, error) {
	if err := validateContent(content); err != nil {
		return domain.Note{}, err
	}
	if !idx.Valid(noteID) {
		return domain.Note{}, domain.ErrNoteNotFound
	}

	n, err := s.Store.Notes().UpdateNoteContent(ctx, userID, noteID, content, clock(s.Now))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Note{}, domain.ErrNoteNotFound
	}
	if err != nil {
		return domain.Note{}, domain.Dependencyf(err, "update note %s", noteID)
	}
	return n, nil
}

// Delete removes one of the user's notes and its list entry atomically.
func (s *NoteService) Delete(ctx context.Context, userID, noteID string) error {
	if !idx.Valid(noteID) {
		return domain.ErrNoteNotFound
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		// Owner-scoped delete first; no rows means not found and rolls back.
		if err := tx.Notes().DeleteNote(ctx, userID, noteID); err != nil {
			return err
		}
		if err := tx.Notes().RemoveNoteRef(ctx, userID, noteID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrNoteNotFound
	}
	if err != nil {
		return domain.Dependencyf(err, "delete note %s", noteID)
	}
	return nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return domain.ErrContentRequired
	}
	if len(content) > MaxNoteBytes {
		return domain.ErrContentTooLong
	}
	return nil
}
