package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/notes/internal/notes/domain"
	"github.com/aussiebroadwan/notes/internal/notes/store"
)

type notesRepo struct {
	db store.DBTX
}

func (r *notesRepo) CreateNote(ctx context.Context, n domain.Note) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notes (`+store.NoteColumns+`) VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.OwnerID, n.Content, n.CreatedAt.UTC(), n.UpdatedAt.UTC())
	return mapUnique(err)
}

func (r *notesRepo) GetNote(ctx context.Context, ownerID, noteID string) (domain.Note, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+store.NoteColumns+` FROM notes WHERE id = ? AND owner_id = ?`, noteID, ownerID)
	n, err := store.ScanNote(row)
	if err != nil {
		return domain.Note{}, mapNotFound(err)
	}
	return n, nil
}

func (r *notesRepo) ListNotes(ctx context.Context, ownerID string) ([]domain.Note, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT n.id, n.owner_id, n.content, n.created_at, n.updated_at
		FROM notes n
		JOIN user_notes un ON un.note_id = n.id AND un.user_id = n.owner_id
		WHERE n.owner_id = ?
		ORDER BY un.position`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []domain.Note{}
	for rows.Next() {
		n, err := store.ScanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *notesRepo) UpdateNoteContent(ctx context.Context, ownerID, noteID, content string, now time.Time) (domain.Note, error) {
	err := requireOne(r.db.ExecContext(ctx,
		`UPDATE notes SET content = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		content, now.UTC(), noteID, ownerID))
	if err != nil {
		return domain.Note{}, err
	}
	return r.GetNote(ctx, ownerID, noteID)
}

func (r *notesRepo) DeleteNote(ctx context.Context, ownerID, noteID string) error {
	return requireOne(r.db.ExecContext(ctx,
		`DELETE FROM notes WHERE id = ? AND owner_id = ?`, noteID, ownerID))
}

func (r *notesRepo) AppendNoteRef(ctx context.Context, userID, noteID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_notes (user_id, note_id, position)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM user_notes WHERE user_id = ?))`,
		userID, noteID, userID)
	return mapUnique(err)
}

func (r *notesRepo) RemoveNoteRef(ctx context.Context, userID, noteID string) error {
	return requireOne(r.db.ExecContext(ctx,
		`DELETE FROM user_notes WHERE user_id = ? AND note_id = ?`, userID, noteID))
}
