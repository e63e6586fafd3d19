package postgres

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
		`INSERT INTO notes (`+store.NoteColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.OwnerID, n.Content, n.CreatedAt.UTC(), n.UpdatedAt.UTC())
	return mapUnique(err)
}

func (r *notesRepo) GetNote(ctx context.Context, ownerID, noteID string) (domain.Note, error) {
	n, err := store.ScanNote(r.db.QueryRowContext(ctx,
		`SELECT `+store.NoteColumns+` FROM notes WHERE id = $1 AND owner_id = $2`, noteID, ownerID))
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
		WHERE n.owner_id = $1
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
	n, err := store.ScanNote(r.db.QueryRowContext(ctx, `
		UPDATE notes SET content = $1, updated_at = $2
		WHERE id = $3 AND owner_id = $4
		RETURNING `+store.NoteColumns,
		content, now.UTC(), noteID, ownerID))
	if err != nil {
		return domain.Note{}, mapNotFound(err)
	}
	return n, nil
}

func (r *notesRepo) DeleteNote(ctx context.Context, ownerID, noteID string) error {
	return requireOne(r.db.ExecContext(ctx,
		`DELETE FROM notes WHERE id = $1 AND owner_id = $2`, noteID, ownerID))
}

// AppendNoteRef locks the owner row first, so concurrent appends for one user
// see each other's positions. Call it inside a transaction.
func (r *notesRepo) AppendNoteRef(ctx context.Context, userID, noteID string) error {
	var owner string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR NO KEY UPDATE`, userID).Scan(&owner)
	if err != nil {
		return mapNotFound(err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO user_notes (user_id, note_id, position)
		VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM user_notes WHERE user_id = $1))`,
		userID, noteID)
	return mapUnique(err)
}

func (r *notesRepo) RemoveNoteRef(ctx context.Context, userID, noteID string) error {
	return requireOne(r.db.ExecContext(ctx,
		`DELETE FROM user_notes WHERE user_id = $1 AND note_id = $2`, userID, noteID))
}
