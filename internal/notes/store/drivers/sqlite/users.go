package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/notes/internal/notes/domain"
	"github.com/aussiebroadwan/notes/internal/notes/store"
)

type usersRepo struct {
	db store.DBTX
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+store.UserColumns+` FROM users WHERE id = ?`, id)
	return r.load(ctx, row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+store.UserColumns+` FROM users WHERE email = ?`, email)
	return r.load(ctx, row)
}

func (r *usersRepo) load(ctx context.Context, row store.Scanner) (domain.User, error) {
	u, err := store.ScanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	if u.NoteIDs, err = r.noteIDs(ctx, u.ID); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (r *usersRepo) noteIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT note_id FROM user_notes WHERE user_id = ? ORDER BY position`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+store.UserColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.DOB,
		store.OptionalString(u.GoogleSubject),
		store.OptionalString(u.OTPCode),
		store.OptionalTime(u.OTPExpiresAt),
		store.OptionalString(u.TOTPSecret),
		store.OptionalTime(u.TOTPEnabledAt),
		u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	return mapUnique(err)
}

func (r *usersRepo) SetOTP(ctx context.Context, userID, code string, expiresAt, now time.Time) error {
	return requireOne(r.db.ExecContext(ctx,
		`UPDATE users SET otp_code = ?, otp_expires_at = ?, updated_at = ? WHERE id = ?`,
		code, expiresAt.UTC(), now.UTC(), userID))
}

func (r *usersRepo) ConsumeOTP(ctx context.Context, userID, code string, now time.Time) (bool, error) {
	err := requireOne(r.db.ExecContext(ctx, `
		UPDATE users SET otp_code = NULL, otp_expires_at = NULL, updated_at = ?
		WHERE id = ? AND otp_code = ?`,
		now.UTC(), userID, code))
	switch err {
	case nil:
		return true, nil
	case store.ErrNotFound:
		return false, nil
	default:
		return false, err
	}
}

func (r *usersRepo) SetTOTPSecret(ctx context.Context, userID, sealed string, now time.Time) error {
	return requireOne(r.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = ?, totp_enabled_at = NULL, updated_at = ? WHERE id = ?`,
		sealed, now.UTC(), userID))
}

func (r *usersRepo) EnableTOTP(ctx context.Context, userID string, now time.Time) error {
	return requireOne(r.db.ExecContext(ctx,
		`UPDATE users SET totp_enabled_at = ?, updated_at = ? WHERE id = ? AND totp_secret IS NOT NULL`,
		now.UTC(), now.UTC(), userID))
}

func (r *usersRepo) DisableTOTP(ctx context.Context, userID string, now time.Time) error {
	return requireOne(r.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = NULL, totp_enabled_at = NULL, updated_at = ? WHERE id = ?`,
		now.UTC(), userID))
}
