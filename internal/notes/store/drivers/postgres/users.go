package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/notes/internal/notes/domain"
	"github.com/aussiebroadwan/notes/internal/notes/store"
)

type usersRepo struct {
	db store.DBTX
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.load(ctx, `SELECT `+store.UserColumns+` FROM users WHERE id = $1`, id)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.load(ctx, `SELECT `+store.UserColumns+` FROM users WHERE email = $1`, email)
}

func (r *usersRepo) load(ctx context.Context, query string, arg string) (domain.User, error) {
	u, err := store.ScanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT note_id FROM user_notes WHERE user_id = $1 ORDER BY position`, u.ID)
	if err != nil {
		return domain.User{}, err
	}
	defer rows.Close()

	u.NoteIDs = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return domain.User{}, err
		}
		u.NoteIDs = append(u.NoteIDs, id)
	}
	return u, rows.Err()
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+store.UserColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
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
		`UPDATE users SET otp_code = $1, otp_expires_at = $2, updated_at = $3 WHERE id = $4`,
		code, expiresAt.UTC(), now.UTC(), userID))
}

func (r *usersRepo) ConsumeOTP(ctx context.Context, userID, code string, now time.Time) (bool, error) {
	err := requireOne(r.db.ExecContext(ctx, `
		UPDATE users SET otp_code = NULL, otp_expires_at = NULL, updated_at = $1
		WHERE id = $2 AND otp_code = $3`,
		now.UTC(), userID, code))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *usersRepo) SetTOTPSecret(ctx context.Context, userID, sealed string, now time.Time) error {
	return requireOne(r.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = $1, totp_enabled_at = NULL, updated_at = $2 WHERE id = $3`,
		sealed, now.UTC(), userID))
}

func (r *usersRepo) EnableTOTP(ctx context.Context, userID string, now time.Time) error {
	return requireOne(r.db.ExecContext(ctx,
		`UPDATE users SET totp_enabled_at = $1, updated_at = $1 WHERE id = $2 AND totp_secret IS NOT NULL`,
		now.UTC(), userID))
}

func (r *usersRepo) DisableTOTP(ctx context.Context, userID string, now time.Time) error {
	return requireOne(r.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = NULL, totp_enabled_at = NULL, updated_at = $1 WHERE id = $2`,
		now.UTC(), userID))
}
