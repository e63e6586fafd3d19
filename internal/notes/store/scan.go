package store

import (
	"database/sql"
	"time"

	"github.com/aussiebroadwan/notes/internal/notes/domain"
)

// Column lists shared by the SQL drivers. Scan order matches ScanUser and
// ScanNote.
const (
	UserColumns = `id, email, name, dob, google_subject, otp_code, otp_expires_at,
		totp_secret, totp_enabled_at, created_at, updated_at`
	NoteColumns = `id, owner_id, content, created_at, updated_at`
)

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanUser reads UserColumns. NoteIDs are loaded separately.
func ScanUser(s Scanner) (domain.User, error) {
	var (
		u                       domain.User
		googleSub, otp, totp    sql.NullString
		otpExpires, totpEnabled sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Email, &u.Name, &u.DOB, &googleSub, &otp, &otpExpires,
		&totp, &totpEnabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, err
	}
	u.GoogleSubject = NullStringPtr(googleSub)
	u.OTPCode = NullStringPtr(otp)
	u.OTPExpiresAt = NullTimePtr(otpExpires)
	u.TOTPSecret = NullStringPtr(totp)
	u.TOTPEnabledAt = NullTimePtr(totpEnabled)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

// ScanNote reads NoteColumns.
func ScanNote(s Scanner) (domain.Note, error) {
	var n domain.Note
	if err := s.Scan(&n.ID, &n.OwnerID, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return domain.Note{}, err
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return n, nil
}

func NullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func NullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time.UTC()
	return &v
}

func OptionalString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func OptionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
